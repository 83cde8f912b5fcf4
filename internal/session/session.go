package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	UserIDKey      = "user_id"
	UsernameKey    = "username"
	PendingSignup  = "pending_signup"
	SignupAttempts = "signup_attempts"
	OIDCStateKey   = "oidc_state"
	flashKey       = "flashes"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt64(ctx context.Context, key string) int64
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates a session manager backed by store. Cookies are SameSite=Lax and
// persist for lifetime.
func New(store scs.Store, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	if store != nil {
		sm.Store = store
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "pages_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"` // success, info, warning or danger
	Message string `json:"message"`
}

// AddFlash queues a message for the next page view.
func AddFlash(ctx context.Context, sm Manager, level, message string) {
	flashes := peekFlashes(ctx, sm)
	flashes = append(flashes, Flash{Level: level, Message: message})
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	sm.Put(ctx, flashKey, string(b))
}

// PopFlashes returns and clears the queued messages.
func PopFlashes(ctx context.Context, sm Manager) []Flash {
	raw := sm.PopString(ctx, flashKey)
	if raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}

func peekFlashes(ctx context.Context, sm Manager) []Flash {
	raw := sm.GetString(ctx, flashKey)
	if raw == "" {
		return nil
	}
	var flashes []Flash
	_ = json.Unmarshal([]byte(raw), &flashes)
	return flashes
}
