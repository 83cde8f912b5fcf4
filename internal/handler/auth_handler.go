package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"go-pages-app/internal/auth"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/middleware"
	"go-pages-app/internal/service"
	"go-pages-app/internal/session"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// maxCodeAttempts is how many wrong confirmation codes a pending registration survives.
const maxCodeAttempts = 5

// IdentityProvider is an external OIDC login provider.
type IdentityProvider interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Identify(ctx context.Context, code string) (*auth.Identity, error)
}

// AuthHandler holds the dependencies for registration and login.
type AuthHandler struct {
	base
	users               service.UserServicer
	oidc                IdentityProvider
	requireConfirmation bool
}

// NewAuthHandler creates a new AuthHandler.
//
// Parameters:
//   - us: The user service that registers and authenticates accounts.
//   - oidc: The external identity provider, or nil to disable external login.
//   - requireConfirmation: When true, registration mails a code that must be
//     entered at /register/confirm before the account exists.
//   - v: The renderer for the HTML templates.
//   - sm: The session manager holding the login and pending registration.
//   - log: The application logger.
func NewAuthHandler(us service.UserServicer, oidc IdentityProvider, requireConfirmation bool, v Renderer, sm session.Manager, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		base:                base{view: v, sessions: sm, log: log},
		users:               us,
		oidc:                oidc,
		requireConfirmation: requireConfirmation,
	}
}

func (h *AuthHandler) registerFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "register.html", nil)
}

// registerHandler creates an account, or starts the emailed-code flow when confirmation is required.
func (h *AuthHandler) registerHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	in := service.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	if h.requireConfirmation {
		token, err := h.users.StartRegistration(r.Context(), in)
		if err != nil {
			if msg, ok := validationMessage(err); ok {
				return h.redirect(w, r, "danger", msg, "/register")
			}
			return appError(err, "")
		}
		h.sessions.Put(r.Context(), session.PendingSignup, token)
		h.sessions.Remove(r.Context(), session.SignupAttempts)
		return h.redirect(w, r, "info", "We sent a confirmation code to "+in.Email+".", "/register/confirm")
	}

	if _, err := h.users.Register(r.Context(), in); err != nil {
		if msg, ok := validationMessage(err); ok {
			return h.redirect(w, r, "danger", msg, "/register")
		}
		return appError(err, "")
	}
	return h.redirect(w, r, "success", "Registration successful! You can now log in.", "/login")
}

func (h *AuthHandler) confirmFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.sessions.GetString(r.Context(), session.PendingSignup) == "" {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return nil
	}
	return h.render(w, r, "confirm.html", nil)
}

// confirmHandler finishes a pending registration with the emailed code.
// After maxCodeAttempts wrong codes the pending registration is dropped and
// the user has to start over, which mails a fresh code.
func (h *AuthHandler) confirmHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	token := h.sessions.GetString(ctx, session.PendingSignup)
	if token == "" {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return nil
	}
	if _, err := h.users.CompleteRegistration(ctx, token, r.FormValue("code")); err != nil {
		msg, ok := validationMessage(err)
		if !ok {
			return appError(err, "")
		}
		attempts := h.sessions.GetInt64(ctx, session.SignupAttempts) + 1
		if attempts >= maxCodeAttempts {
			h.clearPendingSignup(r)
			h.log.With(map[string]interface{}{"attempts": attempts}).Warn("Pending registration dropped after too many wrong codes")
			return h.redirect(w, r, "danger", "Too many wrong codes. Please register again.", "/register")
		}
		h.sessions.Put(ctx, session.SignupAttempts, attempts)
		return h.redirect(w, r, "danger", msg, "/register/confirm")
	}
	h.clearPendingSignup(r)
	return h.redirect(w, r, "success", "Registration successful! You can now log in.", "/login")
}

func (h *AuthHandler) clearPendingSignup(r *http.Request) {
	h.sessions.Remove(r.Context(), session.PendingSignup)
	h.sessions.Remove(r.Context(), session.SignupAttempts)
}

func (h *AuthHandler) loginFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "login.html", map[string]interface{}{"OIDCEnabled": h.oidc != nil})
}

// loginHandler checks credentials and starts a session.
func (h *AuthHandler) loginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	user, err := h.users.Authenticate(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.flash(r, "danger", "Invalid email or password.")
		return h.renderStatus(w, r, http.StatusUnauthorized, "login.html", map[string]interface{}{
			"Email":       r.FormValue("email"),
			"OIDCEnabled": h.oidc != nil,
		})
	}
	if err != nil {
		return appError(err, "")
	}
	if appErr := h.startSession(r, user); appErr != nil {
		return appErr
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) startSession(r *http.Request, user *data.User) *middleware.AppError {
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	h.sessions.Put(r.Context(), session.UserIDKey, user.ID)
	h.sessions.Put(r.Context(), session.UsernameKey, user.Username)
	h.log.With(map[string]interface{}{"user_id": user.ID}).Info("User logged in")
	return nil
}

// logoutHandler ends the session.
func (h *AuthHandler) logoutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to log out", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

// oidcLoginHandler redirects the user to the OIDC provider to log in.
// It uses a random 'state' string kept in the session for CSRF protection.
func (h *AuthHandler) oidcLoginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.oidc == nil {
		return &middleware.AppError{Error: errors.New("oidc disabled"), Message: "Page not found", Code: http.StatusNotFound}
	}
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
	}
	h.sessions.Put(r.Context(), session.OIDCStateKey, state)
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
	return nil
}

// oidcCallbackHandler is the redirect URL for the OIDC provider. It verifies the state,
// resolves the local account for the verified email and logs it in.
func (h *AuthHandler) oidcCallbackHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.oidc == nil {
		return &middleware.AppError{Error: errors.New("oidc disabled"), Message: "Page not found", Code: http.StatusNotFound}
	}
	want := h.sessions.PopString(r.Context(), session.OIDCStateKey)
	if want == "" || r.URL.Query().Get("state") != want {
		return &middleware.AppError{Error: errors.New("state mismatch"), Message: "Login failed, please try again.", Code: http.StatusBadRequest}
	}

	identity, err := h.oidc.Identify(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Login failed, please try again.", Code: http.StatusUnauthorized}
	}
	if !identity.EmailVerified {
		return &middleware.AppError{Error: errors.New("unverified email"), Message: "Your email address is not verified with the provider.", Code: http.StatusForbidden}
	}
	user, err := h.users.ProvisionExternal(r.Context(), identity.Email, identity.PreferredUsername)
	if err != nil {
		return appError(err, "")
	}
	if appErr := h.startSession(r, user); appErr != nil {
		return appErr
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
