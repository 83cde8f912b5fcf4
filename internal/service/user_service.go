package service

import (
	"context"
	"errors"
	"fmt"
	"go-pages-app/internal/auth"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/mail"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// UserRepository defines the user operations the service needs.
type UserRepository interface {
	Create(ctx context.Context, user *data.User) error
	GetByEmail(ctx context.Context, email string) (*data.User, error)
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	IsTaken(ctx context.Context, field data.UserField, value string) (bool, error)
	First(ctx context.Context) (*data.User, error)
	TouchLastSeen(ctx context.Context, id int64, at time.Time) error
}

// AuthorPages lists pages by author.
type AuthorPages interface {
	GetPagesByAuthorID(ctx context.Context, authorID int64) ([]*data.Page, error)
}

// UserServicer defines the interface for registration, login and profiles.
type UserServicer interface {
	Register(ctx context.Context, in RegisterInput) (*data.User, error)
	StartRegistration(ctx context.Context, in RegisterInput) (string, error)
	CompleteRegistration(ctx context.Context, token, code string) (*data.User, error)
	Authenticate(ctx context.Context, email, password string) (*data.User, error)
	Profile(ctx context.Context, username string) (*data.User, []*data.Page, error)
	ProvisionExternal(ctx context.Context, email, preferredName string) (*data.User, error)
}

// RegisterInput is a sign-up form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

const duplicateUserMessage = "a user with this username or email already exists"

// UserService provides business logic for user accounts.
type UserService struct {
	users  UserRepository
	pages  AuthorPages
	hasher *auth.Hasher
	tokens *auth.SignupTokens
	mailer mail.Sender
	log    logger.Logger
	now    func() time.Time
}

// NewUserService creates a new UserService. tokens and mailer are only needed for the
// emailed-code registration flow.
func NewUserService(users UserRepository, pages AuthorPages, hasher *auth.Hasher, tokens *auth.SignupTokens, mailer mail.Sender, log logger.Logger) *UserService {
	if hasher == nil {
		hasher = auth.NewHasher()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{
		users:  users,
		pages:  pages,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
}

// Register creates an account immediately.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*data.User, error) {
	in, err := s.checkRegistration(ctx, in)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, in.Username, in.Email, hash)
}

// StartRegistration validates the form, mails a one-time code and returns the signed token
// that must be presented with the code to CompleteRegistration.
func (s *UserService) StartRegistration(ctx context.Context, in RegisterInput) (string, error) {
	if s.tokens == nil || s.mailer == nil {
		return "", errors.New("email confirmation is not configured")
	}
	in, err := s.checkRegistration(ctx, in)
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}
	code, err := auth.NewCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	token, err := s.tokens.Issue(auth.PendingRegistration{Username: in.Username, Email: in.Email, PasswordHash: hash}, code)
	if err != nil {
		return "", err
	}

	msg := mail.Message{
		To:      in.Email,
		Subject: "Your confirmation code",
		Body:    fmt.Sprintf("Hello %s,\n\nYour confirmation code is %s.\n", in.Username, code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.With(map[string]interface{}{"email": in.Email}).Error(err, "Failed to send confirmation code")
	}
	return token, nil
}

// CompleteRegistration creates the account held in token when code matches.
func (s *UserService) CompleteRegistration(ctx context.Context, token, code string) (*data.User, error) {
	if s.tokens == nil {
		return nil, errors.New("email confirmation is not configured")
	}
	pending, err := s.tokens.Redeem(token, strings.TrimSpace(code))
	switch {
	case errors.Is(err, auth.ErrCodeExpired):
		return nil, invalid("code", "the confirmation code has expired, please register again")
	case err != nil:
		return nil, invalid("code", "the confirmation code is not valid")
	}
	return s.create(ctx, pending.Username, pending.Email, pending.PasswordHash)
}

// checkRegistration validates and normalizes the form, and runs the advisory uniqueness check.
func (s *UserService) checkRegistration(ctx context.Context, in RegisterInput) (RegisterInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	switch n := utf8.RuneCountInString(in.Username); {
	case n == 0:
		return in, invalid("username", "username is required")
	case n > 100:
		return in, invalid("username", "username must be at most 100 characters")
	case strings.ContainsAny(in.Username, "/?#"):
		return in, invalid("username", "username must not contain / ? or #")
	}
	if addr, err := netmail.ParseAddress(in.Email); err != nil || addr.Address != in.Email || len(in.Email) > 100 {
		return in, invalid("email", "a valid email address is required")
	}
	if in.Password == "" {
		return in, invalid("password", "password is required")
	}

	for _, f := range []struct {
		field data.UserField
		value string
	}{{data.UsernameField, in.Username}, {data.EmailField, in.Email}} {
		taken, err := s.users.IsTaken(ctx, f.field, f.value)
		if err != nil {
			return in, err
		}
		if taken {
			return in, invalid(string(f.field), duplicateUserMessage)
		}
	}
	return in, nil
}

func (s *UserService) create(ctx context.Context, username, email, hash string) (*data.User, error) {
	user := &data.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, invalid("", duplicateUserMessage)
		}
		return nil, err
	}
	s.log.With(map[string]interface{}{"user_id": user.ID}).Info("User registered")
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*data.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil && !errors.Is(err, auth.ErrMalformedHash) {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastSeen(ctx, user.ID, s.now()); err != nil {
		s.log.Error(err, "Failed to update last seen")
	}
	return user, nil
}

// Profile returns a user and the pages they wrote.
func (s *UserService) Profile(ctx context.Context, username string) (*data.User, []*data.Page, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	pages, err := s.pages.GetPagesByAuthorID(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pages, nil
}

// ProvisionExternal returns the user owning email, creating one for first-time OIDC logins.
// Such accounts get an unusable password hash and can only log in through the provider.
func (s *UserService) ProvisionExternal(ctx context.Context, email, preferredName string) (*data.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}

	base := strings.TrimSpace(preferredName)
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	for i := 0; i < 10; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i+1)
		}
		taken, err := s.users.IsTaken(ctx, data.UsernameField, name)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		user, err := s.create(ctx, name, email, "!external")
		if err == nil {
			return user, nil
		}
		if !IsValidation(err) {
			return nil, err
		}
		// The email may have been claimed concurrently.
		if u, lookupErr := s.users.GetByEmail(ctx, email); lookupErr == nil {
			return u, nil
		}
	}
	return nil, fmt.Errorf("could not find a free username for %s", email)
}

// EnsureFirstUser creates the given account when the store has no users yet, and returns the
// earliest user either way.
func (s *UserService) EnsureFirstUser(ctx context.Context, in RegisterInput) (*data.User, error) {
	first, err := s.users.First(ctx)
	if err == nil {
		return first, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	return s.Register(ctx, in)
}
