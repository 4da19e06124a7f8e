package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrValidation)
	// ErrInvalidSession indicates the session token is unknown or expired.
	ErrInvalidSession = fmt.Errorf("%w: invalid session", domain.ErrUnauthorized)
)

type userRepo interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type sessionRepo interface {
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// Service handles signup, login and session lookups.
type Service struct {
	users       userRepo
	sessions    *sessionManager
	sessionTTL  time.Duration
	passwordMin int
	logger      *log.Logger
}

func New(users userRepo, sessions sessionRepo, sessionTTL time.Duration, logger *log.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 48 * time.Hour
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		users:       users,
		sessions:    newSessionManager(sessions),
		sessionTTL:  sessionTTL,
		passwordMin: 8,
		logger:      logger,
	}
}

// SignupInput captures the signup form.
type SignupInput struct {
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

// Signup registers a new user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Validation("please enter a valid email")
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	if password != strings.TrimSpace(in.ConfirmPassword) {
		return nil, domain.Validation("passwords have to match")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, domain.User{Email: email, PasswordHash: string(hashed)})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrValidation)
		}
		return nil, fmt.Errorf("create user: %w", domain.Persistence(err))
	}
	s.logger.Printf("accounts: signup user_id=%s", u.ID)
	return u, nil
}

// Login validates credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	password = strings.TrimSpace(password)
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("load user: %w", domain.Persistence(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Issue(ctx, u.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", domain.Persistence(err))
	}
	return u, sess, nil
}

// Logout ends the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", domain.Persistence(err))
	}
	return nil
}

// Authenticate returns the user bound to a live session token.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	sess, ok := s.sessions.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidSession
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return u, nil
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Validation(fmt.Sprintf("password must be at least %d characters", min))
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Validation("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
