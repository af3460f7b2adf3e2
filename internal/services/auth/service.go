package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/mailer"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Config holds token lifetimes and the public site URL used in reset links
type Config struct {
	TokenTTL time.Duration
	ResetTTL time.Duration
	BaseURL  string
}

// Session is returned on sign up and sign in
type Session struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
}

// Service handles account business logic
type Service struct {
	users  repositories.UserRepository
	tokens *TokenIssuer
	mail   mailer.Mailer
	clock  clock.Clock
	cfg    Config
	cost   int
}

func NewService(users repositories.UserRepository, tokens *TokenIssuer, mail mailer.Mailer, clk clock.Clock, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{users: users, tokens: tokens, mail: mail, clock: clk, cfg: cfg, cost: bcrypt.DefaultCost}
}

// SignUp creates a customer account and signs it in
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, svcerr.Invalid("email", err.Error())
	}
	if err := user.ValidatePassword(password); err != nil {
		return nil, svcerr.Invalid("password", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, svcerr.Wrap("hash_password", err)
	}

	u, err := user.NewUser(normalized, string(hash), s.clock.Now())
	if err != nil {
		return nil, svcerr.Invalid("email", err.Error())
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, svcerr.Invalid("email", "email already registered")
		}
		return nil, svcerr.Wrap("create_user", err)
	}

	log.Info().Str("user_id", u.ID.String()).Msg("account created")
	return s.session(u)
}

// SignIn checks credentials and returns a session token
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, user.ErrInvalidLogin
	}

	u, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrInvalidLogin
		}
		return nil, svcerr.Wrap("find_user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, user.ErrInvalidLogin
	}
	return s.session(u)
}

// Authenticate resolves a session token into an actor. Sessions issued
// before the latest password change are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (user.Actor, error) {
	u, err := s.tokenUser(ctx, token, PurposeSession)
	if err != nil {
		return user.Actor{}, err
	}
	return user.Actor{ID: u.ID, Role: u.Role}, nil
}

// tokenUser parses a token and loads its still-current owner
func (s *Service) tokenUser(ctx context.Context, token, purpose string) (*user.User, error) {
	claims, err := s.tokens.Parse(token, purpose, s.clock.Now())
	if err != nil {
		return nil, err
	}
	id, _ := claims.UserID()
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, svcerr.Wrap("find_user", err)
	}
	if !s.tokens.Current(claims, u) {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// RequestPasswordReset mails a reset link. Unknown emails succeed silently so
// the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return svcerr.Invalid("email", err.Error())
	}

	u, err := s.users.FindByEmail(ctx, normalized)
	if errors.Is(err, user.ErrNotFound) {
		log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return svcerr.Wrap("find_user", err)
	}

	token, _, err := s.tokens.Issue(u, PurposeReset, s.clock.Now(), s.cfg.ResetTTL)
	if err != nil {
		return svcerr.Wrap("issue_reset_token", err)
	}

	if err := s.mail.SendPasswordReset(u.Email, s.resetLink(redirectURL, token)); err != nil {
		return svcerr.Wrap("send_reset_mail", err)
	}
	return nil
}

// resetLink only honours redirects back to our own site
func (s *Service) resetLink(redirectURL, token string) string {
	target := s.cfg.BaseURL + "/reset-password"
	if redirectURL != "" && s.cfg.BaseURL != "" {
		base, err1 := url.Parse(s.cfg.BaseURL)
		red, err2 := url.Parse(redirectURL)
		if err1 == nil && err2 == nil && red.Scheme == base.Scheme && red.Host == base.Host {
			target = redirectURL
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return target + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResetPassword sets a new password using a reset token. A token stops
// working once the password it was issued against has changed.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	u, err := s.tokenUser(ctx, resetToken, PurposeReset)
	if errors.Is(err, ErrInvalidToken) {
		return svcerr.Invalid("token", err.Error())
	}
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

// ChangePassword sets a new password for a signed-in user
func (s *Service) ChangePassword(ctx context.Context, actor user.Actor, newPassword string) error {
	if actor.ID == uuid.Nil {
		return svcerr.ErrUnauthorized
	}
	return s.setPassword(ctx, actor.ID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := user.ValidatePassword(password); err != nil {
		return svcerr.Invalid("password", err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return svcerr.Wrap("hash_password", err)
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		return svcerr.Wrap("update_password", err)
	}
	log.Info().Str("user_id", id.String()).Msg("password updated")
	return nil
}

// PromoteAdmin grants the admin role to an existing account
func (s *Service) PromoteAdmin(ctx context.Context, email string) (*user.User, error) {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, svcerr.Invalid("email", err.Error())
	}
	u, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, svcerr.Wrap("find_user", err)
	}
	if u.IsAdmin() {
		return u, nil
	}
	u.Promote()
	if err := s.users.UpdateRole(ctx, u.ID, u.Role); err != nil {
		return nil, svcerr.Wrap("update_role", err)
	}
	log.Warn().Str("user_id", u.ID.String()).Msg("account promoted to admin")
	return u, nil
}

func (s *Service) session(u *user.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u, PurposeSession, s.clock.Now(), s.cfg.TokenTTL)
	if err != nil {
		return nil, svcerr.Wrap("issue_token", err)
	}
	return &Session{Token: token, ExpiresAt: exp, UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}
