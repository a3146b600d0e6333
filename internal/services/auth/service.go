package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
)

const (
	RoleAdmin      = "admin"
	TokenTypeReset = "password_reset"

	// ResetRequestedMessage is returned for every reset request, whether or
	// not the email belongs to an admin.
	ResetRequestedMessage = "If the email exists, password reset instructions have been sent"
	ResetDoneMessage      = "Password reset successful"

	minPasswordLength = 6
)

// Config holds token settings for the service.
type Config struct {
	Secret        []byte
	TokenTTL      time.Duration
	ResetTTL      time.Duration
	HashPasswords bool
	// ExposeResetToken returns reset tokens to the caller; development only.
	ExposeResetToken bool
	Now              func() time.Time
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims is the signed token payload.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// ResetRequest is the answer to a password reset request. Token is only set
// when ExposeResetToken is on and the admin exists.
type ResetRequest struct {
	Message string `json:"message"`
	Token   string `json:"resetToken,omitempty"`
}

// Service verifies admin credentials against the admin tab and issues HS256
// tokens.
type Service struct {
	admins repository.AdminRepository
	cfg    Config
	logger *slog.Logger
}

func NewService(admins repository.AdminRepository, cfg Config, logger *slog.Logger) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &Service{
		admins: admins,
		cfg:    cfg,
		logger: logger,
	}
}

func invalidCredentials() error {
	return common.NewAppError("INVALID_CREDENTIALS", "Invalid credentials", common.ErrInvalidCredentials)
}

// Login checks email and password against the admin tab. An unknown email
// and a wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.NewAppError("INVALID_INPUT", "Email and password are required", common.ErrInvalidInput)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn("auth.login.rejected", "request_id", common.RequestIDFromContext(ctx))
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, err
	}
	if !passwordMatches(admin.Password, password) {
		s.logger.Warn("auth.login.rejected", "request_id", common.RequestIDFromContext(ctx))
		return nil, invalidCredentials()
	}

	now := s.cfg.Now()
	expires := now.Add(s.cfg.TokenTTL)
	token, err := s.sign(Claims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("auth.login.ok", "email", email)
	return &Session{Token: token, Email: email, Role: RoleAdmin, ExpiresAt: expires}, nil
}

// Verify validates a session token. Reset tokens are not sessions.
func (s *Service) Verify(token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" || claims.Role != RoleAdmin {
		return nil, common.NewAppError("INVALID_TOKEN", "Invalid token", common.ErrInvalidToken)
	}
	return claims, nil
}

// RequestPasswordReset always answers with the same message. When the admin
// exists a reset token is issued and logged.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetRequest, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, common.NewAppError("INVALID_INPUT", "Email is required", common.ErrInvalidInput)
	}
	resp := &ResetRequest{Message: ResetRequestedMessage}

	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Info("auth.reset.requested", "known", false)
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	token, err := s.sign(Claims{
		Email: admin.Email,
		Type:  TokenTypeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTTL)),
		},
	})
	if err != nil {
		return nil, err
	}
	// no mail transport; the token is handed over through the log
	s.logger.Info("auth.reset.requested", "known", true, "email", admin.Email, "reset_token", token)
	if s.cfg.ExposeResetToken {
		resp.Token = token
	}
	return resp, nil
}

// ResetPassword overwrites the admin's password using a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" || newPassword == "" {
		return common.NewAppError("INVALID_INPUT", "Token and new password are required", common.ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return common.NewAppError("INVALID_INPUT", "Password must be at least 6 characters", common.ErrInvalidInput)
	}
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if claims.Type != TokenTypeReset {
		return common.NewAppError("INVALID_TOKEN", "Invalid reset token", common.ErrInvalidToken)
	}

	stored := newPassword
	if s.cfg.HashPasswords {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return common.NewAppError("INTERNAL", "hash password", err)
		}
		stored = string(hash)
	}
	if err := s.admins.SetPassword(ctx, claims.Email, stored); err != nil {
		return err
	}
	s.logger.Info("auth.reset.done", "email", claims.Email)
	return nil
}

func (s *Service) sign(claims Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", common.NewAppError("INTERNAL", "sign token", err)
	}
	return token, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.cfg.Now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.NewAppError("TOKEN_EXPIRED", "Token expired", common.ErrTokenExpired)
	default:
		return nil, common.NewAppError("INVALID_TOKEN", "Invalid token", common.ErrInvalidToken)
	}
}

// passwordMatches compares in constant time. Stored bcrypt hashes are
// verified with bcrypt; anything else is a plaintext cell.
func passwordMatches(stored, given string) bool {
	if stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
