/**
 * @description
 * This file contains the identity provider for the ledger API. It authenticates
 * operators with email and password, issues short-lived HS256 access tokens and
 * long-lived refresh tokens, and resolves a bearer token back to an active user.
 *
 * Key features:
 * - Passwords are stored as bcrypt hashes.
 * - Refresh tokens are opaque random strings; only their SHA-256 hex digest is stored.
 * - Every refresh rotates the token: the presented one is revoked in the same unit
 *   that stores its replacement.
 * - Login attempts can be throttled per email through a Redis-backed limiter.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Access token signing and validation.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - internal/store: Users and refresh tokens.
 */

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrForbidden          = errors.New("user not active")
	ErrRateLimited        = errors.New("too many login attempts")
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	loginRateLimitScope  = "login"
	loginRateLimitWindow = time.Minute
	minPasswordLength    = 8
	tokenTypeBearer      = "Bearer"
)

// RateLimitError reports how long a throttled caller should wait.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %ds", ErrRateLimited, e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RateLimiter counts attempts for a subject inside a fixed window.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Config holds the identity provider settings.
type Config struct {
	JWTSecret              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	LoginAttemptsPerMinute int
	Now                    func() time.Time
}

// Service authenticates operators against the ledger store.
type Service struct {
	repo    store.Repository
	limiter RateLimiter
	logger  zerolog.Logger
	secret  []byte
	cfg     Config
}

// NewService creates an identity provider. A nil limiter disables login throttling.
func NewService(repo store.Repository, limiter RateLimiter, logger zerolog.Logger, cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:    repo,
		limiter: limiter,
		logger:  logger.With().Str("component", "auth").Logger(),
		secret:  []byte(cfg.JWTSecret),
		cfg:     cfg,
	}, nil
}

func (s *Service) clock() time.Time {
	return s.cfg.Now().UTC().Truncate(time.Second)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies the password and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, in domain.LoginInput) (*domain.AuthTokens, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.throttleLogin(ctx, email); err != nil {
		return nil, err
	}

	now := s.clock()
	var tokens *domain.AuthTokens
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		user, err := q.FindUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !user.IsActive || !VerifyPassword(user.PasswordHash, in.Password) {
			return ErrInvalidCredentials
		}
		tokens, err = s.issueTokens(ctx, q, user, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("outcome", "reject").Str("email", email).Msg("login failed")
		}
		return nil, err
	}
	s.logger.Info().Str("outcome", "accepted").Str("email", email).Msg("login")
	return tokens, nil
}

func (s *Service) throttleLogin(ctx context.Context, email string) error {
	if s.limiter == nil || s.cfg.LoginAttemptsPerMinute <= 0 {
		return nil
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, loginRateLimitScope, email, s.cfg.LoginAttemptsPerMinute, loginRateLimitWindow)
	if err != nil {
		// The limiter is advisory; a Redis outage must not lock operators out.
		s.logger.Warn().Err(err).Msg("login rate limiter unavailable")
		return nil
	}
	if count > s.cfg.LoginAttemptsPerMinute {
		s.logger.Warn().Str("email", email).Int("count", count).Int("retry_after", retryAfter).Msg("login rate limited")
		return &RateLimitError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refreshToken is required", domain.ErrInvalidInput)
	}
	now := s.clock()
	var tokens *domain.AuthTokens
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		stored, err := q.FindRefreshTokenByHash(ctx, HashRefreshToken(refreshToken))
		if err != nil {
			if errors.Is(err, store.ErrRefreshTokenNotFound) {
				return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
			}
			return err
		}
		if stored.RevokedAt != nil {
			return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		user, err := q.FindUserByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
			}
			return err
		}
		if !user.IsActive {
			return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		if !stored.ExpiresAt.After(now) {
			return fmt.Errorf("%w: refresh token expired", ErrTokenExpired)
		}
		if err := q.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
			if errors.Is(err, store.ErrRefreshTokenNotFound) {
				return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
			}
			return err
		}
		tokens, err = s.issueTokens(ctx, q, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Logout revokes a refresh token. Unknown or already revoked tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("%w: refreshToken is required", domain.ErrInvalidInput)
	}
	now := s.clock()
	return s.repo.InTx(ctx, func(q store.Queries) error {
		return q.RevokeRefreshTokenByHash(ctx, HashRefreshToken(refreshToken), now)
	})
}

// Authenticate resolves a bearer access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.CurrentUser, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid access token", ErrUnauthorized)
	}

	var user *domain.User
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		user, err = q.FindUserByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return &domain.CurrentUser{ID: user.ID, Email: user.Email}, nil
}

// CreateUser registers an active operator.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.clock(),
	}
	if err := s.repo.InTx(ctx, func(q store.Queries) error {
		return q.CreateUser(ctx, user)
	}); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Str("email", email).Msg("user created")
	return user, nil
}

// EnsureDefaultAdmin creates the bootstrap operator when no user owns the email yet.
// It reports whether a user was created.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	exists := false
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		_, err := q.FindUserByEmail(ctx, email)
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	})
	if err != nil || exists {
		return false, err
	}
	if _, err := s.CreateUser(ctx, email, password); err != nil {
		return false, fmt.Errorf("create default admin: %w", err)
	}
	return true, nil
}

func (s *Service) issueTokens(ctx context.Context, q store.Queries, user *domain.User, now time.Time) (*domain.AuthTokens, error) {
	access, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := q.CreateRefreshToken(ctx, &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashRefreshToken(refresh),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return &domain.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(s.cfg.AccessTokenTTL / time.Second),
	}, nil
}
