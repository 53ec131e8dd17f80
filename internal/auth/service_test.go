package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/oikonomos/ledger-service/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "admin@oikonomos.local"
	testPassword = "ChangeMe123!"
	testSecret   = "test-secret"
)

type stubLimiter struct {
	counts map[string]int
	err    error
}

func (l *stubLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if l.err != nil {
		return 0, 0, l.err
	}
	l.counts[scope+":"+subject]++
	return l.counts[scope+":"+subject], 42, nil
}

type authFixture struct {
	svc   *Service
	store *memory.Store
	now   time.Time
}

func newAuthFixture(t *testing.T, limiter RateLimiter) *authFixture {
	t.Helper()
	f := &authFixture{
		store: memory.NewStore(),
		now:   time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(f.store, limiter, zerolog.Nop(), Config{
		JWTSecret:              testSecret,
		LoginAttemptsPerMinute: 3,
		Now:                    func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc

	created, err := svc.EnsureDefaultAdmin(context.Background(), " Admin@Oikonomos.local ", testPassword)
	require.NoError(t, err)
	require.True(t, created)
	return f
}

func (f *authFixture) login(t *testing.T) *domain.AuthTokens {
	t.Helper()
	tokens, err := f.svc.Login(context.Background(), domain.LoginInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	return tokens
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(memory.NewStore(), nil, zerolog.Nop(), Config{JWTSecret: "  "})
	require.Error(t, err)
}

func TestEnsureDefaultAdminIsIdempotent(t *testing.T) {
	f := newAuthFixture(t, nil)
	created, err := f.svc.EnsureDefaultAdmin(context.Background(), testEmail, "another-password")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = f.svc.EnsureDefaultAdmin(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoginIssuesAccessAndRefreshTokens(t *testing.T) {
	f := newAuthFixture(t, nil)
	tokens := f.login(t)

	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, 900, tokens.ExpiresIn)
	assert.NotEmpty(t, tokens.RefreshToken)

	user, err := f.svc.Authenticate(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testEmail, user.Email)

	claims := &accessClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tokens.AccessToken, claims)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, f.now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())

	err = f.store.InTx(context.Background(), func(q store.Queries) error {
		stored, err := q.FindRefreshTokenByHash(context.Background(), HashRefreshToken(tokens.RefreshToken))
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(30*24*time.Hour), stored.ExpiresAt)
		assert.Nil(t, stored.RevokedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t, nil)
	tests := []struct {
		name  string
		input domain.LoginInput
	}{
		{name: "wrong password", input: domain.LoginInput{Email: testEmail, Password: "nope"}},
		{name: "unknown email", input: domain.LoginInput{Email: "someone@else.test", Password: testPassword}},
		{name: "blank", input: domain.LoginInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.input)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Login(context.Background(), domain.LoginInput{Email: "ADMIN@oikonomos.LOCAL", Password: testPassword})
	require.NoError(t, err)
}

func TestLoginRateLimit(t *testing.T) {
	limiter := &stubLimiter{counts: map[string]int{}}
	f := newAuthFixture(t, limiter)

	for i := 0; i < 3; i++ {
		f.login(t)
	}
	_, err := f.svc.Login(context.Background(), domain.LoginInput{Email: testEmail, Password: testPassword})
	require.ErrorIs(t, err, ErrRateLimited)
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 42, rateErr.RetryAfterSeconds)
	assert.Equal(t, 4, limiter.counts["login:"+testEmail])
}

func TestLoginSurvivesLimiterOutage(t *testing.T) {
	f := newAuthFixture(t, &stubLimiter{err: errors.New("connection refused")})
	f.login(t)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	first := f.login(t)

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownAndExpiredTokens(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	tokens := f.login(t)

	_, err := f.svc.Refresh(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Refresh(ctx, " ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	f.now = f.now.Add(31 * 24 * time.Hour)
	_, err = f.svc.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	tokens := f.login(t)

	require.NoError(t, f.svc.Logout(ctx, tokens.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, tokens.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "never-issued"))

	_, err := f.svc.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	tokens := f.login(t)

	otherSigner, err := NewService(f.store, nil, zerolog.Nop(), Config{JWTSecret: "other", Now: func() time.Time { return f.now }})
	require.NoError(t, err)
	forged, err := otherSigner.signAccessToken(&domain.User{ID: uuid.New(), Email: testEmail}, f.now)
	require.NoError(t, err)

	refreshAsAccess := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Hour)),
		},
	})
	wrongType, err := refreshAsAccess.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "missing", token: "", want: ErrUnauthorized},
		{name: "garbage", token: "abc.def.ghi", want: ErrUnauthorized},
		{name: "wrong secret", token: forged, want: ErrUnauthorized},
		{name: "wrong type", token: wrongType, want: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Authenticate(ctx, tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}

	f.now = f.now.Add(16 * time.Minute)
	_, err = f.svc.Authenticate(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthenticateUnknownUserIsForbidden(t *testing.T) {
	f := newAuthFixture(t, nil)
	token, err := f.svc.signAccessToken(&domain.User{ID: uuid.New(), Email: "ghost@oikonomos.local"}, f.now)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateUserValidation(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, "not-an-email", testPassword)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.CreateUser(ctx, "short@oikonomos.local", "1234567")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.CreateUser(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, store.ErrIntegrity)

	user, err := f.svc.CreateUser(ctx, "Second@Oikonomos.local", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "second@oikonomos.local", user.Email)
	assert.True(t, VerifyPassword(user.PasswordHash, "long-enough"))
}
