package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an operator allowed to use the API.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// RefreshToken is the persisted, hashed half of a refresh credential.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// LoginInput is the DTO for password login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenRefreshInput carries a refresh token for rotation or logout.
type TokenRefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthTokens is returned by login and refresh.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// CurrentUser is the authenticated caller identity.
type CurrentUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
