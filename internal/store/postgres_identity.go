package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oikonomos/ledger-service/internal/domain"
)

const userColumns = `id, email, password_hash, is_active, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (q *pgQueries) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := q.tx.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.IsActive, user.CreatedAt,
	)
	return mapPgError(err)
}

// FindUserByEmail matches case-insensitively; emails are stored lower-cased.
func (q *pgQueries) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(q.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower(btrim($1))`, email))
}

func (q *pgQueries) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return scanUser(q.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (q *pgQueries) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.tx.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	return mapPgError(err)
}

// FindRefreshTokenByHash locks the token row so a token can be rotated at most once.
func (q *pgQueries) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`
	var token domain.RefreshToken
	err := q.tx.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (q *pgQueries) RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	tag, err := q.tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, tokenID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (q *pgQueries) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := q.tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash, at)
	return err
}
