package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

// applyDelta is the only path that changes an account balance after creation.
// The write is applied first and checked afterwards; on a liability ending
// positive it returns ErrInvalidInput and the caller's unit must roll back.
func applyDelta(ctx context.Context, q store.Queries, accountID uuid.UUID, delta int64, at time.Time) (*domain.Account, error) {
	account, err := q.AddAccountBalance(ctx, accountID, delta, at)
	if err != nil {
		return nil, err
	}
	if account.Type == domain.AccountTypeLiability && account.BalanceCents > 0 {
		return nil, fmt.Errorf("%w: liability account %s cannot have a positive balance (would be %d)",
			domain.ErrInvalidInput, accountID, account.BalanceCents)
	}
	return account, nil
}
