package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

// Reconcile compares a reported real-world balance with the ledger balance.
// A non-zero difference is booked as an Adjustment transaction; a snapshot of
// the comparison is recorded either way.
func (s *Service) Reconcile(ctx context.Context, input domain.ReconcileInput) (*domain.ReconcileResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%w: accountId is required", domain.ErrInvalidInput)
	}
	occurredAt, err := domain.NormalizeTimestamp(input.OccurredAt, s.now())
	if err != nil {
		return nil, err
	}
	note := defaultAdjustNote
	if input.Note != nil && strings.TrimSpace(*input.Note) != "" {
		note = strings.TrimSpace(*input.Note)
	}

	var result domain.ReconcileResult
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		account, err := q.LockAccount(ctx, input.AccountID)
		if err != nil {
			return err
		}
		now := s.clock()
		system := account.BalanceCents
		delta, ok := balanceDelta(input.ActualBalanceCents, system)
		if !ok {
			return fmt.Errorf("%w: actualBalanceCents is too far from the ledger balance", domain.ErrInvalidInput)
		}

		snapshot := domain.BalanceSnapshot{
			ID:                 uuid.New(),
			AccountID:          account.ID,
			ActualBalanceCents: input.ActualBalanceCents,
			SystemBalanceCents: system,
			DeltaCents:         delta,
			CapturedAt:         now,
		}

		if delta != 0 {
			adjustment := domain.Transaction{
				ID:          uuid.New(),
				AmountCents: abs(delta),
				AccrualType: domain.AccrualAdjustment,
				Note:        &note,
				TagIDs:      []uuid.UUID{},
				OccurredAt:  occurredAt,
				CreatedAt:   now,
			}
			accountID := account.ID
			if delta < 0 {
				adjustment.FromAccountID = &accountID
			} else {
				adjustment.ToAccountID = &accountID
			}
			if err := q.CreateTransaction(ctx, &adjustment); err != nil {
				return err
			}
			if account, err = applyDelta(ctx, q, account.ID, delta, now); err != nil {
				return err
			}
			snapshot.AdjustmentTransactionID = &adjustment.ID
			result.AdjustmentTransaction = &adjustment
		}

		if err := q.CreateSnapshot(ctx, &snapshot); err != nil {
			return err
		}
		result.Account = *account
		result.DeltaCents = delta
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("account_id", input.AccountID.String()).
		Int64("delta_cents", result.DeltaCents).
		Bool("adjusted", result.AdjustmentTransaction != nil).
		Msg("account reconciled")
	s.publishReconciliation(ctx, result)
	return &result, nil
}

// ListSnapshots returns the reconciliation history of an account, newest first.
func (s *Service) ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]domain.BalanceSnapshot, error) {
	var snapshots []domain.BalanceSnapshot
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		if _, err := q.FindAccountByID(ctx, accountID); err != nil {
			return err
		}
		var err error
		snapshots, err = q.ListSnapshots(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// balanceDelta returns actual - system and false when the difference, or its
// absolute value, does not fit in int64.
func balanceDelta(actual, system int64) (int64, bool) {
	delta := actual - system
	if (system < 0 && delta < actual) || (system > 0 && delta > actual) || delta == math.MinInt64 {
		return 0, false
	}
	return delta, true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
