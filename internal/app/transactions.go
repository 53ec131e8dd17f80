package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

// CreateTransaction validates and records a ledger transaction. For every
// accrual type except Depreciation the amount leaves the from account and
// enters the to account, in that order, in the same unit as the insert.
func (s *Service) CreateTransaction(ctx context.Context, input domain.CreateTransactionInput) (*domain.Transaction, error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amountCents must be greater than 0", domain.ErrInvalidInput)
	}
	accrual := input.AccrualType
	if accrual == "" {
		accrual = domain.AccrualFlow
	}
	if !accrual.Valid() {
		return nil, fmt.Errorf("%w: unknown accrualType %q", domain.ErrInvalidInput, accrual)
	}
	if accrual != domain.AccrualDepreciation && input.FromAccountID == nil && input.ToAccountID == nil {
		return nil, fmt.Errorf("%w: non-depreciation transaction needs from/to account", domain.ErrInvalidInput)
	}
	occurredAt, err := domain.NormalizeTimestamp(input.OccurredAt, s.now())
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:              uuid.New(),
		AmountCents:     input.AmountCents,
		FromAccountID:   input.FromAccountID,
		ToAccountID:     input.ToAccountID,
		PayeeID:         input.PayeeID,
		CategoryID:      input.CategoryID,
		AccrualType:     accrual,
		IsAssetPurchase: input.IsAssetPurchase,
		Note:            trimNote(input.Note),
		TagIDs:          nonNilTags(input.TagIDs),
		OccurredAt:      occurredAt,
	}

	err = s.repo.InTx(ctx, func(q store.Queries) error {
		now := s.clock()
		tx.CreatedAt = now
		if err := q.CreateTransaction(ctx, &tx); err != nil {
			return err
		}
		if accrual == domain.AccrualDepreciation {
			return nil
		}
		return moveFunds(ctx, q, tx.FromAccountID, tx.ToAccountID, tx.AmountCents, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishTransactionCreated(ctx, domain.EventTransactionCreated, tx)
	return &tx, nil
}

// moveFunds debits from and then credits to, skipping whichever side is absent.
func moveFunds(ctx context.Context, q store.Queries, from, to *uuid.UUID, amount int64, at time.Time) error {
	if from != nil {
		if _, err := applyDelta(ctx, q, *from, -amount, at); err != nil {
			return err
		}
	}
	if to != nil {
		if _, err := applyDelta(ctx, q, *to, amount, at); err != nil {
			return err
		}
	}
	return nil
}

// CreateAssetPurchase records the purchase of a depreciating asset and opens
// its amortization schedule. All input is validated before any row is written.
func (s *Service) CreateAssetPurchase(ctx context.Context, input domain.CreateAssetPurchaseInput) (*domain.AssetPurchaseResult, error) {
	switch {
	case input.AmountCents <= 0:
		return nil, fmt.Errorf("%w: amountCents must be greater than 0", domain.ErrInvalidInput)
	case input.TotalPeriods <= 0:
		return nil, fmt.Errorf("%w: totalPeriods must be greater than 0", domain.ErrInvalidInput)
	case input.TotalPeriods > MaxTotalPeriods:
		return nil, fmt.Errorf("%w: totalPeriods must be at most %d", domain.ErrInvalidInput, MaxTotalPeriods)
	case input.ResidualCents < 0 || input.ResidualCents > input.AmountCents:
		return nil, fmt.Errorf("%w: residualCents must be between 0 and amountCents", domain.ErrInvalidInput)
	case !input.Strategy.Valid():
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, input.Strategy)
	case input.FromAccountID == uuid.Nil || input.AssetAccountID == uuid.Nil:
		return nil, fmt.Errorf("%w: fromAccountId and assetAccountId are required", domain.ErrInvalidInput)
	}
	startDate, err := domain.ParseDate(input.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	occurredAt, err := domain.NormalizeTimestamp(input.OccurredAt, s.now())
	if err != nil {
		return nil, err
	}

	from, asset := input.FromAccountID, input.AssetAccountID
	tx := domain.Transaction{
		ID:              uuid.New(),
		AmountCents:     input.AmountCents,
		FromAccountID:   &from,
		ToAccountID:     &asset,
		PayeeID:         input.PayeeID,
		CategoryID:      input.CategoryID,
		AccrualType:     domain.AccrualFlow,
		IsAssetPurchase: true,
		Note:            trimNote(input.Note),
		TagIDs:          []uuid.UUID{},
		OccurredAt:      occurredAt,
	}
	schedule := domain.AmortizationSchedule{
		ID:                  uuid.New(),
		AssetAccountID:      asset,
		Strategy:            input.Strategy,
		TotalPeriods:        input.TotalPeriods,
		ResidualCents:       input.ResidualCents,
		StartDate:           domain.NewDate(startDate),
		SourceTransactionID: tx.ID,
		Status:              domain.ScheduleActive,
	}

	err = s.repo.InTx(ctx, func(q store.Queries) error {
		now := s.clock()
		tx.CreatedAt = now
		schedule.CreatedAt = now
		if err := q.CreateTransaction(ctx, &tx); err != nil {
			return err
		}
		if err := moveFunds(ctx, q, &from, &asset, tx.AmountCents, now); err != nil {
			return err
		}
		return q.CreateSchedule(ctx, &schedule)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transaction_id", tx.ID.String()).
		Str("schedule_id", schedule.ID.String()).
		Str("strategy", string(schedule.Strategy)).
		Int("total_periods", schedule.TotalPeriods).
		Msg("asset purchase recorded")
	s.publishAssetPurchase(ctx, tx, schedule)
	return &domain.AssetPurchaseResult{Transaction: tx, Schedule: schedule}, nil
}

// ListTransactions returns the transactions of an optional month and accrual
// type, newest first.
func (s *Service) ListTransactions(ctx context.Context, periodYm, accrualType string) (*domain.TransactionPage, error) {
	period, err := domain.ParseOptionalPeriod(periodYm)
	if err != nil {
		return nil, err
	}
	accrual, err := domain.ParseAccrualType(accrualType)
	if err != nil {
		return nil, err
	}

	filter := domain.TransactionFilter{From: period, To: period, AccrualType: accrual}
	var items []domain.Transaction
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		items, err = q.ListTransactions(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.TransactionPage{Items: items, Total: len(items)}, nil
}

// GetTransaction returns one transaction.
func (s *Service) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		tx, err = q.FindTransactionByID(ctx, transactionID)
		return err
	})
	return tx, err
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nonNilTags(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
