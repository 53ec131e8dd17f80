package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/shopspring/decimal"
)

// MaxTotalPeriods caps a schedule at one hundred years of monthly postings.
const MaxTotalPeriods = 1200

// DepreciationAmount allocates depreciableCents over totalPeriods and returns
// the share of the 0-indexed period. The final period absorbs any rounding
// remainder so the shares always sum to depreciableCents.
func DepreciationAmount(strategy domain.AmortizationStrategy, depreciableCents int64, totalPeriods, periodIndex int) int64 {
	if depreciableCents <= 0 || totalPeriods <= 0 || periodIndex < 0 || periodIndex >= totalPeriods {
		return 0
	}
	n := int64(totalPeriods)
	last := periodIndex == totalPeriods-1

	switch strategy {
	case domain.StrategyLinear:
		base := depreciableCents / n
		if last {
			return base + depreciableCents%n
		}
		return base
	case domain.StrategyAccelerated:
		// depreciable * weight can exceed int64; the quotient never does.
		amount := decimal.NewFromInt(depreciableCents)
		total := decimal.NewFromInt(n)
		weightSum := total.Mul(total.Add(decimal.NewFromInt(1))).Div(decimal.NewFromInt(2))
		share := func(i int64) int64 {
			q, _ := amount.Mul(decimal.NewFromInt(n - i)).QuoRem(weightSum, 0)
			return q.IntPart()
		}
		if !last {
			return share(int64(periodIndex))
		}
		var prior int64
		for i := int64(0); i < n-1; i++ {
			prior += share(i)
		}
		return depreciableCents - prior
	}
	return 0
}

// EnsureDepreciationForPeriod materializes the depreciation of every Active
// schedule due in periodYm. It is idempotent per (schedule, period) and runs
// all writes in one unit; the postings created by this call are returned.
func (s *Service) EnsureDepreciationForPeriod(ctx context.Context, periodYm string) ([]domain.AmortizationPosting, error) {
	period, err := domain.ParsePeriod(periodYm)
	if err != nil {
		return nil, err
	}

	var created []domain.AmortizationPosting
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		postings, err := ensureDepreciation(ctx, q, period, s.clock())
		created = postings
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		s.logger.Info().Str("period_ym", period.String()).Int("postings", len(created)).Msg("depreciation posted")
		for _, posting := range created {
			s.publishDepreciationPosted(ctx, posting)
		}
	}
	return created, nil
}

func ensureDepreciation(ctx context.Context, q store.Queries, period domain.Period, now time.Time) ([]domain.AmortizationPosting, error) {
	due, err := q.LockActiveSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock active schedules: %w", err)
	}

	created := make([]domain.AmortizationPosting, 0)
	for _, item := range due {
		schedule := item.Schedule
		idx := domain.MonthsBetween(schedule.StartPeriod(), period)
		if idx < 0 || idx >= schedule.TotalPeriods {
			continue
		}
		exists, err := q.PostingExists(ctx, schedule.ID, period)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		amount := DepreciationAmount(schedule.Strategy, item.PurchaseAmountCents-schedule.ResidualCents, schedule.TotalPeriods, idx)
		if amount <= 0 {
			continue
		}

		note := "Depreciation for " + period.String()
		tx := domain.Transaction{
			ID:          uuid.New(),
			AmountCents: amount,
			AccrualType: domain.AccrualDepreciation,
			Note:        &note,
			TagIDs:      []uuid.UUID{},
			OccurredAt:  period.Start(),
			CreatedAt:   now,
		}
		if err := q.CreateTransaction(ctx, &tx); err != nil {
			return nil, fmt.Errorf("insert depreciation transaction: %w", err)
		}

		posting := domain.AmortizationPosting{
			ID:            uuid.New(),
			ScheduleID:    schedule.ID,
			PeriodYm:      period,
			AmountCents:   amount,
			TransactionID: tx.ID,
			GeneratedAt:   now,
		}
		if err := q.CreatePosting(ctx, &posting); err != nil {
			return nil, fmt.Errorf("insert posting: %w", err)
		}

		if idx == schedule.TotalPeriods-1 {
			if err := q.UpdateScheduleStatus(ctx, schedule.ID, domain.ScheduleCompleted); err != nil {
				return nil, fmt.Errorf("complete schedule: %w", err)
			}
		}
		created = append(created, posting)
	}
	return created, nil
}
