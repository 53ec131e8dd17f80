package app

import (
	"context"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/shopspring/decimal"
)

const kpiRatioPlaces = 6

// CashFlowReport sums every non-Depreciation transaction of the month by category.
func (s *Service) CashFlowReport(ctx context.Context, periodYm string) (*domain.Report, error) {
	period, err := domain.ParsePeriod(periodYm)
	if err != nil {
		return nil, err
	}
	return s.periodReport(ctx, period, func(tx domain.Transaction, categoryLabel string) (string, bool) {
		if tx.AccrualType == domain.AccrualDepreciation {
			return "", false
		}
		return categoryLabel, true
	})
}

// UtilityReport posts the month's depreciation first, then sums ordinary
// spending by category and depreciation under a single label.
func (s *Service) UtilityReport(ctx context.Context, periodYm string) (*domain.Report, error) {
	period, err := domain.ParsePeriod(periodYm)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureDepreciationForPeriod(ctx, periodYm); err != nil {
		return nil, err
	}
	return s.periodReport(ctx, period, func(tx domain.Transaction, categoryLabel string) (string, bool) {
		switch {
		case tx.AccrualType == domain.AccrualDepreciation:
			return depreciationLabel, true
		case tx.IsExpense():
			return categoryLabel, true
		}
		return "", false
	})
}

// labelFunc buckets a transaction, or excludes it when ok is false.
type labelFunc func(tx domain.Transaction, categoryLabel string) (label string, ok bool)

func (s *Service) periodReport(ctx context.Context, period domain.Period, label labelFunc) (*domain.Report, error) {
	var (
		transactions []domain.Transaction
		categories   []domain.Category
	)
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		if transactions, err = q.ListTransactions(ctx, domain.TransactionFilter{From: &period, To: &period}); err != nil {
			return err
		}
		categories, err = q.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[string]int64)
	for _, tx := range transactions {
		categoryLabel := uncategorizedLabel
		if tx.CategoryID != nil {
			if name, ok := names[*tx.CategoryID]; ok {
				categoryLabel = name
			}
		}
		bucket, ok := label(tx, categoryLabel)
		if !ok {
			continue
		}
		totals[bucket] += tx.AmountCents
	}

	report := &domain.Report{PeriodYm: period.String(), Items: make([]domain.ReportItem, 0, len(totals))}
	for bucket, total := range totals {
		report.Items = append(report.Items, domain.ReportItem{
			Label:       bucket,
			AmountCents: total,
			Display:     s.display(total),
		})
		report.TotalExpenseCents += total
	}
	sort.Slice(report.Items, func(i, j int) bool {
		if report.Items[i].AmountCents != report.Items[j].AmountCents {
			return report.Items[i].AmountCents > report.Items[j].AmountCents
		}
		return report.Items[i].Label < report.Items[j].Label
	})
	return report, nil
}

// AdjustmentKPI relates reconciliation corrections to ordinary spending over
// an optional inclusive month range.
func (s *Service) AdjustmentKPI(ctx context.Context, fromPeriodYm, toPeriodYm string) (*domain.AdjustmentKPI, error) {
	from, err := domain.ParseOptionalPeriod(fromPeriodYm)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseOptionalPeriod(toPeriodYm)
	if err != nil {
		return nil, err
	}

	var transactions []domain.Transaction
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		transactions, err = q.ListTransactions(ctx, domain.TransactionFilter{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, err
	}

	kpi := &domain.AdjustmentKPI{}
	for _, tx := range transactions {
		switch {
		case tx.AccrualType == domain.AccrualAdjustment:
			kpi.AdjustmentTotalCents += abs(tx.AmountCents)
		case tx.IsExpense():
			kpi.ExpenseTotalCents += tx.AmountCents
		}
	}
	if kpi.ExpenseTotalCents != 0 {
		ratio := decimal.NewFromInt(kpi.AdjustmentTotalCents).
			DivRound(decimal.NewFromInt(kpi.ExpenseTotalCents), kpiRatioPlaces)
		kpi.Ratio = ratio.InexactFloat64()
	}
	return kpi, nil
}

// display formats cents in the configured currency, e.g. "$12.34".
func (s *Service) display(cents int64) string {
	return money.New(cents, s.currency).Display()
}
