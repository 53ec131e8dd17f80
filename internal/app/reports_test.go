package app

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/stretchr/testify/require"
)

// seedJanuary books a small month: two categorized expenses, one
// uncategorized expense, an asset purchase and a reconciliation shortfall.
func seedJanuary(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	checking := f.account(t, "Checking", domain.AccountTypeAsset, 10_000)
	laptop := f.account(t, "Laptop", domain.AccountTypeAsset, 0)
	food, err := f.svc.CreateCategory(ctx, domain.CreateCategoryInput{Name: "Food"})
	require.NoError(t, err)

	expenses := []domain.CreateTransactionInput{
		{AmountCents: 200, FromAccountID: idPtr(checking.ID), CategoryID: idPtr(food.ID), OccurredAt: strPtr("2026-01-05T12:00:00Z")},
		{AmountCents: 100, FromAccountID: idPtr(checking.ID), CategoryID: idPtr(food.ID), OccurredAt: strPtr("2026-01-06T12:00:00Z")},
		{AmountCents: 100, FromAccountID: idPtr(checking.ID), OccurredAt: strPtr("2026-01-07T12:00:00Z")},
		{AmountCents: 999, FromAccountID: idPtr(checking.ID), OccurredAt: strPtr("2026-02-07T12:00:00Z")},
	}
	for _, in := range expenses {
		_, err := f.svc.CreateTransaction(ctx, in)
		require.NoError(t, err)
	}

	_, err = f.svc.CreateAssetPurchase(ctx, domain.CreateAssetPurchaseInput{
		AmountCents:    1_200,
		FromAccountID:  checking.ID,
		AssetAccountID: laptop.ID,
		OccurredAt:     strPtr("2026-01-10T09:00:00Z"),
		Strategy:       domain.StrategyLinear,
		TotalPeriods:   12,
		StartDate:      "2026-01-10",
	})
	require.NoError(t, err)

	// 10000 - 200 - 100 - 100 - 999 - 1200 = 7401; the bank says 7301.
	_, err = f.svc.Reconcile(ctx, domain.ReconcileInput{
		AccountID:          checking.ID,
		ActualBalanceCents: 7_301,
		OccurredAt:         strPtr("2026-01-31T18:00:00Z"),
	})
	require.NoError(t, err)
}

func TestUtilityReportIncludesDepreciation(t *testing.T) {
	f := newFixture(t)
	seedJanuary(t, f)

	report, err := f.svc.UtilityReport(context.Background(), "2026-01")
	require.NoError(t, err)

	want := &domain.Report{
		PeriodYm:          "2026-01",
		TotalExpenseCents: 500,
		Items: []domain.ReportItem{
			{Label: "Food", AmountCents: 300, Display: "$3.00"},
			{Label: "Depreciation", AmountCents: 100, Display: "$1.00"},
			{Label: "Uncategorized", AmountCents: 100, Display: "$1.00"},
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("utility report mismatch (-want +got):\n%s", diff)
	}

	// A second run must not post the month again.
	again, err := f.svc.UtilityReport(context.Background(), "2026-01")
	require.NoError(t, err)
	if diff := cmp.Diff(report, again); diff != "" {
		t.Fatalf("utility report changed on rerun (-first +second):\n%s", diff)
	}
}

func TestCashFlowReportExcludesDepreciation(t *testing.T) {
	f := newFixture(t)
	seedJanuary(t, f)
	_, err := f.svc.EnsureDepreciationForPeriod(context.Background(), "2026-01")
	require.NoError(t, err)

	report, err := f.svc.CashFlowReport(context.Background(), "2026-01")
	require.NoError(t, err)

	// The asset purchase and the adjustment are cash movements; depreciation is not.
	want := &domain.Report{
		PeriodYm:          "2026-01",
		TotalExpenseCents: 1_700,
		Items: []domain.ReportItem{
			{Label: "Uncategorized", AmountCents: 1_400, Display: "$14.00"},
			{Label: "Food", AmountCents: 300, Display: "$3.00"},
		},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Fatalf("cash flow report mismatch (-want +got):\n%s", diff)
	}
}

func TestReportsRejectBadPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CashFlowReport(context.Background(), "2026-00")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.UtilityReport(context.Background(), "January")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmptyReport(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.CashFlowReport(context.Background(), "2030-06")
	require.NoError(t, err)
	if diff := cmp.Diff(&domain.Report{PeriodYm: "2030-06", Items: []domain.ReportItem{}}, report); diff != "" {
		t.Fatalf("empty report mismatch (-want +got):\n%s", diff)
	}
}

func TestAdjustmentKPI(t *testing.T) {
	f := newFixture(t)
	seedJanuary(t, f)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		want     domain.AdjustmentKPI
	}{
		{
			name: "january only",
			from: "2026-01", to: "2026-01",
			want: domain.AdjustmentKPI{AdjustmentTotalCents: 100, ExpenseTotalCents: 400, Ratio: 0.25},
		},
		{
			name: "open range",
			want: domain.AdjustmentKPI{AdjustmentTotalCents: 100, ExpenseTotalCents: 1_399, Ratio: 0.07148},
		},
		{
			name: "from february",
			from: "2026-02",
			want: domain.AdjustmentKPI{AdjustmentTotalCents: 0, ExpenseTotalCents: 999, Ratio: 0},
		},
		{
			name: "no expenses",
			from: "2027-01", to: "2027-12",
			want: domain.AdjustmentKPI{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.AdjustmentKPI(ctx, tt.from, tt.to)
			require.NoError(t, err)
			if diff := cmp.Diff(&tt.want, got); diff != "" {
				t.Fatalf("kpi mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := f.svc.AdjustmentKPI(ctx, "2026-1", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
