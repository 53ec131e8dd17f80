package app

import (
	"context"
	"testing"

	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocations(strategy domain.AmortizationStrategy, depreciable int64, total int) []int64 {
	out := make([]int64, total)
	for i := range out {
		out[i] = DepreciationAmount(strategy, depreciable, total, i)
	}
	return out
}

func TestDepreciationAmountKnownAllocations(t *testing.T) {
	assert.Equal(t, []int64{333, 333, 334}, allocations(domain.StrategyLinear, 1000, 3))
	assert.Equal(t, []int64{300, 200, 100}, allocations(domain.StrategyAccelerated, 600, 3))
	assert.Equal(t, []int64{0, 0, 0, 0, 1}, allocations(domain.StrategyLinear, 1, 5))
}

func TestDepreciationAmountSumsToDepreciable(t *testing.T) {
	for _, strategy := range []domain.AmortizationStrategy{domain.StrategyLinear, domain.StrategyAccelerated} {
		for _, depreciable := range []int64{1, 7, 99, 1000, 123457, 9999999} {
			for total := 1; total <= 36; total++ {
				var sum int64
				for _, amount := range allocations(strategy, depreciable, total) {
					require.GreaterOrEqual(t, amount, int64(0))
					sum += amount
				}
				require.Equalf(t, depreciable, sum, "%s depreciable=%d total=%d", strategy, depreciable, total)
			}
		}
	}
}

func TestDepreciationAmountLargeAmounts(t *testing.T) {
	const depreciable = int64(100_000_000_000_000_000)
	for _, strategy := range []domain.AmortizationStrategy{domain.StrategyLinear, domain.StrategyAccelerated} {
		for _, total := range []int{120, MaxTotalPeriods} {
			shares := allocations(strategy, depreciable, total)
			var sum int64
			for i, amount := range shares {
				require.Positivef(t, amount, "%s total=%d period %d", strategy, total, i)
				if strategy == domain.StrategyAccelerated && i > 0 {
					require.LessOrEqualf(t, amount, shares[i-1]+1, "%s total=%d period %d", strategy, total, i)
				}
				sum += amount
			}
			require.Equalf(t, depreciable, sum, "%s total=%d", strategy, total)
		}
	}

	// weight 120 of 7260 on 1e17, floored.
	assert.Equal(t, int64(1_652_892_561_983_471), DepreciationAmount(domain.StrategyAccelerated, depreciable, 120, 0))
}

func TestDepreciationAmountOutOfRange(t *testing.T) {
	tests := []struct {
		name        string
		strategy    domain.AmortizationStrategy
		depreciable int64
		total       int
		index       int
	}{
		{name: "zero depreciable", strategy: domain.StrategyLinear, depreciable: 0, total: 3, index: 0},
		{name: "negative depreciable", strategy: domain.StrategyLinear, depreciable: -10, total: 3, index: 0},
		{name: "zero periods", strategy: domain.StrategyAccelerated, depreciable: 100, total: 0, index: 0},
		{name: "negative index", strategy: domain.StrategyLinear, depreciable: 100, total: 3, index: -1},
		{name: "index past end", strategy: domain.StrategyAccelerated, depreciable: 100, total: 3, index: 3},
		{name: "unknown strategy", strategy: "Sinking", depreciable: 100, total: 3, index: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, DepreciationAmount(tt.strategy, tt.depreciable, tt.total, tt.index))
		})
	}
}

func (f *fixture) assetPurchase(t *testing.T, amount, residual int64, strategy domain.AmortizationStrategy, periods int, startDate string) domain.AssetPurchaseResult {
	t.Helper()
	checking := f.account(t, "Checking "+startDate+string(strategy), domain.AccountTypeAsset, 1_000_000)
	asset := f.account(t, "Asset "+startDate+string(strategy), domain.AccountTypeAsset, 0)
	result, err := f.svc.CreateAssetPurchase(context.Background(), domain.CreateAssetPurchaseInput{
		AmountCents:    amount,
		FromAccountID:  checking.ID,
		AssetAccountID: asset.ID,
		OccurredAt:     strPtr(startDate + "T09:00:00Z"),
		Strategy:       strategy,
		TotalPeriods:   periods,
		ResidualCents:  residual,
		StartDate:      startDate,
	})
	require.NoError(t, err)
	return *result
}

func TestEnsureDepreciationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assetPurchase(t, 1200, 0, domain.StrategyLinear, 12, "2026-01-15")
	f.assetPurchase(t, 700, 100, domain.StrategyAccelerated, 3, "2026-01-01")

	first, err := f.svc.EnsureDepreciationForPeriod(ctx, "2026-01")
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := f.svc.EnsureDepreciationForPeriod(ctx, "2026-01")
	require.NoError(t, err)
	require.Empty(t, second)

	page, err := f.svc.ListTransactions(ctx, "2026-01", string(domain.AccrualDepreciation))
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	amounts := map[int64]bool{}
	for _, tx := range page.Items {
		require.Nil(t, tx.FromAccountID)
		require.Nil(t, tx.ToAccountID)
		require.Equal(t, "2026-01-01T00:00:00Z", tx.OccurredAt.Format("2006-01-02T15:04:05Z07:00"))
		require.Equal(t, "Depreciation for 2026-01", *tx.Note)
		amounts[tx.AmountCents] = true
	}
	require.Equal(t, map[int64]bool{100: true, 300: true}, amounts)
}

func TestEnsureDepreciationCompletesFinalPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purchase := f.assetPurchase(t, 1000, 0, domain.StrategyLinear, 3, "2026-01-20")

	var posted []int64
	for _, period := range []string{"2025-12", "2026-01", "2026-02", "2026-03"} {
		postings, err := f.svc.EnsureDepreciationForPeriod(ctx, period)
		require.NoError(t, err)
		for _, p := range postings {
			posted = append(posted, p.AmountCents)
		}
	}
	require.Equal(t, []int64{333, 333, 334}, posted)

	schedules := f.schedules(t)
	require.Len(t, schedules, 1)
	require.Equal(t, domain.ScheduleCompleted, schedules[0].Status)

	for _, period := range []string{"2026-03", "2026-04"} {
		postings, err := f.svc.EnsureDepreciationForPeriod(ctx, period)
		require.NoError(t, err)
		require.Empty(t, postings)
	}

	detail, err := f.svc.GetSchedule(ctx, purchase.Schedule.ID)
	require.NoError(t, err)
	require.Len(t, detail.Postings, 3)
	require.Equal(t, "2026-01", detail.Postings[0].PeriodYm.String())
	require.Equal(t, "2026-03", detail.Postings[2].PeriodYm.String())

	keys := f.publisher.keys()
	require.Contains(t, keys, domain.EventDepreciationPosted)
	require.Contains(t, keys, domain.EventAssetPurchaseCreated)
}

func TestEnsureDepreciationFullyResidualPostsNothing(t *testing.T) {
	f := newFixture(t)
	f.assetPurchase(t, 500, 500, domain.StrategyLinear, 2, "2026-01-01")

	postings, err := f.svc.EnsureDepreciationForPeriod(context.Background(), "2026-02")
	require.NoError(t, err)
	require.Empty(t, postings)
	require.Equal(t, domain.ScheduleActive, f.schedules(t)[0].Status)
}

func TestEnsureDepreciationRejectsBadPeriod(t *testing.T) {
	f := newFixture(t)
	for _, period := range []string{"2026-13", "2026-1", "26-01", ""} {
		_, err := f.svc.EnsureDepreciationForPeriod(context.Background(), period)
		require.ErrorIs(t, err, domain.ErrInvalidInput, period)
	}
}
