/**
 * @description
 * Scheduled job implementations for the ledger service. Depreciation is materialized
 * lazily by reports; the poster job only pre-warms the same path so postings exist
 * before anyone asks for them.
 */
package scheduler

import (
	"context"
	"time"

	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/rs/zerolog"
)

const defaultJobTimeout = 2 * time.Minute

// DepreciationPoster materializes the depreciation due for one period.
type DepreciationPoster interface {
	EnsureDepreciationForPeriod(ctx context.Context, periodYm string) ([]domain.AmortizationPosting, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	poster  DepreciationPoster
	logger  zerolog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(poster DepreciationPoster, logger zerolog.Logger) *Jobs {
	return &Jobs{
		poster:  poster,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
		timeout: defaultJobTimeout,
	}
}

// duePeriods returns the previous and the current month, oldest first. The previous
// month is included so a run missed at a month boundary is caught up.
func (j *Jobs) duePeriods() []domain.Period {
	current := domain.PeriodOf(j.now())
	return []domain.Period{current.Prev(), current}
}

// PostDepreciation ensures postings for the due periods and reports how many were created.
func (j *Jobs) PostDepreciation(ctx context.Context) (int, error) {
	posted := 0
	for _, period := range j.duePeriods() {
		postings, err := j.poster.EnsureDepreciationForPeriod(ctx, period.String())
		if err != nil {
			return posted, err
		}
		posted += len(postings)
		j.logger.Info().Str("period", period.String()).Int("postings", len(postings)).Msg("depreciation ensured")
	}
	return posted, nil
}

// RunDepreciationJob is the cron entry point.
func (j *Jobs) RunDepreciationJob() {
	j.logger.Info().Msg("starting depreciation job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	posted, err := j.PostDepreciation(ctx)
	if err != nil {
		j.logger.Error().Err(err).Int("postings", posted).Msg("depreciation job failed")
		return
	}
	j.logger.Info().Int("postings", posted).Msg("depreciation job finished")
}
