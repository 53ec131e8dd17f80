package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/rs/zerolog"
)

type posterStub struct {
	periods  []string
	postings map[string]int
	err      error
}

func (s *posterStub) EnsureDepreciationForPeriod(ctx context.Context, periodYm string) ([]domain.AmortizationPosting, error) {
	s.periods = append(s.periods, periodYm)
	if s.err != nil {
		return nil, s.err
	}
	return make([]domain.AmortizationPosting, s.postings[periodYm]), nil
}

func newTestJobs(poster DepreciationPoster, now time.Time) *Jobs {
	jobs := NewJobs(poster, zerolog.Nop())
	jobs.now = func() time.Time { return now }
	return jobs
}

func TestPostDepreciation_CoversPreviousAndCurrentMonth(t *testing.T) {
	poster := &posterStub{postings: map[string]int{"2025-12": 1, "2026-01": 2}}
	jobs := newTestJobs(poster, time.Date(2026, time.January, 1, 0, 5, 0, 0, time.UTC))

	posted, err := jobs.PostDepreciation(context.Background())
	if err != nil {
		t.Fatalf("PostDepreciation returned error: %v", err)
	}
	if posted != 3 {
		t.Fatalf("expected 3 postings, got %d", posted)
	}
	if len(poster.periods) != 2 || poster.periods[0] != "2025-12" || poster.periods[1] != "2026-01" {
		t.Fatalf("expected periods [2025-12 2026-01], got %v", poster.periods)
	}
}

func TestPostDepreciation_UsesUTCMonth(t *testing.T) {
	poster := &posterStub{}
	east := time.FixedZone("UTC+3", 3*60*60)
	jobs := newTestJobs(poster, time.Date(2026, time.March, 1, 1, 0, 0, 0, east))

	if _, err := jobs.PostDepreciation(context.Background()); err != nil {
		t.Fatalf("PostDepreciation returned error: %v", err)
	}
	if poster.periods[1] != "2026-02" {
		t.Fatalf("expected current period 2026-02 in UTC, got %v", poster.periods)
	}
}

func TestPostDepreciation_StopsOnError(t *testing.T) {
	poster := &posterStub{err: errors.New("store unavailable")}
	jobs := newTestJobs(poster, time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC))

	if _, err := jobs.PostDepreciation(context.Background()); err == nil {
		t.Fatal("expected error from poster")
	}
	if len(poster.periods) != 1 {
		t.Fatalf("expected the job to stop after the first failure, got %v", poster.periods)
	}
}

func TestRunDepreciationJob_SwallowsErrors(t *testing.T) {
	poster := &posterStub{err: errors.New("store unavailable")}
	jobs := newTestJobs(poster, time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC))

	jobs.RunDepreciationJob()
	if len(poster.periods) != 1 {
		t.Fatalf("expected one attempt, got %v", poster.periods)
	}
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(newTestJobs(&posterStub{}, time.Now()), zerolog.Nop(), "every full moon")
	if err := s.Start(); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	s := NewScheduler(newTestJobs(&posterStub{}, time.Now()), zerolog.Nop(), "@daily")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
