package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

// ListSchedules returns every amortization schedule, newest first.
func (s *Service) ListSchedules(ctx context.Context) ([]domain.AmortizationSchedule, error) {
	var schedules []domain.AmortizationSchedule
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		schedules, err = q.ListSchedules(ctx)
		return err
	})
	return schedules, err
}

// GetSchedule returns a schedule together with the postings made so far.
func (s *Service) GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*domain.ScheduleDetail, error) {
	var detail domain.ScheduleDetail
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		schedule, err := q.FindScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		postings, err := q.ListPostings(ctx, scheduleID)
		if err != nil {
			return err
		}
		detail = domain.ScheduleDetail{AmortizationSchedule: *schedule, Postings: postings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
