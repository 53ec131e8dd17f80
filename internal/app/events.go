package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
)

const publishTimeout = 5 * time.Second

// publish sends an event after its unit has committed. Failures are logged
// and never reach the caller; the ledger write already happened.
func (s *Service) publish(ctx context.Context, event domain.LedgerEvent) {
	event.EventID = uuid.New()
	event.OccurredAt = s.clock()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.eventProducer.Publish(pubCtx, s.exchange, event.EventType, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.EventType).Msg("event publish failed")
	}
}

func accountIDs(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}

func (s *Service) publishTransactionCreated(ctx context.Context, eventType string, tx domain.Transaction) {
	txID := tx.ID
	s.publish(ctx, domain.LedgerEvent{
		EventType:     eventType,
		AccountIDs:    accountIDs(tx.FromAccountID, tx.ToAccountID),
		TransactionID: &txID,
		PeriodYm:      domain.PeriodOf(tx.OccurredAt).String(),
		AmountCents:   tx.AmountCents,
	})
}

func (s *Service) publishAssetPurchase(ctx context.Context, tx domain.Transaction, schedule domain.AmortizationSchedule) {
	txID, scheduleID := tx.ID, schedule.ID
	s.publish(ctx, domain.LedgerEvent{
		EventType:     domain.EventAssetPurchaseCreated,
		AccountIDs:    accountIDs(tx.FromAccountID, tx.ToAccountID),
		TransactionID: &txID,
		ScheduleID:    &scheduleID,
		PeriodYm:      schedule.StartPeriod().String(),
		AmountCents:   tx.AmountCents,
	})
}

func (s *Service) publishDepreciationPosted(ctx context.Context, posting domain.AmortizationPosting) {
	txID, scheduleID := posting.TransactionID, posting.ScheduleID
	s.publish(ctx, domain.LedgerEvent{
		EventType:     domain.EventDepreciationPosted,
		TransactionID: &txID,
		ScheduleID:    &scheduleID,
		PeriodYm:      posting.PeriodYm.String(),
		AmountCents:   posting.AmountCents,
	})
}

func (s *Service) publishReconciliation(ctx context.Context, result domain.ReconcileResult) {
	event := domain.LedgerEvent{
		EventType:  domain.EventReconciliationCreated,
		AccountIDs: []uuid.UUID{result.Account.ID},
		DeltaCents: result.DeltaCents,
	}
	if adj := result.AdjustmentTransaction; adj != nil {
		txID := adj.ID
		event.TransactionID = &txID
		event.AmountCents = adj.AmountCents
	}
	s.publish(ctx, event)
}
