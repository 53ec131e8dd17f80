package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for events published after a ledger unit of work commits.
const (
	EventTransactionCreated    = "ledger.transaction.created"
	EventAssetPurchaseCreated  = "ledger.asset_purchase.created"
	EventDepreciationPosted    = "ledger.depreciation.posted"
	EventReconciliationCreated = "ledger.reconciliation.recorded"
)

// LedgerEvent is the message body for every ledger event.
type LedgerEvent struct {
	EventID       uuid.UUID   `json:"event_id"`
	EventType     string      `json:"event_type"`
	AccountIDs    []uuid.UUID `json:"account_ids,omitempty"`
	TransactionID *uuid.UUID  `json:"transaction_id,omitempty"`
	ScheduleID    *uuid.UUID  `json:"schedule_id,omitempty"`
	PeriodYm      string      `json:"period_ym,omitempty"`
	AmountCents   int64       `json:"amount_cents"`
	DeltaCents    int64       `json:"delta_cents,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
