package domain

import (
	"time"

	"github.com/google/uuid"
)

// AmortizationStrategy selects how a schedule spreads value across periods.
type AmortizationStrategy string

const (
	StrategyLinear      AmortizationStrategy = "Linear"
	StrategyAccelerated AmortizationStrategy = "Accelerated"
)

func (s AmortizationStrategy) Valid() bool {
	return s == StrategyLinear || s == StrategyAccelerated
}

// ScheduleStatus is the lifecycle state of an amortization schedule.
// Cancelled is a terminal state that no operation currently enters.
type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "Active"
	ScheduleCompleted ScheduleStatus = "Completed"
	ScheduleCancelled ScheduleStatus = "Cancelled"
)

// AmortizationSchedule depreciates one asset purchase over TotalPeriods months
// starting at the month of StartDate.
type AmortizationSchedule struct {
	ID                  uuid.UUID            `json:"id"`
	AssetAccountID      uuid.UUID            `json:"assetAccountId"`
	Strategy            AmortizationStrategy `json:"strategy"`
	TotalPeriods        int                  `json:"totalPeriods"`
	ResidualCents       int64                `json:"residualCents"`
	StartDate           Date                 `json:"startDate"`
	SourceTransactionID uuid.UUID            `json:"sourceTransactionId"`
	Status              ScheduleStatus       `json:"status"`
	CreatedAt           time.Time            `json:"createdAt"`
}

// StartPeriod is the month of the first depreciation posting.
func (s AmortizationSchedule) StartPeriod() Period {
	return PeriodOf(s.StartDate.Time)
}

// DueSchedule pairs an active schedule with the amount of the purchase it depreciates.
type DueSchedule struct {
	Schedule            AmortizationSchedule
	PurchaseAmountCents int64
}

// AmortizationPosting records that a schedule's period has been materialized.
// At most one exists per (ScheduleID, PeriodYm).
type AmortizationPosting struct {
	ID            uuid.UUID `json:"id"`
	ScheduleID    uuid.UUID `json:"scheduleId"`
	PeriodYm      Period    `json:"periodYm"`
	AmountCents   int64     `json:"amountCents"`
	TransactionID uuid.UUID `json:"transactionId"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// ScheduleDetail is a schedule together with its postings so far.
type ScheduleDetail struct {
	AmortizationSchedule
	Postings []AmortizationPosting `json:"postings"`
}

// BalanceSnapshot is the audit record of one reconciliation.
type BalanceSnapshot struct {
	ID                      uuid.UUID  `json:"id"`
	AccountID               uuid.UUID  `json:"accountId"`
	ActualBalanceCents      int64      `json:"actualBalanceCents"`
	SystemBalanceCents      int64      `json:"systemBalanceCents"`
	DeltaCents              int64      `json:"deltaCents"`
	CapturedAt              time.Time  `json:"capturedAt"`
	AdjustmentTransactionID *uuid.UUID `json:"adjustmentTransactionId"`
}
