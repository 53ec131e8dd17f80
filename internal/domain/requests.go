package domain

import "github.com/google/uuid"

// CreateAccountInput is the DTO for opening an account.
type CreateAccountInput struct {
	Name                string         `json:"name"`
	AccountType         AccountType    `json:"accountType"`
	Purpose             AccountPurpose `json:"purpose"`
	InitialBalanceCents int64          `json:"initialBalanceCents"`
}

// CreateTransactionInput is the DTO for recording a ledger transaction.
// AccrualType defaults to Flow when empty.
type CreateTransactionInput struct {
	AmountCents     int64       `json:"amountCents"`
	FromAccountID   *uuid.UUID  `json:"fromAccountId"`
	ToAccountID     *uuid.UUID  `json:"toAccountId"`
	PayeeID         *uuid.UUID  `json:"payeeId"`
	CategoryID      *uuid.UUID  `json:"categoryId"`
	AccrualType     AccrualType `json:"accrualType"`
	IsAssetPurchase bool        `json:"isAssetPurchase"`
	Note            *string     `json:"note"`
	OccurredAt      *string     `json:"occurredAt"`
	TagIDs          []uuid.UUID `json:"tagIds"`
}

// CreateAssetPurchaseInput is the DTO for buying a depreciating asset.
type CreateAssetPurchaseInput struct {
	AmountCents    int64                `json:"amountCents"`
	FromAccountID  uuid.UUID            `json:"fromAccountId"`
	AssetAccountID uuid.UUID            `json:"assetAccountId"`
	CategoryID     *uuid.UUID           `json:"categoryId"`
	PayeeID        *uuid.UUID           `json:"payeeId"`
	Note           *string              `json:"note"`
	OccurredAt     *string              `json:"occurredAt"`
	Strategy       AmortizationStrategy `json:"strategy"`
	TotalPeriods   int                  `json:"totalPeriods"`
	ResidualCents  int64                `json:"residualCents"`
	StartDate      string               `json:"startDate"`
}

// AssetPurchaseResult returns the purchase transaction and its new schedule.
type AssetPurchaseResult struct {
	Transaction Transaction          `json:"transaction"`
	Schedule    AmortizationSchedule `json:"schedule"`
}

// ReconcileInput asserts the real-world balance of an account.
type ReconcileInput struct {
	AccountID          uuid.UUID `json:"accountId"`
	ActualBalanceCents int64     `json:"actualBalanceCents"`
	OccurredAt         *string   `json:"occurredAt"`
	Note               *string   `json:"note"`
}

// ReconcileResult carries the refreshed account and the adjustment, if one was needed.
type ReconcileResult struct {
	Account               Account      `json:"account"`
	DeltaCents            int64        `json:"deltaCents"`
	AdjustmentTransaction *Transaction `json:"adjustmentTransaction"`
}

// ReportItem is one labelled bucket of a period report.
type ReportItem struct {
	Label       string `json:"label"`
	AmountCents int64  `json:"amountCents"`
	Display     string `json:"display"`
}

// Report is a period-bounded aggregate.
type Report struct {
	PeriodYm          string       `json:"periodYm"`
	TotalExpenseCents int64        `json:"totalExpenseCents"`
	Items             []ReportItem `json:"items"`
}

// AdjustmentKPI compares reconciliation corrections with ordinary spending.
type AdjustmentKPI struct {
	AdjustmentTotalCents int64   `json:"adjustmentTotalCents"`
	ExpenseTotalCents    int64   `json:"expenseTotalCents"`
	Ratio                float64 `json:"ratio"`
}

// CreateCategoryInput is the DTO for a new category.
type CreateCategoryInput struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId"`
}

// CreatePayeeInput is the DTO for a new payee.
type CreatePayeeInput struct {
	Name              string     `json:"name"`
	DefaultCategoryID *uuid.UUID `json:"defaultCategoryId"`
}

// CreateTagInput is the DTO for a new tag.
type CreateTagInput struct {
	Name string `json:"name"`
}

// SystemInfo describes the running service.
type SystemInfo struct {
	StoreDriver     string `json:"storeDriver"`
	DisplayCurrency string `json:"displayCurrency"`
	ServerTime      string `json:"serverTime"`
}
