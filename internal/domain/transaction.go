/**
 * @description
 * This file defines the core ledger models: accounts, transactions and the
 * enumerations that classify them. These structs are shared by the store,
 * the application service and the HTTP layer.
 *
 * @notes
 * - Amounts are int64 minor currency units (cents); floating point never
 *   touches money.
 * - Transaction amounts are always positive. Direction is encoded by which of
 *   FromAccountID / ToAccountID is populated. Depreciation transactions carry
 *   neither because they record value consumption rather than a transfer.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccountType is the balance-sheet side of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

// AccountPurpose labels what an account is for.
type AccountPurpose string

const (
	PurposeInvestment   AccountPurpose = "Investment"
	PurposeProductivity AccountPurpose = "Productivity"
	PurposeLifeSupport  AccountPurpose = "LifeSupport"
	PurposeSpiritual    AccountPurpose = "Spiritual"
)

func (p AccountPurpose) Valid() bool {
	switch p {
	case PurposeInvestment, PurposeProductivity, PurposeLifeSupport, PurposeSpiritual:
		return true
	}
	return false
}

// AccrualType is the economic nature of a transaction.
type AccrualType string

const (
	AccrualFlow         AccrualType = "Flow"
	AccrualDepreciation AccrualType = "Depreciation"
	AccrualAdjustment   AccrualType = "Adjustment"
)

func (a AccrualType) Valid() bool {
	switch a {
	case AccrualFlow, AccrualDepreciation, AccrualAdjustment:
		return true
	}
	return false
}

// ParseAccrualType validates a raw accrual type; an empty string yields nil.
func ParseAccrualType(raw string) (*AccrualType, error) {
	if raw == "" {
		return nil, nil
	}
	a := AccrualType(raw)
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown accrualType %q", ErrInvalidInput, raw)
	}
	return &a, nil
}

// Account is a balance-bearing ledger account. BalanceCents is a materialized
// running total and is only changed through the balance enforcer.
type Account struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Type         AccountType    `json:"accountType"`
	Purpose      AccountPurpose `json:"purpose"`
	BalanceCents int64          `json:"balanceCents"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Transaction is an append-only ledger fact.
type Transaction struct {
	ID              uuid.UUID   `json:"id"`
	AmountCents     int64       `json:"amountCents"`
	FromAccountID   *uuid.UUID  `json:"fromAccountId"`
	ToAccountID     *uuid.UUID  `json:"toAccountId"`
	PayeeID         *uuid.UUID  `json:"payeeId"`
	CategoryID      *uuid.UUID  `json:"categoryId"`
	AccrualType     AccrualType `json:"accrualType"`
	IsAssetPurchase bool        `json:"isAssetPurchase"`
	Note            *string     `json:"note"`
	TagIDs          []uuid.UUID `json:"tagIds"`
	OccurredAt      time.Time   `json:"occurredAt"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// IsExpense reports whether the transaction counts as ordinary spending:
// a Flow that is not the purchase of a depreciating asset.
func (t Transaction) IsExpense() bool {
	return t.AccrualType == AccrualFlow && !t.IsAssetPurchase
}

// TransactionFilter narrows a transaction listing. From and To are inclusive months.
type TransactionFilter struct {
	From        *Period
	To          *Period
	AccrualType *AccrualType
}

// Matches applies the filter to a single transaction.
func (f TransactionFilter) Matches(tx Transaction) bool {
	occurred := PeriodOf(tx.OccurredAt)
	if f.From != nil && occurred.Before(*f.From) {
		return false
	}
	if f.To != nil && f.To.Before(occurred) {
		return false
	}
	if f.AccrualType != nil && tx.AccrualType != *f.AccrualType {
		return false
	}
	return true
}

// TransactionPage is the listing response.
type TransactionPage struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
}

// Category is a reporting label. Categories form an optional single-parent tree.
type Category struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId"`
	IsActive bool       `json:"isActive"`
}

// Tag is a free-form label attached to transactions.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Payee is a counterparty with an optional default category.
type Payee struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	DefaultCategoryID *uuid.UUID `json:"defaultCategoryId"`
}
