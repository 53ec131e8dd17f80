/**
 * @description
 * This file defines the `Repository` and `Queries` interfaces, which specify the
 * contract for all data access required by the ledger service. Every read and
 * write happens inside a unit of work opened with `Repository.InTx`, so the
 * application logic never sees a partially applied operation.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/google/uuid: For identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound      = fmt.Errorf("account %w", domain.ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", domain.ErrNotFound)
	ErrScheduleNotFound     = fmt.Errorf("schedule %w", domain.ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrRefreshTokenNotFound = fmt.Errorf("refresh token %w", domain.ErrNotFound)

	// ErrIntegrity marks foreign key, unique and check constraint violations.
	ErrIntegrity = errors.New("store integrity violation")
)

// IntegrityError names the violated constraint.
type IntegrityError struct {
	Constraint string
	Reason     string
}

func (e *IntegrityError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s: %s", ErrIntegrity, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrIntegrity, e.Reason, e.Constraint)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// Repository opens units of work against the ledger store.
type Repository interface {
	// InTx runs fn in one atomic unit. The unit commits when fn returns nil and
	// rolls back completely otherwise; the error from fn is returned unchanged.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Driver() string
}

// Queries is the set of statements available inside a unit of work.
type Queries interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	// LockAccount reads the account and holds a row lock until the unit ends.
	LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	// AddAccountBalance adds delta to the balance, stamps updated_at and returns the row.
	AddAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, at time.Time) (*domain.Account, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	// ListTransactions orders by occurred_at DESC, created_at DESC.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)

	// Amortization
	CreateSchedule(ctx context.Context, schedule *domain.AmortizationSchedule) error
	FindScheduleByID(ctx context.Context, scheduleID uuid.UUID) (*domain.AmortizationSchedule, error)
	ListSchedules(ctx context.Context) ([]domain.AmortizationSchedule, error)
	// LockActiveSchedules returns every Active schedule with its purchase amount
	// and holds row locks on them until the unit ends.
	LockActiveSchedules(ctx context.Context) ([]domain.DueSchedule, error)
	PostingExists(ctx context.Context, scheduleID uuid.UUID, period domain.Period) (bool, error)
	CreatePosting(ctx context.Context, posting *domain.AmortizationPosting) error
	ListPostings(ctx context.Context, scheduleID uuid.UUID) ([]domain.AmortizationPosting, error)
	UpdateScheduleStatus(ctx context.Context, scheduleID uuid.UUID, status domain.ScheduleStatus) error

	// Reconciliation
	CreateSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) error
	ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]domain.BalanceSnapshot, error)

	// Reference data
	CreateCategory(ctx context.Context, category *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
	ListTags(ctx context.Context) ([]domain.Tag, error)
	CreatePayee(ctx context.Context, payee *domain.Payee) error
	ListPayees(ctx context.Context) ([]domain.Payee, error)

	// Identity
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID, at time.Time) error
	// RevokeRefreshTokenByHash is a no-op when the token is unknown or already revoked.
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error
}
