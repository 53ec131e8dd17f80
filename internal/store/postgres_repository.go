/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * Each unit of work runs inside a pgx transaction; the statements available to
 * it are defined on `pgQueries`, split across this file (accounts and
 * transactions), postgres_ledger.go and postgres_identity.go.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oikonomos/ledger-service/internal/domain"
)

// PostgreSQL SQLSTATE codes mapped to ErrIntegrity, plus numeric overflow
// which is reported as invalid input.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgNumericOutOfRange   = "22003"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Driver() string {
	return "postgres"
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// InTx runs fn inside a read-committed transaction.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the tx has been committed.

	if err := fn(&pgQueries{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

type pgQueries struct {
	tx pgx.Tx
}

// mapPgError converts constraint violations into ErrIntegrity and out-of-range
// values into domain.ErrInvalidInput; everything else is left untouched.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return &IntegrityError{Constraint: pgErr.ConstraintName, Reason: "referenced row does not exist"}
	case pgUniqueViolation:
		return &IntegrityError{Constraint: pgErr.ConstraintName, Reason: "duplicate value"}
	case pgCheckViolation:
		return &IntegrityError{Constraint: pgErr.ConstraintName, Reason: "check constraint failed"}
	case pgNotNullViolation:
		return &IntegrityError{Constraint: pgErr.ColumnName, Reason: "required value missing"}
	case pgNumericOutOfRange:
		return fmt.Errorf("%w: numeric value out of range", domain.ErrInvalidInput)
	}
	return err
}

const accountColumns = `id, name, account_type, purpose, balance_cents, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Type,
		&account.Purpose,
		&account.BalanceCents,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}

// CreateAccount inserts a new account row.
func (q *pgQueries) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, account_type, purpose, balance_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.tx.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Type,
		account.Purpose,
		account.BalanceCents,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return mapPgError(err)
}

// FindAccountByID retrieves an account without locking it.
func (q *pgQueries) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := scanAccount(q.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// LockAccount retrieves an account and holds its row lock until the transaction ends.
func (q *pgQueries) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	// Use FOR UPDATE to lock the row, preventing concurrent balance changes.
	account, err := scanAccount(q.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns every account ordered by name.
func (q *pgQueries) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := q.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// AddAccountBalance applies delta in a single statement and returns the updated row.
func (q *pgQueries) AddAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, at time.Time) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET balance_cents = balance_cents + $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + accountColumns
	account, err := scanAccount(q.tx.QueryRow(ctx, query, accountID, delta, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, mapPgError(err)
	}
	return account, nil
}

const transactionColumns = `
	t.id, t.amount_cents, t.from_account_id, t.to_account_id, t.payee_id, t.category_id,
	t.accrual_type, t.is_asset_purchase, t.note, t.occurred_at, t.created_at,
	COALESCE((SELECT array_agg(tt.tag_id::text ORDER BY tt.tag_id) FROM transaction_tags tt WHERE tt.transaction_id = t.id), '{}')
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		tagIDs []string
	)
	err := row.Scan(
		&tx.ID,
		&tx.AmountCents,
		&tx.FromAccountID,
		&tx.ToAccountID,
		&tx.PayeeID,
		&tx.CategoryID,
		&tx.AccrualType,
		&tx.IsAssetPurchase,
		&tx.Note,
		&tx.OccurredAt,
		&tx.CreatedAt,
		&tagIDs,
	)
	if err != nil {
		return nil, err
	}
	tx.OccurredAt = tx.OccurredAt.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.TagIDs = make([]uuid.UUID, 0, len(tagIDs))
	for _, raw := range tagIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse tag id %q: %w", raw, err)
		}
		tx.TagIDs = append(tx.TagIDs, id)
	}
	return &tx, nil
}

// CreateTransaction inserts a ledger transaction and its tag links.
func (q *pgQueries) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, amount_cents, from_account_id, to_account_id, payee_id, category_id,
			accrual_type, is_asset_purchase, note, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.tx.Exec(ctx, query,
		tx.ID,
		tx.AmountCents,
		tx.FromAccountID,
		tx.ToAccountID,
		tx.PayeeID,
		tx.CategoryID,
		tx.AccrualType,
		tx.IsAssetPurchase,
		tx.Note,
		tx.OccurredAt,
		tx.CreatedAt,
	)
	if err != nil {
		return mapPgError(err)
	}

	if len(tx.TagIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tagID := range tx.TagIDs {
		batch.Queue(`INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2)`, tx.ID, tagID)
	}
	results := q.tx.SendBatch(ctx, batch)
	for range tx.TagIDs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return mapPgError(err)
		}
	}
	return mapPgError(results.Close())
}

// FindTransactionByID retrieves a transaction by its primary key.
func (q *pgQueries) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, err := scanTransaction(q.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns the transactions matching filter, newest first.
func (q *pgQueries) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.From != nil {
		args = append(args, filter.From.Start())
		conditions = append(conditions, fmt.Sprintf("t.occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.Next().Start())
		conditions = append(conditions, fmt.Sprintf("t.occurred_at < $%d", len(args)))
	}
	if filter.AccrualType != nil {
		args = append(args, *filter.AccrualType)
		conditions = append(conditions, fmt.Sprintf("t.accrual_type = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions t`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.occurred_at DESC, t.created_at DESC"

	rows, err := q.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}
