package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oikonomos/ledger-service/internal/domain"
)

const scheduleColumns = `s.id, s.asset_account_id, s.strategy, s.total_periods, s.residual_cents, s.start_date, s.source_transaction_id, s.status, s.created_at`

func scanSchedule(row pgx.Row, extra ...any) (*domain.AmortizationSchedule, error) {
	var (
		schedule  domain.AmortizationSchedule
		startDate time.Time
	)
	dest := []any{
		&schedule.ID,
		&schedule.AssetAccountID,
		&schedule.Strategy,
		&schedule.TotalPeriods,
		&schedule.ResidualCents,
		&startDate,
		&schedule.SourceTransactionID,
		&schedule.Status,
		&schedule.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	schedule.StartDate = domain.NewDate(startDate)
	schedule.CreatedAt = schedule.CreatedAt.UTC()
	return &schedule, nil
}

// CreateSchedule inserts an amortization schedule.
func (q *pgQueries) CreateSchedule(ctx context.Context, schedule *domain.AmortizationSchedule) error {
	query := `
		INSERT INTO amortization_schedules (
			id, asset_account_id, strategy, total_periods, residual_cents,
			start_date, source_transaction_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.tx.Exec(ctx, query,
		schedule.ID,
		schedule.AssetAccountID,
		schedule.Strategy,
		schedule.TotalPeriods,
		schedule.ResidualCents,
		schedule.StartDate.Time,
		schedule.SourceTransactionID,
		schedule.Status,
		schedule.CreatedAt,
	)
	return mapPgError(err)
}

func (q *pgQueries) FindScheduleByID(ctx context.Context, scheduleID uuid.UUID) (*domain.AmortizationSchedule, error) {
	schedule, err := scanSchedule(q.tx.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM amortization_schedules s WHERE s.id = $1`, scheduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

func (q *pgQueries) ListSchedules(ctx context.Context) ([]domain.AmortizationSchedule, error) {
	rows, err := q.tx.Query(ctx, `SELECT `+scheduleColumns+` FROM amortization_schedules s ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]domain.AmortizationSchedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

// LockActiveSchedules locks every Active schedule row so concurrent
// depreciation runs for the same period serialize on them.
func (q *pgQueries) LockActiveSchedules(ctx context.Context) ([]domain.DueSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `, t.amount_cents
		FROM amortization_schedules s
		JOIN transactions t ON t.id = s.source_transaction_id
		WHERE s.status = 'Active'
		ORDER BY s.created_at, s.id
		FOR UPDATE OF s
	`
	rows, err := q.tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := make([]domain.DueSchedule, 0)
	for rows.Next() {
		var amount int64
		schedule, err := scanSchedule(rows, &amount)
		if err != nil {
			return nil, err
		}
		due = append(due, domain.DueSchedule{Schedule: *schedule, PurchaseAmountCents: amount})
	}
	return due, rows.Err()
}

func (q *pgQueries) PostingExists(ctx context.Context, scheduleID uuid.UUID, period domain.Period) (bool, error) {
	var exists bool
	err := q.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM amortization_postings WHERE schedule_id = $1 AND period_ym = $2)`,
		scheduleID, period.String(),
	).Scan(&exists)
	return exists, err
}

// CreatePosting inserts a posting; (schedule_id, period_ym) is unique.
func (q *pgQueries) CreatePosting(ctx context.Context, posting *domain.AmortizationPosting) error {
	query := `
		INSERT INTO amortization_postings (id, schedule_id, period_ym, amount_cents, transaction_id, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.tx.Exec(ctx, query,
		posting.ID,
		posting.ScheduleID,
		posting.PeriodYm.String(),
		posting.AmountCents,
		posting.TransactionID,
		posting.GeneratedAt,
	)
	return mapPgError(err)
}

func (q *pgQueries) ListPostings(ctx context.Context, scheduleID uuid.UUID) ([]domain.AmortizationPosting, error) {
	query := `
		SELECT id, schedule_id, period_ym, amount_cents, transaction_id, generated_at
		FROM amortization_postings
		WHERE schedule_id = $1
		ORDER BY period_ym ASC
	`
	rows, err := q.tx.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	postings := make([]domain.AmortizationPosting, 0)
	for rows.Next() {
		var (
			posting  domain.AmortizationPosting
			periodYm string
		)
		if err := rows.Scan(&posting.ID, &posting.ScheduleID, &periodYm, &posting.AmountCents, &posting.TransactionID, &posting.GeneratedAt); err != nil {
			return nil, err
		}
		period, err := domain.ParsePeriod(periodYm)
		if err != nil {
			return nil, err
		}
		posting.PeriodYm = period
		posting.GeneratedAt = posting.GeneratedAt.UTC()
		postings = append(postings, posting)
	}
	return postings, rows.Err()
}

func (q *pgQueries) UpdateScheduleStatus(ctx context.Context, scheduleID uuid.UUID, status domain.ScheduleStatus) error {
	tag, err := q.tx.Exec(ctx, `UPDATE amortization_schedules SET status = $2 WHERE id = $1`, scheduleID, status)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// CreateSnapshot records one reconciliation.
func (q *pgQueries) CreateSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) error {
	query := `
		INSERT INTO balance_snapshots (
			id, account_id, actual_balance_cents, system_balance_cents, delta_cents,
			captured_at, adjustment_transaction_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.tx.Exec(ctx, query,
		snapshot.ID,
		snapshot.AccountID,
		snapshot.ActualBalanceCents,
		snapshot.SystemBalanceCents,
		snapshot.DeltaCents,
		snapshot.CapturedAt,
		snapshot.AdjustmentTransactionID,
	)
	return mapPgError(err)
}

func (q *pgQueries) ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]domain.BalanceSnapshot, error) {
	query := `
		SELECT id, account_id, actual_balance_cents, system_balance_cents, delta_cents, captured_at, adjustment_transaction_id
		FROM balance_snapshots
		WHERE account_id = $1
		ORDER BY captured_at DESC, id
	`
	rows, err := q.tx.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]domain.BalanceSnapshot, 0)
	for rows.Next() {
		var s domain.BalanceSnapshot
		if err := rows.Scan(&s.ID, &s.AccountID, &s.ActualBalanceCents, &s.SystemBalanceCents, &s.DeltaCents, &s.CapturedAt, &s.AdjustmentTransactionID); err != nil {
			return nil, err
		}
		s.CapturedAt = s.CapturedAt.UTC()
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (q *pgQueries) CreateCategory(ctx context.Context, category *domain.Category) error {
	_, err := q.tx.Exec(ctx,
		`INSERT INTO categories (id, name, parent_id, is_active) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.ParentID, category.IsActive,
	)
	return mapPgError(err)
}

func (q *pgQueries) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := q.tx.Query(ctx, `SELECT id, name, parent_id, is_active FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *pgQueries) CreateTag(ctx context.Context, tag *domain.Tag) error {
	_, err := q.tx.Exec(ctx, `INSERT INTO tags (id, name) VALUES ($1, $2)`, tag.ID, tag.Name)
	return mapPgError(err)
}

func (q *pgQueries) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := q.tx.Query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (q *pgQueries) CreatePayee(ctx context.Context, payee *domain.Payee) error {
	_, err := q.tx.Exec(ctx,
		`INSERT INTO payees (id, name, default_category_id) VALUES ($1, $2, $3)`,
		payee.ID, payee.Name, payee.DefaultCategoryID,
	)
	return mapPgError(err)
}

func (q *pgQueries) ListPayees(ctx context.Context) ([]domain.Payee, error) {
	rows, err := q.tx.Query(ctx, `SELECT id, name, default_category_id FROM payees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payees := make([]domain.Payee, 0)
	for rows.Next() {
		var p domain.Payee
		if err := rows.Scan(&p.ID, &p.Name, &p.DefaultCategoryID); err != nil {
			return nil, err
		}
		payees = append(payees, p)
	}
	return payees, rows.Err()
}
