package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// schemaDDL is idempotent. The liability sign rule is intentionally not a
// CHECK constraint; the application enforces it after each balance change.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    account_type TEXT NOT NULL CONSTRAINT accounts_type_check CHECK (account_type IN ('Asset', 'Liability')),
    purpose TEXT NOT NULL CONSTRAINT accounts_purpose_check CHECK (purpose IN ('Investment', 'Productivity', 'LifeSupport', 'Spiritual')),
    balance_cents BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS categories (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL CONSTRAINT categories_name_key UNIQUE,
    parent_id UUID REFERENCES categories(id),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    CONSTRAINT categories_parent_check CHECK (parent_id IS NULL OR parent_id <> id)
);

CREATE TABLE IF NOT EXISTS payees (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL CONSTRAINT payees_name_key UNIQUE,
    default_category_id UUID REFERENCES categories(id)
);

CREATE TABLE IF NOT EXISTS tags (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL CONSTRAINT tags_name_key UNIQUE
);

CREATE TABLE IF NOT EXISTS transactions (
    id UUID PRIMARY KEY,
    amount_cents BIGINT NOT NULL CONSTRAINT transactions_amount_check CHECK (amount_cents > 0),
    from_account_id UUID REFERENCES accounts(id),
    to_account_id UUID REFERENCES accounts(id),
    payee_id UUID REFERENCES payees(id),
    category_id UUID REFERENCES categories(id),
    accrual_type TEXT NOT NULL CONSTRAINT transactions_accrual_check CHECK (accrual_type IN ('Flow', 'Depreciation', 'Adjustment')),
    is_asset_purchase BOOLEAN NOT NULL DEFAULT FALSE,
    note TEXT,
    occurred_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transactions_occurred_at_idx ON transactions (occurred_at DESC, created_at DESC);
CREATE INDEX IF NOT EXISTS transactions_accrual_type_idx ON transactions (accrual_type);

CREATE TABLE IF NOT EXISTS transaction_tags (
    transaction_id UUID NOT NULL REFERENCES transactions(id),
    tag_id UUID NOT NULL REFERENCES tags(id),
    PRIMARY KEY (transaction_id, tag_id)
);

CREATE TABLE IF NOT EXISTS amortization_schedules (
    id UUID PRIMARY KEY,
    asset_account_id UUID NOT NULL REFERENCES accounts(id),
    strategy TEXT NOT NULL CONSTRAINT schedules_strategy_check CHECK (strategy IN ('Linear', 'Accelerated')),
    total_periods INTEGER NOT NULL CONSTRAINT schedules_periods_check CHECK (total_periods > 0),
    residual_cents BIGINT NOT NULL CONSTRAINT schedules_residual_check CHECK (residual_cents >= 0),
    start_date DATE NOT NULL,
    source_transaction_id UUID NOT NULL REFERENCES transactions(id),
    status TEXT NOT NULL CONSTRAINT schedules_status_check CHECK (status IN ('Active', 'Completed', 'Cancelled')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS amortization_schedules_status_idx ON amortization_schedules (status);

CREATE TABLE IF NOT EXISTS amortization_postings (
    id UUID PRIMARY KEY,
    schedule_id UUID NOT NULL REFERENCES amortization_schedules(id),
    period_ym TEXT NOT NULL,
    amount_cents BIGINT NOT NULL CONSTRAINT postings_amount_check CHECK (amount_cents > 0),
    transaction_id UUID NOT NULL REFERENCES transactions(id),
    generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT amortization_postings_schedule_period_key UNIQUE (schedule_id, period_ym)
);

CREATE TABLE IF NOT EXISTS balance_snapshots (
    id UUID PRIMARY KEY,
    account_id UUID NOT NULL REFERENCES accounts(id),
    actual_balance_cents BIGINT NOT NULL,
    system_balance_cents BIGINT NOT NULL,
    delta_cents BIGINT NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL,
    adjustment_transaction_id UUID REFERENCES transactions(id)
);
CREATE INDEX IF NOT EXISTS balance_snapshots_account_idx ON balance_snapshots (account_id, captured_at DESC);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL CONSTRAINT users_email_key UNIQUE,
    password_hash TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    token_hash TEXT NOT NULL CONSTRAINT refresh_tokens_hash_key UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    revoked_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
