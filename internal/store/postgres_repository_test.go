package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oikonomos/ledger-service/internal/domain"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantIntegrity  bool
		wantConstraint string
	}{
		{
			name:           "foreign key violation",
			err:            &pgconn.PgError{Code: "23503", ConstraintName: "transactions_to_account_id_fkey"},
			wantIntegrity:  true,
			wantConstraint: "transactions_to_account_id_fkey",
		},
		{
			name:           "unique violation wrapped",
			err:            fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "amortization_postings_schedule_period_key"}),
			wantIntegrity:  true,
			wantConstraint: "amortization_postings_schedule_period_key",
		},
		{
			name:           "check violation",
			err:            &pgconn.PgError{Code: "23514", ConstraintName: "transactions_amount_check"},
			wantIntegrity:  true,
			wantConstraint: "transactions_amount_check",
		},
		{
			name: "serialization failure passes through",
			err:  &pgconn.PgError{Code: "40001"},
		},
		{
			name: "plain error passes through",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPgError(tt.err)
			if errors.Is(got, ErrIntegrity) != tt.wantIntegrity {
				t.Fatalf("errors.Is(ErrIntegrity) = %t, want %t (err=%v)", !tt.wantIntegrity, tt.wantIntegrity, got)
			}
			if !tt.wantIntegrity {
				if got != tt.err {
					t.Fatalf("expected error to pass through unchanged, got %v", got)
				}
				return
			}
			var integrityErr *IntegrityError
			if !errors.As(got, &integrityErr) {
				t.Fatalf("expected *IntegrityError, got %T", got)
			}
			if integrityErr.Constraint != tt.wantConstraint {
				t.Fatalf("expected constraint %q, got %q", tt.wantConstraint, integrityErr.Constraint)
			}
		})
	}

	outOfRange := mapPgError(&pgconn.PgError{Code: "22003", Message: "integer out of range"})
	if !errors.Is(outOfRange, domain.ErrInvalidInput) {
		t.Fatalf("expected numeric overflow to map to ErrInvalidInput, got %v", outOfRange)
	}
	if errors.Is(outOfRange, ErrIntegrity) {
		t.Fatal("numeric overflow must not be reported as an integrity violation")
	}

	if mapPgError(nil) != nil {
		t.Fatal("expected nil to map to nil")
	}
}

func TestSchemaDeclaresPostingUniqueness(t *testing.T) {
	if !strings.Contains(schemaDDL, "UNIQUE (schedule_id, period_ym)") {
		t.Fatal("expected amortization_postings to be unique per schedule and period")
	}
	if strings.Contains(schemaDDL, "balance_cents <= 0") {
		t.Fatal("liability sign rule must stay out of the schema")
	}
}
