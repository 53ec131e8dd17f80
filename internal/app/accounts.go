package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

// CreateAccount opens an account with its initial balance.
func (s *Service) CreateAccount(ctx context.Context, input domain.CreateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case !input.AccountType.Valid():
		return nil, fmt.Errorf("%w: unknown accountType %q", domain.ErrInvalidInput, input.AccountType)
	case !input.Purpose.Valid():
		return nil, fmt.Errorf("%w: unknown purpose %q", domain.ErrInvalidInput, input.Purpose)
	case input.AccountType == domain.AccountTypeLiability && input.InitialBalanceCents > 0:
		return nil, fmt.Errorf("%w: liability account initial balance must be <= 0", domain.ErrInvalidInput)
	}

	now := s.clock()
	account := domain.Account{
		ID:           uuid.New(),
		Name:         name,
		Type:         input.AccountType,
		Purpose:      input.Purpose,
		BalanceCents: input.InitialBalanceCents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		return q.CreateAccount(ctx, &account)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", account.ID.String()).Str("account_type", string(account.Type)).Msg("account created")
	return &account, nil
}

// ListAccounts returns every account ordered by name.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		accounts, err = q.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// GetAccount re-reads the account from the store on every call.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account *domain.Account
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		account, err = q.FindAccountByID(ctx, accountID)
		return err
	})
	return account, err
}

// SystemInfo describes the running service for client bootstrap.
func (s *Service) SystemInfo() domain.SystemInfo {
	return domain.SystemInfo{
		StoreDriver:     s.repo.Driver(),
		DisplayCurrency: s.currency,
		ServerTime:      s.clock().Format(time.RFC3339),
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
