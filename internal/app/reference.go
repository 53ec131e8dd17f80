package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store"
)

func requireName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return name, nil
}

func (s *Service) CreateCategory(ctx context.Context, input domain.CreateCategoryInput) (*domain.Category, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	category := domain.Category{ID: uuid.New(), Name: name, ParentID: input.ParentID, IsActive: true}
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		return q.CreateCategory(ctx, &category)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		categories, err = q.ListCategories(ctx)
		return err
	})
	return categories, err
}

func (s *Service) CreateTag(ctx context.Context, input domain.CreateTagInput) (*domain.Tag, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	tag := domain.Tag{ID: uuid.New(), Name: name}
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		return q.CreateTag(ctx, &tag)
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *Service) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		tags, err = q.ListTags(ctx)
		return err
	})
	return tags, err
}

func (s *Service) CreatePayee(ctx context.Context, input domain.CreatePayeeInput) (*domain.Payee, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	payee := domain.Payee{ID: uuid.New(), Name: name, DefaultCategoryID: input.DefaultCategoryID}
	err = s.repo.InTx(ctx, func(q store.Queries) error {
		return q.CreatePayee(ctx, &payee)
	})
	if err != nil {
		return nil, err
	}
	return &payee, nil
}

func (s *Service) ListPayees(ctx context.Context) ([]domain.Payee, error) {
	var payees []domain.Payee
	err := s.repo.InTx(ctx, func(q store.Queries) error {
		var err error
		payees, err = q.ListPayees(ctx)
		return err
	})
	return payees, err
}
