/**
 * @description
 * This file contains the core business logic for the ledger service. The `Service`
 * struct orchestrates every ledger operation: accounts, transactions, asset
 * purchases with their amortization schedules, reconciliation and reporting.
 *
 * Key features:
 * - Every state change runs inside one unit of work opened with `store.Repository.InTx`.
 * - Balances only move through `applyDelta`, which guards the liability sign rule.
 * - Events are published to RabbitMQ after the unit commits, best-effort.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/rs/zerolog: Structured logging.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"strings"
	"time"

	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/oikonomos/ledger-service/pkg/rabbitmq"
	"github.com/rs/zerolog"
)

const (
	DefaultEventExchange   = "ledger.events"
	DefaultDisplayCurrency = "USD"

	uncategorizedLabel = "Uncategorized"
	depreciationLabel  = "Depreciation"
	defaultAdjustNote  = "Auto adjustment from reconciliation"
)

// ServiceConfig carries the settings the ledger service needs at startup.
type ServiceConfig struct {
	EventExchange   string
	DisplayCurrency string
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// Service provides the core business logic for the ledger.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	logger        zerolog.Logger
	exchange      string
	currency      string
	now           func() time.Time
}

// NewService creates a new ledger service instance. A nil producer disables events.
func NewService(repo store.Repository, producer rabbitmq.Publisher, logger zerolog.Logger, cfg ServiceConfig) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	exchange := strings.TrimSpace(cfg.EventExchange)
	if exchange == "" {
		exchange = DefaultEventExchange
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.DisplayCurrency))
	if currency == "" {
		currency = DefaultDisplayCurrency
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:          repo,
		eventProducer: producer,
		logger:        logger.With().Str("component", "ledger").Logger(),
		exchange:      exchange,
		currency:      currency,
		now:           now,
	}
}

// clock returns the current instant in UTC at second precision.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}
