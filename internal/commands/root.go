package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/oikonomos/ledger-service/internal/config"
	"github.com/oikonomos/ledger-service/internal/logger"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/oikonomos/ledger-service/pkg/rabbitmq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// environment carries what every subcommand needs once configuration is loaded.
// Tests replace the store and broker hooks.
type environment struct {
	cfg    config.Config
	logger zerolog.Logger
	loaded bool

	openRepository func(ctx context.Context, cfg config.Config) (store.Repository, func() error, error)
	migrate        func(ctx context.Context, cfg config.Config) error
	openPublisher  func(cfg config.Config, logger zerolog.Logger) (rabbitmq.Publisher, error)
	watchEvents    func(ctx context.Context, cfg config.Config, logger zerolog.Logger, queue string, keys []string, handler rabbitmq.Handler) error
}

func defaultEnvironment() *environment {
	return &environment{
		openRepository: openPostgresRepository,
		migrate:        migratePostgres,
		openPublisher:  openEventPublisher,
		watchEvents:    consumeEvents,
	}
}

// NewRootCommand creates the ledgerctl command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultEnvironment())
}

func newRootCommand(env *environment) *cobra.Command {
	var envDir string

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administer the ledger service: schema, depreciation, users and events",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if env.loaded {
				return nil
			}
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			cfg, err := config.LoadConfig(envDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			env.cfg = cfg
			env.logger = logger.New(cfg.LogLevel, cfg.LogPretty)
			env.loaded = true
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envDir, "config-dir", ".", "directory holding an optional .env file")

	rootCmd.AddCommand(newMigrateCommand(env))
	rootCmd.AddCommand(newDepreciateCommand(env))
	rootCmd.AddCommand(newUserCommand(env))
	rootCmd.AddCommand(newEventsCommand(env))

	return rootCmd
}

func openPostgresRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, nil, fmt.Errorf("ledgerctl needs STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	pool, err := store.OpenPostgresPool(ctx, cfg.DatabaseURL, store.DefaultPoolConfig())
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresRepository(pool), func() error { pool.Close(); return nil }, nil
}

func migratePostgres(ctx context.Context, cfg config.Config) error {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("ledgerctl needs STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	pool, err := store.OpenPostgresPool(ctx, cfg.DatabaseURL, store.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer pool.Close()
	return store.EnsureSchema(ctx, pool)
}

// openEventPublisher returns nil when no broker is configured.
func openEventPublisher(cfg config.Config, logger zerolog.Logger) (rabbitmq.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil
	}
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
	if err != nil {
		return nil, err
	}
	return producer, nil
}

func consumeEvents(ctx context.Context, cfg config.Config, logger zerolog.Logger, queue string, keys []string, handler rabbitmq.Handler) (err error) {
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", rabbitmq.RedactURL(cfg.RabbitMQURL), err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(consumer))
	return consumer.Consume(ctx, cfg.EventExchange, queue, keys, handler)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
