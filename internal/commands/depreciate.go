package commands

import (
	"fmt"
	"time"

	"github.com/oikonomos/ledger-service/internal/app"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newDepreciateCommand(env *environment) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "depreciate",
		Short: "Post the depreciation due for one month",
		Long: `Posts every active schedule's installment for the given month. Months that
already have a posting are skipped, so running it twice is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if period == "" {
				period = domain.PeriodOf(time.Now()).String()
			}
			if _, perr := domain.ParsePeriod(period); perr != nil {
				return perr
			}

			repo, closeRepo, err := env.openRepository(cmd.Context(), env.cfg)
			if err != nil {
				return err
			}
			defer multierr.AppendInvoke(&err, multierr.Invoke(closeRepo))

			publisher, err := env.openPublisher(env.cfg, env.logger)
			if err != nil {
				env.logger.Warn().Err(err).Msg("rabbitmq producer unavailable; events will only be logged")
				publisher = nil
			}
			if publisher != nil {
				defer multierr.AppendInvoke(&err, multierr.Close(publisher))
			}

			ledger := app.NewService(repo, publisher, env.logger, app.ServiceConfig{
				EventExchange:   env.cfg.EventExchange,
				DisplayCurrency: env.cfg.DisplayCurrency,
			})
			postings, err := ledger.EnsureDepreciationForPeriod(cmd.Context(), period)
			if err != nil {
				return fmt.Errorf("depreciate %s: %w", period, err)
			}

			w := out(cmd)
			for _, p := range postings {
				fmt.Fprintf(w, "%s\tschedule=%s\tamount_cents=%d\ttransaction=%s\n", p.PeriodYm, p.ScheduleID, p.AmountCents, p.TransactionID)
			}
			fmt.Fprintf(w, "posted %d depreciation entries for %s\n", len(postings), period)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "month to post as YYYY-MM (defaults to the current month)")
	return cmd
}
