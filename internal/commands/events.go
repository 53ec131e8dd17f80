package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/spf13/cobra"
)

const defaultWatchQueue = "ledgerctl.watch"

func newEventsCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect ledger events published to RabbitMQ",
	}
	cmd.AddCommand(newEventsWatchCommand(env))
	return cmd
}

func newEventsWatchCommand(env *environment) *cobra.Command {
	var (
		queue string
		keys  []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print ledger events as they are published",
		Long: `Binds a queue to the ledger event exchange and prints one line per event
until interrupted. Binding keys use topic syntax, for example
ledger.transaction.* or #.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := out(cmd)
			return env.watchEvents(cmd.Context(), env.cfg, env.logger, queue, keys, func(routingKey string, body []byte) bool {
				fmt.Fprintln(w, formatEvent(routingKey, body))
				return true
			})
		},
	}
	cmd.Flags().StringVar(&queue, "queue", defaultWatchQueue, "queue to bind to the event exchange")
	cmd.Flags().StringSliceVar(&keys, "key", []string{"#"}, "binding key; repeat for several")
	return cmd
}

// formatEvent renders an event as a single line. Bodies that are not ledger events
// are printed raw so nothing is silently dropped.
func formatEvent(routingKey string, body []byte) string {
	var event domain.LedgerEvent
	if err := json.Unmarshal(body, &event); err != nil || event.EventType == "" {
		return fmt.Sprintf("%s\t%s", routingKey, strings.TrimSpace(string(body)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\tamount_cents=%d", event.OccurredAt.UTC().Format(time.RFC3339), event.EventType, event.AmountCents)
	if event.DeltaCents != 0 {
		fmt.Fprintf(&b, "\tdelta_cents=%d", event.DeltaCents)
	}
	if event.TransactionID != nil {
		fmt.Fprintf(&b, "\ttransaction=%s", event.TransactionID)
	}
	if event.ScheduleID != nil {
		fmt.Fprintf(&b, "\tschedule=%s", event.ScheduleID)
	}
	if event.PeriodYm != "" {
		fmt.Fprintf(&b, "\tperiod=%s", event.PeriodYm)
	}
	writeAccounts(&b, event)
	return b.String()
}

func writeAccounts(w io.Writer, event domain.LedgerEvent) {
	if len(event.AccountIDs) == 0 {
		return
	}
	ids := make([]string, len(event.AccountIDs))
	for i, id := range event.AccountIDs {
		ids[i] = id.String()
	}
	fmt.Fprintf(w, "\taccounts=%s", strings.Join(ids, ","))
}
