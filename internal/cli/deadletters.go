package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/courier/internal/core/config"
	"github.com/vietddude/courier/internal/resilience/deadletter"
)

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Inspect the dead-letter queue",
	Run:   runDeadLettersList,
}

var deadLettersPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove all entries from the dead-letter queue",
	Run:   runDeadLettersPurge,
}

func init() {
	deadLettersCmd.AddCommand(deadLettersPurgeCmd)
	rootCmd.AddCommand(deadLettersCmd)
}

// openStore connects to the configured backend directly. Only the
// external backends are reachable from a separate process; the
// in-memory store lives inside the running agent.
func openStore(cfg *config.AppConfig) (deadletter.Store, error) {
	switch cfg.DeadLetter.Backend {
	case "redis":
		return deadletter.NewRedisStore(cfg.DeadLetter.Redis)
	case "postgres":
		return deadletter.NewPostgresStore(context.Background(), cfg.DeadLetter.Postgres)
	default:
		return nil, fmt.Errorf("backend %q is not inspectable from the CLI", cfg.DeadLetter.Backend)
	}
}

func runDeadLettersList(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open dead-letter store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	entries, err := store.List(context.Background())
	if err != nil {
		slog.Error("Failed to list dead letters", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tOPERATION\tTRANSPORT\tATTEMPTS\tENQUEUED\tERROR")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Operation, e.Transport, len(e.Attempts),
			e.EnqueuedAt.Format(time.RFC3339), e.FinalError)
	}
	_ = w.Flush()
}

func runDeadLettersPurge(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open dead-letter store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	entries, err := store.Drain(context.Background())
	if err != nil {
		slog.Error("Failed to purge dead letters", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Purged %d dead letters\n", len(entries))
}
