package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/courier/internal/core/config"
	"github.com/vietddude/courier/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show probe status of a running agent",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d/health/detailed", cfg.Server.Port)
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to reach agent", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var summary health.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		slog.Error("Failed to decode health summary", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Overall: %s (checked %s)\n\n", summary.Overall, summary.Timestamp.Format(time.RFC3339))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROBE\tSTATUS\tDURATION\tMESSAGE")

	for _, r := range summary.Checks {
		msg := r.Message
		if r.Error != "" {
			msg = r.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Status, r.Duration, msg)
	}
	_ = w.Flush()
}
