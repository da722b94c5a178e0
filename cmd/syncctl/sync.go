package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/brandlens/mentions-sync/internal/monitoring"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync one binding",
	Long: `Sync one binding through the provider's pagination.

Use --cursor to resume from a cursor printed by an earlier run.
Use --hard-fail to exit non-zero when a page cannot be fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindingID, _ := cmd.Flags().GetString("binding")
		cursor, _ := cmd.Flags().GetString("cursor")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		hardFail, _ := cmd.Flags().GetBool("hard-fail")
		sinceFlag, _ := cmd.Flags().GetString("since")

		since, err := parseSince(sinceFlag)
		if err != nil {
			return err
		}

		service, closer, err := newSyncService(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		result, err := service.SyncBindingByID(cmd.Context(), bindingID, monitoring.SyncBindingInput{
			Cursor:   cursor,
			Since:    since,
			MaxPages: maxPages,
			HardFail: hardFail,
		})
		formatResult(os.Stdout, bindingID, result)
		if err != nil {
			return fmt.Errorf("sync %s: %w", bindingID, err)
		}
		return nil
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync every active binding sequentially",
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, _ := cmd.Flags().GetBool("resume")

		service, closer, err := newSyncService(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		report, err := service.SyncAllBindings(cmd.Context(), monitoring.SyncAllInput{Resume: resume})
		if err != nil {
			return fmt.Errorf("sync all: %w", err)
		}

		formatReport(os.Stdout, report)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("binding", "", "binding id (required)")
	syncCmd.Flags().String("cursor", "", "resume from this provider cursor")
	syncCmd.Flags().Int("max-pages", 0, "page ceiling (default from SYNC_MAX_PAGES)")
	syncCmd.Flags().String("since", "", "window start, RFC3339 or a duration like 72h")
	syncCmd.Flags().Bool("hard-fail", false, "fail when a page cannot be fetched")
	_ = syncCmd.MarkFlagRequired("binding")
	rootCmd.AddCommand(syncCmd)

	syncAllCmd.Flags().Bool("resume", false, "start each binding from its stored cursor")
	rootCmd.AddCommand(syncAllCmd)
}

// parseSince accepts an RFC3339 timestamp or a look-back duration
func parseSince(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if lookback, err := time.ParseDuration(value); err == nil {
		return time.Now().UTC().Add(-lookback), nil
	}
	since, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use RFC3339 or a duration", value)
	}
	return since, nil
}

func formatResult(out io.Writer, bindingID string, result monitoring.SyncBindingResult) {
	_, _ = fmt.Fprintf(out, "binding %s: pages=%d completed=%t next_cursor=%q\n",
		bindingID, result.PagesProcessed, result.Completed, result.NextCursor)
	formatMetrics(out, result.Metrics)
}

func formatReport(out io.Writer, report *models.SyncReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BINDING\tALERT\tPAGES\tCOMPLETED\tPERSISTED\tERRORS\tERROR")
	for _, b := range report.Bindings {
		errText := "-"
		if b.Error != "" {
			errText = b.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%d\t%d\t%s\n",
			b.BindingID, b.AlertID, b.PagesProcessed, b.Completed, b.Metrics.Persisted, b.Metrics.Errors, errText)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\ntotal (%s):\n", report.Duration)
	formatMetrics(out, report.Metrics)
}

func formatMetrics(out io.Writer, m models.SyncMetrics) {
	_, _ = fmt.Fprintf(out,
		"  fetched=%d linked=%d persisted=%d deduped=%d feed_persisted=%d feed_deduped=%d\n"+
			"  skipped_no_url=%d skipped_unlinked=%d flagged_spam=%d flagged_related=%d errors=%d\n",
		m.Fetched, m.Linked, m.Persisted, m.Deduped, m.FeedPersisted, m.FeedDeduped,
		m.SkippedNoURL, m.SkippedUnlinked, m.FlaggedSpam, m.FlaggedRelated, m.Errors)
}
