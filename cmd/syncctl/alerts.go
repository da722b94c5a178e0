package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List provider alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, closer, err := newSyncService(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		alerts, err := service.ListAlerts(cmd.Context())
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}

		formatAlerts(os.Stdout, alerts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func formatAlerts(out io.Writer, alerts []models.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tACTIVE")
	for _, alert := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\n", alert.ID, alert.Name, alert.IsActive)
	}
	_ = w.Flush()
}
