package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/refresh"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild derived tables from the transaction facts",
	Long: "Rebuilds a tenant's menu item rollups, hourly and branch summaries,\n" +
		"and item pairs. With --all, refreshes every active tenant with bounded\n" +
		"concurrency; one tenant's failure does not stop the others.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		all, _ := cmd.Flags().GetBool("all")
		tenantID, _ := cmd.Flags().GetString("tenant")
		if all == (tenantID != "") {
			return eris.New("pass exactly one of --tenant or --all")
		}

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orch := refresh.NewOrchestrator(st)
		if all {
			outcomes, err := orch.RefreshAll(ctx, cfg.Refresh.Concurrency)
			if err != nil {
				return err
			}
			failures := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failures++
					fmt.Fprintf(os.Stderr, "%s: %v\n", o.TenantID, o.Err)
				}
			}
			fmt.Printf("Refreshed %d tenants, %d failed.\n", len(outcomes)-failures, failures)
			if failures > 0 {
				return eris.Errorf("%d tenant refreshes failed", failures)
			}
			return nil
		}

		result, err := orch.RefreshTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var refreshStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent refresh runs for a tenant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tenantID, _ := cmd.Flags().GetString("tenant")
		if tenantID == "" {
			return eris.New("--tenant is required")
		}
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRefreshRuns(ctx, tenantID, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No refresh runs found.")
			return nil
		}
		formatRefreshRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	refreshCmd.Flags().String("tenant", "", "tenant id to refresh")
	refreshCmd.Flags().Bool("all", false, "refresh every active tenant")
	refreshStatusCmd.Flags().String("tenant", "", "tenant id (required)")
	refreshStatusCmd.Flags().Int("limit", 20, "max number of runs to display")

	refreshCmd.AddCommand(refreshStatusCmd)
	rootCmd.AddCommand(refreshCmd)
}

func formatRefreshRuns(out io.Writer, runs []model.RefreshRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tFAILED_TABLE\tERROR")
	for _, r := range runs {
		failedTable := ""
		if r.Result != nil {
			failedTable = r.Result.FailedTable
		}
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			failedTable,
			errMsg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
