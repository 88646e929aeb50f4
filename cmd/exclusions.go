package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
)

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions",
	Short: "Manage the named-item exclusion registry",
	Long: "Items in the registry are dropped from every rollup and query for\n" +
		"the tenant, regardless of how the rows were flagged at import time.\n" +
		"Changes take effect in pre-aggregated views after the next refresh.",
}

var exclusionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List excluded items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		tenantID, err := requiredTenant(cmd)
		if err != nil {
			return err
		}

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListExclusions(ctx, tenantID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No exclusions found.")
			return nil
		}
		formatExclusions(os.Stdout, entries)
		return nil
	},
}

var exclusionsAddCmd = &cobra.Command{
	Use:   "add <item-name>...",
	Short: "Exclude one or more items by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tenantID, err := requiredTenant(cmd)
		if err != nil {
			return err
		}

		reason, _ := cmd.Flags().GetString("reason")
		if !model.ValidReason(reason) {
			return eris.Errorf("invalid reason %q (modifier, non_analytical, low_volume, manual)", reason)
		}
		by, _ := cmd.Flags().GetString("by")

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.AddExclusions(ctx, tenantID, args, reason, by)
		if err != nil {
			return err
		}
		fmt.Printf("Excluded %d items. Run a refresh to update derived tables.\n", n)
		return nil
	},
}

var exclusionsRemoveCmd = &cobra.Command{
	Use:   "remove <item-name>",
	Short: "Remove an item from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tenantID, err := requiredTenant(cmd)
		if err != nil {
			return err
		}

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.RemoveExclusion(ctx, tenantID, args[0]); err != nil {
			return err
		}
		fmt.Println("Removed. Run a refresh to update derived tables.")
		return nil
	},
}

var exclusionsSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest exclusion candidates from the current rollups",
	Long: "Scans the menu item rollups for modifier-prefixed names, items with\n" +
		"a negligible revenue share, and items that have barely sold. Apply\n" +
		"suggestions with 'exclusions add'.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		tenantID, err := requiredTenant(cmd)
		if err != nil {
			return err
		}

		st, err := openMigrated(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rollups, err := st.ListMenuItemRollups(ctx, tenantID, store.RollupFilter{})
		if err != nil {
			return err
		}
		if len(rollups) == 0 {
			return eris.New("no rollups found; run a refresh first")
		}
		resolver, err := exclusion.Load(ctx, st, tenantID)
		if err != nil {
			return err
		}

		suggestions := exclusion.Suggest(rollups, resolver)
		if len(suggestions) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to suggest.")
			return nil
		}
		return printJSON(suggestions)
	},
}

func init() {
	exclusionsCmd.PersistentFlags().String("tenant", "", "tenant id (required)")
	exclusionsAddCmd.Flags().String("reason", model.ReasonManual, "reason: modifier, non_analytical, low_volume, or manual")
	exclusionsAddCmd.Flags().String("by", "", "who is excluding (for the audit trail)")

	exclusionsCmd.AddCommand(exclusionsListCmd)
	exclusionsCmd.AddCommand(exclusionsAddCmd)
	exclusionsCmd.AddCommand(exclusionsRemoveCmd)
	exclusionsCmd.AddCommand(exclusionsSuggestCmd)
	rootCmd.AddCommand(exclusionsCmd)
}

// requiredTenant reads the shared --tenant flag.
func requiredTenant(cmd *cobra.Command) (string, error) {
	tenantID, _ := cmd.Flags().GetString("tenant")
	if tenantID == "" {
		return "", eris.New("--tenant is required")
	}
	return tenantID, nil
}

func formatExclusions(out io.Writer, entries []model.ExclusionEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ITEM\tREASON\tBY\tCREATED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.ItemName, e.Reason, e.ExcludedBy, e.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
}
