package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run analytics queries",
	Long: "Analytics over a tenant's data. All subcommands share the --tenant,\n" +
		"--start, --end, --branch, and --category flags; dates are local\n" +
		"calendar dates (YYYY-MM-DD) in the tenant's timezone, and the window\n" +
		"defaults to the last 90 days. Output is JSON.",
}

// queryFilter assembles the shared filter from the persistent flags.
func queryFilter(cmd *cobra.Command) query.Filter {
	tenant, _ := cmd.Flags().GetString("tenant")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	branches, _ := cmd.Flags().GetStringSlice("branch")
	categories, _ := cmd.Flags().GetStringSlice("category")
	return query.Filter{
		TenantID:   tenant,
		StartDate:  start,
		EndDate:    end,
		Branches:   branches,
		Categories: categories,
	}
}

// withQueries opens the store, builds the query layer, and runs fn.
func withQueries(cmd *cobra.Command, fn func(q *query.Queries) (any, error)) error {
	ctx := cmd.Context()

	st, err := openMigrated(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	q := query.New(st, time.Duration(cfg.Query.TimeoutSecs)*time.Second)
	result, err := fn(q)
	if err != nil {
		return err
	}
	return printJSON(result)
}

var queryOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Revenue, receipts, and growth vs the previous window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Overview(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryDaypartingCmd = &cobra.Command{
	Use:   "dayparting",
	Short: "Revenue by daypart (breakfast, lunch, dinner, late night)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Dayparting(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryHeatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Day-of-week by hour revenue and transaction grid",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Heatmap(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryDayOfWeekCmd = &cobra.Command{
	Use:   "day-of-week",
	Short: "Average revenue and receipts per weekday",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.DayOfWeek(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Revenue and menu depth per category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Categories(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryPerformanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Top items by revenue or quantity within the window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Performance(cmd.Context(), queryFilter(cmd), query.PerformanceSort(sortBy), limit)
		})
	},
}

var queryTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Revenue trend at daily, weekly, or monthly grain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		granularity, _ := cmd.Flags().GetString("granularity")
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Trends(cmd.Context(), queryFilter(cmd), model.PeriodType(granularity))
		})
	},
}

var queryYoYCmd = &cobra.Command{
	Use:   "year-over-year",
	Short: "One month's revenue across the last three years",
	RunE: func(cmd *cobra.Command, _ []string) error {
		month, _ := cmd.Flags().GetInt("month")
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.YearOverYear(cmd.Context(), queryFilter(cmd), month)
		})
	},
}

var queryBranchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "Per-branch revenue, receipts, and share",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Branches(cmd.Context(), queryFilter(cmd))
		})
	},
}

var queryBundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "Items frequently bought together",
	RunE: func(cmd *cobra.Command, _ []string) error {
		minFreq, _ := cmd.Flags().GetInt64("min-frequency")
		limit, _ := cmd.Flags().GetInt("limit")
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.Bundles(cmd.Context(), queryFilter(cmd), query.BundleOptions{
				MinFrequency: minFreq,
				Limit:        limit,
			})
		})
	},
}

var queryMenuCmd = &cobra.Command{
	Use:   "menu-engineering",
	Short: "Quadrant matrix over the lifetime menu item rollups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		macro, _ := cmd.Flags().GetString("macro")
		core, _ := cmd.Flags().GetBool("core")
		current, _ := cmd.Flags().GetBool("current")
		minPrice, _ := cmd.Flags().GetInt64("min-price")
		maxPrice, _ := cmd.Flags().GetInt64("max-price")
		minQty, _ := cmd.Flags().GetInt64("min-quantity")

		f := queryFilter(cmd)
		mf := query.MenuFilter{
			Categories:    f.Categories,
			MacroCategory: macro,
			CoreOnly:      core,
			CurrentOnly:   current,
			MinPrice:      minPrice,
			MaxPrice:      maxPrice,
			MinQuantity:   minQty,
		}
		return withQueries(cmd, func(q *query.Queries) (any, error) {
			return q.MenuEngineering(cmd.Context(), f, mf)
		})
	},
}

func init() {
	queryCmd.PersistentFlags().String("tenant", "", "tenant id (required)")
	queryCmd.PersistentFlags().String("start", "", "start date, YYYY-MM-DD, inclusive")
	queryCmd.PersistentFlags().String("end", "", "end date, YYYY-MM-DD, inclusive")
	queryCmd.PersistentFlags().StringSlice("branch", nil, "limit to branches (repeatable)")
	queryCmd.PersistentFlags().StringSlice("category", nil, "limit to categories (repeatable)")
	_ = queryCmd.MarkPersistentFlagRequired("tenant")

	queryPerformanceCmd.Flags().String("sort", "revenue", "sort dimension: revenue or quantity")
	queryPerformanceCmd.Flags().Int("limit", 20, "max items to return")
	queryTrendsCmd.Flags().String("granularity", string(model.PeriodDaily), "daily, weekly, or monthly")
	queryYoYCmd.Flags().Int("month", int(time.Now().Month()), "calendar month 1-12")
	queryBundlesCmd.Flags().Int64("min-frequency", 0, "minimum co-occurrence count")
	queryBundlesCmd.Flags().Int("limit", 20, "max pairs to return")
	queryMenuCmd.Flags().String("macro", "", "limit to one macro category")
	queryMenuCmd.Flags().Bool("core", false, "core menu items only (6+ months on sale)")
	queryMenuCmd.Flags().Bool("current", false, "currently selling items only (sold in last 30 days)")
	queryMenuCmd.Flags().Int64("min-price", 0, "minimum average price, minor units")
	queryMenuCmd.Flags().Int64("max-price", 0, "maximum average price, minor units")
	queryMenuCmd.Flags().Int64("min-quantity", 0, "minimum lifetime quantity")

	queryCmd.AddCommand(queryOverviewCmd)
	queryCmd.AddCommand(queryDaypartingCmd)
	queryCmd.AddCommand(queryHeatmapCmd)
	queryCmd.AddCommand(queryDayOfWeekCmd)
	queryCmd.AddCommand(queryCategoriesCmd)
	queryCmd.AddCommand(queryPerformanceCmd)
	queryCmd.AddCommand(queryTrendsCmd)
	queryCmd.AddCommand(queryYoYCmd)
	queryCmd.AddCommand(queryBranchesCmd)
	queryCmd.AddCommand(queryBundlesCmd)
	queryCmd.AddCommand(queryMenuCmd)
	rootCmd.AddCommand(queryCmd)
}
