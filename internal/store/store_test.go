package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedTenant(t *testing.T, s Store, name string) *model.Tenant {
	t.Helper()
	tenant, err := s.CreateTenant(context.Background(), model.Tenant{
		Name:     name,
		Timezone: "Asia/Manila",
		IsActive: true,
	})
	require.NoError(t, err)
	return tenant
}

func lineItem(tenantID, receipt, item, category, branch string, ts time.Time, qty, unitPrice int64) model.Transaction {
	subtotal := qty * unitPrice
	return model.Transaction{
		TenantID:         tenantID,
		ReceiptNumber:    receipt,
		ReceiptTimestamp: ts,
		ItemName:         item,
		Category:         category,
		MacroCategory:    "FOOD",
		Quantity:         qty,
		UnitPrice:        unitPrice,
		Subtotal:         subtotal,
		GrossRevenue:     subtotal,
		Branch:           branch,
	}
}

func TestSQLiteStore_Tenants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := seedTenant(t, s, "Cafe Uno")
	assert.NotEmpty(t, created.ID)

	t.Run("get", func(t *testing.T) {
		got, err := s.GetTenant(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Cafe Uno", got.Name)
		assert.Equal(t, "Asia/Manila", got.Timezone)
		assert.True(t, got.IsActive)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := s.GetTenant(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list active only", func(t *testing.T) {
		_, err := s.CreateTenant(ctx, model.Tenant{Name: "Closed Branch", IsActive: false})
		require.NoError(t, err)

		all, err := s.ListTenants(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := s.ListTenants(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "Cafe Uno", active[0].Name)
	})
}

func TestSQLiteStore_Transactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		lineItem(tenant.ID, "R-1", "Coffee", "Drinks", "Main", base, 2, 350),
		lineItem(tenant.ID, "R-1", "Croissant", "Pastry", "Main", base, 1, 420),
		lineItem(tenant.ID, "R-2", "Coffee", "Drinks", "Mall", base.Add(48*time.Hour), 1, 350),
	}
	flagged := lineItem(tenant.ID, "R-3", "Open Item", "", "Main", base.Add(time.Hour), 1, 100)
	flagged.IsExcluded = true
	txs = append(txs, flagged)

	n, err := s.InsertTransactions(ctx, txs)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	t.Run("scan skips flagged rows by default", func(t *testing.T) {
		got, err := s.ScanTransactions(ctx, tenant.ID, TransactionFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, tx := range got {
			assert.False(t, tx.IsExcluded)
		}
	})

	t.Run("scan includes flagged rows on request", func(t *testing.T) {
		got, err := s.ScanTransactions(ctx, tenant.ID, TransactionFilter{IncludeFlagged: true})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("time range is start-inclusive end-exclusive", func(t *testing.T) {
		got, err := s.ScanTransactions(ctx, tenant.ID, TransactionFilter{
			Start: base,
			End:   base.Add(48 * time.Hour),
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("branch filter", func(t *testing.T) {
		got, err := s.ScanTransactions(ctx, tenant.ID, TransactionFilter{Branches: []string{"Mall"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "R-2", got[0].ReceiptNumber)
	})

	t.Run("timestamps round-trip as UTC", func(t *testing.T) {
		got, err := s.ScanTransactions(ctx, tenant.ID, TransactionFilter{Branches: []string{"Mall"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, base.Add(48*time.Hour), got[0].ReceiptTimestamp)
		assert.Equal(t, time.UTC, got[0].ReceiptTimestamp.Location())
	})

	t.Run("tenant isolation", func(t *testing.T) {
		other := seedTenant(t, s, "Cafe Dos")
		got, err := s.ScanTransactions(ctx, other.ID, TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteStore_Exclusions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	n, err := s.AddExclusions(ctx, tenant.ID, []string{"ADD Rice", "Service Charge"}, model.ReasonModifier, "ops")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	t.Run("re-adding is an upsert not a duplicate", func(t *testing.T) {
		_, err := s.AddExclusions(ctx, tenant.ID, []string{"ADD Rice"}, model.ReasonManual, "ops")
		require.NoError(t, err)

		entries, err := s.ListExclusions(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.RemoveExclusion(ctx, tenant.ID, "Service Charge"))

		entries, err := s.ListExclusions(ctx, tenant.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "ADD Rice", entries[0].ItemName)
	})

	t.Run("remove missing errors", func(t *testing.T) {
		assert.Error(t, s.RemoveExclusion(ctx, tenant.ID, "nope"))
	})
}

func TestSQLiteStore_ReplaceMenuItemRollups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	first := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rollup := func(name string, qty, revenue int64, quadrant model.Quadrant) model.MenuItemRollup {
		return model.MenuItemRollup{
			TenantID:      tenant.ID,
			ItemName:      name,
			Category:      "Drinks",
			MacroCategory: "BEVERAGE",
			TotalQuantity: qty,
			TotalRevenue:  revenue,
			AvgPrice:      revenue / qty,
			OrderCount:    qty,
			FirstSaleDate: first,
			LastSaleDate:  last,
			MonthsActive:  9,
			IsCoreMenu:    true,
			IsCurrentMenu: true,
			Quadrant:      quadrant,
		}
	}

	counts, err := s.ReplaceMenuItemRollups(ctx, tenant.ID, []model.MenuItemRollup{
		rollup("Coffee", 100, 35000, model.QuadrantStar),
		rollup("Tea", 40, 10000, model.QuadrantDog),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TableCounts{Deleted: 0, Inserted: 2}, counts)

	t.Run("second refresh replaces the generation", func(t *testing.T) {
		counts, err := s.ReplaceMenuItemRollups(ctx, tenant.ID, []model.MenuItemRollup{
			rollup("Coffee", 120, 42000, model.QuadrantStar),
		})
		require.NoError(t, err)
		assert.Equal(t, model.TableCounts{Deleted: 2, Inserted: 1}, counts)

		got, err := s.ListMenuItemRollups(ctx, tenant.ID, RollupFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(120), got[0].TotalQuantity)
		assert.Equal(t, first, got[0].FirstSaleDate)
		assert.Equal(t, model.QuadrantStar, got[0].Quadrant)
	})

	t.Run("filters", func(t *testing.T) {
		excluded := rollup("ADD Rice", 500, 5000, model.QuadrantUnset)
		excluded.IsExcluded = true
		excluded.IsCoreMenu = false
		_, err := s.ReplaceMenuItemRollups(ctx, tenant.ID, []model.MenuItemRollup{
			rollup("Coffee", 120, 42000, model.QuadrantStar),
			excluded,
		})
		require.NoError(t, err)

		visible, err := s.ListMenuItemRollups(ctx, tenant.ID, RollupFilter{})
		require.NoError(t, err)
		assert.Len(t, visible, 1)

		all, err := s.ListMenuItemRollups(ctx, tenant.ID, RollupFilter{IncludeExcluded: true})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		priced, err := s.ListMenuItemRollups(ctx, tenant.ID, RollupFilter{MinPrice: 300, IncludeExcluded: true})
		require.NoError(t, err)
		require.Len(t, priced, 1)
		assert.Equal(t, "Coffee", priced[0].ItemName)
	})
}

func TestSQLiteStore_ReplaceItemPairs_Atomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	good := model.ItemPairRow{
		TenantID: tenant.ID, ItemA: "Coffee", ItemB: "Croissant",
		Frequency: 12, Support: 0.3, WindowStart: start, WindowEnd: end,
	}
	_, err := s.ReplaceItemPairs(ctx, tenant.ID, []model.ItemPairRow{good})
	require.NoError(t, err)

	// Second row violates the item_a < item_b check mid-insert; the delete
	// must roll back with it, leaving the previous generation intact.
	bad := model.ItemPairRow{
		TenantID: tenant.ID, ItemA: "Tea", ItemB: "Muffin",
		Frequency: 5, Support: 0.1, WindowStart: start, WindowEnd: end,
	}
	_, err = s.ReplaceItemPairs(ctx, tenant.ID, []model.ItemPairRow{
		{TenantID: tenant.ID, ItemA: "Bagel", ItemB: "Juice", Frequency: 8, Support: 0.2, WindowStart: start, WindowEnd: end},
		bad,
	})
	require.Error(t, err)

	got, err := s.ListItemPairs(ctx, tenant.ID, 0, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].ItemA)
	assert.Equal(t, int64(12), got[0].Frequency)
}

func TestSQLiteStore_ItemPairs_ListOrderAndLimits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	pairs := []model.ItemPairRow{
		{TenantID: tenant.ID, ItemA: "Coffee", ItemB: "Croissant", Frequency: 12, Support: 0.3, WindowStart: start, WindowEnd: end},
		{TenantID: tenant.ID, ItemA: "Bagel", ItemB: "Juice", Frequency: 8, Support: 0.2, WindowStart: start, WindowEnd: end},
		{TenantID: tenant.ID, ItemA: "Muffin", ItemB: "Tea", Frequency: 2, Support: 0.05, WindowStart: start, WindowEnd: end},
	}
	_, err := s.ReplaceItemPairs(ctx, tenant.ID, pairs)
	require.NoError(t, err)

	got, err := s.ListItemPairs(ctx, tenant.ID, 3, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Coffee", got[0].ItemA)
	assert.Equal(t, "Bagel", got[1].ItemA)

	capped, err := s.ListItemPairs(ctx, tenant.ID, 0, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestSQLiteStore_BranchSummaries_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	row := model.BranchSummaryRow{
		TenantID:         tenant.ID,
		PeriodType:       model.PeriodDaily,
		PeriodStart:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Branch:           "Main",
		Revenue:          125000,
		TransactionCount: 48,
		ReceiptCount:     20,
		AvgTicket:        6250,
		TopItems: []model.TopItem{
			{ItemName: "Coffee", Quantity: 30, Revenue: 10500},
			{ItemName: "Croissant", Quantity: 12, Revenue: 5040},
		},
		CategoryBreakdown: map[string]model.CategoryTotals{
			"Drinks": {Revenue: 10500, Quantity: 30},
			"Pastry": {Revenue: 5040, Quantity: 12},
		},
	}
	counts, err := s.ReplaceBranchSummaries(ctx, tenant.ID, []model.BranchSummaryRow{row})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Inserted)

	got, err := s.ListBranchSummaries(ctx, tenant.ID, model.PeriodDaily, SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row.TopItems, got[0].TopItems)
	assert.Equal(t, row.CategoryBreakdown, got[0].CategoryBreakdown)
	assert.Equal(t, row.PeriodStart, got[0].PeriodStart)

	weekly, err := s.ListBranchSummaries(ctx, tenant.ID, model.PeriodWeekly, SummaryFilter{})
	require.NoError(t, err)
	assert.Empty(t, weekly)
}

func TestSQLiteStore_HourlySummaries_DateRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	rows := []model.HourlySummaryRow{
		{TenantID: tenant.ID, SummaryDate: day(10), Hour: 8, DayOfWeek: 6, Branch: "Main", Category: "Drinks", MacroCategory: "BEVERAGE", Revenue: 7000, Quantity: 20, TransactionCount: 15},
		{TenantID: tenant.ID, SummaryDate: day(11), Hour: 12, DayOfWeek: 0, Branch: "Main", Category: "Drinks", MacroCategory: "BEVERAGE", Revenue: 9000, Quantity: 25, TransactionCount: 18},
		{TenantID: tenant.ID, SummaryDate: day(12), Hour: 19, DayOfWeek: 1, Branch: "Mall", Category: "Pastry", MacroCategory: "FOOD", Revenue: 4000, Quantity: 10, TransactionCount: 8},
	}
	_, err := s.ReplaceHourlySummaries(ctx, tenant.ID, rows)
	require.NoError(t, err)

	got, err := s.ListHourlySummaries(ctx, tenant.ID, SummaryFilter{Start: day(11), End: day(12)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	branch, err := s.ListHourlySummaries(ctx, tenant.ID, SummaryFilter{Branches: []string{"Mall"}})
	require.NoError(t, err)
	require.Len(t, branch, 1)
	assert.Equal(t, 19, branch[0].Hour)
}

func TestSQLiteStore_HasDerived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	has, err := s.HasDerived(ctx, tenant.ID, model.TableRollups)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.ReplaceMenuItemRollups(ctx, tenant.ID, []model.MenuItemRollup{{
		TenantID: tenant.ID, ItemName: "Coffee", TotalQuantity: 1, TotalRevenue: 350, AvgPrice: 350,
		OrderCount: 1, FirstSaleDate: time.Now(), LastSaleDate: time.Now(), MonthsActive: 1,
	}})
	require.NoError(t, err)

	has, err = s.HasDerived(ctx, tenant.ID, model.TableRollups)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.HasDerived(ctx, tenant.ID, "tenants")
	assert.Error(t, err)
}

func TestSQLiteStore_RefreshRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := seedTenant(t, s, "Cafe Uno")

	run, err := s.CreateRefreshRun(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefreshPending, run.Status)

	require.NoError(t, s.UpdateRefreshRunStatus(ctx, run.ID, model.RefreshRunning))

	result := &model.RefreshResult{
		TenantID: tenant.ID,
		Tables: map[string]model.TableCounts{
			model.TableRollups: {Deleted: 2, Inserted: 3},
		},
		DurationMs: 42,
	}
	require.NoError(t, s.CompleteRefreshRun(ctx, run.ID, model.RefreshSucceeded, result, ""))

	runs, err := s.ListRefreshRuns(ctx, tenant.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RefreshSucceeded, runs[0].Status)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, int64(42), runs[0].DurationMs)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, result.Tables, runs[0].Result.Tables)

	t.Run("failed run records the error", func(t *testing.T) {
		failed, err := s.CreateRefreshRun(ctx, tenant.ID)
		require.NoError(t, err)
		require.NoError(t, s.CompleteRefreshRun(ctx, failed.ID, model.RefreshFailed, nil, "insert hourly_summaries: disk full"))

		runs, err := s.ListRefreshRuns(ctx, tenant.ID, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		var got *model.RefreshRun
		for i := range runs {
			if runs[i].ID == failed.ID {
				got = &runs[i]
			}
		}
		require.NotNil(t, got)
		assert.Equal(t, model.RefreshFailed, got.Status)
		assert.Contains(t, got.Error, "disk full")
	})

	t.Run("unknown run id errors", func(t *testing.T) {
		assert.Error(t, s.UpdateRefreshRunStatus(ctx, "nope", model.RefreshRunning))
	})
}
