package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
)

func tx(receipt, item, category, branch string, ts time.Time, qty, gross int64) model.Transaction {
	return model.Transaction{
		TenantID:         "t1",
		ReceiptNumber:    receipt,
		ReceiptTimestamp: ts,
		ItemName:         item,
		Category:         category,
		MacroCategory:    "FOOD",
		Quantity:         qty,
		GrossRevenue:     gross,
		Branch:           branch,
	}
}

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return loc
}

func TestBuildHourly_TimezoneConversion(t *testing.T) {
	// 22:30 UTC on Sunday March 10 is 06:30 Monday March 11 in Manila.
	ts := time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC)
	rows := BuildHourly([]model.Transaction{
		tx("R-1", "Coffee", "Drinks", "Main", ts, 2, 700),
	}, nil, manila(t))

	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), rows[0].SummaryDate)
	assert.Equal(t, 6, rows[0].Hour)
	assert.Equal(t, 0, rows[0].DayOfWeek, "Monday")
}

func TestBuildHourly_Bucketing(t *testing.T) {
	base := time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC) // 10:00 Manila
	txs := []model.Transaction{
		tx("R-1", "Coffee", "Drinks", "Main", base, 2, 700),
		tx("R-1", "Latte", "Drinks", "Main", base.Add(10*time.Minute), 1, 450),
		tx("R-2", "Croissant", "Pastry", "Main", base.Add(20*time.Minute), 1, 420),
		tx("R-3", "Coffee", "Drinks", "Mall", base, 1, 350),
		tx("R-4", "Coffee", "Drinks", "Main", base.Add(time.Hour), 1, 350),
	}
	rows := BuildHourly(txs, nil, manila(t))

	require.Len(t, rows, 4)
	// Sorted by date, hour, branch, category.
	assert.Equal(t, "Main", rows[0].Branch)
	assert.Equal(t, "Drinks", rows[0].Category)
	assert.Equal(t, int64(1150), rows[0].Revenue)
	assert.Equal(t, int64(3), rows[0].Quantity)
	assert.Equal(t, int64(2), rows[0].TransactionCount)

	assert.Equal(t, "Pastry", rows[1].Category)
	assert.Equal(t, "Mall", rows[2].Branch)
	assert.Equal(t, 11, rows[3].Hour)
}

func TestBuildHourly_RevenueConservation(t *testing.T) {
	base := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	var txs []model.Transaction
	var want int64
	for i := 0; i < 50; i++ {
		gross := int64(100 + i*7)
		want += gross
		txs = append(txs, tx("R-1", "Coffee", "Drinks", "Main", base.Add(time.Duration(i)*37*time.Minute), 1, gross))
	}

	rows := BuildHourly(txs, nil, manila(t))
	var got int64
	for _, row := range rows {
		got += row.Revenue
	}
	assert.Equal(t, want, got)
}

func TestBuildHourly_SkipsRegistryExcluded(t *testing.T) {
	base := time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)
	snap := exclusion.NewSnapshot([]model.ExclusionEntry{{ItemName: "ADD Rice", Reason: model.ReasonModifier}})

	rows := BuildHourly([]model.Transaction{
		tx("R-1", "Coffee", "Drinks", "Main", base, 1, 350),
		tx("R-1", "ADD Rice", "Modifiers", "Main", base, 1, 50),
	}, snap, manila(t))

	require.Len(t, rows, 1)
	assert.Equal(t, "Drinks", rows[0].Category)
	assert.Equal(t, int64(350), rows[0].Revenue)
}

func TestBuildHourly_Empty(t *testing.T) {
	assert.Empty(t, BuildHourly(nil, nil, time.UTC))
}
