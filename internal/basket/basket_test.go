package basket

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
)

func tx(receipt, item string) model.Transaction {
	return model.Transaction{
		TenantID:         "t1",
		ReceiptNumber:    receipt,
		ReceiptTimestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		ItemName:         item,
		Quantity:         1,
		GrossRevenue:     100,
	}
}

var (
	windowStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func TestClampWindow(t *testing.T) {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("long range clamps to ninety days", func(t *testing.T) {
		start, clampedEnd := ClampWindow(end.AddDate(0, 0, -200), end)
		assert.Equal(t, end.AddDate(0, 0, -90), start)
		assert.Equal(t, end, clampedEnd)
	})

	t.Run("short range passes through", func(t *testing.T) {
		orig := end.AddDate(0, 0, -30)
		start, _ := ClampWindow(orig, end)
		assert.Equal(t, orig, start)
	})
}

func TestAnalyze_SupportFraction(t *testing.T) {
	// Coffee and Croissant together on 12 of 40 receipts.
	var txs []model.Transaction
	for i := 0; i < 40; i++ {
		receipt := fmt.Sprintf("R-%02d", i)
		txs = append(txs, tx(receipt, "Coffee"))
		if i < 12 {
			txs = append(txs, tx(receipt, "Croissant"))
		}
	}

	pairs := Analyze(txs, nil, windowStart, windowEnd, Options{})
	require.Len(t, pairs, 1)
	p := pairs[0]
	assert.Equal(t, "Coffee", p.ItemA)
	assert.Equal(t, "Croissant", p.ItemB)
	assert.Equal(t, int64(12), p.Frequency)
	assert.InDelta(t, 0.30, p.Support, 1e-9)
	assert.Equal(t, windowStart, p.WindowStart)
	assert.Equal(t, windowEnd, p.WindowEnd)
}

func TestAnalyze_DuplicateItemCountsOnce(t *testing.T) {
	txs := []model.Transaction{}
	for i := 0; i < 3; i++ {
		receipt := fmt.Sprintf("R-%d", i)
		txs = append(txs,
			tx(receipt, "Coffee"),
			tx(receipt, "Coffee"), // second line of the same item
			tx(receipt, "Bagel"),
		)
	}

	pairs := Analyze(txs, nil, windowStart, windowEnd, Options{MinFrequency: 1})
	require.Len(t, pairs, 1)
	assert.Equal(t, "Bagel", pairs[0].ItemA)
	assert.Equal(t, "Coffee", pairs[0].ItemB)
	assert.Equal(t, int64(3), pairs[0].Frequency)
}

func TestAnalyze_MinFrequencyAppliedBeforeRanking(t *testing.T) {
	var txs []model.Transaction
	for i := 0; i < 5; i++ {
		receipt := fmt.Sprintf("A-%d", i)
		txs = append(txs, tx(receipt, "Coffee"), tx(receipt, "Croissant"))
	}
	for i := 0; i < 2; i++ {
		receipt := fmt.Sprintf("B-%d", i)
		txs = append(txs, tx(receipt, "Tea"), tx(receipt, "Muffin"))
	}

	pairs := Analyze(txs, nil, windowStart, windowEnd, Options{MinFrequency: 3})
	require.Len(t, pairs, 1)
	assert.Equal(t, "Coffee", pairs[0].ItemA)
}

func TestAnalyze_TopNCap(t *testing.T) {
	// One receipt with 8 distinct items yields 28 pairs of frequency 1.
	var txs []model.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, tx("R-1", fmt.Sprintf("Item %d", i)))
	}

	pairs := Analyze(txs, nil, windowStart, windowEnd, Options{MinFrequency: 1, TopN: 5})
	assert.Len(t, pairs, 5)
}

func TestAnalyze_ExcludedItemsSkipped(t *testing.T) {
	snap := exclusion.NewSnapshot([]model.ExclusionEntry{{ItemName: "ADD Rice", Reason: model.ReasonModifier}})
	var txs []model.Transaction
	for i := 0; i < 4; i++ {
		receipt := fmt.Sprintf("R-%d", i)
		txs = append(txs, tx(receipt, "Chicken"), tx(receipt, "ADD Rice"), tx(receipt, "Iced Tea"))
	}

	pairs := Analyze(txs, snap, windowStart, windowEnd, Options{MinFrequency: 1})
	require.Len(t, pairs, 1)
	assert.Equal(t, "Chicken", pairs[0].ItemA)
	assert.Equal(t, "Iced Tea", pairs[0].ItemB)
}

func TestAnalyze_SingleItemReceiptsProduceNoPairs(t *testing.T) {
	pairs := Analyze([]model.Transaction{tx("R-1", "Coffee"), tx("R-2", "Tea")}, nil, windowStart, windowEnd, Options{MinFrequency: 1})
	assert.Empty(t, pairs)
}

func TestAnalyze_Empty(t *testing.T) {
	assert.Empty(t, Analyze(nil, nil, windowStart, windowEnd, Options{}))
}
