// Package basket finds item pairs that co-occur on receipts. The analysis
// window is clamped to bound cost; pair counting is quadratic in receipt
// size, not in history length.
package basket

import (
	"sort"
	"time"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/summary"
)

// Analysis bounds. Callers can lower but never exceed them.
const (
	MaxWindowDays       = 90
	MaxPairs            = 100
	DefaultMinFrequency = 3
)

// Options tunes one analysis pass. Zero values take the defaults.
type Options struct {
	MinFrequency int64 // pairs seen fewer times are dropped
	TopN         int   // kept pairs after ranking, capped at MaxPairs
}

// ClampWindow narrows [start, end) to at most MaxWindowDays ending at end.
func ClampWindow(start, end time.Time) (time.Time, time.Time) {
	limit := end.AddDate(0, 0, -MaxWindowDays)
	if start.Before(limit) {
		start = limit
	}
	return start, end
}

type pairKey struct {
	a, b string
}

// Analyze counts distinct-item pairs per receipt over transactions already
// scoped to the analysis window. An item appearing twice on a receipt
// counts once; each pair is ordered ItemA < ItemB. Support is the fraction
// of distinct receipts containing the pair, in [0, 1].
func Analyze(txs []model.Transaction, resolver exclusion.Resolver, windowStart, windowEnd time.Time, opts Options) []model.ItemPairRow {
	if opts.MinFrequency <= 0 {
		opts.MinFrequency = DefaultMinFrequency
	}
	if opts.TopN <= 0 || opts.TopN > MaxPairs {
		opts.TopN = MaxPairs
	}

	receipts := make(map[string]map[string]struct{})
	var tenantID string
	for _, tx := range txs {
		if resolver != nil && resolver.Excluded(tx.ItemName) {
			continue
		}
		tenantID = tx.TenantID
		items, ok := receipts[tx.ReceiptNumber]
		if !ok {
			items = make(map[string]struct{})
			receipts[tx.ReceiptNumber] = items
		}
		items[tx.ItemName] = struct{}{}
	}

	totalReceipts := len(receipts)
	if totalReceipts == 0 {
		return nil
	}

	counts := make(map[pairKey]int64)
	for _, items := range receipts {
		if len(items) < 2 {
			continue
		}
		names := make([]string, 0, len(items))
		for name := range items {
			names = append(names, name)
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				counts[pairKey{a: names[i], b: names[j]}]++
			}
		}
	}

	pairs := make([]model.ItemPairRow, 0, len(counts))
	for key, freq := range counts {
		if freq < opts.MinFrequency {
			continue
		}
		pairs = append(pairs, model.ItemPairRow{
			TenantID:    tenantID,
			ItemA:       key.a,
			ItemB:       key.b,
			Frequency:   freq,
			Support:     float64(freq) / float64(totalReceipts),
			WindowStart: summary.LocalDate(windowStart),
			WindowEnd:   summary.LocalDate(windowEnd),
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Frequency != pairs[j].Frequency {
			return pairs[i].Frequency > pairs[j].Frequency
		}
		if pairs[i].ItemA != pairs[j].ItemA {
			return pairs[i].ItemA < pairs[j].ItemA
		}
		return pairs[i].ItemB < pairs[j].ItemB
	})
	if len(pairs) > opts.TopN {
		pairs = pairs[:opts.TopN]
	}
	return pairs
}
