// Package rollup recomputes the lifetime menu item aggregates. The whole
// set is rebuilt from the fact scan on every refresh; nothing is updated
// incrementally, so a rebuild can never drift from the facts.
package rollup

import (
	"sort"
	"time"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/summary"
)

// Core menu and current menu thresholds.
const (
	coreMenuMonths = 6
	currentDays    = 30
)

type itemAccum struct {
	category      string
	macroCategory string
	quantity      int64
	revenue       int64
	receipts      map[string]struct{}
	firstSale     time.Time
	lastSale      time.Time
}

// Build aggregates transactions into one rollup per item name. Items in the
// exclusion registry are carried with IsExcluded set; they take no part in
// the medians and receive no quadrant. Dates and recency are computed in
// the tenant's timezone against asOf.
func Build(txs []model.Transaction, resolver exclusion.Resolver, loc *time.Location, asOf time.Time) []model.MenuItemRollup {
	items := make(map[string]*itemAccum)

	for _, tx := range txs {
		acc, ok := items[tx.ItemName]
		if !ok {
			acc = &itemAccum{receipts: make(map[string]struct{})}
			items[tx.ItemName] = acc
		}
		local := tx.ReceiptTimestamp.In(loc)
		if acc.firstSale.IsZero() || local.Before(acc.firstSale) {
			acc.firstSale = local
		}
		if local.After(acc.lastSale) {
			acc.lastSale = local
			acc.category = tx.Category
			acc.macroCategory = tx.MacroCategory
		}
		acc.quantity += tx.Quantity
		acc.revenue += tx.GrossRevenue
		acc.receipts[tx.ReceiptNumber] = struct{}{}
	}
	if len(items) == 0 {
		return nil
	}

	asOfDate := summary.LocalDate(asOf.In(loc))
	rollups := make([]model.MenuItemRollup, 0, len(items))
	var tenantID string
	if len(txs) > 0 {
		tenantID = txs[0].TenantID
	}

	for name, acc := range items {
		firstDate := summary.LocalDate(acc.firstSale)
		lastDate := summary.LocalDate(acc.lastSale)
		monthsActive := wholeMonths(firstDate, lastDate)
		if monthsActive < 1 {
			monthsActive = 1
		}
		daysSince := int(asOfDate.Sub(lastDate).Hours() / 24)
		excluded := resolver != nil && resolver.Excluded(name)

		rollups = append(rollups, model.MenuItemRollup{
			TenantID:          tenantID,
			ItemName:          name,
			Category:          acc.category,
			MacroCategory:     acc.macroCategory,
			TotalQuantity:     acc.quantity,
			TotalRevenue:      acc.revenue,
			AvgPrice:          model.RoundDiv(acc.revenue, acc.quantity),
			OrderCount:        int64(len(acc.receipts)),
			FirstSaleDate:     firstDate,
			LastSaleDate:      lastDate,
			MonthsActive:      monthsActive,
			DaysSinceLastSale: daysSince,
			IsCoreMenu:        !excluded && monthsActive >= coreMenuMonths,
			IsCurrentMenu:     daysSince <= currentDays,
			IsExcluded:        excluded,
		})
	}

	classify(rollups)

	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].TotalRevenue != rollups[j].TotalRevenue {
			return rollups[i].TotalRevenue > rollups[j].TotalRevenue
		}
		return rollups[i].ItemName < rollups[j].ItemName
	})
	return rollups
}

// classify assigns quadrants to the non-excluded rollups against the
// medians of that same set. Every non-excluded item lands in exactly one
// quadrant.
func classify(rollups []model.MenuItemRollup) {
	var quantities, prices []float64
	for _, r := range rollups {
		if r.IsExcluded {
			continue
		}
		quantities = append(quantities, float64(r.TotalQuantity))
		prices = append(prices, float64(r.AvgPrice))
	}
	if len(quantities) == 0 {
		return
	}
	medianQty := Median(quantities)
	medianPrice := Median(prices)

	for i := range rollups {
		if rollups[i].IsExcluded {
			continue
		}
		rollups[i].Quadrant = model.ClassifyQuadrant(
			rollups[i].TotalQuantity, rollups[i].AvgPrice, medianQty, medianPrice)
	}
}

// Median returns the middle value of the set, or the mean of the two middle
// values for an even count. Returns 0 for an empty set.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// wholeMonths counts complete calendar months from first to last.
func wholeMonths(first, last time.Time) int {
	months := (last.Year()-first.Year())*12 + int(last.Month()) - int(first.Month())
	if last.Day() < first.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
