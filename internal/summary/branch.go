package summary

import (
	"sort"
	"time"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
)

type branchKey struct {
	period model.PeriodType
	start  time.Time
	branch string
}

type branchAccum struct {
	row      model.BranchSummaryRow
	receipts map[string]struct{}
	items    map[string]*model.TopItem
}

// BuildBranch produces the per-branch pre-aggregates at all three
// granularities in one pass. Top items and the category breakdown are
// computed per bucket and serialized into the row. Registry-excluded items
// are skipped when a resolver is given.
func BuildBranch(txs []model.Transaction, resolver exclusion.Resolver, loc *time.Location) []model.BranchSummaryRow {
	buckets := make(map[branchKey]*branchAccum)

	for _, tx := range txs {
		if resolver != nil && resolver.Excluded(tx.ItemName) {
			continue
		}
		local := tx.ReceiptTimestamp.In(loc)
		date := LocalDate(local)
		starts := map[model.PeriodType]time.Time{
			model.PeriodDaily:   date,
			model.PeriodWeekly:  ISOWeekStart(date),
			model.PeriodMonthly: MonthStart(date),
		}
		for period, start := range starts {
			key := branchKey{period: period, start: start, branch: tx.Branch}
			acc, ok := buckets[key]
			if !ok {
				acc = &branchAccum{
					row: model.BranchSummaryRow{
						TenantID:          tx.TenantID,
						PeriodType:        period,
						PeriodStart:       start,
						Branch:            tx.Branch,
						CategoryBreakdown: make(map[string]model.CategoryTotals),
					},
					receipts: make(map[string]struct{}),
					items:    make(map[string]*model.TopItem),
				}
				buckets[key] = acc
			}
			acc.row.Revenue += tx.GrossRevenue
			acc.row.TransactionCount++
			acc.receipts[tx.ReceiptNumber] = struct{}{}

			item, ok := acc.items[tx.ItemName]
			if !ok {
				item = &model.TopItem{ItemName: tx.ItemName}
				acc.items[tx.ItemName] = item
			}
			item.Quantity += tx.Quantity
			item.Revenue += tx.GrossRevenue

			totals := acc.row.CategoryBreakdown[tx.Category]
			totals.Revenue += tx.GrossRevenue
			totals.Quantity += tx.Quantity
			acc.row.CategoryBreakdown[tx.Category] = totals
		}
	}

	rows := make([]model.BranchSummaryRow, 0, len(buckets))
	for _, acc := range buckets {
		acc.row.ReceiptCount = int64(len(acc.receipts))
		acc.row.AvgTicket = model.RoundDiv(acc.row.Revenue, acc.row.ReceiptCount)
		acc.row.TopItems = topItems(acc.items, 10)
		rows = append(rows, acc.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PeriodType != b.PeriodType {
			return a.PeriodType < b.PeriodType
		}
		if !a.PeriodStart.Equal(b.PeriodStart) {
			return a.PeriodStart.Before(b.PeriodStart)
		}
		return a.Branch < b.Branch
	})
	return rows
}

// topItems ranks a bucket's items by quantity, breaking ties by revenue
// then name, and keeps the first limit entries.
func topItems(items map[string]*model.TopItem, limit int) []model.TopItem {
	ranked := make([]model.TopItem, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, *item)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ItemName < b.ItemName
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
