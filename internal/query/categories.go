package query

import (
	"context"
	"sort"

	"github.com/platewise/platewise/internal/errs"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
)

// CategoryRow is one category's totals within the range, enriched with the
// lifetime item count and blended price from the rollups when available.
type CategoryRow struct {
	Category         string  `json:"category"`
	MacroCategory    string  `json:"macro_category"`
	Revenue          int64   `json:"revenue"`
	Quantity         int64   `json:"quantity"`
	TransactionCount int64   `json:"transaction_count"`
	RevenueShare     float64 `json:"revenue_share"` // percent
	ItemCount        int     `json:"item_count"`
	AvgPrice         int64   `json:"avg_price"`
}

func (q *Queries) Categories(ctx context.Context, f Filter) ([]CategoryRow, error) {
	return run(ctx, q, "categories", func(ctx context.Context) ([]CategoryRow, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		rows, err := q.hourlyRows(ctx, r)
		if err != nil {
			return nil, err
		}

		byCategory := make(map[string]*CategoryRow)
		var total int64
		for _, row := range rows {
			c, ok := byCategory[row.Category]
			if !ok {
				c = &CategoryRow{Category: row.Category, MacroCategory: row.MacroCategory}
				byCategory[row.Category] = c
			}
			c.Revenue += row.Revenue
			c.Quantity += row.Quantity
			c.TransactionCount += row.TransactionCount
			total += row.Revenue
		}

		// Item counts and blended prices come from the lifetime rollups;
		// the hourly buckets do not carry item identity.
		rollups, err := q.store.ListMenuItemRollups(ctx, r.tenant.ID, store.RollupFilter{})
		if err != nil {
			return nil, err
		}
		type catAgg struct {
			items    int
			quantity int64
			revenue  int64
		}
		lifetime := make(map[string]*catAgg)
		for _, item := range rollups {
			agg, ok := lifetime[item.Category]
			if !ok {
				agg = &catAgg{}
				lifetime[item.Category] = agg
			}
			agg.items++
			agg.quantity += item.TotalQuantity
			agg.revenue += item.TotalRevenue
		}

		result := make([]CategoryRow, 0, len(byCategory))
		for _, c := range byCategory {
			c.RevenueShare = model.Percent1(c.Revenue, total)
			if agg, ok := lifetime[c.Category]; ok {
				c.ItemCount = agg.items
				c.AvgPrice = model.RoundDiv(agg.revenue, agg.quantity)
			}
			result = append(result, *c)
		}
		sort.Slice(result, func(i, j int) bool {
			if result[i].Revenue != result[j].Revenue {
				return result[i].Revenue > result[j].Revenue
			}
			return result[i].Category < result[j].Category
		})
		return result, nil
	})
}

// PerformanceSort selects the ranking dimension for item performance.
type PerformanceSort string

const (
	SortByRevenue  PerformanceSort = "revenue"
	SortByQuantity PerformanceSort = "quantity"
)

// ItemPerformance is one item's totals within the range. Item-level ranges
// always come from the fact scan; the pre-aggregates do not carry items.
type ItemPerformance struct {
	ItemName         string  `json:"item_name"`
	Category         string  `json:"category"`
	Revenue          int64   `json:"revenue"`
	Quantity         int64   `json:"quantity"`
	TransactionCount int64   `json:"transaction_count"`
	AvgPrice         int64   `json:"avg_price"`
	RevenueShare     float64 `json:"revenue_share"` // percent
}

func (q *Queries) Performance(ctx context.Context, f Filter, sortBy PerformanceSort, limit int) ([]ItemPerformance, error) {
	return run(ctx, q, "performance", func(ctx context.Context) ([]ItemPerformance, error) {
		switch sortBy {
		case "", SortByRevenue, SortByQuantity:
		default:
			return nil, errs.Validationf("unknown sort dimension %q", sortBy)
		}
		if limit <= 0 {
			limit = 20
		}
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		txs, err := q.scanRange(ctx, r)
		if err != nil {
			return nil, err
		}

		byItem := make(map[string]*ItemPerformance)
		var total int64
		for _, tx := range txs {
			item, ok := byItem[tx.ItemName]
			if !ok {
				item = &ItemPerformance{ItemName: tx.ItemName, Category: tx.Category}
				byItem[tx.ItemName] = item
			}
			item.Revenue += tx.GrossRevenue
			item.Quantity += tx.Quantity
			item.TransactionCount++
			total += tx.GrossRevenue
		}

		result := make([]ItemPerformance, 0, len(byItem))
		for _, item := range byItem {
			item.AvgPrice = model.RoundDiv(item.Revenue, item.Quantity)
			item.RevenueShare = model.Percent1(item.Revenue, total)
			result = append(result, *item)
		}
		sort.Slice(result, func(i, j int) bool {
			a, b := result[i], result[j]
			if sortBy == SortByQuantity {
				if a.Quantity != b.Quantity {
					return a.Quantity > b.Quantity
				}
			} else if a.Revenue != b.Revenue {
				return a.Revenue > b.Revenue
			}
			return a.ItemName < b.ItemName
		})
		if len(result) > limit {
			result = result[:limit]
		}
		return result, nil
	})
}
