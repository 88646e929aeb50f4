package query

import (
	"context"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/rollup"
	"github.com/platewise/platewise/internal/store"
)

// MenuFilter narrows the menu engineering matrix. The quadrants are
// recomputed over whatever set survives the filter, so a filtered view is
// a self-contained matrix, not a window onto the stored one.
type MenuFilter struct {
	Categories    []string
	MacroCategory string
	CoreOnly      bool
	CurrentOnly   bool
	MinPrice      int64
	MaxPrice      int64
	MinQuantity   int64
}

// MenuEngineeringResult is the filtered matrix with its own medians and
// per-quadrant counts.
type MenuEngineeringResult struct {
	Items          []model.MenuItemRollup `json:"items"`
	MedianQuantity float64                `json:"median_quantity"`
	MedianPrice    float64                `json:"median_price"`
	QuadrantCounts map[model.Quadrant]int `json:"quadrant_counts"`
}

func (q *Queries) MenuEngineering(ctx context.Context, f Filter, mf MenuFilter) (*MenuEngineeringResult, error) {
	return run(ctx, q, "menu_engineering", func(ctx context.Context) (*MenuEngineeringResult, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		items, err := q.store.ListMenuItemRollups(ctx, r.tenant.ID, store.RollupFilter{
			Categories:    mf.Categories,
			MacroCategory: mf.MacroCategory,
			CoreOnly:      mf.CoreOnly,
			CurrentOnly:   mf.CurrentOnly,
			MinPrice:      mf.MinPrice,
			MaxPrice:      mf.MaxPrice,
			MinQuantity:   mf.MinQuantity,
		})
		if err != nil {
			return nil, err
		}

		result := &MenuEngineeringResult{
			Items:          items,
			QuadrantCounts: make(map[model.Quadrant]int),
		}
		if len(items) == 0 {
			return result, nil
		}

		quantities := make([]float64, 0, len(items))
		prices := make([]float64, 0, len(items))
		for _, item := range items {
			quantities = append(quantities, float64(item.TotalQuantity))
			prices = append(prices, float64(item.AvgPrice))
		}
		result.MedianQuantity = rollup.Median(quantities)
		result.MedianPrice = rollup.Median(prices)

		for i := range result.Items {
			quadrant := model.ClassifyQuadrant(
				result.Items[i].TotalQuantity, result.Items[i].AvgPrice,
				result.MedianQuantity, result.MedianPrice)
			result.Items[i].Quadrant = quadrant
			result.QuadrantCounts[quadrant]++
		}
		return result, nil
	})
}
