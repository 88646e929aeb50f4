package model

import "time"

// Quadrant is the BCG-style menu engineering classification of an item
// relative to the tenant's own median volume and price.
type Quadrant string

const (
	QuadrantStar      Quadrant = "Star"
	QuadrantPlowhorse Quadrant = "Plowhorse"
	QuadrantPuzzle    Quadrant = "Puzzle"
	QuadrantDog       Quadrant = "Dog"
	QuadrantUnset     Quadrant = ""
)

// ClassifyQuadrant assigns a quadrant from an item's lifetime quantity and
// average price against the tenant-wide medians.
func ClassifyQuadrant(quantity, avgPrice int64, medianQuantity, medianPrice float64) Quadrant {
	highPopularity := float64(quantity) >= medianQuantity
	highProfit := float64(avgPrice) >= medianPrice
	switch {
	case highPopularity && highProfit:
		return QuadrantStar
	case highPopularity:
		return QuadrantPlowhorse
	case highProfit:
		return QuadrantPuzzle
	default:
		return QuadrantDog
	}
}

// MenuItemRollup is the fully-recomputed lifetime aggregate for one
// (tenant, item name). The set is rebuilt wholesale on every refresh and
// never partially updated. Excluded items are carried with IsExcluded set
// so the registry surface can list them; they take no part in medians and
// receive no quadrant.
type MenuItemRollup struct {
	TenantID          string    `json:"tenant_id"`
	ItemName          string    `json:"item_name"`
	Category          string    `json:"category"`
	MacroCategory     string    `json:"macro_category"`
	TotalQuantity     int64     `json:"total_quantity"`
	TotalRevenue      int64     `json:"total_revenue"`
	AvgPrice          int64     `json:"avg_price"` // revenue/quantity, rounded
	OrderCount        int64     `json:"order_count"`
	FirstSaleDate     time.Time `json:"first_sale_date"`
	LastSaleDate      time.Time `json:"last_sale_date"`
	MonthsActive      int       `json:"months_active"`
	DaysSinceLastSale int       `json:"days_since_last_sale"`
	IsCoreMenu        bool      `json:"is_core_menu"`
	IsCurrentMenu     bool      `json:"is_current_menu"`
	IsExcluded        bool      `json:"is_excluded"`
	Quadrant          Quadrant  `json:"quadrant,omitempty"`
}
