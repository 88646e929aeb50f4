package exclusion

import (
	"sort"
	"strings"

	"github.com/platewise/platewise/internal/model"
)

// Suggestion is one candidate for the exclusion registry, produced by
// heuristics over the menu item rollups. Operators review suggestions before
// adding them; nothing is excluded automatically.
type Suggestion struct {
	ItemName     string  `json:"item_name"`
	Reason       string  `json:"reason"`
	Detail       string  `json:"detail"`
	RevenueShare float64 `json:"revenue_share"` // percent of total revenue
}

// Modifier name prefixes as they appear in POS exports. Matched
// case-insensitively against the start of the item name.
var modifierPrefixes = []string{"add ", "extra ", "no ", "+", "sub "}

// Suggest scans rollups for items that look like modifiers or noise rows.
// Already-excluded items are skipped. Results are ordered by item name.
func Suggest(rollups []model.MenuItemRollup, resolver Resolver) []Suggestion {
	var totalRevenue int64
	for _, r := range rollups {
		totalRevenue += r.TotalRevenue
	}

	var suggestions []Suggestion
	for _, r := range rollups {
		if r.IsExcluded || (resolver != nil && resolver.Excluded(r.ItemName)) {
			continue
		}
		share := model.Percent1(r.TotalRevenue, totalRevenue)

		switch {
		case isModifierName(r.ItemName):
			suggestions = append(suggestions, Suggestion{
				ItemName:     r.ItemName,
				Reason:       model.ReasonModifier,
				Detail:       "name matches a modifier prefix",
				RevenueShare: share,
			})
		case totalRevenue > 0 && share < 0.1:
			suggestions = append(suggestions, Suggestion{
				ItemName:     r.ItemName,
				Reason:       model.ReasonNonAnalytical,
				Detail:       "below 0.1% of lifetime revenue",
				RevenueShare: share,
			})
		case r.TotalQuantity <= 2:
			suggestions = append(suggestions, Suggestion{
				ItemName:     r.ItemName,
				Reason:       model.ReasonLowVolume,
				Detail:       "two or fewer units sold lifetime",
				RevenueShare: share,
			})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].ItemName < suggestions[j].ItemName
	})
	return suggestions
}

func isModifierName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range modifierPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
