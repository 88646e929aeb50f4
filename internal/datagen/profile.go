package datagen

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile describes the shape of a generated tenant: its menu, branches,
// and traffic pattern. Profiles load from YAML so demo datasets can be
// tuned without recompiling.
type Profile struct {
	Tenant   TenantInfo  `yaml:"tenant"`
	Menu     []MenuEntry `yaml:"menu"`
	Branches []Branch    `yaml:"branches"`
	Traffic  Traffic     `yaml:"traffic"`
}

// TenantInfo names the demo tenant the seed command creates when no
// existing tenant is given.
type TenantInfo struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// MenuEntry is one sellable item with its pricing and relative popularity.
type MenuEntry struct {
	Name          string  `yaml:"name"`
	Category      string  `yaml:"category"`
	MacroCategory string  `yaml:"macro_category"`
	UnitPrice     int64   `yaml:"unit_price"`
	Weight        float64 `yaml:"weight"`
}

// Branch is one location with its share of overall traffic.
type Branch struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// Traffic shapes receipt volume across the day and the week.
type Traffic struct {
	ReceiptsPerDay int                `yaml:"receipts_per_day"`
	WeekendBoost   float64            `yaml:"weekend_boost"`
	HourWeights    map[int]float64    `yaml:"hour_weights"`
	TaxRate        float64            `yaml:"tax_rate"`
	ServiceCharge  float64            `yaml:"service_charge"`
	DiscountRate   float64            `yaml:"discount_rate"`
	DiscountOdds   float64            `yaml:"discount_odds"`
	Pairings       map[string]string  `yaml:"pairings"`
	PairingOdds    map[string]float64 `yaml:"pairing_odds"`
}

// LoadProfile reads a YAML profile from disk.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "datagen: read profile")
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "datagen: parse profile")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if len(p.Menu) == 0 {
		return eris.New("datagen: profile has no menu items")
	}
	if len(p.Branches) == 0 {
		return eris.New("datagen: profile has no branches")
	}
	for _, m := range p.Menu {
		if m.Name == "" || m.UnitPrice <= 0 {
			return eris.Errorf("datagen: bad menu entry %q", m.Name)
		}
	}
	return nil
}

// DefaultProfile returns a cafe-style tenant: a compact menu spanning the
// macro-category catalog, a weekday lunch peak, and a couple of modifier
// items that exclusion suggestions should catch.
func DefaultProfile() *Profile {
	return &Profile{
		Tenant: TenantInfo{Name: "Demo Cafe", Timezone: "Asia/Manila"},
		Menu: []MenuEntry{
			{Name: "Americano", Category: "Coffee", MacroCategory: "BEVERAGE", UnitPrice: 320, Weight: 10},
			{Name: "Latte", Category: "Coffee", MacroCategory: "BEVERAGE", UnitPrice: 420, Weight: 12},
			{Name: "Cappuccino", Category: "Coffee", MacroCategory: "BEVERAGE", UnitPrice: 420, Weight: 8},
			{Name: "Iced Tea", Category: "Tea", MacroCategory: "BEVERAGE", UnitPrice: 280, Weight: 6},
			{Name: "Croissant", Category: "Pastry", MacroCategory: "SWEETS", UnitPrice: 350, Weight: 9},
			{Name: "Blueberry Muffin", Category: "Pastry", MacroCategory: "SWEETS", UnitPrice: 380, Weight: 5},
			{Name: "Club Sandwich", Category: "Sandwiches", MacroCategory: "FOOD", UnitPrice: 850, Weight: 7},
			{Name: "Chicken Pesto Panini", Category: "Sandwiches", MacroCategory: "FOOD", UnitPrice: 920, Weight: 6},
			{Name: "Caesar Salad", Category: "Salads", MacroCategory: "FOOD", UnitPrice: 780, Weight: 4},
			{Name: "Carbonara", Category: "Pasta", MacroCategory: "FOOD", UnitPrice: 980, Weight: 5},
			{Name: "Cheesecake Slice", Category: "Desserts", MacroCategory: "SWEETS", UnitPrice: 520, Weight: 3},
			{Name: "Bottled Water", Category: "Retail", MacroCategory: "RETAIL", UnitPrice: 120, Weight: 4},
			{Name: "Add Cheese", Category: "Modifiers", MacroCategory: "OTHER", UnitPrice: 60, Weight: 2},
			{Name: "Extra Shot", Category: "Modifiers", MacroCategory: "OTHER", UnitPrice: 80, Weight: 3},
		},
		Branches: []Branch{
			{Name: "Main", Weight: 5},
			{Name: "Mall", Weight: 3},
			{Name: "Airport", Weight: 2},
		},
		Traffic: Traffic{
			ReceiptsPerDay: 90,
			WeekendBoost:   1.35,
			TaxRate:        0.08,
			ServiceCharge:  0.05,
			DiscountRate:   0.10,
			DiscountOdds:   0.12,
			HourWeights: map[int]float64{
				6: 2, 7: 6, 8: 8, 9: 6, 10: 4,
				11: 8, 12: 12, 13: 10, 14: 5,
				15: 3, 16: 3, 17: 4,
				18: 8, 19: 9, 20: 6,
				21: 3, 22: 2, 23: 1,
			},
			// Items sold together more often than chance, so the basket
			// analysis has real signal to find.
			Pairings: map[string]string{
				"Americano": "Croissant",
				"Latte":     "Blueberry Muffin",
				"Carbonara": "Iced Tea",
			},
			PairingOdds: map[string]float64{
				"Americano": 0.5,
				"Latte":     0.4,
				"Carbonara": 0.6,
			},
		},
	}
}
