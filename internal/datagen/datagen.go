// Package datagen produces deterministic demo transaction data. Given the
// same profile and seed it emits the same facts, so seeded databases are
// reproducible across machines.
package datagen

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/platewise/platewise/internal/model"
)

// Options controls one generation run. End is interpreted in Loc; the
// generated range covers the Days local calendar days ending the day
// before End.
type Options struct {
	TenantID      string
	Days          int
	End           time.Time
	Loc           *time.Location
	Seed          uint64
	ImportBatchID string
}

// Generate produces the full fact set for one tenant. Output timestamps
// are UTC instants; volume follows the profile's hour weights with a
// weekend boost, and the configured pairings co-occur on the same receipt
// often enough for the basket analysis to rank them.
func Generate(p *Profile, opts Options) []model.Transaction {
	if opts.Days <= 0 {
		opts.Days = 90
	}
	if opts.Loc == nil {
		opts.Loc = time.UTC
	}
	if opts.End.IsZero() {
		opts.End = time.Now()
	}

	f := gofakeit.New(opts.Seed)
	g := &generator{faker: f, profile: p, opts: opts}

	end := opts.End.In(opts.Loc)
	lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, opts.Loc).AddDate(0, 0, -1)

	var txs []model.Transaction
	for i := opts.Days - 1; i >= 0; i-- {
		day := lastDay.AddDate(0, 0, -i)
		for bi, branch := range p.Branches {
			txs = append(txs, g.branchDay(day, bi, branch)...)
		}
	}
	return txs
}

type generator struct {
	faker   *gofakeit.Faker
	profile *Profile
	opts    Options
	seq     int
}

func (g *generator) branchDay(day time.Time, branchIdx int, branch Branch) []model.Transaction {
	tr := g.profile.Traffic

	var branchTotal float64
	for _, b := range g.profile.Branches {
		branchTotal += b.Weight
	}
	volume := float64(tr.ReceiptsPerDay) * branch.Weight / branchTotal
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		volume *= tr.WeekendBoost
	}
	// Daily jitter keeps the trend lines from looking synthetic.
	volume *= g.faker.Float64Range(0.85, 1.15)

	count := int(volume)
	if count < 1 {
		count = 1
	}

	var txs []model.Transaction
	for i := 0; i < count; i++ {
		g.seq++
		receipt := fmt.Sprintf("R%s-%d-%04d", day.Format("20060102"), branchIdx+1, g.seq)
		ts := time.Date(day.Year(), day.Month(), day.Day(),
			g.pickHour(), g.faker.IntRange(0, 59), g.faker.IntRange(0, 59), 0, g.opts.Loc).UTC()
		txs = append(txs, g.receipt(receipt, ts, branch.Name)...)
	}
	return txs
}

// receipt emits one to three distinct lines, plus the profile's pairing
// companion when the anchor item lands on the slip.
func (g *generator) receipt(number string, ts time.Time, branch string) []model.Transaction {
	tr := g.profile.Traffic

	lines := g.faker.IntRange(1, 3)
	var picked []MenuEntry
	seen := make(map[string]bool, lines+1)
	for len(picked) < lines {
		entry := g.pickItem()
		if seen[entry.Name] {
			continue
		}
		seen[entry.Name] = true
		picked = append(picked, entry)
	}
	// Anchors are checked in menu order so the faker draw sequence stays
	// stable for a given seed.
	for _, m := range g.profile.Menu {
		companion, ok := tr.Pairings[m.Name]
		if !ok || !seen[m.Name] || seen[companion] {
			continue
		}
		if g.faker.Float64Range(0, 1) < tr.PairingOdds[m.Name] {
			if entry, ok := g.menuEntry(companion); ok {
				seen[entry.Name] = true
				picked = append(picked, entry)
			}
		}
	}

	var txs []model.Transaction
	for _, entry := range picked {
		qty := int64(g.faker.IntRange(1, 2))
		subtotal := entry.UnitPrice * qty
		tax := roundShare(subtotal, tr.TaxRate)
		sc := roundShare(subtotal, tr.ServiceCharge)
		var discount int64
		if g.faker.Float64Range(0, 1) < tr.DiscountOdds {
			discount = -roundShare(subtotal, tr.DiscountRate)
		}
		txs = append(txs, model.Transaction{
			ID:                     g.faker.UUID(),
			TenantID:               g.opts.TenantID,
			ReceiptNumber:          number,
			ReceiptTimestamp:       ts,
			ItemName:               entry.Name,
			Category:               entry.Category,
			MacroCategory:          entry.MacroCategory,
			Quantity:               qty,
			UnitPrice:              entry.UnitPrice,
			Subtotal:               subtotal,
			Discount:               discount,
			Tax:                    tax,
			AllocatedServiceCharge: sc,
			GrossRevenue:           subtotal + tax + sc + discount,
			Branch:                 branch,
			ImportBatchID:          g.opts.ImportBatchID,
		})
	}
	return txs
}

func (g *generator) pickHour() int {
	weights := g.profile.Traffic.HourWeights
	if len(weights) == 0 {
		return g.faker.IntRange(8, 21)
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	r := g.faker.Float64Range(0, total)
	for hour := 0; hour < 24; hour++ {
		w, ok := weights[hour]
		if !ok {
			continue
		}
		r -= w
		if r <= 0 {
			return hour
		}
	}
	return 12
}

func (g *generator) pickItem() MenuEntry {
	menu := g.profile.Menu
	var total float64
	for _, m := range menu {
		total += m.Weight
	}
	r := g.faker.Float64Range(0, total)
	for _, m := range menu {
		r -= m.Weight
		if r <= 0 {
			return m
		}
	}
	return menu[len(menu)-1]
}

func (g *generator) menuEntry(name string) (MenuEntry, bool) {
	for _, m := range g.profile.Menu {
		if m.Name == name {
			return m, true
		}
	}
	return MenuEntry{}, false
}

func roundShare(amount int64, rate float64) int64 {
	return int64(float64(amount)*rate + 0.5)
}
