package summary

import (
	"sort"
	"time"

	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
)

type hourlyKey struct {
	date     time.Time
	hour     int
	branch   string
	category string
}

// BuildHourly buckets transactions into (local date, local hour, branch,
// category) rows. Each row's timestamp is converted to the tenant's
// timezone exactly once; the derived date, hour and day-of-week always
// agree with each other. Registry-excluded items are skipped when a
// resolver is given.
func BuildHourly(txs []model.Transaction, resolver exclusion.Resolver, loc *time.Location) []model.HourlySummaryRow {
	buckets := make(map[hourlyKey]*model.HourlySummaryRow)

	for _, tx := range txs {
		if resolver != nil && resolver.Excluded(tx.ItemName) {
			continue
		}
		local := tx.ReceiptTimestamp.In(loc)
		key := hourlyKey{
			date:     LocalDate(local),
			hour:     local.Hour(),
			branch:   tx.Branch,
			category: tx.Category,
		}
		row, ok := buckets[key]
		if !ok {
			row = &model.HourlySummaryRow{
				TenantID:      tx.TenantID,
				SummaryDate:   key.date,
				Hour:          key.hour,
				DayOfWeek:     DayOfWeekMon0(local),
				Branch:        tx.Branch,
				Category:      tx.Category,
				MacroCategory: tx.MacroCategory,
			}
			buckets[key] = row
		}
		row.Revenue += tx.GrossRevenue
		row.Quantity += tx.Quantity
		row.TransactionCount++
	}

	rows := make([]model.HourlySummaryRow, 0, len(buckets))
	for _, row := range buckets {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.SummaryDate.Equal(b.SummaryDate) {
			return a.SummaryDate.Before(b.SummaryDate)
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		if a.Branch != b.Branch {
			return a.Branch < b.Branch
		}
		return a.Category < b.Category
	})
	return rows
}
