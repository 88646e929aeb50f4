package query

import (
	"context"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/summary"
)

// DaypartRow is one service period's totals within the range.
type DaypartRow struct {
	Daypart          string  `json:"daypart"`
	Revenue          int64   `json:"revenue"`
	Quantity         int64   `json:"quantity"`
	TransactionCount int64   `json:"transaction_count"`
	RevenueShare     float64 `json:"revenue_share"` // percent
}

// DaypartingResult orders the dayparts by the service day and names the
// peak by revenue.
type DaypartingResult struct {
	Dayparts []DaypartRow `json:"dayparts"`
	Peak     string       `json:"peak"`
}

var daypartOrder = []string{
	summary.DaypartBreakfast,
	summary.DaypartLunch,
	summary.DaypartDinner,
	summary.DaypartLateNight,
}

func (q *Queries) Dayparting(ctx context.Context, f Filter) (*DaypartingResult, error) {
	return run(ctx, q, "dayparting", func(ctx context.Context) (*DaypartingResult, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		rows, err := q.hourlyRows(ctx, r)
		if err != nil {
			return nil, err
		}

		buckets := make(map[string]*DaypartRow, len(daypartOrder))
		for _, name := range daypartOrder {
			buckets[name] = &DaypartRow{Daypart: name}
		}
		var total int64
		for _, row := range rows {
			b := buckets[summary.DaypartFor(row.Hour)]
			b.Revenue += row.Revenue
			b.Quantity += row.Quantity
			b.TransactionCount += row.TransactionCount
			total += row.Revenue
		}

		result := &DaypartingResult{Dayparts: make([]DaypartRow, 0, len(daypartOrder))}
		var peakRevenue int64 = -1
		for _, name := range daypartOrder {
			b := buckets[name]
			b.RevenueShare = model.Percent1(b.Revenue, total)
			result.Dayparts = append(result.Dayparts, *b)
			if b.Revenue > peakRevenue {
				peakRevenue = b.Revenue
				result.Peak = name
			}
		}
		return result, nil
	})
}

// HeatmapResult is the full week-by-hour revenue grid. Rows are indexed
// 0=Monday through 6=Sunday; every cell is present even when zero.
type HeatmapResult struct {
	Revenue      [7][24]int64 `json:"revenue"`
	Transactions [7][24]int64 `json:"transactions"`
	PeakDay      int          `json:"peak_day"`
	PeakHour     int          `json:"peak_hour"`
}

func (q *Queries) Heatmap(ctx context.Context, f Filter) (*HeatmapResult, error) {
	return run(ctx, q, "heatmap", func(ctx context.Context) (*HeatmapResult, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		rows, err := q.hourlyRows(ctx, r)
		if err != nil {
			return nil, err
		}

		result := &HeatmapResult{}
		for _, row := range rows {
			if row.DayOfWeek < 0 || row.DayOfWeek > 6 || row.Hour < 0 || row.Hour > 23 {
				continue
			}
			result.Revenue[row.DayOfWeek][row.Hour] += row.Revenue
			result.Transactions[row.DayOfWeek][row.Hour] += row.TransactionCount
		}
		var peak int64 = -1
		for day := 0; day < 7; day++ {
			for hour := 0; hour < 24; hour++ {
				if result.Revenue[day][hour] > peak {
					peak = result.Revenue[day][hour]
					result.PeakDay = day
					result.PeakHour = hour
				}
			}
		}
		return result, nil
	})
}

// WeekdayRow is one weekday's averages across the occurrences of that
// weekday in the range.
type WeekdayRow struct {
	DayOfWeek   int   `json:"day_of_week"` // 0=Monday
	Occurrences int   `json:"occurrences"`
	AvgRevenue  int64 `json:"avg_revenue"`
	AvgReceipts int64 `json:"avg_receipts"`
	Revenue     int64 `json:"revenue"`
}

// DayOfWeekResult compares the seven weekdays and names the strongest and
// weakest by average revenue. Days with no sales in the range keep zero
// rows.
type DayOfWeekResult struct {
	Days     []WeekdayRow `json:"days"`
	BestDay  int          `json:"best_day"`
	WorstDay int          `json:"worst_day"`
}

func (q *Queries) DayOfWeek(ctx context.Context, f Filter) (*DayOfWeekResult, error) {
	return run(ctx, q, "day_of_week", func(ctx context.Context) (*DayOfWeekResult, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		stats, err := q.dailyStats(ctx, r)
		if err != nil {
			return nil, err
		}

		var days [7]WeekdayRow
		var receipts [7]int64
		for i := range days {
			days[i].DayOfWeek = i
		}
		for _, s := range stats {
			dow := summary.DayOfWeekMon0(s.Date)
			days[dow].Occurrences++
			days[dow].Revenue += s.Revenue
			receipts[dow] += s.Receipts
		}

		result := &DayOfWeekResult{Days: make([]WeekdayRow, 0, 7)}
		best, worst := -1, -1
		var bestAvg, worstAvg int64
		for i := range days {
			if days[i].Occurrences > 0 {
				days[i].AvgRevenue = model.RoundDiv(days[i].Revenue, int64(days[i].Occurrences))
				days[i].AvgReceipts = model.RoundDiv(receipts[i], int64(days[i].Occurrences))
			}
			result.Days = append(result.Days, days[i])
			if days[i].Occurrences == 0 {
				continue
			}
			if best == -1 || days[i].AvgRevenue > bestAvg {
				best, bestAvg = i, days[i].AvgRevenue
			}
			if worst == -1 || days[i].AvgRevenue < worstAvg {
				worst, worstAvg = i, days[i].AvgRevenue
			}
		}
		result.BestDay = best
		result.WorstDay = worst
		return result, nil
	})
}
