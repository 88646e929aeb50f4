package query

import (
	"context"
	"sort"
	"time"

	"github.com/platewise/platewise/internal/errs"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
	"github.com/platewise/platewise/internal/summary"
)

// TrendPoint is one period of the revenue series. Growth compares to the
// previous point and is nil for the first point or when the previous
// period had no revenue.
type TrendPoint struct {
	PeriodStart      string   `json:"period_start"`
	Revenue          int64    `json:"revenue"`
	TransactionCount int64    `json:"transaction_count"`
	ReceiptCount     int64    `json:"receipt_count"`
	AvgTicket        int64    `json:"avg_ticket"`
	Growth           *float64 `json:"growth,omitempty"` // percent vs previous point
}

// TrendsResult is the series plus the range's best and worst days. Days
// with zero revenue are not candidates for worst; a closed day says
// nothing about performance.
type TrendsResult struct {
	Granularity  model.PeriodType `json:"granularity"`
	Points       []TrendPoint     `json:"points"`
	BestDay      string           `json:"best_day,omitempty"`
	BestRevenue  int64            `json:"best_revenue,omitempty"`
	WorstDay     string           `json:"worst_day,omitempty"`
	WorstRevenue int64            `json:"worst_revenue,omitempty"`
}

func (q *Queries) Trends(ctx context.Context, f Filter, granularity model.PeriodType) (*TrendsResult, error) {
	return run(ctx, q, "trends", func(ctx context.Context) (*TrendsResult, error) {
		switch granularity {
		case "":
			granularity = model.PeriodDaily
		case model.PeriodDaily, model.PeriodWeekly, model.PeriodMonthly:
		default:
			return nil, errs.Validationf("unknown granularity %q", granularity)
		}
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		stats, err := q.dailyStats(ctx, r)
		if err != nil {
			return nil, err
		}

		byPeriod := make(map[time.Time]*TrendPoint)
		order := make(map[time.Time]time.Time, len(stats))
		for _, s := range stats {
			start := s.Date
			switch granularity {
			case model.PeriodWeekly:
				start = summary.ISOWeekStart(s.Date)
			case model.PeriodMonthly:
				start = summary.MonthStart(s.Date)
			}
			order[start] = start
			p, ok := byPeriod[start]
			if !ok {
				p = &TrendPoint{PeriodStart: start.Format(store.DateOnly)}
				byPeriod[start] = p
			}
			p.Revenue += s.Revenue
			p.TransactionCount += s.TxCount
			p.ReceiptCount += s.Receipts
		}

		starts := make([]time.Time, 0, len(order))
		for start := range order {
			starts = append(starts, start)
		}
		sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

		result := &TrendsResult{Granularity: granularity}
		var prevRevenue int64
		for i, start := range starts {
			p := byPeriod[start]
			p.AvgTicket = model.RoundDiv(p.Revenue, p.ReceiptCount)
			if i > 0 {
				p.Growth = model.Growth1(p.Revenue, prevRevenue)
			}
			prevRevenue = p.Revenue
			result.Points = append(result.Points, *p)
		}

		for _, s := range stats {
			if s.Revenue <= 0 {
				continue
			}
			if result.BestDay == "" || s.Revenue > result.BestRevenue {
				result.BestDay = s.Date.Format(store.DateOnly)
				result.BestRevenue = s.Revenue
			}
			if result.WorstDay == "" || s.Revenue < result.WorstRevenue {
				result.WorstDay = s.Date.Format(store.DateOnly)
				result.WorstRevenue = s.Revenue
			}
		}
		return result, nil
	})
}

// YearMonth is one year's totals for the compared month.
type YearMonth struct {
	Year         int      `json:"year"`
	Revenue      int64    `json:"revenue"`
	ReceiptCount int64    `json:"receipt_count"`
	Growth       *float64 `json:"growth,omitempty"` // percent vs the prior year
}

// YearOverYearResult compares one calendar month across the most recent
// years with data, oldest first, at most three.
type YearOverYearResult struct {
	Month int         `json:"month"`
	Years []YearMonth `json:"years"`
}

func (q *Queries) YearOverYear(ctx context.Context, f Filter, month int) (*YearOverYearResult, error) {
	return run(ctx, q, "year_over_year", func(ctx context.Context) (*YearOverYearResult, error) {
		if month < 1 || month > 12 {
			return nil, errs.Validationf("month must be 1..12, got %d", month)
		}
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		// The comparison spans all history regardless of the range filter.
		r.start = time.Time{}
		r.end = summary.LocalDate(q.now().In(r.loc))

		byYear := make(map[int]*YearMonth)
		has, err := q.store.HasDerived(ctx, r.tenant.ID, model.TableBranchSummaries)
		if err != nil {
			return nil, err
		}
		if has && len(r.categories) == 0 {
			rows, err := q.store.ListBranchSummaries(ctx, r.tenant.ID, model.PeriodMonthly, store.SummaryFilter{Branches: r.branches})
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				if int(row.PeriodStart.Month()) != month {
					continue
				}
				y := yearEntry(byYear, row.PeriodStart.Year())
				y.Revenue += row.Revenue
				y.ReceiptCount += row.ReceiptCount
			}
		} else {
			stats, err := q.dailyStats(ctx, r)
			if err != nil {
				return nil, err
			}
			for _, s := range stats {
				if int(s.Date.Month()) != month {
					continue
				}
				y := yearEntry(byYear, s.Date.Year())
				y.Revenue += s.Revenue
				y.ReceiptCount += s.Receipts
			}
		}

		years := make([]int, 0, len(byYear))
		for year := range byYear {
			years = append(years, year)
		}
		sort.Ints(years)
		if len(years) > 3 {
			years = years[len(years)-3:]
		}

		result := &YearOverYearResult{Month: month}
		for _, year := range years {
			entry := *byYear[year]
			if prev, ok := byYear[year-1]; ok {
				entry.Growth = model.Growth1(entry.Revenue, prev.Revenue)
			}
			result.Years = append(result.Years, entry)
		}
		return result, nil
	})
}

func yearEntry(byYear map[int]*YearMonth, year int) *YearMonth {
	y, ok := byYear[year]
	if !ok {
		y = &YearMonth{Year: year}
		byYear[year] = y
	}
	return y
}
