package query

import (
	"context"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
)

// Overview is the dashboard headline: range totals plus growth against the
// immediately preceding window of the same length.
type Overview struct {
	TenantID         string   `json:"tenant_id"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	TotalRevenue     int64    `json:"total_revenue"`
	TransactionCount int64    `json:"transaction_count"`
	ReceiptCount     int64    `json:"receipt_count"`
	AvgTicket        int64    `json:"avg_ticket"`
	ActiveDays       int      `json:"active_days"`
	RevenueGrowth    *float64 `json:"revenue_growth,omitempty"` // percent vs previous window
	ReceiptGrowth    *float64 `json:"receipt_growth,omitempty"`
}

func (q *Queries) Overview(ctx context.Context, f Filter) (*Overview, error) {
	return run(ctx, q, "overview", func(ctx context.Context) (*Overview, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		stats, err := q.dailyStats(ctx, r)
		if err != nil {
			return nil, err
		}
		revenue, txCount, receipts := sumDayStats(stats)

		// Previous window of equal length ending the day before start.
		days := int(r.end.Sub(r.start).Hours()/24) + 1
		prev := *r
		prev.end = r.start.AddDate(0, 0, -1)
		prev.start = prev.end.AddDate(0, 0, -(days - 1))
		prevStats, err := q.dailyStats(ctx, &prev)
		if err != nil {
			return nil, err
		}
		prevRevenue, _, prevReceipts := sumDayStats(prevStats)

		active := 0
		for _, s := range stats {
			if s.Revenue > 0 {
				active++
			}
		}

		return &Overview{
			TenantID:         r.tenant.ID,
			StartDate:        r.start.Format(store.DateOnly),
			EndDate:          r.end.Format(store.DateOnly),
			TotalRevenue:     revenue,
			TransactionCount: txCount,
			ReceiptCount:     receipts,
			AvgTicket:        model.RoundDiv(revenue, receipts),
			ActiveDays:       active,
			RevenueGrowth:    model.Growth1(revenue, prevRevenue),
			ReceiptGrowth:    model.Growth1(receipts, prevReceipts),
		}, nil
	})
}
