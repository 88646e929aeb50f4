package model

import "time"

// HourlySummaryRow is one pre-aggregated bucket of the hourly summary
// table: (tenant, local date, local hour, branch, category). Date, hour and
// day-of-week are in the tenant's configured timezone, not UTC.
type HourlySummaryRow struct {
	TenantID         string    `json:"tenant_id"`
	SummaryDate      time.Time `json:"summary_date"` // local calendar date
	Hour             int       `json:"hour"`         // 0-23 local
	DayOfWeek        int       `json:"day_of_week"`  // 0=Monday .. 6=Sunday
	Branch           string    `json:"branch"`
	Category         string    `json:"category"`
	MacroCategory    string    `json:"macro_category"`
	Revenue          int64     `json:"revenue"`
	Quantity         int64     `json:"quantity"`
	TransactionCount int64     `json:"transaction_count"` // line items
}

// PeriodType selects one of the three branch summary granularities.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// TopItem is one entry of a branch summary's precomputed top-items list.
type TopItem struct {
	ItemName string `json:"item_name"`
	Quantity int64  `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

// CategoryTotals is one entry of a branch summary's category breakdown.
type CategoryTotals struct {
	Revenue  int64 `json:"revenue"`
	Quantity int64 `json:"quantity"`
}

// BranchSummaryRow is one (tenant, period type, period start, branch)
// pre-aggregate. TopItems and CategoryBreakdown are serialized into the row
// so dashboard reads avoid an O(periods x items) join.
type BranchSummaryRow struct {
	TenantID          string                    `json:"tenant_id"`
	PeriodType        PeriodType                `json:"period_type"`
	PeriodStart       time.Time                 `json:"period_start"` // local date
	Branch            string                    `json:"branch"`
	Revenue           int64                     `json:"revenue"`
	TransactionCount  int64                     `json:"transaction_count"`
	ReceiptCount      int64                     `json:"receipt_count"`
	AvgTicket         int64                     `json:"avg_ticket"`
	TopItems          []TopItem                 `json:"top_items"`
	CategoryBreakdown map[string]CategoryTotals `json:"category_breakdown"`
}

// ItemPairRow is one co-occurring item pair from the market basket
// analyzer. ItemA sorts strictly before ItemB; support is a fraction of
// the distinct receipts observed in the analysis window, always in [0,1].
type ItemPairRow struct {
	TenantID    string    `json:"tenant_id"`
	ItemA       string    `json:"item_a"`
	ItemB       string    `json:"item_b"`
	Frequency   int64     `json:"frequency"`
	Support     float64   `json:"support"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}
