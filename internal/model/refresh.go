package model

import "time"

// RefreshStatus is the state of one refresh run. A run is a single atomic
// pass; failed runs leave the previous generation's derived tables intact.
type RefreshStatus string

const (
	RefreshPending   RefreshStatus = "pending"
	RefreshRunning   RefreshStatus = "running"
	RefreshSucceeded RefreshStatus = "succeeded"
	RefreshFailed    RefreshStatus = "failed"
)

// Derived table names used in refresh results and failure reports.
const (
	TableRollups         = "menu_item_rollups"
	TableHourlySummaries = "hourly_summaries"
	TableBranchSummaries = "branch_summaries"
	TableItemPairs       = "item_pairs"
)

// TableCounts reports the delete+insert volume of one derived table's
// refresh.
type TableCounts struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// RefreshResult is the outcome of one RefreshTenant invocation.
type RefreshResult struct {
	TenantID    string                 `json:"tenant_id"`
	Tables      map[string]TableCounts `json:"tables"`
	DurationMs  int64                  `json:"duration_ms"`
	FailedTable string                 `json:"failed_table,omitempty"`
}

// RefreshRun is the persisted record of one refresh, kept for operator
// visibility into when each tenant's derived generation was last rebuilt.
type RefreshRun struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Status     RefreshStatus  `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Result     *RefreshResult `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}
