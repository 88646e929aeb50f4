package store

import (
	"context"
	"time"

	"github.com/platewise/platewise/internal/model"
)

// TransactionFilter narrows a fact-table scan. Time bounds are UTC
// instants; Start is inclusive, End exclusive. Zero values leave the bound
// open. Rows flagged excluded at import time are skipped unless
// IncludeFlagged is set; the named-item registry is applied separately by
// the exclusion resolver.
type TransactionFilter struct {
	Start          time.Time
	End            time.Time
	Branches       []string
	Categories     []string
	IncludeFlagged bool
}

// RollupFilter narrows a menu-item rollup listing. Zero numeric bounds are
// treated as unset.
type RollupFilter struct {
	Categories      []string
	MacroCategory   string
	CoreOnly        bool
	CurrentOnly     bool
	MinPrice        int64
	MaxPrice        int64
	MinQuantity     int64
	IncludeExcluded bool
}

// SummaryFilter narrows pre-aggregate reads. Start and End are local
// calendar dates, both inclusive; zero values leave the bound open.
type SummaryFilter struct {
	Start      time.Time
	End        time.Time
	Branches   []string
	Categories []string
}

// Store is the persistence interface of the analytics core: the read-only
// fact scan, the exclusion registry, and the derived tables the refresh
// builders own. Derived tables are replaced wholesale per tenant; each
// Replace call runs its delete+insert as one failure-atomic transaction so
// a failed refresh leaves the previous generation intact.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t model.Tenant) (*model.Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error)

	// Fact store. Inserts exist for the import pipeline and the demo
	// seeder; the engine itself never mutates facts.
	InsertTransactions(ctx context.Context, txs []model.Transaction) (int64, error)
	ScanTransactions(ctx context.Context, tenantID string, f TransactionFilter) ([]model.Transaction, error)

	// Exclusion registry
	AddExclusions(ctx context.Context, tenantID string, itemNames []string, reason, excludedBy string) (int64, error)
	RemoveExclusion(ctx context.Context, tenantID, itemName string) error
	ListExclusions(ctx context.Context, tenantID string) ([]model.ExclusionEntry, error)

	// Derived tables: full delete-then-insert per tenant, one transaction
	// per table.
	ReplaceMenuItemRollups(ctx context.Context, tenantID string, rows []model.MenuItemRollup) (model.TableCounts, error)
	ReplaceHourlySummaries(ctx context.Context, tenantID string, rows []model.HourlySummaryRow) (model.TableCounts, error)
	ReplaceBranchSummaries(ctx context.Context, tenantID string, rows []model.BranchSummaryRow) (model.TableCounts, error)
	ReplaceItemPairs(ctx context.Context, tenantID string, rows []model.ItemPairRow) (model.TableCounts, error)

	// Derived reads for the query layer.
	ListMenuItemRollups(ctx context.Context, tenantID string, f RollupFilter) ([]model.MenuItemRollup, error)
	ListHourlySummaries(ctx context.Context, tenantID string, f SummaryFilter) ([]model.HourlySummaryRow, error)
	ListBranchSummaries(ctx context.Context, tenantID string, period model.PeriodType, f SummaryFilter) ([]model.BranchSummaryRow, error)
	ListItemPairs(ctx context.Context, tenantID string, minFrequency int64, limit int) ([]model.ItemPairRow, error)
	HasDerived(ctx context.Context, tenantID, table string) (bool, error)

	// Refresh run bookkeeping.
	CreateRefreshRun(ctx context.Context, tenantID string) (*model.RefreshRun, error)
	UpdateRefreshRunStatus(ctx context.Context, runID string, status model.RefreshStatus) error
	CompleteRefreshRun(ctx context.Context, runID string, status model.RefreshStatus, result *model.RefreshResult, errMsg string) error
	ListRefreshRuns(ctx context.Context, tenantID string, limit int) ([]model.RefreshRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DateOnly is the storage format for local calendar dates.
const DateOnly = "2006-01-02"
