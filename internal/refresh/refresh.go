// Package refresh rebuilds a tenant's derived tables from the transaction
// facts. Runs for the same tenant are serialized; different tenants refresh
// in parallel. Each derived table commits its delete+insert atomically, so
// a failed run leaves the previous generation readable.
package refresh

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/platewise/internal/basket"
	"github.com/platewise/platewise/internal/errs"
	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/rollup"
	"github.com/platewise/platewise/internal/store"
	"github.com/platewise/platewise/internal/summary"
)

// Orchestrator coordinates refresh runs over a store.
type Orchestrator struct {
	store store.Store
	now   func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(s store.Store) *Orchestrator {
	return &Orchestrator{
		store:    s,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// WithClock pins the orchestrator's notion of now, for deterministic
// analysis windows in tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) acquire(tenantID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[tenantID] {
		return false
	}
	o.inFlight[tenantID] = true
	return true
}

func (o *Orchestrator) release(tenantID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, tenantID)
}

// RefreshTenant rebuilds all four derived tables for one tenant. A second
// call for the same tenant while one is running returns ErrRefreshInFlight
// without queueing.
func (o *Orchestrator) RefreshTenant(ctx context.Context, tenantID string) (*model.RefreshResult, error) {
	tenant, err := o.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, errs.Validationf("unknown tenant: %s", tenantID)
	}
	if !o.acquire(tenantID) {
		return nil, errs.ErrRefreshInFlight
	}
	defer o.release(tenantID)

	log := zap.L().With(zap.String("tenant_id", tenantID))
	started := o.now()

	run, err := o.store.CreateRefreshRun(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := o.store.UpdateRefreshRunStatus(ctx, run.ID, model.RefreshRunning); err != nil {
		return nil, err
	}

	result, err := o.rebuild(ctx, tenant, log)
	result.TenantID = tenantID
	result.DurationMs = o.now().Sub(started).Milliseconds()

	if err != nil {
		log.Error("refresh failed",
			zap.String("run_id", run.ID),
			zap.String("failed_table", result.FailedTable),
			zap.Error(err))
		if completeErr := o.store.CompleteRefreshRun(ctx, run.ID, model.RefreshFailed, result, err.Error()); completeErr != nil {
			log.Error("failed to record refresh failure", zap.Error(completeErr))
		}
		return result, err
	}

	if err := o.store.CompleteRefreshRun(ctx, run.ID, model.RefreshSucceeded, result, ""); err != nil {
		return result, err
	}
	log.Info("refresh complete",
		zap.String("run_id", run.ID),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// rebuild scans the facts once, derives all four datasets in memory, then
// replaces the tables in parallel.
func (o *Orchestrator) rebuild(ctx context.Context, tenant *model.Tenant, log *zap.Logger) (*model.RefreshResult, error) {
	result := &model.RefreshResult{Tables: make(map[string]model.TableCounts)}

	txs, err := o.store.ScanTransactions(ctx, tenant.ID, store.TransactionFilter{})
	if err != nil {
		return result, err
	}
	resolver, err := exclusion.Load(ctx, o.store, tenant.ID)
	if err != nil {
		return result, err
	}
	log.Debug("fact scan complete",
		zap.Int("transactions", len(txs)),
		zap.Int("exclusions", resolver.Len()))

	loc := tenant.Location()
	asOf := o.now().UTC()

	rollups := rollup.Build(txs, resolver, loc, asOf)
	hourly := summary.BuildHourly(txs, resolver, loc)
	branch := summary.BuildBranch(txs, resolver, loc)

	windowStart, windowEnd := basket.ClampWindow(asOf.AddDate(0, 0, -basket.MaxWindowDays), asOf)
	pairs := basket.Analyze(windowTxs(txs, windowStart, windowEnd), resolver, windowStart, windowEnd, basket.Options{})

	var mu sync.Mutex
	record := func(table string, counts model.TableCounts, err error) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if result.FailedTable == "" {
				result.FailedTable = table
			}
			return err
		}
		result.Tables[table] = counts
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := o.store.ReplaceMenuItemRollups(gctx, tenant.ID, rollups)
		return record(model.TableRollups, counts, err)
	})
	g.Go(func() error {
		counts, err := o.store.ReplaceHourlySummaries(gctx, tenant.ID, hourly)
		return record(model.TableHourlySummaries, counts, err)
	})
	g.Go(func() error {
		counts, err := o.store.ReplaceBranchSummaries(gctx, tenant.ID, branch)
		return record(model.TableBranchSummaries, counts, err)
	})
	g.Go(func() error {
		counts, err := o.store.ReplaceItemPairs(gctx, tenant.ID, pairs)
		return record(model.TableItemPairs, counts, err)
	})
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func windowTxs(txs []model.Transaction, start, end time.Time) []model.Transaction {
	var in []model.Transaction
	for _, tx := range txs {
		if !tx.ReceiptTimestamp.Before(start) && tx.ReceiptTimestamp.Before(end) {
			in = append(in, tx)
		}
	}
	return in
}

// TenantOutcome is one tenant's result from RefreshAll.
type TenantOutcome struct {
	TenantID string
	Result   *model.RefreshResult
	Err      error
}

// RefreshAll refreshes every active tenant, at most concurrency tenants at
// a time. One tenant's failure does not stop the others; each outcome is
// reported separately.
func (o *Orchestrator) RefreshAll(ctx context.Context, concurrency int) ([]TenantOutcome, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	tenants, err := o.store.ListTenants(ctx, true)
	if err != nil {
		return nil, err
	}

	outcomes := make([]TenantOutcome, len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, tenant := range tenants {
		g.Go(func() error {
			result, err := o.RefreshTenant(gctx, tenant.ID)
			outcomes[i] = TenantOutcome{TenantID: tenant.ID, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait() // per-tenant errors are carried in the outcomes
	return outcomes, nil
}
