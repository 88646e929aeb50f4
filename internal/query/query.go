// Package query serves dashboard aggregations over the derived tables,
// falling back to the raw fact scan when a pre-aggregate is missing or a
// filter cannot be answered from one. Every query runs under a time budget
// and reports a typed timeout when it blows it.
package query

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/errs"
	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
	"github.com/platewise/platewise/internal/summary"
)

// DefaultWindowDays is the range applied when the caller gives no dates:
// the window ends today in the tenant's timezone and spans this many days.
const DefaultWindowDays = 90

// Queries answers dashboard reads. All methods are safe for concurrent use.
type Queries struct {
	store   store.Store
	timeout time.Duration
	now     func() time.Time
}

func New(s store.Store, timeout time.Duration) *Queries {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Queries{store: s, timeout: timeout, now: time.Now}
}

// Filter is the caller-facing query scope. Dates are "2006-01-02" strings
// interpreted as local calendar dates, both inclusive; empty dates take the
// default window.
type Filter struct {
	TenantID   string
	StartDate  string
	EndDate    string
	Branches   []string
	Categories []string
}

// resolved is a validated filter with the tenant loaded and concrete date
// bounds. start and end are local calendar dates held at midnight UTC.
type resolved struct {
	tenant     *model.Tenant
	loc        *time.Location
	start, end time.Time
	branches   []string
	categories []string
}

func (q *Queries) resolve(ctx context.Context, f Filter) (*resolved, error) {
	if f.TenantID == "" {
		return nil, errs.Validationf("tenant id is required")
	}
	tenant, err := q.store.GetTenant(ctx, f.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, errs.Validationf("unknown tenant: %s", f.TenantID)
	}
	loc := tenant.Location()

	today := summary.LocalDate(q.now().In(loc))
	end := today
	if f.EndDate != "" {
		end, err = time.Parse(store.DateOnly, f.EndDate)
		if err != nil {
			return nil, errs.Validationf("invalid end date %q", f.EndDate)
		}
	}
	start := end.AddDate(0, 0, -(DefaultWindowDays - 1))
	if f.StartDate != "" {
		start, err = time.Parse(store.DateOnly, f.StartDate)
		if err != nil {
			return nil, errs.Validationf("invalid start date %q", f.StartDate)
		}
	}
	if start.After(end) {
		return nil, errs.Validationf("start date %s is after end date %s",
			start.Format(store.DateOnly), end.Format(store.DateOnly))
	}

	return &resolved{
		tenant:     tenant,
		loc:        loc,
		start:      start,
		end:        end,
		branches:   f.Branches,
		categories: f.Categories,
	}, nil
}

// run applies the time budget to one query and converts a blown deadline
// into the typed timeout error.
func run[T any](ctx context.Context, q *Queries, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	started := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(started)
	if err != nil {
		var zero T
		return zero, errs.FromContext(err, op, q.timeout.String())
	}
	zap.L().Debug("query served", zap.String("op", op), zap.Duration("elapsed", elapsed))
	return result, nil
}

func (r *resolved) summaryFilter() store.SummaryFilter {
	return store.SummaryFilter{
		Start:      r.start,
		End:        r.end,
		Branches:   r.branches,
		Categories: r.categories,
	}
}

// utcBounds converts the inclusive local date range to half-open UTC
// instants for the fact scan.
func (r *resolved) utcBounds() (time.Time, time.Time) {
	start := time.Date(r.start.Year(), r.start.Month(), r.start.Day(), 0, 0, 0, 0, r.loc)
	endExcl := time.Date(r.end.Year(), r.end.Month(), r.end.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, 1)
	return start.UTC(), endExcl.UTC()
}

// scanRange reads the raw facts for the resolved range with the exclusion
// registry applied.
func (q *Queries) scanRange(ctx context.Context, r *resolved) ([]model.Transaction, error) {
	startUTC, endUTC := r.utcBounds()
	txs, err := q.store.ScanTransactions(ctx, r.tenant.ID, store.TransactionFilter{
		Start:      startUTC,
		End:        endUTC,
		Branches:   r.branches,
		Categories: r.categories,
	})
	if err != nil {
		return nil, err
	}
	resolver, err := exclusion.Load(ctx, q.store, r.tenant.ID)
	if err != nil {
		return nil, err
	}
	kept := txs[:0]
	for _, tx := range txs {
		if !resolver.Excluded(tx.ItemName) {
			kept = append(kept, tx)
		}
	}
	return kept, nil
}

// hourlyRows serves the hourly buckets for the range, preferring the
// pre-aggregate and rebuilding from the facts when it is absent.
func (q *Queries) hourlyRows(ctx context.Context, r *resolved) ([]model.HourlySummaryRow, error) {
	has, err := q.store.HasDerived(ctx, r.tenant.ID, model.TableHourlySummaries)
	if err != nil {
		return nil, err
	}
	if has {
		return q.store.ListHourlySummaries(ctx, r.tenant.ID, r.summaryFilter())
	}

	txs, err := q.scanRange(ctx, r)
	if err != nil {
		return nil, err
	}
	return summary.BuildHourly(txs, nil, r.loc), nil
}

// dayStat is one local day's totals, the shared intermediate for the
// overview, trend, branch and day-of-week aggregations.
type dayStat struct {
	Date     time.Time
	Revenue  int64
	TxCount  int64
	Receipts int64
}

// dailyStats aggregates per local day. The daily branch summaries answer
// this directly unless a category filter is present; receipt counts are
// additive across branches and days because a receipt belongs to exactly
// one of each.
func (q *Queries) dailyStats(ctx context.Context, r *resolved) ([]dayStat, error) {
	if len(r.categories) == 0 {
		has, err := q.store.HasDerived(ctx, r.tenant.ID, model.TableBranchSummaries)
		if err != nil {
			return nil, err
		}
		if has {
			rows, err := q.store.ListBranchSummaries(ctx, r.tenant.ID, model.PeriodDaily, r.summaryFilter())
			if err != nil {
				return nil, err
			}
			byDate := make(map[time.Time]*dayStat)
			for _, row := range rows {
				stat, ok := byDate[row.PeriodStart]
				if !ok {
					stat = &dayStat{Date: row.PeriodStart}
					byDate[row.PeriodStart] = stat
				}
				stat.Revenue += row.Revenue
				stat.TxCount += row.TransactionCount
				stat.Receipts += row.ReceiptCount
			}
			return sortedDayStats(byDate), nil
		}
	}

	txs, err := q.scanRange(ctx, r)
	if err != nil {
		return nil, err
	}
	byDate := make(map[time.Time]*dayStat)
	receipts := make(map[time.Time]map[string]struct{})
	for _, tx := range txs {
		date := summary.LocalDate(tx.ReceiptTimestamp.In(r.loc))
		stat, ok := byDate[date]
		if !ok {
			stat = &dayStat{Date: date}
			byDate[date] = stat
			receipts[date] = make(map[string]struct{})
		}
		stat.Revenue += tx.GrossRevenue
		stat.TxCount++
		receipts[date][tx.ReceiptNumber] = struct{}{}
	}
	for date, set := range receipts {
		byDate[date].Receipts = int64(len(set))
	}
	return sortedDayStats(byDate), nil
}

func sortedDayStats(byDate map[time.Time]*dayStat) []dayStat {
	stats := make([]dayStat, 0, len(byDate))
	for _, stat := range byDate {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date.Before(stats[j].Date) })
	return stats
}

func sumDayStats(stats []dayStat) (revenue, txCount, receipts int64) {
	for _, s := range stats {
		revenue += s.Revenue
		txCount += s.TxCount
		receipts += s.Receipts
	}
	return revenue, txCount, receipts
}
