package query

import (
	"context"
	"sort"
	"time"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/summary"
)

// BranchRow is one branch's totals within the range.
type BranchRow struct {
	Branch           string  `json:"branch"`
	Revenue          int64   `json:"revenue"`
	TransactionCount int64   `json:"transaction_count"`
	ReceiptCount     int64   `json:"receipt_count"`
	AvgTicket        int64   `json:"avg_ticket"`
	RevenueShare     float64 `json:"revenue_share"` // percent
}

func (q *Queries) Branches(ctx context.Context, f Filter) ([]BranchRow, error) {
	return run(ctx, q, "branches", func(ctx context.Context) ([]BranchRow, error) {
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}

		byBranch := make(map[string]*BranchRow)
		add := func(branch string, revenue, txCount, receipts int64) {
			row, ok := byBranch[branch]
			if !ok {
				row = &BranchRow{Branch: branch}
				byBranch[branch] = row
			}
			row.Revenue += revenue
			row.TransactionCount += txCount
			row.ReceiptCount += receipts
		}

		fast := len(r.categories) == 0
		if fast {
			has, err := q.store.HasDerived(ctx, r.tenant.ID, model.TableBranchSummaries)
			if err != nil {
				return nil, err
			}
			fast = has
		}
		if fast {
			rows, err := q.store.ListBranchSummaries(ctx, r.tenant.ID, model.PeriodDaily, r.summaryFilter())
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				add(row.Branch, row.Revenue, row.TransactionCount, row.ReceiptCount)
			}
		} else {
			txs, err := q.scanRange(ctx, r)
			if err != nil {
				return nil, err
			}
			type dayBranch struct {
				date   time.Time
				branch string
			}
			receipts := make(map[dayBranch]map[string]struct{})
			for _, tx := range txs {
				add(tx.Branch, tx.GrossRevenue, 1, 0)
				key := dayBranch{date: summary.LocalDate(tx.ReceiptTimestamp.In(r.loc)), branch: tx.Branch}
				set, ok := receipts[key]
				if !ok {
					set = make(map[string]struct{})
					receipts[key] = set
				}
				set[tx.ReceiptNumber] = struct{}{}
			}
			for key, set := range receipts {
				byBranch[key.branch].ReceiptCount += int64(len(set))
			}
		}

		var total int64
		for _, row := range byBranch {
			total += row.Revenue
		}
		result := make([]BranchRow, 0, len(byBranch))
		for _, row := range byBranch {
			row.AvgTicket = model.RoundDiv(row.Revenue, row.ReceiptCount)
			row.RevenueShare = model.Percent1(row.Revenue, total)
			result = append(result, *row)
		}
		sort.Slice(result, func(i, j int) bool {
			if result[i].Revenue != result[j].Revenue {
				return result[i].Revenue > result[j].Revenue
			}
			return result[i].Branch < result[j].Branch
		})
		return result, nil
	})
}
