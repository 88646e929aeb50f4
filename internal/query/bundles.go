package query

import (
	"context"

	"github.com/platewise/platewise/internal/basket"
	"github.com/platewise/platewise/internal/errs"
	"github.com/platewise/platewise/internal/exclusion"
	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
)

// BundleOptions tunes the bundle query. Zero values take the analyzer
// defaults.
type BundleOptions struct {
	MinFrequency int64
	Limit        int
}

// BundlesResult reports co-purchased pairs. Source says whether the
// materialized pairs table served the query or it was analyzed live.
type BundlesResult struct {
	Pairs  []model.ItemPairRow `json:"pairs"`
	Source string              `json:"source"` // "materialized" or "live"
}

// Bundles serves the materialized pair table when the caller asks for the
// default window with no branch or category scope; any narrower question
// is analyzed live over the clamped window.
func (q *Queries) Bundles(ctx context.Context, f Filter, opts BundleOptions) (*BundlesResult, error) {
	return run(ctx, q, "bundles", func(ctx context.Context) (*BundlesResult, error) {
		if opts.MinFrequency < 0 {
			return nil, errs.Validationf("min frequency must not be negative")
		}
		if opts.MinFrequency == 0 {
			opts.MinFrequency = basket.DefaultMinFrequency
		}
		if opts.Limit <= 0 || opts.Limit > basket.MaxPairs {
			opts.Limit = 20
		}
		r, err := q.resolve(ctx, f)
		if err != nil {
			return nil, err
		}

		defaultRange := f.StartDate == "" && f.EndDate == "" &&
			len(f.Branches) == 0 && len(f.Categories) == 0
		if defaultRange {
			has, err := q.store.HasDerived(ctx, r.tenant.ID, model.TableItemPairs)
			if err != nil {
				return nil, err
			}
			if has {
				pairs, err := q.store.ListItemPairs(ctx, r.tenant.ID, opts.MinFrequency, opts.Limit)
				if err != nil {
					return nil, err
				}
				return &BundlesResult{Pairs: pairs, Source: "materialized"}, nil
			}
		}

		// Live analysis over the (clamped) requested window.
		startUTC, endUTC := r.utcBounds()
		startUTC, _ = basket.ClampWindow(startUTC, endUTC)
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
		pairs := basket.Analyze(txs, resolver, startUTC, endUTC, basket.Options{
			MinFrequency: opts.MinFrequency,
			TopN:         opts.Limit,
		})
		return &BundlesResult{Pairs: pairs, Source: "live"}, nil
	})
}
