// Package exclusion resolves the tenant's named-item exclusion registry.
// Builders and queries consult a resolver snapshot instead of re-reading the
// registry table per item.
package exclusion

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/platewise/platewise/internal/model"
	"github.com/platewise/platewise/internal/store"
)

// Resolver answers whether an item name is excluded from analytics.
type Resolver interface {
	Excluded(itemName string) bool
}

// Snapshot is an immutable in-memory resolver loaded once per refresh or
// query. Lookups are case-insensitive on the trimmed item name, matching how
// POS exports vary casing between imports.
type Snapshot struct {
	names map[string]string // normalized name -> reason
}

// Load reads the tenant's registry into a snapshot.
func Load(ctx context.Context, s store.Store, tenantID string) (*Snapshot, error) {
	entries, err := s.ListExclusions(ctx, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "exclusion: load registry")
	}
	return NewSnapshot(entries), nil
}

// NewSnapshot builds a resolver from registry entries.
func NewSnapshot(entries []model.ExclusionEntry) *Snapshot {
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		names[normalize(e.ItemName)] = e.Reason
	}
	return &Snapshot{names: names}
}

func (s *Snapshot) Excluded(itemName string) bool {
	_, ok := s.names[normalize(itemName)]
	return ok
}

// Reason returns the registry reason for an excluded item, or "" if the item
// is not excluded.
func (s *Snapshot) Reason(itemName string) string {
	return s.names[normalize(itemName)]
}

// Len reports the number of registry entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.names)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
