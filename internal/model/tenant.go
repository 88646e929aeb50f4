package model

import "time"

// Tenant is one independent restaurant business. All data and derived
// state is partitioned by tenant; no cross-tenant reads exist anywhere.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"` // IANA name, e.g. "Asia/Manila"
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location resolves the tenant's configured timezone, falling back to UTC
// when the name is empty or unknown.
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
