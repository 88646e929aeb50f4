package model

import "time"

// Transaction is one sold line item in the append-only fact table.
// Monetary fields are integers in minor currency units. Rows are immutable
// once written except for the excluded flag and the import batch id used
// for rollback of a failed import.
type Transaction struct {
	ID                     string    `json:"id"`
	TenantID               string    `json:"tenant_id"`
	ReceiptNumber          string    `json:"receipt_number"`
	ReceiptTimestamp       time.Time `json:"receipt_timestamp"` // UTC
	ItemName               string    `json:"item_name"`
	Category               string    `json:"category"`
	MacroCategory          string    `json:"macro_category"`
	Quantity               int64     `json:"quantity"`
	UnitPrice              int64     `json:"unit_price"`
	Subtotal               int64     `json:"subtotal"`
	Discount               int64     `json:"discount"` // encoded non-positive
	Tax                    int64     `json:"tax"`
	AllocatedServiceCharge int64     `json:"allocated_service_charge"`
	GrossRevenue           int64     `json:"gross_revenue"` // subtotal + tax + service charge + discount
	Branch                 string    `json:"branch"`
	IsExcluded             bool      `json:"is_excluded"`
	ImportBatchID          string    `json:"import_batch_id,omitempty"`
}

// ExclusionEntry is one row of the tenant's named-item exclusion registry.
// Membership removes the item from every rollup regardless of the per-row
// transaction flag.
type ExclusionEntry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ItemName   string    `json:"item_name"`
	Reason     string    `json:"reason"`
	ExcludedBy string    `json:"excluded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Valid exclusion reasons, matching the registry's import surface.
const (
	ReasonModifier      = "modifier"
	ReasonNonAnalytical = "non_analytical"
	ReasonLowVolume     = "low_volume"
	ReasonManual        = "manual"
)

// ValidReason reports whether reason is one of the accepted registry reasons.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonModifier, ReasonNonAnalytical, ReasonLowVolume, ReasonManual:
		return true
	}
	return false
}
