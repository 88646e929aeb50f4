package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/platewise/platewise/internal/db"
	"github.com/platewise/platewise/internal/model"
)

// PostgresStore implements Store on a pgx connection pool. Derived-table
// refreshes bulk-load via the COPY protocol inside the replace transaction.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects a pgx pool to the given database URL and pings it.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests pass a pgxmock pool here.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tenants (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	timezone   TEXT NOT NULL DEFAULT 'UTC',
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id                       UUID PRIMARY KEY,
	tenant_id                UUID NOT NULL REFERENCES tenants(id),
	receipt_number           TEXT NOT NULL,
	receipt_timestamp        TIMESTAMPTZ NOT NULL,
	item_name                TEXT NOT NULL,
	category                 TEXT NOT NULL DEFAULT '',
	macro_category           TEXT NOT NULL DEFAULT 'OTHER',
	quantity                 BIGINT NOT NULL,
	unit_price               BIGINT NOT NULL,
	subtotal                 BIGINT NOT NULL,
	discount                 BIGINT NOT NULL DEFAULT 0,
	tax                      BIGINT NOT NULL DEFAULT 0,
	allocated_service_charge BIGINT NOT NULL DEFAULT 0,
	gross_revenue            BIGINT NOT NULL,
	branch                   TEXT NOT NULL DEFAULT '',
	is_excluded              BOOLEAN NOT NULL DEFAULT FALSE,
	import_batch_id          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_ts ON transactions(tenant_id, receipt_timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_tenant_receipt ON transactions(tenant_id, receipt_number);

CREATE TABLE IF NOT EXISTS excluded_items (
	id          UUID PRIMARY KEY,
	tenant_id   UUID NOT NULL REFERENCES tenants(id),
	item_name   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	excluded_by TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, item_name)
);

CREATE TABLE IF NOT EXISTS menu_item_rollups (
	tenant_id            UUID NOT NULL,
	item_name            TEXT NOT NULL,
	category             TEXT NOT NULL DEFAULT '',
	macro_category       TEXT NOT NULL DEFAULT 'OTHER',
	total_quantity       BIGINT NOT NULL,
	total_revenue        BIGINT NOT NULL,
	avg_price            BIGINT NOT NULL,
	order_count          BIGINT NOT NULL,
	first_sale_date      DATE NOT NULL,
	last_sale_date       DATE NOT NULL,
	months_active        INT NOT NULL,
	days_since_last_sale INT NOT NULL,
	is_core_menu         BOOLEAN NOT NULL,
	is_current_menu      BOOLEAN NOT NULL,
	is_excluded          BOOLEAN NOT NULL,
	quadrant             TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tenant_id, item_name)
);

CREATE TABLE IF NOT EXISTS hourly_summaries (
	tenant_id         UUID NOT NULL,
	summary_date      DATE NOT NULL,
	hour              INT NOT NULL,
	day_of_week       INT NOT NULL,
	branch            TEXT NOT NULL,
	category          TEXT NOT NULL,
	macro_category    TEXT NOT NULL,
	revenue           BIGINT NOT NULL,
	quantity          BIGINT NOT NULL,
	transaction_count BIGINT NOT NULL,
	PRIMARY KEY (tenant_id, summary_date, hour, branch, category)
);

CREATE INDEX IF NOT EXISTS idx_hourly_tenant_date ON hourly_summaries(tenant_id, summary_date);

CREATE TABLE IF NOT EXISTS branch_summaries (
	tenant_id          UUID NOT NULL,
	period_type        TEXT NOT NULL,
	period_start       DATE NOT NULL,
	branch             TEXT NOT NULL,
	revenue            BIGINT NOT NULL,
	transaction_count  BIGINT NOT NULL,
	receipt_count      BIGINT NOT NULL,
	avg_ticket         BIGINT NOT NULL,
	top_items          JSONB NOT NULL,
	category_breakdown JSONB NOT NULL,
	PRIMARY KEY (tenant_id, period_type, period_start, branch)
);

CREATE TABLE IF NOT EXISTS item_pairs (
	tenant_id    UUID NOT NULL,
	item_a       TEXT NOT NULL,
	item_b       TEXT NOT NULL,
	frequency    BIGINT NOT NULL,
	support      DOUBLE PRECISION NOT NULL,
	window_start DATE NOT NULL,
	window_end   DATE NOT NULL,
	PRIMARY KEY (tenant_id, item_a, item_b),
	CHECK (item_a < item_b)
);

CREATE TABLE IF NOT EXISTS refresh_runs (
	id          UUID PRIMARY KEY,
	tenant_id   UUID NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	result      JSONB,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_refresh_runs_tenant ON refresh_runs(tenant_id, started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if pool, ok := s.pool.(*pgxpool.Pool); ok {
		pool.Close()
	}
	return nil
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t model.Tenant) (*model.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (id, name, timezone, is_active) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		t.ID, t.Name, t.Timezone, t.IsActive,
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert tenant")
	}
	return &t, nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, timezone, is_active, created_at FROM tenants WHERE id = $1`, tenantID,
	).Scan(&t.ID, &t.Name, &t.Timezone, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get tenant %s", tenantID)
	}
	return &t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error) {
	query := `SELECT id, name, timezone, is_active, created_at FROM tenants`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tenants")
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Timezone, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tenant")
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

var transactionColumns = []string{
	"id", "tenant_id", "receipt_number", "receipt_timestamp", "item_name", "category",
	"macro_category", "quantity", "unit_price", "subtotal", "discount", "tax",
	"allocated_service_charge", "gross_revenue", "branch", "is_excluded", "import_batch_id",
}

func (s *PostgresStore) InsertTransactions(ctx context.Context, txs []model.Transaction) (int64, error) {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		rows = append(rows, []any{
			t.ID, t.TenantID, t.ReceiptNumber, t.ReceiptTimestamp.UTC(), t.ItemName, t.Category,
			t.MacroCategory, t.Quantity, t.UnitPrice, t.Subtotal, t.Discount, t.Tax,
			t.AllocatedServiceCharge, t.GrossRevenue, t.Branch, t.IsExcluded, t.ImportBatchID,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "transactions", transactionColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert transactions")
	}
	return n, nil
}

func (s *PostgresStore) ScanTransactions(ctx context.Context, tenantID string, f TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT id, tenant_id, receipt_number, receipt_timestamp, item_name, category,
		macro_category, quantity, unit_price, subtotal, discount, tax, allocated_service_charge,
		gross_revenue, branch, is_excluded, import_batch_id
		FROM transactions WHERE tenant_id = $1`
	args := []any{tenantID}

	if !f.IncludeFlagged {
		query += ` AND NOT is_excluded`
	}
	if !f.Start.IsZero() {
		args = append(args, f.Start.UTC())
		query += fmt.Sprintf(` AND receipt_timestamp >= $%d`, len(args))
	}
	if !f.End.IsZero() {
		args = append(args, f.End.UTC())
		query += fmt.Sprintf(` AND receipt_timestamp < $%d`, len(args))
	}
	if len(f.Branches) > 0 {
		args = append(args, f.Branches)
		query += fmt.Sprintf(` AND branch = ANY($%d)`, len(args))
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	query += ` ORDER BY receipt_timestamp`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan transactions")
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ReceiptNumber, &t.ReceiptTimestamp, &t.ItemName,
			&t.Category, &t.MacroCategory, &t.Quantity, &t.UnitPrice, &t.Subtotal, &t.Discount,
			&t.Tax, &t.AllocatedServiceCharge, &t.GrossRevenue, &t.Branch, &t.IsExcluded,
			&t.ImportBatchID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction row")
		}
		t.ReceiptTimestamp = t.ReceiptTimestamp.UTC()
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) AddExclusions(ctx context.Context, tenantID string, itemNames []string, reason, excludedBy string) (int64, error) {
	if len(itemNames) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin add exclusions")
	}
	defer tx.Rollback(ctx)

	var n int64
	for _, name := range itemNames {
		tag, err := tx.Exec(ctx,
			`INSERT INTO excluded_items (id, tenant_id, item_name, reason, excluded_by)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (tenant_id, item_name) DO UPDATE SET reason = EXCLUDED.reason`,
			uuid.New().String(), tenantID, name, reason, excludedBy,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: add exclusion %q", name)
		}
		n += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit add exclusions")
	}
	return n, nil
}

func (s *PostgresStore) RemoveExclusion(ctx context.Context, tenantID, itemName string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM excluded_items WHERE tenant_id = $1 AND item_name = $2`, tenantID, itemName)
	if err != nil {
		return eris.Wrapf(err, "postgres: remove exclusion %q", itemName)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("exclusion not found: %s", itemName)
	}
	return nil
}

func (s *PostgresStore) ListExclusions(ctx context.Context, tenantID string) ([]model.ExclusionEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, item_name, reason, excluded_by, created_at
		 FROM excluded_items WHERE tenant_id = $1 ORDER BY created_at DESC, item_name`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exclusions")
	}
	defer rows.Close()

	var entries []model.ExclusionEntry
	for rows.Next() {
		var e model.ExclusionEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ItemName, &e.Reason, &e.ExcludedBy, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exclusion")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// replaceRows deletes a tenant's derived generation and COPYs the new one
// inside a single transaction.
func (s *PostgresStore) replaceRows(ctx context.Context, table, tenantID string, columns []string, rows [][]any) (model.TableCounts, error) {
	var counts model.TableCounts

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return counts, eris.Wrapf(err, "postgres: begin replace %s", table)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return counts, eris.Wrapf(err, "postgres: delete %s", table)
	}
	counts.Deleted = tag.RowsAffected()

	counts.Inserted, err = db.CopyFromTx(ctx, tx, table, columns, rows)
	if err != nil {
		return model.TableCounts{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.TableCounts{}, eris.Wrapf(err, "postgres: commit replace %s", table)
	}
	return counts, nil
}

func (s *PostgresStore) ReplaceMenuItemRollups(ctx context.Context, tenantID string, rollups []model.MenuItemRollup) (model.TableCounts, error) {
	columns := []string{
		"tenant_id", "item_name", "category", "macro_category", "total_quantity", "total_revenue",
		"avg_price", "order_count", "first_sale_date", "last_sale_date", "months_active",
		"days_since_last_sale", "is_core_menu", "is_current_menu", "is_excluded", "quadrant",
	}
	rows := make([][]any, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, []any{
			tenantID, r.ItemName, r.Category, r.MacroCategory, r.TotalQuantity, r.TotalRevenue,
			r.AvgPrice, r.OrderCount, r.FirstSaleDate, r.LastSaleDate, r.MonthsActive,
			r.DaysSinceLastSale, r.IsCoreMenu, r.IsCurrentMenu, r.IsExcluded, string(r.Quadrant),
		})
	}
	return s.replaceRows(ctx, "menu_item_rollups", tenantID, columns, rows)
}

func (s *PostgresStore) ReplaceHourlySummaries(ctx context.Context, tenantID string, summaries []model.HourlySummaryRow) (model.TableCounts, error) {
	columns := []string{
		"tenant_id", "summary_date", "hour", "day_of_week", "branch", "category",
		"macro_category", "revenue", "quantity", "transaction_count",
	}
	rows := make([][]any, 0, len(summaries))
	for _, h := range summaries {
		rows = append(rows, []any{
			tenantID, h.SummaryDate, h.Hour, h.DayOfWeek, h.Branch, h.Category,
			h.MacroCategory, h.Revenue, h.Quantity, h.TransactionCount,
		})
	}
	return s.replaceRows(ctx, "hourly_summaries", tenantID, columns, rows)
}

func (s *PostgresStore) ReplaceBranchSummaries(ctx context.Context, tenantID string, summaries []model.BranchSummaryRow) (model.TableCounts, error) {
	columns := []string{
		"tenant_id", "period_type", "period_start", "branch", "revenue", "transaction_count",
		"receipt_count", "avg_ticket", "top_items", "category_breakdown",
	}
	rows := make([][]any, 0, len(summaries))
	for _, b := range summaries {
		topItems, err := json.Marshal(b.TopItems)
		if err != nil {
			return model.TableCounts{}, eris.Wrap(err, "postgres: marshal top items")
		}
		breakdown, err := json.Marshal(b.CategoryBreakdown)
		if err != nil {
			return model.TableCounts{}, eris.Wrap(err, "postgres: marshal category breakdown")
		}
		rows = append(rows, []any{
			tenantID, string(b.PeriodType), b.PeriodStart, b.Branch, b.Revenue,
			b.TransactionCount, b.ReceiptCount, b.AvgTicket, topItems, breakdown,
		})
	}
	return s.replaceRows(ctx, "branch_summaries", tenantID, columns, rows)
}

func (s *PostgresStore) ReplaceItemPairs(ctx context.Context, tenantID string, pairs []model.ItemPairRow) (model.TableCounts, error) {
	columns := []string{"tenant_id", "item_a", "item_b", "frequency", "support", "window_start", "window_end"}
	rows := make([][]any, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []any{
			tenantID, p.ItemA, p.ItemB, p.Frequency, p.Support, p.WindowStart, p.WindowEnd,
		})
	}
	return s.replaceRows(ctx, "item_pairs", tenantID, columns, rows)
}

func (s *PostgresStore) ListMenuItemRollups(ctx context.Context, tenantID string, f RollupFilter) ([]model.MenuItemRollup, error) {
	query := `SELECT tenant_id, item_name, category, macro_category, total_quantity, total_revenue,
		avg_price, order_count, first_sale_date, last_sale_date, months_active, days_since_last_sale,
		is_core_menu, is_current_menu, is_excluded, quadrant
		FROM menu_item_rollups WHERE tenant_id = $1`
	args := []any{tenantID}

	if !f.IncludeExcluded {
		query += ` AND NOT is_excluded`
	}
	if f.CoreOnly {
		query += ` AND is_core_menu`
	}
	if f.CurrentOnly {
		query += ` AND is_current_menu`
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	if f.MacroCategory != "" && f.MacroCategory != "ALL" {
		args = append(args, f.MacroCategory)
		query += fmt.Sprintf(` AND macro_category = $%d`, len(args))
	}
	if f.MinPrice > 0 {
		args = append(args, f.MinPrice)
		query += fmt.Sprintf(` AND avg_price >= $%d`, len(args))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		query += fmt.Sprintf(` AND avg_price <= $%d`, len(args))
	}
	if f.MinQuantity > 0 {
		args = append(args, f.MinQuantity)
		query += fmt.Sprintf(` AND total_quantity >= $%d`, len(args))
	}
	query += ` ORDER BY total_revenue DESC, item_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rollups")
	}
	defer rows.Close()

	var rollups []model.MenuItemRollup
	for rows.Next() {
		var r model.MenuItemRollup
		var quadrant string
		if err := rows.Scan(&r.TenantID, &r.ItemName, &r.Category, &r.MacroCategory,
			&r.TotalQuantity, &r.TotalRevenue, &r.AvgPrice, &r.OrderCount, &r.FirstSaleDate,
			&r.LastSaleDate, &r.MonthsActive, &r.DaysSinceLastSale, &r.IsCoreMenu,
			&r.IsCurrentMenu, &r.IsExcluded, &quadrant); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rollup")
		}
		r.Quadrant = model.Quadrant(quadrant)
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

func (s *PostgresStore) ListHourlySummaries(ctx context.Context, tenantID string, f SummaryFilter) ([]model.HourlySummaryRow, error) {
	query := `SELECT tenant_id, summary_date, hour, day_of_week, branch, category, macro_category,
		revenue, quantity, transaction_count
		FROM hourly_summaries WHERE tenant_id = $1`
	args := []any{tenantID}

	if !f.Start.IsZero() {
		args = append(args, f.Start)
		query += fmt.Sprintf(` AND summary_date >= $%d`, len(args))
	}
	if !f.End.IsZero() {
		args = append(args, f.End)
		query += fmt.Sprintf(` AND summary_date <= $%d`, len(args))
	}
	if len(f.Branches) > 0 {
		args = append(args, f.Branches)
		query += fmt.Sprintf(` AND branch = ANY($%d)`, len(args))
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	query += ` ORDER BY summary_date, hour, branch, category`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list hourly summaries")
	}
	defer rows.Close()

	var summaries []model.HourlySummaryRow
	for rows.Next() {
		var h model.HourlySummaryRow
		if err := rows.Scan(&h.TenantID, &h.SummaryDate, &h.Hour, &h.DayOfWeek, &h.Branch,
			&h.Category, &h.MacroCategory, &h.Revenue, &h.Quantity, &h.TransactionCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan hourly summary")
		}
		summaries = append(summaries, h)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) ListBranchSummaries(ctx context.Context, tenantID string, period model.PeriodType, f SummaryFilter) ([]model.BranchSummaryRow, error) {
	query := `SELECT tenant_id, period_type, period_start, branch, revenue, transaction_count,
		receipt_count, avg_ticket, top_items, category_breakdown
		FROM branch_summaries WHERE tenant_id = $1 AND period_type = $2`
	args := []any{tenantID, string(period)}

	if !f.Start.IsZero() {
		args = append(args, f.Start)
		query += fmt.Sprintf(` AND period_start >= $%d`, len(args))
	}
	if !f.End.IsZero() {
		args = append(args, f.End)
		query += fmt.Sprintf(` AND period_start <= $%d`, len(args))
	}
	if len(f.Branches) > 0 {
		args = append(args, f.Branches)
		query += fmt.Sprintf(` AND branch = ANY($%d)`, len(args))
	}
	query += ` ORDER BY period_start, branch`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list branch summaries")
	}
	defer rows.Close()

	var summaries []model.BranchSummaryRow
	for rows.Next() {
		var b model.BranchSummaryRow
		var periodType string
		var topItems, breakdown []byte
		if err := rows.Scan(&b.TenantID, &periodType, &b.PeriodStart, &b.Branch, &b.Revenue,
			&b.TransactionCount, &b.ReceiptCount, &b.AvgTicket, &topItems, &breakdown); err != nil {
			return nil, eris.Wrap(err, "postgres: scan branch summary")
		}
		b.PeriodType = model.PeriodType(periodType)
		if err := json.Unmarshal(topItems, &b.TopItems); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal top items")
		}
		if err := json.Unmarshal(breakdown, &b.CategoryBreakdown); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal category breakdown")
		}
		summaries = append(summaries, b)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) ListItemPairs(ctx context.Context, tenantID string, minFrequency int64, limit int) ([]model.ItemPairRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT tenant_id, item_a, item_b, frequency, support, window_start, window_end
		 FROM item_pairs WHERE tenant_id = $1 AND frequency >= $2
		 ORDER BY frequency DESC, item_a, item_b LIMIT $3`,
		tenantID, minFrequency, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list item pairs")
	}
	defer rows.Close()

	var pairs []model.ItemPairRow
	for rows.Next() {
		var p model.ItemPairRow
		if err := rows.Scan(&p.TenantID, &p.ItemA, &p.ItemB, &p.Frequency, &p.Support,
			&p.WindowStart, &p.WindowEnd); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *PostgresStore) HasDerived(ctx context.Context, tenantID, table string) (bool, error) {
	if !derivedTables[table] {
		return false, eris.Errorf("unknown derived table: %s", table)
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE tenant_id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: has derived %s", table)
	}
	return exists, nil
}

func (s *PostgresStore) CreateRefreshRun(ctx context.Context, tenantID string) (*model.RefreshRun, error) {
	run := &model.RefreshRun{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Status:   model.RefreshPending,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO refresh_runs (id, tenant_id, status) VALUES ($1, $2, $3) RETURNING started_at`,
		run.ID, run.TenantID, string(run.Status)).Scan(&run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert refresh run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateRefreshRunStatus(ctx context.Context, runID string, status model.RefreshStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_runs SET status = $1 WHERE id = $2`, string(status), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update refresh run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("refresh run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRefreshRun(ctx context.Context, runID string, status model.RefreshStatus, result *model.RefreshResult, errMsg string) error {
	var resultJSON []byte
	var durationMs int64
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal refresh result")
		}
		durationMs = result.DurationMs
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_runs SET status = $1, finished_at = now(), duration_ms = $2, result = $3, error = $4
		 WHERE id = $5`,
		string(status), durationMs, resultJSON, errMsg, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete refresh run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("refresh run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRefreshRuns(ctx context.Context, tenantID string, limit int) ([]model.RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, status, started_at, finished_at, duration_ms, result, error
		 FROM refresh_runs WHERE tenant_id = $1 ORDER BY started_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list refresh runs")
	}
	defer rows.Close()

	var runs []model.RefreshRun
	for rows.Next() {
		var r model.RefreshRun
		var status string
		var finished *time.Time
		var resultJSON []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &status, &r.StartedAt, &finished, &r.DurationMs,
			&resultJSON, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan refresh run")
		}
		r.Status = model.RefreshStatus(status)
		r.FinishedAt = finished
		if len(resultJSON) > 0 {
			r.Result = &model.RefreshResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal refresh result")
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
