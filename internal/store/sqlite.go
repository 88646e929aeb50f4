package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/platewise/platewise/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs tests
// and single-node installs; Postgres is the production backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteTimestamp = "2006-01-02T15:04:05Z"

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	timezone   TEXT NOT NULL DEFAULT 'UTC',
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id                       TEXT PRIMARY KEY,
	tenant_id                TEXT NOT NULL REFERENCES tenants(id),
	receipt_number           TEXT NOT NULL,
	receipt_timestamp        TEXT NOT NULL,
	item_name                TEXT NOT NULL,
	category                 TEXT NOT NULL DEFAULT '',
	macro_category           TEXT NOT NULL DEFAULT 'OTHER',
	quantity                 INTEGER NOT NULL,
	unit_price               INTEGER NOT NULL,
	subtotal                 INTEGER NOT NULL,
	discount                 INTEGER NOT NULL DEFAULT 0,
	tax                      INTEGER NOT NULL DEFAULT 0,
	allocated_service_charge INTEGER NOT NULL DEFAULT 0,
	gross_revenue            INTEGER NOT NULL,
	branch                   TEXT NOT NULL DEFAULT '',
	is_excluded              INTEGER NOT NULL DEFAULT 0,
	import_batch_id          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_ts ON transactions(tenant_id, receipt_timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_tenant_receipt ON transactions(tenant_id, receipt_number);

CREATE TABLE IF NOT EXISTS excluded_items (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL REFERENCES tenants(id),
	item_name   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	excluded_by TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	UNIQUE (tenant_id, item_name)
);

CREATE TABLE IF NOT EXISTS menu_item_rollups (
	tenant_id            TEXT NOT NULL,
	item_name            TEXT NOT NULL,
	category             TEXT NOT NULL DEFAULT '',
	macro_category       TEXT NOT NULL DEFAULT 'OTHER',
	total_quantity       INTEGER NOT NULL,
	total_revenue        INTEGER NOT NULL,
	avg_price            INTEGER NOT NULL,
	order_count          INTEGER NOT NULL,
	first_sale_date      TEXT NOT NULL,
	last_sale_date       TEXT NOT NULL,
	months_active        INTEGER NOT NULL,
	days_since_last_sale INTEGER NOT NULL,
	is_core_menu         INTEGER NOT NULL,
	is_current_menu      INTEGER NOT NULL,
	is_excluded          INTEGER NOT NULL,
	quadrant             TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tenant_id, item_name)
);

CREATE TABLE IF NOT EXISTS hourly_summaries (
	tenant_id         TEXT NOT NULL,
	summary_date      TEXT NOT NULL,
	hour              INTEGER NOT NULL,
	day_of_week       INTEGER NOT NULL,
	branch            TEXT NOT NULL,
	category          TEXT NOT NULL,
	macro_category    TEXT NOT NULL,
	revenue           INTEGER NOT NULL,
	quantity          INTEGER NOT NULL,
	transaction_count INTEGER NOT NULL,
	PRIMARY KEY (tenant_id, summary_date, hour, branch, category)
);

CREATE INDEX IF NOT EXISTS idx_hourly_tenant_date ON hourly_summaries(tenant_id, summary_date);

CREATE TABLE IF NOT EXISTS branch_summaries (
	tenant_id          TEXT NOT NULL,
	period_type        TEXT NOT NULL,
	period_start       TEXT NOT NULL,
	branch             TEXT NOT NULL,
	revenue            INTEGER NOT NULL,
	transaction_count  INTEGER NOT NULL,
	receipt_count      INTEGER NOT NULL,
	avg_ticket         INTEGER NOT NULL,
	top_items          TEXT NOT NULL,
	category_breakdown TEXT NOT NULL,
	PRIMARY KEY (tenant_id, period_type, period_start, branch)
);

CREATE TABLE IF NOT EXISTS item_pairs (
	tenant_id    TEXT NOT NULL,
	item_a       TEXT NOT NULL,
	item_b       TEXT NOT NULL,
	frequency    INTEGER NOT NULL,
	support      REAL NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	PRIMARY KEY (tenant_id, item_a, item_b),
	CHECK (item_a < item_b)
);

CREATE TABLE IF NOT EXISTS refresh_runs (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	result      TEXT,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_refresh_runs_tenant ON refresh_runs(tenant_id, started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTenant(ctx context.Context, t model.Tenant) (*model.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, timezone, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Timezone, boolToInt(t.IsActive), t.CreatedAt.Format(sqliteTimestamp),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert tenant")
	}
	return &t, nil
}

func (s *SQLiteStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	var active int
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, timezone, is_active, created_at FROM tenants WHERE id = ?`, tenantID,
	).Scan(&t.ID, &t.Name, &t.Timezone, &active, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get tenant %s", tenantID)
	}
	t.IsActive = active != 0
	t.CreatedAt, _ = time.Parse(sqliteTimestamp, created)
	return &t, nil
}

func (s *SQLiteStore) ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error) {
	query := `SELECT id, name, timezone, is_active, created_at FROM tenants`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tenants")
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		var active int
		var created string
		if err := rows.Scan(&t.ID, &t.Name, &t.Timezone, &active, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tenant")
		}
		t.IsActive = active != 0
		t.CreatedAt, _ = time.Parse(sqliteTimestamp, created)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *SQLiteStore) InsertTransactions(ctx context.Context, txs []model.Transaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert transactions")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, tenant_id, receipt_number, receipt_timestamp, item_name, category, macro_category,
		 quantity, unit_price, subtotal, discount, tax, allocated_service_charge, gross_revenue,
		 branch, is_excluded, import_batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert transactions")
	}
	defer stmt.Close()

	var n int64
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, t.TenantID, t.ReceiptNumber, t.ReceiptTimestamp.UTC().Format(sqliteTimestamp),
			t.ItemName, t.Category, t.MacroCategory,
			t.Quantity, t.UnitPrice, t.Subtotal, t.Discount, t.Tax, t.AllocatedServiceCharge,
			t.GrossRevenue, t.Branch, boolToInt(t.IsExcluded), t.ImportBatchID,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert transaction")
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert transactions")
	}
	return n, nil
}

func (s *SQLiteStore) ScanTransactions(ctx context.Context, tenantID string, f TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT id, tenant_id, receipt_number, receipt_timestamp, item_name, category,
		macro_category, quantity, unit_price, subtotal, discount, tax, allocated_service_charge,
		gross_revenue, branch, is_excluded, import_batch_id
		FROM transactions WHERE tenant_id = ?`
	args := []any{tenantID}

	if !f.IncludeFlagged {
		query += ` AND is_excluded = 0`
	}
	if !f.Start.IsZero() {
		query += ` AND receipt_timestamp >= ?`
		args = append(args, f.Start.UTC().Format(sqliteTimestamp))
	}
	if !f.End.IsZero() {
		query += ` AND receipt_timestamp < ?`
		args = append(args, f.End.UTC().Format(sqliteTimestamp))
	}
	if len(f.Branches) > 0 {
		query += ` AND branch IN (` + placeholders(len(f.Branches)) + `)`
		for _, b := range f.Branches {
			args = append(args, b)
		}
	}
	if len(f.Categories) > 0 {
		query += ` AND category IN (` + placeholders(len(f.Categories)) + `)`
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY receipt_timestamp`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan transactions")
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var ts string
		var excluded int
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ReceiptNumber, &ts, &t.ItemName, &t.Category,
			&t.MacroCategory, &t.Quantity, &t.UnitPrice, &t.Subtotal, &t.Discount, &t.Tax,
			&t.AllocatedServiceCharge, &t.GrossRevenue, &t.Branch, &excluded, &t.ImportBatchID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction row")
		}
		t.ReceiptTimestamp, err = time.Parse(sqliteTimestamp, ts)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse timestamp %q", ts)
		}
		t.IsExcluded = excluded != 0
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) AddExclusions(ctx context.Context, tenantID string, itemNames []string, reason, excludedBy string) (int64, error) {
	if len(itemNames) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin add exclusions")
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(sqliteTimestamp)
	var n int64
	for _, name := range itemNames {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO excluded_items (id, tenant_id, item_name, reason, excluded_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (tenant_id, item_name) DO UPDATE SET reason = excluded.reason`,
			uuid.New().String(), tenantID, name, reason, excludedBy, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: add exclusion %q", name)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit add exclusions")
	}
	return n, nil
}

func (s *SQLiteStore) RemoveExclusion(ctx context.Context, tenantID, itemName string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM excluded_items WHERE tenant_id = ? AND item_name = ?`, tenantID, itemName)
	if err != nil {
		return eris.Wrapf(err, "sqlite: remove exclusion %q", itemName)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("exclusion not found: %s", itemName)
	}
	return nil
}

func (s *SQLiteStore) ListExclusions(ctx context.Context, tenantID string) ([]model.ExclusionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, item_name, reason, excluded_by, created_at
		 FROM excluded_items WHERE tenant_id = ? ORDER BY created_at DESC, item_name`, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exclusions")
	}
	defer rows.Close()

	var entries []model.ExclusionEntry
	for rows.Next() {
		var e model.ExclusionEntry
		var created string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ItemName, &e.Reason, &e.ExcludedBy, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan exclusion")
		}
		e.CreatedAt, _ = time.Parse(sqliteTimestamp, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// replaceRows runs the delete+insert of one derived table inside a single
// transaction so a mid-insert failure rolls both back.
func (s *SQLiteStore) replaceRows(ctx context.Context, table, tenantID, insertSQL string, rows [][]any) (model.TableCounts, error) {
	var counts model.TableCounts

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, eris.Wrapf(err, "sqlite: begin replace %s", table)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return counts, eris.Wrapf(err, "sqlite: delete %s", table)
	}
	counts.Deleted, _ = res.RowsAffected()

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return counts, eris.Wrapf(err, "sqlite: prepare insert %s", table)
		}
		defer stmt.Close()
		for _, args := range rows {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return model.TableCounts{}, eris.Wrapf(err, "sqlite: insert %s", table)
			}
			counts.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return model.TableCounts{}, eris.Wrapf(err, "sqlite: commit replace %s", table)
	}
	return counts, nil
}

func (s *SQLiteStore) ReplaceMenuItemRollups(ctx context.Context, tenantID string, rollups []model.MenuItemRollup) (model.TableCounts, error) {
	rows := make([][]any, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, []any{
			tenantID, r.ItemName, r.Category, r.MacroCategory, r.TotalQuantity, r.TotalRevenue,
			r.AvgPrice, r.OrderCount, r.FirstSaleDate.Format(DateOnly), r.LastSaleDate.Format(DateOnly),
			r.MonthsActive, r.DaysSinceLastSale, boolToInt(r.IsCoreMenu), boolToInt(r.IsCurrentMenu),
			boolToInt(r.IsExcluded), string(r.Quadrant),
		})
	}
	return s.replaceRows(ctx, "menu_item_rollups", tenantID,
		`INSERT INTO menu_item_rollups
		 (tenant_id, item_name, category, macro_category, total_quantity, total_revenue, avg_price,
		  order_count, first_sale_date, last_sale_date, months_active, days_since_last_sale,
		  is_core_menu, is_current_menu, is_excluded, quadrant)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, rows)
}

func (s *SQLiteStore) ReplaceHourlySummaries(ctx context.Context, tenantID string, summaries []model.HourlySummaryRow) (model.TableCounts, error) {
	rows := make([][]any, 0, len(summaries))
	for _, h := range summaries {
		rows = append(rows, []any{
			tenantID, h.SummaryDate.Format(DateOnly), h.Hour, h.DayOfWeek, h.Branch,
			h.Category, h.MacroCategory, h.Revenue, h.Quantity, h.TransactionCount,
		})
	}
	return s.replaceRows(ctx, "hourly_summaries", tenantID,
		`INSERT INTO hourly_summaries
		 (tenant_id, summary_date, hour, day_of_week, branch, category, macro_category,
		  revenue, quantity, transaction_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, rows)
}

func (s *SQLiteStore) ReplaceBranchSummaries(ctx context.Context, tenantID string, summaries []model.BranchSummaryRow) (model.TableCounts, error) {
	rows := make([][]any, 0, len(summaries))
	for _, b := range summaries {
		topItems, err := json.Marshal(b.TopItems)
		if err != nil {
			return model.TableCounts{}, eris.Wrap(err, "sqlite: marshal top items")
		}
		breakdown, err := json.Marshal(b.CategoryBreakdown)
		if err != nil {
			return model.TableCounts{}, eris.Wrap(err, "sqlite: marshal category breakdown")
		}
		rows = append(rows, []any{
			tenantID, string(b.PeriodType), b.PeriodStart.Format(DateOnly), b.Branch,
			b.Revenue, b.TransactionCount, b.ReceiptCount, b.AvgTicket,
			string(topItems), string(breakdown),
		})
	}
	return s.replaceRows(ctx, "branch_summaries", tenantID,
		`INSERT INTO branch_summaries
		 (tenant_id, period_type, period_start, branch, revenue, transaction_count,
		  receipt_count, avg_ticket, top_items, category_breakdown)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, rows)
}

func (s *SQLiteStore) ReplaceItemPairs(ctx context.Context, tenantID string, pairs []model.ItemPairRow) (model.TableCounts, error) {
	rows := make([][]any, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []any{
			tenantID, p.ItemA, p.ItemB, p.Frequency, p.Support,
			p.WindowStart.Format(DateOnly), p.WindowEnd.Format(DateOnly),
		})
	}
	return s.replaceRows(ctx, "item_pairs", tenantID,
		`INSERT INTO item_pairs
		 (tenant_id, item_a, item_b, frequency, support, window_start, window_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, rows)
}

func (s *SQLiteStore) ListMenuItemRollups(ctx context.Context, tenantID string, f RollupFilter) ([]model.MenuItemRollup, error) {
	query := `SELECT tenant_id, item_name, category, macro_category, total_quantity, total_revenue,
		avg_price, order_count, first_sale_date, last_sale_date, months_active, days_since_last_sale,
		is_core_menu, is_current_menu, is_excluded, quadrant
		FROM menu_item_rollups WHERE tenant_id = ?`
	args := []any{tenantID}

	if !f.IncludeExcluded {
		query += ` AND is_excluded = 0`
	}
	if f.CoreOnly {
		query += ` AND is_core_menu = 1`
	}
	if f.CurrentOnly {
		query += ` AND is_current_menu = 1`
	}
	if len(f.Categories) > 0 {
		query += ` AND category IN (` + placeholders(len(f.Categories)) + `)`
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if f.MacroCategory != "" && f.MacroCategory != "ALL" {
		query += ` AND macro_category = ?`
		args = append(args, f.MacroCategory)
	}
	if f.MinPrice > 0 {
		query += ` AND avg_price >= ?`
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		query += ` AND avg_price <= ?`
		args = append(args, f.MaxPrice)
	}
	if f.MinQuantity > 0 {
		query += ` AND total_quantity >= ?`
		args = append(args, f.MinQuantity)
	}
	query += ` ORDER BY total_revenue DESC, item_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rollups")
	}
	defer rows.Close()

	var rollups []model.MenuItemRollup
	for rows.Next() {
		var r model.MenuItemRollup
		var first, last, quadrant string
		var core, current, excluded int
		if err := rows.Scan(&r.TenantID, &r.ItemName, &r.Category, &r.MacroCategory,
			&r.TotalQuantity, &r.TotalRevenue, &r.AvgPrice, &r.OrderCount, &first, &last,
			&r.MonthsActive, &r.DaysSinceLastSale, &core, &current, &excluded, &quadrant); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rollup")
		}
		r.FirstSaleDate, _ = time.Parse(DateOnly, first)
		r.LastSaleDate, _ = time.Parse(DateOnly, last)
		r.IsCoreMenu = core != 0
		r.IsCurrentMenu = current != 0
		r.IsExcluded = excluded != 0
		r.Quadrant = model.Quadrant(quadrant)
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

func (s *SQLiteStore) ListHourlySummaries(ctx context.Context, tenantID string, f SummaryFilter) ([]model.HourlySummaryRow, error) {
	query := `SELECT tenant_id, summary_date, hour, day_of_week, branch, category, macro_category,
		revenue, quantity, transaction_count
		FROM hourly_summaries WHERE tenant_id = ?`
	args := []any{tenantID}

	if !f.Start.IsZero() {
		query += ` AND summary_date >= ?`
		args = append(args, f.Start.Format(DateOnly))
	}
	if !f.End.IsZero() {
		query += ` AND summary_date <= ?`
		args = append(args, f.End.Format(DateOnly))
	}
	if len(f.Branches) > 0 {
		query += ` AND branch IN (` + placeholders(len(f.Branches)) + `)`
		for _, b := range f.Branches {
			args = append(args, b)
		}
	}
	if len(f.Categories) > 0 {
		query += ` AND category IN (` + placeholders(len(f.Categories)) + `)`
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	query += ` ORDER BY summary_date, hour, branch, category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list hourly summaries")
	}
	defer rows.Close()

	var summaries []model.HourlySummaryRow
	for rows.Next() {
		var h model.HourlySummaryRow
		var date string
		if err := rows.Scan(&h.TenantID, &date, &h.Hour, &h.DayOfWeek, &h.Branch, &h.Category,
			&h.MacroCategory, &h.Revenue, &h.Quantity, &h.TransactionCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan hourly summary")
		}
		h.SummaryDate, _ = time.Parse(DateOnly, date)
		summaries = append(summaries, h)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) ListBranchSummaries(ctx context.Context, tenantID string, period model.PeriodType, f SummaryFilter) ([]model.BranchSummaryRow, error) {
	query := `SELECT tenant_id, period_type, period_start, branch, revenue, transaction_count,
		receipt_count, avg_ticket, top_items, category_breakdown
		FROM branch_summaries WHERE tenant_id = ? AND period_type = ?`
	args := []any{tenantID, string(period)}

	if !f.Start.IsZero() {
		query += ` AND period_start >= ?`
		args = append(args, f.Start.Format(DateOnly))
	}
	if !f.End.IsZero() {
		query += ` AND period_start <= ?`
		args = append(args, f.End.Format(DateOnly))
	}
	if len(f.Branches) > 0 {
		query += ` AND branch IN (` + placeholders(len(f.Branches)) + `)`
		for _, b := range f.Branches {
			args = append(args, b)
		}
	}
	query += ` ORDER BY period_start, branch`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list branch summaries")
	}
	defer rows.Close()

	var summaries []model.BranchSummaryRow
	for rows.Next() {
		var b model.BranchSummaryRow
		var periodType, start, topItems, breakdown string
		if err := rows.Scan(&b.TenantID, &periodType, &start, &b.Branch, &b.Revenue,
			&b.TransactionCount, &b.ReceiptCount, &b.AvgTicket, &topItems, &breakdown); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan branch summary")
		}
		b.PeriodType = model.PeriodType(periodType)
		b.PeriodStart, _ = time.Parse(DateOnly, start)
		if err := json.Unmarshal([]byte(topItems), &b.TopItems); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal top items")
		}
		if err := json.Unmarshal([]byte(breakdown), &b.CategoryBreakdown); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal category breakdown")
		}
		summaries = append(summaries, b)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) ListItemPairs(ctx context.Context, tenantID string, minFrequency int64, limit int) ([]model.ItemPairRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, item_a, item_b, frequency, support, window_start, window_end
		 FROM item_pairs WHERE tenant_id = ? AND frequency >= ?
		 ORDER BY frequency DESC, item_a, item_b LIMIT ?`,
		tenantID, minFrequency, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list item pairs")
	}
	defer rows.Close()

	var pairs []model.ItemPairRow
	for rows.Next() {
		var p model.ItemPairRow
		var start, end string
		if err := rows.Scan(&p.TenantID, &p.ItemA, &p.ItemB, &p.Frequency, &p.Support, &start, &end); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item pair")
		}
		p.WindowStart, _ = time.Parse(DateOnly, start)
		p.WindowEnd, _ = time.Parse(DateOnly, end)
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// derivedTables whitelists table names accepted by HasDerived.
var derivedTables = map[string]bool{
	model.TableRollups:         true,
	model.TableHourlySummaries: true,
	model.TableBranchSummaries: true,
	model.TableItemPairs:       true,
}

func (s *SQLiteStore) HasDerived(ctx context.Context, tenantID, table string) (bool, error) {
	if !derivedTables[table] {
		return false, eris.Errorf("unknown derived table: %s", table)
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE tenant_id = ? LIMIT 1`, tenantID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has derived %s", table)
	}
	return true, nil
}

func (s *SQLiteStore) CreateRefreshRun(ctx context.Context, tenantID string) (*model.RefreshRun, error) {
	run := &model.RefreshRun{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Status:    model.RefreshPending,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_runs (id, tenant_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.TenantID, string(run.Status), run.StartedAt.Format(sqliteTimestamp))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert refresh run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRefreshRunStatus(ctx context.Context, runID string, status model.RefreshStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_runs SET status = ? WHERE id = ?`, string(status), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update refresh run %s", runID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("refresh run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) CompleteRefreshRun(ctx context.Context, runID string, status model.RefreshStatus, result *model.RefreshResult, errMsg string) error {
	var resultJSON any
	var durationMs int64
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal refresh result")
		}
		resultJSON = string(b)
		durationMs = result.DurationMs
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_runs SET status = ?, finished_at = ?, duration_ms = ?, result = ?, error = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC().Format(sqliteTimestamp), durationMs, resultJSON, errMsg, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete refresh run %s", runID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("refresh run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRefreshRuns(ctx context.Context, tenantID string, limit int) ([]model.RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, status, started_at, finished_at, duration_ms, result, error
		 FROM refresh_runs WHERE tenant_id = ? ORDER BY started_at DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list refresh runs")
	}
	defer rows.Close()

	var runs []model.RefreshRun
	for rows.Next() {
		var r model.RefreshRun
		var status, started string
		var finished, resultJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.TenantID, &status, &started, &finished, &r.DurationMs,
			&resultJSON, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan refresh run")
		}
		r.Status = model.RefreshStatus(status)
		r.StartedAt, _ = time.Parse(sqliteTimestamp, started)
		if finished.Valid {
			t, err := time.Parse(sqliteTimestamp, finished.String)
			if err == nil {
				r.FinishedAt = &t
			}
		}
		if resultJSON.Valid && resultJSON.String != "" {
			r.Result = &model.RefreshResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal refresh result")
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
