/*
Package sqlite persists MRP runs and their lines in SQLite.

TABLES:

	mrp_runs:      one row per run, run_number is unique
	mrp_run_lines: one row per netting line, deleted with its run

Quantities are stored as decimal strings, planning dates as YYYY-MM-DD and
timestamps as RFC 3339 in UTC.

CONCURRENCY:

	A single connection is used and writes are serialized by a mutex. Reads made
	inside WithTx go through the open transaction.

USAGE:

	store, err := sqlite.New("./data/mrp.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// Store implements repositories.RunStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Verify interface compliance
var _ repositories.RunStore = (*Store)(nil)

// New opens the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mrp_runs (
		id TEXT PRIMARY KEY,
		run_number TEXT NOT NULL UNIQUE,
		run_date TEXT NOT NULL,
		horizon_days INTEGER NOT NULL,
		consider_safety_stock INTEGER NOT NULL,
		include_work_orders INTEGER NOT NULL,
		include_sales_orders INTEGER NOT NULL,
		include_planner_demand INTEGER NOT NULL,
		derive_component_demand INTEGER NOT NULL,
		item_filter TEXT,
		status TEXT NOT NULL,
		items_processed INTEGER NOT NULL DEFAULT 0,
		items_with_shortage INTEGER NOT NULL DEFAULT 0,
		suggestions_produced INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		cancelled_at TEXT,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_mrp_runs_status
		ON mrp_runs(status);
	CREATE INDEX IF NOT EXISTS idx_mrp_runs_created
		ON mrp_runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS mrp_run_lines (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES mrp_runs(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		requirement_date TEXT NOT NULL,
		gross_requirement TEXT NOT NULL,
		scheduled_receipts TEXT NOT NULL,
		projected_on_hand TEXT NOT NULL,
		net_requirement TEXT NOT NULL,
		source_kind TEXT,
		source_id TEXT,
		source_reference TEXT,
		suggestion_kind TEXT NOT NULL,
		suggested_qty TEXT NOT NULL,
		suggested_date TEXT,
		planned_order_receipt TEXT NOT NULL,
		planned_order_release TEXT NOT NULL,
		applied INTEGER NOT NULL DEFAULT 0,
		applied_at TEXT,
		applied_order_kind TEXT,
		applied_order_id TEXT,
		UNIQUE(run_id, sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_mrp_run_lines_run
		ON mrp_run_lines(run_id, sequence);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repositories.RunTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&runTx{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *Store) GetRun(ctx context.Context, id string) (*entities.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{q: s.db}).GetRun(ctx, id)
}

func (s *Store) ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{q: s.db}).ListRuns(ctx, filter)
}

func (s *Store) GetLine(ctx context.Context, lineID string) (*entities.RunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{q: s.db}).GetLine(ctx, lineID)
}

func (s *Store) ListLines(ctx context.Context, runID string) ([]entities.RunLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&runTx{q: s.db}).ListLines(ctx, runID)
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type runTx struct {
	q querier
}

const runColumns = `id, run_number, run_date, horizon_days, consider_safety_stock,
	include_work_orders, include_sales_orders, include_planner_demand, derive_component_demand,
	item_filter, status, items_processed, items_with_shortage, suggestions_produced,
	created_at, completed_at, cancelled_at, note`

const lineColumns = `id, run_id, sequence, item_id, requirement_date, gross_requirement,
	scheduled_receipts, projected_on_hand, net_requirement, source_kind, source_id, source_reference,
	suggestion_kind, suggested_qty, suggested_date, planned_order_receipt, planned_order_release,
	applied, applied_at, applied_order_kind, applied_order_id`

func (t *runTx) GetRun(ctx context.Context, id string) (*entities.Run, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM mrp_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, &entities.NotFoundError{Entity: "run", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (t *runTx) ListRuns(ctx context.Context, filter entities.RunFilter) ([]*entities.Run, error) {
	query := `SELECT ` + runColumns + ` FROM mrp_runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, run_number DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*entities.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (t *runTx) GetLine(ctx context.Context, lineID string) (*entities.RunLine, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+lineColumns+` FROM mrp_run_lines WHERE id = ?`, lineID)
	line, err := scanLine(row)
	if err == sql.ErrNoRows {
		return nil, &entities.NotFoundError{Entity: "run line", ID: lineID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run line: %w", err)
	}
	return line, nil
}

func (t *runTx) ListLines(ctx context.Context, runID string) ([]entities.RunLine, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM mrp_run_lines WHERE run_id = ? ORDER BY sequence`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run lines: %w", err)
	}
	defer rows.Close()

	lines := make([]entities.RunLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

func (t *runTx) NextRunNumber(ctx context.Context, day time.Time) (string, error) {
	prefix := entities.RunNumberDayPrefix(day)
	rows, err := t.q.QueryContext(ctx, `SELECT run_number FROM mrp_runs WHERE run_number LIKE ?`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("failed to read run numbers: %w", err)
	}
	defer rows.Close()

	max := 0
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(number, prefix)); err == nil && n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return entities.FormatRunNumber(day, max+1), nil
}

func (t *runTx) CreateRun(ctx context.Context, run *entities.Run) error {
	_, err := t.q.ExecContext(ctx, `INSERT INTO mrp_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunNumber,
		formatDay(run.RunDate),
		run.HorizonDays,
		run.ConsiderSafetyStock,
		run.IncludeWorkOrders,
		run.IncludeSalesOrders,
		run.IncludePlannerDemand,
		run.DeriveComponentDemand,
		nullString(string(run.ItemFilter)),
		string(run.Status),
		run.ItemsProcessed,
		run.ItemsWithShortage,
		run.SuggestionsProduced,
		formatTime(run.CreatedAt),
		nullTime(run.CompletedAt),
		nullTime(run.CancelledAt),
		nullString(run.Note),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("run %s or number %s already exists", run.ID, run.RunNumber)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (t *runTx) UpdateRun(ctx context.Context, run *entities.Run) error {
	res, err := t.q.ExecContext(ctx, `UPDATE mrp_runs SET
		status = ?, items_processed = ?, items_with_shortage = ?, suggestions_produced = ?,
		completed_at = ?, cancelled_at = ?, note = ?
		WHERE id = ?`,
		string(run.Status),
		run.ItemsProcessed,
		run.ItemsWithShortage,
		run.SuggestionsProduced,
		nullTime(run.CompletedAt),
		nullTime(run.CancelledAt),
		nullString(run.Note),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return requireRow(res, "run", run.ID)
}

func (t *runTx) InsertLines(ctx context.Context, lines []entities.RunLine) error {
	query := `INSERT INTO mrp_run_lines (` + lineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, l := range lines {
		kind, id, ref := entities.SourceFields(l.Source)
		var suggestedDate sql.NullString
		if !l.SuggestedDate.IsZero() {
			suggestedDate = nullString(formatDay(l.SuggestedDate))
		}
		_, err := t.q.ExecContext(ctx, query,
			l.ID,
			l.RunID,
			l.Sequence,
			string(l.ItemID),
			formatDay(l.RequirementDate),
			l.GrossRequirement.String(),
			l.ScheduledReceipts.String(),
			l.ProjectedOnHand.String(),
			l.NetRequirement.String(),
			nullString(kind),
			nullString(id),
			nullString(ref),
			l.SuggestionKind.String(),
			l.SuggestedQty.String(),
			suggestedDate,
			l.PlannedOrderReceipt.String(),
			l.PlannedOrderRelease.String(),
			l.Applied,
			nullTime(l.AppliedAt),
			nullString(string(l.AppliedOrderKind)),
			nullString(l.AppliedOrderID),
		)
		if err != nil {
			if isForeignKeyError(err) {
				return &entities.NotFoundError{Entity: "run", ID: l.RunID}
			}
			return fmt.Errorf("failed to insert run line %d: %w", l.Sequence, err)
		}
	}
	return nil
}

func (t *runTx) ClaimLine(ctx context.Context, lineID string, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE mrp_run_lines SET applied = 1, applied_at = ? WHERE id = ? AND applied = 0`,
		formatTime(at), lineID)
	if err != nil {
		return fmt.Errorf("failed to claim run line: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var applied bool
	err = t.q.QueryRowContext(ctx, `SELECT applied FROM mrp_run_lines WHERE id = ?`, lineID).Scan(&applied)
	if err == sql.ErrNoRows {
		return &entities.NotFoundError{Entity: "run line", ID: lineID}
	}
	if err != nil {
		return err
	}
	return &entities.AlreadyAppliedError{LineID: lineID}
}

func (t *runTx) RecordAppliedOrder(ctx context.Context, lineID string, kind entities.AppliedOrderKind, orderID string) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE mrp_run_lines SET applied_order_kind = ?, applied_order_id = ? WHERE id = ?`,
		nullString(string(kind)), nullString(orderID), lineID)
	if err != nil {
		return fmt.Errorf("failed to record applied order: %w", err)
	}
	return requireRow(res, "run line", lineID)
}

func (t *runTx) DeleteRun(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM mrp_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return requireRow(res, "run", id)
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*entities.Run, error) {
	var (
		run                        entities.Run
		runDate, status, createdAt string
		itemFilter, note           sql.NullString
		completedAt, cancelledAt   sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.RunNumber, &runDate, &run.HorizonDays, &run.ConsiderSafetyStock,
		&run.IncludeWorkOrders, &run.IncludeSalesOrders, &run.IncludePlannerDemand, &run.DeriveComponentDemand,
		&itemFilter, &status, &run.ItemsProcessed, &run.ItemsWithShortage, &run.SuggestionsProduced,
		&createdAt, &completedAt, &cancelledAt, &note,
	)
	if err != nil {
		return nil, err
	}

	if run.RunDate, err = entities.ParseDay(runDate); err != nil {
		return nil, err
	}
	if run.Status, err = entities.ParseRunStatus(status); err != nil {
		return nil, err
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if run.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return nil, err
	}
	run.ItemFilter = entities.ItemID(itemFilter.String)
	run.Note = note.String
	return &run, nil
}

func scanLine(row scanner) (*entities.RunLine, error) {
	var (
		line                                entities.RunLine
		itemID, requirementDate, suggestion string
		gross, scheduled, projected, net    string
		suggestedQty, receipt, release      string
		sourceKind, sourceID, sourceRef     sql.NullString
		suggestedDate, appliedAt            sql.NullString
		appliedKind, appliedOrderID         sql.NullString
	)
	err := row.Scan(
		&line.ID, &line.RunID, &line.Sequence, &itemID, &requirementDate, &gross,
		&scheduled, &projected, &net, &sourceKind, &sourceID, &sourceRef,
		&suggestion, &suggestedQty, &suggestedDate, &receipt, &release,
		&line.Applied, &appliedAt, &appliedKind, &appliedOrderID,
	)
	if err != nil {
		return nil, err
	}

	line.ItemID = entities.ItemID(itemID)
	if line.RequirementDate, err = entities.ParseDay(requirementDate); err != nil {
		return nil, err
	}
	if suggestedDate.Valid {
		if line.SuggestedDate, err = entities.ParseDay(suggestedDate.String); err != nil {
			return nil, err
		}
	}
	if line.SuggestionKind, err = entities.ParseSuggestionKind(suggestion); err != nil {
		return nil, err
	}
	if line.Source, err = entities.NewDemandSource(sourceKind.String, sourceID.String, sourceRef.String); err != nil {
		return nil, err
	}
	if line.AppliedAt, err = parseNullTime(appliedAt); err != nil {
		return nil, err
	}
	line.AppliedOrderKind = entities.AppliedOrderKind(appliedKind.String)
	line.AppliedOrderID = appliedOrderID.String

	amounts := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&line.GrossRequirement, gross},
		{&line.ScheduledReceipts, scheduled},
		{&line.ProjectedOnHand, projected},
		{&line.NetRequirement, net},
		{&line.SuggestedQty, suggestedQty},
		{&line.PlannedOrderReceipt, receipt},
		{&line.PlannedOrderRelease, release},
	}
	for _, a := range amounts {
		if *a.dst, err = decimal.NewFromString(a.src); err != nil {
			return nil, fmt.Errorf("invalid quantity %q on line %s: %w", a.src, line.ID, err)
		}
	}
	return &line, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDay(t time.Time) string {
	return entities.Day(t).Format(entities.DateLayout)
}

// timeLayout has fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &entities.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
