package outcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no outcome is recorded for an id
var ErrNotFound = errors.New("outcome not found")

// Store manages outcome persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the outcome database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure outcome db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Put records the outcome of a ballot box, replacing any earlier one
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("outcome record has no id")
	}
	if _, err := ParseState(string(rec.State)); err != nil {
		return err
	}
	counts := rec.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	var total sql.NullInt64
	if rec.DeclaredTotal != nil {
		total = sql.NullInt64{Int64: int64(*rec.DeclaredTotal), Valid: true}
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO outcomes (id, state, counts_json, declared_total, sum, tables, strategy, reason, run_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				state = excluded.state,
				counts_json = excluded.counts_json,
				declared_total = excluded.declared_total,
				sum = excluded.sum,
				tables = excluded.tables,
				strategy = excluded.strategy,
				reason = excluded.reason,
				run_id = excluded.run_id,
				updated_at = excluded.updated_at`,
			rec.ID, string(rec.State), string(countsJSON), total, rec.Sum, rec.Tables,
			rec.Strategy, rec.Reason, rec.RunID, updated.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Get returns the outcome of id, or ErrNotFound
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Has reports whether an outcome is recorded for id
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM outcomes WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("check outcome %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns outcomes ordered by id, filtered by state when any are given
func (s *Store) List(ctx context.Context, states ...State) ([]Record, error) {
	query := selectColumns
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, st := range states {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += " WHERE state IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Counts returns the number of outcomes per state
func (s *Store) Counts(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT state, COUNT(1) FROM outcomes GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[State]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		out[State(st)] = n
	}
	return out, rows.Err()
}

const selectColumns = `SELECT id, state, counts_json, declared_total, sum, tables, strategy, reason, run_id, updated_at FROM outcomes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec        Record
		state      string
		countsJSON string
		total      sql.NullInt64
		updated    string
	)
	if err := row.Scan(&rec.ID, &state, &countsJSON, &total, &rec.Sum, &rec.Tables,
		&rec.Strategy, &rec.Reason, &rec.RunID, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan outcome: %w", err)
	}
	rec.State = State(state)
	if err := json.Unmarshal([]byte(countsJSON), &rec.Counts); err != nil {
		return nil, fmt.Errorf("decode counts of %s: %w", rec.ID, err)
	}
	if total.Valid {
		n := int(total.Int64)
		rec.DeclaredTotal = &n
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
