package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/i474232898/climate-series/internal/series"
)

// SchemaVersion is recorded in PRAGMA user_version of every cache database.
const SchemaVersion = 1

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SQLiteStore is a durable series.Cache keeping one table per data type.
type SQLiteStore struct {
	sqlDB *sql.DB

	mu      sync.Mutex
	ensured map[string]bool
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("set schema version: %w", err)
	}
	return NewSQLiteStore(sqlDB), nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(sqlDB *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		sqlDB:   sqlDB,
		ensured: make(map[string]bool),
	}
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// EnsureSchema creates a table with a unique key column for every alias.
func (s *SQLiteStore) EnsureSchema(ctx context.Context, aliases []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, alias := range aliases {
		if !aliasPattern.MatchString(alias) {
			return fmt.Errorf("invalid data type alias %q", alias)
		}
		if !s.ensured[alias] {
			missing = append(missing, alias)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	for _, alias := range missing {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	t TEXT PRIMARY KEY,
	v REAL NOT NULL
)`, tableName(alias))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create store %s: %w", alias, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	for _, alias := range missing {
		s.ensured[alias] = true
	}
	return nil
}

// Count returns the number of records stored for dataType.
func (s *SQLiteStore) Count(ctx context.Context, dataType string) (int, error) {
	if !aliasPattern.MatchString(dataType) {
		return 0, fmt.Errorf("invalid data type alias %q", dataType)
	}
	var count int
	row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName(dataType))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", dataType, err)
	}
	return count, nil
}

// BulkInsert stores records in a single transaction; existing keys are replaced.
func (s *SQLiteStore) BulkInsert(ctx context.Context, dataType string, records []series.Record) error {
	if !aliasPattern.MatchString(dataType) {
		return fmt.Errorf("invalid data type alias %q", dataType)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO "+tableName(dataType)+" (t, v) VALUES (?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert %s: %w", dataType, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.T, r.V); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s %s: %w", dataType, r.T, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert %s: %w", dataType, err)
	}
	return nil
}

// Query returns the records of dataType with keys inside kr, ordered by key.
func (s *SQLiteStore) Query(ctx context.Context, dataType string, kr series.KeyRange) ([]series.Record, error) {
	if !aliasPattern.MatchString(dataType) {
		return nil, fmt.Errorf("invalid data type alias %q", dataType)
	}

	result := []series.Record{}
	if kr.Empty() {
		return result, nil
	}

	var (
		where []string
		args  []any
	)
	if kr.Lower != "" {
		where = append(where, "t >= ?")
		args = append(args, kr.Lower)
	}
	if kr.Upper != "" {
		where = append(where, "t < ?")
		args = append(args, kr.Upper)
	}
	query := "SELECT t, v FROM " + tableName(dataType)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", dataType, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r series.Record
		if err := rows.Scan(&r.T, &r.V); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dataType, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", dataType, err)
	}
	return result, nil
}

func tableName(alias string) string {
	return `"series_` + alias + `"`
}
