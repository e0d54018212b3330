package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/i474232898/climate-series/internal/series"
)

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.EnsureSchema(ctx, []string{"temperature"}); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := s.BulkInsert(ctx, "temperature", []series.Record{{T: "1990-01", V: -5}}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	var version int
	if err := s.sqlDB.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("user_version = %d, want %d", version, SchemaVersion)
	}

	n, err := s.Count(ctx, "temperature")
	if err != nil || n != 1 {
		t.Fatalf("Count() after reopen = %d, %v", n, err)
	}
}

func TestSQLiteStore_RejectsInvalidAlias(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "weather.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.EnsureSchema(context.Background(), []string{`temp"; DROP TABLE x; --`}); err == nil {
		t.Fatal("expected invalid alias to be rejected")
	}
	if _, err := s.Count(context.Background(), "a b"); err == nil {
		t.Fatal("expected invalid alias to be rejected")
	}
}

func TestSQLiteStore_CountFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	diskErr := errors.New("disk I/O error")
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "series_temperature"`).WillReturnError(diskErr)

	s := NewSQLiteStore(db)
	_, err = s.Count(context.Background(), "temperature")
	if !errors.Is(err, diskErr) {
		t.Fatalf("Count() error = %v, want wrapped %v", err, diskErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_BulkInsertRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	constraintErr := errors.New("NOT NULL constraint failed")
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT OR REPLACE INTO "series_temperature"`)
	prep.ExpectExec().WithArgs("1990-01", -5.0).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("1990-02", 3.0).WillReturnError(constraintErr)
	mock.ExpectRollback()

	s := NewSQLiteStore(db)
	err = s.BulkInsert(context.Background(), "temperature", []series.Record{
		{T: "1990-01", V: -5},
		{T: "1990-02", V: 3},
	})
	if !errors.Is(err, constraintErr) {
		t.Fatalf("BulkInsert() error = %v, want wrapped %v", err, constraintErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_QueryFailureSurfacesAsUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "series_temperature"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "series_temperature"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT t, v FROM "series_temperature" ORDER BY t`).
		WillReturnError(errors.New("database disk image is malformed"))

	svc := series.NewService(nil, NewSQLiteStore(db))
	svc.Configure(series.Routes{"temperature": "/data/temperature.json"})

	_, err = svc.GetData(context.Background(), "temperature", series.Filter{})
	if !errors.Is(err, series.ErrUnknown) {
		t.Fatalf("GetData() error = %v, want UNKNOWN_ERROR", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
