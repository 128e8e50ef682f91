// Package postgres loads and persists records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RecordTable is a store.Source backed by the records table.
type RecordTable struct {
	db *sql.DB
}

var _ store.Source = (*RecordTable)(nil)

// New opens a connection to the database at the given URL, configures the
// pool, and runs any pending migrations.
func New(databaseURL string) (*RecordTable, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &RecordTable{db: db}, nil
}

// NewFromDB wraps an already migrated connection.
func NewFromDB(db *sql.DB) *RecordTable {
	return &RecordTable{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (t *RecordTable) Close() error {
	return t.db.Close()
}

// Load returns every record ordered by insertion.
func (t *RecordTable) Load(ctx context.Context) ([]ir.Record, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, kind, fields FROM records ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Write inserts records in one transaction. Rows whose id already exists
// are left untouched.
func (t *RecordTable) Write(ctx context.Context, records []ir.Record) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range records {
		fields, err := ir.EncodeFields(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode record %q: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, name, kind, fields) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Name, string(rec.Kind), fields,
		); err != nil {
			return fmt.Errorf("insert record %q: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (ir.Record, error) {
	var (
		rec    ir.Record
		kind   string
		fields []byte
	)
	if err := s.Scan(&rec.ID, &rec.Name, &kind, &fields); err != nil {
		return ir.Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Kind = ir.KindID(kind)
	decoded, err := ir.DecodeFields(fields)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %q: %w", rec.ID, err)
	}
	rec.Fields = decoded
	return rec, nil
}
