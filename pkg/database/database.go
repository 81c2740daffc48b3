package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/genetrans/genetrans/pkg/config"
	"github.com/genetrans/genetrans/pkg/convert"

	"github.com/lib/pq"
)

var DebugLog func(string, ...interface{})

// DB records conversion runs in Postgres. A DB built from a disabled config
// accepts every call and does nothing.
type DB struct {
	conn    *sql.DB
	enabled bool
}

// connString builds a postgres:// URL so that empty values and values with
// spaces or quotes survive lib/pq's parsing.
func connString(cfg *config.Database, dbname string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	return u.String()
}

func New(ctx context.Context, cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		return db, nil
	}

	if err := ensureDatabase(ctx, cfg); err != nil {
		return db, err
	}

	conn, err := sql.Open("postgres", connString(cfg, cfg.DBName))
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	if DebugLog != nil {
		DebugLog("database connection active (%s@%s:%d/%s)", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
	}

	return newWithConn(ctx, conn)
}

// newWithConn wraps an open connection and makes sure the schema exists.
func newWithConn(ctx context.Context, conn *sql.DB) (*DB, error) {
	db := &DB{conn: conn, enabled: true}
	if err := db.initSchema(ctx); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// ensureDatabase creates cfg.DBName through the postgres maintenance
// database when it does not exist yet.
func ensureDatabase(ctx context.Context, cfg *config.Database) error {
	postgresConn, err := sql.Open("postgres", connString(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if _, err := postgresConn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		if DebugLog != nil {
			DebugLog("database %q created", cfg.DBName)
		}
	}

	return nil
}

func (db *DB) initSchema(ctx context.Context) error {
	if !db.IsEnabled() {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		id UUID PRIMARY KEY,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_input ON conversions(input_path);
	CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// RecordConversion stores one conversion run.
func (db *DB) RecordConversion(ctx context.Context, r *convert.Result) error {
	if !db.IsEnabled() || r == nil {
		return nil
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO conversions (id, input_path, output_path, status, error, started_at, finished_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.InputPath, r.OutputPath, string(r.Status), r.Error,
		r.StartTime, r.EndTime, r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

// ConversionRecord is a stored conversion run.
type ConversionRecord struct {
	ID         string
	InputPath  string
	OutputPath string
	Status     string
	Error      string
}

// RecentConversions returns up to limit runs, newest first.
func (db *DB) RecentConversions(ctx context.Context, limit int) ([]ConversionRecord, error) {
	if !db.IsEnabled() {
		return nil, nil
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, input_path, output_path, status, error
		FROM conversions
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var records []ConversionRecord
	for rows.Next() {
		var rec ConversionRecord
		if err := rows.Scan(&rec.ID, &rec.InputPath, &rec.OutputPath, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
