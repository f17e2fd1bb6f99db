// Package store persists recorded runs into a relational database.
//
// A run is written in two steps. PersistSummary inserts one row into the
// summary table and returns the identifier the database assigned to it.
// PersistDetail then creates the table run_<id> and bulk-inserts every
// reading tagged with that identifier. Each step is its own transaction;
// a failure between them leaves a summary row without a detail table,
// which callers report as a partial run.
//
// Connections are scoped to a single call: every operation opens the
// database, does its work and closes it again, so a failing store can
// never leak a connection held across a session.
//
// Supported engines are DuckDB (default), SQLite and PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/validation"
)

var log = logging.Component("store")

// =============================================================================
// Store Configuration
// =============================================================================

// Config holds store configuration options.
type Config struct {
	// Driver selects the engine: duckdb, sqlite or postgres.
	Driver string

	// DSN is the database connection string (a file path for the
	// embedded engines).
	DSN string

	// SummaryTable holds one row per run.
	SummaryTable string

	// MaxParams bounds the bind parameters of one INSERT statement.
	MaxParams int

	// Timeout bounds one persistence call. Zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:       config.DefaultDriver,
		DSN:          config.DefaultDSN,
		SummaryTable: config.DefaultSummaryTable,
		MaxParams:    config.DefaultMaxParams,
		Timeout:      config.DefaultStoreTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	errs := errors.NewValidationErrors()
	if _, err := LookupDialect(c.Driver); err != nil {
		errs.Add(err)
	}
	if c.DSN == "" {
		errs.AddMissing("store.dsn")
	}
	if err := validation.ValidateIdentifier(c.SummaryTable); err != nil {
		errs.AddField("store.summary_table", err.Error())
	}
	if c.MaxParams < 0 {
		errs.AddField("store.max_params", "cannot be negative")
	}
	return errs.Err()
}

// =============================================================================
// Connection scope
// =============================================================================

// withDB opens the database, runs fn and closes the database again.
func (g *Gateway) withDB(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	db, err := sql.Open(g.dialect.DriverName, g.cfg.DSN)
	if err != nil {
		return fmt.Errorf("open %s database: %w", g.dialect.Name, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Warn("close database", "driver", g.dialect.Name, "error", cerr)
		}
	}()

	// One connection is enough for a single call and keeps the embedded
	// engines from contending for their file lock.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s database: %w", g.dialect.Name, err)
	}

	return fn(ctx, db)
}

// =============================================================================
// Transaction Support
// =============================================================================

// transaction executes fn within a database transaction.
//
// If fn returns an error, the transaction is rolled back.
// If fn returns nil, the transaction is committed.
func transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// =============================================================================
// Query Helpers
// =============================================================================

// placeholders returns "(m1, m2, ...)" for n arguments starting at
// argument number start (1-based).
func (g *Gateway) placeholders(start, n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(g.dialect.placeholder(start + i))
	}
	b.WriteByte(')')
	return b.String()
}

// quoteAll quotes every identifier and joins them with commas.
func quoteAll(names []string) (string, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		q, err := validation.QuoteIdentifier(n)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, ", "), nil
}
