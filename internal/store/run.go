package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/series"
	"github.com/xtxerr/chemlogger/internal/session"
	"github.com/xtxerr/chemlogger/internal/validation"
)

// Summary table columns that do not depend on the schema.
const (
	colID           = "id"
	colSessionDate  = "session_date"
	colFinalElapsed = "final_elapsed"
	colRecordCount  = "record_count"
	colMeanInterval = "mean_interval"
	colRunID        = "run_id"
)

// statSuffixes name the four per-field summary columns, in table order.
var statSuffixes = []string{"_min", "_max", "_mean", "_std"}

// Gateway writes summaries and detail tables for one schema.
//
// Gateway holds no connection; it is safe for concurrent use.
type Gateway struct {
	cfg     Config
	dialect *Dialect
	schema  *reading.Schema

	// summaryColumns lists every summary column except id, in table order.
	summaryColumns []string
}

// NewGateway validates cfg against schema and prepares the statements
// that do not depend on a run.
func NewGateway(cfg Config, schema *reading.Schema) (*Gateway, error) {
	if cfg.MaxParams == 0 {
		cfg.MaxParams = config.DefaultMaxParams
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialect, _ := LookupDialect(cfg.Driver)

	cols := []string{colSessionDate, colFinalElapsed}
	for _, f := range schema.Tracked() {
		for _, suffix := range statSuffixes {
			cols = append(cols, f+suffix)
		}
	}
	cols = append(cols, colRecordCount, colMeanInterval)

	// Derived names can exceed the identifier limit even when the field
	// names do not.
	if err := validation.ValidateFieldNames(cols); err != nil {
		return nil, errors.Join(errors.ErrInvalidConfig, fmt.Errorf("summary columns: %w", err))
	}
	if err := validation.ValidateFieldNames(append([]string{colRunID}, schema.Fields()...)); err != nil {
		return nil, errors.Join(errors.ErrInvalidConfig, fmt.Errorf("detail columns: %w", err))
	}

	return &Gateway{
		cfg:            cfg,
		dialect:        dialect,
		schema:         schema,
		summaryColumns: cols,
	}, nil
}

// Dialect returns the engine dialect in use.
func (g *Gateway) Dialect() *Dialect {
	return g.dialect
}

// DetailTable returns the detail table name of a run.
func (g *Gateway) DetailTable(runID int64) (string, error) {
	name, err := validation.RunTableName(config.DetailTablePrefix, runID)
	if err != nil {
		return "", errors.Join(errors.ErrInvalidRunID, err)
	}
	return name, nil
}

// Check opens and closes the database to verify it is reachable.
func (g *Gateway) Check(ctx context.Context) error {
	err := g.withDB(ctx, func(context.Context, *sql.DB) error { return nil })
	if err != nil {
		return errors.Join(errors.ErrPersistence, err)
	}
	return nil
}

// =============================================================================
// DDL
// =============================================================================

// summaryDDL returns the statements that create the summary table.
func (g *Gateway) summaryDDL() []string {
	pre, idDef := g.dialect.idColumn(g.cfg.SummaryTable)

	defs := []string{idDef, fmt.Sprintf(`"%s" DATE NOT NULL`, colSessionDate)}
	for _, c := range g.summaryColumns[1:] {
		typ := g.dialect.FloatType
		if c == colRecordCount {
			typ = "BIGINT"
		}
		defs = append(defs, fmt.Sprintf(`"%s" %s NOT NULL`, c, typ))
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS \"%s\" (\n\t%s\n)",
		g.cfg.SummaryTable, strings.Join(defs, ",\n\t"))
	return append(pre, stmt)
}

// detailDDL returns the statement that creates the detail table.
func (g *Gateway) detailDDL(table string) string {
	defs := []string{fmt.Sprintf(`"%s" BIGINT NOT NULL REFERENCES "%s"("%s")`,
		colRunID, g.cfg.SummaryTable, colID)}
	for _, f := range g.schema.Fields() {
		defs = append(defs, fmt.Sprintf(`"%s" %s NOT NULL`, f, g.dialect.FloatType))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS \"%s\" (\n\t%s\n)",
		table, strings.Join(defs, ",\n\t"))
}

// =============================================================================
// Summary
// =============================================================================

// PersistSummary creates the summary table if needed, inserts one row
// and returns the identifier the database assigned to it. The row is
// committed before PersistSummary returns.
func (g *Gateway) PersistSummary(ctx context.Context, sum *session.Summary) (int64, error) {
	args, err := g.summaryArgs(sum)
	if err != nil {
		return 0, errors.Join(errors.ErrPersistence, err)
	}

	cols, _ := quoteAll(g.summaryColumns)
	values := g.placeholders(1, len(args))
	if g.dialect.castDate {
		// session_date is always the first argument.
		first := g.dialect.placeholder(1)
		values = "(CAST(" + first + " AS DATE)" + strings.TrimPrefix(values, "("+first)
	}
	insert := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES %s RETURNING "%s"`,
		g.cfg.SummaryTable, cols, values, colID)

	var runID int64
	err = g.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		return transaction(ctx, db, func(tx *sql.Tx) error {
			for _, stmt := range g.summaryDDL() {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return errors.Wrap(err, "create summary table")
				}
			}
			if err := tx.QueryRowContext(ctx, insert, args...).Scan(&runID); err != nil {
				return errors.Wrap(err, "insert summary")
			}
			return nil
		})
	})
	if err != nil {
		return 0, errors.Join(errors.ErrPersistence, err)
	}
	if runID <= 0 {
		return 0, errors.Join(errors.ErrPersistence,
			fmt.Errorf("database assigned id %d: %w", runID, errors.ErrInvalidRunID))
	}

	log.Info("summary persisted", "table", g.cfg.SummaryTable, "run_id", runID, "records", sum.RecordCount)
	return runID, nil
}

// summaryArgs flattens a summary into insert arguments, in column order.
func (g *Gateway) summaryArgs(sum *session.Summary) ([]any, error) {
	args := make([]any, 0, len(g.summaryColumns))
	args = append(args, sum.DateString(), sum.FinalElapsed)

	for _, f := range g.schema.Tracked() {
		fs, ok := sum.Field(f)
		if !ok {
			return nil, fmt.Errorf("summary lacks tracked field %q: %w", f, errors.ErrMissingField)
		}
		args = append(args, fs.Min, fs.Max, fs.Mean, fs.Std)
	}

	args = append(args, int64(sum.RecordCount), sum.MeanInterval)
	return args, nil
}

// =============================================================================
// Detail
// =============================================================================

// PersistDetail creates run_<runID> and inserts one row per reading of
// ts, in arrival order, each tagged with runID. It returns the number of
// rows the table holds after the commit; callers compare it to ts.Len().
func (g *Gateway) PersistDetail(ctx context.Context, runID int64, ts *series.TimeSeries) (int64, error) {
	if ts == nil {
		return 0, fmt.Errorf("detail of run %d without a series: %w", runID, errors.ErrInvalidState)
	}
	table, err := g.DetailTable(runID)
	if err != nil {
		return 0, err
	}
	if ts.Schema().Arity() != g.schema.Arity() {
		return 0, fmt.Errorf("series has %d fields, store expects %d: %w",
			ts.Schema().Arity(), g.schema.Arity(), errors.ErrArityMismatch)
	}

	var count int64
	err = g.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		return transaction(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, g.detailDDL(table)); err != nil {
				return errors.Wrapf(err, "create %s", table)
			}
			if err := g.insertDetailRows(ctx, tx, table, runID, ts); err != nil {
				return err
			}
			q := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table)
			if err := tx.QueryRowContext(ctx, q).Scan(&count); err != nil {
				return errors.Wrapf(err, "count %s", table)
			}
			return nil
		})
	})
	if err != nil {
		return 0, errors.Join(errors.ErrPersistence, err)
	}

	log.Info("detail persisted", "table", table, "rows", count)
	return count, nil
}

// insertDetailRows writes the series with multi-row INSERT statements,
// chunked to stay under the driver's parameter limit.
func (g *Gateway) insertDetailRows(ctx context.Context, tx *sql.Tx, table string, runID int64, ts *series.TimeSeries) error {
	perRow := 1 + g.schema.Arity()
	rowsPerStmt := g.cfg.MaxParams / perRow
	if rowsPerStmt < 1 {
		rowsPerStmt = 1
	}

	chunk := make([][]float64, 0, rowsPerStmt)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		query, args := g.buildDetailInsert(table, runID, chunk)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "insert into %s", table)
		}
		chunk = chunk[:0]
		return nil
	}

	err := ts.Each(func(_ int, row []float64) error {
		chunk = append(chunk, append([]float64(nil), row...))
		if len(chunk) == rowsPerStmt {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// buildDetailInsert builds one multi-row INSERT statement.
func (g *Gateway) buildDetailInsert(table string, runID int64, rows [][]float64) (string, []any) {
	perRow := 1 + g.schema.Arity()
	args := make([]any, 0, len(rows)*perRow)

	cols, _ := quoteAll(append([]string{colRunID}, g.schema.Fields()...))

	var query strings.Builder
	query.Grow(64 + len(cols) + len(rows)*perRow*4)
	fmt.Fprintf(&query, `INSERT INTO "%s" (%s) VALUES `, table, cols)

	for i, row := range rows {
		if i > 0 {
			query.WriteByte(',')
		}
		query.WriteString(g.placeholders(i*perRow+1, perRow))

		args = append(args, runID)
		for _, v := range row {
			args = append(args, v)
		}
	}

	return query.String(), args
}
