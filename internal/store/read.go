package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xtxerr/chemlogger/internal/errors"
)

// SummaryRecord is a summary row as stored.
type SummaryRecord struct {
	ID           int64
	Date         string
	FinalElapsed float64
	// Stats maps a tracked field to its min, max, mean and std.
	Stats        map[string][4]float64
	RecordCount  int64
	MeanInterval float64
}

// LoadSummary reads back the summary row of a run.
func (g *Gateway) LoadSummary(ctx context.Context, runID int64) (*SummaryRecord, error) {
	if runID <= 0 {
		return nil, fmt.Errorf("run id %d: %w", runID, errors.ErrInvalidRunID)
	}

	tracked := g.schema.Tracked()
	statCols, _ := quoteAll(g.summaryColumns[2 : 2+4*len(tracked)])

	query := fmt.Sprintf(
		`SELECT "%s", CAST("%s" AS VARCHAR), "%s", %s, "%s", "%s" FROM "%s" WHERE "%s" = %s`,
		colID, colSessionDate, colFinalElapsed, statCols, colRecordCount, colMeanInterval,
		g.cfg.SummaryTable, colID, g.dialect.placeholder(1))

	rec := &SummaryRecord{Stats: make(map[string][4]float64, len(tracked))}
	statVals := make([]float64, 4*len(tracked))

	dest := []any{&rec.ID, &rec.Date, &rec.FinalElapsed}
	for i := range statVals {
		dest = append(dest, &statVals[i])
	}
	dest = append(dest, &rec.RecordCount, &rec.MeanInterval)

	err := g.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, query, runID).Scan(dest...)
	})
	if err != nil {
		return nil, errors.Join(errors.ErrPersistence, fmt.Errorf("load summary %d: %w", runID, err))
	}

	for i, f := range tracked {
		rec.Stats[f] = [4]float64{statVals[4*i], statVals[4*i+1], statVals[4*i+2], statVals[4*i+3]}
	}
	// Engines return DATE text in ISO form; drop any time part SQLite kept.
	rec.Date, _, _ = strings.Cut(rec.Date, " ")
	return rec, nil
}

// LoadDetail reads back the detail table of a run, in insertion order.
// Every row's run_id is checked against runID.
func (g *Gateway) LoadDetail(ctx context.Context, runID int64) ([][]float64, error) {
	table, err := g.DetailTable(runID)
	if err != nil {
		return nil, err
	}

	cols, _ := quoteAll(append([]string{colRunID}, g.schema.Fields()...))
	query := fmt.Sprintf(`SELECT %s FROM "%s"`, cols, table)
	if g.dialect.InsertionOrder != "" {
		query += " ORDER BY " + g.dialect.InsertionOrder
	}

	var rows [][]float64
	err = g.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		rs, err := db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rs.Close()

		arity := g.schema.Arity()
		for rs.Next() {
			var rid int64
			vals := make([]float64, arity)
			dest := make([]any, 0, arity+1)
			dest = append(dest, &rid)
			for i := range vals {
				dest = append(dest, &vals[i])
			}
			if err := rs.Scan(dest...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			if rid != runID {
				return fmt.Errorf("row tagged with run %d in %s: %w", rid, table, errors.ErrInvalidRunID)
			}
			rows = append(rows, vals)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, errors.Join(errors.ErrPersistence, fmt.Errorf("load %s: %w", table, err))
	}
	return rows, nil
}
