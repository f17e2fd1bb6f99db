package store

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/session"
	testutil "github.com/xtxerr/chemlogger/internal/testing"
	"github.com/xtxerr/chemlogger/internal/transport"
)

// stopAtEnd cancels the run when the capture is exhausted, the way an
// operator stops the instrument after its last line.
type stopAtEnd struct {
	transport.Transport
	stop context.CancelFunc
}

func (s *stopAtEnd) ReadLine() ([]byte, error) {
	line, err := s.Transport.ReadLine()
	if errors.Is(err, io.EOF) {
		s.stop()
	}
	return line, err
}

// recordRun runs one session over capture into g and returns its outcome.
func recordRun(t *testing.T, g *Gateway, capture string) *session.Outcome {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &stopAtEnd{Transport: transport.NewStream(strings.NewReader(capture)), stop: cancel}
	cfg := session.DefaultConfig(testutil.Schema())
	cfg.Now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	c, err := session.New(cfg, tr, g, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	var out *session.Outcome
	err = testutil.WithTimeout(10*time.Second, func() error {
		var runErr error
		out, runErr = c.Run(ctx)
		return runErr
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

// storedTables lists the user tables of an embedded database.
func storedTables(t *testing.T, g *Gateway) []string {
	t.Helper()
	query := `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`
	if g.Dialect().Name == "sqlite" {
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}

	db, err := sql.Open(g.Dialect().DriverName, g.cfg.DSN)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	return names
}

func countRows(t *testing.T, g *Gateway, table string) int64 {
	t.Helper()
	db, err := sql.Open(g.Dialect().DriverName, g.cfg.DSN)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSession_StopPersistsOneRun(t *testing.T) {
	for _, driver := range []string{"duckdb", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			g := newGateway(t, driver)

			out := recordRun(t, g, "0,20.0,7.00\n0.5,oops,7.01\n1,20.5,7.02\n")
			if out.State != session.StateCompleted {
				t.Fatalf("expected completed, got %s (%v)", out.State, out.Cause)
			}
			if out.Accepted != 2 || out.Rejected != 1 || !out.Persisted {
				t.Fatalf("unexpected outcome: %+v", out)
			}

			table, _ := g.DetailTable(out.RunID)
			got := strings.Join(storedTables(t, g), ",")
			if got != "reactions,"+table {
				t.Errorf("expected summary and %s only, got %s", table, got)
			}
			if n := countRows(t, g, "reactions"); n != 1 {
				t.Errorf("expected one summary row, got %d", n)
			}
			if n := countRows(t, g, table); n != 2 {
				t.Errorf("expected 2 detail rows, got %d", n)
			}

			// A second session adds a row and a table of its own.
			second := recordRun(t, g, testutil.Capture(5))
			if second.RunID == out.RunID {
				t.Fatalf("second session reused run id %d", out.RunID)
			}
			if n := countRows(t, g, "reactions"); n != 2 {
				t.Errorf("expected two summary rows, got %d", n)
			}
			secondTable, _ := g.DetailTable(second.RunID)
			if n := countRows(t, g, secondTable); n != 5 {
				t.Errorf("expected 5 rows in %s, got %d", secondTable, n)
			}
			if n := countRows(t, g, table); n != 2 {
				t.Errorf("first run changed to %d rows", n)
			}
		})
	}
}

func TestSession_NoReadingsLeavesStoreEmpty(t *testing.T) {
	g := newGateway(t, "sqlite")

	out := recordRun(t, g, "booting\nready\n")
	if out.Accepted != 0 || out.Persisted {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if tables := storedTables(t, g); len(tables) != 0 {
		t.Errorf("expected no tables, got %v", tables)
	}
}
