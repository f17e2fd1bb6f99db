package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/series"
	"github.com/xtxerr/chemlogger/internal/validation"
)

var log = logging.Component("archive")

// Archiver writes each persisted run to <dir>/run_<id>.parquet.
type Archiver struct {
	dir  string
	opts Options
}

// NewArchiver creates an archiver writing into dir.
func NewArchiver(dir string, opts Options) *Archiver {
	return &Archiver{dir: dir, opts: opts}
}

// Path returns the archive path of a run.
func (a *Archiver) Path(runID int64) (string, error) {
	name, err := validation.RunTableName(config.DetailTablePrefix, runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.dir, name+".parquet"), nil
}

// Archive writes the run. The file appears under its final name only
// once it is complete.
func (a *Archiver) Archive(ctx context.Context, runID int64, ts *series.TimeSeries) (string, error) {
	path, err := a.Path(runID)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	w, err := NewRunWriter(tmp, ts.Fields(), a.opts)
	if err != nil {
		return "", fmt.Errorf("archive run %d: %w", runID, err)
	}
	if err := w.Write(runID, ts); err != nil {
		w.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("archive run %d: %w", runID, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("archive run %d: %w", runID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("archive run %d: %w", runID, err)
	}

	log.Info("run archived", "run_id", runID, "path", path, "rows", w.RowCount())
	return path, nil
}
