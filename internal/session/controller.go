// Package session drives one recording run from first line to persisted
// result.
//
// A Controller owns the transport for the lifetime of a run. Run reads
// lines until the context is cancelled (the operator stopped the run) or
// the transport fails, then closes the transport exactly once, summarizes
// the accumulated series and hands it to the Persister. Malformed lines
// are reported to the Observer and skipped; they never end a run.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/series"
	"github.com/xtxerr/chemlogger/internal/stats"
	"github.com/xtxerr/chemlogger/internal/transport"
)

// =============================================================================
// State
// =============================================================================

// State is the lifecycle state of a Controller.
type State int32

const (
	// StateIdle means Run has not been called.
	StateIdle State = iota

	// StateRunning means the read loop is active.
	StateRunning

	// StateCompleted means the operator stopped the run.
	StateCompleted

	// StateAborted means the transport failed before a stop.
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal returns true for Completed and Aborted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// =============================================================================
// Collaborators
// =============================================================================

// Persister stores a finished run. store.Gateway implements it.
type Persister interface {
	PersistSummary(ctx context.Context, sum *Summary) (int64, error)
	PersistDetail(ctx context.Context, runID int64, ts *series.TimeSeries) (int64, error)
}

// Archiver writes a copy of a persisted run somewhere else. Archive
// failures are reported but never fail the run.
type Archiver interface {
	Archive(ctx context.Context, runID int64, ts *series.TimeSeries) (string, error)
}

// Config holds controller configuration.
type Config struct {
	Schema *reading.Schema
	Stats  stats.Options

	// PersistOnFault persists whatever was accumulated when the
	// transport fails, the same way a stop does.
	PersistOnFault bool

	// Archiver is optional.
	Archiver Archiver

	// Now returns the session date. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config for schema with default statistics
// options and best-effort persistence on transport faults.
func DefaultConfig(schema *reading.Schema) Config {
	return Config{
		Schema:         schema,
		Stats:          stats.DefaultOptions(),
		PersistOnFault: true,
		Now:            time.Now,
	}
}

// Outcome describes how a run ended.
type Outcome struct {
	// State is Completed or Aborted.
	State State

	// Accepted is the number of readings in the series.
	Accepted int

	// Rejected is the number of lines that failed to parse.
	Rejected int

	// Cause is the transport error that aborted the run, or the
	// cancellation cause of a stop.
	Cause error

	// Summary is nil when no reading was accepted.
	Summary *Summary

	// RunID is set once the summary row is committed.
	RunID int64

	// DetailRows is the row count reported by the detail write.
	DetailRows int64

	// Persisted is true when both the summary and the detail table
	// were written in full.
	Persisted bool

	// Err is the summarize or persistence failure, if any.
	Err error

	// ArchivePath is set when the archive was written.
	ArchivePath string

	// ArchiveErr is the archive failure, if any.
	ArchiveErr error
}

// Partial returns true when a summary row exists without a complete
// detail table.
func (o *Outcome) Partial() bool {
	return errors.Is(o.Err, errors.ErrPartialRun)
}

// =============================================================================
// Controller
// =============================================================================

// Controller runs one recording session. It is single-use.
type Controller struct {
	cfg       Config
	transport transport.Transport
	persister Persister
	observer  Observer

	state atomic.Int32

	closeOnce sync.Once
	closeErr  error
}

// New creates a controller. The controller takes ownership of t and
// closes it when Run returns.
func New(cfg Config, t transport.Transport, p Persister, obs Observer) (*Controller, error) {
	if cfg.Schema == nil {
		return nil, errors.NewMissingField("session.schema")
	}
	if t == nil {
		return nil, errors.NewMissingField("session.transport")
	}
	if p == nil {
		return nil, errors.NewMissingField("session.persister")
	}
	if obs == nil {
		obs = NopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Controller{
		cfg:       cfg,
		transport: t,
		persister: p,
		observer:  obs,
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// sessionLogger returns a logger carrying the session and run ids held
// in ctx.
func sessionLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx).With("component", "session")
}

// closeTransport closes the transport at most once. It is called both by
// the cancellation hook and by the shutdown path.
func (c *Controller) closeTransport() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

// Run records until ctx is cancelled or the transport fails, then
// persists the run. It may be called once.
//
// The returned error is the transition error for a second call, or the
// same failure as Outcome.Err. An aborted run whose data was persisted
// returns a nil error; check Outcome.State.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, fmt.Errorf("run from %s: %w", c.State(), errors.ErrInvalidTransition)
	}

	begin := time.Now()
	ctx = logging.ContextWithSessionID(ctx, c.cfg.Now().Format("20060102T150405"))
	logger := sessionLogger(ctx)

	// A blocked ReadLine only returns once the transport is closed.
	stopHook := context.AfterFunc(ctx, func() { c.closeTransport() })
	defer stopHook()

	ts := series.New(c.cfg.Schema, 0)
	out := &Outcome{}

	logger.Info("session started", "fields", c.cfg.Schema.Fields())
	c.observer.Ready(c.cfg.Schema.Fields())

	out.State, out.Cause = c.record(ctx, ts, out)
	out.Accepted = ts.Len()
	c.state.Store(int32(out.State))

	// Shutdown runs to completion even though ctx is already cancelled.
	sctx := context.WithoutCancel(ctx)

	c.observer.Stopped(out.State, out.Cause)
	closeErr := c.closeTransport()
	if closeErr != nil {
		logger.Warn("close transport", "error", closeErr)
	}
	c.observer.Closed(closeErr)

	logger.Info("session ended",
		"state", out.State,
		"accepted", out.Accepted,
		"rejected", out.Rejected,
		"duration", time.Since(begin).Round(time.Millisecond))

	if ts.IsEmpty() {
		logger.Info("no readings accepted, nothing to persist")
		return out, nil
	}
	if out.State == StateAborted && !c.cfg.PersistOnFault {
		logger.Warn("transport fault, discarding readings", "accepted", out.Accepted)
		return out, nil
	}

	if err := c.persist(sctx, ts, out); err != nil {
		out.Err = err
		logger.Error("persist run", "run_id", out.RunID, "error", err)
		c.observer.Failed(err)
		return out, err
	}
	return out, nil
}

// record runs the read-parse-append loop and returns the terminal state
// and its cause.
func (c *Controller) record(ctx context.Context, ts *series.TimeSeries, out *Outcome) (State, error) {
	for {
		if ctx.Err() != nil {
			return StateCompleted, context.Cause(ctx)
		}

		line, err := c.transport.ReadLine()
		if errors.IsParseError(err) {
			out.Rejected++
			c.observer.LineRejected(string(line), err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return StateCompleted, context.Cause(ctx)
			}
			sessionLogger(ctx).Warn("transport fault", "error", err, "accepted", ts.Len())
			return StateAborted, err
		}

		r, err := reading.Parse(string(line), c.cfg.Schema)
		if err == nil {
			err = ts.Append(r)
		}
		if err != nil {
			out.Rejected++
			sessionLogger(ctx).Debug("line rejected", "line", string(line), "error", err)
			c.observer.LineRejected(string(line), err)
			continue
		}

		c.observer.Progress(ts.Len(), r)
	}
}

// persist writes the summary, then the detail table, then the archive.
// Nothing is retried.
func (c *Controller) persist(ctx context.Context, ts *series.TimeSeries, out *Outcome) error {
	sum, err := BuildSummary(ts, c.cfg.Now(), c.cfg.Stats)
	if err != nil {
		return errors.Wrap(err, "summarize")
	}
	out.Summary = sum

	runID, err := c.persister.PersistSummary(ctx, sum)
	if err != nil {
		return errors.Wrap(err, "persist summary")
	}
	out.RunID = runID
	ctx = logging.ContextWithRunID(ctx, runID)

	rows, err := c.persister.PersistDetail(ctx, runID, ts)
	if err != nil {
		return errors.Join(errors.ErrPartialRun, errors.Wrapf(err, "run %d detail", runID))
	}
	out.DetailRows = rows
	if rows != int64(ts.Len()) {
		return errors.Join(errors.ErrPartialRun,
			fmt.Errorf("run %d wrote %d of %d rows: %w", runID, rows, ts.Len(), errors.ErrRowCountMismatch))
	}

	out.Persisted = true
	logger := sessionLogger(ctx)
	logger.Info("run persisted", "rows", rows, "summary", sum)
	c.observer.Persisted(runID, sum)

	if c.cfg.Archiver != nil {
		path, err := c.cfg.Archiver.Archive(ctx, runID, ts)
		if err != nil {
			out.ArchiveErr = err
			logger.Warn("archive run", "error", err)
		} else {
			out.ArchivePath = path
		}
	}
	return nil
}
