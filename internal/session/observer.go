package session

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/xtxerr/chemlogger/internal/reading"
)

// Observer receives progress and lifecycle events from a Controller.
// All methods are called from the goroutine running Run.
type Observer interface {
	// Ready is called once before the first read.
	Ready(fields []string)

	// Progress is called after every accepted reading; n is the
	// series length including r.
	Progress(n int, r reading.Reading)

	// LineRejected is called for every line that failed to parse.
	LineRejected(line string, err error)

	// Stopped is called when the read loop ends.
	Stopped(state State, cause error)

	// Closed is called after the transport was closed.
	Closed(err error)

	// Persisted is called once the summary and detail table are written.
	Persisted(runID int64, sum *Summary)

	// Failed is called when summarizing or persisting fails.
	Failed(err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Ready([]string) {}
func (NopObserver) Progress(int, reading.Reading) {}
func (NopObserver) LineRejected(string, error) {}
func (NopObserver) Stopped(State, error) {}
func (NopObserver) Closed(error) {}
func (NopObserver) Persisted(int64, *Summary) {}
func (NopObserver) Failed(error) {}

// =============================================================================
// Console
// =============================================================================

// Console prints progress lines and lifecycle messages for an operator.
// Values are shown with two decimals. Output is coloured when w is a
// terminal.
type Console struct {
	w      io.Writer
	fields []string

	ok   *color.Color
	warn *color.Color
	bad  *color.Color
	dim  *color.Color
}

// NewConsole creates a console observer writing to w.
func NewConsole(w io.Writer) *Console {
	c := &Console{
		w:    w,
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	tty := false
	if f, isFile := w.(*os.File); isFile {
		tty = term.IsTerminal(int(f.Fd()))
	}
	for _, col := range []*color.Color{c.ok, c.warn, c.bad, c.dim} {
		if tty {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) Ready(fields []string) {
	c.fields = append([]string(nil), fields...)
	c.ok.Fprintf(c.w, "sensor ready, recording %s\n", strings.Join(fields, ", "))
	c.dim.Fprintln(c.w, "press Ctrl+C to stop")
}

func (c *Console) Progress(n int, r reading.Reading) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", humanize.Comma(int64(n)))
	for i := 0; i < r.Len(); i++ {
		name := fmt.Sprintf("field%d", i)
		if i < len(c.fields) {
			name = c.fields[i]
		}
		fmt.Fprintf(&b, " %s=%.2f", name, r.At(i))
	}
	fmt.Fprintln(c.w, b.String())
}

func (c *Console) LineRejected(line string, err error) {
	c.warn.Fprintf(c.w, "skipped line %q: %v\n", line, err)
}

func (c *Console) Stopped(state State, cause error) {
	if state == StateAborted {
		c.bad.Fprintf(c.w, "connection lost: %v\n", cause)
		return
	}
	fmt.Fprintln(c.w, "recording stopped")
}

func (c *Console) Closed(err error) {
	if err != nil {
		c.warn.Fprintf(c.w, "serial connection closed with error: %v\n", err)
		return
	}
	c.dim.Fprintln(c.w, "serial connection closed")
}

func (c *Console) Persisted(runID int64, sum *Summary) {
	c.ok.Fprintf(c.w, "run %d saved: %s readings, %.2f s, mean interval %.2f s\n",
		runID, humanize.Comma(int64(sum.RecordCount)), sum.FinalElapsed, sum.MeanInterval)
	for _, f := range sum.Fields {
		fmt.Fprintf(c.w, "  %-16s min %.2f  max %.2f  mean %.2f  std %.2f  median %.2f",
			f.Field, f.Min, f.Max, f.Mean, f.Std, f.Median)
		if f.HasPercentiles() {
			fmt.Fprintf(c.w, "  p90 %.2f  p95 %.2f  p99 %.2f", *f.P90, *f.P95, *f.P99)
		}
		fmt.Fprintln(c.w)
	}
}

func (c *Console) Failed(err error) {
	c.bad.Fprintf(c.w, "error: %v\n", err)
}
