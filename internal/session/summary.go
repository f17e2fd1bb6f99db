package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/series"
	"github.com/xtxerr/chemlogger/internal/stats"
)

// DateLayout is the format of Summary.Date in storage.
const DateLayout = "2006-01-02"

// FieldStats pairs a tracked field with its statistics.
type FieldStats struct {
	Field string
	stats.Result
}

// Summary is the set of scalars derived from a completed series.
// It is built once at session end and never modified.
type Summary struct {
	// Date is the calendar date the session ended.
	Date time.Time

	// FinalElapsed is the last value of the elapsed-time field.
	FinalElapsed float64

	// Fields holds one entry per tracked field, in schema order.
	Fields []FieldStats

	// RecordCount is the number of accepted readings.
	RecordCount int

	// MeanInterval is the mean difference between consecutive
	// elapsed-time values.
	MeanInterval float64
}

// DateString returns the date in DateLayout.
func (s *Summary) DateString() string {
	return s.Date.Format(DateLayout)
}

// Field returns the statistics of one tracked field.
func (s *Summary) Field(name string) (FieldStats, bool) {
	for _, f := range s.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldStats{}, false
}

// LogValue groups the statistics of every tracked field, including the
// median and tail quantiles that the summary table does not store.
func (s *Summary) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.Fields)+2)
	attrs = append(attrs,
		slog.Int("records", s.RecordCount),
		slog.Float64("final_elapsed", s.FinalElapsed))
	for _, f := range s.Fields {
		fa := []any{
			slog.Float64("min", f.Min),
			slog.Float64("max", f.Max),
			slog.Float64("mean", f.Mean),
			slog.Float64("std", f.Std),
			slog.Float64("median", f.Median),
		}
		if f.HasPercentiles() {
			fa = append(fa,
				slog.Float64("p90", *f.P90),
				slog.Float64("p95", *f.P95),
				slog.Float64("p99", *f.P99))
		}
		attrs = append(attrs, slog.Group(f.Field, fa...))
	}
	return slog.GroupValue(attrs...)
}

// BuildSummary derives the session summary from a completed series.
// It fails with ErrEmptySeries when the series holds no reading.
func BuildSummary(ts *series.TimeSeries, date time.Time, opts stats.Options) (*Summary, error) {
	if ts == nil {
		return nil, fmt.Errorf("summary without a series: %w", errors.ErrInvalidState)
	}
	if ts.IsEmpty() {
		return nil, errors.ErrEmptySeries
	}

	schema := ts.Schema()
	elapsed := ts.ColumnAt(schema.ElapsedIndex())

	sum := &Summary{
		Date:         date,
		FinalElapsed: stats.Round(elapsed[len(elapsed)-1], opts.Precision),
		RecordCount:  ts.Len(),
		MeanInterval: stats.MeanInterval(elapsed, opts.Precision),
	}

	for _, name := range schema.Tracked() {
		col, err := ts.Column(name)
		if err != nil {
			return nil, err
		}
		res, err := stats.Summarize(col, opts)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", name, err)
		}
		sum.Fields = append(sum.Fields, FieldStats{Field: name, Result: res})
	}

	return sum, nil
}
