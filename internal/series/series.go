// Package series accumulates readings into an in-memory, column-oriented
// time series.
//
// Every column has the same length at every observation point: Append
// either adds one value to each column or leaves the series untouched.
// A TimeSeries is owned by one goroutine (the session loop) and is not
// safe for concurrent mutation.
package series

import (
	"fmt"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/reading"
)

// TimeSeries maps each schema field to its ordered sequence of values.
// Insertion order is arrival order and columns are index-aligned.
type TimeSeries struct {
	schema  *reading.Schema
	columns [][]float64
}

// New creates an empty series for schema. capacity pre-sizes each column.
func New(schema *reading.Schema, capacity int) *TimeSeries {
	if capacity < 0 {
		capacity = 0
	}
	cols := make([][]float64, schema.Arity())
	for i := range cols {
		cols[i] = make([]float64, 0, capacity)
	}
	return &TimeSeries{schema: schema, columns: cols}
}

// Append adds one reading to the series.
//
// The arity check runs before any column is touched, so a rejected
// reading never produces a partial row.
func (ts *TimeSeries) Append(r reading.Reading) error {
	if r.Len() != len(ts.columns) {
		return fmt.Errorf("append reading with %d values to %d-field series: %w",
			r.Len(), len(ts.columns), errors.ErrArityMismatch)
	}

	for i := range ts.columns {
		ts.columns[i] = append(ts.columns[i], r.At(i))
	}
	return nil
}

// Schema returns the schema the series was created for.
func (ts *TimeSeries) Schema() *reading.Schema {
	return ts.schema
}

// Len returns the number of readings accumulated.
func (ts *TimeSeries) Len() int {
	if len(ts.columns) == 0 {
		return 0
	}
	return len(ts.columns[0])
}

// IsEmpty returns true if no reading has been accumulated.
func (ts *TimeSeries) IsEmpty() bool {
	return ts.Len() == 0
}

// Fields returns the field names in schema order.
func (ts *TimeSeries) Fields() []string {
	return ts.schema.Fields()
}

// Column returns a copy of the values of one field.
func (ts *TimeSeries) Column(name string) ([]float64, error) {
	i, ok := ts.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, errors.ErrUnknownField)
	}
	return append([]float64(nil), ts.columns[i]...), nil
}

// ColumnAt returns a copy of column i.
func (ts *TimeSeries) ColumnAt(i int) []float64 {
	return append([]float64(nil), ts.columns[i]...)
}

// Row returns the reading stored at index i.
func (ts *TimeSeries) Row(i int) reading.Reading {
	vals := make([]float64, len(ts.columns))
	for c := range ts.columns {
		vals[c] = ts.columns[c][i]
	}
	return reading.New(vals...)
}

// Last returns the most recent reading.
func (ts *TimeSeries) Last() (reading.Reading, bool) {
	n := ts.Len()
	if n == 0 {
		return reading.Reading{}, false
	}
	return ts.Row(n - 1), true
}

// Each calls fn for every row in arrival order until fn returns an error.
func (ts *TimeSeries) Each(fn func(i int, row []float64) error) error {
	row := make([]float64, len(ts.columns))
	for i := 0; i < ts.Len(); i++ {
		for c := range ts.columns {
			row[c] = ts.columns[c][i]
		}
		if err := fn(i, row); err != nil {
			return err
		}
	}
	return nil
}
