// Package stats computes summary statistics over a finite numeric sequence.
//
// Summarize is a pure function. It reports the minimum, maximum,
// arithmetic mean, population standard deviation and exact median of its
// input, optionally extended with tail quantiles estimated by a DDSketch.
// Every output is rounded to a fixed number of decimal places so that
// reported and stored values agree.
//
// The standard deviation divides by N, not N-1. Recorded runs have always
// been summarised this way and existing tables depend on it.
package stats

import (
	"fmt"
	"math"
	"slices"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
)

// largeMagnitude is the absolute value above which squares of deviations
// may overflow float64.
const largeMagnitude = 1e150

// Options controls rounding and optional quantiles.
type Options struct {
	// Precision is the number of decimal places kept (0-12).
	Precision int

	// Percentiles enables the P90/P95/P99 estimates.
	Percentiles bool

	// SketchAccuracy is the relative accuracy of the quantile sketch.
	SketchAccuracy float64
}

// DefaultOptions returns 4-decimal rounding without quantiles.
func DefaultOptions() Options {
	return Options{
		Precision:      config.DefaultPrecision,
		SketchAccuracy: config.DefaultSketchAccuracy,
	}
}

// Result holds the statistics of one sequence.
type Result struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Median float64

	// Tail quantiles (nil unless Options.Percentiles is set)
	P90 *float64
	P95 *float64
	P99 *float64
}

// HasPercentiles returns true if quantile estimates are available.
func (r *Result) HasPercentiles() bool {
	return r.P90 != nil
}

// SetPercentiles sets all tail quantiles.
func (r *Result) SetPercentiles(p90, p95, p99 float64) {
	r.P90 = &p90
	r.P95 = &p95
	r.P99 = &p99
}

// Summarize computes the statistics of values.
// It fails with ErrEmptySeries when values is empty.
func Summarize(values []float64, opts Options) (Result, error) {
	if len(values) == 0 {
		return Result{}, errors.ErrEmptySeries
	}
	if opts.Precision < 0 || opts.Precision > 12 {
		return Result{}, errors.NewInvalidValue("precision", opts.Precision, "must be between 0 and 12")
	}

	n := float64(len(values))
	minV, maxV, mean := math.MaxFloat64, -math.MaxFloat64, 0.0
	for i, v := range values {
		// Incremental mean; a running sum overflows for large readings.
		k := float64(i + 1)
		mean += v/k - mean/k
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	// Second pass over the deviations keeps the variance stable for
	// readings with a large common offset (elapsed seconds, kelvin).
	// Deviations are scaled when squaring them could overflow.
	scale := math.Max(math.Abs(minV), math.Abs(maxV))
	if scale < largeMagnitude {
		scale = 1
	}
	var sq float64
	for _, v := range values {
		d := v/scale - mean/scale
		sq += d * d
	}
	std := scale * math.Sqrt(sq/n)

	result := Result{
		Count:  len(values),
		Min:    Round(minV, opts.Precision),
		Max:    Round(maxV, opts.Precision),
		Mean:   Round(mean, opts.Precision),
		Std:    Round(std, opts.Precision),
		Median: Round(median(values), opts.Precision),
	}

	if opts.Percentiles {
		p, err := quantiles(values, opts.SketchAccuracy)
		if err != nil {
			return Result{}, err
		}
		result.SetPercentiles(
			Round(p[0], opts.Precision),
			Round(p[1], opts.Precision),
			Round(p[2], opts.Precision),
		)
	}

	return result, nil
}

// MeanInterval returns the mean difference between consecutive values,
// or 0 for fewer than two values.
func MeanInterval(values []float64, precision int) float64 {
	if len(values) < 2 {
		return 0
	}
	k := float64(len(values) - 1)
	return Round(values[len(values)-1]/k-values[0]/k, precision)
}

// Round rounds v to the given number of decimal places, halves away
// from zero. Values too large to carry a fractional digit at that
// precision are returned unchanged.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(precision)
	if math.Abs(v) >= (1<<52)/p {
		return v
	}
	return math.Round(v*p) / p
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1]/2 + sorted[mid]/2
}

// quantiles estimates P90, P95 and P99.
func quantiles(values []float64, accuracy float64) ([3]float64, error) {
	var out [3]float64

	if accuracy <= 0 || accuracy >= 1 {
		accuracy = config.DefaultSketchAccuracy
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return out, fmt.Errorf("create sketch: %w", err)
	}
	for _, v := range values {
		if err := sketch.Add(v); err != nil {
			return out, fmt.Errorf("add to sketch: %w", err)
		}
	}

	for i, q := range []float64{0.90, 0.95, 0.99} {
		v, err := sketch.GetValueAtQuantile(q)
		if err != nil {
			return out, fmt.Errorf("quantile %.2f: %w", q, err)
		}
		out[i] = v
	}
	return out, nil
}
