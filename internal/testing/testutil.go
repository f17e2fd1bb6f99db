// Package testing provides fixtures and helpers shared by the chemlogger
// package tests.
//
// Import it under an alias to keep the standard library name free:
//
//	import testutil "github.com/xtxerr/chemlogger/internal/testing"
package testing

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/series"
)

// =============================================================================
// Fixtures
// =============================================================================

// Fields is the record layout of the reference instrument.
var Fields = []string{"Time_s", "Temperature_C", "pH"}

// Schema returns the reference schema: Time_s elapsed, Temperature_C and
// pH tracked.
func Schema() *reading.Schema {
	return reading.MustSchema(Fields, "Time_s", nil)
}

// Values returns the i-th reference reading: one second apart, a slow
// temperature ramp and a pH that cycles through five values.
func Values(i int) []float64 {
	return []float64{float64(i), 20 + 0.25*float64(i), 7 + 0.01*float64(i%5)}
}

// Series returns a reference series of n readings.
func Series(t testing.TB, n int) *series.TimeSeries {
	t.Helper()
	ts := series.New(Schema(), n)
	for i := 0; i < n; i++ {
		if err := ts.Append(reading.New(Values(i)...)); err != nil {
			t.Fatalf("Append reading %d: %v", i, err)
		}
	}
	return ts
}

// Capture returns n reference readings as the instrument prints them,
// one comma-separated line each.
func Capture(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		vals := Values(i)
		for c, v := range vals {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteString("\r\n")
	}
	return b.String()
}

// DSN returns a database path for an embedded driver inside the test's
// temporary directory.
func DSN(t testing.TB, driver string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "runs."+driver)
}

// =============================================================================
// Test Timeout Helper
// =============================================================================

// WithTimeout runs a function with a timeout.
//
// Example:
//
//	err := testutil.WithTimeout(5*time.Second, func() error {
//	    _, err := ctrl.Run(ctx)
//	    return err
//	})
//	if err != nil {
//	    t.Fatal(err)
//	}
func WithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// Eventually waits for a condition to become true.
//
// Example:
//
//	err := testutil.Eventually(time.Second, 10*time.Millisecond, func() bool {
//	    return tr.Closed()
//	})
func Eventually(timeout, interval time.Duration, condition func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
