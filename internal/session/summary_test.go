package session

import (
	"testing"
	"time"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/series"
	"github.com/xtxerr/chemlogger/internal/stats"
)

func TestBuildSummary(t *testing.T) {
	schema := reading.MustSchema([]string{"Time_s", "Temperature_C", "pH"}, "Time_s", nil)
	ts := series.New(schema, 3)
	for _, r := range []reading.Reading{
		reading.New(0, 20, 7),
		reading.New(2, 21, 7),
		reading.New(4, 22, 7),
	} {
		if err := ts.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	date := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	sum, err := BuildSummary(ts, date, stats.DefaultOptions())
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}

	if sum.DateString() != "2026-10-18" {
		t.Errorf("expected date 2026-10-18, got %s", sum.DateString())
	}
	if sum.RecordCount != 3 || sum.FinalElapsed != 4 || sum.MeanInterval != 2 {
		t.Errorf("unexpected scalars: %+v", sum)
	}
	if len(sum.Fields) != 2 || sum.Fields[0].Field != "Temperature_C" || sum.Fields[1].Field != "pH" {
		t.Fatalf("expected tracked fields in schema order, got %+v", sum.Fields)
	}

	temp, ok := sum.Field("Temperature_C")
	if !ok {
		t.Fatal("Temperature_C missing")
	}
	if temp.Min != 20 || temp.Max != 22 || temp.Mean != 21 || temp.Std != 0.8165 {
		t.Errorf("unexpected temperature stats: %+v", temp.Result)
	}

	ph, _ := sum.Field("pH")
	if ph.Std != 0 || ph.Mean != 7 {
		t.Errorf("unexpected pH stats: %+v", ph.Result)
	}

	if _, ok := sum.Field("Time_s"); ok {
		t.Error("elapsed field must not be tracked")
	}
}

func TestBuildSummary_EmptySeries(t *testing.T) {
	schema := reading.MustSchema([]string{"Time_s", "pH"}, "Time_s", nil)
	_, err := BuildSummary(series.New(schema, 0), time.Now(), stats.DefaultOptions())
	if !errors.Is(err, errors.ErrEmptySeries) {
		t.Errorf("expected ErrEmptySeries, got %v", err)
	}
}

func TestBuildSummary_NilSeries(t *testing.T) {
	_, err := BuildSummary(nil, time.Now(), stats.DefaultOptions())
	if !errors.IsStateError(err) {
		t.Errorf("expected state error, got %v", err)
	}
}
