package session

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/stats"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Ready([]string{"Time_s", "Temperature_C", "pH"})
	c.Progress(1234, reading.New(12, 21.456, 7.004))
	c.LineRejected("1,x,7", fmt.Errorf("bad number"))
	c.Stopped(StateCompleted, nil)
	c.Closed(nil)
	c.Persisted(7, &Summary{
		RecordCount:  1234,
		FinalElapsed: 1233,
		MeanInterval: 1,
		Fields: []FieldStats{
			{Field: "pH", Result: stats.Result{Min: 6.9, Max: 7.1, Mean: 7.0012, Std: 0.05, Median: 7.001}},
		},
	})

	out := buf.String()
	for _, want := range []string{
		"sensor ready, recording Time_s, Temperature_C, pH",
		"[1,234] Time_s=12.00 Temperature_C=21.46 pH=7.00",
		`skipped line "1,x,7": bad number`,
		"recording stopped",
		"serial connection closed",
		"run 7 saved: 1,234 readings, 1233.00 s",
		"mean 7.00",
		"median 7.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "p90") {
		t.Errorf("expected no quantiles without percentiles:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no colour codes when not writing to a terminal:\n%q", out)
	}
}

func TestConsole_Aborted(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Stopped(StateAborted, fmt.Errorf("device disconnected"))
	c.Failed(fmt.Errorf("disk full"))

	out := buf.String()
	if !strings.Contains(out, "connection lost: device disconnected") {
		t.Errorf("missing abort message:\n%s", out)
	}
	if !strings.Contains(out, "error: disk full") {
		t.Errorf("missing failure message:\n%s", out)
	}
}

func TestConsole_Percentiles(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	res := stats.Result{Min: 20, Max: 40, Mean: 30, Std: 5, Median: 29.5}
	res.SetPercentiles(38.1, 39.05, 39.81)
	c.Persisted(3, &Summary{
		RecordCount: 100,
		Fields:      []FieldStats{{Field: "Temperature_C", Result: res}},
	})

	out := buf.String()
	want := "median 29.50  p90 38.10  p95 39.05  p99 39.81"
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
}
