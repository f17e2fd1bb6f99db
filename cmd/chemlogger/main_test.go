package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/session"
	"github.com/xtxerr/chemlogger/internal/store"
	testutil "github.com/xtxerr/chemlogger/internal/testing"
)

func init() {
	logging.Discard()
}

func TestReplay_EndOfCaptureCompletesRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.log")
	capture := "booting\n" + testutil.Capture(10)
	if err := os.WriteFile(path, []byte(capture), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	cfg := store.DefaultConfig()
	cfg.Driver = "sqlite"
	cfg.DSN = filepath.Join(dir, "runs.sqlite")
	gateway, err := store.NewGateway(cfg, testutil.Schema())
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr, err := openReplay(path, 0, cancel)
	if err != nil {
		t.Fatalf("openReplay: %v", err)
	}
	ctrl, err := session.New(session.DefaultConfig(testutil.Schema()), tr, gateway, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	var out *session.Outcome
	err = testutil.WithTimeout(10*time.Second, func() error {
		var runErr error
		out, runErr = ctrl.Run(ctx)
		return runErr
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.State != session.StateCompleted {
		t.Errorf("expected end of capture to complete the run, got %s (%v)", out.State, out.Cause)
	}
	if out.Accepted != 10 || out.Rejected != 1 || !out.Persisted {
		t.Errorf("unexpected outcome: %+v", out)
	}

	detail, err := gateway.LoadDetail(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("LoadDetail: %v", err)
	}
	if len(detail) != 10 {
		t.Errorf("expected 10 stored readings, got %d", len(detail))
	}
}

func TestReplay_MissingFile(t *testing.T) {
	_, err := openReplay(filepath.Join(t.TempDir(), "missing.log"), 0, func() {})
	if err == nil {
		t.Fatal("expected an error for a missing capture")
	}
}
