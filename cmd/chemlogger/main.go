// chemlogger records one run of a serial sensor into a SQL store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/loader"
	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/session"
	"github.com/xtxerr/chemlogger/internal/store"
	"github.com/xtxerr/chemlogger/internal/transport"
)

// Version is set at build time via ldflags
var Version = "dev"

var log = logging.Component("main")

func main() {
	os.Exit(run())
}

func run() int {
	// CLI flags
	cfgPath := flag.String("config", "chemlogger.yaml", "config file path")
	port := flag.String("port", "", "serial port (overrides config)")
	baud := flag.Int("baud", 0, "baud rate (overrides config)")
	driver := flag.String("driver", "", "store driver: duckdb, sqlite or postgres (overrides config)")
	dsn := flag.String("db", "", "database file or connection URL (overrides config)")
	replay := flag.String("replay", "", "read records from a captured file instead of the serial port (- for stdin)")
	archiveDir := flag.String("archive-dir", "", "write run_<id>.parquet into this directory (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	jsonLogs := flag.Bool("json-logs", false, "log in JSON format")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("chemlogger", Version)
		return 0
	}

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 1
		}
		cfg = loader.DefaultConfig()
	}
	usingDefaults := err != nil

	// CLI overrides
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	if *archiveDir != "" {
		cfg.Archive.ParquetDir = *archiveDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *jsonLogs {
		cfg.Logging.JSON = true
	}

	if err := loader.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	level, _ := loader.LogLevel(&cfg.Logging)
	logging.Init(level, cfg.Logging.JSON)

	log.Info("chemlogger starting", "version", Version)
	if usingDefaults {
		log.Info("no config file found, using defaults", "path", *cfgPath)
	}

	// =========================================================================
	// Store
	// =========================================================================

	sc, err := loader.ToSessionConfig(cfg)
	if err != nil {
		log.Error("build session config", "error", err)
		return 1
	}

	gateway, err := store.NewGateway(loader.ToStoreConfig(&cfg.Store), sc.Schema)
	if err != nil {
		log.Error("create store", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail before the run rather than after it.
	if err := gateway.Check(ctx); err != nil {
		log.Error("store unreachable", "driver", cfg.Store.Driver, "error", err)
		return 1
	}
	log.Info("store ready", "driver", gateway.Dialect().Name, "dsn", cfg.Store.DSN, "table", cfg.Store.SummaryTable)

	// =========================================================================
	// Transport
	// =========================================================================

	var tr transport.Transport
	if *replay != "" {
		tr, err = openReplay(*replay, cfg.Serial.MaxLineBytes, stop)
	} else {
		tr, err = transport.OpenSerial(loader.ToSerialConfig(&cfg.Serial))
	}
	if err != nil {
		log.Error("open transport", "error", err)
		return 1
	}

	// =========================================================================
	// Run
	// =========================================================================

	ctrl, err := session.New(sc, tr, gateway, session.NewConsole(os.Stdout))
	if err != nil {
		tr.Close()
		log.Error("create session", "error", err)
		return 1
	}

	out, err := ctrl.Run(ctx)
	if err != nil {
		if out != nil && out.Partial() {
			log.Error("run partially persisted: summary row has no complete detail table",
				"run_id", out.RunID, "error", err)
		} else {
			log.Error("run not persisted", "error", err)
		}
		return 1
	}

	if out.State == session.StateAborted {
		log.Warn("run aborted by transport fault", "cause", out.Cause, "persisted", out.Persisted)
	}
	if out.ArchiveErr != nil {
		log.Warn("run not archived", "run_id", out.RunID, "error", out.ArchiveErr)
	}
	log.Info("done",
		"state", out.State,
		"run_id", out.RunID,
		"accepted", out.Accepted,
		"rejected", out.Rejected,
		"archive", out.ArchivePath)
	return 0
}

// replay ends a run at the end of the capture, the way an operator
// stop does.
type replay struct {
	transport.Transport
	stop context.CancelFunc
}

func (r *replay) ReadLine() ([]byte, error) {
	line, err := r.Transport.ReadLine()
	if errors.Is(err, io.EOF) {
		r.stop()
	}
	return line, err
}

func openReplay(path string, maxLine int, stop context.CancelFunc) (transport.Transport, error) {
	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		src = f
	}
	log.Info("replaying capture", "path", path)
	return &replay{Transport: transport.NewStreamSize(src, maxLine), stop: stop}, nil
}
