// Package loader handles configuration file loading, validation, and
// conversion into the settings of each component.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating every section, reporting all problems at once
//   - Converting between YAML and internal representations

package loader

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/logging"
	"github.com/xtxerr/chemlogger/internal/reading"
	"github.com/xtxerr/chemlogger/internal/session"
	"github.com/xtxerr/chemlogger/internal/stats"
	"github.com/xtxerr/chemlogger/internal/storage/parquet"
	"github.com/xtxerr/chemlogger/internal/store"
	"github.com/xtxerr/chemlogger/internal/transport"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	errs.Add(ToSerialConfig(&cfg.Serial).Validate())

	schema, err := ToSchema(&cfg.Schema)
	errs.Add(err)

	storeCfg := ToStoreConfig(&cfg.Store)
	errs.Add(storeCfg.Validate())
	if schema != nil && err == nil && storeCfg.Validate() == nil {
		// Derived column names are only known with the schema.
		if _, gerr := store.NewGateway(storeCfg, schema); gerr != nil {
			errs.Add(gerr)
		}
	}

	if cfg.Stats.Precision < 0 || cfg.Stats.Precision > 12 {
		errs.AddField("stats.precision", "must be between 0 and 12")
	}
	if cfg.Stats.SketchAccuracy <= 0 || cfg.Stats.SketchAccuracy >= 1 {
		errs.AddField("stats.sketch_accuracy", "must be between 0 and 1 exclusive")
	}

	if _, err := parquet.ParseCompressionType(cfg.Archive.Compression); err != nil {
		errs.Add(err)
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.AddField("logging.level", err.Error())
	}

	return errs.Err()
}

// =============================================================================
// Conversion
// =============================================================================

// ToSerialConfig converts the serial section.
func ToSerialConfig(cfg *SerialConfig) transport.SerialConfig {
	return transport.SerialConfig{
		Port:         cfg.Port,
		BaudRate:     cfg.Baud,
		DataBits:     cfg.DataBits,
		ResetOnOpen:  cfg.ResetOnOpen,
		ResetDelay:   cfg.ResetDelay.Duration(),
		MaxLineBytes: cfg.MaxLineBytes,
	}
}

// ToSchema converts the schema section.
func ToSchema(cfg *SchemaConfig) (*reading.Schema, error) {
	return reading.NewSchema(cfg.Fields, cfg.ElapsedField, cfg.Tracked)
}

// ToStoreConfig converts the store section.
func ToStoreConfig(cfg *StoreConfig) store.Config {
	return store.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		SummaryTable: cfg.SummaryTable,
		MaxParams:    cfg.MaxParams,
		Timeout:      cfg.Timeout.Duration(),
	}
}

// ToStatsOptions converts the stats section.
func ToStatsOptions(cfg *StatsConfig) stats.Options {
	return stats.Options{
		Precision:      cfg.Precision,
		Percentiles:    cfg.Percentiles,
		SketchAccuracy: cfg.SketchAccuracy,
	}
}

// ToSessionConfig converts the schema, stats and session sections. The
// archiver is attached when archive.parquet_dir is set.
func ToSessionConfig(cfg *Config) (session.Config, error) {
	schema, err := ToSchema(&cfg.Schema)
	if err != nil {
		return session.Config{}, err
	}

	sc := session.DefaultConfig(schema)
	sc.Stats = ToStatsOptions(&cfg.Stats)
	sc.PersistOnFault = cfg.Session.PersistOnFault

	if cfg.Archive.ParquetDir != "" {
		opts, err := ToArchiveOptions(&cfg.Archive)
		if err != nil {
			return session.Config{}, err
		}
		sc.Archiver = parquet.NewArchiver(cfg.Archive.ParquetDir, opts)
	}
	return sc, nil
}

// ToArchiveOptions converts the archive section.
func ToArchiveOptions(cfg *ArchiveConfig) (parquet.Options, error) {
	ct, err := parquet.ParseCompressionType(cfg.Compression)
	if err != nil {
		return parquet.Options{}, err
	}
	opts := parquet.DefaultOptions()
	opts.Compression = ct
	return opts, nil
}

// LogLevel returns the configured log level.
func LogLevel(cfg *LoggingConfig) (slog.Level, error) {
	return logging.ParseLevel(cfg.Level)
}
