// Package loader - Configuration Types
//
// Defines the YAML configuration structure for chemlogger.
//
// ARCHITECTURE:
//
//   config.yaml
//   ├── serial:   instrument port, baud rate, reset handshake
//   ├── schema:   record fields, elapsed-time field, tracked fields
//   ├── store:    SQL engine (duckdb, sqlite, postgres) and summary table
//   ├── stats:    rounding and optional tail quantiles
//   ├── session:  policy on transport faults
//   ├── archive:  optional Parquet copy of every persisted run
//   └── logging:  level and format

package loader

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xtxerr/chemlogger/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for chemlogger.
type Config struct {
	// Serial configures the instrument connection.
	Serial SerialConfig `yaml:"serial"`

	// Schema describes the records the instrument emits.
	Schema SchemaConfig `yaml:"schema"`

	// Store selects where runs are persisted.
	Store StoreConfig `yaml:"store"`

	// Stats configures the summary statistics.
	Stats StatsConfig `yaml:"stats"`

	// Session configures the recording session.
	Session SessionConfig `yaml:"session"`

	// Archive configures the Parquet run archive.
	Archive ArchiveConfig `yaml:"archive"`

	// Logging configures diagnostics on stderr.
	Logging LoggingConfig `yaml:"logging"`
}

// =============================================================================
// Sections
// =============================================================================

// SerialConfig configures the serial port.
type SerialConfig struct {
	// Port is the device path.
	// Default: "/dev/ttyACM0"
	Port string `yaml:"port"`

	// Baud is the baud rate.
	// Default: 9600
	Baud int `yaml:"baud"`

	// DataBits per frame.
	// Default: 8
	DataBits int `yaml:"data_bits"`

	// ResetOnOpen toggles DTR after opening to restart the board.
	// Default: true
	ResetOnOpen bool `yaml:"reset_on_open"`

	// ResetDelay is how long DTR is held low.
	// Default: "1s"
	ResetDelay Duration `yaml:"reset_delay"`

	// MaxLineBytes bounds one record.
	// Default: 4096
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// SchemaConfig describes one record.
type SchemaConfig struct {
	// Fields lists the record fields in the order the device sends them.
	// Default: [Time_s, Temperature_C, pH]
	Fields []string `yaml:"fields"`

	// ElapsedField names the elapsed-seconds field.
	// Default: "Time_s"
	ElapsedField string `yaml:"elapsed_field"`

	// Tracked lists the fields summarized in the summary table.
	// Default: every field except ElapsedField
	Tracked []string `yaml:"tracked"`
}

// StoreConfig configures the relational store.
type StoreConfig struct {
	// Driver is duckdb, sqlite or postgres.
	// Default: "duckdb"
	Driver string `yaml:"driver"`

	// DSN is the file path (embedded engines) or connection URL.
	// Default: "chemlogger.db"
	DSN string `yaml:"dsn"`

	// SummaryTable holds one row per run.
	// Default: "reactions"
	SummaryTable string `yaml:"summary_table"`

	// MaxParams bounds the bind parameters of one INSERT.
	// Default: 900
	MaxParams int `yaml:"max_params"`

	// Timeout bounds one persistence call.
	// Default: "30s"
	Timeout Duration `yaml:"timeout"`
}

// StatsConfig configures the summary statistics.
type StatsConfig struct {
	// Precision is the number of decimal places kept.
	// Default: 4
	Precision int `yaml:"precision"`

	// Percentiles enables P90/P95/P99 estimates in the report.
	// Default: false
	Percentiles bool `yaml:"percentiles"`

	// SketchAccuracy is the relative accuracy of the quantile sketch.
	// Default: 0.01
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// SessionConfig configures the recording session.
type SessionConfig struct {
	// PersistOnFault persists the readings accumulated before a
	// transport fault.
	// Default: true
	PersistOnFault bool `yaml:"persist_on_fault"`
}

// ArchiveConfig configures the Parquet run archive.
type ArchiveConfig struct {
	// ParquetDir receives run_<id>.parquet. Empty disables the archive.
	// Default: ""
	ParquetDir string `yaml:"parquet_dir"`

	// Compression is none, snappy, zstd, lz4 or gzip.
	// Default: "zstd"
	Compression string `yaml:"compression"`
}

// LoggingConfig configures diagnostics.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON selects JSON output.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:         config.DefaultSerialPort,
			Baud:         config.DefaultBaudRate,
			DataBits:     config.DefaultDataBits,
			ResetOnOpen:  true,
			ResetDelay:   Duration(config.DefaultResetDelay),
			MaxLineBytes: config.DefaultMaxLineBytes,
		},
		Schema: SchemaConfig{
			Fields:       append([]string(nil), config.DefaultFields...),
			ElapsedField: config.DefaultElapsedField,
		},
		Store: StoreConfig{
			Driver:       config.DefaultDriver,
			DSN:          config.DefaultDSN,
			SummaryTable: config.DefaultSummaryTable,
			MaxParams:    config.DefaultMaxParams,
			Timeout:      Duration(config.DefaultStoreTimeout),
		},
		Stats: StatsConfig{
			Precision:      config.DefaultPrecision,
			SketchAccuracy: config.DefaultSketchAccuracy,
		},
		Session: SessionConfig{
			PersistOnFault: true,
		},
		Archive: ArchiveConfig{
			Compression: config.DefaultArchiveCompression,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Plain integers are seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if dur, err := time.ParseDuration(s); err == nil {
		*d = Duration(dur)
		return nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
