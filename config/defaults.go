// Package config provides configuration defaults for the chemlogger
// application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command line flags.
package config

import "time"

// =============================================================================
// Serial Defaults
// =============================================================================

const (
	// DefaultSerialPort is the device the logger opens when none is configured.
	// Override via config: serial.port
	DefaultSerialPort = "/dev/ttyACM0"

	// DefaultBaudRate matches the instrument firmware.
	// Override via config: serial.baud
	DefaultBaudRate = 9600

	// DefaultDataBits is the serial frame size.
	// Override via config: serial.data_bits
	DefaultDataBits = 8

	// DefaultResetDelay is how long DTR is held low during the reset
	// handshake before the input buffer is flushed.
	// Override via config: serial.reset_delay
	DefaultResetDelay = time.Second

	// DefaultMaxLineBytes bounds a single record. Longer lines are
	// rejected by the transport rather than buffered without limit.
	DefaultMaxLineBytes = 4096
)

// =============================================================================
// Schema Defaults
// =============================================================================

// DefaultFields is the record layout emitted by the reference sketch:
// elapsed seconds, temperature and pH.
var DefaultFields = []string{"Time_s", "Temperature_C", "pH"}

const (
	// DefaultElapsedField names the field holding elapsed seconds.
	// Override via config: schema.elapsed_field
	DefaultElapsedField = "Time_s"

	// FieldDelimiter separates tokens within one record.
	FieldDelimiter = ","
)

// =============================================================================
// Statistics Defaults
// =============================================================================

const (
	// DefaultPrecision is the number of decimal places kept in every
	// reported and stored statistic.
	// Override via config: stats.precision
	DefaultPrecision = 4

	// DefaultSketchAccuracy is the relative accuracy of the quantile sketch.
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultDriver is the embedded SQL engine.
	// Override via config: store.driver
	DefaultDriver = "duckdb"

	// DefaultDSN is the database file for the embedded engines.
	// Override via config: store.dsn
	DefaultDSN = "chemlogger.db"

	// DefaultSummaryTable holds one row per recorded run.
	// Override via config: store.summary_table
	DefaultSummaryTable = "reactions"

	// DetailTablePrefix is prepended to the run identifier to name the
	// per-run detail table.
	DetailTablePrefix = "run_"

	// DefaultMaxParams bounds the bind parameters of one INSERT statement.
	// SQLite builds have historically capped this at 999.
	DefaultMaxParams = 900

	// DefaultStoreTimeout bounds one persistence call.
	// Override via config: store.timeout
	DefaultStoreTimeout = 30 * time.Second
)

// =============================================================================
// Archive Defaults
// =============================================================================

const (
	// DefaultArchiveCompression is the Parquet codec for run archives.
	// Override via config: archive.compression
	DefaultArchiveCompression = "zstd"
)
