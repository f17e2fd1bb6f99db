package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/series"
)

// FieldsMetadataKey holds the comma-separated schema fields in the file
// key/value metadata.
const FieldsMetadataKey = "chemlogger.fields"

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	ct, _ := ParseCompressionType(config.DefaultArchiveCompression)
	return Options{
		Compression:  ct,
		RowGroupSize: 100000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(s) {
	case "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	case "none", "":
		return CompressionNone, nil
	default:
		return CompressionNone, errors.NewInvalidValue("archive.compression", s,
			"must be one of none, snappy, zstd, lz4, gzip")
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ReadingRow is one value of one reading in Parquet format.
type ReadingRow struct {
	RunID int64   `parquet:"run_id"`
	Index int64   `parquet:"index"`
	Field string  `parquet:"field,dict"`
	Value float64 `parquet:"value"`
}

// seriesRows flattens a series into long-format rows, reading by reading
// in schema field order.
func seriesRows(runID int64, ts *series.TimeSeries) []ReadingRow {
	fields := ts.Fields()
	rows := make([]ReadingRow, 0, ts.Len()*len(fields))
	ts.Each(func(i int, vals []float64) error {
		for c, v := range vals {
			rows = append(rows, ReadingRow{
				RunID: runID,
				Index: int64(i),
				Field: fields[c],
				Value: v,
			})
		}
		return nil
	})
	return rows
}

// RunWriter writes the readings of runs to a Parquet file.
type RunWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[ReadingRow]
	rowCount int64
	closed   bool
}

// NewRunWriter creates a Parquet writer for a schema with the given
// fields. The fields are recorded in the file metadata.
func NewRunWriter(path string, fields []string, opts Options) (*RunWriter, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
		parquet.KeyValueMetadata(FieldsMetadataKey, strings.Join(fields, ",")),
	}
	if opts.RowGroupSize > 0 {
		writerOpts = append(writerOpts, parquet.MaxRowsPerRowGroup(int64(opts.RowGroupSize)))
	}

	writer := parquet.NewGenericWriter[ReadingRow](f, writerOpts...)

	return &RunWriter{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write writes every reading of ts tagged with runID.
func (w *RunWriter) Write(runID int64, ts *series.TimeSeries) error {
	if ts.IsEmpty() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(seriesRows(runID, ts))
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close closes the writer.
func (w *RunWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *RunWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *RunWriter) Path() string {
	return w.path
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
