package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// RunReader reads readings from a Parquet file.
type RunReader struct {
	file   *os.File
	reader *parquet.GenericReader[ReadingRow]
	path   string
}

// NewRunReader creates a new Parquet reader.
func NewRunReader(path string) (*RunReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	reader := parquet.NewGenericReader[ReadingRow](f)

	return &RunReader{
		file:   f,
		reader: reader,
		path:   path,
	}, nil
}

// ReadAll reads all rows from the file.
func (r *RunReader) ReadAll() ([]ReadingRow, error) {
	rows := make([]ReadingRow, r.reader.NumRows())

	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}

	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *RunReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *RunReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *RunReader) Path() string {
	return r.path
}

// Pivot turns long-format rows of one run back into readings, one slice
// per index in schema field order.
func Pivot(fields []string, rows []ReadingRow) ([][]float64, error) {
	col := make(map[string]int, len(fields))
	for i, f := range fields {
		col[f] = i
	}

	var out [][]float64
	for _, row := range rows {
		c, ok := col[row.Field]
		if !ok {
			return nil, fmt.Errorf("row %d: unknown field %q", row.Index, row.Field)
		}
		for int64(len(out)) <= row.Index {
			out = append(out, make([]float64, len(fields)))
		}
		out[row.Index][c] = row.Value
	}
	return out, nil
}

// FileInfo holds information about a Parquet file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
	Fields  []string
}

// GetFileInfo returns information about a run archive.
func GetFileInfo(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	info := &FileInfo{
		Path:    path,
		Size:    stat.Size(),
		NumRows: pf.NumRows(),
	}
	if v, ok := pf.Lookup(FieldsMetadataKey); ok && v != "" {
		info.Fields = strings.Split(v, ",")
	}

	return info, nil
}
