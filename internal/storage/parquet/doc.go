// Package parquet archives recorded runs as Parquet files.
//
// The package provides:
//   - RunWriter/RunReader for one run per file in long format
//     (run_id, index, field, value)
//   - Archiver, which writes run_<id>.parquet after a run is persisted
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package parquet
