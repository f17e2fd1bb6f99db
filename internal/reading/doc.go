// Package reading defines the record schema and turns raw instrument
// lines into typed readings.
//
// A line is a comma-separated list of decimal numbers, one per schema
// field, terminated by a newline:
//
//	12.0,23.45,7.01\r\n
//
// Parsing is pure: Parse never mutates its inputs and either returns a
// complete Reading or a *ParseError.
package reading
