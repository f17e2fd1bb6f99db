package reading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
)

// ParseError describes why a line was rejected.
type ParseError struct {
	// Line is the raw input without its line ending.
	Line string

	// Expected and Got are the schema arity and the token count.
	// They are only meaningful for arity mismatches.
	Expected int
	Got      int

	// Field and Token identify the value that failed numeric parsing.
	Field string
	Token string

	err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if errors.Is(e.err, errors.ErrArityMismatch) {
		return fmt.Sprintf("%v: expected %d fields, got %d", e.err, e.Expected, e.Got)
	}
	return fmt.Sprintf("%v: field %s: %q is not a finite number", e.err, e.Field, e.Token)
}

// Unwrap returns the sentinel so callers can use errors.Is.
func (e *ParseError) Unwrap() error {
	return e.err
}

// Parse turns one raw line into a Reading.
//
// Trailing line-ending characters are removed, the line is split on
// commas and every token is parsed as a float64 in schema order. The
// line is rejected when the token count differs from the schema arity or
// when any token is not a finite number.
func Parse(line string, schema *Schema) (Reading, error) {
	line = strings.TrimRight(line, "\r\n")
	tokens := strings.Split(line, config.FieldDelimiter)

	if len(tokens) != schema.Arity() {
		return Reading{}, &ParseError{
			Line:     line,
			Expected: schema.Arity(),
			Got:      len(tokens),
			err:      errors.ErrArityMismatch,
		}
	}

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Reading{}, &ParseError{
				Line:  line,
				Field: schema.Field(i),
				Token: tok,
				err:   errors.ErrNumericFormat,
			}
		}
		values[i] = v
	}

	return Reading{values: values}, nil
}
