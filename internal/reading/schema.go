package reading

import (
	"fmt"

	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/validation"
)

// Schema is the ordered set of numeric fields every record carries.
// It is fixed for the lifetime of a session.
type Schema struct {
	fields  []string
	index   map[string]int
	elapsed int
	tracked []int
}

// NewSchema builds a schema from ordered field names.
//
// elapsed names the field holding elapsed seconds; it must be one of the
// fields. tracked lists the fields that get statistics; when empty every
// field except elapsed is tracked.
func NewSchema(fields []string, elapsed string, tracked []string) (*Schema, error) {
	if err := validation.ValidateFieldNames(fields); err != nil {
		return nil, errors.Join(errors.ErrInvalidConfig, err)
	}

	s := &Schema{
		fields: append([]string(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		s.index[f] = i
	}

	idx, ok := s.index[elapsed]
	if !ok {
		return nil, fmt.Errorf("elapsed field %q: %w", elapsed, errors.ErrUnknownField)
	}
	s.elapsed = idx

	if len(tracked) == 0 {
		for i := range s.fields {
			if i != s.elapsed {
				s.tracked = append(s.tracked, i)
			}
		}
		// A single-field schema tracks its only field.
		if len(s.tracked) == 0 {
			s.tracked = []int{s.elapsed}
		}
		return s, nil
	}

	seen := make(map[int]bool, len(tracked))
	for _, name := range tracked {
		i, ok := s.index[name]
		if !ok {
			return nil, fmt.Errorf("tracked field %q: %w", name, errors.ErrUnknownField)
		}
		if seen[i] {
			return nil, errors.NewInvalidValue("tracked field", name, "listed twice")
		}
		seen[i] = true
		s.tracked = append(s.tracked, i)
	}
	return s, nil
}

// MustSchema is NewSchema for static schemas; it panics on error.
func MustSchema(fields []string, elapsed string, tracked []string) *Schema {
	s, err := NewSchema(fields, elapsed, tracked)
	if err != nil {
		panic(err)
	}
	return s
}

// Arity returns the number of fields.
func (s *Schema) Arity() int {
	return len(s.fields)
}

// Fields returns a copy of the field names in declared order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Field returns the name of field i.
func (s *Schema) Field(i int) string {
	return s.fields[i]
}

// Index returns the position of a field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// ElapsedField returns the name of the elapsed-time field.
func (s *Schema) ElapsedField() string {
	return s.fields[s.elapsed]
}

// ElapsedIndex returns the position of the elapsed-time field.
func (s *Schema) ElapsedIndex() int {
	return s.elapsed
}

// Tracked returns the names of the fields that get statistics, in the
// order they were configured.
func (s *Schema) Tracked() []string {
	out := make([]string, len(s.tracked))
	for i, idx := range s.tracked {
		out[i] = s.fields[idx]
	}
	return out
}
