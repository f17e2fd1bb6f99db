package reading

import (
	"strings"
	"testing"

	"github.com/xtxerr/chemlogger/internal/errors"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]string{"Time_s", "Temperature_C", "pH"}, "Time_s", nil)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func TestParse_Valid(t *testing.T) {
	schema := testSchema(t)

	tests := []struct {
		name string
		line string
		want []float64
	}{
		{"plain", "1,23.5,7.01", []float64{1, 23.5, 7.01}},
		{"crlf", "2,23.6,7.02\r\n", []float64{2, 23.6, 7.02}},
		{"lf", "3,23.7,7.03\n", []float64{3, 23.7, 7.03}},
		{"blanks around tokens", " 4 , 23.8 ,7.04 ", []float64{4, 23.8, 7.04}},
		{"negative and exponent", "5,-1.5e1,0", []float64{5, -15, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.line, schema)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.line, err)
			}
			if r.Len() != len(tt.want) {
				t.Fatalf("expected %d values, got %d", len(tt.want), r.Len())
			}
			for i, w := range tt.want {
				if r.At(i) != w {
					t.Errorf("value %d: expected %v, got %v", i, w, r.At(i))
				}
			}
		})
	}
}

func TestParse_ArityMismatch(t *testing.T) {
	schema := testSchema(t)

	for _, line := range []string{"", "1", "1,2", "1,2,3,4", "1,2,3,\r\n"} {
		_, err := Parse(line, schema)
		if !errors.Is(err, errors.ErrArityMismatch) {
			t.Errorf("Parse(%q): expected ErrArityMismatch, got %v", line, err)
			continue
		}

		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *ParseError, got %T", err)
		}
		if pe.Expected != 3 {
			t.Errorf("expected Expected=3, got %d", pe.Expected)
		}
	}
}

func TestParse_NumericFormat(t *testing.T) {
	schema := testSchema(t)

	tests := []struct {
		line  string
		field string
	}{
		{"abc,23.5,7.01", "Time_s"},
		{"1,hot,7.01", "Temperature_C"},
		{"1,23.5,", "pH"},
		{"1,23.5,NaN", "pH"},
		{"1,Inf,7", "Temperature_C"},
		{"1,1e400,7", "Temperature_C"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.line, schema)
		if !errors.Is(err, errors.ErrNumericFormat) {
			t.Errorf("Parse(%q): expected ErrNumericFormat, got %v", tt.line, err)
			continue
		}
		if !errors.IsParseError(err) {
			t.Errorf("Parse(%q): IsParseError should be true", tt.line)
		}

		var pe *ParseError
		errors.As(err, &pe)
		if pe.Field != tt.field {
			t.Errorf("Parse(%q): expected field %s, got %s", tt.line, tt.field, pe.Field)
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("error message should name the field: %v", err)
		}
	}
}

func TestParse_DoesNotAlias(t *testing.T) {
	schema := testSchema(t)

	r, err := Parse("1,2,3", schema)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	vals := r.Values()
	vals[0] = 99
	if r.At(0) != 1 {
		t.Error("Values() must return a copy")
	}
}

func TestNewSchema(t *testing.T) {
	s := testSchema(t)

	if s.Arity() != 3 {
		t.Errorf("expected arity 3, got %d", s.Arity())
	}
	if s.ElapsedField() != "Time_s" {
		t.Errorf("expected elapsed field Time_s, got %s", s.ElapsedField())
	}

	tracked := s.Tracked()
	if len(tracked) != 2 || tracked[0] != "Temperature_C" || tracked[1] != "pH" {
		t.Errorf("unexpected tracked fields: %v", tracked)
	}

	if _, err := NewSchema([]string{"a", "b"}, "c", nil); !errors.Is(err, errors.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField for missing elapsed field, got %v", err)
	}
	if _, err := NewSchema([]string{"a", "b"}, "a", []string{"z"}); !errors.Is(err, errors.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField for unknown tracked field, got %v", err)
	}
	if _, err := NewSchema([]string{"a", "a"}, "a", nil); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for duplicate field, got %v", err)
	}

	single := MustSchema([]string{"v"}, "v", nil)
	if got := single.Tracked(); len(got) != 1 || got[0] != "v" {
		t.Errorf("single-field schema should track its field, got %v", got)
	}
}
