// Package validation provides centralized input validation for chemlogger.
//
// Field names and table names end up interpolated into DDL, where they
// cannot be bound as parameters, so everything that reaches SQL text is
// checked here first.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for identifiers.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowHyphens bool
	AllowUnders  bool
	// LeadingDigit permits names such as "2nd_sensor".
	LeadingDigit bool
}

// IdentifierRules returns the rules for names interpolated into SQL.
// 63 is the PostgreSQL identifier limit, the tightest of the supported stores.
func IdentifierRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    63,
		AllowHyphens: false,
		AllowUnders:  true,
		LeadingDigit: false,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r > unicode.MaxASCII {
			return fmt.Errorf("name cannot contain non-ASCII character '%c' at position %d", r, i)
		}
		if i == 0 && unicode.IsDigit(r) && !rules.LeadingDigit {
			return fmt.Errorf("name cannot start with a digit")
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// ValidateIdentifier validates a field or table name with identifier rules.
func ValidateIdentifier(name string) error {
	return ValidateName(name, IdentifierRules())
}

// QuoteIdentifier validates name and returns it double-quoted for SQL.
func QuoteIdentifier(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("identifier %q: %w", name, err)
	}
	return `"` + name + `"`, nil
}

// =============================================================================
// Schema Validation
// =============================================================================

// ValidateFieldNames checks a field list for emptiness, bad names and
// duplicates. Duplicates are compared case-insensitively because most SQL
// engines fold unquoted identifiers.
func ValidateFieldNames(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}

	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		if err := ValidateIdentifier(f); err != nil {
			return fmt.Errorf("field %d (%q): %w", i, f, err)
		}
		key := strings.ToLower(f)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("field %d (%q) duplicates field %d", i, f, prev)
		}
		seen[key] = i
	}
	return nil
}

// =============================================================================
// Run Table Names
// =============================================================================

// RunTableName formats the detail table name for a run identifier.
// Only positive integers are accepted so the result is always safe to
// interpolate into DDL.
func RunTableName(prefix string, runID int64) (string, error) {
	if runID <= 0 {
		return "", fmt.Errorf("run id must be positive, got %d", runID)
	}
	name := prefix + strconv.FormatInt(runID, 10)
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return name, nil
}
