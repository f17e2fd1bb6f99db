package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xtxerr/chemlogger/internal/errors"

	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// Dialect captures the DDL differences between the supported engines.
// Everything else is portable SQL.
type Dialect struct {
	// Name is the value of store.driver in the configuration.
	Name string

	// DriverName is the database/sql driver registered by the import.
	DriverName string

	// FloatType is the column type of measured values.
	FloatType string

	// InsertionOrder is a pseudo-column that orders rows by insertion,
	// or empty if the engine has none.
	InsertionOrder string

	// idColumn returns the statements that must run before the table is
	// created and the definition of the auto-assigned id column.
	idColumn func(table string) (pre []string, def string)

	// placeholder returns the bind marker for the n-th (1-based) argument.
	placeholder func(n int) string

	// castDate wraps date arguments in CAST(... AS DATE). SQLite has no
	// date type and would coerce the cast text to a number.
	castDate bool
}

func questionMark(int) string { return "?" }

var dialects = map[string]*Dialect{
	"duckdb": {
		Name:           "duckdb",
		DriverName:     "duckdb",
		FloatType:      "DOUBLE",
		InsertionOrder: "rowid",
		idColumn: func(table string) ([]string, string) {
			seq := table + "_id_seq"
			return []string{fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS "%s" START 1`, seq)},
				fmt.Sprintf(`"id" BIGINT PRIMARY KEY DEFAULT nextval('%s')`, seq)
		},
		placeholder: questionMark,
		castDate:    true,
	},
	"sqlite": {
		Name:           "sqlite",
		DriverName:     "sqlite",
		FloatType:      "REAL",
		InsertionOrder: "rowid",
		idColumn: func(string) ([]string, string) {
			return nil, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`
		},
		placeholder: questionMark,
	},
	"postgres": {
		Name:       "postgres",
		DriverName: "postgres",
		FloatType:  "DOUBLE PRECISION",
		idColumn: func(string) ([]string, string) {
			return nil, `"id" BIGSERIAL PRIMARY KEY`
		},
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		castDate:    true,
	},
}

// LookupDialect returns the dialect for a configured driver name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, errors.NewInvalidValue("store.driver", name,
			"must be one of "+strings.Join(Dialects(), ", "))
	}
	return d, nil
}

// Dialects returns the supported driver names.
func Dialects() []string {
	return []string{"duckdb", "sqlite", "postgres"}
}
