// Package rdbms maps the mapping graph onto relational tables.
//
// Each class hierarchy is stored in one table (table per hierarchy) with an
// "id" primary key and a "class_id" discriminator column. Properties of
// derived classes become nullable columns of the hierarchy table and
// object-ID properties become "<name>_id" foreign-key columns. Interfaces
// are stored as union views over the tables of their implementing classes.
//
//	loader := rdbms.NewLoader(rdbms.Postgres, rdbms.WithTablePrefix("app_"))
//	g, err := graph.Construct(types, loader, validation.NewFactory())
//	if err != nil {
//		return err
//	}
//	stmts, err := rdbms.PlanDDL(ctx, loader)
package rdbms

import (
	"fmt"
	"strings"
)

// Dialect names a supported database dialect.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// ParseDialect returns the dialect with the given name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("rdbms: unsupported dialect %q", s)
	}
}

// MaxIdentifierLength returns the longest table or column name accepted by
// the dialect, or 0 when there is no limit.
func (d Dialect) MaxIdentifierLength() int {
	switch d {
	case Postgres:
		return 63
	case MySQL:
		return 64
	default:
		return 0
	}
}

// DriverName returns the database/sql driver name used for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Quote quotes an identifier.
func (d Dialect) Quote(name string) string {
	if d == Postgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// String returns the dialect name.
func (d Dialect) String() string { return string(d) }
