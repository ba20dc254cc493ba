package rdbms

import (
	"context"
	"database/sql"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// inspectLimit bounds the tables inspected concurrently.
const inspectLimit = 4

// Open opens and pings a database of the given dialect.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	return OpenDriver(ctx, d.DriverName(), dsn)
}

// OpenDriver opens and pings a database using a registered database/sql
// driver.
func OpenDriver(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("rdbms: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("rdbms: ping %s: %w", driver, err)
	}
	return db, nil
}

func (d Dialect) inspector(db *sql.DB) (migrate.Driver, error) {
	switch d {
	case Postgres:
		return postgres.Open(db)
	case MySQL:
		return mysql.Open(db)
	case SQLite:
		return sqlite.Open(db)
	default:
		return nil, fmt.Errorf("rdbms: unsupported dialect %q", d)
	}
}

// Mismatch is a difference between the mapped schema and a live database.
type Mismatch struct {
	Table  string
	Column string
}

// String implements fmt.Stringer.
func (m Mismatch) String() string {
	if m.Column == "" {
		return fmt.Sprintf("table %q is missing", m.Table)
	}
	return fmt.Sprintf("column %q of table %q is missing", m.Column, m.Table)
}

// Verify inspects db and reports the tables and columns of the loader's
// schema it lacks.
func Verify(ctx context.Context, db *sql.DB, l *Loader) ([]Mismatch, error) {
	drv, err := l.dialect.inspector(db)
	if err != nil {
		return nil, fmt.Errorf("rdbms: open inspector: %w", err)
	}
	want := l.Schema()
	name := want.Name
	if name == "" && l.dialect == SQLite {
		name = "main"
	}
	results := make([][]Mismatch, len(want.Tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(inspectLimit)
	for i, t := range want.Tables {
		g.Go(func() error {
			live, err := drv.InspectSchema(ctx, name, &schema.InspectOptions{Tables: []string{t.Name}})
			if err != nil {
				return fmt.Errorf("rdbms: inspect table %q: %w", t.Name, err)
			}
			results[i] = compare(t, live)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var mismatches []Mismatch
	for _, r := range results {
		mismatches = append(mismatches, r...)
	}
	l.log.Debug("schema verified", zap.Int("tables", len(want.Tables)), zap.Int("mismatches", len(mismatches)))
	return mismatches, nil
}

func compare(want *schema.Table, live *schema.Schema) []Mismatch {
	t, ok := live.Table(want.Name)
	if !ok {
		return []Mismatch{{Table: want.Name}}
	}
	var mismatches []Mismatch
	for _, c := range want.Columns {
		if _, ok := t.Column(c.Name); !ok {
			mismatches = append(mismatches, Mismatch{Table: want.Name, Column: c.Name})
		}
	}
	return mismatches
}
