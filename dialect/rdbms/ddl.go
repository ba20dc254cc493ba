package rdbms

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
)

func (d Dialect) planner() (migrate.PlanApplier, error) {
	switch d {
	case Postgres:
		return postgres.DefaultPlan, nil
	case MySQL:
		return mysql.DefaultPlan, nil
	case SQLite:
		return sqlite.DefaultPlan, nil
	default:
		return nil, fmt.Errorf("rdbms: unsupported dialect %q", d)
	}
}

// PlanDDL returns the statements creating the tables and views of the
// loader's schema. Tables are planned by atlas. Views are rendered directly
// and follow the tables.
func PlanDDL(ctx context.Context, l *Loader) ([]string, error) {
	planner, err := l.dialect.planner()
	if err != nil {
		return nil, err
	}
	s := l.Schema()
	changes := make([]schema.Change, 0, len(s.Tables))
	for _, t := range s.Tables {
		changes = append(changes, &schema.AddTable{T: t})
	}
	var stmts []string
	if len(changes) > 0 {
		plan, err := planner.PlanChanges(ctx, "relmap", changes)
		if err != nil {
			return nil, fmt.Errorf("rdbms: plan tables: %w", err)
		}
		for _, c := range plan.Changes {
			stmts = append(stmts, c.Cmd)
		}
	}
	for _, v := range l.views {
		if v.Def == "" {
			continue
		}
		name := l.dialect.Quote(v.Name)
		if s.Name != "" {
			name = l.dialect.Quote(s.Name) + "." + name
		}
		stmts = append(stmts, fmt.Sprintf("CREATE VIEW %s AS %s", name, v.Def))
	}
	return stmts, nil
}
