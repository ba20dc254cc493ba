package rdbms

import (
	"fmt"
	"strings"
	"sync"

	"ariga.io/atlas/sql/schema"
	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// Table is the storage entity shared by all classes of a hierarchy.
type Table struct {
	Name string
	Root *graph.ClassDefinition
	// T is nil for unmapped hierarchies.
	T *schema.Table

	id         *schema.Column
	shared     *Table
	owners     map[string]*graph.PropertyDefinition
	refs       []*Column
	collisions []collision
}

type collision struct {
	column string
	first  *graph.PropertyDefinition
	second *graph.PropertyDefinition
}

// StorageName implements graph.StorageEntity.
func (t *Table) StorageName() string { return t.Name }

// IsMapped reports whether the hierarchy is stored.
func (t *Table) IsMapped() bool { return t.T != nil }

// View is the storage entity of an interface, a union over the tables of
// its implementing classes.
type View struct {
	Name      string
	Interface *graph.InterfaceDefinition
	// Def is the SELECT statement of the view, set by Loader.Schema. It is
	// empty when no stored class implements the interface.
	Def string
}

// StorageName implements graph.StorageEntity.
func (v *View) StorageName() string { return v.Name }

// Column is the storage property of a persistent property.
type Column struct {
	Name     string
	Property *graph.PropertyDefinition
	// Table is set for class properties, View for interface properties.
	Table *Table
	View  *View
	// C is nil for unmapped hierarchies and views.
	C *schema.Column
}

// StorageName implements graph.StorageProperty.
func (c *Column) StorageName() string { return c.Name }

// Loader is the relational graph.PersistenceModelLoader.
type Loader struct {
	dialect Dialect
	naming  Naming
	log     *zap.Logger
	schema  *schema.Schema

	tables []*Table
	views  []*View
	byType map[load.TypeID]*Table
	byName map[string]*Table
	link   sync.Once
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) { ld.log = l }
}

// WithTablePrefix sets the prefix of derived table and view names.
func WithTablePrefix(p string) Option {
	return func(ld *Loader) { ld.naming.Prefix = p }
}

// WithPluralize enables or disables plural table names. It is enabled by
// default.
func WithPluralize(b bool) Option {
	return func(ld *Loader) { ld.naming.Pluralize = b }
}

// WithSchemaName sets the database schema holding the tables.
func WithSchemaName(name string) Option {
	return func(ld *Loader) { ld.schema.Name = name }
}

// NewLoader returns a loader for the given dialect.
func NewLoader(d Dialect, opts ...Option) *Loader {
	l := &Loader{
		dialect: d,
		naming:  Naming{Pluralize: true},
		log:     zap.NewNop(),
		schema:  &schema.Schema{},
		byType:  make(map[load.TypeID]*Table),
		byName:  make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dialect returns the dialect of the loader.
func (l *Loader) Dialect() Dialect { return l.dialect }

// Tables returns the hierarchy tables in mapping order.
func (l *Loader) Tables() []*Table { return l.tables }

// Views returns the interface views in mapping order.
func (l *Loader) Views() []*View { return l.views }

// ApplyPersistenceModel implements graph.PersistenceModelLoader.
func (l *Loader) ApplyPersistenceModel(root graph.TypeDefinition) error {
	switch root := root.(type) {
	case *graph.ClassDefinition:
		l.applyHierarchy(root)
	case *graph.InterfaceDefinition:
		for _, t := range graph.Hierarchy(root) {
			if i, ok := t.(*graph.InterfaceDefinition); ok && !i.HasStorageEntity() {
				l.applyInterface(i)
			}
		}
	default:
		return fmt.Errorf("rdbms: unexpected type node %T", root)
	}
	return nil
}

func (l *Loader) applyHierarchy(root *graph.ClassDefinition) {
	tbl := &Table{
		Name:   l.naming.TableName(root),
		Root:   root,
		owners: make(map[string]*graph.PropertyDefinition),
	}
	if tbl.Name != Unmapped {
		if prev, ok := l.byName[tbl.Name]; ok {
			tbl.shared = prev
		} else {
			l.byName[tbl.Name] = tbl
		}
		tbl.id = &schema.Column{Name: IDColumn, Type: &schema.ColumnType{Type: l.dialect.idType()}}
		discriminator := &schema.Column{Name: ClassIDColumn, Type: &schema.ColumnType{Type: l.dialect.classIDType()}}
		tbl.T = &schema.Table{
			Name:    tbl.Name,
			Schema:  l.schema,
			Columns: []*schema.Column{tbl.id, discriminator},
		}
		tbl.T.PrimaryKey = &schema.Index{
			Unique: true,
			Table:  tbl.T,
			Parts:  []*schema.IndexPart{{C: tbl.id}},
		}
		tbl.owners[IDColumn], tbl.owners[ClassIDColumn] = nil, nil
		l.schema.Tables = append(l.schema.Tables, tbl.T)
	}
	l.tables = append(l.tables, tbl)
	for _, t := range graph.Hierarchy(root) {
		c := t.(*graph.ClassDefinition)
		l.byType[c.ID()] = tbl
		if !c.HasStorageEntity() {
			c.SetStorageEntity(tbl)
		}
		for _, p := range c.MyPropertyDefinitions().Persistent() {
			if !p.HasStorageProperty() {
				p.SetStorageProperty(l.column(tbl, c, p))
			}
		}
	}
	columns := 0
	if tbl.T != nil {
		columns = len(tbl.T.Columns)
	}
	l.log.Debug("hierarchy mapped",
		zap.Stringer("root", root),
		zap.String("table", tbl.Name),
		zap.Int("columns", columns))
}

func (l *Loader) column(tbl *Table, c *graph.ClassDefinition, p *graph.PropertyDefinition) *Column {
	col := &Column{Name: l.naming.ColumnName(p), Property: p, Table: tbl}
	if tbl.T == nil {
		return col
	}
	if first, ok := tbl.owners[col.Name]; ok {
		tbl.collisions = append(tbl.collisions, collision{column: col.Name, first: first, second: p})
		col.C, _ = tbl.T.Column(col.Name)
		return col
	}
	col.C = &schema.Column{
		Name: col.Name,
		Type: &schema.ColumnType{
			Type: l.dialect.ColumnType(p),
			// Rows of other classes in the hierarchy leave the column empty.
			Null: p.IsNullable() || c != tbl.Root,
		},
	}
	tbl.T.Columns = append(tbl.T.Columns, col.C)
	tbl.owners[col.Name] = p
	if p.IsObjectID() {
		tbl.refs = append(tbl.refs, col)
	}
	return col
}

func (l *Loader) applyInterface(i *graph.InterfaceDefinition) {
	v := &View{Name: l.naming.ViewName(i), Interface: i}
	i.SetStorageEntity(v)
	for _, p := range i.MyPropertyDefinitions().Persistent() {
		if !p.HasStorageProperty() {
			p.SetStorageProperty(&Column{Name: l.naming.ColumnName(p), Property: p, View: v})
		}
	}
	l.views = append(l.views, v)
	l.log.Debug("interface mapped", zap.Stringer("interface", i), zap.String("view", v.Name))
}

// Schema returns the relational schema of the mapped hierarchies. Foreign
// keys and view definitions are resolved exactly once, on the first call,
// which must happen after the graph was constructed. Schema is safe for
// concurrent use.
func (l *Loader) Schema() *schema.Schema {
	l.link.Do(func() {
		l.linkForeignKeys()
		for _, v := range l.views {
			v.Def = l.viewDef(v)
		}
	})
	return l.schema
}

func (l *Loader) linkForeignKeys() {
	for _, tbl := range l.tables {
		for _, col := range tbl.refs {
			target := l.byType[col.Property.RelatedType()]
			if target == nil || target.T == nil {
				continue
			}
			tbl.T.ForeignKeys = append(tbl.T.ForeignKeys, &schema.ForeignKey{
				Symbol:     fmt.Sprintf("%s_%s_fkey", tbl.Name, col.Name),
				Table:      tbl.T,
				Columns:    []*schema.Column{col.C},
				RefTable:   target.T,
				RefColumns: []*schema.Column{target.id},
				OnUpdate:   schema.NoAction,
				OnDelete:   schema.NoAction,
			})
		}
	}
}

// viewDef returns a UNION ALL over one SELECT per topmost implementing
// class. Members an implementing class cannot resolve unambiguously are
// selected as NULL.
func (l *Loader) viewDef(v *View) string {
	props := v.Interface.PropertyDefinitions().Persistent()
	var selects []string
	for _, c := range implementors(v.Interface) {
		tbl := l.byType[c.ID()]
		if tbl == nil || tbl.T == nil {
			continue
		}
		cols := []string{l.dialect.Quote(IDColumn), l.dialect.Quote(ClassIDColumn)}
		for _, p := range props {
			src := "NULL"
			d, err := c.PropertyAccessorDataCache().ResolvePropertyAccessorData(load.Member{
				DeclaringType: p.DeclaringType(),
				Name:          p.ShortName(),
			})
			if err == nil && d != nil && d.PropertyDefinition() != nil && d.PropertyDefinition().HasStorageProperty() {
				src = l.dialect.Quote(d.PropertyDefinition().StorageProperty().StorageName())
			}
			cols = append(cols, src+" AS "+l.dialect.Quote(l.naming.ColumnName(p)))
		}
		ids := []string{quoteString(c.ClassID())}
		for _, d := range c.AllDerivedClasses() {
			ids = append(ids, quoteString(d.ClassID()))
		}
		selects = append(selects, fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
			strings.Join(cols, ", "),
			l.dialect.Quote(tbl.Name),
			l.dialect.Quote(ClassIDColumn),
			strings.Join(ids, ", ")))
	}
	return strings.Join(selects, " UNION ALL ")
}

// implementors returns the classes implementing i or an interface extending
// it, without classes whose base class is already included.
func implementors(i *graph.InterfaceDefinition) []*graph.ClassDefinition {
	seen := make(map[*graph.ClassDefinition]bool)
	var all []*graph.ClassDefinition
	for _, t := range graph.Hierarchy(i) {
		for _, c := range t.(*graph.InterfaceDefinition).ImplementingClasses() {
			if !seen[c] {
				seen[c] = true
				all = append(all, c)
			}
		}
	}
	var top []*graph.ClassDefinition
outer:
	for _, c := range all {
		for b := c.BaseClass(); b != nil; b = b.BaseClass() {
			if seen[b] {
				continue outer
			}
		}
		top = append(top, c)
	}
	return top
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ graph.PersistenceModelLoader = (*Loader)(nil)
