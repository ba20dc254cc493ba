package rdbms_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/dialect/rdbms"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/validation"
)

const pkg = "example.com/shop"

func tid(name string) load.TypeID { return load.TypeID{PkgPath: pkg, Name: name} }

func class(name string, props ...*load.Property) *load.Type {
	return &load.Type{ID: tid(name), Kind: load.KindClass, Properties: props}
}

func iface(name string, props ...*load.Property) *load.Type {
	return &load.Type{ID: tid(name), Kind: load.KindInterface, Properties: props}
}

func value(name string, vt load.ValueType) *load.Property {
	return &load.Property{Name: name, Type: vt}
}

func ref(name, target, opposite string, card load.Cardinality) *load.Property {
	return &load.Property{
		Name:     name,
		Type:     load.TypeObject,
		Relation: &load.Relation{Target: tid(target), Opposite: opposite, Cardinality: card},
	}
}

type shop struct {
	customer, order, special, named, prioritized *load.Type
}

func (s shop) types() []*load.Type {
	return []*load.Type{s.named, s.prioritized, s.customer, s.order, s.special}
}

// newShop returns customers with orders, a derived special order and two
// interfaces.
func newShop() shop {
	size := 100
	name := value("Name", load.TypeString)
	name.MaxLength = &size
	customer := class("Customer", name, ref("Orders", "Order", "Customer", load.Many))
	customer.Interfaces = []load.TypeID{tid("Named")}

	customerRef := ref("Customer", "Customer", "Orders", load.One)
	customerRef.Relation.Mandatory = true
	note := value("Note", load.TypeString)
	note.Nullable = true
	order := class("Order", value("Number", load.TypeInt32), customerRef, note)

	special := class("SpecialOrder", value("Priority", load.TypeInt32))
	base := tid("Order")
	special.Base = &base
	special.Interfaces = []load.TypeID{tid("Prioritized")}

	return shop{
		customer:    customer,
		order:       order,
		special:     special,
		named:       iface("Named", value("Name", load.TypeString)),
		prioritized: iface("Prioritized", value("Priority", load.TypeInt32)),
	}
}

func construct(t *testing.T, l *rdbms.Loader, types []*load.Type) *graph.Graph {
	t.Helper()
	g, err := graph.Construct(types, l, validation.NewFactory())
	require.NoError(t, err)
	return g
}

func tables(l *rdbms.Loader) map[string]*rdbms.Table {
	m := make(map[string]*rdbms.Table)
	for _, t := range l.Tables() {
		m[t.Name] = t
	}
	return m
}

func views(l *rdbms.Loader) map[string]*rdbms.View {
	m := make(map[string]*rdbms.View)
	for _, v := range l.Views() {
		m[v.Name] = v
	}
	return m
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]rdbms.Dialect{
		"postgres":   rdbms.Postgres,
		"PostgreSQL": rdbms.Postgres,
		"mysql":      rdbms.MySQL,
		"sqlite3":    rdbms.SQLite,
	} {
		d, err := rdbms.ParseDialect(in)
		require.NoError(t, err)
		require.Equal(t, want, d)
	}
	_, err := rdbms.ParseDialect("oracle")
	require.EqualError(t, err, `rdbms: unsupported dialect "oracle"`)

	require.Equal(t, 63, rdbms.Postgres.MaxIdentifierLength())
	require.Equal(t, 64, rdbms.MySQL.MaxIdentifierLength())
	require.Zero(t, rdbms.SQLite.MaxIdentifierLength())
	require.Equal(t, `"a""b"`, rdbms.Postgres.Quote(`a"b`))
	require.Equal(t, "`orders`", rdbms.MySQL.Quote("orders"))
	require.Equal(t, "pgx", rdbms.Postgres.DriverName())
}

func TestNaming(t *testing.T) {
	tests := []struct {
		name   string
		naming rdbms.Naming
		typ    *load.Type
		table  string
		column string
	}{
		{
			name:   "plural",
			naming: rdbms.Naming{Pluralize: true},
			typ:    class("OrderLine", value("UnitPrice", load.TypeDecimal)),
			table:  "order_lines",
			column: "unit_price",
		},
		{
			name:   "prefix",
			naming: rdbms.Naming{Prefix: "app_", Pluralize: true},
			typ:    class("Category", value("Title", load.TypeString)),
			table:  "app_categories",
			column: "title",
		},
		{
			name:   "singular",
			naming: rdbms.Naming{},
			typ:    class("Customer", ref("MainAddress", "Customer", "", load.One)),
			table:  "customer",
			column: "main_address_id",
		},
		{
			name:   "hints",
			naming: rdbms.Naming{Prefix: "app_", Pluralize: true},
			typ: func() *load.Type {
				c := class("Customer", &load.Property{Name: "Name", Type: load.TypeString, Column: "full_name"})
				c.Table = "clients"
				return c
			}(),
			table:  "clients",
			column: "full_name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := graph.Build([]*load.Type{tt.typ})
			require.NoError(t, err)
			c, ok := g.ClassDefinition(tt.typ.ID.Name)
			require.True(t, ok)
			require.Equal(t, tt.table, tt.naming.TableName(c))
			require.Equal(t, tt.column, tt.naming.ColumnName(c.MyPropertyDefinitions().All()[0]))
		})
	}

	g, err := graph.Build([]*load.Type{iface("Named")})
	require.NoError(t, err)
	named, _ := g.TypeDefinition(tid("Named"))
	require.Equal(t, "app_named_view", rdbms.Naming{Prefix: "app_"}.ViewName(named.(*graph.InterfaceDefinition)))
}

func TestLoaderTables(t *testing.T) {
	require := require.New(t)
	core, logs := observer.New(zap.DebugLevel)
	l := rdbms.NewLoader(rdbms.SQLite, rdbms.WithLogger(zap.New(core)))
	g := construct(t, l, newShop().types())
	require.Equal(2, logs.FilterMessage("hierarchy mapped").Len())
	require.Equal(2, logs.FilterMessage("interface mapped").Len())

	byName := tables(l)
	require.Len(byName, 2)
	orders, customers := byName["orders"], byName["customers"]
	require.NotNil(orders)
	require.NotNil(customers)

	var columns []string
	for _, c := range orders.T.Columns {
		columns = append(columns, c.Name)
	}
	require.Equal([]string{"id", "class_id", "number", "customer_id", "note", "priority"}, columns)
	nullable := func(name string) bool {
		c, ok := orders.T.Column(name)
		require.True(ok, name)
		return c.Type.Null
	}
	require.False(nullable("number"))
	require.False(nullable("customer_id"))
	require.True(nullable("note"))
	require.True(nullable("priority"), "columns of derived classes are nullable")
	require.Equal("id", orders.T.PrimaryKey.Parts[0].C.Name)

	special, _ := g.ClassDefinition("SpecialOrder")
	order, _ := g.ClassDefinition("Order")
	require.Same(orders, special.StorageEntity())
	require.Same(orders, order.StorageEntity())
	p, ok := order.MyPropertyDefinitions().Get(graph.Identifier(tid("Order"), "Customer"))
	require.True(ok)
	col := p.StorageProperty().(*rdbms.Column)
	require.Equal("customer_id", col.Name)
	require.Same(orders, col.Table)

	s := l.Schema()
	require.Len(s.Tables, 2)
	require.Len(orders.T.ForeignKeys, 1)
	fk := orders.T.ForeignKeys[0]
	require.Equal("orders_customer_id_fkey", fk.Symbol)
	require.Equal("customers", fk.RefTable.Name)
	require.Equal("id", fk.RefColumns[0].Name)
	require.Empty(customers.T.ForeignKeys)
}

func TestLoaderViews(t *testing.T) {
	require := require.New(t)
	l := rdbms.NewLoader(rdbms.Postgres, rdbms.WithTablePrefix("app_"))
	g := construct(t, l, newShop().types())
	l.Schema()

	byName := views(l)
	require.Len(byName, 2)
	named := byName["app_named_view"]
	require.NotNil(named)
	require.Equal(`SELECT "id", "class_id", "name" AS "name" FROM "app_customers" WHERE "class_id" IN ('Customer')`, named.Def)
	prioritized := byName["app_prioritized_view"]
	require.NotNil(prioritized)
	require.Equal(`SELECT "id", "class_id", "priority" AS "priority" FROM "app_orders" WHERE "class_id" IN ('SpecialOrder')`, prioritized.Def)

	i, _ := g.TypeDefinition(tid("Named"))
	require.Same(named, i.StorageEntity())
	p := i.MyPropertyDefinitions().All()[0]
	require.Equal("name", p.StorageProperty().StorageName())
	require.Same(named, p.StorageProperty().(*rdbms.Column).View)
}

func TestUnmappedHierarchy(t *testing.T) {
	require := require.New(t)
	s := newShop()
	audit := class("AuditEntry", value("Message", load.TypeString))
	audit.Table = rdbms.Unmapped
	l := rdbms.NewLoader(rdbms.MySQL)
	g := construct(t, l, append(s.types(), audit))

	entry, _ := g.ClassDefinition("AuditEntry")
	tbl := entry.StorageEntity().(*rdbms.Table)
	require.False(tbl.IsMapped())
	require.Equal("-", tbl.StorageName())
	require.Len(l.Schema().Tables, 2)
	for _, tbl := range l.Schema().Tables {
		require.NotEqual("-", tbl.Name)
	}
}

func TestMappingFindings(t *testing.T) {
	tests := []struct {
		name    string
		dialect rdbms.Dialect
		modify  func(shop)
		want    string
	}{
		{
			name:    "reserved column",
			dialect: rdbms.SQLite,
			modify: func(s shop) {
				s.order.Properties[2].Column = "class_id"
			},
			want: `column "class_id" of property example.com/shop.Order.Note is reserved in table "orders"`,
		},
		{
			name:    "column collision",
			dialect: rdbms.SQLite,
			modify: func(s shop) {
				s.special.Properties[0].Column = "number"
			},
			want: `properties example.com/shop.Order.Number and example.com/shop.SpecialOrder.Priority are both mapped to column "number" of table "orders"`,
		},
		{
			name:    "table name too long",
			dialect: rdbms.Postgres,
			modify: func(s shop) {
				s.customer.Table = strings.Repeat("c", 64)
			},
			want: "is longer than 63 characters, the limit of postgres",
		},
		{
			name:    "column name too long",
			dialect: rdbms.MySQL,
			modify: func(s shop) {
				s.order.Properties[0].Column = strings.Repeat("n", 65)
			},
			want: "is longer than 64 characters, the limit of mysql",
		},
		{
			name:    "invalid table name",
			dialect: rdbms.SQLite,
			modify: func(s shop) {
				s.order.Table = "order lines"
			},
			want: `table name "order lines" is not a valid identifier`,
		},
		{
			name:    "shared table",
			dialect: rdbms.SQLite,
			modify: func(s shop) {
				s.customer.Table = "orders"
			},
			want: `table "orders" of hierarchy example.com/shop.Order is already used by hierarchy example.com/shop.Customer`,
		},
		{
			name:    "unmapped reference",
			dialect: rdbms.SQLite,
			modify: func(s shop) {
				s.customer.Table = rdbms.Unmapped
			},
			want: "relation property example.com/shop.Order.Customer references class example.com/shop.Customer, which is not stored in a table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newShop()
			tt.modify(s)
			_, err := graph.Construct(s.types(), rdbms.NewLoader(tt.dialect), validation.NewFactory())
			var me *graph.MappingError
			require.ErrorAs(t, err, &me)
			require.Equal(t, graph.StagePersistenceMapping, me.Stage)
			require.Len(t, me.Findings, 1)
			require.Contains(t, me.Findings[0].Message, tt.want)
		})
	}

	s := newShop()
	s.customer.Table = strings.Repeat("c", 64)
	construct(t, rdbms.NewLoader(rdbms.SQLite), s.types())
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlanDDL(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	l := rdbms.NewLoader(rdbms.SQLite)
	construct(t, l, newShop().types())
	stmts, err := rdbms.PlanDDL(ctx, l)
	require.NoError(err)

	joined := strings.Join(stmts, "\n")
	require.Contains(joined, "CREATE TABLE `orders`")
	require.Contains(joined, "CREATE TABLE `customers`")
	require.Contains(joined, "CREATE VIEW `named_view` AS SELECT")
	require.Contains(joined, "CREATE VIEW `prioritized_view` AS SELECT")
	require.True(strings.HasPrefix(stmts[len(stmts)-1], "CREATE VIEW"))

	db := openMemory(t)
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(err, stmt)
	}
	_, err = db.ExecContext(ctx, "INSERT INTO `customers` (`id`, `class_id`, `name`) VALUES (1, 'Customer', 'Ada')")
	require.NoError(err)
	var name string
	require.NoError(db.QueryRowContext(ctx, "SELECT `name` FROM `named_view` WHERE `id` = 1").Scan(&name))
	require.Equal("Ada", name)
}

func TestSchemaConcurrentUse(t *testing.T) {
	l := rdbms.NewLoader(rdbms.SQLite)
	construct(t, l, newShop().types())

	const workers = 8
	plans := make([][]string, workers)
	schemas := make([]any, workers)
	var eg errgroup.Group
	for i := range workers {
		eg.Go(func() error {
			schemas[i] = l.Schema()
			stmts, err := rdbms.PlanDDL(context.Background(), l)
			plans[i] = stmts
			return err
		})
	}
	require.NoError(t, eg.Wait())
	for _, s := range schemas {
		require.Same(t, l.Schema(), s)
	}
	for _, p := range plans[1:] {
		require.Equal(t, plans[0], p)
	}
	orders := tables(l)["orders"]
	require.Len(t, orders.T.ForeignKeys, 1)
	require.NotEmpty(t, views(l)["named_view"].Def)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	l := rdbms.NewLoader(rdbms.SQLite)
	construct(t, l, newShop().types())

	t.Run("up to date", func(t *testing.T) {
		stmts, err := rdbms.PlanDDL(ctx, l)
		require.NoError(t, err)
		db := openMemory(t)
		for _, stmt := range stmts {
			_, err := db.ExecContext(ctx, stmt)
			require.NoError(t, err)
		}
		mismatches, err := rdbms.Verify(ctx, db, l)
		require.NoError(t, err)
		require.Empty(t, mismatches)
	})

	t.Run("missing", func(t *testing.T) {
		db := openMemory(t)
		_, err := db.ExecContext(ctx, "CREATE TABLE `customers` (`id` integer PRIMARY KEY, `class_id` varchar(100) NOT NULL)")
		require.NoError(t, err)
		mismatches, err := rdbms.Verify(ctx, db, l)
		require.NoError(t, err)
		require.ElementsMatch(t, []rdbms.Mismatch{
			{Table: "customers", Column: "name"},
			{Table: "orders"},
		}, mismatches)
		require.Equal(t, `table "orders" is missing`, rdbms.Mismatch{Table: "orders"}.String())
		require.Equal(t, `column "name" of table "customers" is missing`, rdbms.Mismatch{Table: "customers", Column: "name"}.String())
	})
}

func TestOpen(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("relmap_open")
	require.NoError(t, err)
	defer db.Close()

	opened, err := rdbms.OpenDriver(context.Background(), "sqlmock", "relmap_open")
	require.NoError(t, err)
	require.NotNil(t, opened)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = rdbms.OpenDriver(context.Background(), "oracle", "scott/tiger")
	require.ErrorContains(t, err, "rdbms: open oracle")
}
