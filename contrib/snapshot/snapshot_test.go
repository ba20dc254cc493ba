package snapshot_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/contrib/snapshot"
	"github.com/syssam/relmap/dialect/rdbms"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/validation"
)

const pkg = "example.com/shop"

func tid(name string) load.TypeID { return load.TypeID{PkgPath: pkg, Name: name} }

func value(name string, vt load.ValueType) *load.Property {
	return &load.Property{Name: name, Type: vt}
}

// shopTypes returns customers with orders. Each call returns fresh
// descriptors that tests may modify.
func shopTypes() (customer, order *load.Type) {
	size := 100
	name := value("Name", load.TypeString)
	name.MaxLength = &size
	customer = &load.Type{ID: tid("Customer"), Kind: load.KindClass, Properties: []*load.Property{
		name,
		{Name: "Orders", Type: load.TypeObject, Relation: &load.Relation{
			Target: tid("Order"), Opposite: "Customer", Cardinality: load.Many}},
	}}
	note := value("Note", load.TypeString)
	note.Nullable = true
	order = &load.Type{ID: tid("Order"), Kind: load.KindClass, Properties: []*load.Property{
		value("Number", load.TypeInt32),
		{Name: "Customer", Type: load.TypeObject, Relation: &load.Relation{
			Target: tid("Customer"), Opposite: "Orders", Mandatory: true}},
		note,
	}}
	return customer, order
}

func take(t *testing.T, types ...*load.Type) *snapshot.Snapshot {
	t.Helper()
	g, err := graph.Construct(types, rdbms.NewLoader(rdbms.SQLite), validation.NewFactory())
	require.NoError(t, err)
	s, err := snapshot.Take(g)
	require.NoError(t, err)
	return s
}

func TestTake(t *testing.T) {
	require := require.New(t)
	c, o := shopTypes()
	s := take(t, c, o)
	require.Equal(snapshot.Version, s.Version)
	require.NotZero(s.ID)
	require.False(s.CreatedAt.IsZero())

	order, ok := s.Type("example.com/shop.Order")
	require.True(ok)
	require.Equal("Order", order.ClassID)
	require.Equal("orders", order.Storage)
	require.Equal([]snapshot.Property{
		{Name: "example.com/shop.Order.Number", Type: "int32", Storage: "number"},
		{Name: "example.com/shop.Order.Customer", Type: "object", Related: "example.com/shop.Customer", Storage: "customer_id"},
		{Name: "example.com/shop.Order.Note", Type: "string", Nullable: true, Storage: "note"},
	}, order.Properties)

	customer, ok := s.Type("example.com/shop.Customer")
	require.True(ok)
	require.Equal(100, customer.Properties[0].MaxLength)

	require.Len(s.Relations, 1)
	rel := s.Relations[0]
	require.Equal("one-to-many", rel.Kind)
	require.ElementsMatch([]string{"real", "virtual collection"}, []string{rel.Ends[0].Kind, rel.Ends[1].Kind})

	_, ok = s.Type("example.com/shop.Invoice")
	require.False(ok)
}

func TestTakeNotFrozen(t *testing.T) {
	c, o := shopTypes()
	g, err := graph.Build([]*load.Type{c, o})
	require.NoError(t, err)
	_, err = snapshot.Take(g)
	require.ErrorIs(t, err, snapshot.ErrNotFrozen)
}

func TestEncoding(t *testing.T) {
	c, o := shopTypes()
	s := take(t, c, o)

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relmap.snapshot")
		require.NoError(t, snapshot.WriteFile(path, s))
		got, err := snapshot.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, s.Types, got.Types)
		assert.Equal(t, s.Relations, got.Relations)
		assert.Empty(t, snapshot.Diff(s, got))
	})

	t.Run("Version", func(t *testing.T) {
		data, err := msgpack.Marshal(&snapshot.Snapshot{Version: 99})
		require.NoError(t, err)
		_, err = snapshot.Decode(bytes.NewReader(data))
		require.ErrorIs(t, err, snapshot.ErrVersion)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := snapshot.Decode(bytes.NewReader([]byte{0xc1}))
		require.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := snapshot.ReadFile(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})
}

func TestDiff(t *testing.T) {
	c, o := shopTypes()
	old := take(t, c, o)

	tests := []struct {
		name     string
		change   func(c, o *load.Type) []*load.Type
		want     []string
		breaking bool
	}{
		{
			name: "nullable property added",
			change: func(c, o *load.Type) []*load.Type {
				tag := value("Tag", load.TypeString)
				tag.Nullable = true
				o.Properties = append(o.Properties, tag)
				return []*load.Type{c, o}
			},
			want: []string{"property added: example.com/shop.Order.Tag"},
		},
		{
			name: "mandatory property added",
			change: func(c, o *load.Type) []*load.Type {
				o.Properties = append(o.Properties, value("Tag", load.TypeString))
				return []*load.Type{c, o}
			},
			want:     []string{"BREAKING property added: example.com/shop.Order.Tag"},
			breaking: true,
		},
		{
			name: "property changed",
			change: func(c, o *load.Type) []*load.Type {
				o.Properties[0].Type = load.TypeInt64
				o.Properties[2].Nullable = false
				size := 200
				c.Properties[0].MaxLength = &size
				return []*load.Type{c, o}
			},
			want: []string{
				"property changed: example.com/shop.Customer.Name (max length 100 became 200)",
				"BREAKING property changed: example.com/shop.Order.Number (type int32 became int64)",
				"BREAKING property changed: example.com/shop.Order.Note (became mandatory)",
			},
			breaking: true,
		},
		{
			name: "table renamed",
			change: func(c, o *load.Type) []*load.Type {
				o.Table = "purchases"
				return []*load.Type{c, o}
			},
			want:     []string{"BREAKING type changed: example.com/shop.Order (storage orders became purchases)"},
			breaking: true,
		},
		{
			name: "relation removed",
			change: func(c, o *load.Type) []*load.Type {
				c.Properties = c.Properties[:1]
				o.Properties = []*load.Property{o.Properties[0], o.Properties[2]}
				return []*load.Type{c, o}
			},
			want: []string{
				"BREAKING property removed: example.com/shop.Order.Customer",
				"BREAKING relation removed: " + old.Relations[0].ID,
			},
			breaking: true,
		},
		{
			name: "type removed and added",
			change: func(c, o *load.Type) []*load.Type {
				c.Properties = c.Properties[:1]
				return []*load.Type{c, {ID: tid("Invoice"), Kind: load.KindClass}}
			},
			want: []string{
				"BREAKING type removed: example.com/shop.Order",
				"type added: example.com/shop.Invoice",
				"BREAKING relation removed: " + old.Relations[0].ID,
			},
			breaking: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, o := shopTypes()
			cs := snapshot.Diff(old, take(t, tt.change(c, o)...))
			got := make([]string, len(cs))
			for i, ch := range cs {
				got[i] = ch.String()
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.breaking, cs.HasBreaking())
			for _, ch := range cs.Breaking() {
				assert.True(t, ch.Breaking)
			}
		})
	}
}
