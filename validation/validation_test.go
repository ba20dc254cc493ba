package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/validation"
)

const pkg = "example.com/shop"

func tid(name string) load.TypeID { return load.TypeID{PkgPath: pkg, Name: name} }

func class(name string, props ...*load.Property) *load.Type {
	return &load.Type{ID: tid(name), Kind: load.KindClass, Properties: props}
}

func ref(name, target, opposite string, card load.Cardinality) *load.Property {
	return &load.Property{
		Name:     name,
		Type:     load.TypeObject,
		Relation: &load.Relation{Target: tid(target), Opposite: opposite, Cardinality: card},
	}
}

func build(t *testing.T, types ...*load.Type) *graph.Graph {
	t.Helper()
	g, err := graph.Build(types)
	require.NoError(t, err)
	return g
}

func messages(fs []graph.Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.Message)
	}
	return out
}

func TestClassID(t *testing.T) {
	tests := []struct {
		classID string
		want    string
	}{
		{classID: "Order"},
		{classID: "shop.Order"},
		{classID: strings.Repeat("x", validation.MaxClassIDLength+1), want: "is longer than 100 characters"},
		{classID: "order-line", want: "is not a valid identifier"},
		{classID: "shop..Order", want: "is not a valid identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.classID, func(t *testing.T) {
			typ := class("Order")
			typ.ClassID = tt.classID
			c, _ := build(t, typ).TypeDefinition(tid("Order"))
			fs := validation.ClassID(c)
			if tt.want == "" {
				require.Empty(t, fs)
				return
			}
			require.Len(t, fs, 1)
			require.Contains(t, fs[0].Message, tt.want)
			require.Same(t, c, fs[0].Element)
		})
	}
}

func TestAbstractLeaf(t *testing.T) {
	entity := class("Entity")
	entity.Abstract = true
	draft := class("Draft")
	draft.Abstract = true
	customer := class("Customer")
	base := tid("Entity")
	customer.Base = &base
	g := build(t, entity, draft, customer)

	var found []string
	for _, typ := range g.TypeDefinitions() {
		found = append(found, messages(validation.AbstractLeaf(typ))...)
	}
	require.Equal(t, []string{
		"abstract class example.com/shop.Draft has no derived classes and can never be instantiated",
	}, found)
}

func TestPropertyRules(t *testing.T) {
	n := func(v int) *int { return &v }
	tests := []struct {
		name string
		prop *load.Property
		rule func(*graph.PropertyDefinition) []graph.Finding
		want string
	}{
		{
			name: "supported type",
			prop: &load.Property{Name: "Number", Type: load.TypeInt32},
			rule: validation.ValueType,
		},
		{
			name: "unsupported type",
			prop: &load.Property{Name: "Ch", Type: "chan int"},
			rule: validation.ValueType,
			want: `has unsupported type "chan int"`,
		},
		{
			name: "max length on string",
			prop: &load.Property{Name: "Name", Type: load.TypeString, MaxLength: n(100)},
			rule: validation.MaxLength,
		},
		{
			name: "max length on int",
			prop: &load.Property{Name: "Number", Type: load.TypeInt64, MaxLength: n(10)},
			rule: validation.MaxLength,
			want: "cannot have a maximum length",
		},
		{
			name: "zero max length",
			prop: &load.Property{Name: "Name", Type: load.TypeBytes, MaxLength: n(0)},
			rule: validation.MaxLength,
			want: "must be positive, got 0",
		},
		{
			name: "transaction object id",
			prop: func() *load.Property {
				p := ref("Customer", "Order", "", load.One)
				p.StorageClass = load.Transaction
				return p
			}(),
			rule: validation.TransactionObjectID,
			want: "cannot be a transaction property",
		},
		{
			name: "transaction value",
			prop: &load.Property{Name: "Draft", Type: load.TypeString, StorageClass: load.Transaction},
			rule: validation.TransactionObjectID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, class("Order", tt.prop))
			c, _ := g.ClassDefinition("Order")
			p, ok := c.PropertyDefinitions().Get(graph.Identifier(tid("Order"), tt.prop.Name))
			require.True(t, ok)
			fs := tt.rule(p)
			if tt.want == "" {
				require.Empty(t, fs)
				return
			}
			require.Len(t, fs, 1)
			require.Contains(t, fs[0].Message, tt.want)
		})
	}
}

func TestEndPointCombination(t *testing.T) {
	fk := func(p *load.Property) *load.Property {
		p.Relation.ContainsForeignKey = true
		return p
	}
	tests := []struct {
		name  string
		types []*load.Type
		want  string
	}{
		{
			name: "one to many",
			types: []*load.Type{
				class("Order", ref("Customer", "Customer", "Orders", load.One)),
				class("Customer", ref("Orders", "Order", "Customer", load.Many)),
			},
		},
		{
			name: "one to one",
			types: []*load.Type{
				class("Person", ref("Passport", "Passport", "Owner", load.One)),
				class("Passport", fk(ref("Owner", "Person", "Passport", load.One))),
			},
		},
		{
			name: "unidirectional",
			types: []*load.Type{
				class("Invoice", ref("Customer", "Customer", "", load.One)),
				class("Customer"),
			},
		},
		{
			name: "unidirectional collection",
			types: []*load.Type{
				class("Customer", ref("Invoices", "Invoice", "", load.Many)),
				class("Invoice"),
			},
			want: "must be a single-object property",
		},
		{
			name: "both foreign keys",
			types: []*load.Type{
				class("Person", fk(ref("Passport", "Passport", "Owner", load.One))),
				class("Passport", fk(ref("Owner", "Person", "Passport", load.One))),
			},
			want: "cannot both hold the foreign key",
		},
		{
			name: "no foreign key",
			types: []*load.Type{
				class("Person", ref("Passport", "Passport", "Owner", load.One)),
				class("Passport", ref("Owner", "Person", "Passport", load.One)),
			},
			want: "must hold the foreign key",
		},
		{
			name: "many to many",
			types: []*load.Type{
				class("Student", ref("Courses", "Course", "Students", load.Many)),
				class("Course", ref("Students", "Student", "Courses", load.Many)),
			},
			want: "many-to-many relations",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.types...)
			require.Len(t, g.RelationDefinitions(), 1)
			fs := validation.EndPointCombination(g.RelationDefinitions()[0])
			if tt.want == "" {
				require.Empty(t, fs)
				return
			}
			require.Len(t, fs, 1)
			require.Contains(t, fs[0].Message, tt.want)
		})
	}
}

func TestRelatedType(t *testing.T) {
	t.Run("OppositeOnBaseClass", func(t *testing.T) {
		party := class("Party", ref("Orders", "Order", "Customer", load.Many))
		party.Abstract = true
		customer := class("Customer")
		base := tid("Party")
		customer.Base = &base
		g := build(t,
			party,
			customer,
			class("Order", ref("Customer", "Customer", "Orders", load.One)),
		)
		require.Len(t, g.RelationDefinitions(), 1)
		require.Empty(t, messages(validation.RelatedType(g.RelationDefinitions()[0])))
	})

	t.Run("SameClass", func(t *testing.T) {
		g := build(t,
			class("Order", ref("Customer", "Customer", "Orders", load.One)),
			class("Customer", ref("Orders", "Order", "Customer", load.Many)),
		)
		require.Empty(t, validation.RelatedType(g.RelationDefinitions()[0]))
	})
}

func TestSortRules(t *testing.T) {
	orders := ref("Orders", "Order", "Customer", load.Many)
	orders.Relation.SortExpression = "Missing"
	customerRef := ref("Customer", "Customer", "Orders", load.One)
	customerRef.Relation.SortExpression = "Name"
	g := build(t,
		class("Order", &load.Property{Name: "Number", Type: load.TypeInt32}, customerRef),
		class("Customer", &load.Property{Name: "Name", Type: load.TypeString}, orders),
	)
	order, _ := g.ClassDefinition("Order")
	customer, _ := g.ClassDefinition("Customer")
	orderEnd := order.RelationEndPointDefinitions().All()[0]
	customerEnd := customer.RelationEndPointDefinitions().All()[0]

	require.Empty(t, validation.SortPlacement(customerEnd))
	fs := validation.SortPlacement(orderEnd)
	require.Len(t, fs, 1)
	require.Contains(t, fs[0].Message, "only supported on collection properties")

	require.Empty(t, validation.SortExpression(orderEnd))
	fs = validation.SortExpression(customerEnd)
	require.Len(t, fs, 1)
	require.Contains(t, fs[0].Message, `has no property "Missing"`)
}

type storage string

func (s storage) StorageName() string { return string(s) }

type namingLoader struct{}

func (namingLoader) ApplyPersistenceModel(root graph.TypeDefinition) error {
	for _, t := range graph.Hierarchy(root) {
		if !t.HasStorageEntity() {
			t.SetStorageEntity(storage(t.Name()))
		}
		for _, p := range t.MyPropertyDefinitions().Persistent() {
			if !p.HasStorageProperty() {
				p.SetStorageProperty(storage(p.ShortName()))
			}
		}
	}
	return nil
}

func (namingLoader) CreatePersistenceMappingValidator(graph.TypeDefinition) graph.PersistenceMappingValidator {
	return nil
}

func TestFactory(t *testing.T) {
	require := require.New(t)
	f := validation.NewFactory()
	require.Len(f.TypeRules(), 2)
	require.Len(f.PropertyRules(), 3)
	require.Len(f.RelationRules(), 2)
	require.Len(f.SortExpressionRules(), 2)

	noOrders := graph.TypeRuleFunc(func(t graph.TypeDefinition) []graph.Finding {
		if t.Name() == "Order" {
			return []graph.Finding{graph.NewFinding(t, "orders are not allowed")}
		}
		return nil
	})
	f = validation.NewFactory(validation.WithoutDefaults(), validation.WithTypeRules(noOrders))
	require.Len(f.TypeRules(), 1)
	require.Empty(f.PropertyRules())

	_, err := graph.Construct([]*load.Type{class("Order")}, namingLoader{}, f)
	require.EqualError(err, "orders are not allowed")
}

func TestDefaultFactoryPipeline(t *testing.T) {
	orders := ref("Orders", "Order", "Customer", load.Many)
	orders.Relation.SortExpression = "Number desc"
	g, err := graph.Construct([]*load.Type{
		class("Order", &load.Property{Name: "Number", Type: load.TypeInt32}, ref("Customer", "Customer", "Orders", load.One)),
		class("Customer", orders),
	}, namingLoader{}, validation.NewFactory())
	require.NoError(t, err)
	require.True(t, g.IsReadOnly())

	bad := ref("Orders", "Order", "Customer", load.Many)
	bad.Relation.SortExpression = "Total"
	_, err = graph.Construct([]*load.Type{
		class("Order", &load.Property{Name: "Number", Type: load.TypeInt32}, ref("Customer", "Customer", "Orders", load.One)),
		class("Customer", bad),
	}, namingLoader{}, validation.NewFactory())
	var me *graph.MappingError
	require.ErrorAs(t, err, &me)
	require.Equal(t, graph.StageSortExpressions, me.Stage)
}
