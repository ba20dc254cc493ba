package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/compiler/load"
)

const shop = "example.com/shop"

func tid(name string) load.TypeID { return load.TypeID{PkgPath: shop, Name: name} }

func ident(typ, name string) string { return Identifier(tid(typ), name) }

func class(name string, props ...*load.Property) *load.Type {
	return &load.Type{ID: tid(name), Kind: load.KindClass, Properties: props}
}

func derived(name, base string, props ...*load.Property) *load.Type {
	t := class(name, props...)
	b := tid(base)
	t.Base = &b
	return t
}

func iface(name string, props ...*load.Property) *load.Type {
	return &load.Type{ID: tid(name), Kind: load.KindInterface, Properties: props}
}

func mixin(name string, interfaces []string, props ...*load.Property) *load.Type {
	t := &load.Type{ID: tid(name), Kind: load.KindMixin, Properties: props}
	for _, i := range interfaces {
		t.Interfaces = append(t.Interfaces, tid(i))
	}
	return t
}

func value(name string, vt load.ValueType) *load.Property {
	return &load.Property{Name: name, Type: vt}
}

func one(name, target, opposite string) *load.Property {
	return &load.Property{
		Name:     name,
		Type:     load.TypeObject,
		Relation: &load.Relation{Target: tid(target), Opposite: opposite, Cardinality: load.One},
	}
}

func many(name, target, opposite string) *load.Property {
	return &load.Property{
		Name:     name,
		Type:     load.TypeObject,
		Relation: &load.Relation{Target: tid(target), Opposite: opposite, Cardinality: load.Many},
	}
}

// orderCustomer returns the Order/Customer descriptors.
func orderCustomer() []*load.Type {
	customerRef := one("Customer", "Customer", "Orders")
	customerRef.Relation.Mandatory = true
	orders := many("Orders", "Order", "Customer")
	orders.Relation.SortExpression = "Number desc"
	return []*load.Type{
		class("Order", value("Number", load.TypeInt32), customerRef),
		class("Customer", value("Name", load.TypeString), orders),
	}
}

type storageName string

func (s storageName) StorageName() string { return string(s) }

// memoryLoader assigns storage handles named after the graph elements.
type memoryLoader struct {
	roots    []load.TypeID
	skip     bool
	err      error
	findings []Finding
}

func (l *memoryLoader) ApplyPersistenceModel(root TypeDefinition) error {
	l.roots = append(l.roots, root.ID())
	if l.err != nil || l.skip {
		return l.err
	}
	for _, t := range Hierarchy(root) {
		if !t.HasStorageEntity() {
			t.SetStorageEntity(storageName(t.Name()))
		}
		for _, p := range t.MyPropertyDefinitions().Persistent() {
			if !p.HasStorageProperty() {
				p.SetStorageProperty(storageName(p.ShortName()))
			}
		}
	}
	return nil
}

func (l *memoryLoader) CreatePersistenceMappingValidator(TypeDefinition) PersistenceMappingValidator {
	return l
}

func (l *memoryLoader) Validate([]TypeDefinition) []Finding {
	findings := l.findings
	l.findings = nil
	return findings
}

// ruleSet is a ValidatorFactory over explicit rule lists.
type ruleSet struct {
	types     []TypeRule
	props     []PropertyRule
	relations []RelationRule
	sorts     []SortExpressionRule
}

func (r *ruleSet) TypeRules() []TypeRule                     { return r.types }
func (r *ruleSet) PropertyRules() []PropertyRule             { return r.props }
func (r *ruleSet) RelationRules() []RelationRule             { return r.relations }
func (r *ruleSet) SortExpressionRules() []SortExpressionRule { return r.sorts }

func construct(t *testing.T, types ...*load.Type) *Graph {
	t.Helper()
	g, err := Construct(types, &memoryLoader{}, &ruleSet{})
	require.NoError(t, err)
	return g
}

func requireInvariant(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.True(t, IsInvariantError(r), "expected an invariant violation, got %v", r)
	}()
	f()
}

func mappingError(t *testing.T, err error) *MappingError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMapping)
	var me *MappingError
	require.ErrorAs(t, err, &me)
	return me
}

func TestGraphLookups(t *testing.T) {
	require := require.New(t)
	g := construct(t, orderCustomer()...)
	require.True(g.IsReadOnly())
	require.Len(g.TypeDefinitions(), 2)
	require.Len(g.ClassDefinitions(), 2)
	require.Empty(g.InterfaceDefinitions())

	order, ok := g.ClassDefinition("Order")
	require.True(ok)
	byID, ok := g.TypeDefinition(tid("Order"))
	require.True(ok)
	require.Same(order, byID)
	_, ok = g.ClassDefinition("Invoice")
	require.False(ok)

	r, ok := g.RelationDefinition("Order:" + ident("Order", "Customer"))
	require.True(ok)
	require.Equal(OneToMany, r.RelationKind())
	require.Len(g.HierarchyRoots(), 2)
}
