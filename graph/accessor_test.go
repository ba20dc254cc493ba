package graph

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/compiler/load"
)

type entityFixture struct {
	_       struct{} `mapping:"class,abstract"`
	Created time.Time
}

type customerFixture struct {
	entityFixture
	_      struct{}        `mapping:"class,id=Customer"`
	Name   string          `mapping:",maxlen=100"`
	Orders []*orderFixture `mapping:",opposite=Customer,sort=Number desc"`
}

type orderFixture struct {
	entityFixture
	_        struct{} `mapping:"class,id=Order"`
	Number   int32
	Customer *customerFixture `mapping:",mandatory,opposite=Orders"`
	Note     string           `mapping:"Remark"`
}

func reflectGraph(t *testing.T) *Graph {
	t.Helper()
	types, err := load.NewReflectSource().
		Class(entityFixture{}, customerFixture{}, orderFixture{}).
		Load(context.Background())
	require.NoError(t, err)
	return construct(t, types...)
}

func TestAccessorOf(t *testing.T) {
	require := require.New(t)
	g := reflectGraph(t)
	order, ok := g.ClassDefinition("Order")
	require.True(ok)
	cache := order.PropertyAccessorDataCache()

	d, err := AccessorOf(cache, func(o *orderFixture) any { return &o.Customer })
	require.NoError(err)
	require.Equal(RealEndPointAccessor, d.Kind())
	require.Equal("Customer", d.ShortName())
	require.True(d.PropertyDefinition().IsObjectID())
	require.NotNil(d.RelationEndPointDefinition())

	d, err = AccessorOf(cache, func(o *orderFixture) any { return &o.Created })
	require.NoError(err)
	require.Equal(ValueAccessor, d.Kind())
	require.Equal(load.TypeIDOf(reflect.TypeOf(entityFixture{})), d.DeclaringType())

	d, err = AccessorOf(cache, func(o *orderFixture) any { return &o.Note })
	require.NoError(err)
	require.Equal("Remark", d.ShortName())

	_, err = AccessorOf(cache, func(o *orderFixture) any { return o.Number })
	require.ErrorContains(err, "must return a field address")

	customer, _ := g.ClassDefinition("Customer")
	d, err = AccessorOf(customer.PropertyAccessorDataCache(), func(c *customerFixture) any { return &c.Orders })
	require.NoError(err)
	require.Equal(VirtualEndPointAccessor, d.Kind())
	require.Nil(d.PropertyDefinition())
	expr, err := d.RelationEndPointDefinition().SortExpression()
	require.NoError(err)
	require.Equal("Number desc", expr.String())

	_, err = AccessorOf(customer.PropertyAccessorDataCache(), func(o *orderFixture) any { return &o.Number })
	require.True(IsPropertyNotFound(err))
}

func TestPropertyAccessorDataCache(t *testing.T) {
	require := require.New(t)
	g := construct(t, orderCustomer()...)
	order, _ := g.ClassDefinition("Order")
	customer, _ := g.ClassDefinition("Customer")

	var kinds []AccessorKind
	for _, d := range order.PropertyAccessorDataCache().All() {
		kinds = append(kinds, d.Kind())
	}
	require.Equal([]AccessorKind{ValueAccessor, RealEndPointAccessor}, kinds)

	all := customer.PropertyAccessorDataCache().All()
	require.Len(all, 2)
	require.Equal(VirtualEndPointAccessor, all[1].Kind())
	require.Equal(ident("Customer", "Orders"), all[1].PropertyIdentifier())

	cache := customer.PropertyAccessorDataCache()
	d, ok := cache.GetPropertyAccessorDataByMember(tid("Customer"), "Name")
	require.True(ok)
	require.Same(customer, d.ClassDefinition())
	_, err := cache.GetMandatoryPropertyAccessorData(ident("Customer", "Missing"))
	require.True(IsPropertyNotFound(err))
	_, err = cache.GetMandatoryPropertyAccessorDataByMember(tid("Order"), "Number")
	require.ErrorIs(err, ErrMapping)
}

func namedGraph(t *testing.T) *Graph {
	t.Helper()
	return construct(t,
		iface("Named", value("Name", load.TypeString)),
		mixin("FirstName", []string{"Named"}, value("Name", load.TypeString)),
		mixin("LastName", []string{"Named"}, value("Name", load.TypeString)),
		withMixins(class("Person"), "FirstName", "LastName"),
		withMixins(class("Company"), "FirstName"),
		withInterfaces(class("Brand", value("Name", load.TypeString)), "Named"),
		derived("Label", "Brand"),
		withMixins(class("Widget", value("Name", load.TypeString)), "FirstName"),
	)
}

func TestResolveInterfaceMember(t *testing.T) {
	g := namedGraph(t)
	member := load.Member{DeclaringType: tid("Named"), Name: "Name"}
	tests := []struct {
		class string
		want  load.TypeID
	}{
		{"Company", tid("FirstName")},
		{"Brand", tid("Brand")},
		{"Label", tid("Brand")},
		// Widget reaches Named only through its mixin; its own Name is
		// not an implementation.
		{"Widget", tid("FirstName")},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			c, ok := g.ClassDefinition(tt.class)
			require.True(t, ok)
			d, err := c.PropertyAccessorDataCache().ResolveMandatoryPropertyAccessorData(member)
			require.NoError(t, err)
			require.Equal(t, tt.want, d.DeclaringType())
		})
	}
}

func TestResolveAmbiguousMember(t *testing.T) {
	require := require.New(t)
	g := namedGraph(t)
	person, _ := g.ClassDefinition("Person")
	cache := person.PropertyAccessorDataCache()
	member := load.Member{DeclaringType: tid("Named"), Name: "Name"}

	d, err := cache.ResolvePropertyAccessorData(member)
	require.Nil(d)
	require.ErrorIs(err, ErrMapping)
	var ae *AmbiguityError
	require.ErrorAs(err, &ae)
	require.Equal([]load.TypeID{tid("FirstName"), tid("LastName")}, ae.Candidates)
	require.Equal(tid("Person"), ae.Class)

	_, again := cache.ResolvePropertyAccessorData(member)
	require.Same(ae, again)

	// Members declared by a mixin resolve directly.
	d, err = cache.ResolveMandatoryPropertyAccessorData(load.Member{DeclaringType: tid("LastName"), Name: "Name"})
	require.NoError(err)
	require.Equal(tid("LastName"), d.DeclaringType())

	// Interfaces the class does not implement resolve to nothing.
	d, err = cache.ResolvePropertyAccessorData(load.Member{DeclaringType: tid("Other"), Name: "Name"})
	require.NoError(err)
	require.Nil(d)
	_, err = cache.ResolveMandatoryPropertyAccessorData(load.Member{DeclaringType: tid("Other"), Name: "Name"})
	require.True(IsPropertyNotFound(err))
}
