package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/compiler/load"
)

func TestRelationKind(t *testing.T) {
	a := NewClassDefinition(tid("A"), "A")
	b := NewClassDefinition(tid("B"), "B")
	objA := NewVirtualEndPoint(a, a.ID(), "B", &load.Relation{Target: b.ID(), Opposite: "A", Cardinality: load.One})
	objB := NewVirtualEndPoint(b, b.ID(), "A", &load.Relation{Target: a.ID(), Opposite: "B", Cardinality: load.One})
	colB := NewVirtualEndPoint(b, b.ID(), "As", &load.Relation{Target: a.ID(), Opposite: "B", Cardinality: load.Many})
	anon := NewAnonymousEndPoint(b, a.ID())

	tests := []struct {
		name   string
		e1, e2 *RelationEndPointDefinition
		want   RelationKind
	}{
		{"one to one", objA, objB, OneToOne},
		{"one to many", objA, colB, OneToMany},
		{"unidirectional", objA, anon, Unidirectional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewRelationDefinition("r", tt.e1, tt.e2).RelationKind())
			require.Equal(t, tt.want, NewRelationDefinition("r", tt.e2, tt.e1).RelationKind())
		})
	}
	requireInvariant(t, func() { NewRelationDefinition("r", objA, objA) })
	requireInvariant(t, func() { NewRelationDefinition("r", objA, nil) })
}

func TestRelationID(t *testing.T) {
	require := require.New(t)
	a := NewClassDefinition(tid("A"), "A")
	b := NewClassDefinition(tid("B"), "B")
	ref := one("B", "B", "As")
	fk := NewRealEndPoint(NewPropertyDefinition(a, a.ID(), ref), ref.Relation)
	colB := NewVirtualEndPoint(b, b.ID(), "As", &load.Relation{Target: a.ID(), Opposite: "B", Cardinality: load.Many})
	objA := NewVirtualEndPoint(a, a.ID(), "Other", &load.Relation{Target: b.ID(), Opposite: "Other", Cardinality: load.One})
	objB := NewVirtualEndPoint(b, b.ID(), "Other", &load.Relation{Target: a.ID(), Opposite: "Other", Cardinality: load.One})
	anon := NewAnonymousEndPoint(b, a.ID())

	fkKey := "A:" + ident("A", "B")
	require.Equal(fkKey, RelationID(fk, colB))
	require.Equal(fkKey, RelationID(colB, fk))
	require.Equal(fkKey, RelationID(anon, fk))
	require.Equal(fkKey, RelationID(fk, anon))
	require.Equal("A:"+ident("A", "Other"), RelationID(objA, objB))
	require.Equal("A:"+ident("A", "Other"), RelationID(objB, objA))
}

func TestRelationLookups(t *testing.T) {
	require := require.New(t)
	a := NewClassDefinition(tid("A"), "A")
	b := NewClassDefinition(tid("B"), "B")
	ref := one("B", "B", "As")
	fk := NewRealEndPoint(NewPropertyDefinition(a, a.ID(), ref), ref.Relation)
	col := NewVirtualEndPoint(b, b.ID(), "As", &load.Relation{Target: a.ID(), Opposite: "B", Cardinality: load.Many})
	r := NewRelationDefinition(RelationID(fk, col), fk, col)

	require.Same(col, r.GetOppositeEndPointDefinition(fk))
	require.Same(fk, r.GetOppositeEndPointDefinition(col))
	require.Same(b, r.GetOppositeClassDefinition(fk))
	require.True(r.IsEndPoint("B", ident("B", "As")))
	require.False(r.IsEndPoint("A", ident("B", "As")))

	foreign := NewAnonymousEndPoint(a, b.ID())
	requireInvariant(t, func() { r.GetOppositeEndPointDefinition(foreign) })
	requireInvariant(t, func() { fk.RelationDefinition() })
	requireInvariant(t, func() { foreign.SetRelationDefinition(r) })

	fk.SetRelationDefinition(r)
	require.True(fk.IsLinked())
	require.Same(r, fk.RelationDefinition())
	requireInvariant(t, func() { fk.SetRelationDefinition(r) })
}

func TestRelationsExactlyOnce(t *testing.T) {
	types := orderCustomer()
	for _, order := range [][]*load.Type{types, {types[1], types[0]}} {
		g := construct(t, order...)
		require.Len(t, g.RelationDefinitions(), 1)
		r := g.RelationDefinitions()[0]
		require.Equal(t, "Order:"+ident("Order", "Customer"), r.ID())
		for _, e := range r.EndPointDefinitions() {
			require.Same(t, r, e.RelationDefinition())
		}
	}
}
