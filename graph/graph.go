package graph

import (
	"slices"

	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/load"
)

// Graph is the set of type nodes and relations built from one source.
type Graph struct {
	types     []TypeDefinition
	byID      map[load.TypeID]TypeDefinition
	classes   []*ClassDefinition
	byClassID map[string]*ClassDefinition
	relations []*RelationDefinition
	byRelID   map[string]*RelationDefinition
	mixins    map[load.TypeID]*PersistentMixin
	readOnly  bool
}

func newGraph() *Graph {
	return &Graph{
		byID:      make(map[load.TypeID]TypeDefinition),
		byClassID: make(map[string]*ClassDefinition),
		byRelID:   make(map[string]*RelationDefinition),
		mixins:    make(map[load.TypeID]*PersistentMixin),
	}
}

func (g *Graph) add(t TypeDefinition) {
	g.types = append(g.types, t)
	g.byID[t.ID()] = t
	if c, ok := t.(*ClassDefinition); ok {
		g.classes = append(g.classes, c)
		if _, dup := g.byClassID[c.classID]; !dup {
			g.byClassID[c.classID] = c
		}
	}
}

// TypeDefinitions returns every type node in creation order, ancestors
// first.
func (g *Graph) TypeDefinitions() []TypeDefinition { return slices.Clone(g.types) }

// TypeDefinition returns the node of the given type.
func (g *Graph) TypeDefinition(id load.TypeID) (TypeDefinition, bool) {
	t, ok := g.byID[id.Definition()]
	return t, ok
}

// ClassDefinitions returns every class node in creation order.
func (g *Graph) ClassDefinitions() []*ClassDefinition { return slices.Clone(g.classes) }

// ClassDefinition returns the class with the given class ID.
func (g *Graph) ClassDefinition(classID string) (*ClassDefinition, bool) {
	c, ok := g.byClassID[classID]
	return c, ok
}

// InterfaceDefinitions returns every interface node in creation order.
func (g *Graph) InterfaceDefinitions() []*InterfaceDefinition {
	var is []*InterfaceDefinition
	for _, t := range g.types {
		if i, ok := t.(*InterfaceDefinition); ok {
			is = append(is, i)
		}
	}
	return is
}

// RelationDefinitions returns every relation in creation order.
func (g *Graph) RelationDefinitions() []*RelationDefinition { return slices.Clone(g.relations) }

// RelationDefinition returns the relation with the given ID.
func (g *Graph) RelationDefinition(id string) (*RelationDefinition, bool) {
	r, ok := g.byRelID[id]
	return r, ok
}

// PersistentMixin returns the mixin of the given type.
func (g *Graph) PersistentMixin(id load.TypeID) (*PersistentMixin, bool) {
	m, ok := g.mixins[id]
	return m, ok
}

// HierarchyRoots returns the hierarchy roots in creation order.
func (g *Graph) HierarchyRoots() []TypeDefinition { return HierarchyRoots(g.types) }

// IsReadOnly reports whether the graph has been frozen.
func (g *Graph) IsReadOnly() bool { return g.readOnly }

// Freeze makes every node read-only, ancestors first.
func (g *Graph) Freeze() {
	for _, t := range g.types {
		t.SetReadOnly()
	}
	g.readOnly = true
}

// Option configures the builder and the validation pipeline.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) *options {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
