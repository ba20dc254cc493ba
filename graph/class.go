package graph

import (
	"slices"

	"github.com/syssam/relmap/compiler/load"
)

// ClassDefinition is the class variant of a type node.
type ClassDefinition struct {
	typeNode
	classID    string
	abstract   bool
	base       *ClassDefinition
	interfaces []*InterfaceDefinition
	mixins     []*PersistentMixin

	derived    []*ClassDefinition
	derivedSet bool

	accessors *PropertyAccessorDataCache
}

// ClassOption configures a ClassDefinition.
type ClassOption func(*ClassDefinition)

// WithBaseClass sets the base class.
func WithBaseClass(base *ClassDefinition) ClassOption {
	return func(c *ClassDefinition) { c.base = base }
}

// WithInterfaces sets the implemented interfaces.
func WithInterfaces(interfaces ...*InterfaceDefinition) ClassOption {
	return func(c *ClassDefinition) { c.interfaces = interfaces }
}

// WithMixins sets the persistent mixins.
func WithMixins(mixins ...*PersistentMixin) ClassOption {
	return func(c *ClassDefinition) { c.mixins = mixins }
}

// WithAbstract marks the class abstract.
func WithAbstract() ClassOption {
	return func(c *ClassDefinition) { c.abstract = true }
}

// WithPos sets the source position of the class.
func WithPos(pos string) ClassOption {
	return func(c *ClassDefinition) { c.pos = pos }
}

// WithTable sets the requested storage name of the class.
func WithTable(table string) ClassOption {
	return func(c *ClassDefinition) { c.table = table }
}

// NewClassDefinition returns a class node. Property and end-point tables
// are assigned afterwards.
func NewClassDefinition(id load.TypeID, classID string, opts ...ClassOption) *ClassDefinition {
	c := &ClassDefinition{
		typeNode: typeNode{id: id},
		classID:  classID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.accessors = newPropertyAccessorDataCache(c)
	return c
}

// ClassID returns the unique class key.
func (c *ClassDefinition) ClassID() string { return c.classID }

// IsAbstract reports whether the class is abstract.
func (c *ClassDefinition) IsAbstract() bool { return c.abstract }

// BaseClass returns the base class, or nil.
func (c *ClassDefinition) BaseClass() *ClassDefinition { return c.base }

// ImplementedInterfaces returns the interfaces the class declares.
func (c *ClassDefinition) ImplementedInterfaces() []*InterfaceDefinition {
	return slices.Clone(c.interfaces)
}

// PersistentMixins returns the persistent mixins applied to the class.
func (c *ClassDefinition) PersistentMixins() []*PersistentMixin {
	return slices.Clone(c.mixins)
}

// DerivedClasses returns the direct derived classes.
func (c *ClassDefinition) DerivedClasses() []*ClassDefinition {
	if !c.derivedSet {
		invariantf("derived classes of class %s have not been set", c.id)
	}
	return slices.Clone(c.derived)
}

// SetDerivedClasses assigns the direct derived classes, once.
func (c *ClassDefinition) SetDerivedClasses(derived []*ClassDefinition) {
	c.checkWritable("SetDerivedClasses")
	if c.derivedSet {
		invariantf("derived classes of class %s have already been set", c.id)
	}
	for _, d := range derived {
		if d.base != c {
			invariantf("class %s cannot be a derived class of %s, its base class is %v", d.id, c.id, d.base)
		}
	}
	c.derived, c.derivedSet = slices.Clone(derived), true
}

// AllDerivedClasses returns all descendants of the class, depth first.
func (c *ClassDefinition) AllDerivedClasses() []*ClassDefinition {
	var all []*ClassDefinition
	for _, d := range c.DerivedClasses() {
		all = append(all, d)
		all = append(all, d.AllDerivedClasses()...)
	}
	return all
}

// InheritanceRoot returns the topmost base class.
func (c *ClassDefinition) InheritanceRoot() *ClassDefinition {
	root := c
	for root.base != nil {
		root = root.base
	}
	return root
}

// IsSameOrBaseClassOf reports whether c is o or one of its ancestors.
func (c *ClassDefinition) IsSameOrBaseClassOf(o *ClassDefinition) bool {
	for ; o != nil; o = o.base {
		if o == c {
			return true
		}
	}
	return false
}

// Ancestors returns the base classes of c, nearest first.
func (c *ClassDefinition) Ancestors() []*ClassDefinition {
	var all []*ClassDefinition
	for b := c.base; b != nil; b = b.base {
		all = append(all, b)
	}
	return all
}

// AllInterfaces returns every interface implemented by the class, its base
// classes or its persistent mixins, including extended interfaces.
func (c *ClassDefinition) AllInterfaces() []*InterfaceDefinition {
	var all []*InterfaceDefinition
	seen := make(map[*InterfaceDefinition]bool)
	for cls := c; cls != nil; cls = cls.base {
		for _, i := range cls.EffectiveInterfaces() {
			collectInterfaces(i, seen, &all)
		}
	}
	return all
}

// EffectiveInterfaces returns the interfaces the class declares directly or
// through its own persistent mixins.
func (c *ClassDefinition) EffectiveInterfaces() []*InterfaceDefinition {
	all := slices.Clone(c.interfaces)
	for _, m := range c.mixins {
		for _, i := range m.interfaces {
			if !slices.Contains(all, i) {
				all = append(all, i)
			}
		}
	}
	return all
}

// Implements reports whether the class implements i, directly or not.
func (c *ClassDefinition) Implements(i *InterfaceDefinition) bool {
	return slices.Contains(c.AllInterfaces(), i)
}

// PropertyDefinitions returns the properties of the class and its base
// classes, base classes first.
func (c *ClassDefinition) PropertyDefinitions() *PropertyDefinitionCollection {
	if c.allProperties != nil {
		return c.allProperties
	}
	all := NewPropertyDefinitionCollection(nil)
	if c.base != nil {
		all.items = append(all.items, c.base.PropertyDefinitions().items...)
	}
	all.items = append(all.items, c.MyPropertyDefinitions().items...)
	all.reindex()
	all.readOnly = true
	return all
}

// RelationEndPointDefinitions returns the end points of the class and its
// base classes, base classes first.
func (c *ClassDefinition) RelationEndPointDefinitions() *RelationEndPointDefinitionCollection {
	if c.allEndPoints != nil {
		return c.allEndPoints
	}
	all := NewRelationEndPointDefinitionCollection(nil)
	if c.base != nil {
		all.items = append(all.items, c.base.RelationEndPointDefinitions().items...)
	}
	all.items = append(all.items, c.MyRelationEndPointDefinitions().items...)
	all.reindex()
	all.readOnly = true
	return all
}

// SetPropertyDefinitions assigns the class's own property table, once.
func (c *ClassDefinition) SetPropertyDefinitions(p *PropertyDefinitionCollection) {
	c.setPropertyDefinitions(c, p)
}

// SetRelationEndPointDefinitions assigns the class's own end-point table, once.
func (c *ClassDefinition) SetRelationEndPointDefinitions(e *RelationEndPointDefinitionCollection) {
	c.setRelationEndPointDefinitions(c, e)
}

// SetReadOnly freezes the class. Base classes must be frozen first for the
// full tables to be shared.
func (c *ClassDefinition) SetReadOnly() {
	if c.readOnly {
		return
	}
	if !c.derivedSet {
		c.derived, c.derivedSet = nil, true
	}
	c.freeze(c.PropertyDefinitions(), c.RelationEndPointDefinitions())
}

// PropertyAccessorDataCache returns the accessor cache of the class.
func (c *ClassDefinition) PropertyAccessorDataCache() *PropertyAccessorDataCache {
	return c.accessors
}

// PersistentMixin is an auxiliary type contributing properties and interface
// implementations to classes without being their base class.
type PersistentMixin struct {
	id         load.TypeID
	interfaces []*InterfaceDefinition
	properties []*load.Property
}

// NewPersistentMixin returns a mixin with the given interfaces and property
// descriptors.
func NewPersistentMixin(id load.TypeID, interfaces []*InterfaceDefinition, properties []*load.Property) *PersistentMixin {
	return &PersistentMixin{id: id, interfaces: interfaces, properties: properties}
}

// ID returns the identity of the mixin type.
func (m *PersistentMixin) ID() load.TypeID { return m.id }

// Interfaces returns the interfaces the mixin implements.
func (m *PersistentMixin) Interfaces() []*InterfaceDefinition { return slices.Clone(m.interfaces) }

// Implements reports whether the mixin implements i, directly or through an
// extending interface.
func (m *PersistentMixin) Implements(i *InterfaceDefinition) bool {
	var all []*InterfaceDefinition
	seen := make(map[*InterfaceDefinition]bool)
	for _, mi := range m.interfaces {
		collectInterfaces(mi, seen, &all)
	}
	return slices.Contains(all, i)
}

// Declares reports whether the mixin declares a property with the given
// short name.
func (m *PersistentMixin) Declares(name string) bool {
	for _, p := range m.properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// String returns the mixin identity.
func (m *PersistentMixin) String() string { return m.id.String() }

func collectInterfaces(i *InterfaceDefinition, seen map[*InterfaceDefinition]bool, all *[]*InterfaceDefinition) {
	if seen[i] {
		return
	}
	seen[i] = true
	*all = append(*all, i)
	for _, e := range i.extended {
		collectInterfaces(e, seen, all)
	}
}
