package graph

import (
	"fmt"
	"slices"

	"github.com/syssam/relmap/compiler/load"
)

// PropertyDefinition describes one mapped property of a type node.
type PropertyDefinition struct {
	owner        TypeDefinition
	name         string
	shortName    string
	declaring    load.TypeID
	valueType    load.ValueType
	nullable     bool
	maxLength    *int
	storageClass load.StorageClass
	column       string

	objectID    bool
	relatedType load.TypeID

	storage StorageProperty
}

// NewPropertyDefinition returns a property of owner declared by the type
// declaring, which is the owner itself or one of its persistent mixins.
// Relation descriptors produce object-ID properties.
func NewPropertyDefinition(owner TypeDefinition, declaring load.TypeID, p *load.Property) *PropertyDefinition {
	pd := &PropertyDefinition{
		owner:        owner,
		name:         Identifier(declaring, p.Name),
		shortName:    p.Name,
		declaring:    declaring,
		valueType:    p.Type,
		nullable:     p.Nullable,
		maxLength:    p.MaxLength,
		storageClass: p.StorageClass,
		column:       p.Column,
	}
	if p.Relation != nil {
		pd.objectID = true
		pd.relatedType = p.Relation.Target.Definition()
		pd.valueType = load.TypeObject
		pd.nullable = !p.Relation.Mandatory
	}
	return pd
}

// Identifier returns the "declaring-type.short-name" property identifier.
func Identifier(declaring load.TypeID, shortName string) string {
	return declaring.String() + "." + shortName
}

// TypeDefinition returns the owning type node.
func (p *PropertyDefinition) TypeDefinition() TypeDefinition { return p.owner }

// Name returns the property identifier.
func (p *PropertyDefinition) Name() string { return p.name }

// ShortName returns the member name without the declaring type.
func (p *PropertyDefinition) ShortName() string { return p.shortName }

// DeclaringType returns the type declaring the member, which is the owner
// or a persistent mixin.
func (p *PropertyDefinition) DeclaringType() load.TypeID { return p.declaring }

// ValueType returns the semantic value type.
func (p *PropertyDefinition) ValueType() load.ValueType { return p.valueType }

// IsNullable reports whether the property accepts null values.
func (p *PropertyDefinition) IsNullable() bool { return p.nullable }

// MaxLength returns the maximum length, if any.
func (p *PropertyDefinition) MaxLength() (int, bool) {
	if p.maxLength == nil {
		return 0, false
	}
	return *p.maxLength, true
}

// StorageClass returns the storage class.
func (p *PropertyDefinition) StorageClass() load.StorageClass { return p.storageClass }

// IsPersistent reports whether the property is stored.
func (p *PropertyDefinition) IsPersistent() bool { return p.storageClass == load.Persistent }

// StorageNameHint returns the storage name requested by the declaration.
func (p *PropertyDefinition) StorageNameHint() string { return p.column }

// IsObjectID reports whether the property holds the ID of a related object.
func (p *PropertyDefinition) IsObjectID() bool { return p.objectID }

// RelatedType returns the related class of an object-ID property.
func (p *PropertyDefinition) RelatedType() load.TypeID { return p.relatedType }

// StorageProperty returns the assigned storage property.
func (p *PropertyDefinition) StorageProperty() StorageProperty {
	if p.storage == nil {
		invariantf("storage property of %s has not been set", p.name)
	}
	return p.storage
}

// HasStorageProperty reports whether a storage property was assigned.
func (p *PropertyDefinition) HasStorageProperty() bool { return p.storage != nil }

// SetStorageProperty assigns the storage property, once.
func (p *PropertyDefinition) SetStorageProperty(sp StorageProperty) {
	if p.owner != nil && p.owner.IsReadOnly() {
		invariantf("SetStorageProperty: type %s is read-only", p.owner.ID())
	}
	if p.storage != nil {
		invariantf("storage property of %s has already been set", p.name)
	}
	p.storage = sp
}

// String returns the property identifier.
func (p *PropertyDefinition) String() string { return p.name }

// PropertyDefinitionCollection is an insertion-ordered property table keyed
// by identifier.
type PropertyDefinitionCollection struct {
	owner    TypeDefinition
	items    []*PropertyDefinition
	index    map[string]*PropertyDefinition
	readOnly bool
}

// NewPropertyDefinitionCollection returns an empty table owned by owner.
func NewPropertyDefinitionCollection(owner TypeDefinition) *PropertyDefinitionCollection {
	return &PropertyDefinitionCollection{
		owner: owner,
		index: make(map[string]*PropertyDefinition),
	}
}

// Add appends p. A property already present in the table, or in the full
// table of a base class of the owner, is rejected with a mapping error.
func (c *PropertyDefinitionCollection) Add(p *PropertyDefinition) error {
	if c.readOnly {
		invariantf("cannot add property %s: the property table is read-only", p.name)
	}
	if c.owner != nil && p.owner != c.owner {
		invariantf("property %s is owned by %v and cannot be added to the table of %s", p.name, p.owner, c.owner.ID())
	}
	if _, ok := c.index[p.name]; ok {
		return NewMappingError(StageBuild, NewFinding(p,
			"property %q is declared more than once on type %s", p.name, ownerID(c.owner)))
	}
	if cls, ok := c.owner.(*ClassDefinition); ok && cls.base != nil {
		if inherited, ok := cls.base.PropertyDefinitions().Get(p.name); ok {
			return NewMappingError(StageBuild, NewFinding(p,
				"class %s must not define property %q, because base class %s already defines a property with the same name",
				cls.id, p.name, inherited.owner.ID()))
		}
	}
	c.items = append(c.items, p)
	c.index[p.name] = p
	return nil
}

func ownerID(t TypeDefinition) string {
	if t == nil {
		return "<none>"
	}
	return t.ID().String()
}

func (c *PropertyDefinitionCollection) reindex() {
	c.index = make(map[string]*PropertyDefinition, len(c.items))
	for _, p := range c.items {
		c.index[p.name] = p
	}
}

// Owner returns the owning type node, nil for full tables.
func (c *PropertyDefinitionCollection) Owner() TypeDefinition { return c.owner }

// IsReadOnly reports whether the table is frozen.
func (c *PropertyDefinitionCollection) IsReadOnly() bool { return c.readOnly }

// Len returns the number of properties.
func (c *PropertyDefinitionCollection) Len() int { return len(c.items) }

// All returns the properties in insertion order.
func (c *PropertyDefinitionCollection) All() []*PropertyDefinition { return slices.Clone(c.items) }

// Contains reports whether a property with the given identifier exists.
func (c *PropertyDefinitionCollection) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Get returns the property with the given identifier.
func (c *PropertyDefinitionCollection) Get(name string) (*PropertyDefinition, bool) {
	p, ok := c.index[name]
	return p, ok
}

// GetMandatory returns the property with the given identifier or a
// PropertyNotFoundError.
func (c *PropertyDefinitionCollection) GetMandatory(name string) (*PropertyDefinition, error) {
	if p, ok := c.index[name]; ok {
		return p, nil
	}
	var id load.TypeID
	if c.owner != nil {
		id = c.owner.ID()
	}
	return nil, &PropertyNotFoundError{Class: id, Property: name}
}

// ByShortName returns the properties with the given short name, in table
// order.
func (c *PropertyDefinitionCollection) ByShortName(name string) []*PropertyDefinition {
	var ps []*PropertyDefinition
	for _, p := range c.items {
		if p.shortName == name {
			ps = append(ps, p)
		}
	}
	return ps
}

// Persistent returns the persistent properties in table order.
func (c *PropertyDefinitionCollection) Persistent() []*PropertyDefinition {
	var ps []*PropertyDefinition
	for _, p := range c.items {
		if p.IsPersistent() {
			ps = append(ps, p)
		}
	}
	return ps
}

// String returns a debug representation of the table.
func (c *PropertyDefinitionCollection) String() string {
	return fmt.Sprintf("properties(%s, %d)", ownerID(c.owner), len(c.items))
}
