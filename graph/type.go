package graph

import (
	"github.com/syssam/relmap/compiler/load"
)

// TypeDefinition is a type node of the mapping graph. It is implemented by
// *ClassDefinition and *InterfaceDefinition only.
type TypeDefinition interface {
	// ID returns the identity of the reflected type.
	ID() load.TypeID
	// Name returns the unqualified type name.
	Name() string
	// Pos returns the source position of the declaration, if known.
	Pos() string
	// Table returns the storage name requested by the declaration, if any.
	Table() string
	// IsReadOnly reports whether the node is frozen.
	IsReadOnly() bool
	// SetReadOnly freezes the node. It is irreversible.
	SetReadOnly()

	// MyPropertyDefinitions returns the properties declared on the node.
	MyPropertyDefinitions() *PropertyDefinitionCollection
	// PropertyDefinitions returns the properties of the node and its ancestors.
	PropertyDefinitions() *PropertyDefinitionCollection
	// SetPropertyDefinitions assigns the node's own property table, once.
	SetPropertyDefinitions(c *PropertyDefinitionCollection)

	// MyRelationEndPointDefinitions returns the end points declared on the node.
	MyRelationEndPointDefinitions() *RelationEndPointDefinitionCollection
	// RelationEndPointDefinitions returns the end points of the node and its
	// ancestors.
	RelationEndPointDefinitions() *RelationEndPointDefinitionCollection
	// SetRelationEndPointDefinitions assigns the node's own end-point table, once.
	SetRelationEndPointDefinitions(c *RelationEndPointDefinitionCollection)

	// StorageEntity returns the storage entity assigned by the persistence
	// model loader.
	StorageEntity() StorageEntity
	// HasStorageEntity reports whether a storage entity was assigned.
	HasStorageEntity() bool
	// SetStorageEntity assigns the storage entity, once.
	SetStorageEntity(e StorageEntity)

	node() *typeNode
}

// StorageEntity is the storage-specific handle of a type node, such as a
// table or a view.
type StorageEntity interface {
	StorageName() string
}

// StorageProperty is the storage-specific handle of a persistent property,
// such as a column.
type StorageProperty interface {
	StorageName() string
}

// typeNode holds the fields shared by class and interface nodes.
type typeNode struct {
	id       load.TypeID
	pos      string
	table    string
	readOnly bool

	properties *PropertyDefinitionCollection
	endPoints  *RelationEndPointDefinitionCollection
	storage    StorageEntity

	// Full tables, cached on freeze.
	allProperties *PropertyDefinitionCollection
	allEndPoints  *RelationEndPointDefinitionCollection
}

func (n *typeNode) node() *typeNode { return n }

// ID returns the identity of the reflected type.
func (n *typeNode) ID() load.TypeID { return n.id }

// Name returns the unqualified type name.
func (n *typeNode) Name() string { return n.id.Name }

// Pos returns the source position of the declaration.
func (n *typeNode) Pos() string { return n.pos }

// Table returns the storage name requested by the declaration.
func (n *typeNode) Table() string { return n.table }

// IsReadOnly reports whether the node is frozen.
func (n *typeNode) IsReadOnly() bool { return n.readOnly }

// String returns the type identity.
func (n *typeNode) String() string { return n.id.String() }

func (n *typeNode) checkWritable(op string) {
	if n.readOnly {
		invariantf("%s: type %s is read-only", op, n.id)
	}
}

// MyPropertyDefinitions returns the properties declared on the node.
func (n *typeNode) MyPropertyDefinitions() *PropertyDefinitionCollection {
	if n.properties == nil {
		invariantf("property definitions of type %s have not been set", n.id)
	}
	return n.properties
}

// MyRelationEndPointDefinitions returns the end points declared on the node.
func (n *typeNode) MyRelationEndPointDefinitions() *RelationEndPointDefinitionCollection {
	if n.endPoints == nil {
		invariantf("relation end point definitions of type %s have not been set", n.id)
	}
	return n.endPoints
}

// StorageEntity returns the assigned storage entity.
func (n *typeNode) StorageEntity() StorageEntity {
	if n.storage == nil {
		invariantf("storage entity of type %s has not been set", n.id)
	}
	return n.storage
}

// HasStorageEntity reports whether a storage entity was assigned.
func (n *typeNode) HasStorageEntity() bool { return n.storage != nil }

// SetStorageEntity assigns the storage entity, once.
func (n *typeNode) SetStorageEntity(e StorageEntity) {
	n.checkWritable("SetStorageEntity")
	if n.storage != nil {
		invariantf("storage entity of type %s has already been set", n.id)
	}
	if e == nil {
		invariantf("storage entity of type %s must not be nil", n.id)
	}
	n.storage = e
}

func (n *typeNode) setPropertyDefinitions(owner TypeDefinition, c *PropertyDefinitionCollection) {
	n.checkWritable("SetPropertyDefinitions")
	if n.properties != nil {
		invariantf("property definitions of type %s have already been set", n.id)
	}
	if c.owner != owner {
		invariantf("property definitions owned by %s cannot be assigned to type %s", c.owner, n.id)
	}
	n.properties = c
}

func (n *typeNode) setRelationEndPointDefinitions(owner TypeDefinition, c *RelationEndPointDefinitionCollection) {
	n.checkWritable("SetRelationEndPointDefinitions")
	if n.endPoints != nil {
		invariantf("relation end point definitions of type %s have already been set", n.id)
	}
	for _, e := range c.items {
		if e.owner == nil || TypeDefinition(e.owner) != owner {
			invariantf("relation end point %s is not owned by type %s", e, n.id)
		}
	}
	n.endPoints = c
}

// freeze marks the node and its own tables read-only and caches the full
// tables computed by the variant.
func (n *typeNode) freeze(props *PropertyDefinitionCollection, ends *RelationEndPointDefinitionCollection) {
	if n.readOnly {
		return
	}
	props.readOnly, ends.readOnly = true, true
	n.allProperties, n.allEndPoints = props, ends
	if n.properties != nil {
		n.properties.readOnly = true
	}
	if n.endPoints != nil {
		n.endPoints.readOnly = true
	}
	n.readOnly = true
}

var (
	_ TypeDefinition = (*ClassDefinition)(nil)
	_ TypeDefinition = (*InterfaceDefinition)(nil)
)
