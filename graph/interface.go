package graph

import (
	"slices"

	"github.com/syssam/relmap/compiler/load"
)

// InterfaceDefinition is the interface variant of a type node. Interfaces
// carry value and single-object contract properties and no relation end
// points.
type InterfaceDefinition struct {
	typeNode
	extended []*InterfaceDefinition

	implementing    []*ClassDefinition
	implementingSet bool
	extending       []*InterfaceDefinition
	extendingSet    bool
}

// NewInterfaceDefinition returns an interface node extending the given
// interfaces.
func NewInterfaceDefinition(id load.TypeID, extended ...*InterfaceDefinition) *InterfaceDefinition {
	return &InterfaceDefinition{
		typeNode: typeNode{id: id},
		extended: extended,
	}
}

// ExtendedInterfaces returns the interfaces i extends directly.
func (i *InterfaceDefinition) ExtendedInterfaces() []*InterfaceDefinition {
	return slices.Clone(i.extended)
}

// ImplementingClasses returns the classes implementing i directly or
// through one of their persistent mixins.
func (i *InterfaceDefinition) ImplementingClasses() []*ClassDefinition {
	if !i.implementingSet {
		invariantf("implementing classes of interface %s have not been set", i.id)
	}
	return slices.Clone(i.implementing)
}

// SetImplementingClasses assigns the implementing classes, once.
func (i *InterfaceDefinition) SetImplementingClasses(classes []*ClassDefinition) {
	i.checkWritable("SetImplementingClasses")
	if i.implementingSet {
		invariantf("implementing classes of interface %s have already been set", i.id)
	}
	for _, c := range classes {
		if !slices.Contains(c.EffectiveInterfaces(), i) {
			invariantf("class %s does not implement interface %s", c.id, i.id)
		}
	}
	i.implementing, i.implementingSet = slices.Clone(classes), true
}

// ExtendingInterfaces returns the interfaces extending i directly.
func (i *InterfaceDefinition) ExtendingInterfaces() []*InterfaceDefinition {
	if !i.extendingSet {
		invariantf("extending interfaces of interface %s have not been set", i.id)
	}
	return slices.Clone(i.extending)
}

// SetExtendingInterfaces assigns the extending interfaces, once.
func (i *InterfaceDefinition) SetExtendingInterfaces(interfaces []*InterfaceDefinition) {
	i.checkWritable("SetExtendingInterfaces")
	if i.extendingSet {
		invariantf("extending interfaces of interface %s have already been set", i.id)
	}
	for _, e := range interfaces {
		if !slices.Contains(e.extended, i) {
			invariantf("interface %s does not extend interface %s", e.id, i.id)
		}
	}
	i.extending, i.extendingSet = slices.Clone(interfaces), true
}

// Extends reports whether i extends o, directly or not.
func (i *InterfaceDefinition) Extends(o *InterfaceDefinition) bool {
	for _, e := range i.extended {
		if e == o || e.Extends(o) {
			return true
		}
	}
	return false
}

// PropertyDefinitions returns the properties of i and of every interface
// it extends, extended interfaces first.
func (i *InterfaceDefinition) PropertyDefinitions() *PropertyDefinitionCollection {
	if i.allProperties != nil {
		return i.allProperties
	}
	all := NewPropertyDefinitionCollection(nil)
	seen := make(map[*InterfaceDefinition]bool)
	var visit func(*InterfaceDefinition)
	visit = func(n *InterfaceDefinition) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, e := range n.extended {
			visit(e)
		}
		all.items = append(all.items, n.MyPropertyDefinitions().items...)
	}
	visit(i)
	all.reindex()
	all.readOnly = true
	return all
}

// RelationEndPointDefinitions returns the end points of the interface,
// which is always empty.
func (i *InterfaceDefinition) RelationEndPointDefinitions() *RelationEndPointDefinitionCollection {
	if i.allEndPoints != nil {
		return i.allEndPoints
	}
	all := NewRelationEndPointDefinitionCollection(nil)
	all.items = append(all.items, i.MyRelationEndPointDefinitions().items...)
	all.reindex()
	all.readOnly = true
	return all
}

// SetPropertyDefinitions assigns the interface's own property table, once.
func (i *InterfaceDefinition) SetPropertyDefinitions(p *PropertyDefinitionCollection) {
	i.setPropertyDefinitions(i, p)
}

// SetRelationEndPointDefinitions assigns the interface's own end-point
// table, once.
func (i *InterfaceDefinition) SetRelationEndPointDefinitions(e *RelationEndPointDefinitionCollection) {
	if e.Len() > 0 {
		invariantf("interface %s cannot own relation end points", i.id)
	}
	i.setRelationEndPointDefinitions(i, e)
}

// SetReadOnly freezes the interface.
func (i *InterfaceDefinition) SetReadOnly() {
	if i.readOnly {
		return
	}
	if !i.implementingSet {
		i.implementing, i.implementingSet = nil, true
	}
	if !i.extendingSet {
		i.extending, i.extendingSet = nil, true
	}
	i.freeze(i.PropertyDefinitions(), i.RelationEndPointDefinitions())
}
