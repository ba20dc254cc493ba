package graph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/relmap/compiler/load"
)

// EndPointKind tells the variant of a relation end point.
type EndPointKind uint8

// End-point variants.
const (
	// RealEndPoint is backed by an object-ID property of its class.
	RealEndPoint EndPointKind = iota
	// VirtualObjectEndPoint is the single-object side of a one-to-one
	// relation whose foreign key lives on the other side.
	VirtualObjectEndPoint
	// VirtualCollectionEndPoint is the collection side of a one-to-many
	// relation.
	VirtualCollectionEndPoint
	// AnonymousEndPoint stands for the missing side of a unidirectional
	// relation.
	AnonymousEndPoint
)

// String returns the variant name.
func (k EndPointKind) String() string {
	switch k {
	case RealEndPoint:
		return "real"
	case VirtualObjectEndPoint:
		return "virtual object"
	case VirtualCollectionEndPoint:
		return "virtual collection"
	case AnonymousEndPoint:
		return "anonymous"
	default:
		return "unknown"
	}
}

// RelationEndPointDefinition is one side of a relation.
type RelationEndPointDefinition struct {
	kind         EndPointKind
	owner        *ClassDefinition
	name         string
	shortName    string
	declaring    load.TypeID
	cardinality  load.Cardinality
	mandatory    bool
	relatedType  load.TypeID
	oppositeName string
	property     *PropertyDefinition

	sortText string
	sortOnce sync.Once
	sort     *SortExpression
	sortErr  error

	relation *RelationDefinition
}

// NewRealEndPoint returns the end point backed by the object-ID property p,
// which must be owned by a class.
func NewRealEndPoint(p *PropertyDefinition, r *load.Relation) *RelationEndPointDefinition {
	owner, ok := p.owner.(*ClassDefinition)
	if !ok {
		invariantf("real end point %s must be owned by a class", p.name)
	}
	if !p.objectID {
		invariantf("real end point %s must be backed by an object-ID property", p.name)
	}
	return &RelationEndPointDefinition{
		kind:         RealEndPoint,
		owner:        owner,
		name:         p.name,
		shortName:    p.shortName,
		declaring:    p.declaring,
		cardinality:  load.One,
		mandatory:    r.Mandatory,
		relatedType:  r.Target.Definition(),
		oppositeName: r.Opposite,
		property:     p,
		sortText:     r.SortExpression,
	}
}

// NewVirtualEndPoint returns a virtual end point of owner for the relation
// member declared by declaring. Many-valued members produce collection end
// points.
func NewVirtualEndPoint(owner *ClassDefinition, declaring load.TypeID, name string, r *load.Relation) *RelationEndPointDefinition {
	kind := VirtualObjectEndPoint
	if r.Cardinality == load.Many {
		kind = VirtualCollectionEndPoint
	}
	return &RelationEndPointDefinition{
		kind:         kind,
		owner:        owner,
		name:         Identifier(declaring, name),
		shortName:    name,
		declaring:    declaring,
		cardinality:  r.Cardinality,
		mandatory:    r.Mandatory,
		relatedType:  r.Target.Definition(),
		oppositeName: r.Opposite,
		sortText:     r.SortExpression,
	}
}

// NewAnonymousEndPoint returns the anonymous end point owned by owner for a
// unidirectional relation declared on related.
func NewAnonymousEndPoint(owner *ClassDefinition, related load.TypeID) *RelationEndPointDefinition {
	return &RelationEndPointDefinition{
		kind:        AnonymousEndPoint,
		owner:       owner,
		cardinality: load.Many,
		relatedType: related,
	}
}

// Kind returns the end-point variant.
func (e *RelationEndPointDefinition) Kind() EndPointKind { return e.kind }

// ClassDefinition returns the owning class.
func (e *RelationEndPointDefinition) ClassDefinition() *ClassDefinition { return e.owner }

// PropertyName returns the property identifier, empty for anonymous end
// points.
func (e *RelationEndPointDefinition) PropertyName() string { return e.name }

// ShortName returns the member name, empty for anonymous end points.
func (e *RelationEndPointDefinition) ShortName() string { return e.shortName }

// DeclaringType returns the type declaring the member.
func (e *RelationEndPointDefinition) DeclaringType() load.TypeID { return e.declaring }

// Cardinality returns the cardinality of the end point.
func (e *RelationEndPointDefinition) Cardinality() load.Cardinality { return e.cardinality }

// IsMandatory reports whether the end point must reference an object.
func (e *RelationEndPointDefinition) IsMandatory() bool { return e.mandatory }

// IsVirtual reports whether the end point has no object-ID property.
func (e *RelationEndPointDefinition) IsVirtual() bool { return e.kind != RealEndPoint }

// IsAnonymous reports whether the end point is anonymous.
func (e *RelationEndPointDefinition) IsAnonymous() bool { return e.kind == AnonymousEndPoint }

// RelatedType returns the type on the other side of the relation.
func (e *RelationEndPointDefinition) RelatedType() load.TypeID { return e.relatedType }

// OppositePropertyName returns the short name of the opposite member,
// empty for unidirectional relations.
func (e *RelationEndPointDefinition) OppositePropertyName() string { return e.oppositeName }

// PropertyDefinition returns the object-ID property of a real end point.
func (e *RelationEndPointDefinition) PropertyDefinition() *PropertyDefinition { return e.property }

// SortExpressionText returns the declared sort expression.
func (e *RelationEndPointDefinition) SortExpressionText() string { return e.sortText }

// SortExpression parses the sort expression against the class on the other
// side, once. It returns nil when no expression was declared.
func (e *RelationEndPointDefinition) SortExpression() (*SortExpression, error) {
	if e.sortText == "" {
		return nil, nil
	}
	e.sortOnce.Do(func() {
		opposite := e.RelationDefinition().GetOppositeEndPointDefinition(e)
		e.sort, e.sortErr = ParseSortExpression(opposite.owner, e.sortText)
	})
	return e.sort, e.sortErr
}

// IsLinked reports whether the owning relation has been assigned.
func (e *RelationEndPointDefinition) IsLinked() bool { return e.relation != nil }

// RelationDefinition returns the owning relation.
func (e *RelationEndPointDefinition) RelationDefinition() *RelationDefinition {
	if e.relation == nil {
		invariantf("relation end point %s is not linked to a relation", e)
	}
	return e.relation
}

// SetRelationDefinition links the end point to its relation, once.
func (e *RelationEndPointDefinition) SetRelationDefinition(r *RelationDefinition) {
	if e.owner != nil && e.owner.readOnly {
		invariantf("SetRelationDefinition: type %s is read-only", e.owner.id)
	}
	if e.relation != nil {
		invariantf("relation end point %s is already linked to relation %s", e, e.relation.id)
	}
	if !r.Contains(e) {
		invariantf("relation %s does not contain end point %s", r.id, e)
	}
	e.relation = r
}

// String returns a debug representation of the end point.
func (e *RelationEndPointDefinition) String() string {
	if e.kind == AnonymousEndPoint {
		return fmt.Sprintf("%s.<anonymous>", e.owner)
	}
	return e.name
}

// RelationEndPointDefinitionCollection is an insertion-ordered end-point
// table keyed by property identifier.
type RelationEndPointDefinitionCollection struct {
	owner    TypeDefinition
	items    []*RelationEndPointDefinition
	index    map[string]*RelationEndPointDefinition
	readOnly bool
}

// NewRelationEndPointDefinitionCollection returns an empty table owned by
// owner.
func NewRelationEndPointDefinitionCollection(owner TypeDefinition) *RelationEndPointDefinitionCollection {
	return &RelationEndPointDefinitionCollection{
		owner: owner,
		index: make(map[string]*RelationEndPointDefinition),
	}
}

// Add appends e. Anonymous end points are not part of any table.
func (c *RelationEndPointDefinitionCollection) Add(e *RelationEndPointDefinition) error {
	if c.readOnly {
		invariantf("cannot add end point %s: the end point table is read-only", e)
	}
	if e.kind == AnonymousEndPoint {
		invariantf("anonymous end point %s cannot be added to an end point table", e)
	}
	if c.owner != nil && (e.owner == nil || TypeDefinition(e.owner) != c.owner) {
		invariantf("end point %s is owned by %v and cannot be added to the table of %s", e, e.owner, c.owner.ID())
	}
	if _, ok := c.index[e.name]; ok {
		return NewMappingError(StageBuild, NewFinding(e,
			"relation property %q is declared more than once on class %s", e.name, ownerID(c.owner)))
	}
	c.items = append(c.items, e)
	c.index[e.name] = e
	return nil
}

func (c *RelationEndPointDefinitionCollection) reindex() {
	c.index = make(map[string]*RelationEndPointDefinition, len(c.items))
	for _, e := range c.items {
		c.index[e.name] = e
	}
}

// IsReadOnly reports whether the table is frozen.
func (c *RelationEndPointDefinitionCollection) IsReadOnly() bool { return c.readOnly }

// Len returns the number of end points.
func (c *RelationEndPointDefinitionCollection) Len() int { return len(c.items) }

// All returns the end points in insertion order.
func (c *RelationEndPointDefinitionCollection) All() []*RelationEndPointDefinition {
	return slices.Clone(c.items)
}

// Contains reports whether an end point with the given identifier exists.
func (c *RelationEndPointDefinitionCollection) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Get returns the end point with the given identifier.
func (c *RelationEndPointDefinitionCollection) Get(name string) (*RelationEndPointDefinition, bool) {
	e, ok := c.index[name]
	return e, ok
}

// ByShortName returns the nearest end point with the given short name,
// that is the last one in table order.
func (c *RelationEndPointDefinitionCollection) ByShortName(name string) (*RelationEndPointDefinition, bool) {
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].shortName == name {
			return c.items[i], true
		}
	}
	return nil, false
}
