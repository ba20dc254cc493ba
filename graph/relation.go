package graph

import (
	"fmt"

	"github.com/syssam/relmap/compiler/load"
)

// RelationKind is the kind of a relation, derived from its end points.
type RelationKind uint8

// Relation kinds.
const (
	OneToOne RelationKind = iota
	OneToMany
	Unidirectional
)

// String returns the kind name.
func (k RelationKind) String() string {
	switch k {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case Unidirectional:
		return "unidirectional"
	default:
		return "unknown"
	}
}

// RelationDefinition couples exactly two end points.
type RelationDefinition struct {
	id   string
	ends [2]*RelationEndPointDefinition
}

// NewRelationDefinition returns a relation over two end points. The end
// points are linked separately with SetRelationDefinition.
func NewRelationDefinition(id string, e1, e2 *RelationEndPointDefinition) *RelationDefinition {
	if e1 == nil || e2 == nil || e1 == e2 {
		invariantf("relation %s needs two distinct end points", id)
	}
	return &RelationDefinition{id: id, ends: [2]*RelationEndPointDefinition{e1, e2}}
}

// RelationID returns the ID of the relation between the two end points.
// The real end point names the relation. Without exactly one real end
// point the lexicographically smaller name is used. Anonymous end points
// never name a relation.
func RelationID(e1, e2 *RelationEndPointDefinition) string {
	switch {
	case e2 == nil || e2.IsAnonymous():
		return endPointKey(e1)
	case e1.IsAnonymous():
		return endPointKey(e2)
	case e1.kind == RealEndPoint && e2.kind != RealEndPoint:
		return endPointKey(e1)
	case e2.kind == RealEndPoint && e1.kind != RealEndPoint:
		return endPointKey(e2)
	}
	k1, k2 := endPointKey(e1), endPointKey(e2)
	if k2 < k1 {
		return k2
	}
	return k1
}

func endPointKey(e *RelationEndPointDefinition) string {
	return e.owner.classID + ":" + e.name
}

// ID returns the relation ID.
func (r *RelationDefinition) ID() string { return r.id }

// EndPointDefinitions returns both end points.
func (r *RelationDefinition) EndPointDefinitions() [2]*RelationEndPointDefinition { return r.ends }

// RelationKind derives the kind from the end points.
func (r *RelationDefinition) RelationKind() RelationKind {
	switch {
	case r.ends[0].IsAnonymous() || r.ends[1].IsAnonymous():
		return Unidirectional
	case r.ends[0].cardinality == load.Many || r.ends[1].cardinality == load.Many:
		return OneToMany
	default:
		return OneToOne
	}
}

// Contains reports whether e is one of the end points.
func (r *RelationDefinition) Contains(e *RelationEndPointDefinition) bool {
	return r.ends[0] == e || r.ends[1] == e
}

// GetOppositeEndPointDefinition returns the end point on the other side of
// e. Passing a foreign end point is an invariant violation.
func (r *RelationDefinition) GetOppositeEndPointDefinition(e *RelationEndPointDefinition) *RelationEndPointDefinition {
	switch e {
	case r.ends[0]:
		return r.ends[1]
	case r.ends[1]:
		return r.ends[0]
	}
	invariantf("end point %s is not part of relation %s", e, r.id)
	return nil
}

// GetOppositeClassDefinition returns the class on the other side of e.
func (r *RelationDefinition) GetOppositeClassDefinition(e *RelationEndPointDefinition) *ClassDefinition {
	return r.GetOppositeEndPointDefinition(e).owner
}

// GetEndPointDefinition returns the non-anonymous end point of the given
// class and property identifier.
func (r *RelationDefinition) GetEndPointDefinition(classID, property string) (*RelationEndPointDefinition, bool) {
	for _, e := range r.ends {
		if !e.IsAnonymous() && e.owner.classID == classID && e.name == property {
			return e, true
		}
	}
	return nil, false
}

// IsEndPoint reports whether the class and property identifier name one
// of the end points.
func (r *RelationDefinition) IsEndPoint(classID, property string) bool {
	_, ok := r.GetEndPointDefinition(classID, property)
	return ok
}

// String returns a debug representation of the relation.
func (r *RelationDefinition) String() string {
	return fmt.Sprintf("%s (%s: %s <-> %s)", r.id, r.RelationKind(), r.ends[0], r.ends[1])
}
