package validation

import (
	"go/token"
	"strings"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// MaxClassIDLength is the maximum length of a class ID.
const MaxClassIDLength = 100

func finding(element any, format string, args ...any) []graph.Finding {
	return []graph.Finding{graph.NewFinding(element, format, args...)}
}

// ClassID checks that a class ID is a dotted identifier of at most
// MaxClassIDLength characters.
func ClassID(t graph.TypeDefinition) []graph.Finding {
	c, ok := t.(*graph.ClassDefinition)
	if !ok {
		return nil
	}
	switch id := c.ClassID(); {
	case id == "":
		return finding(c, "class %s has an empty class ID", c.ID())
	case len(id) > MaxClassIDLength:
		return finding(c, "class ID %q of class %s is longer than %d characters", id, c.ID(), MaxClassIDLength)
	case !validClassID(id):
		return finding(c, "class ID %q of class %s is not a valid identifier", id, c.ID())
	}
	return nil
}

func validClassID(id string) bool {
	for _, part := range strings.Split(id, ".") {
		if !token.IsIdentifier(part) {
			return false
		}
	}
	return true
}

// AbstractLeaf reports abstract classes without derived classes.
func AbstractLeaf(t graph.TypeDefinition) []graph.Finding {
	c, ok := t.(*graph.ClassDefinition)
	if !ok || !c.IsAbstract() || len(c.DerivedClasses()) > 0 {
		return nil
	}
	return finding(c, "abstract class %s has no derived classes and can never be instantiated", c.ID())
}

// ValueType reports properties of unsupported value types.
func ValueType(p *graph.PropertyDefinition) []graph.Finding {
	if p.ValueType().Supported() {
		return nil
	}
	return finding(p, "property %s has unsupported type %q", p.Name(), p.ValueType())
}

// MaxLength checks that a maximum length is positive and set on string and
// bytes properties only.
func MaxLength(p *graph.PropertyDefinition) []graph.Finding {
	n, ok := p.MaxLength()
	switch {
	case !ok:
		return nil
	case !p.ValueType().HasLength():
		return finding(p, "property %s of type %s cannot have a maximum length", p.Name(), p.ValueType())
	case n <= 0:
		return finding(p, "maximum length of property %s must be positive, got %d", p.Name(), n)
	}
	return nil
}

// TransactionObjectID reports relation properties declared as transaction
// properties.
func TransactionObjectID(p *graph.PropertyDefinition) []graph.Finding {
	if !p.IsObjectID() || p.StorageClass() != load.Transaction {
		return nil
	}
	return finding(p, "relation property %s cannot be a transaction property", p.Name())
}

// EndPointCombination checks that exactly one end point of a bidirectional
// relation holds the foreign key and that unidirectional relations are
// declared on single-object properties.
func EndPointCombination(r *graph.RelationDefinition) []graph.Finding {
	ends := r.EndPointDefinitions()
	e1, e2 := ends[0], ends[1]
	switch {
	case e1.IsAnonymous() || e2.IsAnonymous():
		declared := e1
		if e1.IsAnonymous() {
			declared = e2
		}
		if declared.Kind() != graph.RealEndPoint {
			return finding(r, "unidirectional relation property %s of class %s must be a single-object property",
				declared.ShortName(), declared.ClassDefinition().ID())
		}
	case e1.Kind() == graph.RealEndPoint && e2.Kind() == graph.RealEndPoint:
		return finding(r, "relation %s: relation properties %s and %s cannot both hold the foreign key", r.ID(), e1, e2)
	case e1.Kind() == graph.VirtualCollectionEndPoint && e2.Kind() == graph.VirtualCollectionEndPoint:
		return finding(r, "relation %s: many-to-many relations between %s and %s are not supported", r.ID(), e1, e2)
	case e1.IsVirtual() && e2.IsVirtual():
		return finding(r, "relation %s: one of the relation properties %s and %s must hold the foreign key", r.ID(), e1, e2)
	}
	return nil
}

// RelatedType checks that each end point references the class declaring
// the opposite end point or one of its derived classes.
func RelatedType(r *graph.RelationDefinition) []graph.Finding {
	var findings []graph.Finding
	for _, e := range r.EndPointDefinitions() {
		o := r.GetOppositeEndPointDefinition(e)
		if !isSameOrDerived(e.RelatedType(), o.ClassDefinition()) {
			findings = append(findings, graph.NewFinding(e,
				"relation property %s references class %s, but its opposite %s is declared on class %s",
				e, e.RelatedType(), o, o.ClassDefinition().ID()))
		}
	}
	return findings
}

func isSameOrDerived(id load.TypeID, c *graph.ClassDefinition) bool {
	if c.ID() == id {
		return true
	}
	for _, d := range c.AllDerivedClasses() {
		if d.ID() == id {
			return true
		}
	}
	return false
}

// SortPlacement reports sort expressions declared on end points that are
// not collections.
func SortPlacement(e *graph.RelationEndPointDefinition) []graph.Finding {
	if e.SortExpressionText() == "" || e.Kind() == graph.VirtualCollectionEndPoint {
		return nil
	}
	return finding(e, "sort expression of relation property %s of class %s is only supported on collection properties",
		e.ShortName(), e.ClassDefinition().ID())
}

// SortExpression parses the sort expression of collection end points.
func SortExpression(e *graph.RelationEndPointDefinition) []graph.Finding {
	if e.Kind() != graph.VirtualCollectionEndPoint {
		return nil
	}
	if _, err := e.SortExpression(); err != nil {
		return finding(e, "relation property %s of class %s: %v", e.ShortName(), e.ClassDefinition().ID(), err)
	}
	return nil
}
