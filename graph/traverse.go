package graph

// Direction selects the inheritance edges followed by a traversal.
type Direction uint8

// Traversal directions.
const (
	// Ancestors follows base classes and extended interfaces.
	Ancestors Direction = iota
	// Descendants follows derived classes and extending interfaces.
	Descendants
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Descendants {
		return "descendants"
	}
	return "ancestors"
}

// next returns the neighbors of t in the given direction.
func next(t TypeDefinition, dir Direction) []TypeDefinition {
	var ns []TypeDefinition
	switch t := t.(type) {
	case *ClassDefinition:
		if dir == Ancestors {
			if t.base != nil {
				ns = append(ns, t.base)
			}
			return ns
		}
		for _, d := range t.derived {
			ns = append(ns, d)
		}
	case *InterfaceDefinition:
		list := t.extended
		if dir == Descendants {
			list = t.extending
		}
		for _, i := range list {
			ns = append(ns, i)
		}
	}
	return ns
}

// Walk calls visit for t and every node reachable from it in the given
// direction, depth first. Each node is visited once.
func Walk(t TypeDefinition, dir Direction, visit func(TypeDefinition)) {
	Find(t, dir, func(n TypeDefinition) bool {
		visit(n)
		return false
	})
}

// Find returns the first node, starting with t, for which pred returns
// true.
func Find(t TypeDefinition, dir Direction, pred func(TypeDefinition) bool) (TypeDefinition, bool) {
	seen := make(map[TypeDefinition]bool)
	var find func(TypeDefinition) TypeDefinition
	find = func(n TypeDefinition) TypeDefinition {
		if seen[n] {
			return nil
		}
		seen[n] = true
		if pred(n) {
			return n
		}
		for _, o := range next(n, dir) {
			if m := find(o); m != nil {
				return m
			}
		}
		return nil
	}
	found := find(t)
	return found, found != nil
}

// IsHierarchyRoot reports whether t has no base class and extends no
// interface.
func IsHierarchyRoot(t TypeDefinition) bool {
	return len(next(t, Ancestors)) == 0
}

// HierarchyRoots returns the hierarchy roots among types, in order.
func HierarchyRoots(types []TypeDefinition) []TypeDefinition {
	var roots []TypeDefinition
	for _, t := range types {
		if IsHierarchyRoot(t) {
			roots = append(roots, t)
		}
	}
	return roots
}

// Hierarchy returns root and all of its descendants.
func Hierarchy(root TypeDefinition) []TypeDefinition {
	var all []TypeDefinition
	Walk(root, Descendants, func(t TypeDefinition) { all = append(all, t) })
	return all
}
