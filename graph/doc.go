// Package graph provides the mapping metadata graph of relmap.
//
// The graph describes how reflected application types compose inheritance
// hierarchies, which properties each type owns and how relations between
// types are wired. It is built once from the descriptors of a load.Source,
// validated, frozen and then shared read-only.
//
// # Type Nodes
//
// TypeDefinition is a closed union of two node variants:
//
//   - *ClassDefinition: class ID, abstract flag, base class, implemented
//     interfaces, persistent mixins and derived classes.
//   - *InterfaceDefinition: extended interfaces, implementing classes and
//     extending interfaces.
//
// Traversals switch over the variant:
//
//	switch t := t.(type) {
//	case *graph.ClassDefinition:
//	    ...
//	case *graph.InterfaceDefinition:
//	    ...
//	}
//
// Every node owns a property table and a relation end-point table. Both are
// assigned exactly once while the node is writable. Own tables hold what the
// node declares; full tables add what its ancestors declare.
//
// # Properties
//
// A property is named by its identifier, "declaring-type.short-name":
//
//	github.com/acme/shop.Order.Number
//
// The declaring type is the node itself or one of its persistent mixins.
// A class must not redeclare an identifier present in a base class.
//
// # Relations
//
// Relation end points come in four variants:
//
//   - RealEndPoint: backed by an object-ID property holding the foreign key.
//   - VirtualObjectEndPoint: single-object side of a one-to-one relation.
//   - VirtualCollectionEndPoint: collection side of a one-to-many relation,
//     optionally ordered by a sort expression.
//   - AnonymousEndPoint: the missing side of a unidirectional relation.
//
// A RelationDefinition couples two end points. End points are created
// unlinked and linked once with SetRelationDefinition after the relation
// exists. The relation kind is derived from the ends:
//
//	Unidirectional  either end is anonymous
//	OneToMany       either end has cardinality Many
//	OneToOne        otherwise
//
// # Construction
//
// Build creates the nodes depth first over inheritance edges, then builds
// tables (ancestors first) and finally links derived classes, implementing
// classes and relations. ValidationPipeline then runs the ordered stages:
//
//  1. duplicate class IDs
//  2. type rules
//  3. property rules
//  4. relation rules
//  5. persistence model application and verification
//  6. persistence-mapping rules
//  7. freeze
//  8. sort-expression rules
//
// A stage with findings stops the pipeline with a *MappingError. Broken
// invariants, such as reading an unset table or setting one twice, panic
// with an *InvariantError.
//
// # Accessors
//
// Every class has a PropertyAccessorDataCache resolving identifiers, member
// pairs and field selectors to accessor data:
//
//	cache := order.PropertyAccessorDataCache()
//	d, err := graph.AccessorOf(cache, func(o *shop.Order) any { return &o.Customer })
//
// Interface members are resolved against the class and its persistent
// mixins; several distinct implementations yield an *AmbiguityError.
package graph
