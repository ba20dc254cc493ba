// Package graphql exports a frozen mapping graph as a GraphQL schema (SDL).
//
// Classes become object types and mapped interfaces become interface types.
// Abstract classes are exported as interfaces implemented by their concrete
// descendants. Persistent properties are exported as scalar fields, object-ID
// properties and virtual relation end points as fields of the related type.
//
// # Usage
//
//	g, err := graphql.New(cfg.Graph(), graphql.WithQuery())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := g.WriteFile("./schema/relmap.graphql"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Scalars
//
// Value types without a built-in GraphQL scalar are declared as custom
// scalars, only when used:
//
//	int64   -> Int64
//	decimal -> Decimal
//	time    -> Time
//	uuid    -> UUID
//	json    -> JSON
//	bytes   -> Bytes
//
// Enumerations are exported as String since the mapping does not describe
// their members.
package graphql
