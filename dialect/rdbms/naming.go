package rdbms

import (
	"github.com/go-openapi/inflect"

	"github.com/syssam/relmap/graph"
)

// Unmapped is the table hint of hierarchies that are not stored.
const Unmapped = "-"

// Reserved columns of every hierarchy table.
const (
	IDColumn      = "id"
	ClassIDColumn = "class_id"
)

// Naming derives table, view and column names.
type Naming struct {
	// Prefix is prepended to derived table and view names.
	Prefix string
	// Pluralize derives plural table names.
	Pluralize bool
}

// TableName returns the table of the hierarchy rooted at c. An explicit
// table hint is used as is.
func (n Naming) TableName(c *graph.ClassDefinition) string {
	if t := c.Table(); t != "" {
		return t
	}
	name := inflect.Underscore(c.Name())
	if n.Pluralize {
		name = inflect.Pluralize(name)
	}
	return n.Prefix + name
}

// ViewName returns the union view of interface i.
func (n Naming) ViewName(i *graph.InterfaceDefinition) string {
	if t := i.Table(); t != "" {
		return t
	}
	return n.Prefix + inflect.Underscore(i.Name()) + "_view"
}

// ColumnName returns the column of property p. Object-ID properties get an
// "_id" suffix.
func (n Naming) ColumnName(p *graph.PropertyDefinition) string {
	if h := p.StorageNameHint(); h != "" {
		return h
	}
	name := inflect.Underscore(p.ShortName())
	if p.IsObjectID() {
		name += "_id"
	}
	return name
}
