package graph

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of a sorted property.
type SortOrder uint8

// Sort orders.
const (
	Ascending SortOrder = iota
	Descending
)

// String returns the order keyword.
func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// SortedProperty is one term of a sort expression.
type SortedProperty struct {
	Property *PropertyDefinition
	Order    SortOrder
}

// String returns the term in its textual form.
func (s SortedProperty) String() string {
	return s.Property.ShortName() + " " + s.Order.String()
}

// SortExpression is the ordered list of terms of a collection end point.
type SortExpression struct {
	Properties []SortedProperty
}

// String returns the normalized textual form.
func (e *SortExpression) String() string {
	terms := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		terms[i] = p.String()
	}
	return strings.Join(terms, ", ")
}

// ParseSortExpression parses "Name [asc|desc], ..." against the full
// property table of class. Properties are referenced by short name or by
// identifier and must be persistent.
func ParseSortExpression(class *ClassDefinition, text string) (*SortExpression, error) {
	props := class.PropertyDefinitions()
	expr := &SortExpression{}
	for _, term := range strings.Split(text, ",") {
		fields := strings.Fields(term)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, fmt.Errorf("sort expression %q: invalid term %q", text, strings.TrimSpace(term))
		}
		order := Ascending
		if len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case "asc", "ascending":
			case "desc", "descending":
				order = Descending
			default:
				return nil, fmt.Errorf("sort expression %q: invalid sort order %q", text, fields[1])
			}
		}
		p, err := sortProperty(class, props, fields[0])
		if err != nil {
			return nil, fmt.Errorf("sort expression %q: %w", text, err)
		}
		expr.Properties = append(expr.Properties, SortedProperty{Property: p, Order: order})
	}
	return expr, nil
}

func sortProperty(class *ClassDefinition, props *PropertyDefinitionCollection, name string) (*PropertyDefinition, error) {
	p, ok := props.Get(name)
	if !ok {
		matches := props.ByShortName(name)
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("class %s has no property %q", class.id, name)
		case 1:
			p = matches[0]
		default:
			return nil, fmt.Errorf("property %q of class %s is ambiguous, use its full identifier", name, class.id)
		}
	}
	if !p.IsPersistent() {
		return nil, fmt.Errorf("property %q of class %s is not persistent", name, class.id)
	}
	return p, nil
}
