package rdbms

import (
	"regexp"

	"github.com/syssam/relmap/graph"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CreatePersistenceMappingValidator implements graph.PersistenceModelLoader.
func (l *Loader) CreatePersistenceMappingValidator(graph.TypeDefinition) graph.PersistenceMappingValidator {
	return &mappingValidator{loader: l}
}

type mappingValidator struct {
	loader *Loader
}

// Validate checks the names assigned to the hierarchy, reports columns
// claimed by more than one property and foreign keys referencing classes
// that are not stored.
func (v *mappingValidator) Validate(hierarchy []graph.TypeDefinition) []graph.Finding {
	var findings []graph.Finding
	seen := make(map[graph.StorageEntity]bool)
	for _, t := range hierarchy {
		e := t.StorageEntity()
		if !seen[e] {
			seen[e] = true
			findings = append(findings, v.entity(t, e)...)
		}
		if tbl, ok := e.(*Table); ok && !tbl.IsMapped() {
			continue
		}
		for _, p := range t.MyPropertyDefinitions().Persistent() {
			findings = append(findings, v.name(p, "column", p.StorageProperty().StorageName())...)
			if p.IsObjectID() {
				findings = append(findings, v.reference(p)...)
			}
		}
	}
	return findings
}

func (v *mappingValidator) entity(t graph.TypeDefinition, e graph.StorageEntity) []graph.Finding {
	switch e := e.(type) {
	case *Table:
		if !e.IsMapped() {
			return nil
		}
		findings := v.name(t, "table", e.Name)
		if e.shared != nil {
			findings = append(findings, graph.NewFinding(t,
				"table %q of hierarchy %s is already used by hierarchy %s", e.Name, e.Root.ID(), e.shared.Root.ID()))
		}
		for _, c := range e.collisions {
			if c.first == nil {
				findings = append(findings, graph.NewFinding(c.second,
					"column %q of property %s is reserved in table %q", c.column, c.second.Name(), e.Name))
				continue
			}
			findings = append(findings, graph.NewFinding(c.second,
				"properties %s and %s are both mapped to column %q of table %q",
				c.first.Name(), c.second.Name(), c.column, e.Name))
		}
		return findings
	case *View:
		return v.name(t, "view", e.Name)
	}
	return nil
}

func (v *mappingValidator) name(element any, kind, name string) []graph.Finding {
	if !identifier.MatchString(name) {
		return []graph.Finding{graph.NewFinding(element, "%s name %q is not a valid identifier", kind, name)}
	}
	if limit := v.loader.dialect.MaxIdentifierLength(); limit > 0 && len(name) > limit {
		return []graph.Finding{graph.NewFinding(element,
			"%s name %q is longer than %d characters, the limit of %s", kind, name, limit, v.loader.dialect)}
	}
	return nil
}

func (v *mappingValidator) reference(p *graph.PropertyDefinition) []graph.Finding {
	target := v.loader.byType[p.RelatedType()]
	if target != nil && target.IsMapped() {
		return nil
	}
	return []graph.Finding{graph.NewFinding(p,
		"relation property %s references class %s, which is not stored in a table", p.Name(), p.RelatedType())}
}
