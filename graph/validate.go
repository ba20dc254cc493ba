package graph

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/load"
)

// Rule sets consumed by the validation pipeline. Each rule reports the
// problems it finds as findings and never stops at the first one.
type (
	// TypeRule validates a type node.
	TypeRule interface {
		ValidateType(t TypeDefinition) []Finding
	}
	// PropertyRule validates a property of a node's own table.
	PropertyRule interface {
		ValidateProperty(p *PropertyDefinition) []Finding
	}
	// RelationRule validates a relation.
	RelationRule interface {
		ValidateRelation(r *RelationDefinition) []Finding
	}
	// SortExpressionRule validates the sort expression of an end point.
	SortExpressionRule interface {
		ValidateSortExpression(e *RelationEndPointDefinition) []Finding
	}
	// PersistenceMappingValidator validates the storage assignments of a
	// hierarchy.
	PersistenceMappingValidator interface {
		Validate(hierarchy []TypeDefinition) []Finding
	}
)

// Function adapters for the rule interfaces.
type (
	TypeRuleFunc           func(TypeDefinition) []Finding
	PropertyRuleFunc       func(*PropertyDefinition) []Finding
	RelationRuleFunc       func(*RelationDefinition) []Finding
	SortExpressionRuleFunc func(*RelationEndPointDefinition) []Finding
)

// ValidateType calls f(t).
func (f TypeRuleFunc) ValidateType(t TypeDefinition) []Finding { return f(t) }

// ValidateProperty calls f(p).
func (f PropertyRuleFunc) ValidateProperty(p *PropertyDefinition) []Finding { return f(p) }

// ValidateRelation calls f(r).
func (f RelationRuleFunc) ValidateRelation(r *RelationDefinition) []Finding { return f(r) }

// ValidateSortExpression calls f(e).
func (f SortExpressionRuleFunc) ValidateSortExpression(e *RelationEndPointDefinition) []Finding {
	return f(e)
}

// ValidatorFactory supplies the pluggable rule sets.
type ValidatorFactory interface {
	TypeRules() []TypeRule
	PropertyRules() []PropertyRule
	RelationRules() []RelationRule
	SortExpressionRules() []SortExpressionRule
}

// PersistenceModelLoader assigns storage entities and storage properties
// to a hierarchy and validates the result.
type PersistenceModelLoader interface {
	// ApplyPersistenceModel assigns a storage entity to every node of the
	// hierarchy below root and a storage property to every persistent
	// property of those nodes. Nodes shared between hierarchies may already
	// carry assignments.
	ApplyPersistenceModel(root TypeDefinition) error
	// CreatePersistenceMappingValidator returns the validator of the
	// hierarchy below root.
	CreatePersistenceMappingValidator(root TypeDefinition) PersistenceMappingValidator
}

// Stage names, as reported by MappingError.Stage.
const (
	StageBuild              = "build"
	StageClassIDs           = "class ids"
	StageTypes              = "types"
	StageProperties         = "properties"
	StageRelations          = "relations"
	StagePersistenceModel   = "persistence model"
	StagePersistenceMapping = "persistence mapping"
	StageFreeze             = "freeze"
	StageSortExpressions    = "sort expressions"
)

// ValidationPipeline runs the ordered validation stages over a built graph
// and freezes it. A stage runs only when the previous one reported nothing.
type ValidationPipeline struct {
	loader  PersistenceModelLoader
	factory ValidatorFactory
	log     *zap.Logger
}

// NewValidationPipeline returns a pipeline using the given persistence
// model loader and rule sets.
func NewValidationPipeline(loader PersistenceModelLoader, factory ValidatorFactory, opts ...Option) *ValidationPipeline {
	return &ValidationPipeline{
		loader:  loader,
		factory: factory,
		log:     newOptions(opts).log,
	}
}

type stage struct {
	name string
	run  func(*Graph) ([]Finding, error)
}

// Run validates and freezes g. The first stage reporting findings stops the
// pipeline with a *MappingError. Broken invariants panic with an
// *InvariantError.
func (p *ValidationPipeline) Run(g *Graph) error {
	stages := []stage{
		{StageClassIDs, p.checkClassIDs},
		{StageTypes, p.validateTypes},
		{StageProperties, p.validateProperties},
		{StageRelations, p.validateRelations},
		{StagePersistenceModel, p.applyPersistenceModel},
		{StagePersistenceMapping, p.validatePersistenceMapping},
		{StageFreeze, p.freeze},
		{StageSortExpressions, p.validateSortExpressions},
	}
	for _, s := range stages {
		start := time.Now()
		findings, err := s.run(g)
		p.log.Debug("validation stage finished",
			zap.String("stage", s.name),
			zap.Int("findings", len(findings)),
			zap.Duration("duration", time.Since(start)))
		if err != nil {
			return fmt.Errorf("relmap: %s: %w", s.name, err)
		}
		if len(findings) > 0 {
			return NewMappingError(s.name, findings...)
		}
	}
	return nil
}

// Construct builds descriptors into a graph, validates and freezes it.
func Construct(types []*load.Type, loader PersistenceModelLoader, factory ValidatorFactory, opts ...Option) (*Graph, error) {
	g, err := Build(types, opts...)
	if err != nil {
		return nil, err
	}
	if err := NewValidationPipeline(loader, factory, opts...).Run(g); err != nil {
		return nil, err
	}
	return g, nil
}

// checkClassIDs reports every class ID used by more than one class.
// Interfaces carry no class ID and do not participate.
func (p *ValidationPipeline) checkClassIDs(g *Graph) ([]Finding, error) {
	groups := make(map[string][]*ClassDefinition)
	var ids []string
	for _, c := range g.classes {
		if _, ok := groups[c.classID]; !ok {
			ids = append(ids, c.classID)
		}
		groups[c.classID] = append(groups[c.classID], c)
	}
	sort.Strings(ids)
	var findings []Finding
	for _, id := range ids {
		cs := groups[id]
		for _, dup := range cs[1:] {
			findings = append(findings, NewFinding(dup,
				"class ID %q is used by class %s of package %s and by class %s of package %s",
				id, cs[0].id.Name, cs[0].id.PkgPath, dup.id.Name, dup.id.PkgPath))
		}
	}
	return findings, nil
}

func (p *ValidationPipeline) validateTypes(g *Graph) ([]Finding, error) {
	var findings []Finding
	for _, rule := range p.factory.TypeRules() {
		for _, t := range g.types {
			findings = append(findings, rule.ValidateType(t)...)
		}
	}
	return findings, nil
}

func (p *ValidationPipeline) validateProperties(g *Graph) ([]Finding, error) {
	var findings []Finding
	for _, rule := range p.factory.PropertyRules() {
		for _, t := range g.types {
			for _, prop := range t.MyPropertyDefinitions().items {
				findings = append(findings, rule.ValidateProperty(prop)...)
			}
		}
	}
	return findings, nil
}

func (p *ValidationPipeline) validateRelations(g *Graph) ([]Finding, error) {
	var findings []Finding
	for _, rule := range p.factory.RelationRules() {
		for _, r := range g.relations {
			findings = append(findings, rule.ValidateRelation(r)...)
		}
	}
	return findings, nil
}

// applyPersistenceModel asks the loader to assign storage handles to each
// hierarchy and verifies the loader did so.
func (p *ValidationPipeline) applyPersistenceModel(g *Graph) ([]Finding, error) {
	for _, root := range g.HierarchyRoots() {
		if err := p.loader.ApplyPersistenceModel(root); err != nil {
			return nil, err
		}
		for _, t := range Hierarchy(root) {
			if !t.HasStorageEntity() {
				invariantf("the persistence model loader assigned no storage entity to type %s", t.ID())
			}
			for _, prop := range t.MyPropertyDefinitions().items {
				if prop.IsPersistent() && !prop.HasStorageProperty() {
					invariantf("the persistence model loader assigned no storage property to persistent property %s", prop.name)
				}
			}
		}
	}
	return nil, nil
}

func (p *ValidationPipeline) validatePersistenceMapping(g *Graph) ([]Finding, error) {
	var findings []Finding
	for _, root := range g.HierarchyRoots() {
		v := p.loader.CreatePersistenceMappingValidator(root)
		if v == nil {
			continue
		}
		findings = append(findings, v.Validate(Hierarchy(root))...)
	}
	return findings, nil
}

func (p *ValidationPipeline) freeze(g *Graph) ([]Finding, error) {
	g.Freeze()
	return nil, nil
}

func (p *ValidationPipeline) validateSortExpressions(g *Graph) ([]Finding, error) {
	var findings []Finding
	for _, rule := range p.factory.SortExpressionRules() {
		for _, c := range g.classes {
			for _, e := range c.MyRelationEndPointDefinitions().items {
				findings = append(findings, rule.ValidateSortExpression(e)...)
			}
		}
	}
	return findings, nil
}
