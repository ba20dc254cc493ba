// Package validation provides the built-in rule sets run by the graph
// validation pipeline.
//
//	g, err := graph.Construct(types, loader, validation.NewFactory())
//
// Custom rules are appended to the built-in ones with options:
//
//	f := validation.NewFactory(
//		validation.WithTypeRules(graph.TypeRuleFunc(noPluralClassIDs)),
//	)
package validation

import (
	"github.com/syssam/relmap/graph"
)

// Factory is the default graph.ValidatorFactory.
type Factory struct {
	types     []graph.TypeRule
	props     []graph.PropertyRule
	relations []graph.RelationRule
	sorts     []graph.SortExpressionRule
}

// Option configures a Factory.
type Option func(*Factory)

// WithTypeRules appends type rules.
func WithTypeRules(rules ...graph.TypeRule) Option {
	return func(f *Factory) { f.types = append(f.types, rules...) }
}

// WithPropertyRules appends property rules.
func WithPropertyRules(rules ...graph.PropertyRule) Option {
	return func(f *Factory) { f.props = append(f.props, rules...) }
}

// WithRelationRules appends relation rules.
func WithRelationRules(rules ...graph.RelationRule) Option {
	return func(f *Factory) { f.relations = append(f.relations, rules...) }
}

// WithSortExpressionRules appends sort-expression rules.
func WithSortExpressionRules(rules ...graph.SortExpressionRule) Option {
	return func(f *Factory) { f.sorts = append(f.sorts, rules...) }
}

// WithoutDefaults drops the built-in rules. Options applied after it may
// add rules again.
func WithoutDefaults() Option {
	return func(f *Factory) {
		f.types, f.props, f.relations, f.sorts = nil, nil, nil, nil
	}
}

// NewFactory returns a factory with the built-in rules followed by the
// rules added with options.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		types: []graph.TypeRule{
			graph.TypeRuleFunc(ClassID),
			graph.TypeRuleFunc(AbstractLeaf),
		},
		props: []graph.PropertyRule{
			graph.PropertyRuleFunc(ValueType),
			graph.PropertyRuleFunc(MaxLength),
			graph.PropertyRuleFunc(TransactionObjectID),
		},
		relations: []graph.RelationRule{
			graph.RelationRuleFunc(EndPointCombination),
			graph.RelationRuleFunc(RelatedType),
		},
		sorts: []graph.SortExpressionRule{
			graph.SortExpressionRuleFunc(SortPlacement),
			graph.SortExpressionRuleFunc(SortExpression),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// TypeRules implements graph.ValidatorFactory.
func (f *Factory) TypeRules() []graph.TypeRule { return f.types }

// PropertyRules implements graph.ValidatorFactory.
func (f *Factory) PropertyRules() []graph.PropertyRule { return f.props }

// RelationRules implements graph.ValidatorFactory.
func (f *Factory) RelationRules() []graph.RelationRule { return f.relations }

// SortExpressionRules implements graph.ValidatorFactory.
func (f *Factory) SortExpressionRules() []graph.SortExpressionRule { return f.sorts }

var _ graph.ValidatorFactory = (*Factory)(nil)
