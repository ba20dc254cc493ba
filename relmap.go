// Package relmap builds and publishes the validated mapping graph of an
// application's persistent types.
//
// A Configuration loads type descriptors from a load.Source, builds the
// graph, runs the validation pipeline and freezes the result on first use:
//
//	cfg := relmap.New(load.NewReflectSource().Class(Order{}, Customer{}))
//	order, err := cfg.GetClassDefinition("Order")
//	if err != nil {
//		return err
//	}
//	for _, p := range order.PropertyDefinitions().All() {
//		fmt.Println(p.Name(), p.StorageProperty().StorageName())
//	}
//
// The process-wide configuration is available through Current.
package relmap

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/dialect/rdbms"
	"github.com/syssam/relmap/graph"
	"github.com/syssam/relmap/validation"
)

// Configuration owns one lazily constructed mapping graph. It is safe for
// concurrent use. The graph is built exactly once, by the first caller of
// any lookup; concurrent callers block until it is ready and all of them
// observe the same graph or the same error.
type Configuration struct {
	source  load.Source
	loader  graph.PersistenceModelLoader
	factory graph.ValidatorFactory
	log     *zap.Logger
	ctx     context.Context

	graph func() (*graph.Graph, error)
}

// Option configures a Configuration.
type Option func(*Configuration)

// WithLogger sets the logger used for construction.
func WithLogger(l *zap.Logger) Option {
	return func(c *Configuration) { c.log = l }
}

// WithContext sets the context passed to the reflection source.
func WithContext(ctx context.Context) Option {
	return func(c *Configuration) { c.ctx = ctx }
}

// WithPersistenceModelLoader sets the persistence model loader. The default
// maps hierarchies to PostgreSQL tables.
func WithPersistenceModelLoader(l graph.PersistenceModelLoader) Option {
	return func(c *Configuration) { c.loader = l }
}

// WithValidatorFactory sets the rule sets of the validation pipeline. The
// default is validation.NewFactory().
func WithValidatorFactory(f graph.ValidatorFactory) Option {
	return func(c *Configuration) { c.factory = f }
}

// New returns a configuration of the types supplied by source. Nothing is
// loaded until the first lookup.
func New(source load.Source, opts ...Option) *Configuration {
	c := &Configuration{
		source: source,
		log:    zap.NewNop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader == nil {
		c.loader = rdbms.NewLoader(rdbms.Postgres, rdbms.WithLogger(c.log))
	}
	if c.factory == nil {
		c.factory = validation.NewFactory()
	}
	c.graph = sync.OnceValues(c.build)
	return c
}

func (c *Configuration) build() (*graph.Graph, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	start := time.Now()
	types, err := c.source.Load(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("relmap: load types: %w", err)
	}
	g, err := graph.Construct(types, c.loader, c.factory, graph.WithLogger(c.log))
	if err != nil {
		c.log.Error("mapping configuration is invalid", zap.Error(err))
		return nil, err
	}
	c.log.Info("mapping configuration built",
		zap.Int("types", len(g.TypeDefinitions())),
		zap.Int("classes", len(g.ClassDefinitions())),
		zap.Int("relations", len(g.RelationDefinitions())),
		zap.Duration("duration", time.Since(start)))
	return g, nil
}

// Graph returns the frozen mapping graph, building it on first use.
// A panic raised by a broken invariant during construction is raised again
// on every call.
func (c *Configuration) Graph() (*graph.Graph, error) {
	return c.graph()
}

// Validate builds the graph and returns the construction error, if any.
func (c *Configuration) Validate() error {
	_, err := c.graph()
	return err
}

// PersistenceModelLoader returns the loader that assigned the storage
// entities of the graph.
func (c *Configuration) PersistenceModelLoader() graph.PersistenceModelLoader {
	return c.loader
}

// TypeDefinitions returns all type nodes of the mapping.
func (c *Configuration) TypeDefinitions() ([]graph.TypeDefinition, error) {
	g, err := c.graph()
	if err != nil {
		return nil, err
	}
	return g.TypeDefinitions(), nil
}

// ContainsTypeDefinition reports whether the runtime type t is mapped.
func (c *Configuration) ContainsTypeDefinition(t reflect.Type) (bool, error) {
	g, err := c.graph()
	if err != nil {
		return false, err
	}
	_, ok := g.TypeDefinition(load.TypeIDOf(t))
	return ok, nil
}

// GetTypeDefinition returns the type node of the runtime type t or a
// *TypeNotFoundError.
func (c *Configuration) GetTypeDefinition(t reflect.Type) (graph.TypeDefinition, error) {
	return c.GetTypeDefinitionByID(load.TypeIDOf(t))
}

// GetTypeDefinitionFunc is like GetTypeDefinition but returns the error
// created by notFound when t is not mapped.
func (c *Configuration) GetTypeDefinitionFunc(t reflect.Type, notFound func(load.TypeID) error) (graph.TypeDefinition, error) {
	return c.GetTypeDefinitionByIDFunc(load.TypeIDOf(t), notFound)
}

// GetTypeDefinitionByID returns the type node with the given identity or a
// *TypeNotFoundError.
func (c *Configuration) GetTypeDefinitionByID(id load.TypeID) (graph.TypeDefinition, error) {
	return c.GetTypeDefinitionByIDFunc(id, func(id load.TypeID) error {
		return NewTypeNotFoundError(id)
	})
}

// GetTypeDefinitionByIDFunc is like GetTypeDefinitionByID but returns the
// error created by notFound when id is not mapped.
func (c *Configuration) GetTypeDefinitionByIDFunc(id load.TypeID, notFound func(load.TypeID) error) (graph.TypeDefinition, error) {
	g, err := c.graph()
	if err != nil {
		return nil, err
	}
	if t, ok := g.TypeDefinition(id.Definition()); ok {
		return t, nil
	}
	return nil, notFound(id)
}

// TypeDefinitionOf returns the type node of T.
//
//	order, err := relmap.TypeDefinitionOf[Order](cfg)
func TypeDefinitionOf[T any](c *Configuration) (graph.TypeDefinition, error) {
	return c.GetTypeDefinition(reflect.TypeFor[T]())
}

// ClassDefinitions returns all class nodes of the mapping.
func (c *Configuration) ClassDefinitions() ([]*graph.ClassDefinition, error) {
	g, err := c.graph()
	if err != nil {
		return nil, err
	}
	return g.ClassDefinitions(), nil
}

// ContainsClassDefinition reports whether a class has the given class ID.
func (c *Configuration) ContainsClassDefinition(classID string) (bool, error) {
	g, err := c.graph()
	if err != nil {
		return false, err
	}
	_, ok := g.ClassDefinition(classID)
	return ok, nil
}

// GetClassDefinition returns the class with the given class ID or a
// *ClassNotFoundError.
func (c *Configuration) GetClassDefinition(classID string) (*graph.ClassDefinition, error) {
	return c.GetClassDefinitionFunc(classID, func(classID string) error {
		return NewClassNotFoundError(classID)
	})
}

// GetClassDefinitionFunc is like GetClassDefinition but returns the error
// created by notFound when no class has the class ID.
func (c *Configuration) GetClassDefinitionFunc(classID string, notFound func(string) error) (*graph.ClassDefinition, error) {
	g, err := c.graph()
	if err != nil {
		return nil, err
	}
	if cls, ok := g.ClassDefinition(classID); ok {
		return cls, nil
	}
	return nil, notFound(classID)
}
