package graphql

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-openapi/inflect"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// ErrNotFrozen is returned for graphs that were not validated and frozen.
var ErrNotFrozen = errors.New("graphql: mapping graph is not frozen")

// IDField is the name of the identifier field of every exported type.
const IDField = "id"

var builtinScalars = []string{"ID", "String", "Int", "Float", "Boolean"}

// scalars maps value types to GraphQL scalars. Types missing from the map
// are exported as String.
var scalars = map[load.ValueType]string{
	load.TypeString:  "String",
	load.TypeEnum:    "String",
	load.TypeBool:    "Boolean",
	load.TypeInt32:   "Int",
	load.TypeFloat64: "Float",
	load.TypeInt64:   "Int64",
	load.TypeDecimal: "Decimal",
	load.TypeTime:    "Time",
	load.TypeUUID:    "UUID",
	load.TypeJSON:    "JSON",
	load.TypeBytes:   "Bytes",
}

// Generator renders the GraphQL schema of a frozen graph.
type Generator struct {
	graph       *graph.Graph
	query       bool
	description bool
	schemaPath  string
}

// Option configures a Generator.
type Option func(*Generator) error

// WithQuery adds a Query type with a lookup and a list field per concrete
// class.
func WithQuery() Option {
	return func(g *Generator) error {
		g.query = true
		return nil
	}
}

// WithDescriptions enables or disables type descriptions naming the mapped
// Go type and its storage entity. Enabled by default.
func WithDescriptions(enable bool) Option {
	return func(g *Generator) error {
		g.description = enable
		return nil
	}
}

// WithSchemaPath sets the default output file of Generator.WriteFile.
func WithSchemaPath(path string) Option {
	return func(g *Generator) error {
		if path == "" {
			return errors.New("graphql: schema path cannot be empty")
		}
		g.schemaPath = path
		return nil
	}
}

// New returns a generator for g.
func New(g *graph.Graph, opts ...Option) (*Generator, error) {
	gen := &Generator{graph: g, description: true}
	for _, opt := range opts {
		if err := opt(gen); err != nil {
			return nil, err
		}
	}
	return gen, nil
}

// Document builds the schema document.
func (g *Generator) Document() (*ast.SchemaDocument, error) {
	if !g.graph.IsReadOnly() {
		return nil, ErrNotFrozen
	}
	b := &builder{Generator: g, names: newTypeNames(), used: make(map[string]bool)}
	for _, i := range g.graph.InterfaceDefinitions() {
		b.names.assign(i.ID())
	}
	for _, c := range g.graph.ClassDefinitions() {
		b.names.assign(c.ID())
	}
	doc := &ast.SchemaDocument{}
	for _, i := range g.graph.InterfaceDefinitions() {
		doc.Definitions = append(doc.Definitions, b.iface(i))
	}
	for _, c := range g.graph.ClassDefinitions() {
		doc.Definitions = append(doc.Definitions, b.class(c))
	}
	if g.query {
		if q := b.queryType(); q != nil {
			doc.Definitions = append(doc.Definitions, q)
		}
	}
	// Custom scalars go first, in a stable order.
	var custom ast.DefinitionList
	for _, s := range []string{"Int64", "Decimal", "Time", "UUID", "JSON", "Bytes"} {
		if b.used[s] {
			custom = append(custom, &ast.Definition{Kind: ast.Scalar, Name: s})
		}
	}
	doc.Definitions = append(custom, doc.Definitions...)
	return doc, nil
}

// Write renders the schema to w.
func (g *Generator) Write(w io.Writer) error {
	doc, err := g.Document()
	if err != nil {
		return err
	}
	formatter.NewFormatter(w).FormatSchemaDocument(doc)
	return nil
}

// String renders the schema.
func (g *Generator) String() (string, error) {
	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile renders the schema to path, or to the path set by WithSchemaPath
// when path is empty.
func (g *Generator) WriteFile(path string) error {
	if path == "" {
		path = g.schemaPath
	}
	if path == "" {
		return errors.New("graphql: no schema path")
	}
	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("graphql: create schema directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("graphql: write schema: %w", err)
	}
	return nil
}

type builder struct {
	*Generator
	names *typeNames
	used  map[string]bool
}

func (b *builder) iface(i *graph.InterfaceDefinition) *ast.Definition {
	name, _ := b.names.of(i.ID())
	def := &ast.Definition{
		Kind:   ast.Interface,
		Name:   name,
		Fields: ast.FieldList{idField()},
	}
	b.describe(def, "Interface", i)
	for _, e := range extended(i) {
		def.Interfaces = append(def.Interfaces, b.mustName(e.ID()))
	}
	for _, p := range i.PropertyDefinitions().All() {
		def.Fields = b.addField(def.Fields, b.propertyField(p))
	}
	return def
}

func (b *builder) class(c *graph.ClassDefinition) *ast.Definition {
	name, _ := b.names.of(c.ID())
	def := &ast.Definition{
		Kind:   ast.Object,
		Name:   name,
		Fields: ast.FieldList{idField()},
	}
	kind := "Class"
	if c.IsAbstract() {
		def.Kind, kind = ast.Interface, "Abstract class"
	}
	b.describe(def, kind, c)
	for _, a := range slices.Backward(c.Ancestors()) {
		if a.IsAbstract() {
			def.Interfaces = append(def.Interfaces, b.mustName(a.ID()))
		}
	}
	for _, i := range c.AllInterfaces() {
		def.Interfaces = append(def.Interfaces, b.mustName(i.ID()))
	}
	for _, p := range c.PropertyDefinitions().All() {
		def.Fields = b.addField(def.Fields, b.propertyField(p))
	}
	for _, e := range c.RelationEndPointDefinitions().All() {
		if !e.IsVirtual() || e.IsAnonymous() {
			continue
		}
		def.Fields = b.addField(def.Fields, b.endPointField(e))
	}
	return def
}

func (b *builder) describe(def *ast.Definition, kind string, t graph.TypeDefinition) {
	if !b.description {
		return
	}
	def.Description = fmt.Sprintf("%s %s.", kind, t.ID())
	if t.HasStorageEntity() {
		def.Description = fmt.Sprintf("%s %s, stored in %s.", kind, t.ID(), t.StorageEntity().StorageName())
	}
}

// addField appends f unless a field with the same name exists. Properties
// hidden by a nearer declaration keep the first field.
func (b *builder) addField(fields ast.FieldList, f *ast.FieldDefinition) ast.FieldList {
	if fields.ForName(f.Name) != nil {
		return fields
	}
	return append(fields, f)
}

func (b *builder) propertyField(p *graph.PropertyDefinition) *ast.FieldDefinition {
	var named string
	if p.IsObjectID() {
		named = b.mustName(p.RelatedType())
	} else {
		named = b.scalar(p.ValueType())
	}
	return &ast.FieldDefinition{
		Name: camel(p.ShortName()),
		Type: &ast.Type{NamedType: named, NonNull: !p.IsNullable()},
	}
}

func (b *builder) endPointField(e *graph.RelationEndPointDefinition) *ast.FieldDefinition {
	named := b.mustName(e.RelatedType())
	t := &ast.Type{NamedType: named, NonNull: e.IsMandatory()}
	if e.Cardinality() == load.Many {
		t = ast.NonNullListType(ast.NonNullNamedType(named, nil), nil)
	}
	return &ast.FieldDefinition{Name: camel(e.ShortName()), Type: t}
}

func (b *builder) queryType() *ast.Definition {
	q := &ast.Definition{Kind: ast.Object, Name: "Query"}
	for _, c := range b.graph.ClassDefinitions() {
		if c.IsAbstract() {
			continue
		}
		name := b.mustName(c.ID())
		q.Fields = b.addField(q.Fields, &ast.FieldDefinition{
			Name: camel(name),
			Arguments: ast.ArgumentDefinitionList{{
				Name: IDField,
				Type: ast.NonNullNamedType("ID", nil),
			}},
			Type: ast.NamedType(name, nil),
		})
		q.Fields = b.addField(q.Fields, &ast.FieldDefinition{
			Name: camel(inflect.Pluralize(name)),
			Type: ast.NonNullListType(ast.NonNullNamedType(name, nil), nil),
		})
	}
	if len(q.Fields) == 0 {
		return nil
	}
	return q
}

func (b *builder) scalar(t load.ValueType) string {
	s, ok := scalars[t]
	if !ok {
		s = "String"
	}
	b.used[s] = true
	return s
}

// mustName returns the type name of id. Related types of a frozen graph
// are always part of it.
func (b *builder) mustName(id load.TypeID) string {
	if name, ok := b.names.of(id); ok {
		return name
	}
	return b.names.assign(id)
}

func idField() *ast.FieldDefinition {
	return &ast.FieldDefinition{Name: IDField, Type: ast.NonNullNamedType("ID", nil)}
}

// extended returns every interface i extends, transitively.
func extended(i *graph.InterfaceDefinition) []*graph.InterfaceDefinition {
	var all []*graph.InterfaceDefinition
	seen := map[*graph.InterfaceDefinition]bool{i: true}
	var visit func(*graph.InterfaceDefinition)
	visit = func(i *graph.InterfaceDefinition) {
		for _, e := range i.ExtendedInterfaces() {
			if !seen[e] {
				seen[e] = true
				all = append(all, e)
				visit(e)
			}
		}
	}
	visit(i)
	return all
}
