package gen

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relmap/graph"
)

// IndexFile is the file holding the class and relation lists.
const IndexFile = "mapping.go"

// File is one generated Go file.
type File struct {
	Name string
	Code *jen.File
}

// Generator renders the identifier constants of a frozen graph.
type Generator struct {
	graph *graph.Graph
	cfg   *Config
}

// New returns a generator for g.
func New(g *graph.Graph, cfg *Config) *Generator {
	return &Generator{graph: g, cfg: cfg}
}

// Files renders the generated files without writing them: one index file,
// one file per class and one per interface. Identifiers are unique across
// the package; clashing names are qualified by their declaring type.
func (g *Generator) Files() ([]*File, error) {
	if !g.graph.IsReadOnly() {
		return nil, ErrNotFrozen
	}
	used := make(names)
	files := []*File{g.index(used)}
	for _, c := range g.graph.ClassDefinitions() {
		files = append(files, g.class(c, used))
	}
	for _, i := range g.graph.InterfaceDefinitions() {
		files = append(files, g.iface(i, used))
	}
	return files, nil
}

// Generate writes the files to the target directory and returns their paths.
func (g *Generator) Generate(ctx context.Context) ([]string, error) {
	files, err := g.Files()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			paths[i] = filepath.Join(g.cfg.Target, f.Name)
			if err := writeFile(f.Code, paths[i]); err != nil {
				return fmt.Errorf("write %s: %w", f.Name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	g.cfg.Logger.Info("mapping identifiers generated",
		zap.String("target", g.cfg.Target),
		zap.Int("files", len(paths)))
	return paths, nil
}

// writeFile writes jennifer file directly to disk (no buffering).
func writeFile(f *jen.File, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.Render(out)
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

func (g *Generator) index(used names) *File {
	f := g.newFile()
	ids := make([]jen.Code, 0, len(g.graph.ClassDefinitions()))
	for _, c := range g.graph.ClassDefinitions() {
		ids = append(ids, jen.Lit(c.ClassID()))
	}
	f.Comment("ClassIDs lists the class IDs of all mapped classes.")
	f.Var().Id(used.take("ClassIDs")).Op("=").Index().String().Values(ids...)

	var defs []jen.Code
	for _, r := range g.graph.RelationDefinitions() {
		e := namingEnd(r)
		id := used.take("Relation" + pascal(e.ClassDefinition().Name()) + pascal(e.ShortName()))
		defs = append(defs,
			jen.Comment(fmt.Sprintf("%s identifies the %s relation %s.", id, r.RelationKind(), r)),
			jen.Id(id).Op("=").Lit(r.ID()))
	}
	if len(defs) > 0 {
		f.Comment("Relation IDs.")
		f.Const().Defs(defs...)
	}
	return &File{Name: IndexFile, Code: f}
}

// namingEnd returns the end point a relation constant is named after: the
// real end, or the first end that is not anonymous.
func namingEnd(r *graph.RelationDefinition) *graph.RelationEndPointDefinition {
	ends := r.EndPointDefinitions()
	for _, e := range ends {
		if e.Kind() == graph.RealEndPoint {
			return e
		}
	}
	if ends[0].IsAnonymous() {
		return ends[1]
	}
	return ends[0]
}

func (g *Generator) class(c *graph.ClassDefinition, used names) *File {
	prefix := used.take(pascal(c.Name()), pascal(path.Base(c.ID().PkgPath))+pascal(c.Name()))
	defs := []jen.Code{
		jen.Comment(fmt.Sprintf("%sClassID is the class ID of %s.", prefix, c.ID())),
		jen.Id(used.take(prefix + "ClassID")).Op("=").Lit(c.ClassID()),
	}
	defs = append(defs, g.entity(c, prefix, used)...)
	defs = append(defs, g.properties(c, prefix, used)...)
	for _, e := range c.RelationEndPointDefinitions().All() {
		if !e.IsVirtual() || e.IsAnonymous() {
			continue
		}
		id := used.take(prefix+pascal(e.ShortName()), prefix+pascal(e.DeclaringType().Name)+pascal(e.ShortName()))
		defs = append(defs,
			jen.Comment(fmt.Sprintf("%s identifies the %s end point %s.", id, e.Kind(), e.PropertyName())),
			jen.Id(id).Op("=").Lit(e.PropertyName()))
	}
	f := g.newFile()
	f.Comment(fmt.Sprintf("Mapping identifiers of class %s.", c.ID()))
	f.Const().Defs(defs...)
	return &File{Name: fileName(c.Name()), Code: f}
}

func (g *Generator) iface(i *graph.InterfaceDefinition, used names) *File {
	prefix := used.take(pascal(i.Name()), pascal(path.Base(i.ID().PkgPath))+pascal(i.Name()))
	defs := g.entity(i, prefix, used)
	defs = append(defs, g.properties(i, prefix, used)...)
	f := g.newFile()
	f.Comment(fmt.Sprintf("Mapping identifiers of interface %s.", i.ID()))
	if len(defs) > 0 {
		f.Const().Defs(defs...)
	}
	return &File{Name: fileName(i.Name()), Code: f}
}

func (g *Generator) entity(t graph.TypeDefinition, prefix string, used names) []jen.Code {
	if !t.HasStorageEntity() {
		return nil
	}
	id := used.take(prefix + "Entity")
	return []jen.Code{
		jen.Comment(fmt.Sprintf("%s is the storage entity of %s.", id, t.ID())),
		jen.Id(id).Op("=").Lit(t.StorageEntity().StorageName()),
	}
}

func (g *Generator) properties(t graph.TypeDefinition, prefix string, used names) []jen.Code {
	var defs []jen.Code
	for _, p := range t.PropertyDefinitions().All() {
		id := used.take(prefix+pascal(p.ShortName()), prefix+pascal(p.DeclaringType().Name)+pascal(p.ShortName()))
		defs = append(defs,
			jen.Comment(fmt.Sprintf("%s identifies property %s.", id, p.Name())),
			jen.Id(id).Op("=").Lit(p.Name()))
		if p.HasStorageProperty() {
			col := used.take(id + "Column")
			defs = append(defs,
				jen.Comment(fmt.Sprintf("%s is the storage name of property %s.", col, p.Name())),
				jen.Id(col).Op("=").Lit(p.StorageProperty().StorageName()))
		}
	}
	return defs
}
