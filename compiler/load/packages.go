package load

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"
)

// InterfaceDirective marks an interface declaration as participating in the
// mapping when loaded by a PackagesSource.
//
//	//relmap:interface
//	type Named interface {
//		Name() string
//	}
const InterfaceDirective = "//relmap:interface"

// LoadMode is the package loading mode of PackagesSource.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// PackagesSource loads descriptors by statically analyzing Go packages.
// Structs participate when they carry a tagged blank marker field, and
// interfaces when their declaration carries InterfaceDirective.
type PackagesSource struct {
	Dir      string
	Patterns []string
}

// NewPackagesSource returns a source loading the given package patterns,
// resolved relative to dir.
func NewPackagesSource(dir string, patterns ...string) *PackagesSource {
	return &PackagesSource{Dir: dir, Patterns: patterns}
}

type pkgEntry struct {
	named *types.Named
	kind  Kind
	tag   *typeTag
	pos   string
}

// Load implements Source. Types are returned per package in name order.
func (s *PackagesSource) Load(ctx context.Context) ([]*Type, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     s.Dir,
		Mode:    LoadMode,
	}
	pkgs, err := packages.Load(cfg, s.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load: loading packages: %w", err)
	}
	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("load: package errors: %s", strings.Join(errs, "; "))
	}
	a := &analyzer{known: make(map[TypeID]*pkgEntry)}
	for _, pkg := range pkgs {
		if err := a.collect(pkg); err != nil {
			return nil, fmt.Errorf("load: package %s: %w", pkg.PkgPath, err)
		}
	}
	types := make([]*Type, 0, len(a.order))
	for _, e := range a.order {
		var (
			t   *Type
			err error
		)
		if e.kind == KindInterface {
			t = a.interfaceType(e)
		} else {
			t, err = a.structType(e)
		}
		if err != nil {
			return nil, err
		}
		t.Pos = e.pos
		types = append(types, t)
	}
	return types, nil
}

type analyzer struct {
	known map[TypeID]*pkgEntry
	order []*pkgEntry
}

func (a *analyzer) collect(pkg *packages.Package) error {
	directives := interfaceDirectives(pkg.Syntax)
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		e := &pkgEntry{named: named, pos: pkg.Fset.Position(tn.Pos()).String()}
		switch u := named.Underlying().(type) {
		case *types.Struct:
			tag, err := markerTag(u)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if tag == nil {
				continue
			}
			e.kind, e.tag = tag.Kind, tag
		case *types.Interface:
			if !directives[name] {
				continue
			}
			e.kind = KindInterface
		default:
			continue
		}
		a.known[namedID(named)] = e
		a.order = append(a.order, e)
	}
	return nil
}

// interfaceDirectives returns the names of the interface declarations
// annotated with InterfaceDirective.
func interfaceDirectives(files []*ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if _, ok := ts.Type.(*ast.InterfaceType); !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				if hasDirective(doc) {
					names[ts.Name.Name] = true
				}
			}
		}
	}
	return names
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == InterfaceDirective {
			return true
		}
	}
	return false
}

func markerTag(st *types.Struct) (*typeTag, error) {
	for i := 0; i < st.NumFields(); i++ {
		if st.Field(i).Name() != "_" {
			continue
		}
		if raw, ok := reflect.StructTag(st.Tag(i)).Lookup(TagKey); ok {
			return parseTypeTag(raw)
		}
	}
	return nil, nil
}

// instanceOf returns the named type behind t, dereferencing pointers.
func instanceOf(t types.Type) *types.Named {
	for {
		p, ok := t.(*types.Pointer)
		if !ok {
			break
		}
		t = p.Elem()
	}
	n, _ := types.Unalias(t).(*types.Named)
	return n
}

// namedOf returns the generic origin of the named type behind t.
func namedOf(t types.Type) *types.Named {
	if n := instanceOf(t); n != nil {
		return n.Origin()
	}
	return nil
}

func namedID(n *types.Named) TypeID {
	obj := n.Obj()
	id := TypeID{Name: obj.Name()}
	if obj.Pkg() != nil {
		id.PkgPath = obj.Pkg().Path()
	}
	return id
}

func (a *analyzer) lookup(t types.Type) (*pkgEntry, bool) {
	n := namedOf(t)
	if n == nil {
		return nil, false
	}
	e, ok := a.known[namedID(n)]
	return e, ok
}

func (a *analyzer) structType(e *pkgEntry) (*Type, error) {
	t := &Type{
		ID:       namedID(e.named),
		Kind:     e.kind,
		ClassID:  e.tag.ClassID,
		Abstract: e.tag.Abstract,
		Table:    e.tag.Table,
	}
	st := e.named.Underlying().(*types.Struct)
	var base *types.Named
	var mixins []*types.Named
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Name() == "_" {
			continue
		}
		raw, hasTag := reflect.StructTag(st.Tag(i)).Lookup(TagKey)
		ft, err := parseFieldTag(raw)
		if err != nil {
			return nil, fmt.Errorf("load: %s.%s: %w", t.ID, f.Name(), err)
		}
		if ft.Skip {
			continue
		}
		if f.Embedded() {
			n := instanceOf(f.Type())
			if n == nil {
				continue
			}
			id := namedID(n.Origin())
			emb, ok := a.known[id]
			switch {
			case ft.Mixin || ok && emb.kind == KindMixin:
				t.Mixins = append(t.Mixins, id)
				mixins = append(mixins, n)
			case ft.Base || ok && emb.kind == KindClass:
				if t.Base != nil {
					return nil, fmt.Errorf("load: %s embeds more than one base class (%s, %s)", t.ID, *t.Base, id)
				}
				t.Base, base = &id, n
			}
			continue
		}
		if !f.Exported() && !hasTag {
			continue
		}
		t.Properties = append(t.Properties, a.property(f.Name(), f.Type(), ft))
	}
	var implemented []*types.Named
	for _, o := range a.order {
		if o.kind != KindInterface || e.named.TypeParams().Len() > 0 {
			continue
		}
		iface := o.named.Underlying().(*types.Interface)
		if !implements(e.named, iface) {
			continue
		}
		if base != nil && implements(base, iface) {
			continue
		}
		if anyImplements(mixins, iface) {
			continue
		}
		implemented = append(implemented, o.named)
	}
	t.Interfaces = directNamed(implemented)
	return t, nil
}

func (a *analyzer) interfaceType(e *pkgEntry) *Type {
	t := &Type{ID: namedID(e.named), Kind: KindInterface}
	iface := e.named.Underlying().(*types.Interface)
	for i := 0; i < iface.NumEmbeddeds(); i++ {
		if o, ok := a.lookup(iface.EmbeddedType(i)); ok && o.kind == KindInterface {
			t.Interfaces = append(t.Interfaces, namedID(o.named))
		}
	}
	for i := 0; i < iface.NumExplicitMethods(); i++ {
		m := iface.ExplicitMethod(i)
		sig := m.Type().(*types.Signature)
		if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
			continue
		}
		t.Properties = append(t.Properties, a.property(m.Name(), sig.Results().At(0).Type(), &fieldTag{}))
	}
	return t
}

func (a *analyzer) property(name string, t types.Type, ft *fieldTag) *Property {
	if s, ok := t.Underlying().(*types.Slice); ok {
		if e, ok := a.lookup(s.Elem()); ok && e.kind == KindClass {
			return ft.relation(name, namedID(e.named), Many)
		}
	} else if e, ok := a.lookup(t); ok && e.kind == KindClass {
		return ft.relation(name, namedID(e.named), One)
	}
	nullable := false
	if p, ok := t.(*types.Pointer); ok {
		nullable, t = true, p.Elem()
	}
	var pkgPath, typeName, kind string
	if n, ok := types.Unalias(t).(*types.Named); ok {
		id := namedID(n.Origin())
		pkgPath, typeName = id.PkgPath, id.Name
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		kind = u.Name()
	case *types.Slice:
		if b, ok := u.Elem().(*types.Basic); ok && b.Kind() == types.Byte {
			kind = "[]byte"
		}
	case *types.Map:
		kind = "map"
	}
	vt, ok := valueTypeOf(pkgPath, typeName, kind)
	if !ok {
		vt = ValueType(types.TypeString(t, nil))
	}
	return ft.property(name, vt, nullable)
}

func implements(n *types.Named, iface *types.Interface) bool {
	return types.Implements(types.NewPointer(n), iface)
}

func anyImplements(ns []*types.Named, iface *types.Interface) bool {
	for _, n := range ns {
		if implements(n, iface) {
			return true
		}
	}
	return false
}

// directNamed drops the interfaces implied by another interface of the list.
func directNamed(ns []*types.Named) []TypeID {
	var ids []TypeID
	for _, n := range ns {
		implied := false
		for _, o := range ns {
			if o != n && types.Implements(o, n.Underlying().(*types.Interface)) {
				implied = true
				break
			}
		}
		if !implied {
			ids = append(ids, namedID(n))
		}
	}
	return ids
}
