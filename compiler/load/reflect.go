package load

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// ReflectSource loads descriptors from registered Go types at runtime.
//
//	src := load.NewReflectSource().
//		Interface((*Named)(nil)).
//		Class(Customer{}, Order{}).
//		Mixin(Audit{})
type ReflectSource struct {
	entries []*entry
	errs    []error
}

type entry struct {
	rt   reflect.Type
	kind Kind
	tag  *typeTag
}

// NewReflectSource returns an empty reflect source.
func NewReflectSource() *ReflectSource {
	return &ReflectSource{}
}

// Class registers struct types as classes. Values, pointers and
// reflect.Type values are accepted. A struct whose marker field is tagged
// "mixin" is registered as a mixin.
func (s *ReflectSource) Class(vs ...any) *ReflectSource {
	for _, v := range vs {
		s.register(v, KindClass)
	}
	return s
}

// Mixin registers struct types as persistent mixins.
func (s *ReflectSource) Mixin(vs ...any) *ReflectSource {
	for _, v := range vs {
		s.register(v, KindMixin)
	}
	return s
}

// Interface registers interface types, passed as nil pointers to the
// interface or as reflect.Type values.
func (s *ReflectSource) Interface(vs ...any) *ReflectSource {
	for _, v := range vs {
		s.register(v, KindInterface)
	}
	return s
}

func (s *ReflectSource) register(v any, kind Kind) {
	rt, ok := v.(reflect.Type)
	if !ok {
		rt = reflect.TypeOf(v)
	}
	if rt == nil {
		s.errs = append(s.errs, fmt.Errorf("load: cannot register nil %s", kind))
		return
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	switch {
	case kind == KindInterface && rt.Kind() != reflect.Interface:
		s.errs = append(s.errs, fmt.Errorf("load: %s is not an interface type", rt))
		return
	case kind != KindInterface && rt.Kind() != reflect.Struct:
		s.errs = append(s.errs, fmt.Errorf("load: %s is not a struct type", rt))
		return
	}
	e := &entry{rt: rt, kind: kind}
	if kind != KindInterface {
		if f, ok := rt.FieldByName("_"); ok {
			if raw, ok := f.Tag.Lookup(TagKey); ok {
				tt, err := parseTypeTag(raw)
				if err != nil {
					s.errs = append(s.errs, fmt.Errorf("load: %s: %w", rt, err))
					return
				}
				e.tag = tt
				if tt.Kind == KindMixin {
					e.kind = KindMixin
				}
			}
		}
	}
	s.entries = append(s.entries, e)
}

// Load implements Source. Types are returned in registration order.
func (s *ReflectSource) Load(ctx context.Context) ([]*Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.errs) > 0 {
		return nil, s.errs[0]
	}
	known := make(map[TypeID]*entry, len(s.entries))
	for _, e := range s.entries {
		known[TypeIDOf(e.rt)] = e
	}
	r := &reflector{known: known}
	types := make([]*Type, 0, len(s.entries))
	for _, e := range s.entries {
		var (
			t   *Type
			err error
		)
		if e.kind == KindInterface {
			t, err = r.interfaceType(e)
		} else {
			t, err = r.structType(e)
		}
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

type reflector struct {
	known map[TypeID]*entry
}

func (r *reflector) lookup(rt reflect.Type) (*entry, bool) {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return nil, false
	}
	e, ok := r.known[TypeIDOf(rt)]
	return e, ok
}

func (r *reflector) structType(e *entry) (*Type, error) {
	t := &Type{ID: TypeIDOf(e.rt), Kind: e.kind}
	if e.tag != nil {
		t.ClassID, t.Abstract, t.Table = e.tag.ClassID, e.tag.Abstract, e.tag.Table
	}
	var base reflect.Type
	var mixins []reflect.Type
	for i := 0; i < e.rt.NumField(); i++ {
		f := e.rt.Field(i)
		if f.Name == "_" {
			continue
		}
		raw, hasTag := f.Tag.Lookup(TagKey)
		ft, err := parseFieldTag(raw)
		if err != nil {
			return nil, fmt.Errorf("load: %s.%s: %w", t.ID, f.Name, err)
		}
		if ft.Skip {
			continue
		}
		if f.Anonymous {
			et := f.Type
			for et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			emb, ok := r.lookup(et)
			id := TypeIDOf(et)
			switch {
			case ft.Mixin || ok && emb.kind == KindMixin:
				t.Mixins = append(t.Mixins, id)
				mixins = append(mixins, et)
			case ft.Base || ok && emb.kind == KindClass:
				if t.Base != nil {
					return nil, fmt.Errorf("load: %s embeds more than one base class (%s, %s)", t.ID, *t.Base, id)
				}
				t.Base, base = &id, et
			}
			continue
		}
		if !f.IsExported() && !hasTag {
			continue
		}
		t.Properties = append(t.Properties, r.property(f.Name, f.Type, ft))
	}
	ptr := reflect.PointerTo(e.rt)
	var implemented []reflect.Type
	for _, o := range r.known {
		if o.kind != KindInterface || !ptr.Implements(o.rt) {
			continue
		}
		if base != nil && reflect.PointerTo(base).Implements(o.rt) {
			continue
		}
		if implementedBy(o.rt, mixins) {
			continue
		}
		implemented = append(implemented, o.rt)
	}
	t.Interfaces = typeIDs(direct(implemented))
	return t, nil
}

func (r *reflector) interfaceType(e *entry) (*Type, error) {
	t := &Type{ID: TypeIDOf(e.rt), Kind: KindInterface}
	var extended []reflect.Type
	for _, o := range r.known {
		if o.kind == KindInterface && o.rt != e.rt && e.rt.Implements(o.rt) {
			extended = append(extended, o.rt)
		}
	}
	extended = direct(extended)
	t.Interfaces = typeIDs(extended)
methods:
	for i := 0; i < e.rt.NumMethod(); i++ {
		m := e.rt.Method(i)
		if m.Type.NumIn() != 0 || m.Type.NumOut() != 1 {
			continue
		}
		for _, x := range extended {
			if _, ok := x.MethodByName(m.Name); ok {
				continue methods
			}
		}
		t.Properties = append(t.Properties, r.property(m.Name, m.Type.Out(0), &fieldTag{}))
	}
	return t, nil
}

// property converts a field or getter into a property descriptor.
func (r *reflector) property(name string, rt reflect.Type, ft *fieldTag) *Property {
	switch {
	case rt.Kind() == reflect.Slice && rt.Elem().Kind() != reflect.Uint8:
		if e, ok := r.lookup(rt.Elem()); ok && e.kind == KindClass {
			return ft.relation(name, TypeIDOf(e.rt), Many)
		}
	default:
		if e, ok := r.lookup(rt); ok && e.kind == KindClass {
			return ft.relation(name, TypeIDOf(e.rt), One)
		}
	}
	nullable := false
	if rt.Kind() == reflect.Pointer {
		nullable, rt = true, rt.Elem()
	}
	kind := rt.Kind().String()
	if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
		kind = "[]byte"
	}
	vt, ok := valueTypeOf(rt.PkgPath(), rt.Name(), kind)
	if !ok {
		vt = ValueType(rt.String())
	}
	return ft.property(name, vt, nullable)
}

// implementedBy reports whether any of the structs implements it.
func implementedBy(it reflect.Type, structs []reflect.Type) bool {
	for _, s := range structs {
		if reflect.PointerTo(s).Implements(it) {
			return true
		}
	}
	return false
}

// direct drops the interfaces implied by another interface of the list.
func direct(its []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, it := range its {
		implied := false
		for _, o := range its {
			if o != it && o.Implements(it) {
				implied = true
				break
			}
		}
		if !implied {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

func typeIDs(ts []reflect.Type) []TypeID {
	ids := make([]TypeID, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, TypeIDOf(t))
	}
	return ids
}
