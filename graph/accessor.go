package graph

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/relmap/compiler/load"
)

// memberCacheSize bounds the number of memoized member resolutions per
// class.
const memberCacheSize = 256

// AccessorKind tells what backs a PropertyAccessorData.
type AccessorKind uint8

// Accessor kinds.
const (
	// ValueAccessor is a value or transaction property.
	ValueAccessor AccessorKind = iota
	// RealEndPointAccessor is an object-ID property backing a real end point.
	RealEndPointAccessor
	// VirtualEndPointAccessor is a virtual end point.
	VirtualEndPointAccessor
)

// String returns the kind name.
func (k AccessorKind) String() string {
	switch k {
	case ValueAccessor:
		return "value"
	case RealEndPointAccessor:
		return "real end point"
	case VirtualEndPointAccessor:
		return "virtual end point"
	default:
		return "unknown"
	}
}

// PropertyAccessorData describes how a member of a class is accessed.
type PropertyAccessorData struct {
	class    *ClassDefinition
	kind     AccessorKind
	property *PropertyDefinition
	endPoint *RelationEndPointDefinition
}

// ClassDefinition returns the class the data was resolved for.
func (d *PropertyAccessorData) ClassDefinition() *ClassDefinition { return d.class }

// Kind returns what backs the accessor.
func (d *PropertyAccessorData) Kind() AccessorKind { return d.kind }

// PropertyIdentifier returns the "declaring-type.short-name" identifier.
func (d *PropertyAccessorData) PropertyIdentifier() string {
	if d.property != nil {
		return d.property.name
	}
	return d.endPoint.name
}

// ShortName returns the member name.
func (d *PropertyAccessorData) ShortName() string {
	if d.property != nil {
		return d.property.shortName
	}
	return d.endPoint.shortName
}

// DeclaringType returns the type declaring the member.
func (d *PropertyAccessorData) DeclaringType() load.TypeID {
	if d.property != nil {
		return d.property.declaring
	}
	return d.endPoint.declaring
}

// PropertyDefinition returns the property, nil for virtual end points.
func (d *PropertyAccessorData) PropertyDefinition() *PropertyDefinition { return d.property }

// RelationEndPointDefinition returns the end point, nil for value
// properties.
func (d *PropertyAccessorData) RelationEndPointDefinition() *RelationEndPointDefinition {
	return d.endPoint
}

// String returns the identifier.
func (d *PropertyAccessorData) String() string { return d.PropertyIdentifier() }

type memberResult struct {
	data *PropertyAccessorData
	err  error
}

// PropertyAccessorDataCache indexes the accessible members of one class.
// The index is built on first use and is safe for concurrent use once the
// class is frozen.
type PropertyAccessorDataCache struct {
	class   *ClassDefinition
	once    sync.Once
	index   map[string]*PropertyAccessorData
	ordered []*PropertyAccessorData
	members *lru.Cache[load.Member, memberResult]
}

func newPropertyAccessorDataCache(c *ClassDefinition) *PropertyAccessorDataCache {
	members, err := lru.New[load.Member, memberResult](memberCacheSize)
	if err != nil {
		panic(err)
	}
	return &PropertyAccessorDataCache{class: c, members: members}
}

func (c *PropertyAccessorDataCache) build() {
	c.once.Do(func() {
		c.index = make(map[string]*PropertyAccessorData)
		ends := c.class.RelationEndPointDefinitions()
		for _, p := range c.class.PropertyDefinitions().items {
			d := &PropertyAccessorData{class: c.class, kind: ValueAccessor, property: p}
			if e, ok := ends.Get(p.name); ok && p.objectID {
				d.kind, d.endPoint = RealEndPointAccessor, e
			}
			c.add(d)
		}
		for _, e := range ends.items {
			if e.IsVirtual() {
				c.add(&PropertyAccessorData{class: c.class, kind: VirtualEndPointAccessor, endPoint: e})
			}
		}
	})
}

func (c *PropertyAccessorDataCache) add(d *PropertyAccessorData) {
	c.index[d.PropertyIdentifier()] = d
	c.ordered = append(c.ordered, d)
}

// All returns the accessor data of every member, properties first.
func (c *PropertyAccessorDataCache) All() []*PropertyAccessorData {
	c.build()
	out := make([]*PropertyAccessorData, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// GetPropertyAccessorData returns the data of the member with the given
// identifier.
func (c *PropertyAccessorDataCache) GetPropertyAccessorData(identifier string) (*PropertyAccessorData, bool) {
	c.build()
	d, ok := c.index[identifier]
	return d, ok
}

// GetMandatoryPropertyAccessorData is like GetPropertyAccessorData but
// returns a *PropertyNotFoundError for unknown members.
func (c *PropertyAccessorDataCache) GetMandatoryPropertyAccessorData(identifier string) (*PropertyAccessorData, error) {
	if d, ok := c.GetPropertyAccessorData(identifier); ok {
		return d, nil
	}
	return nil, &PropertyNotFoundError{Class: c.class.id, Property: identifier}
}

// GetPropertyAccessorDataByMember returns the data of the member declared
// by the given type with the given short name.
func (c *PropertyAccessorDataCache) GetPropertyAccessorDataByMember(declaring load.TypeID, name string) (*PropertyAccessorData, bool) {
	return c.GetPropertyAccessorData(Identifier(declaring.Definition(), name))
}

// GetMandatoryPropertyAccessorDataByMember is like
// GetPropertyAccessorDataByMember but returns a *PropertyNotFoundError for
// unknown members.
func (c *PropertyAccessorDataCache) GetMandatoryPropertyAccessorDataByMember(declaring load.TypeID, name string) (*PropertyAccessorData, error) {
	return c.GetMandatoryPropertyAccessorData(Identifier(declaring.Definition(), name))
}

// ResolvePropertyAccessorData resolves a member that may be declared on the
// class, on one of its persistent mixins or on an interface the class
// implements. It returns nil without error when nothing matches and an
// *AmbiguityError when several distinct implementations match.
func (c *PropertyAccessorDataCache) ResolvePropertyAccessorData(m load.Member) (*PropertyAccessorData, error) {
	c.build()
	m.DeclaringType = m.DeclaringType.Definition()
	if r, ok := c.members.Get(m); ok {
		return r.data, r.err
	}
	d, err := c.resolve(m)
	c.members.Add(m, memberResult{data: d, err: err})
	return d, err
}

// ResolveMandatoryPropertyAccessorData is like ResolvePropertyAccessorData
// but returns a *PropertyNotFoundError when nothing matches.
func (c *PropertyAccessorDataCache) ResolveMandatoryPropertyAccessorData(m load.Member) (*PropertyAccessorData, error) {
	d, err := c.ResolvePropertyAccessorData(m)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &PropertyNotFoundError{Class: c.class.id, Property: m.String()}
	}
	return d, nil
}

func (c *PropertyAccessorDataCache) resolve(m load.Member) (*PropertyAccessorData, error) {
	if d, ok := c.index[m.String()]; ok {
		return d, nil
	}
	var iface *InterfaceDefinition
	for _, i := range c.class.AllInterfaces() {
		if i.id == m.DeclaringType {
			iface = i
			break
		}
	}
	if iface == nil {
		return nil, nil
	}
	var candidates []*PropertyAccessorData
	seen := make(map[string]bool)
	consider := func(declaring load.TypeID) {
		id := Identifier(declaring, m.Name)
		if d, ok := c.index[id]; ok && !seen[id] {
			seen[id] = true
			candidates = append(candidates, d)
		}
	}
	// Class members implement the interface only when the class chain
	// declares it without help from a mixin.
	if declaresInterface(c.class, iface) {
		for cls := c.class; cls != nil; cls = cls.base {
			if _, ok := c.index[Identifier(cls.id, m.Name)]; ok {
				consider(cls.id)
				break
			}
		}
	}
	for cls := c.class; cls != nil; cls = cls.base {
		for _, mx := range cls.mixins {
			if mx.Implements(iface) && mx.Declares(m.Name) {
				consider(mx.id)
			}
		}
	}
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	}
	err := &AmbiguityError{Member: m, Class: c.class.id}
	for _, d := range candidates {
		err.Candidates = append(err.Candidates, d.DeclaringType())
	}
	return nil, err
}

// declaresInterface reports whether c or one of its base classes declares
// i, or an interface extending it, directly.
func declaresInterface(c *ClassDefinition, i *InterfaceDefinition) bool {
	var all []*InterfaceDefinition
	seen := make(map[*InterfaceDefinition]bool)
	for cls := c; cls != nil; cls = cls.base {
		for _, d := range cls.interfaces {
			collectInterfaces(d, seen, &all)
		}
	}
	return slices.Contains(all, i)
}

// AccessorOf resolves the member selected by a field selector on T and
// returns its accessor data from c.
//
//	d, err := graph.AccessorOf(cache, func(o *Order) any { return &o.Customer })
//
// Fields of embedded structs resolve to their declaring struct.
func AccessorOf[T any](c *PropertyAccessorDataCache, selector func(*T) any) (*PropertyAccessorData, error) {
	m, err := MemberOf(selector)
	if err != nil {
		return nil, err
	}
	return c.ResolveMandatoryPropertyAccessorData(m)
}

// MemberOf returns the member selected by a field selector on T.
func MemberOf[T any](selector func(*T) any) (load.Member, error) {
	var v T
	root := reflect.ValueOf(&v).Elem()
	if root.Kind() != reflect.Struct {
		return load.Member{}, fmt.Errorf("relmap: %s is not a struct type", root.Type())
	}
	ptr := reflect.ValueOf(selector(&v))
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return load.Member{}, fmt.Errorf("relmap: selector on %s must return a field address", root.Type())
	}
	if m, ok := findField(root, ptr); ok {
		return m, nil
	}
	return load.Member{}, fmt.Errorf("relmap: selector on %s does not select a field", root.Type())
}

func findField(sv reflect.Value, ptr reflect.Value) (load.Member, bool) {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		fv := sv.Field(i)
		if f.Name != "_" && fv.Addr().Pointer() == ptr.Pointer() && f.Type == ptr.Type().Elem() {
			return load.Member{DeclaringType: load.TypeIDOf(st), Name: load.FieldName(f)}, true
		}
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if m, ok := findField(sv.Field(i), ptr); ok {
				return m, true
			}
		}
	}
	return load.Member{}, false
}
