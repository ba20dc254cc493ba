package graph

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/load"
)

// Build turns descriptors into a cross-linked, not yet validated graph.
// Nodes are created depth first over inheritance edges, so descriptors may
// be passed in any order. All mapping errors found while building are
// returned together in one *MappingError.
func Build(types []*load.Type, opts ...Option) (*Graph, error) {
	o := newOptions(opts)
	start := time.Now()
	b := &builder{
		graph:    newGraph(),
		descs:    make(map[load.TypeID]*load.Type, len(types)),
		visiting: make(map[load.TypeID]bool),
	}
	b.collect(types)
	for _, t := range types {
		if t.Kind != load.KindMixin {
			b.resolve(t.ID.Definition())
		}
	}
	if err := b.err(); err != nil {
		return nil, err
	}
	for _, t := range b.graph.types {
		b.beginBuild(t)
	}
	if err := b.err(); err != nil {
		return nil, err
	}
	b.endBuild()
	if err := b.err(); err != nil {
		return nil, err
	}
	o.log.Debug("mapping graph built",
		zap.Int("types", len(b.graph.types)),
		zap.Int("relations", len(b.graph.relations)),
		zap.Duration("duration", time.Since(start)))
	return b.graph, nil
}

type builder struct {
	graph    *Graph
	descs    map[load.TypeID]*load.Type
	visiting map[load.TypeID]bool
	findings []Finding
}

func (b *builder) errorf(element any, format string, args ...any) {
	b.findings = append(b.findings, NewFinding(element, format, args...))
}

// report records the findings of a mapping error returned by a table.
func (b *builder) report(err error) {
	var me *MappingError
	if errors.As(err, &me) {
		b.findings = append(b.findings, me.Findings...)
		return
	}
	if err != nil {
		b.errorf(nil, "%v", err)
	}
}

func (b *builder) err() error {
	if len(b.findings) == 0 {
		return nil
	}
	return NewMappingError(StageBuild, b.findings...)
}

func (b *builder) collect(types []*load.Type) {
	for _, t := range types {
		id := t.ID.Definition()
		if id.IsZero() {
			b.errorf(t, "type declared at %q has no name", t.Pos)
			continue
		}
		if _, ok := b.descs[id]; ok {
			b.errorf(t, "type %s is declared more than once", id)
			continue
		}
		b.descs[id] = t
	}
}

// resolve returns the node of id, creating it and its ancestors first.
func (b *builder) resolve(id load.TypeID) TypeDefinition {
	if t, ok := b.graph.byID[id]; ok {
		return t
	}
	desc, ok := b.descs[id]
	if !ok {
		return nil
	}
	if b.visiting[id] {
		b.errorf(desc, "inheritance cycle detected at type %s", id)
		return nil
	}
	b.visiting[id] = true
	defer delete(b.visiting, id)

	switch desc.Kind {
	case load.KindInterface:
		var extended []*InterfaceDefinition
		for _, ref := range desc.Interfaces {
			if i := b.resolveInterface(desc, ref); i != nil {
				extended = append(extended, i)
			}
		}
		i := NewInterfaceDefinition(id, extended...)
		i.pos, i.table = desc.Pos, desc.Table
		b.graph.add(i)
		return i
	case load.KindClass:
		opts := []ClassOption{WithPos(desc.Pos), WithTable(desc.Table)}
		if desc.Abstract {
			opts = append(opts, WithAbstract())
		}
		if desc.Base != nil {
			switch base := b.resolve(desc.Base.Definition()).(type) {
			case *ClassDefinition:
				opts = append(opts, WithBaseClass(base))
			case nil:
				if _, ok := b.descs[desc.Base.Definition()]; !ok {
					b.errorf(desc, "base class %s of class %s is not part of the mapping", desc.Base.Definition(), id)
				}
			default:
				b.errorf(desc, "base type %s of class %s is not a class", desc.Base.Definition(), id)
			}
		}
		var interfaces []*InterfaceDefinition
		for _, ref := range desc.Interfaces {
			if i := b.resolveInterface(desc, ref); i != nil {
				interfaces = append(interfaces, i)
			}
		}
		var mixins []*PersistentMixin
		for _, ref := range desc.Mixins {
			if m := b.resolveMixin(desc, ref.Definition()); m != nil {
				mixins = append(mixins, m)
			}
		}
		opts = append(opts, WithInterfaces(interfaces...), WithMixins(mixins...))
		c := NewClassDefinition(id, desc.EffectiveClassID(), opts...)
		b.graph.add(c)
		return c
	default:
		b.errorf(desc, "mixin %s cannot be used as a type", id)
		return nil
	}
}

func (b *builder) resolveInterface(desc *load.Type, ref load.TypeID) *InterfaceDefinition {
	ref = ref.Definition()
	switch t := b.resolve(ref).(type) {
	case *InterfaceDefinition:
		return t
	case nil:
		if _, ok := b.descs[ref]; !ok {
			b.errorf(desc, "interface %s of type %s is not part of the mapping", ref, desc.ID)
		}
	default:
		b.errorf(desc, "type %s referenced by %s is not an interface", ref, desc.ID)
	}
	return nil
}

func (b *builder) resolveMixin(desc *load.Type, id load.TypeID) *PersistentMixin {
	if m, ok := b.graph.mixins[id]; ok {
		return m
	}
	md, ok := b.descs[id]
	if !ok || md.Kind != load.KindMixin {
		b.errorf(desc, "persistent mixin %s of class %s is not a mixin of the mapping", id, desc.ID)
		return nil
	}
	var interfaces []*InterfaceDefinition
	for _, ref := range md.Interfaces {
		if i := b.resolveInterface(md, ref); i != nil {
			interfaces = append(interfaces, i)
		}
	}
	m := NewPersistentMixin(id, interfaces, md.Properties)
	b.graph.mixins[id] = m
	return m
}

// beginBuild creates the property and end-point tables of t.
func (b *builder) beginBuild(t TypeDefinition) {
	desc := b.descs[t.ID()]
	props := NewPropertyDefinitionCollection(t)
	ends := NewRelationEndPointDefinitionCollection(t)
	switch t := t.(type) {
	case *InterfaceDefinition:
		for _, p := range desc.Properties {
			if p.IsRelation() && p.Relation.Cardinality == load.Many {
				b.errorf(t, "interface %s cannot declare collection property %q", t.id, p.Name)
				continue
			}
			b.report(props.Add(NewPropertyDefinition(t, t.id, p)))
		}
	case *ClassDefinition:
		b.classMembers(t, t.id, desc.Properties, props, ends)
		for _, m := range t.mixins {
			b.classMembers(t, m.id, m.properties, props, ends)
		}
	}
	t.SetPropertyDefinitions(props)
	t.SetRelationEndPointDefinitions(ends)
}

func (b *builder) classMembers(c *ClassDefinition, declaring load.TypeID, members []*load.Property,
	props *PropertyDefinitionCollection, ends *RelationEndPointDefinitionCollection) {
	for _, p := range members {
		if p.StorageClass == load.None {
			continue
		}
		if !p.IsRelation() {
			b.report(props.Add(NewPropertyDefinition(c, declaring, p)))
			continue
		}
		var e *RelationEndPointDefinition
		if b.isReal(p.Relation) {
			pd := NewPropertyDefinition(c, declaring, p)
			if err := props.Add(pd); err != nil {
				b.report(err)
				continue
			}
			e = NewRealEndPoint(pd, p.Relation)
		} else {
			e = NewVirtualEndPoint(c, declaring, p.Name, p.Relation)
		}
		b.report(ends.Add(e))
	}
}

// isReal tells whether the relation member r is backed by an object-ID
// property. Collections are always virtual; single-object members are real
// unless the opposite is a single-object member and r does not hold the
// foreign key.
func (b *builder) isReal(r *load.Relation) bool {
	if r.Cardinality == load.Many {
		return false
	}
	if r.Opposite == "" {
		return true
	}
	opposite, ok := b.findMember(r.Target.Definition(), r.Opposite)
	if !ok || !opposite.IsRelation() || opposite.Relation.Cardinality == load.Many {
		return true
	}
	return r.ContainsForeignKey
}

// findMember looks up a member by short name on a class, its mixins and its
// base classes, nearest first.
func (b *builder) findMember(id load.TypeID, name string) (*load.Property, bool) {
	for seen := make(map[load.TypeID]bool); !seen[id]; {
		seen[id] = true
		desc, ok := b.descs[id]
		if !ok {
			return nil, false
		}
		if p, ok := desc.Property(name); ok {
			return p, true
		}
		for _, m := range desc.Mixins {
			if md, ok := b.descs[m.Definition()]; ok {
				if p, ok := md.Property(name); ok {
					return p, true
				}
			}
		}
		if desc.Base == nil {
			return nil, false
		}
		id = desc.Base.Definition()
	}
	return nil, false
}

// endBuild links derived classes, implementing classes, extending
// interfaces and relations.
func (b *builder) endBuild() {
	derived := make(map[*ClassDefinition][]*ClassDefinition)
	implementing := make(map[*InterfaceDefinition][]*ClassDefinition)
	extending := make(map[*InterfaceDefinition][]*InterfaceDefinition)
	for _, t := range b.graph.types {
		switch t := t.(type) {
		case *ClassDefinition:
			if t.base != nil {
				derived[t.base] = append(derived[t.base], t)
			}
			for _, i := range t.EffectiveInterfaces() {
				implementing[i] = append(implementing[i], t)
			}
		case *InterfaceDefinition:
			for _, e := range t.extended {
				extending[e] = append(extending[e], t)
			}
		}
	}
	for _, t := range b.graph.types {
		switch t := t.(type) {
		case *ClassDefinition:
			t.SetDerivedClasses(derived[t])
		case *InterfaceDefinition:
			t.SetImplementingClasses(implementing[t])
			t.SetExtendingInterfaces(extending[t])
		}
	}
	for _, c := range b.graph.classes {
		for _, e := range c.MyRelationEndPointDefinitions().items {
			b.link(e)
		}
	}
}

// link creates the relation of e unless it exists already.
func (b *builder) link(e *RelationEndPointDefinition) {
	if e.IsLinked() {
		return
	}
	target, ok := b.graph.byID[e.relatedType].(*ClassDefinition)
	if !ok {
		b.errorf(e, "relation property %s of class %s references %s, which is not a class of the mapping",
			e.shortName, e.owner.id, e.relatedType)
		return
	}
	if e.oppositeName == "" {
		anonymous := NewAnonymousEndPoint(target, e.owner.id)
		b.add(NewRelationDefinition(RelationID(e, anonymous), e, anonymous))
		return
	}
	opposite, ok := target.RelationEndPointDefinitions().ByShortName(e.oppositeName)
	if !ok {
		b.errorf(e, "opposite relation property %q declared on relation property %s of class %s could not be found on class %s",
			e.oppositeName, e.shortName, e.owner.id, target.id)
		return
	}
	if opposite == e {
		b.errorf(e, "relation property %s of class %s cannot be its own opposite", e.shortName, e.owner.id)
		return
	}
	if opposite.oppositeName != e.shortName {
		b.errorf(e, "opposite relation property %s of class %s does not point back to relation property %s of class %s",
			opposite.shortName, target.id, e.shortName, e.owner.id)
		return
	}
	if opposite.IsLinked() {
		b.errorf(e, "relation property %s of class %s cannot be paired with %s of class %s, which is already part of relation %s",
			e.shortName, e.owner.id, opposite.shortName, target.id, opposite.relation.id)
		return
	}
	b.add(NewRelationDefinition(RelationID(e, opposite), e, opposite))
}

func (b *builder) add(r *RelationDefinition) {
	if existing, ok := b.graph.byRelID[r.id]; ok {
		b.errorf(r, "relation ID %q is used by %s and %s", r.id, existing, r)
		return
	}
	for _, e := range r.ends {
		e.SetRelationDefinition(r)
	}
	b.graph.relations = append(b.graph.relations, r)
	b.graph.byRelID[r.id] = r
}
