// Package load provides the reflection sources of the mapping: the descriptor
// model handed to the graph builder and the sources that produce it from
// runtime types, YAML descriptor files or Go packages.
package load

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// TypeID uniquely identifies a reflected type by its package path and name.
type TypeID struct {
	PkgPath string `json:"pkg,omitempty" yaml:"pkg,omitempty"`
	Name    string `json:"name" yaml:"name"`
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}
	return t.PkgPath + "." + t.Name
}

// IsZero reports whether t is the zero TypeID.
func (t TypeID) IsZero() bool { return t.Name == "" }

// Definition returns the generic type definition of an instantiated type.
// Non-generic types are returned unchanged.
//
//	TypeID{Name: "Base[int]"}.Definition() // TypeID{Name: "Base"}
func (t TypeID) Definition() TypeID {
	if i := strings.IndexByte(t.Name, '['); i > 0 {
		t.Name = t.Name[:i]
	}
	return t
}

// ParseTypeID parses the "pkg/path.Name" form produced by TypeID.String.
func ParseTypeID(s string) TypeID {
	// Generic arguments may contain dots, split before them.
	head := s
	if i := strings.IndexByte(s, '['); i > 0 {
		head = s[:i]
	}
	i := strings.LastIndexByte(head, '.')
	if i < 0 {
		return TypeID{Name: s}
	}
	return TypeID{PkgPath: s[:i], Name: s[i+1:]}
}

// TypeIDOf returns the TypeID of a runtime type. Pointer types are
// dereferenced and generic instantiations are normalized to their definition.
func TypeIDOf(t reflect.Type) TypeID {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return TypeID{PkgPath: t.PkgPath(), Name: t.Name()}.Definition()
}

// Kind is the kind of a reflected type.
type Kind uint8

// Type kinds.
const (
	KindClass Kind = iota
	KindInterface
	KindMixin
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindMixin:
		return "mixin"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	case "mixin":
		return KindMixin, nil
	default:
		return 0, fmt.Errorf("unknown type kind %q", s)
	}
}

// ValueType is the semantic value type of a property.
type ValueType string

// Value types supported by the mapping.
const (
	TypeString  ValueType = "string"
	TypeBytes   ValueType = "bytes"
	TypeBool    ValueType = "bool"
	TypeInt32   ValueType = "int32"
	TypeInt64   ValueType = "int64"
	TypeFloat64 ValueType = "float64"
	TypeDecimal ValueType = "decimal"
	TypeTime    ValueType = "time"
	TypeUUID    ValueType = "uuid"
	TypeJSON    ValueType = "json"
	TypeEnum    ValueType = "enum"
	// TypeObject marks relation-typed properties.
	TypeObject ValueType = "object"
)

// Supported reports whether v is one of the known value types.
func (v ValueType) Supported() bool {
	switch v {
	case TypeString, TypeBytes, TypeBool, TypeInt32, TypeInt64, TypeFloat64,
		TypeDecimal, TypeTime, TypeUUID, TypeJSON, TypeEnum, TypeObject:
		return true
	}
	return false
}

// HasLength reports whether a maximum length applies to values of v.
func (v ValueType) HasLength() bool {
	return v == TypeString || v == TypeBytes
}

// StorageClass tells whether a property is stored.
type StorageClass uint8

// Storage classes.
const (
	// Persistent properties are stored by the persistence layer.
	Persistent StorageClass = iota
	// Transaction properties live only for the duration of a transaction.
	Transaction
	// None excludes the member from the mapping.
	None
)

// String returns the storage class name.
func (s StorageClass) String() string {
	switch s {
	case Persistent:
		return "persistent"
	case Transaction:
		return "transaction"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// ParseStorageClass converts a storage class name to a StorageClass.
func ParseStorageClass(s string) (StorageClass, error) {
	switch s {
	case "", "persistent":
		return Persistent, nil
	case "transaction":
		return Transaction, nil
	case "none":
		return None, nil
	default:
		return 0, fmt.Errorf("unknown storage class %q", s)
	}
}

// Cardinality of a relation property.
type Cardinality uint8

// Cardinalities.
const (
	One Cardinality = iota
	Many
)

// String returns the cardinality name.
func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// The following types describe what a reflection source knows about the
// participating types. They carry no graph semantics; the graph builder
// turns them into type nodes.
type (
	// Type describes one reflected class, interface or persistent mixin.
	Type struct {
		ID   TypeID `json:"id"`
		Kind Kind   `json:"kind"`
		// ClassID is the unique class key. Defaults to ID.Name for classes.
		ClassID  string `json:"class_id,omitempty"`
		Abstract bool   `json:"abstract,omitempty"`
		// Base holds the base class, if any. Generic bases may be passed
		// instantiated, the builder normalizes them.
		Base *TypeID `json:"base,omitempty"`
		// Interfaces holds the interfaces a class or mixin implements, or the
		// interfaces an interface extends.
		Interfaces []TypeID `json:"interfaces,omitempty"`
		// Mixins holds the persistent mixins applied to a class.
		Mixins     []TypeID    `json:"mixins,omitempty"`
		Properties []*Property `json:"properties,omitempty"`
		// Table overrides the storage entity name.
		Table string `json:"table,omitempty"`
		// Pos holds the source position of the declaration.
		Pos string `json:"-"`
	}

	// Property describes a reflected property.
	Property struct {
		Name         string       `json:"name"`
		Type         ValueType    `json:"type,omitempty"`
		Nullable     bool         `json:"nullable,omitempty"`
		MaxLength    *int         `json:"max_length,omitempty"`
		StorageClass StorageClass `json:"storage_class,omitempty"`
		// Column overrides the storage property name.
		Column   string    `json:"column,omitempty"`
		Relation *Relation `json:"relation,omitempty"`
	}

	// Relation describes the relation side of a relation property.
	Relation struct {
		Target TypeID `json:"target"`
		// Opposite is the short name of the opposite property on Target.
		// Empty means the relation is unidirectional.
		Opposite    string      `json:"opposite,omitempty"`
		Cardinality Cardinality `json:"cardinality,omitempty"`
		Mandatory   bool        `json:"mandatory,omitempty"`
		// ContainsForeignKey selects the real side of a one-to-one relation.
		ContainsForeignKey bool   `json:"contains_foreign_key,omitempty"`
		SortExpression     string `json:"sort_expression,omitempty"`
	}

	// Member is an arbitrary reflected member, declared on a class, an
	// interface or a mixin.
	Member struct {
		DeclaringType TypeID
		Name          string
	}
)

// String returns the "declaring-type.name" identifier of the member.
func (m Member) String() string {
	return m.DeclaringType.String() + "." + m.Name
}

// IsClass reports whether the type is a class.
func (t *Type) IsClass() bool { return t.Kind == KindClass }

// EffectiveClassID returns the class ID of the type.
func (t *Type) EffectiveClassID() string {
	if t.ClassID != "" {
		return t.ClassID
	}
	return t.ID.Name
}

// Property returns the property with the given name, declared on t.
func (t *Type) Property(name string) (*Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// IsRelation reports whether p is a relation property.
func (p *Property) IsRelation() bool { return p.Relation != nil }

// Source supplies the reflected types participating in a mapping.
type Source interface {
	Load(ctx context.Context) ([]*Type, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]*Type, error)

// Load calls f(ctx).
func (f SourceFunc) Load(ctx context.Context) ([]*Type, error) { return f(ctx) }

// Types returns a Source that yields the given descriptors.
func Types(types ...*Type) Source {
	return SourceFunc(func(context.Context) ([]*Type, error) { return types, nil })
}

// Sources combines several sources. Types are returned in source order.
func Sources(sources ...Source) Source {
	return SourceFunc(func(ctx context.Context) ([]*Type, error) {
		var all []*Type
		for _, s := range sources {
			types, err := s.Load(ctx)
			if err != nil {
				return nil, err
			}
			all = append(all, types...)
		}
		return all, nil
	})
}
