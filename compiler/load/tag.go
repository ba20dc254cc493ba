package load

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TagKey is the struct tag key read by the reflect and packages sources.
//
//	type Order struct {
//		_        struct{}    `mapping:"class,id=Order,table=orders"`
//		Number   int32       `mapping:",maxlen=10"`
//		Customer *Customer   `mapping:",mandatory,opposite=Orders"`
//		Lines    []*Line     `mapping:",opposite=Order,sort=Position asc"`
//		Audit    AuditMixin  `mapping:",mixin"`
//		cache    string      `mapping:"-"`
//	}
//
// The sort option consumes the rest of the tag and must come last.
const TagKey = "mapping"

// fieldTag holds the parsed options of a field tag.
type fieldTag struct {
	Name      string
	Skip      bool
	Base      bool
	Mixin     bool
	Nullable  bool
	Mandatory bool
	FK        bool
	Storage   StorageClass
	MaxLength *int
	Opposite  string
	Sort      string
	Column    string
	Type      ValueType
}

// parseFieldTag parses a field tag value.
func parseFieldTag(s string) (*fieldTag, error) {
	t := &fieldTag{}
	if s == "-" {
		t.Skip = true
		return t, nil
	}
	name, rest, _ := strings.Cut(s, ",")
	t.Name = name
	for rest != "" {
		var opt string
		if strings.HasPrefix(rest, "sort=") {
			opt, rest = rest, ""
		} else {
			opt, rest, _ = strings.Cut(rest, ",")
		}
		key, value, hasValue := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "base":
			t.Base = true
		case "mixin":
			t.Mixin = true
		case "nullable":
			t.Nullable = true
		case "mandatory":
			t.Mandatory = true
		case "fk":
			t.FK = true
		case "transaction":
			t.Storage = Transaction
		case "maxlen":
			n, err := strconv.Atoi(value)
			if err != nil || !hasValue {
				return nil, fmt.Errorf("invalid maxlen option %q", opt)
			}
			t.MaxLength = &n
		case "opposite":
			t.Opposite = value
		case "sort":
			t.Sort = strings.TrimSpace(value)
		case "column":
			t.Column = value
		case "type":
			t.Type = ValueType(value)
		default:
			return nil, fmt.Errorf("unknown mapping option %q", key)
		}
	}
	return t, nil
}

// typeTag holds the options of the blank marker field of a struct.
type typeTag struct {
	Kind     Kind
	ClassID  string
	Abstract bool
	Table    string
}

// parseTypeTag parses the tag of the blank marker field.
func parseTypeTag(s string) (*typeTag, error) {
	kind, rest, _ := strings.Cut(s, ",")
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if k == KindInterface {
		return nil, fmt.Errorf("struct types cannot be marked as interface")
	}
	t := &typeTag{Kind: k}
	for _, opt := range strings.Split(rest, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "id":
			t.ClassID = value
		case "abstract":
			t.Abstract = true
		case "table":
			t.Table = value
		default:
			return nil, fmt.Errorf("unknown type option %q", key)
		}
	}
	return t, nil
}

// FieldName returns the property name of a struct field, honoring the
// name given in its mapping tag.
func FieldName(f reflect.StructField) string {
	if t, err := parseFieldTag(f.Tag.Get(TagKey)); err == nil && t.Name != "" && !t.Skip {
		return t.Name
	}
	return f.Name
}

// property converts a parsed field tag into a property descriptor.
func (t *fieldTag) property(name string, vt ValueType, nullable bool) *Property {
	if t.Name != "" {
		name = t.Name
	}
	if t.Type != "" {
		vt = t.Type
	}
	return &Property{
		Name:         name,
		Type:         vt,
		Nullable:     nullable || t.Nullable,
		MaxLength:    t.MaxLength,
		StorageClass: t.Storage,
		Column:       t.Column,
	}
}

// relation converts a parsed field tag into a relation property descriptor.
func (t *fieldTag) relation(name string, target TypeID, card Cardinality) *Property {
	p := t.property(name, TypeObject, !t.Mandatory)
	p.Type = TypeObject
	p.Relation = &Relation{
		Target:             target,
		Opposite:           t.Opposite,
		Cardinality:        card,
		Mandatory:          t.Mandatory,
		ContainsForeignKey: t.FK,
		SortExpression:     t.Sort,
	}
	return p
}

// valueTypeOf maps a Go type, described by its package path, name and
// underlying kind name, to a ValueType.
func valueTypeOf(pkgPath, name, kind string) (ValueType, bool) {
	switch {
	case pkgPath == "time" && name == "Time":
		return TypeTime, true
	case name == "UUID":
		return TypeUUID, true
	case name == "Decimal":
		return TypeDecimal, true
	case pkgPath == "encoding/json" && name == "RawMessage":
		return TypeJSON, true
	}
	switch kind {
	case "string":
		if pkgPath != "" && name != "" {
			return TypeEnum, true
		}
		return TypeString, true
	case "bool":
		return TypeBool, true
	case "int8", "int16", "int32", "uint8", "uint16":
		return TypeInt32, true
	case "int", "int64", "uint", "uint32", "uint64":
		return TypeInt64, true
	case "float32", "float64":
		return TypeFloat64, true
	case "[]byte":
		return TypeBytes, true
	case "map":
		return TypeJSON, true
	}
	return "", false
}
