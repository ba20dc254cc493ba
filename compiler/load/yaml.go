package load

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLSource loads descriptors from YAML files.
//
//	package: example.com/shop
//	types:
//	  - name: Customer
//	    properties:
//	      - name: Name
//	        type: string
//	        max_length: 100
//	      - name: Orders
//	        relation: {target: Order, opposite: Customer, cardinality: many}
//	  - name: Order
//	    properties:
//	      - name: Customer
//	        relation: {target: Customer, opposite: Orders, mandatory: true}
//
// Type references without a package path resolve against the file's package.
type YAMLSource struct {
	Paths []string
}

// NewYAMLSource returns a source reading the given files.
func NewYAMLSource(paths ...string) *YAMLSource {
	return &YAMLSource{Paths: paths}
}

// Load implements Source.
func (s *YAMLSource) Load(ctx context.Context) ([]*Type, error) {
	var all []*Type
	for _, path := range s.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load: reading %s: %w", path, err)
		}
		types, err := parseYAML(path, data)
		if err != nil {
			return nil, err
		}
		all = append(all, types...)
	}
	return all, nil
}

// ParseYAML decodes the descriptors of one YAML document stream.
func ParseYAML(data []byte) ([]*Type, error) {
	return parseYAML("<input>", data)
}

type (
	yamlFile struct {
		Package string     `yaml:"package"`
		Types   []yamlType `yaml:"types"`
	}
	yamlType struct {
		Name       string         `yaml:"name"`
		Kind       string         `yaml:"kind"`
		ClassID    string         `yaml:"class_id"`
		Abstract   bool           `yaml:"abstract"`
		Base       string         `yaml:"base"`
		Interfaces []string       `yaml:"interfaces"`
		Mixins     []string       `yaml:"mixins"`
		Table      string         `yaml:"table"`
		Properties []yamlProperty `yaml:"properties"`
	}
	yamlProperty struct {
		Name      string        `yaml:"name"`
		Type      string        `yaml:"type"`
		Nullable  bool          `yaml:"nullable"`
		MaxLength *int          `yaml:"max_length"`
		Storage   string        `yaml:"storage"`
		Column    string        `yaml:"column"`
		Relation  *yamlRelation `yaml:"relation"`
	}
	yamlRelation struct {
		Target      string `yaml:"target"`
		Opposite    string `yaml:"opposite"`
		Cardinality string `yaml:"cardinality"`
		Mandatory   bool   `yaml:"mandatory"`
		ForeignKey  bool   `yaml:"foreign_key"`
		Sort        string `yaml:"sort"`
	}
)

func parseYAML(name string, data []byte) ([]*Type, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var types []*Type
	for {
		var f yamlFile
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load: decoding %s: %w", name, err)
		}
		for i, yt := range f.Types {
			t, err := f.convert(yt)
			if err != nil {
				return nil, fmt.Errorf("load: %s: types[%d]: %w", name, i, err)
			}
			t.Pos = fmt.Sprintf("%s:types[%d]", name, i)
			types = append(types, t)
		}
	}
	return types, nil
}

func (f *yamlFile) ref(s string) TypeID {
	if strings.ContainsAny(s, "./") {
		return ParseTypeID(s)
	}
	return TypeID{PkgPath: f.Package, Name: s}
}

func (f *yamlFile) refs(ss []string) []TypeID {
	var ids []TypeID
	for _, s := range ss {
		ids = append(ids, f.ref(s))
	}
	return ids
}

func (f *yamlFile) convert(yt yamlType) (*Type, error) {
	if yt.Name == "" {
		return nil, errors.New("missing type name")
	}
	kind, err := ParseKind(yt.Kind)
	if err != nil {
		return nil, err
	}
	t := &Type{
		ID:         f.ref(yt.Name),
		Kind:       kind,
		ClassID:    yt.ClassID,
		Abstract:   yt.Abstract,
		Interfaces: f.refs(yt.Interfaces),
		Mixins:     f.refs(yt.Mixins),
		Table:      yt.Table,
	}
	if yt.Base != "" {
		base := f.ref(yt.Base)
		t.Base = &base
	}
	for _, yp := range yt.Properties {
		p, err := f.property(yp)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", yt.Name, err)
		}
		t.Properties = append(t.Properties, p)
	}
	return t, nil
}

func (f *yamlFile) property(yp yamlProperty) (*Property, error) {
	if yp.Name == "" {
		return nil, errors.New("missing property name")
	}
	sc, err := ParseStorageClass(yp.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", yp.Name, err)
	}
	p := &Property{
		Name:         yp.Name,
		Type:         ValueType(yp.Type),
		Nullable:     yp.Nullable,
		MaxLength:    yp.MaxLength,
		StorageClass: sc,
		Column:       yp.Column,
	}
	if yp.Relation == nil {
		if p.Type == "" {
			p.Type = TypeString
		}
		return p, nil
	}
	yr := yp.Relation
	if yr.Target == "" {
		return nil, fmt.Errorf("%s: missing relation target", yp.Name)
	}
	card := One
	switch yr.Cardinality {
	case "", "one":
	case "many":
		card = Many
	default:
		return nil, fmt.Errorf("%s: unknown cardinality %q", yp.Name, yr.Cardinality)
	}
	p.Type = TypeObject
	p.Nullable = !yr.Mandatory
	p.Relation = &Relation{
		Target:             f.ref(yr.Target),
		Opposite:           yr.Opposite,
		Cardinality:        card,
		Mandatory:          yr.Mandatory,
		ContainsForeignKey: yr.ForeignKey,
		SortExpression:     yr.Sort,
	}
	return p, nil
}
