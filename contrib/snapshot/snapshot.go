// Package snapshot records frozen mapping graphs in a compact binary form
// and compares them.
//
// A snapshot keeps what a deployed database or generated code depends on:
// class IDs, hierarchies, storage names, property types and relations.
// Diff reports the changes between two snapshots and flags those that break
// existing data.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relmap/graph"
)

// Version is the snapshot format version.
const Version = 1

var (
	// ErrNotFrozen is returned for graphs that were not validated and frozen.
	ErrNotFrozen = errors.New("snapshot: mapping graph is not frozen")
	// ErrVersion is returned when decoding a snapshot of another format.
	ErrVersion = errors.New("snapshot: unsupported format version")
)

// Snapshot is the recorded state of a mapping graph.
type Snapshot struct {
	Version   int        `msgpack:"v"`
	ID        uuid.UUID  `msgpack:"id"`
	CreatedAt time.Time  `msgpack:"created_at"`
	Types     []Type     `msgpack:"types"`
	Relations []Relation `msgpack:"relations,omitempty"`
}

// Type is a recorded class or interface.
type Type struct {
	ID         string     `msgpack:"id"`
	Interface  bool       `msgpack:"interface,omitempty"`
	ClassID    string     `msgpack:"class_id,omitempty"`
	Abstract   bool       `msgpack:"abstract,omitempty"`
	Base       string     `msgpack:"base,omitempty"`
	Interfaces []string   `msgpack:"interfaces,omitempty"`
	Storage    string     `msgpack:"storage,omitempty"`
	Properties []Property `msgpack:"properties,omitempty"`
}

// Property is a recorded property declared by a type or its mixins.
type Property struct {
	Name      string `msgpack:"name"`
	Type      string `msgpack:"type"`
	Nullable  bool   `msgpack:"nullable,omitempty"`
	MaxLength int    `msgpack:"max_length,omitempty"`
	Related   string `msgpack:"related,omitempty"`
	Storage   string `msgpack:"storage,omitempty"`
}

// Relation is a recorded relation.
type Relation struct {
	ID   string      `msgpack:"id"`
	Kind string      `msgpack:"kind"`
	Ends [2]EndPoint `msgpack:"ends"`
}

// EndPoint is a recorded relation end point.
type EndPoint struct {
	ClassID     string `msgpack:"class_id"`
	Property    string `msgpack:"property,omitempty"`
	Kind        string `msgpack:"kind"`
	Cardinality string `msgpack:"cardinality"`
	Mandatory   bool   `msgpack:"mandatory,omitempty"`
}

// Take records g.
func Take(g *graph.Graph) (*Snapshot, error) {
	if !g.IsReadOnly() {
		return nil, ErrNotFrozen
	}
	s := &Snapshot{
		Version:   Version,
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	for _, t := range g.TypeDefinitions() {
		s.Types = append(s.Types, recordType(t))
	}
	for _, r := range g.RelationDefinitions() {
		rel := Relation{ID: r.ID(), Kind: r.RelationKind().String()}
		for i, e := range r.EndPointDefinitions() {
			rel.Ends[i] = EndPoint{
				ClassID:     e.ClassDefinition().ClassID(),
				Property:    e.PropertyName(),
				Kind:        e.Kind().String(),
				Cardinality: e.Cardinality().String(),
				Mandatory:   e.IsMandatory(),
			}
		}
		s.Relations = append(s.Relations, rel)
	}
	return s, nil
}

func recordType(t graph.TypeDefinition) Type {
	rt := Type{ID: t.ID().String()}
	switch t := t.(type) {
	case *graph.ClassDefinition:
		rt.ClassID, rt.Abstract = t.ClassID(), t.IsAbstract()
		if b := t.BaseClass(); b != nil {
			rt.Base = b.ID().String()
		}
		for _, i := range t.EffectiveInterfaces() {
			rt.Interfaces = append(rt.Interfaces, i.ID().String())
		}
	case *graph.InterfaceDefinition:
		rt.Interface = true
		for _, i := range t.ExtendedInterfaces() {
			rt.Interfaces = append(rt.Interfaces, i.ID().String())
		}
	}
	if t.HasStorageEntity() {
		rt.Storage = t.StorageEntity().StorageName()
	}
	for _, p := range t.MyPropertyDefinitions().All() {
		rp := Property{
			Name:     p.Name(),
			Type:     string(p.ValueType()),
			Nullable: p.IsNullable(),
		}
		if n, ok := p.MaxLength(); ok {
			rp.MaxLength = n
		}
		if p.IsObjectID() {
			rp.Related = p.RelatedType().String()
		}
		if p.HasStorageProperty() {
			rp.Storage = p.StorageProperty().StorageName()
		}
		rt.Properties = append(rt.Properties, rp)
	}
	return rt
}

// Encode writes s to w.
func Encode(w io.Writer, s *Snapshot) error {
	if err := msgpack.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	s := &Snapshot{}
	if err := msgpack.NewDecoder(r).Decode(s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return s, nil
}

// WriteFile writes s to path.
func WriteFile(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Type returns the recorded type with the given identifier.
func (s *Snapshot) Type(id string) (*Type, bool) {
	for i := range s.Types {
		if s.Types[i].ID == id {
			return &s.Types[i], true
		}
	}
	return nil, false
}
