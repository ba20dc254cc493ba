package snapshot

import (
	"fmt"
	"slices"
	"strings"
)

// ChangeKind classifies a change between two snapshots.
type ChangeKind uint8

// Change kinds.
const (
	TypeAdded ChangeKind = iota
	TypeRemoved
	TypeChanged
	PropertyAdded
	PropertyRemoved
	PropertyChanged
	RelationAdded
	RelationRemoved
	RelationChanged
)

var kindNames = [...]string{
	TypeAdded:       "type added",
	TypeRemoved:     "type removed",
	TypeChanged:     "type changed",
	PropertyAdded:   "property added",
	PropertyRemoved: "property removed",
	PropertyChanged: "property changed",
	RelationAdded:   "relation added",
	RelationRemoved: "relation removed",
	RelationChanged: "relation changed",
}

// String returns the kind name.
func (k ChangeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Change is one difference between two snapshots.
type Change struct {
	Kind ChangeKind
	// Subject is the type, property or relation identifier.
	Subject string
	Detail  string
	// Breaking reports whether data or code written against the old mapping
	// may not work with the new one.
	Breaking bool
}

// String returns a one-line description of the change.
func (c Change) String() string {
	var b strings.Builder
	if c.Breaking {
		b.WriteString("BREAKING ")
	}
	b.WriteString(c.Kind.String())
	b.WriteString(": ")
	b.WriteString(c.Subject)
	if c.Detail != "" {
		b.WriteString(" (")
		b.WriteString(c.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// Changes is the result of Diff.
type Changes []Change

// Breaking returns the breaking changes.
func (cs Changes) Breaking() Changes {
	var out Changes
	for _, c := range cs {
		if c.Breaking {
			out = append(out, c)
		}
	}
	return out
}

// HasBreaking reports whether any change is breaking.
func (cs Changes) HasBreaking() bool {
	return slices.ContainsFunc(cs, func(c Change) bool { return c.Breaking })
}

// Diff returns the changes from old to cur, types first, in the order of
// the snapshots.
func Diff(old, cur *Snapshot) Changes {
	var cs Changes
	for _, ot := range old.Types {
		nt, ok := cur.Type(ot.ID)
		if !ok {
			cs = append(cs, Change{Kind: TypeRemoved, Subject: ot.ID, Breaking: true})
			continue
		}
		cs = append(cs, diffType(&ot, nt)...)
	}
	for _, nt := range cur.Types {
		if _, ok := old.Type(nt.ID); !ok {
			cs = append(cs, Change{Kind: TypeAdded, Subject: nt.ID})
		}
	}
	cs = append(cs, diffRelations(old.Relations, cur.Relations)...)
	return cs
}

func diffType(ot, nt *Type) Changes {
	var cs Changes
	changed := func(detail string, breaking bool) {
		cs = append(cs, Change{Kind: TypeChanged, Subject: ot.ID, Detail: detail, Breaking: breaking})
	}
	if ot.Interface != nt.Interface {
		changed("kind changed", true)
		return cs
	}
	if ot.ClassID != nt.ClassID {
		changed(fmt.Sprintf("class ID %q became %q", ot.ClassID, nt.ClassID), true)
	}
	if ot.Base != nt.Base {
		changed(fmt.Sprintf("base %s became %s", orNone(ot.Base), orNone(nt.Base)), true)
	}
	if !ot.Abstract && nt.Abstract {
		changed("became abstract", true)
	} else if ot.Abstract && !nt.Abstract {
		changed("became concrete", false)
	}
	if ot.Storage != nt.Storage {
		changed(fmt.Sprintf("storage %s became %s", orNone(ot.Storage), orNone(nt.Storage)), true)
	}
	for _, i := range ot.Interfaces {
		if !slices.Contains(nt.Interfaces, i) {
			changed("no longer implements "+i, true)
		}
	}
	for _, i := range nt.Interfaces {
		if !slices.Contains(ot.Interfaces, i) {
			changed("implements "+i, false)
		}
	}

	for _, op := range ot.Properties {
		np, ok := property(nt, op.Name)
		if !ok {
			cs = append(cs, Change{Kind: PropertyRemoved, Subject: op.Name, Breaking: true})
			continue
		}
		cs = append(cs, diffProperty(&op, np)...)
	}
	for _, np := range nt.Properties {
		if _, ok := property(ot, np.Name); !ok {
			// Existing rows have no value for a new mandatory property.
			cs = append(cs, Change{
				Kind:     PropertyAdded,
				Subject:  np.Name,
				Breaking: !np.Nullable && !nt.Interface,
			})
		}
	}
	return cs
}

func diffProperty(op, np *Property) Changes {
	var cs Changes
	changed := func(detail string, breaking bool) {
		cs = append(cs, Change{Kind: PropertyChanged, Subject: op.Name, Detail: detail, Breaking: breaking})
	}
	if op.Type != np.Type {
		changed(fmt.Sprintf("type %s became %s", op.Type, np.Type), true)
	}
	if op.Related != np.Related {
		changed(fmt.Sprintf("related type %s became %s", orNone(op.Related), orNone(np.Related)), true)
	}
	if op.Nullable && !np.Nullable {
		changed("became mandatory", true)
	} else if !op.Nullable && np.Nullable {
		changed("became nullable", false)
	}
	switch {
	case op.MaxLength == np.MaxLength:
	case np.MaxLength == 0:
		changed(fmt.Sprintf("max length %d removed", op.MaxLength), false)
	case op.MaxLength == 0 || np.MaxLength < op.MaxLength:
		changed(fmt.Sprintf("max length %s became %d", maxLength(op.MaxLength), np.MaxLength), true)
	default:
		changed(fmt.Sprintf("max length %d became %d", op.MaxLength, np.MaxLength), false)
	}
	if op.Storage != np.Storage {
		changed(fmt.Sprintf("storage %s became %s", orNone(op.Storage), orNone(np.Storage)), true)
	}
	return cs
}

func diffRelations(old, cur []Relation) Changes {
	var cs Changes
	index := make(map[string]*Relation, len(cur))
	for i := range cur {
		index[cur[i].ID] = &cur[i]
	}
	seen := make(map[string]bool, len(old))
	for _, or := range old {
		seen[or.ID] = true
		nr, ok := index[or.ID]
		switch {
		case !ok:
			cs = append(cs, Change{Kind: RelationRemoved, Subject: or.ID, Breaking: true})
		case or.Kind != nr.Kind:
			cs = append(cs, Change{
				Kind:     RelationChanged,
				Subject:  or.ID,
				Detail:   fmt.Sprintf("kind %s became %s", or.Kind, nr.Kind),
				Breaking: true,
			})
		case or.Ends != nr.Ends:
			cs = append(cs, Change{Kind: RelationChanged, Subject: or.ID, Detail: "end points changed", Breaking: true})
		}
	}
	for _, nr := range cur {
		if !seen[nr.ID] {
			cs = append(cs, Change{Kind: RelationAdded, Subject: nr.ID})
		}
	}
	return cs
}

func property(t *Type, name string) (*Property, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func maxLength(n int) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}
