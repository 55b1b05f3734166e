// Package model defines the feature and schema types shared across the
// categorization pipeline and the feature-store engine.
package model

import "strings"

// Geometry is a WKT-encoded geometry value. The empty string means the
// feature carries no geometry. Parsing happens inside the engine only.
type Geometry string

func (g Geometry) IsEmpty() bool { return strings.TrimSpace(string(g)) == "" }

// FieldType is the logical attribute type of a field. Canonical tokens are
// uppercase; comparisons are case-insensitive so specs read from an external
// store survive mixed-case type names.
type FieldType string

const (
	TypeText     FieldType = "TEXT"
	TypeInteger  FieldType = "INTEGER"
	TypeFloat    FieldType = "FLOAT"
	TypeDouble   FieldType = "DOUBLE"
	TypeDate     FieldType = "DATE"
	TypeOID      FieldType = "OID"
	TypeGlobalID FieldType = "GLOBALID"
	TypeGUID     FieldType = "GUID"
	TypeGeometry FieldType = "GEOMETRY"
)

// Canon returns the uppercase form of the type token.
func (t FieldType) Canon() FieldType {
	return FieldType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// IsIdentity reports whether the field's role is record identity (object ID,
// global ID, GUID). Identity fields are excluded from category and dedup
// logic.
func (t FieldType) IsIdentity() bool {
	switch t.Canon() {
	case TypeOID, TypeGlobalID, TypeGUID:
		return true
	}
	return false
}

func (t FieldType) IsGeometry() bool { return t.Canon() == TypeGeometry }

// FieldSpec describes one attribute field. Zero-valued Length, Precision and
// Scale mean "unset" and are omitted on the wire; a derived output spec must
// never encode them as zero.
type FieldSpec struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Length    int       `json:"length,omitempty"`
	Precision int       `json:"precision,omitempty"`
	Scale     int       `json:"scale,omitempty"`
}

// Feature is a geometry plus a mapping from field name to typed attribute
// value. A field defined on the dataset but absent from Attrs reads as null.
type Feature struct {
	Geometry Geometry         `json:"geometry,omitempty"`
	Attrs    map[string]Value `json:"attrs,omitempty"`
}

// Attr returns the value of the named field, null if unset.
func (f Feature) Attr(name string) Value {
	if f.Attrs == nil {
		return Null()
	}
	v, ok := f.Attrs[name]
	if !ok {
		return Null()
	}
	return v
}

// Clone returns a deep copy of the feature.
func (f Feature) Clone() Feature {
	out := Feature{Geometry: f.Geometry}
	if f.Attrs != nil {
		out.Attrs = make(map[string]Value, len(f.Attrs))
		for k, v := range f.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}
