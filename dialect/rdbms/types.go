package rdbms

import (
	"ariga.io/atlas/sql/schema"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

const (
	classIDSize    = 100
	decimalDigits  = 36
	decimalScale   = 18
	mysqlStringLen = 255
	uuidLen        = 36
)

func (d Dialect) idType() schema.Type {
	if d == SQLite {
		return &schema.IntegerType{T: "integer"}
	}
	return &schema.IntegerType{T: "bigint"}
}

func (d Dialect) classIDType() schema.Type {
	return &schema.StringType{T: "varchar", Size: classIDSize}
}

// ColumnType returns the column type storing values of property p.
func (d Dialect) ColumnType(p *graph.PropertyDefinition) schema.Type {
	size, sized := p.MaxLength()
	switch p.ValueType() {
	case load.TypeObject, load.TypeInt64:
		return d.idType()
	case load.TypeInt32:
		if d == MySQL {
			return &schema.IntegerType{T: "int"}
		}
		return &schema.IntegerType{T: "integer"}
	case load.TypeBool:
		return &schema.BoolType{T: "boolean"}
	case load.TypeFloat64:
		switch d {
		case Postgres:
			return &schema.FloatType{T: "double precision"}
		case MySQL:
			return &schema.FloatType{T: "double"}
		}
		return &schema.FloatType{T: "real"}
	case load.TypeDecimal:
		t := "decimal"
		if d == Postgres {
			t = "numeric"
		}
		return &schema.DecimalType{T: t, Precision: decimalDigits, Scale: decimalScale}
	case load.TypeTime:
		switch d {
		case Postgres:
			return &schema.TimeType{T: "timestamptz"}
		case MySQL:
			return &schema.TimeType{T: "datetime"}
		}
		return &schema.TimeType{T: "datetime"}
	case load.TypeUUID:
		switch d {
		case Postgres:
			return &schema.UUIDType{T: "uuid"}
		case MySQL:
			return &schema.StringType{T: "char", Size: uuidLen}
		}
		return &schema.StringType{T: "text"}
	case load.TypeJSON:
		if d == Postgres {
			return &schema.JSONType{T: "jsonb"}
		}
		return &schema.JSONType{T: "json"}
	case load.TypeBytes:
		switch {
		case d == Postgres:
			return &schema.BinaryType{T: "bytea"}
		case d == MySQL && sized:
			return &schema.BinaryType{T: "varbinary", Size: &size}
		}
		return &schema.BinaryType{T: "blob"}
	default:
		switch {
		case d == SQLite:
			return &schema.StringType{T: "text"}
		case sized:
			return &schema.StringType{T: "varchar", Size: size}
		case d == MySQL:
			return &schema.StringType{T: "varchar", Size: mysqlStringLen}
		}
		return &schema.StringType{T: "text"}
	}
}
