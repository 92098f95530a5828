// Package chrow defines the small contract a user record type implements
// to be produced and consumed by chclient's typed query and insert
// helpers, without pulling in a reflection-based ORM layer.
package chrow

import (
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
)

// Field pairs one column's name, declared type, and cell value — exactly
// what DeserializeRow is handed for one row, and what SerializeRow must
// produce for one.
type Field struct {
	Name  string
	Type  *chtype.Type
	Value chvalue.Value
}

// Row is implemented by a record type's pointer receiver, consumed by
// chclient.Query to project one result row into *R.
type Row interface {
	// DeserializeRow populates the receiver from one row's fields, in
	// the block's column order. Implementations that need a column by
	// name rather than position should scan fields for it themselves;
	// a missing required column should return cherr.MissingField.
	DeserializeRow(fields []Field) error
}

// Writer is implemented by a record type, consumed by
// chclient.InsertTyped to turn one record into the fields of one row.
type Writer interface {
	// SerializeRow returns this record's column name/value pairs, in
	// any order — InsertTyped matches them against the target table's
	// column names, not field position.
	SerializeRow() ([]Field, error)
}

// ColumnNamer is optionally implemented by a Writer to list a record type's
// columns. InsertTyped does not consult it: inserted blocks always follow
// the column order of the server's header block.
type ColumnNamer interface {
	ColumnNames() []string
}
