// Package cherr defines the error taxonomy shared by every layer of the
// client: wire codec, type system, and session actor all return errors
// built from the kinds below instead of bare fmt.Errorf strings, so callers
// can discriminate with errors.As.
package cherr

import "fmt"

// Protocol reports a malformed frame: bad varuint, oversize string, checksum
// mismatch, unknown packet id, or bad compression header.
type Protocol struct {
	Message string
}

func (e *Protocol) Error() string { return "protocol: " + e.Message }

func NewProtocol(format string, args ...any) error {
	return &Protocol{Message: fmt.Sprintf(format, args...)}
}

// TypeParse reports an unknown or malformed type descriptor string.
type TypeParse struct {
	Message string
}

func (e *TypeParse) Error() string { return "type parse: " + e.Message }

func NewTypeParse(format string, args ...any) error {
	return &TypeParse{Message: fmt.Sprintf(format, args...)}
}

// Deserialize reports that a value read off the wire cannot be converted to
// the target Go type. Column, when non-empty, names the offending column.
type Deserialize struct {
	Message string
	Column  string
}

func (e *Deserialize) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("deserialize column %q: %s", e.Column, e.Message)
	}
	return "deserialize: " + e.Message
}

func NewDeserialize(format string, args ...any) error {
	return &Deserialize{Message: fmt.Sprintf(format, args...)}
}

// WithColumn returns a copy of the error annotated with a column name, when
// the underlying error supports it. Mirrors klickhouse's with_column_name:
// Deserialize and UnexpectedType gain a column; everything else passes
// through unchanged.
func WithColumn(err error, name string) error {
	switch e := err.(type) {
	case *Deserialize:
		cp := *e
		cp.Column = name
		return &cp
	case *UnexpectedType:
		cp := *e
		cp.Column = name
		return &cp
	default:
		return err
	}
}

// Serialize reports that a Go value cannot be converted to a column value.
type Serialize struct {
	Message string
}

func (e *Serialize) Error() string { return "serialize: " + e.Message }

func NewSerialize(format string, args ...any) error {
	return &Serialize{Message: fmt.Sprintf(format, args...)}
}

// UnexpectedType reports that a value's shape does not match the Type it is
// being validated or serialized against.
type UnexpectedType struct {
	TypeName string
	Column   string
}

func (e *UnexpectedType) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("unexpected type for column %q: %s", e.Column, e.TypeName)
	}
	return "unexpected type: " + e.TypeName
}

func NewUnexpectedType(typeName string) error {
	return &UnexpectedType{TypeName: typeName}
}

// MissingField reports a Row implementation that asked for a column which
// was not present in the block.
type MissingField struct{ Name string }

func (e *MissingField) Error() string { return "missing field: " + e.Name }

// DuplicateField reports two columns in one block sharing a name that a Row
// implementation needed to be unique.
type DuplicateField struct{ Name string }

func (e *DuplicateField) Error() string { return "duplicate field: " + e.Name }

// MissingRow is returned when a result stream ends (or its connection is
// torn down) before a caller's Row could be produced.
var MissingRow = &sentinel{"missing row"}

// OutOfBounds is returned by block/column accessors indexed past their
// length.
var OutOfBounds = &sentinel{"out of bounds"}

// DoubleFetch is returned when a one-shot result (such as a scalar query)
// is read more than once.
var DoubleFetch = &sentinel{"double fetch"}

type sentinel struct{ msg string }

func (s *sentinel) Error() string { return s.msg }

// ServerException is a verbatim relay of a server Exception packet. Only
// the outermost exception in a possibly-nested chain is surfaced: the nested
// frames are read off the wire and discarded, and HasNested records whether
// the outermost frame declared any.
type ServerException struct {
	Code       int32
	Name       string
	Message    string
	StackTrace string
	HasNested  bool
}

func (e *ServerException) Error() string {
	return fmt.Sprintf("server exception (%d) %s: %s", e.Code, e.Name, e.Message)
}
