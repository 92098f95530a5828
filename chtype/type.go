// Package chtype implements the recursive algebraic type language: parsing
// type descriptor strings the server sends ahead of each column, printing
// them back in canonical form, and validating the structural constraints
// spec'd for composite types. It has no dependency on chvalue — operations
// that need a concrete cell value (default-value synthesis, value/type
// compatibility checks) live in the column package, which already depends
// on both.
package chtype

import (
	"strconv"
	"strings"
	"time"

	"github.com/mickamy/chnative/cherr"
)

// Kind discriminates the recursive Type union.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindInt256
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindUInt256
	KindFloat32
	KindFloat64
	KindDecimal32
	KindDecimal64
	KindDecimal128
	KindDecimal256
	KindString
	KindFixedString
	KindUUID
	KindDate
	KindDateTime
	KindDateTime64
	KindIpv4
	KindIpv6
	KindEnum8
	KindEnum16
	KindPoint
	KindRing
	KindPolygon
	KindMultiPolygon
	KindLowCardinality
	KindArray
	KindTuple
	KindNullable
	KindMap
)

// EnumEntry is one name=value pair of an Enum8/Enum16 type. Enum types can
// be constructed programmatically (e.g. to describe a column for INSERT)
// but are never parsed from a string: the server does not send literal
// enum variants over this protocol and the original client rejects the
// syntax outright, a constraint this parser preserves unchanged.
type EnumEntry struct {
	Name  string
	Value int16
}

// Type is a recursive, immutable type descriptor. Once parsed it is never
// mutated — block columns clone the relevant subtree by reference, not by
// deep copy, matching the "parsed once, never mutated" lifecycle spec'd for
// the component.
type Type struct {
	Kind Kind

	FixedLen int // FixedString(N)

	Scale int // Decimal{32,64,128,256} scale, or DateTime64 precision

	Location *time.Location // DateTime / DateTime64

	Enum []EnumEntry // Enum8 / Enum16

	Inner *Type // Array(T) / Nullable(T) / LowCardinality(T) / Ring / Polygon / MultiPolygon element

	Key *Type // Map(K, V)
	Val *Type // Map(K, V)

	Elems []*Type // Tuple(T1, ..., Tn)
}

var (
	Int8    = &Type{Kind: KindInt8}
	Int16   = &Type{Kind: KindInt16}
	Int32   = &Type{Kind: KindInt32}
	Int64   = &Type{Kind: KindInt64}
	Int128  = &Type{Kind: KindInt128}
	Int256  = &Type{Kind: KindInt256}
	UInt8   = &Type{Kind: KindUInt8}
	UInt16  = &Type{Kind: KindUInt16}
	UInt32  = &Type{Kind: KindUInt32}
	UInt64  = &Type{Kind: KindUInt64}
	UInt128 = &Type{Kind: KindUInt128}
	UInt256 = &Type{Kind: KindUInt256}
	Float32 = &Type{Kind: KindFloat32}
	Float64 = &Type{Kind: KindFloat64}
	String  = &Type{Kind: KindString}
	UUID    = &Type{Kind: KindUUID}
	Date    = &Type{Kind: KindDate}
	Ipv4    = &Type{Kind: KindIpv4}
	Ipv6    = &Type{Kind: KindIpv6}
)

// FixedString constructs a FixedString(n) type.
func FixedString(n int) *Type { return &Type{Kind: KindFixedString, FixedLen: n} }

// DateTime constructs a DateTime(tz) type; tz must not be nil (UTC when the
// server omitted one — see Parse).
func DateTime(loc *time.Location) *Type { return &Type{Kind: KindDateTime, Location: loc} }

// DateTime64 constructs a DateTime64(precision, tz) type.
func DateTime64(precision int, loc *time.Location) *Type {
	return &Type{Kind: KindDateTime64, Scale: precision, Location: loc}
}

func Decimal32(scale int) *Type  { return &Type{Kind: KindDecimal32, Scale: scale} }
func Decimal64(scale int) *Type  { return &Type{Kind: KindDecimal64, Scale: scale} }
func Decimal128(scale int) *Type { return &Type{Kind: KindDecimal128, Scale: scale} }
func Decimal256(scale int) *Type { return &Type{Kind: KindDecimal256, Scale: scale} }

func NewEnum8(entries []EnumEntry) *Type  { return &Type{Kind: KindEnum8, Enum: entries} }
func NewEnum16(entries []EnumEntry) *Type { return &Type{Kind: KindEnum16, Enum: entries} }

func Array(inner *Type) *Type          { return &Type{Kind: KindArray, Inner: inner} }
func Nullable(inner *Type) *Type       { return &Type{Kind: KindNullable, Inner: inner} }
func LowCardinality(inner *Type) *Type { return &Type{Kind: KindLowCardinality, Inner: inner} }
func Tuple(elems ...*Type) *Type       { return &Type{Kind: KindTuple, Elems: elems} }
func Map(key, val *Type) *Type         { return &Type{Kind: KindMap, Key: key, Val: val} }

// Point/Ring/Polygon/MultiPolygon are geo aliases. Point has its own Kind
// and codec: two Float64 columns (x, then y), with values carried as
// 2-element Tuples. Ring/Polygon/MultiPolygon also carry a distinct Kind so
// the column codecs can tag the resulting Values, but they delegate entirely
// to the generic array codec parameterized on their inner element type.
var Point = &Type{Kind: KindPoint}

func Ring() *Type         { return &Type{Kind: KindRing, Inner: Point} }
func Polygon() *Type      { return &Type{Kind: KindPolygon, Inner: Ring()} }
func MultiPolygon() *Type { return &Type{Kind: KindMultiPolygon, Inner: Polygon()} }

// Unwrap returns the element type of Array/Nullable/LowCardinality/Ring/
// Polygon/MultiPolygon, or nil otherwise.
func (t *Type) Unwrap() *Type { return t.Inner }

// StripNull returns the inner type if t is Nullable, otherwise t itself.
func (t *Type) StripNull() *Type {
	if t.Kind == KindNullable {
		return t.Inner
	}
	return t
}

// IsNullable reports whether t is Nullable(...).
func (t *Type) IsNullable() bool { return t.Kind == KindNullable }

// StripLowCardinality returns the inner type if t is LowCardinality(...),
// otherwise t itself.
func (t *Type) StripLowCardinality() *Type {
	if t.Kind == KindLowCardinality {
		return t.Inner
	}
	return t
}

// Equal reports structural equality, used by the type-print/parse
// round-trip property.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindFixedString:
		return t.FixedLen == o.FixedLen
	case KindDecimal32, KindDecimal64, KindDecimal128, KindDecimal256:
		return t.Scale == o.Scale
	case KindDateTime:
		return t.Location.String() == o.Location.String()
	case KindDateTime64:
		return t.Scale == o.Scale && t.Location.String() == o.Location.String()
	case KindEnum8, KindEnum16:
		if len(t.Enum) != len(o.Enum) {
			return false
		}
		for i := range t.Enum {
			if t.Enum[i] != o.Enum[i] {
				return false
			}
		}
		return true
	case KindArray, KindNullable, KindLowCardinality, KindRing, KindPolygon, KindMultiPolygon:
		return t.Inner.Equal(o.Inner)
	case KindMap:
		return t.Key.Equal(o.Key) && t.Val.Equal(o.Val)
	case KindTuple:
		if len(t.Elems) != len(o.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the canonical printed form the server expects to see
// again, e.g. "DateTime('UTC')", "Decimal64(5)", "Map(String,UInt32)".
func (t *Type) String() string {
	var b strings.Builder
	t.print(&b)
	return b.String()
}

func (t *Type) print(b *strings.Builder) {
	switch t.Kind {
	case KindInt8:
		b.WriteString("Int8")
	case KindInt16:
		b.WriteString("Int16")
	case KindInt32:
		b.WriteString("Int32")
	case KindInt64:
		b.WriteString("Int64")
	case KindInt128:
		b.WriteString("Int128")
	case KindInt256:
		b.WriteString("Int256")
	case KindUInt8:
		b.WriteString("UInt8")
	case KindUInt16:
		b.WriteString("UInt16")
	case KindUInt32:
		b.WriteString("UInt32")
	case KindUInt64:
		b.WriteString("UInt64")
	case KindUInt128:
		b.WriteString("UInt128")
	case KindUInt256:
		b.WriteString("UInt256")
	case KindFloat32:
		b.WriteString("Float32")
	case KindFloat64:
		b.WriteString("Float64")
	case KindDecimal32:
		b.WriteString("Decimal32(")
		b.WriteString(strconv.Itoa(t.Scale))
		b.WriteString(")")
	case KindDecimal64:
		b.WriteString("Decimal64(")
		b.WriteString(strconv.Itoa(t.Scale))
		b.WriteString(")")
	case KindDecimal128:
		b.WriteString("Decimal128(")
		b.WriteString(strconv.Itoa(t.Scale))
		b.WriteString(")")
	case KindDecimal256:
		b.WriteString("Decimal256(")
		b.WriteString(strconv.Itoa(t.Scale))
		b.WriteString(")")
	case KindString:
		b.WriteString("String")
	case KindFixedString:
		b.WriteString("FixedString(")
		b.WriteString(strconv.Itoa(t.FixedLen))
		b.WriteString(")")
	case KindUUID:
		b.WriteString("UUID")
	case KindDate:
		b.WriteString("Date")
	case KindDateTime:
		b.WriteString("DateTime('")
		b.WriteString(t.Location.String())
		b.WriteString("')")
	case KindDateTime64:
		b.WriteString("DateTime64(")
		b.WriteString(strconv.Itoa(t.Scale))
		b.WriteString(", '")
		b.WriteString(t.Location.String())
		b.WriteString("')")
	case KindIpv4:
		b.WriteString("IPv4")
	case KindIpv6:
		b.WriteString("IPv6")
	case KindEnum8, KindEnum16:
		if t.Kind == KindEnum8 {
			b.WriteString("Enum8(")
		} else {
			b.WriteString("Enum16(")
		}
		for i, e := range t.Enum {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(e.Name)
			b.WriteString("=")
			b.WriteString(strconv.Itoa(int(e.Value)))
		}
		b.WriteString(")")
	case KindPoint:
		b.WriteString("Point")
	case KindRing:
		b.WriteString("Ring")
	case KindPolygon:
		b.WriteString("Polygon")
	case KindMultiPolygon:
		b.WriteString("MultiPolygon")
	case KindLowCardinality:
		b.WriteString("LowCardinality(")
		t.Inner.print(b)
		b.WriteString(")")
	case KindArray:
		b.WriteString("Array(")
		t.Inner.print(b)
		b.WriteString(")")
	case KindTuple:
		b.WriteString("Tuple(")
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(",")
			}
			e.print(b)
		}
		b.WriteString(")")
	case KindNullable:
		b.WriteString("Nullable(")
		t.Inner.print(b)
		b.WriteString(")")
	case KindMap:
		b.WriteString("Map(")
		t.Key.print(b)
		b.WriteString(",")
		t.Val.print(b)
		b.WriteString(")")
	}
}

// Validate checks the structural constraints spec'd for composite types:
// Decimal scale bounds, DateTime64 precision bounds, Nullable's forbidden
// inner kinds, Map's key-type whitelist, and LowCardinality's inner-type
// whitelist.
func (t *Type) Validate() error {
	switch t.Kind {
	case KindDecimal32:
		return checkScale(t.Scale, 1, 9)
	case KindDecimal64:
		return checkScale(t.Scale, 1, 18)
	case KindDecimal128:
		return checkScale(t.Scale, 1, 38)
	case KindDecimal256:
		return checkScale(t.Scale, 1, 76)
	case KindDateTime64:
		return checkScale(t.Scale, 1, 18)
	case KindNullable:
		switch t.Inner.Kind {
		case KindArray, KindMap, KindTuple, KindLowCardinality, KindNullable:
			return cherr.NewTypeParse("Nullable may not wrap %s", t.Inner)
		}
		return t.Inner.Validate()
	case KindArray:
		return t.Inner.Validate()
	case KindTuple:
		for _, e := range t.Elems {
			if err := e.Validate(); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if !isValidMapKey(t.Key) {
			return cherr.NewTypeParse("Map key type %s is not allowed", t.Key)
		}
		if err := t.Key.Validate(); err != nil {
			return err
		}
		return t.Val.Validate()
	case KindLowCardinality:
		inner := t.Inner.StripNull()
		if !isValidLowCardinalityInner(inner) {
			return cherr.NewTypeParse("LowCardinality inner type %s is not allowed", inner)
		}
		return inner.Validate()
	default:
		return nil
	}
}

func checkScale(scale, lo, hi int) error {
	if scale < lo || scale > hi {
		return cherr.NewTypeParse("scale/precision %d out of range [%d,%d]", scale, lo, hi)
	}
	return nil
}

func isValidMapKey(t *Type) bool {
	switch t.Kind {
	case KindString, KindFixedString,
		KindInt8, KindInt16, KindInt32, KindInt64, KindInt128, KindInt256,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64, KindUInt128, KindUInt256,
		KindUUID, KindDate, KindDateTime, KindDateTime64, KindEnum8, KindEnum16:
		return true
	case KindLowCardinality:
		return isValidMapKey(t.Inner.StripNull())
	default:
		return false
	}
}

func isValidLowCardinalityInner(t *Type) bool {
	switch t.Kind {
	case KindString, KindFixedString, KindDate, KindDateTime, KindIpv4, KindIpv6,
		KindInt8, KindInt16, KindInt32, KindInt64, KindInt128, KindInt256,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64, KindUInt128, KindUInt256:
		return true
	default:
		return false
	}
}
