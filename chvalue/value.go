// Package chvalue defines Value, the tagged union of column cell values
// the wire codec moves in and out of blocks. Types are not strictly
// preserved across the union — String and FixedString both produce a
// String value — so callers that need the original column type consult the
// Type alongside the Value rather than inspecting the Value alone.
package chvalue

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value is implemented by every concrete cell-value type below. It carries
// no methods beyond the marker and String (the literal SQL form) so that
// switches over concrete types (the
// idiomatic Go replacement for Rust's enum match) stay exhaustive and
// explicit at every call site.
type Value interface {
	isValue()
	fmt.Stringer
}

type (
	Int8   int8
	Int16  int16
	Int32  int32
	Int64  int64
	Int128 [16]byte // big-endian two's-complement in-memory form
	Int256 [32]byte // big-endian two's-complement in-memory form

	UInt8   uint8
	UInt16  uint16
	UInt32  uint32
	UInt64  uint64
	UInt128 [16]byte // big-endian in-memory form
	UInt256 [32]byte // big-endian in-memory form

	Float32 float32
	Float64 float64

	Enum8  int8
	Enum16 int16
)

func (Int8) isValue()    {}
func (Int16) isValue()   {}
func (Int32) isValue()   {}
func (Int64) isValue()   {}
func (Int128) isValue()  {}
func (Int256) isValue()  {}
func (UInt8) isValue()   {}
func (UInt16) isValue()  {}
func (UInt32) isValue()  {}
func (UInt64) isValue()  {}
func (UInt128) isValue() {}
func (UInt256) isValue() {}
func (Float32) isValue() {}
func (Float64) isValue() {}
func (Enum8) isValue()   {}
func (Enum16) isValue()  {}

func (v Int8) String() string   { return fmt.Sprintf("%d", int8(v)) }
func (v Int16) String() string  { return fmt.Sprintf("%d", int16(v)) }
func (v Int32) String() string  { return fmt.Sprintf("%d", int32(v)) }
func (v Int64) String() string  { return fmt.Sprintf("%d", int64(v)) }
func (v UInt8) String() string  { return fmt.Sprintf("%d", uint8(v)) }
func (v UInt16) String() string { return fmt.Sprintf("%d", uint16(v)) }
func (v UInt32) String() string { return fmt.Sprintf("%d", uint32(v)) }
func (v UInt64) String() string { return fmt.Sprintf("%d", uint64(v)) }
func (v Enum8) String() string  { return fmt.Sprintf("%d", int8(v)) }
func (v Enum16) String() string { return fmt.Sprintf("%d", int16(v)) }

func (v Int128) String() string  { return BigIntFromBytes(v[:], true).String() }
func (v UInt128) String() string { return BigIntFromBytes(v[:], false).String() }
func (v Int256) String() string  { return BigIntFromBytes(v[:], true).String() }
func (v UInt256) String() string { return BigIntFromBytes(v[:], false).String() }

func (v Float32) String() string { return formatFloat(float64(v), 32) }
func (v Float64) String() string { return formatFloat(float64(v), 64) }

// Decimal32/64/128/256 carry both the runtime scale (digits right of the
// decimal point) and the raw integer mantissa, exactly as the server sends
// them: the scale is metadata, never part of the wire-encoded column body.
type (
	Decimal32  struct {
		Scale    int
		Mantissa int32
	}
	Decimal64 struct {
		Scale    int
		Mantissa int64
	}
	Decimal128 struct {
		Scale    int
		Mantissa Int128
	}
	Decimal256 struct {
		Scale    int
		Mantissa Int256
	}
)

func (Decimal32) isValue()  {}
func (Decimal64) isValue()  {}
func (Decimal128) isValue() {}
func (Decimal256) isValue() {}

func (v Decimal32) String() string  { return formatDecimal(fmt.Sprintf("%d", v.Mantissa), v.Scale) }
func (v Decimal64) String() string  { return formatDecimal(fmt.Sprintf("%d", v.Mantissa), v.Scale) }
func (v Decimal128) String() string {
	return formatDecimal(BigIntFromBytes(v.Mantissa[:], true).String(), v.Scale)
}
func (v Decimal256) String() string {
	return formatDecimal(BigIntFromBytes(v.Mantissa[:], true).String(), v.Scale)
}

// formatDecimal inserts a decimal point `scale` digits from the right of
// the mantissa's text form, matching the original client's Display impl:
// if the text has no more digits than scale, it is left-padded with zeros
// so the integer part reads 0 (mantissa 5 at scale 2 renders as 0.05).
func formatDecimal(raw string, scale int) string {
	neg := strings.HasPrefix(raw, "-")
	if neg {
		raw = raw[1:]
	}
	if len(raw) <= scale {
		raw = strings.Repeat("0", scale-len(raw)+1) + raw
	}
	out := raw[:len(raw)-scale] + "." + raw[len(raw)-scale:]
	if neg {
		out = "-" + out
	}
	return out
}

// String is a raw byte string. The server's String and FixedString column
// types both deserialize into this value; FixedString additionally strips
// trailing NUL bytes on read (see the column package's FixedString decoder).
type String []byte

func (String) isValue() {}
func (v String) String() string {
	var b strings.Builder
	b.WriteByte('\'')
	escapeSQLString(&b, []byte(v))
	b.WriteByte('\'')
	return b.String()
}

// UUID wraps google/uuid.UUID.
type UUID uuid.UUID

func (UUID) isValue()      {}
func (v UUID) String() string { return "'" + uuid.UUID(v).String() + "'" }

// Date is days since the Unix epoch, matching the wire's u16 encoding.
type Date uint16

func (Date) isValue() {}
func (v Date) Time() time.Time {
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(v))
}
func (v Date) String() string { return "'" + v.Time().Format("2006-01-02") + "'" }

// DateTime carries seconds-since-epoch and the timezone the server declared
// for the column (defaulting to UTC when none was present on the wire).
type DateTime struct {
	Seconds  uint32
	Location *time.Location
}

func (DateTime) isValue() {}
func (v DateTime) Time() time.Time {
	loc := v.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(int64(v.Seconds), 0).In(loc)
}
func (v DateTime) String() string {
	return "'" + v.Time().Format(time.RFC3339) + "'"
}

// DateTime64 carries a raw tick count at the column's declared precision
// (number of fractional digits), plus the timezone.
type DateTime64 struct {
	Ticks     uint64
	Precision int
	Location  *time.Location
}

func (DateTime64) isValue() {}
func (v DateTime64) Time() time.Time {
	loc := v.Location
	if loc == nil {
		loc = time.UTC
	}
	scale := pow10(v.Precision)
	sec := int64(v.Ticks) / scale
	frac := int64(v.Ticks) % scale
	nsec := frac * (1_000_000_000 / scale)
	return time.Unix(sec, nsec).In(loc)
}
func (v DateTime64) String() string {
	return fmt.Sprintf("parseDateTime64BestEffort('%s', %d)", v.Time().Format(time.RFC3339Nano), v.Precision)
}

func pow10(n int) int64 {
	out := int64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}

// Ipv4/Ipv6 wrap netip.Addr, which is both comparable (usable as a
// LowCardinality dictionary key) and allocation-free.
type (
	Ipv4 netip.Addr
	Ipv6 netip.Addr
)

func (Ipv4) isValue() {}
func (Ipv6) isValue() {}
func (v Ipv4) String() string { return "'" + netip.Addr(v).String() + "'" }
func (v Ipv6) String() string { return "'" + netip.Addr(v).String() + "'" }

// Array, Tuple, and Map hold nested Values; their element count is the wire
// row count for the containing column, not a separate prefix.
type Array []Value
type Tuple []Value
type Map struct {
	Keys   []Value
	Values []Value
}

func (Array) isValue() {}
func (Tuple) isValue() {}
func (Map) isValue()   {}

func (v Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(item.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (v Tuple) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(item.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (v Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i := range v.Keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.Keys[i].String())
		b.WriteByte(':')
		b.WriteString(v.Values[i].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Null is the sole way to encode an absent cell; serializing it into a
// non-Nullable column substitutes the column type's default value instead
// (see column.JustifyNull).
type nullValue struct{}

func (nullValue) isValue()        {}
func (nullValue) String() string { return "NULL" }

// Null is the single Null value instance.
var Null Value = nullValue{}

// IsNull reports whether v is the Null value.
func IsNull(v Value) bool {
	_, ok := v.(nullValue)
	return ok
}

func escapeSQLString(b *strings.Builder, raw []byte) {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\'':
			b.WriteString(`\'`)
		case c == '\b':
			b.WriteString(`\b`)
		case c == '\f':
			b.WriteString(`\f`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == 0:
			b.WriteString(`\0`)
		case c == 0x07:
			b.WriteString(`\a`)
		case c == 0x0B:
			b.WriteString(`\v`)
		case c < 0x80:
			b.WriteByte(c)
		default:
			fmt.Fprintf(b, `\x%02X`, c)
		}
	}
}

func formatFloat(f float64, bits int) string {
	if f != f { // NaN
		return "nan"
	}
	return fmt.Sprintf("%g", f)
}
