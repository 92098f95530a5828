// Package column implements the per-constructor column codecs: given a
// chtype.Type, encode or decode a whole vector of chvalue.Value using the
// server's columnar layout (prefix bytes, then column body). Every
// composite codec (Array, Tuple, Nullable, Map, LowCardinality) recurses
// through SerializeColumn/DeserializeColumn for its element type(s); Go's
// ordinary call stack stands in for the boxed recursive futures the
// original async implementation needed, since Go has no async-recursion
// restriction to work around.
package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// SerializePrefix writes the type's prefix bytes (empty for most types;
// LowCardinality writes a version word, composites write their element
// prefixes in order).
func SerializePrefix(t *chtype.Type, w wire.Writer) error {
	switch t.Kind {
	case chtype.KindLowCardinality:
		return lowCardinalitySerializePrefix(w)
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		return SerializePrefix(t.Inner, w)
	case chtype.KindNullable:
		return SerializePrefix(t.Inner, w)
	case chtype.KindTuple:
		for _, e := range t.Elems {
			if err := SerializePrefix(e, w); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindMap:
		// Map delegates its prefix to the synthesized Array(Tuple(K,V)).
		return SerializePrefix(chtype.Tuple(t.Key, t.Val), w)
	case chtype.KindPoint:
		return SerializePrefix(chtype.Float64, w)
	default:
		return nil
	}
}

// DeserializePrefix reads the type's prefix bytes, mirroring SerializePrefix.
func DeserializePrefix(t *chtype.Type, r wire.Reader) error {
	switch t.Kind {
	case chtype.KindLowCardinality:
		return lowCardinalityDeserializePrefix(r)
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		return DeserializePrefix(t.Inner, r)
	case chtype.KindNullable:
		return DeserializePrefix(t.Inner, r)
	case chtype.KindTuple:
		for _, e := range t.Elems {
			if err := DeserializePrefix(e, r); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindMap:
		return DeserializePrefix(chtype.Tuple(t.Key, t.Val), r)
	case chtype.KindPoint:
		return DeserializePrefix(chtype.Float64, r)
	default:
		return nil
	}
}

// SerializeColumn writes the column body for values under type t. Any Null
// present in values is justified to t's default value first, unless t
// is itself Nullable (see JustifyNull).
func SerializeColumn(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	switch t.Kind {
	case chtype.KindNullable:
		return serializeNullable(t, values, w)
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		return serializeArray(t, values, w)
	case chtype.KindTuple:
		return serializeTuple(t, values, w)
	case chtype.KindMap:
		return serializeMap(t, values, w)
	case chtype.KindLowCardinality:
		return serializeLowCardinality(t, values, w)
	case chtype.KindString, chtype.KindFixedString:
		return serializeString(t, values, w)
	case chtype.KindPoint:
		return serializePoint(t, values, w)
	default:
		return serializeSized(t, values, w)
	}
}

// DeserializeColumn reads rows values' worth of column body for type t.
func DeserializeColumn(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	switch t.Kind {
	case chtype.KindNullable:
		return deserializeNullable(t, rows, r)
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		return deserializeArray(t, rows, r)
	case chtype.KindTuple:
		return deserializeTuple(t, rows, r)
	case chtype.KindMap:
		return deserializeMap(t, rows, r)
	case chtype.KindLowCardinality:
		return deserializeLowCardinality(t, rows, r)
	case chtype.KindString, chtype.KindFixedString:
		return deserializeString(t, rows, r)
	case chtype.KindPoint:
		return deserializePoint(t, rows, r)
	default:
		return deserializeSized(t, rows, r)
	}
}

// JustifyNull substitutes t's default value for v if v is Null; otherwise
// it returns v unchanged. Every leaf codec applies this to each value
// before encoding, which is the sole mechanism by which a non-Nullable
// column tolerates a stray Null in its input (spec's null-justification
// policy).
func JustifyNull(t *chtype.Type, v chvalue.Value) chvalue.Value {
	if chvalue.IsNull(v) {
		return DefaultValue(t)
	}
	return v
}

// DefaultValue returns the zero value a type serializes for a null
// position: zero for numerics, empty string, the Unix epoch for dates,
// empty containers.
func DefaultValue(t *chtype.Type) chvalue.Value {
	switch t.Kind {
	case chtype.KindInt8:
		return chvalue.Int8(0)
	case chtype.KindInt16:
		return chvalue.Int16(0)
	case chtype.KindInt32:
		return chvalue.Int32(0)
	case chtype.KindInt64:
		return chvalue.Int64(0)
	case chtype.KindInt128:
		return chvalue.Int128{}
	case chtype.KindInt256:
		return chvalue.Int256{}
	case chtype.KindUInt8:
		return chvalue.UInt8(0)
	case chtype.KindUInt16:
		return chvalue.UInt16(0)
	case chtype.KindUInt32:
		return chvalue.UInt32(0)
	case chtype.KindUInt64:
		return chvalue.UInt64(0)
	case chtype.KindUInt128:
		return chvalue.UInt128{}
	case chtype.KindUInt256:
		return chvalue.UInt256{}
	case chtype.KindFloat32:
		return chvalue.Float32(0)
	case chtype.KindFloat64:
		return chvalue.Float64(0)
	case chtype.KindDecimal32:
		return chvalue.Decimal32{Scale: t.Scale}
	case chtype.KindDecimal64:
		return chvalue.Decimal64{Scale: t.Scale}
	case chtype.KindDecimal128:
		return chvalue.Decimal128{Scale: t.Scale}
	case chtype.KindDecimal256:
		return chvalue.Decimal256{Scale: t.Scale}
	case chtype.KindString, chtype.KindFixedString:
		return chvalue.String(nil)
	case chtype.KindUUID:
		return chvalue.UUID{}
	case chtype.KindDate:
		return chvalue.Date(0)
	case chtype.KindDateTime:
		return chvalue.DateTime{Location: t.Location}
	case chtype.KindDateTime64:
		return chvalue.DateTime64{Precision: t.Scale, Location: t.Location}
	case chtype.KindIpv4:
		return chvalue.Ipv4{}
	case chtype.KindIpv6:
		return chvalue.Ipv6{}
	case chtype.KindEnum8:
		return chvalue.Enum8(0)
	case chtype.KindEnum16:
		return chvalue.Enum16(0)
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		return chvalue.Array(nil)
	case chtype.KindTuple:
		elems := make([]chvalue.Value, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = DefaultValue(e)
		}
		return chvalue.Tuple(elems)
	case chtype.KindNullable:
		return chvalue.Null
	case chtype.KindMap:
		return chvalue.Map{}
	case chtype.KindLowCardinality:
		return DefaultValue(t.Inner)
	case chtype.KindPoint:
		return chvalue.Tuple{chvalue.Float64(0), chvalue.Float64(0)}
	default:
		return chvalue.Null
	}
}

// ValidateValue checks the shape of v against column type t: Array, Tuple
// (including arity) and Map structure, recursively, and that a String/
// FixedString column gets a String or a raw byte Array. Null is accepted
// for every type. Scalar column types are not checked; any value is
// accepted for them.
func ValidateValue(t *chtype.Type, v chvalue.Value) error {
	if chvalue.IsNull(v) {
		if t.Kind == chtype.KindNullable {
			return nil
		}
		return nil // justified to default at serialize time
	}
	switch t.Kind {
	case chtype.KindNullable:
		return ValidateValue(t.Inner, v)
	case chtype.KindLowCardinality:
		return ValidateValue(t.Inner, v)
	case chtype.KindString, chtype.KindFixedString:
		switch v.(type) {
		case chvalue.String, chvalue.Array:
			return nil
		default:
			return cherr.NewUnexpectedType(t.String())
		}
	case chtype.KindArray, chtype.KindRing, chtype.KindPolygon, chtype.KindMultiPolygon:
		arr, ok := v.(chvalue.Array)
		if !ok {
			return cherr.NewUnexpectedType(t.String())
		}
		for _, e := range arr {
			if err := ValidateValue(t.Inner, e); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindTuple:
		tup, ok := v.(chvalue.Tuple)
		if !ok || len(tup) != len(t.Elems) {
			return cherr.NewUnexpectedType(t.String())
		}
		for i, e := range tup {
			if err := ValidateValue(t.Elems[i], e); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindMap:
		m, ok := v.(chvalue.Map)
		if !ok {
			return cherr.NewUnexpectedType(t.String())
		}
		for _, k := range m.Keys {
			if err := ValidateValue(t.Key, k); err != nil {
				return err
			}
		}
		for _, val := range m.Values {
			if err := ValidateValue(t.Val, val); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// Guess infers a Type from a bare Value, for callers building ad hoc
// values (argument substitution, untyped INSERT helpers) without a server-
// declared column type. It is best-effort and may not correspond to the
// real column type in any particular table.
func Guess(v chvalue.Value) *chtype.Type {
	switch val := v.(type) {
	case chvalue.Int8:
		return chtype.Int8
	case chvalue.Int16:
		return chtype.Int16
	case chvalue.Int32:
		return chtype.Int32
	case chvalue.Int64:
		return chtype.Int64
	case chvalue.Int128:
		return chtype.Int128
	case chvalue.Int256:
		return chtype.Int256
	case chvalue.UInt8:
		return chtype.UInt8
	case chvalue.UInt16:
		return chtype.UInt16
	case chvalue.UInt32:
		return chtype.UInt32
	case chvalue.UInt64:
		return chtype.UInt64
	case chvalue.UInt128:
		return chtype.UInt128
	case chvalue.UInt256:
		return chtype.UInt256
	case chvalue.Float32:
		return chtype.Float32
	case chvalue.Float64:
		return chtype.Float64
	case chvalue.Decimal32:
		return chtype.Decimal32(val.Scale)
	case chvalue.Decimal64:
		return chtype.Decimal64(val.Scale)
	case chvalue.Decimal128:
		return chtype.Decimal128(val.Scale)
	case chvalue.Decimal256:
		return chtype.Decimal256(val.Scale)
	case chvalue.String:
		return chtype.String
	case chvalue.UUID:
		return chtype.UUID
	case chvalue.Date:
		return chtype.Date
	case chvalue.DateTime:
		return chtype.DateTime(val.Location)
	case chvalue.DateTime64:
		return chtype.DateTime64(val.Precision, val.Location)
	case chvalue.Ipv4:
		return chtype.Ipv4
	case chvalue.Ipv6:
		return chtype.Ipv6
	case chvalue.Array:
		if len(val) == 0 {
			return chtype.Array(chtype.String)
		}
		return chtype.Array(Guess(val[0]))
	case chvalue.Tuple:
		elems := make([]*chtype.Type, len(val))
		for i, e := range val {
			elems[i] = Guess(e)
		}
		return chtype.Tuple(elems...)
	case chvalue.Map:
		kt, vt := chtype.String, chtype.String
		if len(val.Keys) > 0 {
			kt = Guess(val.Keys[0])
		}
		if len(val.Values) > 0 {
			vt = Guess(val.Values[0])
		}
		return chtype.Map(kt, vt)
	default:
		return chtype.Nullable(chtype.String)
	}
}
