package column

import (
	"encoding/binary"
	"math"
	"net/netip"

	"github.com/google/uuid"

	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeSized and deserializeSized handle every fixed-width scalar type:
// integers, floats, Decimal{32,64,128,256}, Date/DateTime/DateTime64, UUID,
// Ipv4/Ipv6, and Enum{8,16}. Int256/UInt256/Decimal256 share the 32-byte
// codepath with a byte-order reversal (see write256/read256).
func serializeSized(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	for _, raw := range values {
		v := JustifyNull(t, raw)
		if err := writeOne(t, v, w); err != nil {
			return err
		}
	}
	return nil
}

func deserializeSized(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	out := make([]chvalue.Value, 0, rows)
	for i := uint64(0); i < rows; i++ {
		v, err := readOne(t, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func writeOne(t *chtype.Type, v chvalue.Value, w wire.Writer) error {
	switch t.Kind {
	case chtype.KindInt8:
		return wire.WriteU8(w, uint8(mustInt8(v)))
	case chtype.KindUInt8:
		return wire.WriteU8(w, uint8(mustUInt8(v)))
	case chtype.KindInt16:
		return wire.WriteU16(w, uint16(mustInt16(v)))
	case chtype.KindUInt16:
		return wire.WriteU16(w, uint16(mustUInt16(v)))
	case chtype.KindInt32:
		return wire.WriteU32(w, uint32(mustInt32(v)))
	case chtype.KindUInt32:
		return wire.WriteU32(w, uint32(mustUInt32(v)))
	case chtype.KindInt64:
		return wire.WriteU64(w, uint64(mustInt64(v)))
	case chtype.KindUInt64:
		return wire.WriteU64(w, mustUInt64(v))
	case chtype.KindInt128:
		return write128(w, mustBytes16(v))
	case chtype.KindUInt128:
		return write128(w, mustBytes16(v))
	case chtype.KindInt256:
		return write256(w, mustBytes32(v))
	case chtype.KindUInt256:
		return write256(w, mustBytes32(v))
	case chtype.KindFloat32:
		f, ok := v.(chvalue.Float32)
		if !ok {
			return cherr.NewSerialize("expected Float32, got %T", v)
		}
		return wire.WriteU32(w, math.Float32bits(float32(f)))
	case chtype.KindFloat64:
		f, ok := v.(chvalue.Float64)
		if !ok {
			return cherr.NewSerialize("expected Float64, got %T", v)
		}
		return wire.WriteU64(w, math.Float64bits(float64(f)))
	case chtype.KindDecimal32:
		d, ok := v.(chvalue.Decimal32)
		if !ok {
			return cherr.NewSerialize("expected Decimal32, got %T", v)
		}
		return wire.WriteU32(w, uint32(d.Mantissa))
	case chtype.KindDecimal64:
		d, ok := v.(chvalue.Decimal64)
		if !ok {
			return cherr.NewSerialize("expected Decimal64, got %T", v)
		}
		return wire.WriteU64(w, uint64(d.Mantissa))
	case chtype.KindDecimal128:
		d, ok := v.(chvalue.Decimal128)
		if !ok {
			return cherr.NewSerialize("expected Decimal128, got %T", v)
		}
		return write128(w, d.Mantissa[:])
	case chtype.KindDecimal256:
		d, ok := v.(chvalue.Decimal256)
		if !ok {
			return cherr.NewSerialize("expected Decimal256, got %T", v)
		}
		return write256(w, d.Mantissa[:])
	case chtype.KindUUID:
		u, ok := v.(chvalue.UUID)
		if !ok {
			return cherr.NewSerialize("expected UUID, got %T", v)
		}
		b := uuid.UUID(u)
		hi := binary.BigEndian.Uint64(b[0:8])
		lo := binary.BigEndian.Uint64(b[8:16])
		if err := wire.WriteU64(w, hi); err != nil {
			return err
		}
		return wire.WriteU64(w, lo)
	case chtype.KindDate:
		d, ok := v.(chvalue.Date)
		if !ok {
			return cherr.NewSerialize("expected Date, got %T", v)
		}
		return wire.WriteU16(w, uint16(d))
	case chtype.KindDateTime:
		d, ok := v.(chvalue.DateTime)
		if !ok {
			return cherr.NewSerialize("expected DateTime, got %T", v)
		}
		return wire.WriteU32(w, d.Seconds)
	case chtype.KindDateTime64:
		d, ok := v.(chvalue.DateTime64)
		if !ok {
			return cherr.NewSerialize("expected DateTime64, got %T", v)
		}
		return wire.WriteU64(w, d.Ticks)
	case chtype.KindIpv4:
		a, ok := v.(chvalue.Ipv4)
		if !ok {
			return cherr.NewSerialize("expected Ipv4, got %T", v)
		}
		addr := netip.Addr(a)
		b4 := addr.As4()
		// The wire carries the address as a little-endian u32 of the
		// dotted-quad big-endian byte order: reinterpreting the 4 octets
		// as network-order bytes, then writing that u32 little-endian.
		n := binary.BigEndian.Uint32(b4[:])
		return wire.WriteU32(w, n)
	case chtype.KindIpv6:
		a, ok := v.(chvalue.Ipv6)
		if !ok {
			return cherr.NewSerialize("expected Ipv6, got %T", v)
		}
		addr := netip.Addr(a)
		b16 := addr.As16()
		_, err := w.Write(b16[:])
		if err != nil {
			return err
		}
		return nil
	case chtype.KindEnum8:
		e, ok := v.(chvalue.Enum8)
		if !ok {
			return cherr.NewSerialize("expected Enum8, got %T", v)
		}
		return wire.WriteU8(w, uint8(e))
	case chtype.KindEnum16:
		e, ok := v.(chvalue.Enum16)
		if !ok {
			return cherr.NewSerialize("expected Enum16, got %T", v)
		}
		return wire.WriteU16(w, uint16(e))
	default:
		return cherr.NewSerialize("unsupported sized type %s", t)
	}
}

func readOne(t *chtype.Type, r wire.Reader) (chvalue.Value, error) {
	switch t.Kind {
	case chtype.KindInt8:
		u, err := wire.ReadU8(r)
		return chvalue.Int8(int8(u)), err
	case chtype.KindUInt8:
		u, err := wire.ReadU8(r)
		return chvalue.UInt8(u), err
	case chtype.KindInt16:
		u, err := wire.ReadU16(r)
		return chvalue.Int16(int16(u)), err
	case chtype.KindUInt16:
		u, err := wire.ReadU16(r)
		return chvalue.UInt16(u), err
	case chtype.KindInt32:
		u, err := wire.ReadU32(r)
		return chvalue.Int32(int32(u)), err
	case chtype.KindUInt32:
		u, err := wire.ReadU32(r)
		return chvalue.UInt32(u), err
	case chtype.KindInt64:
		u, err := wire.ReadU64(r)
		return chvalue.Int64(int64(u)), err
	case chtype.KindUInt64:
		u, err := wire.ReadU64(r)
		return chvalue.UInt64(u), err
	case chtype.KindInt128:
		b, err := read128(r)
		if err != nil {
			return nil, err
		}
		var out chvalue.Int128
		copy(out[:], b)
		return out, nil
	case chtype.KindUInt128:
		b, err := read128(r)
		if err != nil {
			return nil, err
		}
		var out chvalue.UInt128
		copy(out[:], b)
		return out, nil
	case chtype.KindInt256:
		b, err := read256(r)
		if err != nil {
			return nil, err
		}
		var out chvalue.Int256
		copy(out[:], b)
		return out, nil
	case chtype.KindUInt256:
		b, err := read256(r)
		if err != nil {
			return nil, err
		}
		var out chvalue.UInt256
		copy(out[:], b)
		return out, nil
	case chtype.KindFloat32:
		u, err := wire.ReadU32(r)
		return chvalue.Float32(math.Float32frombits(u)), err
	case chtype.KindFloat64:
		u, err := wire.ReadU64(r)
		return chvalue.Float64(math.Float64frombits(u)), err
	case chtype.KindDecimal32:
		u, err := wire.ReadU32(r)
		return chvalue.Decimal32{Scale: t.Scale, Mantissa: int32(u)}, err
	case chtype.KindDecimal64:
		u, err := wire.ReadU64(r)
		return chvalue.Decimal64{Scale: t.Scale, Mantissa: int64(u)}, err
	case chtype.KindDecimal128:
		b, err := read128(r)
		if err != nil {
			return nil, err
		}
		var m chvalue.Int128
		copy(m[:], b)
		return chvalue.Decimal128{Scale: t.Scale, Mantissa: m}, nil
	case chtype.KindDecimal256:
		b, err := read256(r)
		if err != nil {
			return nil, err
		}
		var m chvalue.Int256
		copy(m[:], b)
		return chvalue.Decimal256{Scale: t.Scale, Mantissa: m}, nil
	case chtype.KindUUID:
		hi, err := wire.ReadU64(r)
		if err != nil {
			return nil, err
		}
		lo, err := wire.ReadU64(r)
		if err != nil {
			return nil, err
		}
		var b [16]byte
		binary.BigEndian.PutUint64(b[0:8], hi)
		binary.BigEndian.PutUint64(b[8:16], lo)
		id, err := uuid.FromBytes(b[:])
		if err != nil {
			return nil, cherr.NewDeserialize("uuid: %v", err)
		}
		return chvalue.UUID(id), nil
	case chtype.KindDate:
		u, err := wire.ReadU16(r)
		return chvalue.Date(u), err
	case chtype.KindDateTime:
		u, err := wire.ReadU32(r)
		return chvalue.DateTime{Seconds: u, Location: t.Location}, err
	case chtype.KindDateTime64:
		u, err := wire.ReadU64(r)
		return chvalue.DateTime64{Ticks: u, Precision: t.Scale, Location: t.Location}, err
	case chtype.KindIpv4:
		n, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		var b4 [4]byte
		binary.BigEndian.PutUint32(b4[:], n)
		return chvalue.Ipv4(netip.AddrFrom4(b4)), nil
	case chtype.KindIpv6:
		b, err := wire.ReadRawBytes(r, 16)
		if err != nil {
			return nil, err
		}
		var b16 [16]byte
		copy(b16[:], b)
		return chvalue.Ipv6(netip.AddrFrom16(b16)), nil
	case chtype.KindEnum8:
		u, err := wire.ReadU8(r)
		return chvalue.Enum8(int8(u)), err
	case chtype.KindEnum16:
		u, err := wire.ReadU16(r)
		return chvalue.Enum16(int16(u)), err
	default:
		return nil, cherr.NewDeserialize("unsupported sized type %s", t)
	}
}

// write128/read128 move a 16-byte big-endian in-memory value as two
// little-endian u64 halves, most-significant half first — the same layout
// UUID uses.
func write128(w wire.Writer, be []byte) error {
	hi := binary.BigEndian.Uint64(be[0:8])
	lo := binary.BigEndian.Uint64(be[8:16])
	if err := wire.WriteU64(w, hi); err != nil {
		return err
	}
	return wire.WriteU64(w, lo)
}

func read128(r wire.Reader) ([]byte, error) {
	hi, err := wire.ReadU64(r)
	if err != nil {
		return nil, err
	}
	lo, err := wire.ReadU64(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[0:8], hi)
	binary.BigEndian.PutUint64(out[8:16], lo)
	return out, nil
}

// write256/read256 move a 32-byte big-endian in-memory value by reversing
// it byte-for-byte on the wire (swap_endian_256 in the original codec).
func write256(w wire.Writer, be []byte) error {
	rev := make([]byte, 32)
	for i := 0; i < 32; i++ {
		rev[i] = be[31-i]
	}
	_, err := w.Write(rev)
	return err
}

func read256(r wire.Reader) ([]byte, error) {
	raw, err := wire.ReadRawBytes(r, 32)
	if err != nil {
		return nil, err
	}
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = raw[31-i]
	}
	return be, nil
}

func mustInt8(v chvalue.Value) int8 {
	switch x := v.(type) {
	case chvalue.Int8:
		return int8(x)
	case chvalue.UInt8:
		return int8(x)
	default:
		return 0
	}
}
func mustUInt8(v chvalue.Value) uint8 {
	switch x := v.(type) {
	case chvalue.UInt8:
		return uint8(x)
	case chvalue.Int8:
		return uint8(x)
	default:
		return 0
	}
}
func mustInt16(v chvalue.Value) int16 {
	if x, ok := v.(chvalue.Int16); ok {
		return int16(x)
	}
	return 0
}
func mustUInt16(v chvalue.Value) uint16 {
	if x, ok := v.(chvalue.UInt16); ok {
		return uint16(x)
	}
	return 0
}
func mustInt32(v chvalue.Value) int32 {
	if x, ok := v.(chvalue.Int32); ok {
		return int32(x)
	}
	return 0
}
func mustUInt32(v chvalue.Value) uint32 {
	if x, ok := v.(chvalue.UInt32); ok {
		return uint32(x)
	}
	return 0
}
func mustInt64(v chvalue.Value) int64 {
	if x, ok := v.(chvalue.Int64); ok {
		return int64(x)
	}
	return 0
}
func mustUInt64(v chvalue.Value) uint64 {
	if x, ok := v.(chvalue.UInt64); ok {
		return uint64(x)
	}
	return 0
}
func mustBytes16(v chvalue.Value) []byte {
	switch x := v.(type) {
	case chvalue.Int128:
		b := x
		return b[:]
	case chvalue.UInt128:
		b := x
		return b[:]
	default:
		return make([]byte, 16)
	}
}
func mustBytes32(v chvalue.Value) []byte {
	switch x := v.(type) {
	case chvalue.Int256:
		b := x
		return b[:]
	case chvalue.UInt256:
		b := x
		return b[:]
	case chvalue.Decimal256:
		b := x.Mantissa
		return b[:]
	default:
		return make([]byte, 32)
	}
}
