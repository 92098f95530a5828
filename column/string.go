package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeString handles both String (varuint-length-prefixed bytes per
// row) and FixedString(n) (exactly n bytes per row, short values zero-padded,
// long values rejected rather than silently truncated).
func serializeString(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	for _, raw := range values {
		v := JustifyNull(t, raw)
		b, err := bytesOf(v)
		if err != nil {
			return err
		}
		if t.Kind == chtype.KindFixedString {
			if len(b) > t.FixedLen {
				return cherr.NewSerialize("FixedString(%d): value of %d bytes does not fit", t.FixedLen, len(b))
			}
			padded := make([]byte, t.FixedLen)
			copy(padded, b)
			if _, err := w.Write(padded); err != nil {
				return err
			}
			continue
		}
		if err := wire.WriteString(w, b); err != nil {
			return err
		}
	}
	return nil
}

func deserializeString(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	out := make([]chvalue.Value, 0, rows)
	for i := uint64(0); i < rows; i++ {
		if t.Kind == chtype.KindFixedString {
			b, err := wire.ReadRawBytes(r, t.FixedLen)
			if err != nil {
				return nil, err
			}
			out = append(out, chvalue.String(trimTrailingNUL(b)))
			continue
		}
		b, err := wire.ReadString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, chvalue.String(b))
	}
	return out, nil
}

// bytesOf accepts either a chvalue.String or a raw byte chvalue.Array
// (element type UInt8), mirroring the compatibility the server itself
// extends to clients that represent strings as byte arrays.
func bytesOf(v chvalue.Value) ([]byte, error) {
	switch x := v.(type) {
	case chvalue.String:
		return []byte(x), nil
	case chvalue.Array:
		b := make([]byte, len(x))
		for i, elem := range x {
			u, ok := elem.(chvalue.UInt8)
			if !ok {
				return nil, cherr.NewSerialize("expected byte array element, got %T", elem)
			}
			b[i] = byte(u)
		}
		return b, nil
	default:
		return nil, cherr.NewSerialize("expected String, got %T", v)
	}
}

func trimTrailingNUL(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	out := make([]byte, i)
	copy(out, b[:i])
	return out
}
