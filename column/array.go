package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeArray writes N cumulative u64 offsets followed by a single flat
// inner column holding offsets[N-1] elements total. Nested arrays recurse
// naturally through SerializeColumn/DeserializeColumn — Go's call stack
// replaces the depth-2-specialized shortcut the original took for Array2.
func serializeArray(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	flat := make([]chvalue.Value, 0, len(values))
	offset := uint64(0)
	offsets := make([]uint64, len(values))
	for i, raw := range values {
		v := JustifyNull(t, raw)
		elems, err := arrayElems(v)
		if err != nil {
			return err
		}
		offset += uint64(len(elems))
		offsets[i] = offset
		flat = append(flat, elems...)
	}
	for _, off := range offsets {
		if err := wire.WriteU64(w, off); err != nil {
			return err
		}
	}
	return SerializeColumn(t.Inner, flat, w)
}

func deserializeArray(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	offsets := make([]uint64, rows)
	for i := uint64(0); i < rows; i++ {
		off, err := wire.ReadU64(r)
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}
	total := uint64(0)
	if rows > 0 {
		total = offsets[rows-1]
	}
	flat, err := DeserializeColumn(t.Inner, total, r)
	if err != nil {
		return nil, err
	}
	out := make([]chvalue.Value, rows)
	prev := uint64(0)
	for i := uint64(0); i < rows; i++ {
		out[i] = chvalue.Array(flat[prev:offsets[i]])
		prev = offsets[i]
	}
	return out, nil
}

func arrayElems(v chvalue.Value) ([]chvalue.Value, error) {
	switch x := v.(type) {
	case chvalue.Array:
		return x, nil
	default:
		return nil, cherr.NewSerialize("expected Array, got %T", v)
	}
}
