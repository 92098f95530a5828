package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeMap writes N cumulative u64 offsets, then the full flat key
// column followed by the full flat value column — two independent
// SerializeColumn calls, not a joint Tuple(K,V) read, matching the server's
// Map layout (which is an Array(Tuple(K,V)) prefix-wise but two separate
// column bodies).
func serializeMap(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	flatKeys := make([]chvalue.Value, 0, len(values))
	flatVals := make([]chvalue.Value, 0, len(values))
	offsets := make([]uint64, len(values))
	offset := uint64(0)
	for i, raw := range values {
		v := JustifyNull(t, raw)
		m, ok := v.(chvalue.Map)
		if !ok {
			return cherr.NewSerialize("expected Map, got %T", v)
		}
		offset += uint64(len(m.Keys))
		offsets[i] = offset
		flatKeys = append(flatKeys, m.Keys...)
		flatVals = append(flatVals, m.Values...)
	}
	for _, off := range offsets {
		if err := wire.WriteU64(w, off); err != nil {
			return err
		}
	}
	if err := SerializeColumn(t.Key, flatKeys, w); err != nil {
		return err
	}
	return SerializeColumn(t.Val, flatVals, w)
}

func deserializeMap(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
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
	flatKeys, err := DeserializeColumn(t.Key, total, r)
	if err != nil {
		return nil, err
	}
	flatVals, err := DeserializeColumn(t.Val, total, r)
	if err != nil {
		return nil, err
	}
	out := make([]chvalue.Value, rows)
	prev := uint64(0)
	for i := uint64(0); i < rows; i++ {
		out[i] = chvalue.Map{
			Keys:   flatKeys[prev:offsets[i]],
			Values: flatVals[prev:offsets[i]],
		}
		prev = offsets[i]
	}
	return out, nil
}
