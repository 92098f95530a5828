package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializePoint writes two independent Float64 columns, x then y — Point
// has no offsets of its own; Ring/Polygon/MultiPolygon are plain nested
// arrays of Point and go through serializeArray/deserializeArray instead.
func serializePoint(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	xs := make([]chvalue.Value, len(values))
	ys := make([]chvalue.Value, len(values))
	for i, raw := range values {
		v := JustifyNull(t, raw)
		tup, ok := v.(chvalue.Tuple)
		if !ok || len(tup) != 2 {
			return cherr.NewSerialize("expected Point as a 2-tuple, got %T", v)
		}
		xs[i] = tup[0]
		ys[i] = tup[1]
	}
	if err := SerializeColumn(chtype.Float64, xs, w); err != nil {
		return err
	}
	return SerializeColumn(chtype.Float64, ys, w)
}

func deserializePoint(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	xs, err := DeserializeColumn(chtype.Float64, rows, r)
	if err != nil {
		return nil, err
	}
	ys, err := DeserializeColumn(chtype.Float64, rows, r)
	if err != nil {
		return nil, err
	}
	out := make([]chvalue.Value, rows)
	for i := uint64(0); i < rows; i++ {
		out[i] = chvalue.Tuple{xs[i], ys[i]}
	}
	return out, nil
}
