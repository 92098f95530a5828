package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeTuple writes each field as its own complete column, in declared
// order — a column-major transposition of the row-major Tuple values.
func serializeTuple(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	cols := make([][]chvalue.Value, len(t.Elems))
	for i := range cols {
		cols[i] = make([]chvalue.Value, len(values))
	}
	for row, raw := range values {
		v := JustifyNull(t, raw)
		tup, ok := v.(chvalue.Tuple)
		if !ok {
			return cherr.NewSerialize("expected Tuple, got %T", v)
		}
		if len(tup) != len(t.Elems) {
			return cherr.NewSerialize("tuple arity mismatch: type has %d fields, value has %d", len(t.Elems), len(tup))
		}
		for i, e := range tup {
			cols[i][row] = e
		}
	}
	for i, elemType := range t.Elems {
		if err := SerializeColumn(elemType, cols[i], w); err != nil {
			return err
		}
	}
	return nil
}

func deserializeTuple(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	cols := make([][]chvalue.Value, len(t.Elems))
	for i, elemType := range t.Elems {
		col, err := DeserializeColumn(elemType, rows, r)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	out := make([]chvalue.Value, rows)
	for row := uint64(0); row < rows; row++ {
		tup := make(chvalue.Tuple, len(t.Elems))
		for i := range t.Elems {
			tup[i] = cols[i][row]
		}
		out[row] = tup
	}
	return out, nil
}
