package column

import (
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// serializeNullable writes N raw mask bytes (1 = null) followed by a full
// inner column of N values; null positions carry the inner type's default
// value in the inner column body, per the server's layout.
func serializeNullable(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	inner := make([]chvalue.Value, len(values))
	for i, v := range values {
		var mask byte
		if chvalue.IsNull(v) {
			mask = 1
			inner[i] = DefaultValue(t.Inner)
		} else {
			inner[i] = v
		}
		if err := wire.WriteU8(w, mask); err != nil {
			return err
		}
	}
	return SerializeColumn(t.Inner, inner, w)
}

func deserializeNullable(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	masks := make([]byte, rows)
	for i := uint64(0); i < rows; i++ {
		m, err := wire.ReadU8(r)
		if err != nil {
			return nil, err
		}
		masks[i] = m
	}
	inner, err := DeserializeColumn(t.Inner, rows, r)
	if err != nil {
		return nil, err
	}
	out := make([]chvalue.Value, rows)
	for i := uint64(0); i < rows; i++ {
		if masks[i] != 0 {
			out[i] = chvalue.Null
		} else {
			out[i] = inner[i]
		}
	}
	return out, nil
}
