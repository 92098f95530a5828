package column

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/wire"
)

// LowCardinality serializes as a single versioned "shared dictionaries with
// additional keys" stream. This client never participates in the
// cross-block global dictionary scheme the server supports: it always
// writes HAS_ADDITIONAL_KEYS with a fresh, block-local dictionary, which is
// what every known client implementation does when it isn't the server
// itself.
const lowCardinalityVersion = 1

const (
	lcIndexUInt8  = 0
	lcIndexUInt16 = 1
	lcIndexUInt32 = 2
	lcIndexUInt64 = 3

	lcNeedGlobalDictionaryBit = 1 << 8
	lcHasAdditionalKeysBit    = 1 << 9
	lcNeedUpdateDictionaryBit = 1 << 10
)

func lowCardinalitySerializePrefix(w wire.Writer) error {
	return wire.WriteU64(w, lowCardinalityVersion)
}

func lowCardinalityDeserializePrefix(r wire.Reader) error {
	v, err := wire.ReadU64(r)
	if err != nil {
		return err
	}
	if v != lowCardinalityVersion {
		return cherr.NewProtocol("unsupported LowCardinality version %d", v)
	}
	return nil
}

// dictKey converts a Value into a Go-comparable map key. Every type
// isValidLowCardinalityInner accepts is naturally comparable except String
// (backed by a byte slice), which is converted to a plain string.
func dictKey(v chvalue.Value) any {
	if s, ok := v.(chvalue.String); ok {
		return string(s)
	}
	return v
}

func serializeLowCardinality(t *chtype.Type, values []chvalue.Value, w wire.Writer) error {
	if len(values) == 0 {
		return nil
	}
	nullable := t.Inner.IsNullable()
	dictType := t.Inner
	if nullable {
		dictType = t.Inner.Unwrap()
	}

	dict := make([]chvalue.Value, 0, len(values)+1)
	index := make(map[any]uint64)
	if nullable {
		dict = append(dict, DefaultValue(dictType))
		index[dictKey(DefaultValue(dictType))] = 0
	}

	indices := make([]uint64, len(values))
	for i, v := range values {
		if chvalue.IsNull(v) {
			if nullable {
				indices[i] = 0
				continue
			}
			v = DefaultValue(dictType)
		}
		key := dictKey(v)
		idx, ok := index[key]
		if !ok {
			idx = uint64(len(dict))
			dict = append(dict, v)
			index[key] = idx
		}
		indices[i] = idx
	}

	maxIdx := uint64(len(dict) - 1)
	indexCode := lcIndexUInt8
	switch {
	case maxIdx > 0xffffffff:
		indexCode = lcIndexUInt64
	case maxIdx > 0xffff:
		indexCode = lcIndexUInt32
	case maxIdx > 0xff:
		indexCode = lcIndexUInt16
	}

	flags := uint64(indexCode) | lcHasAdditionalKeysBit
	if err := wire.WriteU64(w, flags); err != nil {
		return err
	}
	if err := wire.WriteU64(w, uint64(len(dict))); err != nil {
		return err
	}
	if err := SerializeColumn(dictType, dict, w); err != nil {
		return err
	}
	if err := wire.WriteU64(w, uint64(len(values))); err != nil {
		return err
	}
	for _, idx := range indices {
		if err := writeIndex(w, indexCode, idx); err != nil {
			return err
		}
	}
	return nil
}

// deserializeLowCardinality reads the "shared dictionaries with additional
// keys" stream chunk by chunk: each chunk carries its own flags, an
// optional global-dictionary update, an optional additional-keys
// dictionary, and a run of index values, and a single column body may span
// any number of chunks. The global dictionary, once read, persists across
// chunks until a later chunk's NEED_UPDATE_DICTIONARY bit replaces it —
// it is never reset mid-column.
func deserializeLowCardinality(t *chtype.Type, rows uint64, r wire.Reader) ([]chvalue.Value, error) {
	if rows == 0 {
		return nil, nil
	}
	nullable := t.Inner.IsNullable()
	dictType := t.Inner
	if nullable {
		dictType = t.Inner.Unwrap()
	}

	var (
		globalDict     []chvalue.Value
		haveGlobalDict bool
		additionalKeys []chvalue.Value

		needsGlobalDict   bool
		hasAdditionalKeys bool
		indexCode         int
		numPendingRows    uint64
	)

	out := make([]chvalue.Value, 0, rows)
	limit := rows

	for limit > 0 {
		if numPendingRows == 0 {
			flags, err := wire.ReadU64(r)
			if err != nil {
				return nil, err
			}
			hasAdditionalKeys = flags&lcHasAdditionalKeysBit != 0
			needsGlobalDict = flags&lcNeedGlobalDictionaryBit != 0
			needsUpdateDict := flags&lcNeedUpdateDictionaryBit != 0
			indexCode = int(flags & 0xff)

			if needsGlobalDict && (!haveGlobalDict || needsUpdateDict) {
				dictSize, err := wire.ReadU64(r)
				if err != nil {
					return nil, err
				}
				globalDict, err = DeserializeColumn(dictType, dictSize, r)
				if err != nil {
					return nil, err
				}
				haveGlobalDict = true
			}

			if hasAdditionalKeys {
				keyCount, err := wire.ReadU64(r)
				if err != nil {
					return nil, err
				}
				additionalKeys, err = DeserializeColumn(dictType, keyCount, r)
				if err != nil {
					return nil, err
				}
			}

			numPendingRows, err = wire.ReadU64(r)
			if err != nil {
				return nil, err
			}
		}

		readingRows := numPendingRows
		if limit < readingRows {
			readingRows = limit
		}

		for i := uint64(0); i < readingRows; i++ {
			entry, err := readIndex(r, indexCode)
			if err != nil {
				return nil, err
			}
			v, err := resolveLowCardinalityEntry(entry, nullable, hasAdditionalKeys, needsGlobalDict, additionalKeys, globalDict)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		limit -= readingRows
		numPendingRows -= readingRows
	}

	return out, nil
}

// resolveLowCardinalityEntry maps one chunk-local index to a dictionary
// value per the three valid flag combinations: additional-keys-only,
// global-dictionary-only, and both (additional keys first, the remainder
// indexing into the global dictionary beyond them).
func resolveLowCardinalityEntry(entry uint64, nullable, hasAdditionalKeys, needsGlobalDict bool, additionalKeys, globalDict []chvalue.Value) (chvalue.Value, error) {
	switch {
	case hasAdditionalKeys && !needsGlobalDict:
		if nullable && entry == 0 {
			return chvalue.Null, nil
		}
		if entry >= uint64(len(additionalKeys)) {
			return nil, cherr.NewDeserialize("LowCardinality: illegal index %d in additional keys", entry)
		}
		return additionalKeys[entry], nil
	case needsGlobalDict && !hasAdditionalKeys:
		if entry >= uint64(len(globalDict)) {
			return nil, cherr.NewDeserialize("LowCardinality: illegal index %d in global dictionary", entry)
		}
		return globalDict[entry], nil
	case needsGlobalDict && hasAdditionalKeys:
		if nullable && entry == 0 {
			return chvalue.Null, nil
		}
		if entry < uint64(len(additionalKeys)) {
			return additionalKeys[entry], nil
		}
		rest := entry - uint64(len(additionalKeys))
		if rest >= uint64(len(globalDict)) {
			return nil, cherr.NewDeserialize("LowCardinality: illegal index %d in global dictionary", entry)
		}
		return globalDict[rest], nil
	default:
		return nil, cherr.NewDeserialize("LowCardinality: chunk flags carry neither additional keys nor a global dictionary")
	}
}

func writeIndex(w wire.Writer, code int, idx uint64) error {
	switch code {
	case lcIndexUInt8:
		return wire.WriteU8(w, uint8(idx))
	case lcIndexUInt16:
		return wire.WriteU16(w, uint16(idx))
	case lcIndexUInt32:
		return wire.WriteU32(w, uint32(idx))
	default:
		return wire.WriteU64(w, idx)
	}
}

func readIndex(r wire.Reader, code int) (uint64, error) {
	switch code {
	case lcIndexUInt8:
		v, err := wire.ReadU8(r)
		return uint64(v), err
	case lcIndexUInt16:
		v, err := wire.ReadU16(r)
		return uint64(v), err
	case lcIndexUInt32:
		v, err := wire.ReadU32(r)
		return uint64(v), err
	default:
		return wire.ReadU64(r)
	}
}
