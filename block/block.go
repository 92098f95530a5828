// Package block implements the columnar Block framing every query
// response and insert payload is carried in: a BlockInfo header, then a
// sequence of (name, type, column body) triples.
package block

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/column"
	"github.com/mickamy/chnative/wire"
)

// maxRows rejects blocks claiming an implausible row count, guarding
// against a corrupt or malicious length field before any allocation.
const maxRows = 1 << 30

// BlockInfo carries the two optional flags the server attaches to a block:
// whether it holds GROUP BY WITH TOTALS overflow rows, and which bucket of
// a two-level aggregation it belongs to.
type BlockInfo struct {
	IsOverflows bool
	BucketNum   int32
}

// defaultBucketNum is the sentinel the server uses for "not part of a
// two-level aggregation".
const defaultBucketNum = -1

// Column is one named, typed column of a Block, paired with its values.
type Column struct {
	Name   string
	Type   *chtype.Type
	Values []chvalue.Value
}

// Block is one columnar batch of rows exchanged in a single Data packet.
// The first block of any query's response is an empty "header" block
// (Rows == 0) describing the result's column names and types.
type Block struct {
	Info    BlockInfo
	Rows    uint64
	Columns []Column
}

// NumColumns reports how many columns the block declares.
func (b *Block) NumColumns() int { return len(b.Columns) }

// BuildUntyped assembles a Block from column names and row-major values
// with no server-declared header to consult, guessing each column's Type
// from its first row via column.Guess. Meant for callers constructing an
// ad-hoc INSERT (e.g. a one-off script) without implementing chrow.Writer
// or waiting on a header block; rows must all have the same length as
// columnNames.
func BuildUntyped(columnNames []string, rows [][]chvalue.Value) *Block {
	cols := make([]Column, len(columnNames))
	for i, name := range columnNames {
		col := Column{Name: name}
		if len(rows) > 0 {
			col.Type = column.Guess(rows[0][i])
		} else {
			col.Type = chtype.String
		}
		col.Values = make([]chvalue.Value, len(rows))
		for r, row := range rows {
			col.Values[r] = row[i]
		}
		cols[i] = col
	}
	return &Block{Rows: uint64(len(rows)), Columns: cols}
}

// Write serializes the block per the field-tagged BlockInfo, varuint
// column/row counts, and per-column name/type/prefix/body layout. revision
// gates the CUSTOM_SERIALIZATION zero byte.
func (b *Block) Write(w wire.Writer, revision uint64, customSerializationRevision uint64) error {
	if err := b.Info.write(w); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, uint64(len(b.Columns))); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, b.Rows); err != nil {
		return err
	}
	for _, col := range b.Columns {
		if err := wire.WriteUTF8String(w, col.Name); err != nil {
			return err
		}
		if err := wire.WriteUTF8String(w, col.Type.String()); err != nil {
			return err
		}
		if revision >= customSerializationRevision {
			if err := wire.WriteU8(w, 0); err != nil {
				return err
			}
		}
		if b.Rows == 0 {
			continue
		}
		if err := column.SerializePrefix(col.Type, w); err != nil {
			return err
		}
		if err := column.SerializeColumn(col.Type, col.Values, w); err != nil {
			return err
		}
	}
	return nil
}

// Read deserializes a block written by Write.
func Read(r wire.Reader, revision uint64, customSerializationRevision uint64) (*Block, error) {
	info, err := readBlockInfo(r)
	if err != nil {
		return nil, err
	}
	numCols, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	rows, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	if rows > maxRows {
		return nil, cherr.NewProtocol("block row count %d exceeds maximum %d", rows, maxRows)
	}

	cols := make([]Column, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		name, err := wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
		typeStr, err := wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
		typ, err := chtype.Parse(typeStr)
		if err != nil {
			return nil, cherr.NewProtocol("column %q: %v", name, err)
		}
		if revision >= customSerializationRevision {
			flag, err := wire.ReadU8(r)
			if err != nil {
				return nil, err
			}
			if flag != 0 {
				return nil, cherr.NewProtocol("column %q: custom serialization is not supported", name)
			}
		}

		var values []chvalue.Value
		if rows > 0 {
			if err := column.DeserializePrefix(typ, r); err != nil {
				return nil, cherr.WithColumn(err, name)
			}
			values, err = column.DeserializeColumn(typ, rows, r)
			if err != nil {
				return nil, cherr.WithColumn(err, name)
			}
		}
		cols = append(cols, Column{Name: name, Type: typ, Values: values})
	}

	return &Block{Info: *info, Rows: rows, Columns: cols}, nil
}

// write emits BlockInfo as (varuint field-id, value) pairs terminated by
// field-id 0. is_overflows is written as a plain 0/1 byte.
func (info BlockInfo) write(w wire.Writer) error {
	if err := wire.WriteVarUint(w, 1); err != nil {
		return err
	}
	var overflows uint8
	if info.IsOverflows {
		overflows = 1
	}
	if err := wire.WriteU8(w, overflows); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, 2); err != nil {
		return err
	}
	if err := wire.WriteU32(w, uint32(info.BucketNum)); err != nil {
		return err
	}
	return wire.WriteVarUint(w, 0)
}

func readBlockInfo(r wire.Reader) (*BlockInfo, error) {
	info := &BlockInfo{BucketNum: defaultBucketNum}
	for {
		fieldID, err := wire.ReadVarUint(r)
		if err != nil {
			return nil, err
		}
		switch fieldID {
		case 0:
			return info, nil
		case 1:
			v, err := wire.ReadU8(r)
			if err != nil {
				return nil, err
			}
			info.IsOverflows = v != 0
		case 2:
			v, err := wire.ReadU32(r)
			if err != nil {
				return nil, err
			}
			info.BucketNum = int32(v)
		default:
			return nil, cherr.NewProtocol("unknown BlockInfo field id %d", fieldID)
		}
	}
}
