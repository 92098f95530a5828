package chclient

import (
	"context"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chrow"
	"github.com/mickamy/chnative/chvalue"
)

// TypedRows is Query's result: a stream of records of type R, built one
// per row via R.DeserializeRow, followed by a terminal error.
type TypedRows[R chrow.Row] struct {
	Items <-chan R
	done  <-chan error
}

// Err blocks until the stream is fully drained and returns its terminal
// error (nil on a clean end of stream). Range over Items before calling
// Err, the same way Rows.Err works.
func (t *TypedRows[R]) Err() error {
	return <-t.done
}

// Query runs sql and projects each result row into a freshly allocated R
// (via newRow) through R.DeserializeRow, the typed counterpart to
// QueryRaw's raw *block.Block stream.
func Query[R chrow.Row](ctx context.Context, c *Client, sql string, newRow func() R) (*TypedRows[R], error) {
	rows, err := c.QueryRaw(ctx, sql)
	if err != nil {
		return nil, err
	}

	items := make(chan R, 32)
	done := make(chan error, 1)

	go func() {
		defer close(items)
		for b := range rows.Blocks {
			for i := uint64(0); i < b.Rows; i++ {
				fields := rowFields(b, i)
				r := newRow()
				if err := r.DeserializeRow(fields); err != nil {
					done <- err
					drainBlocks(rows.Blocks)
					return
				}
				select {
				case items <- r:
				case <-ctx.Done():
					done <- ctx.Err()
					drainBlocks(rows.Blocks)
					return
				}
			}
		}
		done <- rows.Err()
	}()

	return &TypedRows[R]{Items: items, done: done}, nil
}

func rowFields(b *block.Block, row uint64) []chrow.Field {
	fields := make([]chrow.Field, len(b.Columns))
	for i, col := range b.Columns {
		fields[i] = chrow.Field{Name: col.Name, Type: col.Type, Value: col.Values[row]}
	}
	return fields
}

func drainBlocks(blocks <-chan *block.Block) {
	for range blocks {
	}
}

// InsertTyped sends sql, waits for the server's header block describing
// the target columns, then converts each batch of records to a block
// matching that header (via R.SerializeRow, matched to header columns by
// name) and streams it — the typed counterpart to InsertNative. A record
// whose SerializeRow fails, or that omits a column the header requires, is
// dropped and reported via c's Options.OnRowSerializeError rather than
// failing the whole batch.
func InsertTyped[R chrow.Writer](ctx context.Context, c *Client, sql string, batches <-chan []R) error {
	rows, err := c.QueryRaw(ctx, sql)
	if err != nil {
		return err
	}

	header, ok := <-rows.Blocks
	if !ok {
		return rows.Err()
	}

	for batch := range batches {
		b := buildTypedBlock(c, header, batch)
		if err := c.sendBlock(ctx, b); err != nil {
			return err
		}
	}
	if err := c.sendBlock(ctx, &block.Block{}); err != nil {
		return err
	}

	drainBlocks(rows.Blocks)
	return rows.Err()
}

func buildTypedBlock[R chrow.Writer](c *Client, header *block.Block, batch []R) *block.Block {
	cols := make([]block.Column, len(header.Columns))
	for i, hc := range header.Columns {
		cols[i] = block.Column{Name: hc.Name, Type: hc.Type}
	}

	var rowCount uint64
	for _, rec := range batch {
		fields, err := rec.SerializeRow()
		if err != nil {
			reportRowError(c, err)
			continue
		}
		values := make([]chvalue.Value, len(header.Columns))
		ok := true
		for i, hc := range header.Columns {
			v, found := findField(fields, hc.Name)
			if !found {
				reportRowError(c, &cherr.MissingField{Name: hc.Name})
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			continue
		}
		for i := range cols {
			cols[i].Values = append(cols[i].Values, values[i])
		}
		rowCount++
	}

	return &block.Block{Rows: rowCount, Columns: cols}
}

func findField(fields []chrow.Field, name string) (chvalue.Value, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func reportRowError(c *Client, err error) {
	if c.options.OnRowSerializeError != nil {
		c.options.OnRowSerializeError(err)
	}
}
