package block_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
)

const testRevision = 54462 // INTERSERVER_SECRET_V2
const testCustomSerializationRevision = 54454

func TestBlockRoundTrip(t *testing.T) {
	b := &block.Block{
		Rows: 2,
		Columns: []block.Column{
			{Name: "id", Type: chtype.Int32, Values: []chvalue.Value{chvalue.Int32(1), chvalue.Int32(2)}},
			{Name: "name", Type: chtype.String, Values: []chvalue.Value{chvalue.String("a"), chvalue.String("b")}},
		},
	}
	var buf bytes.Buffer
	if err := b.Write(&buf, testRevision, testCustomSerializationRevision); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := block.Read(&buf, testRevision, testCustomSerializationRevision)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Rows != 2 || len(got.Columns) != 2 {
		t.Fatalf("got rows=%d cols=%d", got.Rows, len(got.Columns))
	}
	if got.Columns[0].Name != "id" || got.Columns[0].Type.String() != "Int32" {
		t.Fatalf("unexpected column 0: %+v", got.Columns[0])
	}
	if got.Columns[1].Values[1].String() != "'b'" {
		t.Fatalf("got %s, want 'b'", got.Columns[1].Values[1].String())
	}
}

func TestEmptyHeaderBlockWritesNoBody(t *testing.T) {
	b := &block.Block{
		Rows: 0,
		Columns: []block.Column{
			{Name: "id", Type: chtype.Int32},
		},
	}
	var buf bytes.Buffer
	if err := b.Write(&buf, testRevision, testCustomSerializationRevision); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := block.Read(&buf, testRevision, testCustomSerializationRevision)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Rows != 0 || len(got.Columns[0].Values) != 0 {
		t.Fatalf("expected empty header block, got %+v", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected Read to consume the entire buffer, %d bytes left", buf.Len())
	}
}

func TestBlockInfoRoundTrip(t *testing.T) {
	b := &block.Block{
		Info: block.BlockInfo{IsOverflows: true, BucketNum: 3},
		Rows: 0,
		Columns: []block.Column{
			{Name: "x", Type: chtype.UInt8},
		},
	}
	var buf bytes.Buffer
	if err := b.Write(&buf, testRevision, testCustomSerializationRevision); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := block.Read(&buf, testRevision, testCustomSerializationRevision)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.Info.IsOverflows || got.Info.BucketNum != 3 {
		t.Fatalf("got %+v", got.Info)
	}
}

func TestOversizeRowCountRejected(t *testing.T) {
	var buf bytes.Buffer
	// BlockInfo terminator, 0 columns, huge row count.
	buf.WriteByte(0)
	buf.WriteByte(0)
	// varuint-encode 1<<31 (exceeds the 1<<30 ceiling): 0x80000000
	for _, b := range []byte{0x80, 0x80, 0x80, 0x80, 0x08} {
		buf.WriteByte(b)
	}
	_, err := block.Read(&buf, testRevision, testCustomSerializationRevision)
	if err == nil {
		t.Fatal("expected an error for an oversize row count")
	}
}

func TestBuildUntypedGuessesColumnTypesFromFirstRow(t *testing.T) {
	b := block.BuildUntyped(
		[]string{"id", "name"},
		[][]chvalue.Value{
			{chvalue.Int64(1), chvalue.String("a")},
			{chvalue.Int64(2), chvalue.String("b")},
		},
	)
	if b.Rows != 2 || len(b.Columns) != 2 {
		t.Fatalf("got %+v", b)
	}
	if !b.Columns[0].Type.Equal(chtype.Int64) {
		t.Fatalf("id column type = %v, want Int64", b.Columns[0].Type)
	}
	if !b.Columns[1].Type.Equal(chtype.String) {
		t.Fatalf("name column type = %v, want String", b.Columns[1].Type)
	}
	if b.Columns[0].Values[1] != chvalue.Int64(2) {
		t.Fatalf("id column values = %v", b.Columns[0].Values)
	}
}

func TestBuildUntypedEmptyRowsDefaultsToString(t *testing.T) {
	b := block.BuildUntyped([]string{"x"}, nil)
	if b.Rows != 0 || !b.Columns[0].Type.Equal(chtype.String) {
		t.Fatalf("got %+v", b)
	}
}
