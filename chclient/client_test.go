package chclient

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/chdiag"
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/chrow"
	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/protocol"
	"github.com/mickamy/chnative/wire"
)

// fakeServer drives the server side of the handshake and a single Query
// exchange over a net.Pipe, standing in for a real chserver.
type fakeServer struct {
	r *bufio.Reader
	w *bufio.Writer
}

func newFakeServer(conn net.Conn) *fakeServer {
	return &fakeServer{r: bufio.NewReader(conn), w: bufio.NewWriter(conn)}
}

func (s *fakeServer) readClientHello(t *testing.T) {
	t.Helper()
	id, err := wire.ReadVarUint(s.r)
	if err != nil || protocol.ClientPacketID(id) != protocol.ClientHello {
		t.Fatalf("got packet id %d, err %v", id, err)
	}
	mustReadUTF8(t, s.r) // client name
	mustReadVarUint(t, s.r)
	mustReadVarUint(t, s.r)
	mustReadVarUint(t, s.r)
	mustReadUTF8(t, s.r) // database
	mustReadUTF8(t, s.r) // username
	mustReadUTF8(t, s.r) // password
}

func (s *fakeServer) writeServerHello(t *testing.T) {
	t.Helper()
	mustWriteVarUint(t, s.w, uint64(protocol.ServerHello))
	mustWriteUTF8(t, s.w, "fakeserver")
	mustWriteVarUint(t, s.w, 23)
	mustWriteVarUint(t, s.w, 8)
	mustWriteVarUint(t, s.w, protocol.ClientRevision)
	mustWriteUTF8(t, s.w, "UTC")
	mustWriteUTF8(t, s.w, "fake-1")
	mustWriteVarUint(t, s.w, 1)
	if err := s.w.Flush(); err != nil {
		t.Fatal(err)
	}
}

func (s *fakeServer) readQueryAndEmptyBlock(t *testing.T) string {
	t.Helper()
	id, err := wire.ReadVarUint(s.r)
	if err != nil || protocol.ClientPacketID(id) != protocol.ClientQuery {
		t.Fatalf("got packet id %d, err %v", id, err)
	}
	mustReadUTF8(t, s.r) // query id

	rev := uint64(protocol.ClientRevision)
	if rev >= protocol.RevisionClientInfo {
		s.readClientInfo(t)
	}
	if rev >= protocol.RevisionSettingsAsStrings {
		mustReadUTF8(t, s.r) // settings terminator
	}
	if rev >= protocol.RevisionInterserverSecret {
		mustReadUTF8(t, s.r) // interserver secret
	}
	mustReadVarUint(t, s.r) // stage
	if _, err := wire.ReadU8(s.r); err != nil {
		t.Fatal(err)
	}
	sql := mustReadUTF8(t, s.r)

	if _, err := block.Read(s.r, protocol.ClientRevision, protocol.RevisionCustomSerialization); err != nil {
		t.Fatalf("reading empty data block: %v", err)
	}
	return sql
}

func (s *fakeServer) readClientInfo(t *testing.T) {
	t.Helper()
	mustReadU8(t, s.r) // kind
	mustReadUTF8(t, s.r)
	mustReadUTF8(t, s.r)
	mustReadUTF8(t, s.r)
	rev := uint64(protocol.ClientRevision)
	mustReadU8(t, s.r) // interface
	mustReadUTF8(t, s.r)
	mustReadUTF8(t, s.r)
	mustReadUTF8(t, s.r)
	mustReadVarUint(t, s.r)
	mustReadVarUint(t, s.r)
	mustReadVarUint(t, s.r)
	if rev >= protocol.RevisionQuotaKeyInClientInfo {
		mustReadUTF8(t, s.r)
	}
	if rev >= protocol.RevisionDistributedDepth {
		mustReadVarUint(t, s.r)
	}
	if rev >= protocol.RevisionVersionPatch {
		mustReadVarUint(t, s.r)
	}
	if rev >= protocol.RevisionOpenTelemetry {
		mustReadU8(t, s.r)
	}
}

func (s *fakeServer) writeDataBlockThenEOF(t *testing.T) {
	t.Helper()
	b := &block.Block{
		Rows: 2,
		Columns: []block.Column{
			{Name: "n", Type: chtype.Int64, Values: []chvalue.Value{chvalue.Int64(1), chvalue.Int64(2)}},
		},
	}
	mustWriteVarUint(t, s.w, uint64(protocol.ServerData))
	if err := b.Write(s.w, protocol.ClientRevision, protocol.RevisionCustomSerialization); err != nil {
		t.Fatal(err)
	}
	mustWriteVarUint(t, s.w, uint64(protocol.ServerEndOfStream))
	if err := s.w.Flush(); err != nil {
		t.Fatal(err)
	}
}

func mustReadUTF8(t *testing.T, r wire.Reader) string {
	t.Helper()
	s, err := wire.ReadUTF8String(r)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustReadVarUint(t *testing.T, r wire.Reader) uint64 {
	t.Helper()
	v, err := wire.ReadVarUint(r)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func mustReadU8(t *testing.T, r wire.Reader) uint8 {
	t.Helper()
	v, err := wire.ReadU8(r)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func mustWriteUTF8(t *testing.T, w wire.Writer, s string) {
	t.Helper()
	if err := wire.WriteUTF8String(w, s); err != nil {
		t.Fatal(err)
	}
}

func mustWriteVarUint(t *testing.T, w wire.Writer, v uint64) {
	t.Helper()
	if err := wire.WriteVarUint(w, v); err != nil {
		t.Fatal(err)
	}
}

func TestQueryRawStreamsBlocksThenEndsCleanly(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	serverDone := make(chan string, 1)
	go func() {
		s := newFakeServer(serverConn)
		s.readClientHello(t)
		s.writeServerHello(t)
		sql := s.readQueryAndEmptyBlock(t)
		s.writeDataBlockThenEOF(t)
		serverDone <- sql
	}()

	c, err := newClient(clientConn, Options{})
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := c.QueryRaw(ctx, "SELECT n FROM t")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}

	var gotBlocks int
	var gotRows uint64
	for b := range rows.Blocks {
		gotBlocks++
		gotRows += b.Rows
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Rows.Err: %v", err)
	}
	if gotBlocks != 1 || gotRows != 2 {
		t.Fatalf("got %d blocks totalling %d rows, want 1 block of 2 rows", gotBlocks, gotRows)
	}

	select {
	case sql := <-serverDone:
		if sql != "SELECT n FROM t" {
			t.Fatalf("server observed sql %q", sql)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fake server did not finish")
	}
}

func TestExecuteDrainsAndReturnsServerError(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	go func() {
		s := newFakeServer(serverConn)
		s.readClientHello(t)
		s.writeServerHello(t)
		s.readQueryAndEmptyBlock(t)

		mustWriteVarUint(t, s.w, uint64(protocol.ServerException))
		mustWriteU32(t, s.w, 60)
		mustWriteUTF8(t, s.w, "DB::Exception")
		mustWriteUTF8(t, s.w, "Table does not exist")
		mustWriteUTF8(t, s.w, "")
		if err := wire.WriteU8(s.w, 0); err != nil {
			t.Error(err)
		}
		s.w.Flush()
	}()

	c, err := newClient(clientConn, Options{})
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Execute(ctx, "SELECT * FROM missing"); err == nil {
		t.Fatal("expected an error from the relayed exception")
	}
}

func mustWriteU32(t *testing.T, w wire.Writer, v uint32) {
	t.Helper()
	if err := wire.WriteU32(w, v); err != nil {
		t.Fatal(err)
	}
}

func (s *fakeServer) writeEndOfStream(t *testing.T) {
	t.Helper()
	mustWriteVarUint(t, s.w, uint64(protocol.ServerEndOfStream))
	if err := s.w.Flush(); err != nil {
		t.Fatal(err)
	}
}

func TestDiagnosticsFiresOnRepeatedIdenticalQuery(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	const repeats = 3
	go func() {
		s := newFakeServer(serverConn)
		s.readClientHello(t)
		s.writeServerHello(t)
		for i := 0; i < repeats; i++ {
			s.readQueryAndEmptyBlock(t)
			s.writeEndOfStream(t)
		}
	}()

	var mu sync.Mutex
	var alerts []chdiag.Alert
	opts := Options{
		Diagnostics: chdiag.New(repeats, time.Minute, time.Minute),
		OnRepeatedQuery: func(a chdiag.Alert) {
			mu.Lock()
			alerts = append(alerts, a)
			mu.Unlock()
		},
	}

	c, err := newClient(clientConn, opts)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < repeats; i++ {
		if err := c.Execute(ctx, "SELECT 1 FROM dual"); err != nil {
			t.Fatalf("Execute #%d: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if alerts[0].Query != "SELECT 1 FROM dual" || alerts[0].Count != repeats {
		t.Fatalf("unexpected alert: %+v", alerts[0])
	}
}

// numberRow is a minimal chrow.Row/chrow.Writer implementation used to
// exercise the typed Query/InsertTyped helpers.
type numberRow struct {
	N int64
}

func (r *numberRow) DeserializeRow(fields []chrow.Field) error {
	for _, f := range fields {
		if f.Name == "n" {
			v, ok := f.Value.(chvalue.Int64)
			if !ok {
				return cherr.NewUnexpectedType("n")
			}
			r.N = int64(v)
			return nil
		}
	}
	return &cherr.MissingField{Name: "n"}
}

func (r numberRow) SerializeRow() ([]chrow.Field, error) {
	return []chrow.Field{{Name: "n", Type: chtype.Int64, Value: chvalue.Int64(r.N)}}, nil
}

func TestQueryProjectsRowsViaDeserializeRow(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	go func() {
		s := newFakeServer(serverConn)
		s.readClientHello(t)
		s.writeServerHello(t)
		s.readQueryAndEmptyBlock(t)
		s.writeDataBlockThenEOF(t)
	}()

	c, err := newClient(clientConn, Options{})
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typed, err := Query(ctx, c, "SELECT n FROM t", func() *numberRow { return &numberRow{} })
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	var got []int64
	for r := range typed.Items {
		got = append(got, r.N)
	}
	if err := typed.Err(); err != nil {
		t.Fatalf("TypedRows.Err: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func (s *fakeServer) writeHeaderBlock(t *testing.T, columnName string) {
	t.Helper()
	b := &block.Block{
		Columns: []block.Column{{Name: columnName, Type: chtype.Int64}},
	}
	mustWriteVarUint(t, s.w, uint64(protocol.ServerData))
	if err := b.Write(s.w, protocol.ClientRevision, protocol.RevisionCustomSerialization); err != nil {
		t.Fatal(err)
	}
	if err := s.w.Flush(); err != nil {
		t.Fatal(err)
	}
}

func (s *fakeServer) readDataBlock(t *testing.T) *block.Block {
	t.Helper()
	b, err := block.Read(s.r, protocol.ClientRevision, protocol.RevisionCustomSerialization)
	if err != nil {
		t.Fatalf("reading data block: %v", err)
	}
	return b
}

func TestInsertTypedStreamsBatchesMatchedByHeaderColumns(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	received := make(chan []int64, 1)
	go func() {
		s := newFakeServer(serverConn)
		s.readClientHello(t)
		s.writeServerHello(t)
		s.readQueryAndEmptyBlock(t)
		s.writeHeaderBlock(t, "n")

		var got []int64
		for {
			b := s.readDataBlock(t)
			if b.Rows == 0 {
				break
			}
			for _, v := range b.Columns[0].Values {
				got = append(got, int64(v.(chvalue.Int64)))
			}
		}
		received <- got
		s.writeEndOfStream(t)
	}()

	c, err := newClient(clientConn, Options{})
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []*numberRow, 1)
	batches <- []*numberRow{{N: 10}, {N: 20}}
	close(batches)

	if err := InsertTyped(ctx, c, "INSERT INTO t (n) VALUES", batches); err != nil {
		t.Fatalf("InsertTyped: %v", err)
	}

	select {
	case got := <-received:
		if len(got) != 2 || got[0] != 10 || got[1] != 20 {
			t.Fatalf("server observed %v, want [10 20]", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fake server did not finish")
	}
}
