package chclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/protocol"
)

// Client is a single session: one TCP connection, one actor goroutine
// owning it, and any number of concurrent callers issuing queries and
// inserts through channel-based requests.
type Client struct {
	conn net.Conn

	reader *frameReader
	writer *frameWriter

	revision    uint64
	compression CompressionMethod
	options     Options

	progress progressState

	reqCh  chan *request
	pktCh  chan inboundPacket
	closed chan struct{}

	mu          sync.Mutex
	terminalErr error

	queryCounter uint64
}

// Connect opens a TCP connection to address, performs the native
// handshake, negotiates the wire revision, and starts the session actor.
func Connect(ctx context.Context, address string, opts Options) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("chclient: dial %s: %w", address, err)
	}
	return newClient(conn, opts)
}

// newClient runs the handshake over an already-established conn and
// starts the session actor. Split out from Connect so tests can drive it
// over a net.Pipe instead of a real TCP dial.
func newClient(conn net.Conn, opts Options) (*Client, error) {
	rawReader := bufio.NewReader(conn)
	rawWriter := bufio.NewWriter(conn)

	if err := protocol.WriteHello(rawWriter, protocol.ClientHelloInfo{
		ClientName:      opts.clientName(),
		VersionMajor:    1,
		VersionMinor:    0,
		ProtocolVersion: protocol.ClientRevision,
		DefaultDatabase: opts.DefaultDatabase,
		Username:        opts.username(),
		Password:        opts.Password,
	}); err != nil {
		conn.Close()
		return nil, err
	}
	if err := rawWriter.Flush(); err != nil {
		conn.Close()
		return nil, err
	}

	pkt, err := protocol.ReadServerPacket(rawReader, protocol.ClientRevision, protocol.RevisionCustomSerialization)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("chclient: handshake: %w", err)
	}
	hello, ok := pkt.(protocol.HelloPacket)
	if !ok {
		conn.Close()
		return nil, cherr.NewProtocol("handshake: expected Hello, got %T", pkt)
	}

	revision := protocol.NegotiateRevision(hello.Info.Revision)

	c := &Client{
		conn:        conn,
		reader:      newFrameReader(rawReader, opts.Compression),
		writer:      newFrameWriter(rawWriter, opts.Compression),
		revision:    revision,
		compression: opts.Compression,
		options:     opts,
		reqCh:       make(chan *request, 1024),
		pktCh:       make(chan inboundPacket, 1024),
		closed:      make(chan struct{}),
	}

	go c.readLoop()
	go c.runActor()

	return c, nil
}

func (c *Client) nextQueryID() string {
	n := atomic.AddUint64(&c.queryCounter, 1)
	return fmt.Sprintf("%s-%d", uuid.New().String(), n)
}

// Close stops the session actor and releases the underlying connection.
// Any queries still in flight fail with cherr.MissingRow.
func (c *Client) Close() error {
	close(c.reqCh)
	<-c.closed
	return c.conn.Close()
}

// Err returns the connection's terminal error, if the actor has shut
// down. It returns nil while the connection is still alive.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminalErr
}

// Progress returns the cumulative rows/bytes progress reported across the
// whole session so far.
func (c *Client) Progress() protocol.Progress {
	return c.progress.get()
}

// Rows is the result of QueryRaw: a stream of blocks followed by either a
// clean end-of-stream or a server/connection error.
type Rows struct {
	Blocks <-chan *block.Block
	done   <-chan error
}

// Err blocks until the stream is fully drained and returns its terminal
// error (nil on a clean EndOfStream). Callers should range over Blocks
// before calling Err, since it only resolves once the stream ends.
func (r *Rows) Err() error {
	return <-r.done
}

// QueryRaw sends sql to the server and returns a Rows streaming the
// response blocks as they arrive. It does not wait for the query to
// finish — drain Blocks and call Rows.Err to see the final status.
func (c *Client) QueryRaw(ctx context.Context, sql string) (*Rows, error) {
	reply := make(chan *queryHandle, 1)
	req := &request{query: &queryRequest{sql: sql, reply: reply}}

	select {
	case c.reqCh <- req:
	case <-c.closed:
		return nil, c.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case h := <-reply:
		return &Rows{Blocks: h.sink.blocks, done: h.sink.done}, nil
	case <-c.closed:
		return nil, c.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute runs sql and discards any result rows, returning only the final
// error status (nil on success).
func (c *Client) Execute(ctx context.Context, sql string) error {
	rows, err := c.QueryRaw(ctx, sql)
	if err != nil {
		return err
	}
	for range rows.Blocks {
	}
	return rows.Err()
}

// InsertNative streams batches (already-built Blocks matching the target
// table's schema) to the server as a single INSERT's data, terminating
// with an empty block, and returns the final status.
func (c *Client) InsertNative(ctx context.Context, sql string, batches <-chan *block.Block) error {
	rows, err := c.QueryRaw(ctx, sql)
	if err != nil {
		return err
	}

	for b := range batches {
		if err := c.sendBlock(ctx, b); err != nil {
			return err
		}
	}
	if err := c.sendBlock(ctx, &block.Block{}); err != nil {
		return err
	}

	for range rows.Blocks {
	}
	return rows.Err()
}

// sendBlock hands one data block to the actor and waits for it to be
// written, or for the connection or ctx to end first.
func (c *Client) sendBlock(ctx context.Context, b *block.Block) error {
	ack := make(chan error, 1)
	select {
	case c.reqCh <- &request{sendData: &sendDataRequest{block: b, ack: ack}}:
	case <-c.closed:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-c.closed:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
