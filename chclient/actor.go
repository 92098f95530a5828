package chclient

import (
	"sync"
	"time"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/protocol"
)

// blockSink is what a pending query's FIFO entry delivers into: blocks as
// they arrive, and finally either a nil error (clean EndOfStream) or a
// non-nil one (a relayed ServerException or a connection-fatal error).
type blockSink struct {
	blocks chan *block.Block
	done   chan error
}

func newBlockSink() *blockSink {
	return &blockSink{
		blocks: make(chan *block.Block, 32),
		done:   make(chan error, 1),
	}
}

// request is the union of messages a Client handle can send the actor.
type request struct {
	query    *queryRequest
	sendData *sendDataRequest
}

type queryRequest struct {
	sql   string
	reply chan *queryHandle
}

type sendDataRequest struct {
	block *block.Block
	ack   chan error
}

// queryHandle is what QueryRaw hands back to its caller: a channel of
// blocks and a completion signal.
type queryHandle struct {
	sink *blockSink
}

// progressState accumulates Progress packets across the session's
// lifetime, guarded by a mutex since Client.Progress() may be called
// concurrently with the actor goroutine updating it.
type progressState struct {
	mu   sync.Mutex
	snap protocol.Progress
}

func (p *progressState) add(delta protocol.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.ReadRows += delta.ReadRows
	p.snap.ReadBytes += delta.ReadBytes
	p.snap.WrittenRows += delta.WrittenRows
	p.snap.WrittenBytes += delta.WrittenBytes
	if delta.TotalRowsHint > p.snap.TotalRowsHint {
		p.snap.TotalRowsHint = delta.TotalRowsHint
	}
}

func (p *progressState) get() protocol.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// fifo is the session's queue of in-flight queries' block sinks, in the
// strict order their Query packets were sent — the server processes one
// connection's queries serially, so responses arrive in the same order.
type fifo struct {
	entries []*blockSink
}

func (f *fifo) push(s *blockSink) { f.entries = append(f.entries, s) }
func (f *fifo) empty() bool       { return len(f.entries) == 0 }
func (f *fifo) head() *blockSink  { return f.entries[0] }
func (f *fifo) popHead() {
	if len(f.entries) == 0 {
		return
	}
	f.entries = f.entries[1:]
}

// inboundPacket pairs a packet read from the wire with any read error, so
// the dedicated reader goroutine can hand both to the actor over one
// channel.
type inboundPacket struct {
	pkt protocol.ServerPacket
	err error
}

// readLoop runs on its own goroutine for the lifetime of the connection,
// continuously reading packets off the wire and forwarding them to the
// actor. This is what lets runActor's select block on requests and
// inbound packets at the same time instead of busy-polling. It exits
// (after sending the terminal error, if any) once ReadServerPacket fails.
func (c *Client) readLoop() {
	for {
		pkt, err := protocol.ReadServerPacket(c.reader, c.revision, protocol.RevisionCustomSerialization)
		c.pktCh <- inboundPacket{pkt: pkt, err: err}
		if err != nil {
			return
		}
	}
}

// runActor is the session's single goroutine: it owns the writer and the
// FIFO, and never shares them with any other goroutine. Requests arrive
// over reqCh; inbound packets arrive over pktCh from readLoop. Both are
// selected together so neither starves the other.
func (c *Client) runActor() {
	defer close(c.closed)
	var q fifo

	for {
		select {
		case req, ok := <-c.reqCh:
			if !ok {
				c.drainAndExit(&q, nil)
				return
			}
			sink, err := c.handleRequest(req)
			if err != nil {
				c.drainAndExit(&q, err)
				return
			}
			if sink != nil {
				q.push(sink)
			}

		case in := <-c.pktCh:
			if in.err != nil {
				c.drainAndExit(&q, in.err)
				return
			}
			if err := c.handlePacket(in.pkt, &q); err != nil {
				c.drainAndExit(&q, err)
				return
			}
		}
	}
}

// handleRequest serializes and sends the request's packet(s) to the
// server, returning the new FIFO entry to push for a query request (nil
// for anything else).
func (c *Client) handleRequest(req *request) (*blockSink, error) {
	switch {
	case req.query != nil:
		return c.sendQuery(req.query)
	case req.sendData != nil:
		return nil, c.sendData(req.sendData)
	default:
		return nil, cherr.NewProtocol("empty request")
	}
}

func (c *Client) sendQuery(qr *queryRequest) (*blockSink, error) {
	if c.options.Diagnostics != nil {
		res := c.options.Diagnostics.Record(qr.sql, time.Now())
		if res.Alert != nil && c.options.OnRepeatedQuery != nil {
			c.options.OnRepeatedQuery(*res.Alert)
		}
	}

	compression := protocol.CompressionDisabled
	if c.compression != CompressionNone {
		compression = protocol.CompressionEnabled
	}
	q := protocol.Query{
		QueryID: c.nextQueryID(),
		Info: protocol.ClientInfo{
			Kind:           protocol.QueryKindInitialQuery,
			InitialUser:    c.options.username(),
			InitialQueryID: "",
			OSUser:         "",
			ClientHostname: "localhost",
			ClientName:     c.options.clientName(),
			VersionMajor:   1,
			VersionMinor:   0,
		},
		Stage:       protocol.StageComplete,
		Compression: compression,
		SQL:         qr.sql,
	}
	if err := q.Write(c.writer, c.revision); err != nil {
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, err
	}
	// Empty data block terminator: signals "no inline INSERT data" for a
	// SELECT-shaped query, and must precede any data this handle streams
	// in for an INSERT.
	empty := &block.Block{}
	if err := empty.Write(c.writer, c.revision, protocol.RevisionCustomSerialization); err != nil {
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, err
	}

	sink := newBlockSink()
	qr.reply <- &queryHandle{sink: sink}
	return sink, nil
}

func (c *Client) sendData(sr *sendDataRequest) error {
	if err := sr.block.Write(c.writer, c.revision, protocol.RevisionCustomSerialization); err != nil {
		sr.ack <- err
		return err
	}
	if err := c.writer.Flush(); err != nil {
		sr.ack <- err
		return err
	}
	sr.ack <- nil
	return nil
}

// handlePacket applies one inbound packet to the FIFO per the documented
// routing rules: Data forwards to the head, EndOfStream pops it,
// Exception fails only the head (or becomes the connection's terminal
// error if the FIFO is empty), and everything else is either ignored or
// folded into progress accumulation.
func (c *Client) handlePacket(pkt protocol.ServerPacket, q *fifo) error {
	switch p := pkt.(type) {
	case protocol.DataPacket:
		if !q.empty() {
			// A blocking send: a slow consumer pauses the actor (and, once
			// pktCh fills, the read loop and the socket read behind it)
			// rather than silently losing blocks.
			q.head().blocks <- p.Block
		}
		return nil
	case protocol.EndOfStreamPacket:
		if !q.empty() {
			head := q.head()
			close(head.blocks)
			head.done <- nil
			q.popHead()
		}
		return nil
	case protocol.ExceptionPacket:
		if q.empty() {
			return p.Err
		}
		head := q.head()
		close(head.blocks)
		head.done <- p.Err
		q.popHead()
		return nil
	case protocol.ProgressPacket:
		c.progress.add(p.Progress)
		return nil
	case protocol.HelloPacket:
		return protocol.ErrUnexpectedHello
	case protocol.ProfileInfoPacket, protocol.TotalsPacket, protocol.ExtremesPacket,
		protocol.LogPacket, protocol.TableColumnsPacket, protocol.PartUUIDsPacket,
		protocol.ReadTaskRequestPacket, protocol.ProfileEventsPacket, protocol.PongPacket,
		protocol.TablesStatusResponsePacket:
		return nil
	default:
		return cherr.NewProtocol("unhandled server packet %T", pkt)
	}
}

// drainAndExit fails every outstanding query with err (or MissingRow if
// the actor is shutting down cleanly) and records the terminal error.
func (c *Client) drainAndExit(q *fifo, err error) {
	terminal := err
	if terminal == nil {
		terminal = cherr.MissingRow
	}
	for !q.empty() {
		head := q.head()
		close(head.blocks)
		head.done <- terminal
		q.popHead()
	}
	c.mu.Lock()
	c.terminalErr = terminal
	c.mu.Unlock()
}
