package chclient

import (
	"bufio"
	"bytes"

	"github.com/mickamy/chnative/compress"
	"github.com/mickamy/chnative/wire"
)

// frameWriter buffers everything written into it and only reaches the
// underlying connection on Flush, at which point — if compression is
// enabled — the whole buffered packet is wrapped in a single compressed
// frame. This matches the native protocol's per-packet compression unit:
// one frame per flushed Query or Data packet, not one frame per field. The
// handshake Hello is sent before this wrapper is in place and is never
// compressed.
type frameWriter struct {
	dst         *bufio.Writer
	buf         bytes.Buffer
	compression CompressionMethod
}

func newFrameWriter(dst *bufio.Writer, compression CompressionMethod) *frameWriter {
	return &frameWriter{dst: dst, compression: compression}
}

func (f *frameWriter) Write(p []byte) (int, error)  { return f.buf.Write(p) }
func (f *frameWriter) WriteByte(c byte) error        { return f.buf.WriteByte(c) }

// Flush emits the buffered packet, compressing it first if enabled, and
// flushes the underlying bufio.Writer.
func (f *frameWriter) Flush() error {
	raw := f.buf.Bytes()
	defer f.buf.Reset()

	if f.compression == CompressionNone {
		if _, err := f.dst.Write(raw); err != nil {
			return err
		}
		return f.dst.Flush()
	}

	frame, err := compress.Compress(raw, compress.MethodLZ4)
	if err != nil {
		return err
	}
	if _, err := f.dst.Write(frame); err != nil {
		return err
	}
	return f.dst.Flush()
}

// frameReader serves bytes from successive compressed frames (or, when
// compression is disabled, straight from the underlying connection).
type frameReader struct {
	src         *bufio.Reader
	compression CompressionMethod
	buf         *bytes.Reader
}

func newFrameReader(src *bufio.Reader, compression CompressionMethod) *frameReader {
	return &frameReader{src: src, compression: compression, buf: bytes.NewReader(nil)}
}

func (f *frameReader) Read(p []byte) (int, error) {
	if f.compression == CompressionNone {
		return f.src.Read(p)
	}
	if f.buf.Len() == 0 {
		if err := f.fill(); err != nil {
			return 0, err
		}
	}
	return f.buf.Read(p)
}

func (f *frameReader) ReadByte() (byte, error) {
	if f.compression == CompressionNone {
		return f.src.ReadByte()
	}
	if f.buf.Len() == 0 {
		if err := f.fill(); err != nil {
			return 0, err
		}
	}
	return f.buf.ReadByte()
}

func (f *frameReader) fill() error {
	raw, err := compress.Decompress(f.src)
	if err != nil {
		return err
	}
	f.buf = bytes.NewReader(raw)
	return nil
}

var (
	_ wire.Writer = (*frameWriter)(nil)
	_ wire.Reader = (*frameReader)(nil)
)
