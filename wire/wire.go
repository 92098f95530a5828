// Package wire implements the base-128 varuint and length-prefixed string
// primitives the rest of the codec is built on, plus the small Reader/Writer
// interfaces the block, column, and protocol packages read and write
// through.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mickamy/chnative/cherr"
)

// MaxStringSize is the largest string length (in bytes) the wire format
// permits; a larger declared length is a protocol error.
const MaxStringSize = 1 << 30

// Reader is the read half of a connection, used by every codec layer.
type Reader interface {
	io.Reader
	io.ByteReader
}

// Writer is the write half of a connection.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// ReadVarUint decodes a base-128 little-endian varuint: 1-9 bytes, each
// byte's MSB a continuation flag except on the 9th byte, which is taken
// whole (all 8 bits), so every u64 written by WriteVarUint round-trips.
func ReadVarUint(r Reader) (uint64, error) {
	var out uint64
	for i := 0; i < 9; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("wire: read varuint: %w", err)
		}
		if i == 8 {
			out |= uint64(b) << (7 * i)
			break
		}
		out |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return out, nil
}

// WriteVarUint encodes u as a base-128 little-endian varuint.
func WriteVarUint(w Writer, u uint64) error {
	for i := 0; i < 9; i++ {
		b := byte(u & 0x7f)
		u >>= 7
		if u == 0 {
			if err := w.WriteByte(b); err != nil {
				return fmt.Errorf("wire: write varuint: %w", err)
			}
			return nil
		}
		if err := w.WriteByte(b | 0x80); err != nil {
			return fmt.Errorf("wire: write varuint: %w", err)
		}
	}
	return nil
}

// ReadString reads a varuint length prefix followed by that many raw bytes.
func ReadString(r Reader) ([]byte, error) {
	n, err := ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	if n > MaxStringSize {
		return nil, cherr.NewProtocol("string length %d exceeds maximum %d", n, MaxStringSize)
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("wire: read string body: %w", err)
		}
	}
	return buf, nil
}

// ReadUTF8String reads a string and returns it as a Go string; the bytes
// are not checked for UTF-8 validity. The wire format
// carries raw bytes and callers that need strict validation should do so
// themselves.
func ReadUTF8String(r Reader) (string, error) {
	b, err := ReadString(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteString writes a varuint length prefix followed by the bytes of s.
func WriteString(w Writer, s []byte) error {
	if err := WriteVarUint(w, uint64(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	if _, err := w.Write(s); err != nil {
		return fmt.Errorf("wire: write string body: %w", err)
	}
	return nil
}

// WriteUTF8String is WriteString for a Go string.
func WriteUTF8String(w Writer, s string) error {
	return WriteString(w, []byte(s))
}

// ReadU8/ReadU16.../WriteU8... are thin little-endian fixed-width helpers
// used throughout the column codecs; they exist so codec code reads as a
// sequence of wire-shaped calls rather than ad hoc binary.Read calls.

func ReadU8(r Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("wire: read u8: %w", err)
	}
	return b, nil
}

func WriteU8(w Writer, v uint8) error {
	if err := w.WriteByte(v); err != nil {
		return fmt.Errorf("wire: write u8: %w", err)
	}
	return nil
}

func ReadU16(r Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: read u16: %w", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func WriteU16(w Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("wire: write u16: %w", err)
	}
	return nil
}

func ReadU32(r Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: read u32: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteU32(w Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("wire: write u32: %w", err)
	}
	return nil
}

func ReadU64(r Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("wire: read u64: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func WriteU64(w Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("wire: write u64: %w", err)
	}
	return nil
}

// ReadRawBytes reads exactly n raw bytes with no length prefix.
func ReadRawBytes(r Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: read raw bytes: %w", err)
	}
	return buf, nil
}
