// Package compress implements the optional LZ4-compressed block frame: a
// 16-byte cityhash-102 checksum, a 9-byte method/size header, and the
// compressed payload.
package compress

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"

	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/compress/cityhash102"
	"github.com/mickamy/chnative/wire"
)

// Method identifies the compression codec a frame's 9-byte header declares.
type Method byte

const (
	MethodNone Method = 0x02
	MethodLZ4  Method = 0x82
)

const headerSize = 9
const maxFrameSize = 1 << 30

// Compress wraps raw into a checksummed frame using method. MethodNone
// still produces the full frame (checksum + header), just with raw bytes
// as the "compressed" payload — the server accepts uncompressed frames
// within a compression-enabled session this way.
func Compress(raw []byte, method Method) ([]byte, error) {
	var body []byte
	switch method {
	case MethodNone:
		body = raw
	case MethodLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		var c lz4.Compressor
		n, err := c.CompressBlock(raw, buf)
		if err != nil {
			return nil, cherr.NewProtocol("lz4 compress: %v", err)
		}
		if n == 0 {
			// Incompressible input: lz4 reports n == 0 rather than
			// growing the output; fall back to storing it raw under
			// the LZ4 method tag is not valid, so store uncompressed.
			return Compress(raw, MethodNone)
		}
		body = buf[:n]
	default:
		return nil, cherr.NewProtocol("unknown compression method %#x", byte(method))
	}

	compressedSize := headerSize + len(body)
	if compressedSize < headerSize || compressedSize > maxFrameSize {
		return nil, cherr.NewProtocol("compressed frame size %d out of range", compressedSize)
	}

	header := make([]byte, headerSize)
	header[0] = byte(method)
	binary.LittleEndian.PutUint32(header[1:5], uint32(compressedSize))
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(raw)))

	checksummed := make([]byte, 0, headerSize+len(body))
	checksummed = append(checksummed, header...)
	checksummed = append(checksummed, body...)
	lo, hi := cityhash102.Hash128(checksummed)

	frame := make([]byte, 16+len(checksummed))
	binary.LittleEndian.PutUint64(frame[0:8], lo)
	binary.LittleEndian.PutUint64(frame[8:16], hi)
	copy(frame[16:], checksummed)
	return frame, nil
}

// Decompress reads one frame from r and returns the raw (decompressed)
// bytes, verifying the checksum and the declared sizes.
func Decompress(r wire.Reader) ([]byte, error) {
	checksumLo, err := wire.ReadU64(r)
	if err != nil {
		return nil, err
	}
	checksumHi, err := wire.ReadU64(r)
	if err != nil {
		return nil, err
	}
	methodByte, err := wire.ReadU8(r)
	if err != nil {
		return nil, err
	}
	compressedSizeRaw, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	decompressedSize, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	compressedSize := int(compressedSizeRaw)
	if compressedSize < headerSize || compressedSize > maxFrameSize {
		return nil, cherr.NewProtocol("compressed frame size %d out of range", compressedSize)
	}

	body, err := wire.ReadRawBytes(r, compressedSize-headerSize)
	if err != nil {
		return nil, err
	}

	checksummed := make([]byte, headerSize+len(body))
	checksummed[0] = methodByte
	binary.LittleEndian.PutUint32(checksummed[1:5], compressedSizeRaw)
	binary.LittleEndian.PutUint32(checksummed[5:9], decompressedSize)
	copy(checksummed[headerSize:], body)

	gotLo, gotHi := cityhash102.Hash128(checksummed)
	if gotLo != checksumLo || gotHi != checksumHi {
		return nil, cherr.NewProtocol("compressed block checksum mismatch")
	}

	switch Method(methodByte) {
	case MethodNone:
		if len(body) != int(decompressedSize) {
			return nil, cherr.NewProtocol("uncompressed frame length %d does not match declared size %d", len(body), decompressedSize)
		}
		return body, nil
	case MethodLZ4:
		raw := make([]byte, decompressedSize)
		n, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return nil, cherr.NewProtocol("lz4 decompress: %v", err)
		}
		if n != int(decompressedSize) {
			return nil, cherr.NewProtocol("lz4 decompressed %d bytes, expected %d", n, decompressedSize)
		}
		return raw, nil
	default:
		return nil, cherr.NewProtocol("unknown compression method %#x", methodByte)
	}
}
