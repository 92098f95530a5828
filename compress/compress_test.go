package compress_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/chnative/compress"
)

func TestRoundTripNone(t *testing.T) {
	raw := []byte("hello, block codec")
	frame, err := compress.Compress(raw, compress.MethodNone)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := compress.Decompress(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("got %q, want %q", got, raw)
	}
}

func TestRoundTripLZ4(t *testing.T) {
	raw := bytes.Repeat([]byte("columnar block payload, repeated for compressibility. "), 64)
	frame, err := compress.Compress(raw, compress.MethodLZ4)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := compress.Decompress(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("round-tripped bytes differ from input")
	}
}

func TestChecksumMismatchIsRejected(t *testing.T) {
	raw := []byte("tamper target")
	frame, err := compress.Compress(raw, compress.MethodNone)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	frame[0] ^= 0xff // corrupt checksum_low
	if _, err := compress.Decompress(bytes.NewReader(frame)); err == nil {
		t.Fatal("expected a checksum mismatch error")
	}
}

func TestEmptyInput(t *testing.T) {
	frame, err := compress.Compress(nil, compress.MethodNone)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := compress.Decompress(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}
