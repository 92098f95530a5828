package cityhash102_test

import (
	"testing"

	"github.com/mickamy/chnative/compress/cityhash102"
)

func TestHash128IsDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, 128-bit checksum")
	lo1, hi1 := cityhash102.Hash128(data)
	lo2, hi2 := cityhash102.Hash128(data)
	if lo1 != lo2 || hi1 != hi2 {
		t.Fatalf("Hash128 is not deterministic: (%x,%x) vs (%x,%x)", lo1, hi1, lo2, hi2)
	}
}

func TestHash128DistinguishesInputs(t *testing.T) {
	lo1, hi1 := cityhash102.Hash128([]byte("block A"))
	lo2, hi2 := cityhash102.Hash128([]byte("block B"))
	if lo1 == lo2 && hi1 == hi2 {
		t.Fatal("expected different inputs to produce different hashes")
	}
}

func TestHash128HandlesAllLengthClasses(t *testing.T) {
	// Exercise every branch of hash128WithSeed/cityMurmur: empty, <16,
	// 16-127, and >=128 bytes.
	lens := []int{0, 1, 8, 15, 16, 32, 63, 64, 100, 127, 128, 129, 256, 1000}
	seen := map[[2]uint64]bool{}
	for _, n := range lens {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		lo, hi := cityhash102.Hash128(data)
		key := [2]uint64{lo, hi}
		if seen[key] {
			t.Errorf("length %d collided with a previous length's hash", n)
		}
		seen[key] = true
	}
}
