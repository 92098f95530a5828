// Package cityhash102 implements the 128-bit CityHash v1.0.2 variant used
// to checksum compressed blocks on the wire. There is no maintained
// third-party Go module for this specific (older) CityHash revision — the
// official ClickHouse Go driver vendors the same algorithm internally
// rather than importing one, and this package follows that precedent.
package cityhash102

import "encoding/binary"

const (
	k0 = 0xc3a5c85c97cb3127
	k1 = 0xb492b66fbe98f273
	k2 = 0x9ae16a3b2f90404f
	k3 = 0xc949d7c7509e6557
)

func fetch64(s []byte) uint64 { return binary.LittleEndian.Uint64(s) }
func fetch32(s []byte) uint64 { return uint64(binary.LittleEndian.Uint32(s)) }

func rotate(val uint64, shift uint) uint64 {
	if shift == 0 {
		return val
	}
	return (val >> shift) | (val << (64 - shift))
}

func rotateByAtLeast1(val uint64, shift uint) uint64 {
	return (val >> shift) | (val << (64 - shift))
}

func shiftMix(val uint64) uint64 { return val ^ (val >> 47) }

const mul = 0x9ddfea08eb382d69

// hash128to64 combines a 128-bit value (lo, hi) into a 64-bit hash.
func hash128to64(lo, hi uint64) uint64 {
	a := (lo ^ hi) * mul
	a ^= a >> 47
	b := (hi ^ a) * mul
	b ^= b >> 47
	b *= mul
	return b
}

func hashLen16(u, v uint64) uint64 { return hash128to64(u, v) }

func hashLen0to16(s []byte) uint64 {
	n := uint64(len(s))
	if n > 8 {
		a := fetch64(s)
		b := fetch64(s[n-8:])
		return hashLen16(a, rotateByAtLeast1(b+n, uint(n))) ^ b
	}
	if n >= 4 {
		a := fetch32(s)
		return hashLen16(n+(a<<3), fetch32(s[n-4:]))
	}
	if n > 0 {
		a := uint32(s[0])
		b := uint32(s[n>>1])
		c := uint32(s[n-1])
		y := a + (b << 8)
		z := uint32(n) + (c << 2)
		return shiftMix(uint64(y)*k2^uint64(z)*k3) * k2
	}
	return k2
}

func hashLen17to32(s []byte) uint64 {
	n := uint64(len(s))
	a := fetch64(s) * k1
	b := fetch64(s[8:])
	c := fetch64(s[n-8:]) * k2
	d := fetch64(s[n-16:]) * k0
	return hashLen16(rotate(a-b, 43)+rotate(c, 30)+d, a+rotate(b^k3, 20)-c+n)
}

type pair struct{ first, second uint64 }

func weakHashLen32WithSeedsRaw(w, x, y, z, a, b uint64) pair {
	a += w
	b = rotate(b+a+z, 21)
	c := a
	a += x
	a += y
	b += rotate(a, 44)
	return pair{a + z, b + c}
}

func weakHashLen32WithSeeds(s []byte, a, b uint64) pair {
	return weakHashLen32WithSeedsRaw(fetch64(s), fetch64(s[8:]), fetch64(s[16:]), fetch64(s[24:]), a, b)
}

func hashLen33to64(s []byte) uint64 {
	n := uint64(len(s))
	z := fetch64(s[24:])
	a := fetch64(s) + (n+fetch64(s[n-16:]))*k0
	b := rotate(a+z, 52)
	c := rotate(a, 37)
	a += fetch64(s[8:])
	c += rotate(a, 7)
	a += fetch64(s[16:])
	vf := a + z
	vs := b + rotate(a, 31) + c
	a = fetch64(s[16:]) + fetch64(s[n-32:])
	z = fetch64(s[n-8:])
	b = rotate(a+z, 52)
	c = rotate(a, 37)
	a += fetch64(s[n-24:])
	c += rotate(a, 7)
	a += fetch64(s[n-16:])
	wf := a + z
	ws := b + rotate(a, 31) + c
	r := shiftMix((vf+ws)*k2 + (wf+vs)*k0)
	return shiftMix(r*k0+vs) * k2
}

// hash64 is CityHash64. Nothing in this package calls it; the wire checksum
// uses only the 128-bit variant (Hash128).
func hash64(s []byte) uint64 {
	n := len(s)
	switch {
	case n <= 16:
		return hashLen0to16(s)
	case n <= 32:
		return hashLen17to32(s)
	case n <= 64:
		return hashLen33to64(s)
	}

	x := fetch64(s)
	y := fetch64(s[n-16:]) ^ k1
	z := fetch64(s[n-56:]) ^ k0
	v := weakHashLen32WithSeeds(s[n-64:], uint64(n), y)
	w := weakHashLen32WithSeeds(s[n-32:], uint64(n)*k1, k0)
	z += shiftMix(v.second) * k1
	x = rotate(z+x, 39) * k1
	y = rotate(y, 33) * k1

	rem := (n - 1) &^ 63
	off := 0
	for rem != 0 {
		x = rotate(x+y+v.first+fetch64(s[off+16:]), 37) * k1
		y = rotate(y+v.second+fetch64(s[off+48:]), 42) * k1
		x ^= w.second
		y ^= v.first
		z = rotate(z^w.first, 33)
		v = weakHashLen32WithSeeds(s[off:], v.second*k1, x+w.first)
		w = weakHashLen32WithSeeds(s[off+32:], z+w.second, y)
		z, x = x, z
		off += 64
		rem -= 64
	}
	return hashLen16(hashLen16(v.first, w.first)+shiftMix(y)*k1+z, hashLen16(v.second, w.second)+x)
}

// cityMurmur implements the short-input fallback CityHash128 delegates to
// for inputs under 128 bytes.
func cityMurmur(s []byte, seedLo, seedHi uint64) (lo, hi uint64) {
	a := seedLo
	b := seedHi
	var c, d uint64
	n := len(s)
	l := n - 16
	if l <= 0 {
		a = shiftMix(a*k1) * k1
		c = b*k1 + hashLen0to16(s)
		var fetched uint64
		if n >= 8 {
			fetched = fetch64(s)
		} else {
			fetched = c
		}
		d = shiftMix(a + fetched)
	} else {
		c = hashLen16(fetch64(s[n-8:])+k1, a)
		d = hashLen16(b+uint64(n), c+fetch64(s[n-16:]))
		a += d
		off := 0
		for {
			a ^= shiftMix(fetch64(s[off:])*k1) * k1
			a *= k1
			b ^= a
			c ^= shiftMix(fetch64(s[off+8:])*k1) * k1
			c *= k1
			d ^= c
			off += 16
			l -= 16
			if l <= 0 {
				break
			}
		}
	}
	a = hashLen16(a, c)
	b = hashLen16(d, b)
	return a ^ b, hashLen16(b, a)
}

// hash128WithSeed is CityHash128WithSeed.
func hash128WithSeed(s []byte, seedLo, seedHi uint64) (lo, hi uint64) {
	n := len(s)
	if n < 128 {
		return cityMurmur(s, seedLo, seedHi)
	}

	x := seedLo
	y := seedHi
	z := uint64(n) * k1
	var v, w pair
	v.first = rotate(y^k1, 49)*k1 + fetch64(s)
	v.second = rotate(v.first, 42)*k1 + fetch64(s[8:])
	w.first = rotate(y+z, 35)*k1 + x
	w.second = rotate(x+fetch64(s[88:]), 53) * k1

	off := 0
	rem := n
	for rem >= 128 {
		x = rotate(x+y+v.first+fetch64(s[off+16:]), 37) * k1
		y = rotate(y+v.second+fetch64(s[off+48:]), 42) * k1
		x ^= w.second
		y ^= v.first
		z = rotate(z^w.first, 33)
		v = weakHashLen32WithSeeds(s[off:], v.second*k1, x+w.first)
		w = weakHashLen32WithSeeds(s[off+32:], z+w.second, y)
		z, x = x, z
		off += 64

		x = rotate(x+y+v.first+fetch64(s[off+16:]), 37) * k1
		y = rotate(y+v.second+fetch64(s[off+48:]), 42) * k1
		x ^= w.second
		y ^= v.first
		z = rotate(z^w.first, 33)
		v = weakHashLen32WithSeeds(s[off:], v.second*k1, x+w.first)
		w = weakHashLen32WithSeeds(s[off+32:], z+w.second, y)
		z, x = x, z
		off += 64

		rem -= 128
	}
	y += rotate(w.first, 37)*k0 + z
	x += rotate(v.first+z, 49) * k0

	for tailDone := 0; tailDone < rem; {
		tailDone += 32
		y = rotate(y-x, 42)*k0 + v.second
		w.first += fetch64(s[n-tailDone+16:])
		x = rotate(x, 49)*k0 + w.first
		w.first += v.first
		v = weakHashLen32WithSeeds(s[n-tailDone:], v.first, v.second)
	}

	x = hashLen16(x, v.first)
	y = hashLen16(y, w.first)
	return hashLen16(x+v.second, w.second) + y, hashLen16(x+w.second, y+v.second)
}

// Hash128 computes the 128-bit CityHash-102 digest of data, returning the
// low and high 64-bit halves in the order the wire's checksum_low/
// checksum_high fields expect.
func Hash128(data []byte) (lo, hi uint64) {
	n := len(data)
	if n >= 16 {
		return hash128WithSeed(data[16:], fetch64(data)^k3, fetch64(data[8:]))
	}
	if n >= 8 {
		return hash128WithSeed(nil, fetch64(data)^(uint64(n)*k0), fetch64(data[n-8:])^k1)
	}
	return hash128WithSeed(data, k0, k1)
}
