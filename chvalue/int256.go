package chvalue

import "math/big"

// BigIntFromBytes interprets a big-endian in-memory byte slice (as stored
// in Int128/UInt128/Int256/UInt256) as a math/big.Int, used only for
// decimal text rendering (Value.String) — the wire codec never goes
// through math/big, it moves the raw bytes directly.
func BigIntFromBytes(be []byte, signed bool) *big.Int {
	out := new(big.Int).SetBytes(be)
	if signed && len(be) > 0 && be[0]&0x80 != 0 {
		// Two's complement: out - 2^(8*len(be))
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8))
		out.Sub(out, mod)
	}
	return out
}

// BigIntToBytes writes v into a big-endian two's-complement (if signed)
// byte slice of the given width, used by tests and by callers constructing
// Int256/UInt256 values from math/big.
func BigIntToBytes(v *big.Int, width int, signed bool) []byte {
	out := make([]byte, width)
	if v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		tmp := new(big.Int).Add(mod, v)
		tmp.FillBytes(out)
		return out
	}
	v.FillBytes(out)
	return out
}
