package pfor

import (
	"encoding/binary"
	"math/bits"
)

const blockSize32 = 256

// Fpxenc32 XOR-encodes and bit-packs count 32-bit values. src holds count
// little-endian uint32 values; prev seeds the XOR chain (0 for the first
// buffer of a stream). Returns the number of bytes written to dst.
//
// The 256-value block size keeps the worst case within
// ceil(n/256) + 4*n bytes, below the P4NENC256 bound callers allocate.
func Fpxenc32(src []byte, count int, dst []byte, prev uint32) int {
	pos := 0
	var x [blockSize32]uint32
	for base := 0; base < count; base += blockSize32 {
		n := min(blockSize32, count-base)
		var or uint32
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint32(src[4*(base+i):])
			x[i] = v ^ prev
			prev = v
			or |= x[i]
		}
		w := bits.Len32(or)
		dst[pos] = byte(w)
		pos++
		pos += packBits(x[:n], w, dst[pos:])
	}
	return pos
}

// Fpxdec32 reverses Fpxenc32, writing count little-endian uint32 values to
// dst. prev must match the seed given to the encoder. Returns the number of
// bytes consumed from src.
func Fpxdec32(src []byte, count int, dst []byte, prev uint32) int {
	pos := 0
	var x [blockSize32]uint32
	for base := 0; base < count; base += blockSize32 {
		n := min(blockSize32, count-base)
		w := int(src[pos])
		pos++
		pos += unpackBits(src[pos:], w, x[:n])
		for i := 0; i < n; i++ {
			prev ^= x[i]
			binary.LittleEndian.PutUint32(dst[4*(base+i):], prev)
		}
	}
	return pos
}
