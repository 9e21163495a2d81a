package pfor

import "encoding/binary"

func zigzag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// P4ndenc64 delta-encodes src as varints: the first value verbatim, then
// zigzagged deltas. Returns the number of bytes written to dst. dst must
// hold at least P4nbound64(len(src)) bytes.
func P4ndenc64(src []uint64, dst []byte) int {
	pos := 0
	var prev uint64
	for i, v := range src {
		if i == 0 {
			pos += binary.PutUvarint(dst[pos:], v)
		} else {
			pos += binary.PutUvarint(dst[pos:], zigzag64(int64(v-prev)))
		}
		prev = v
	}
	return pos
}

// P4nddec64 reverses P4ndenc64, writing count values to dst.
// Returns the number of bytes consumed from src.
func P4nddec64(src []byte, count int, dst []uint64) int {
	pos := 0
	var prev uint64
	for i := 0; i < count; i++ {
		v, n := binary.Uvarint(src[pos:])
		pos += n
		if i == 0 {
			prev = v
		} else {
			prev += uint64(unzigzag64(v))
		}
		dst[i] = prev
	}
	return pos
}

// P4nbound64 is the worst-case output size of P4ndenc64 for n values.
func P4nbound64(n int) int {
	return 10 * n
}
