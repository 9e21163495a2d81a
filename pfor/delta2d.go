package pfor

import "encoding/binary"

// Delta2dEncode subtracts each row from the following one, in place, over a
// row-major [rows][cols] block of little-endian int16 values.
func Delta2dEncode(rows, cols int, buf []byte) {
	for d0 := rows - 1; d0 >= 1; d0-- {
		for d1 := 0; d1 < cols; d1++ {
			i := 2 * (d0*cols + d1)
			j := 2 * ((d0-1)*cols + d1)
			v := int16(binary.LittleEndian.Uint16(buf[i:])) - int16(binary.LittleEndian.Uint16(buf[j:]))
			binary.LittleEndian.PutUint16(buf[i:], uint16(v))
		}
	}
}

// Delta2dDecode reverses Delta2dEncode.
func Delta2dDecode(rows, cols int, buf []byte) {
	for d0 := 1; d0 < rows; d0++ {
		for d1 := 0; d1 < cols; d1++ {
			i := 2 * (d0*cols + d1)
			j := 2 * ((d0-1)*cols + d1)
			v := int16(binary.LittleEndian.Uint16(buf[i:])) + int16(binary.LittleEndian.Uint16(buf[j:]))
			binary.LittleEndian.PutUint16(buf[i:], uint16(v))
		}
	}
}

// Delta2dEncodeXor XORs each row with the following one, in place, over a
// row-major [rows][cols] block of little-endian 32-bit values.
func Delta2dEncodeXor(rows, cols int, buf []byte) {
	for d0 := rows - 1; d0 >= 1; d0-- {
		for d1 := 0; d1 < cols; d1++ {
			i := 4 * (d0*cols + d1)
			j := 4 * ((d0-1)*cols + d1)
			v := binary.LittleEndian.Uint32(buf[i:]) ^ binary.LittleEndian.Uint32(buf[j:])
			binary.LittleEndian.PutUint32(buf[i:], v)
		}
	}
}

// Delta2dDecodeXor reverses Delta2dEncodeXor.
func Delta2dDecodeXor(rows, cols int, buf []byte) {
	for d0 := 1; d0 < rows; d0++ {
		for d1 := 0; d1 < cols; d1++ {
			i := 4 * (d0*cols + d1)
			j := 4 * ((d0-1)*cols + d1)
			v := binary.LittleEndian.Uint32(buf[i:]) ^ binary.LittleEndian.Uint32(buf[j:])
			binary.LittleEndian.PutUint32(buf[i:], v)
		}
	}
}
