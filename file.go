// Package om reads and writes OM files: compact, chunked, self-describing
// containers for multi-dimensional numeric arrays.
//
// A file starts with an 8-byte magic header, followed by compressed chunk
// payloads, compressed chunk look-up tables and variable descriptors in any
// order, and ends with a trailer pointing at the root variable. Variables
// reference each other through absolute (offset, size) pairs, forming a DAG.
package om

import "encoding/binary"

const (
	headerSize  = 8
	trailerSize = 24

	magic1        = 'O'
	magic2        = 'M'
	formatVersion = 3
)

// DefaultLUTChunkElementCount is the number of LUT entries grouped into one
// compressed LUT chunk by the container writer.
const DefaultLUTChunkElementCount = 256

func headerBytes() []byte {
	return []byte{magic1, magic2, formatVersion, 0, 0, 0, 0, 0}
}

func trailerBytes(root OffsetSize) []byte {
	b := make([]byte, trailerSize)
	copy(b, headerBytes())
	binary.LittleEndian.PutUint64(b[8:], root.Offset)
	binary.LittleEndian.PutUint64(b[16:], root.Size)
	return b
}

func parseTrailer(b []byte) (OffsetSize, bool) {
	if len(b) != trailerSize || b[0] != magic1 || b[1] != magic2 || b[2] != formatVersion {
		return OffsetSize{}, false
	}
	return OffsetSize{
		Offset: binary.LittleEndian.Uint64(b[8:]),
		Size:   binary.LittleEndian.Uint64(b[16:]),
	}, true
}
