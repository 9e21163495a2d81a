package om

import (
	"testing"

	"github.com/TuSKan/om-go/pfor"
)

func TestCompressLUTPaddedGroups(t *testing.T) {
	// 10 entries in groups of 4: 3 groups, each padded to the largest.
	lookUpTable := []uint64{0, 120, 260, 300, 470, 512, 810, 4096, 4100, 9000}
	encoder, err := NewEncoder(1, CompressionP4nzdec256, DataTypeFloatArray, []uint64{10}, []uint64{1}, 4)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	size := encoder.SizeOfCompressedLUT(lookUpTable)
	if size == 0 || size%3 != 0 {
		t.Fatalf("SizeOfCompressedLUT = %d, want a positive multiple of 3", size)
	}

	// The size must be 3x the largest individually compressed group.
	buffer := make([]byte, pfor.P4nbound64(4))
	maxLength := uint64(0)
	for i := 0; i < 10; i += 4 {
		end := min(i+4, 10)
		if l := uint64(pfor.P4ndenc64(lookUpTable[i:end], buffer)); l > maxLength {
			maxLength = l
		}
	}
	if size != 3*maxLength {
		t.Errorf("SizeOfCompressedLUT = %d, want %d", size, 3*maxLength)
	}

	out := make([]byte, size)
	encoder.CompressLUT(lookUpTable, out, size)

	// Each group must decompress from its fixed stride.
	stride := size / 3
	decoded := make([]uint64, 10)
	for i := uint64(0); i < 3; i++ {
		start := 4 * i
		end := min(start+4, 10)
		pfor.P4nddec64(out[i*stride:], int(end-start), decoded[start:end])
	}
	for i := range lookUpTable {
		if decoded[i] != lookUpTable[i] {
			t.Errorf("entry %d: got %d, want %d", i, decoded[i], lookUpTable[i])
		}
	}
}

func TestCompressLUTSingleGroup(t *testing.T) {
	lookUpTable := []uint64{8, 100, 200, 300}
	encoder, err := NewEncoder(1, CompressionP4nzdec256, DataTypeFloatArray, []uint64{3}, []uint64{1}, DefaultLUTChunkElementCount)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	size := encoder.SizeOfCompressedLUT(lookUpTable)
	out := make([]byte, size)
	encoder.CompressLUT(lookUpTable, out, size)

	decoded := make([]uint64, 4)
	pfor.P4nddec64(out, 4, decoded)
	for i := range lookUpTable {
		if decoded[i] != lookUpTable[i] {
			t.Errorf("entry %d: got %d, want %d", i, decoded[i], lookUpTable[i])
		}
	}
}
