package om

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/TuSKan/om-go/pfor"
)

// p4nenc256Bound is the worst-case codec output size in bytes for n elements.
func p4nenc256Bound(n uint64) uint64 {
	return (n+255)/256 + (n+32)*4
}

// Encoder turns a dense N-dimensional float32 array into compressed chunks.
// It is configured once and immutable afterwards; a single instance is
// consumed by one writer at a time. The encoder keeps references to the
// caller's dimension and chunk slices, which must outlive it.
type Encoder struct {
	scaleFactor          float32
	compression          Compression
	dataType             DataType
	dimensions           []uint64
	chunks               []uint64
	lutChunkElementCount uint64
}

// NewEncoder creates an encoder for an array of the given logical dimensions,
// split into chunks of the given extents. A chunk extent may exceed its
// dimension; the last chunk in each dimension is truncated to fit.
func NewEncoder(scaleFactor float32, compression Compression, dataType DataType, dimensions, chunks []uint64, lutChunkElementCount uint64) (*Encoder, error) {
	if len(dimensions) == 0 || len(dimensions) != len(chunks) {
		return nil, fmt.Errorf("dimension count %d does not match chunk count %d", len(dimensions), len(chunks))
	}
	for i := range dimensions {
		if dimensions[i] == 0 || chunks[i] == 0 {
			return nil, fmt.Errorf("dimension %d: extents must be positive, got dim=%d chunk=%d", i, dimensions[i], chunks[i])
		}
	}
	if lutChunkElementCount == 0 {
		return nil, fmt.Errorf("lut chunk element count must be positive")
	}
	switch compression {
	case CompressionP4nzdec256, CompressionP4nzdec256Logarithmic, CompressionFpxdec32:
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
	return &Encoder{
		scaleFactor:          scaleFactor,
		compression:          compression,
		dataType:             dataType,
		dimensions:           dimensions,
		chunks:               chunks,
		lutChunkElementCount: lutChunkElementCount,
	}, nil
}

// NumberOfChunks returns the total chunk count of the logical array.
func (e *Encoder) NumberOfChunks() uint64 {
	return NumberOfChunks(e.dimensions, e.chunks)
}

// NumberOfChunksInArray returns the chunk count of a region of the given
// per-dimension extents.
func (e *Encoder) NumberOfChunksInArray(arrayCount []uint64) uint64 {
	return NumberOfChunks(arrayCount, e.chunks)
}

// ChunkBufferSize returns the scratch size in bytes required by the
// chunkBuffer argument of WriteSingleChunk.
func (e *Encoder) ChunkBufferSize() uint64 {
	chunkLength := uint64(1)
	for _, c := range e.chunks {
		chunkLength *= c
	}
	return p4nenc256Bound(chunkLength)
}

// OutputBufferCapacity returns the size in bytes callers should allocate for
// the out argument of WriteSingleChunk. It is also at least 8 bytes per chunk.
func (e *Encoder) OutputBufferCapacity() uint64 {
	return max(4096, max(8*e.NumberOfChunks(), e.ChunkBufferSize()))
}

// SizeOfCompressedLUT compresses each LUT group once to measure it and
// returns nLutChunks times the largest group, the total size CompressLUT
// will produce.
func (e *Encoder) SizeOfCompressedLUT(lookUpTable []uint64) uint64 {
	nLutChunks := divideRoundedUp(uint64(len(lookUpTable)), e.lutChunkElementCount)
	buffer := make([]byte, pfor.P4nbound64(int(e.lutChunkElementCount)))
	maxLength := uint64(0)
	for i := uint64(0); i < nLutChunks; i++ {
		rangeStart := i * e.lutChunkElementCount
		rangeEnd := min(rangeStart+e.lutChunkElementCount, uint64(len(lookUpTable)))
		length := uint64(pfor.P4ndenc64(lookUpTable[rangeStart:rangeEnd], buffer))
		if length > maxLength {
			maxLength = length
		}
	}
	return maxLength * nLutChunks
}

// CompressLUT writes the compressed LUT into out. Each group is padded to a
// common stride of sizeOfCompressedLUT/nLutChunks bytes so readers can seek
// to group i by multiplication alone. sizeOfCompressedLUT must be the value
// returned by SizeOfCompressedLUT for the same table.
func (e *Encoder) CompressLUT(lookUpTable []uint64, out []byte, sizeOfCompressedLUT uint64) {
	nLutChunks := divideRoundedUp(uint64(len(lookUpTable)), e.lutChunkElementCount)
	lutChunkLength := sizeOfCompressedLUT / nLutChunks

	for i := uint64(0); i < nLutChunks; i++ {
		rangeStart := i * e.lutChunkElementCount
		rangeEnd := min(rangeStart+e.lutChunkElementCount, uint64(len(lookUpTable)))
		pfor.P4ndenc64(lookUpTable[rangeStart:rangeEnd], out[i*lutChunkLength:])
	}
}

// WriteSingleChunk copies one chunk out of a source cuboid, quantises it into
// chunkBuffer and compresses it into out, returning the compressed size in
// bytes.
//
// array is a dense cuboid of shape arrayDimensions. arrayOffset and
// arrayCount select the region being written; arrayOffset[i]+arrayCount[i]
// must not exceed arrayDimensions[i] and the region must align with the
// chunk grid. chunkIndex is the chunk's position in the global grid and
// chunkIndexOffsetInArray its position relative to the region's first chunk,
// both row-major encoded on the global grid. chunkBuffer must hold
// ChunkBufferSize() bytes and out OutputBufferCapacity() bytes.
//
// The walk detects runs of elements that are contiguous in both the source
// cuboid and the chunk and copies them in one inner loop per run.
func (e *Encoder) WriteSingleChunk(array []float32, arrayDimensions, arrayOffset, arrayCount []uint64, chunkIndex, chunkIndexOffsetInArray uint64, out, chunkBuffer []byte) uint64 {
	nd := len(e.dimensions)

	rollingMultiply := uint64(1)
	rollingMultiplyChunkLength := uint64(1)
	rollingMultiplyTargetCube := uint64(1)
	readCoordinate := uint64(0)
	writeCoordinate := uint64(0)
	linearReadCount := uint64(1)
	linearRead := true
	lengthLast := uint64(0)

	// Unpack global and region-relative chunk coordinates, accumulate the
	// read base and detect the initial linear run, innermost axis first.
	for i := nd - 1; i >= 0; i-- {
		nChunksInThisDimension := divideRoundedUp(e.dimensions[i], e.chunks[i])
		c0 := (chunkIndex / rollingMultiply) % nChunksInThisDimension
		c0Offset := (chunkIndexOffsetInArray / rollingMultiply) % nChunksInThisDimension
		length0 := min((c0+1)*e.chunks[i], e.dimensions[i]) - c0*e.chunks[i]

		if i == nd-1 {
			lengthLast = length0
		}

		readCoordinate += rollingMultiplyTargetCube * (c0Offset*e.chunks[i] + arrayOffset[i])

		if i == nd-1 && !(arrayCount[i] == length0 && arrayDimensions[i] == length0) {
			linearReadCount = length0
			linearRead = false
		}
		if linearRead && arrayCount[i] == length0 && arrayDimensions[i] == length0 {
			linearReadCount *= length0
		} else {
			linearRead = false
		}

		rollingMultiply *= nChunksInThisDimension
		rollingMultiplyTargetCube *= arrayDimensions[i]
		rollingMultiplyChunkLength *= length0
	}

	lengthInChunk := rollingMultiplyChunkLength

	for {
		switch e.compression {
		case CompressionP4nzdec256:
			for i := uint64(0); i < linearReadCount; i++ {
				val := array[readCoordinate+i]
				binary.LittleEndian.PutUint16(chunkBuffer[2*(writeCoordinate+i):], uint16(quantise(val, e.scaleFactor)))
			}
		case CompressionP4nzdec256Logarithmic:
			for i := uint64(0); i < linearReadCount; i++ {
				val := array[readCoordinate+i]
				if !math.IsNaN(float64(val)) {
					val = float32(math.Log10(1 + float64(val)))
				}
				binary.LittleEndian.PutUint16(chunkBuffer[2*(writeCoordinate+i):], uint16(quantise(val, e.scaleFactor)))
			}
		case CompressionFpxdec32:
			for i := uint64(0); i < linearReadCount; i++ {
				binary.LittleEndian.PutUint32(chunkBuffer[4*(writeCoordinate+i):], math.Float32bits(array[readCoordinate+i]))
			}
		}

		readCoordinate += linearReadCount - 1
		writeCoordinate += linearReadCount - 1
		writeCoordinate++

		// Walk axes innermost first: advance one step, re-derive the chunk
		// extent at the new position from the region boundary and extend the
		// next linear run while axes stay fully contained. The first axis
		// not at a chunk boundary stops the carry; a carry off axis 0 means
		// the chunk is complete.
		rollingMultiplyTargetCube = 1
		linearRead = true
		linearReadCount = 1

		for i := nd - 1; i >= 0; i-- {
			// Region-relative position before the step; the carry test below
			// uses pos+1 so a region ending at the staging edge does not wrap.
			pos := (readCoordinate/rollingMultiplyTargetCube)%arrayDimensions[i] - arrayOffset[i]
			qPos := pos / e.chunks[i]
			length0 := min((qPos+1)*e.chunks[i], arrayCount[i]) - qPos*e.chunks[i]
			readCoordinate += rollingMultiplyTargetCube

			if i == nd-1 && !(arrayCount[i] == length0 && arrayDimensions[i] == length0) {
				linearReadCount = length0
				linearRead = false
			}
			if linearRead && arrayCount[i] == length0 && arrayDimensions[i] == length0 {
				linearReadCount *= length0
			} else {
				linearRead = false
			}

			q0 := (pos + 1) % e.chunks[i]
			if q0 != 0 && q0 != length0 {
				break
			}
			readCoordinate -= length0 * rollingMultiplyTargetCube
			rollingMultiplyTargetCube *= arrayDimensions[i]

			if i == 0 {
				// Chunk complete: delta along the slow axis, keeping
				// lengthLast as the fastest-varying axis, then compress.
				switch e.compression {
				case CompressionP4nzdec256, CompressionP4nzdec256Logarithmic:
					pfor.Delta2dEncode(int(lengthInChunk/lengthLast), int(lengthLast), chunkBuffer)
					return uint64(pfor.P4nzenc128v16(chunkBuffer, int(lengthInChunk), out))
				case CompressionFpxdec32:
					pfor.Delta2dEncodeXor(int(lengthInChunk/lengthLast), int(lengthLast), chunkBuffer)
					return uint64(pfor.Fpxenc32(chunkBuffer, int(lengthInChunk), out, 0))
				}
			}
		}
	}
}

// quantise scales and rounds a sample to int16, clamping to the type range.
// NaN maps to the math.MaxInt16 sentinel.
func quantise(val, scaleFactor float32) int16 {
	if math.IsNaN(float64(val)) {
		return math.MaxInt16
	}
	scaled := math.Round(float64(val) * float64(scaleFactor))
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, scaled)))
}
