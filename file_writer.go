package om

import (
	"fmt"
	"io"
)

// FileWriter builds an OM container on a sequential writer. Typical use:
// write the header, any number of array and scalar variables (recording the
// returned references as children of later variables), then Finalize with
// the root.
type FileWriter struct {
	w   io.Writer
	pos uint64
}

// NewFileWriter creates a container writer on w.
func NewFileWriter(w io.Writer) *FileWriter {
	return &FileWriter{w: w}
}

// Pos returns the current write position.
func (fw *FileWriter) Pos() uint64 {
	return fw.pos
}

func (fw *FileWriter) write(p []byte) error {
	n, err := fw.w.Write(p)
	fw.pos += uint64(n)
	if err != nil {
		return fmt.Errorf("failed to write container bytes: %w", err)
	}
	return nil
}

// WriteHeader writes the magic header. Must be the first call.
func (fw *FileWriter) WriteHeader() error {
	return fw.write(headerBytes())
}

// WriteArrayFloat32 encodes data chunk by chunk, appends the compressed
// chunks, the compressed LUT and the array variable descriptor, and returns
// the descriptor's reference. data must hold exactly the product of
// dimensions values in row-major order.
func (fw *FileWriter) WriteArrayFloat32(name string, data []float32, dimensions, chunks []uint64, scaleFactor, addOffset float32, compression Compression, children []OffsetSize) (OffsetSize, error) {
	encoder, err := NewEncoder(scaleFactor, compression, DataTypeFloatArray, dimensions, chunks, DefaultLUTChunkElementCount)
	if err != nil {
		return OffsetSize{}, fmt.Errorf("failed to create encoder for %q: %w", name, err)
	}
	total := uint64(1)
	for _, d := range dimensions {
		total *= d
	}
	if uint64(len(data)) != total {
		return OffsetSize{}, fmt.Errorf("array %q: data length %d does not match dimensions %v", name, len(data), dimensions)
	}

	nChunks := encoder.NumberOfChunks()
	out := make([]byte, encoder.OutputBufferCapacity())
	chunkBuffer := make([]byte, encoder.ChunkBufferSize())
	arrayOffset := make([]uint64, len(dimensions))

	lookUpTable := make([]uint64, 0, nChunks+1)
	lookUpTable = append(lookUpTable, fw.pos)
	for chunkIndex := uint64(0); chunkIndex < nChunks; chunkIndex++ {
		written := encoder.WriteSingleChunk(data, dimensions, arrayOffset, dimensions, chunkIndex, chunkIndex, out, chunkBuffer)
		if err := fw.write(out[:written]); err != nil {
			return OffsetSize{}, err
		}
		lookUpTable = append(lookUpTable, fw.pos)
	}

	lutSize := encoder.SizeOfCompressedLUT(lookUpTable)
	lutOffset := fw.pos
	lutBuffer := make([]byte, lutSize)
	encoder.CompressLUT(lookUpTable, lutBuffer, lutSize)
	if err := fw.write(lutBuffer); err != nil {
		return OffsetSize{}, err
	}

	descriptor := make([]byte, ArraySize(uint16(len(name)), uint32(len(children)), uint64(len(dimensions))))
	ref, err := WriteArray(descriptor, fw.pos, name, children, DataTypeFloatArray, compression, scaleFactor, addOffset, dimensions, chunks, lutSize, lutOffset)
	if err != nil {
		return OffsetSize{}, err
	}
	if err := fw.write(descriptor); err != nil {
		return OffsetSize{}, err
	}
	return ref, nil
}

// WriteScalar appends a scalar variable descriptor and returns its
// reference. Scalars carry metadata values and child references; use
// DataTypeNone with a nil value for a pure group node.
func (fw *FileWriter) WriteScalar(name string, dataType DataType, value any, children []OffsetSize) (OffsetSize, error) {
	size := ScalarSize(uint16(len(name)), uint32(len(children)), dataType)
	if size == 0 {
		return OffsetSize{}, fmt.Errorf("scalar variable %q: %w", name, ErrInvalidDataType)
	}
	descriptor := make([]byte, size)
	ref, err := WriteScalar(descriptor, fw.pos, name, children, dataType, value)
	if err != nil {
		return OffsetSize{}, err
	}
	if err := fw.write(descriptor); err != nil {
		return OffsetSize{}, err
	}
	return ref, nil
}

// Finalize writes the trailer pointing at the root variable. Must be the
// last call.
func (fw *FileWriter) Finalize(root OffsetSize) error {
	return fw.write(trailerBytes(root))
}
