package om

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/TuSKan/om-go/pfor"
)

// FileReader decodes an OM container held in memory. Variables borrow from
// the underlying byte slice, which must stay valid while the reader or any
// view derived from it is in use.
type FileReader struct {
	data []byte
	root OffsetSize
}

// NewFileReader validates the container framing and returns a reader over
// the given bytes.
func NewFileReader(data []byte) (*FileReader, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("container of %d bytes is too short: %w", len(data), ErrInvalidFormat)
	}
	if data[0] != magic1 || data[1] != magic2 || data[2] != formatVersion {
		return nil, fmt.Errorf("bad magic header: %w", ErrInvalidFormat)
	}
	root, ok := parseTrailer(data[len(data)-trailerSize:])
	if !ok {
		return nil, fmt.Errorf("bad trailer: %w", ErrInvalidFormat)
	}
	r := &FileReader{data: data, root: root}
	if _, err := r.VariableAt(root); err != nil {
		return nil, fmt.Errorf("failed to resolve root variable: %w", err)
	}
	return r, nil
}

// OpenBucketObject reads an OM container object from a gocloud.dev blob
// bucket ("file://", "s3://", "mem://", ...).
func OpenBucketObject(ctx context.Context, bucketURL, key string) (*FileReader, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	defer bucket.Close()

	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("object %q not found in bucket: %w", key, err)
		}
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return NewFileReader(data)
}

// Root returns the root variable.
func (r *FileReader) Root() Variable {
	return NewVariable(r.data[r.root.Offset : r.root.Offset+r.root.Size])
}

// RootRef returns the trailer's (offset, size) reference to the root
// variable.
func (r *FileReader) RootRef() OffsetSize {
	return r.root
}

// VariableAt resolves a child reference to a variable view.
func (r *FileReader) VariableAt(ref OffsetSize) (Variable, error) {
	end := ref.Offset + ref.Size
	if ref.Size == 0 || end < ref.Offset || end > uint64(len(r.data)) {
		return Variable{}, fmt.Errorf("variable reference %+v out of bounds: %w", ref, ErrInvalidFormat)
	}
	return NewVariable(r.data[ref.Offset:end]), nil
}

// Lookup finds a variable by name, breadth-first from the root. Child graphs
// may contain cycles; visited offsets are traversed once.
func (r *FileReader) Lookup(name string) (Variable, error) {
	queue := []OffsetSize{r.root}
	visited := map[uint64]bool{}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if visited[ref.Offset] {
			continue
		}
		visited[ref.Offset] = true

		v, err := r.VariableAt(ref)
		if err != nil {
			return Variable{}, err
		}
		if v.Name() == name {
			return v, nil
		}
		for i := 0; i < int(v.NumberOfChildren()); i++ {
			queue = append(queue, v.Child(i))
		}
	}
	return Variable{}, fmt.Errorf("variable %q not found", name)
}

// ReadFloat32Array decodes the whole array variable into a row-major
// float32 slice.
func (r *FileReader) ReadFloat32Array(v Variable) ([]float32, error) {
	dims := v.Dimensions().Values()
	return r.ReadFloat32Region(v, make([]uint64, len(dims)), dims)
}

// ReadFloat32Region decodes an N-dimensional region of an array variable.
// offset and count select the region in the logical array.
func (r *FileReader) ReadFloat32Region(v Variable, offset, count []uint64) ([]float32, error) {
	if v.Layout() != MemoryLayoutArray {
		return nil, fmt.Errorf("variable %q is not a v3 array: %w", v.Name(), ErrInvalidDataType)
	}
	if v.DataType() != DataTypeFloatArray {
		return nil, fmt.Errorf("variable %q has type %s, want %s: %w", v.Name(), v.DataType(), DataTypeFloatArray, ErrInvalidDataType)
	}
	dims := v.Dimensions().Values()
	chunks := v.Chunks().Values()
	if len(offset) != len(dims) || len(count) != len(dims) {
		return nil, fmt.Errorf("region rank %d does not match array rank %d", len(offset), len(dims))
	}
	for i := range dims {
		if count[i] == 0 || offset[i]+count[i] > dims[i] {
			return nil, fmt.Errorf("region out of bounds at dimension %d", i)
		}
	}

	lookUpTable, err := r.decompressLUT(v, dims, chunks)
	if err != nil {
		return nil, err
	}

	total := uint64(1)
	for _, c := range count {
		total *= c
	}
	out := make([]float32, total)
	outStrides := strides(count)
	grid := GridShape(dims, chunks)

	minChunk := make([]uint64, len(dims))
	maxChunk := make([]uint64, len(dims))
	for i := range dims {
		minChunk[i] = offset[i] / chunks[i]
		maxChunk[i] = (offset[i] + count[i] - 1) / chunks[i]
	}

	coord := make([]uint64, len(dims))
	copy(coord, minChunk)
	for {
		if err := r.copyChunkRegion(v, lookUpTable, coord, grid, dims, chunks, offset, count, out, outStrides); err != nil {
			return nil, err
		}

		i := len(coord) - 1
		for ; i >= 0; i-- {
			coord[i]++
			if coord[i] <= maxChunk[i] {
				break
			}
			coord[i] = minChunk[i]
		}
		if i < 0 {
			break
		}
	}
	return out, nil
}

// copyChunkRegion decodes the chunk at coord and copies its intersection
// with the requested region into out.
func (r *FileReader) copyChunkRegion(v Variable, lookUpTable []uint64, coord, grid, dims, chunks, regionOffset, regionCount []uint64, out []float32, outStrides []uint64) error {
	chunkIndex := packChunkIndex(coord, grid)
	begin := lookUpTable[chunkIndex]
	end := lookUpTable[chunkIndex+1]
	if begin > end || end > uint64(len(r.data)) {
		return fmt.Errorf("chunk %d byte range [%d, %d) out of bounds: %w", chunkIndex, begin, end, ErrInvalidFormat)
	}

	shape := chunkShape(coord, dims, chunks)
	values, err := decodeChunk(v.Compression(), v.ScaleFactor(), r.data[begin:end], shape)
	if err != nil {
		return fmt.Errorf("failed to decode chunk %d: %w", chunkIndex, err)
	}

	copyShape := make([]uint64, len(dims))
	srcOffset := make([]uint64, len(dims))
	dstOffset := make([]uint64, len(dims))
	for i := range dims {
		chunkStart := coord[i] * chunks[i]
		intersectStart := max(chunkStart, regionOffset[i])
		intersectEnd := min(chunkStart+shape[i], regionOffset[i]+regionCount[i])
		if intersectStart >= intersectEnd {
			return nil
		}
		copyShape[i] = intersectEnd - intersectStart
		srcOffset[i] = intersectStart - chunkStart
		dstOffset[i] = intersectStart - regionOffset[i]
	}
	copyRegion(out, outStrides, dstOffset, values, strides(shape), srcOffset, copyShape)
	return nil
}

// ChunkByteSizes returns the compressed byte size of each chunk of an array
// variable, derived from its LUT.
func (r *FileReader) ChunkByteSizes(v Variable) ([]uint64, error) {
	if v.Layout() != MemoryLayoutArray {
		return nil, fmt.Errorf("variable %q is not a v3 array: %w", v.Name(), ErrInvalidDataType)
	}
	lookUpTable, err := r.decompressLUT(v, v.Dimensions().Values(), v.Chunks().Values())
	if err != nil {
		return nil, err
	}
	sizes := make([]uint64, len(lookUpTable)-1)
	for i := range sizes {
		sizes[i] = lookUpTable[i+1] - lookUpTable[i]
	}
	return sizes, nil
}

// decompressLUT expands the padded LUT groups into chunk byte offsets.
func (r *FileReader) decompressLUT(v Variable, dims, chunks []uint64) ([]uint64, error) {
	lut := v.LUT()
	count := NumberOfChunks(dims, chunks) + 1
	nLutChunks := divideRoundedUp(count, DefaultLUTChunkElementCount)
	if lut.Size == 0 || lut.Size%nLutChunks != 0 || lut.Offset+lut.Size > uint64(len(r.data)) {
		return nil, fmt.Errorf("lut %+v does not describe %d entries: %w", lut, count, ErrInvalidFormat)
	}
	lutChunkLength := lut.Size / nLutChunks

	entries := make([]uint64, count)
	for i := uint64(0); i < nLutChunks; i++ {
		rangeStart := i * DefaultLUTChunkElementCount
		rangeEnd := min(rangeStart+DefaultLUTChunkElementCount, count)
		pfor.P4nddec64(r.data[lut.Offset+i*lutChunkLength:lut.Offset+lut.Size], int(rangeEnd-rangeStart), entries[rangeStart:rangeEnd])
	}
	return entries, nil
}

// decodeChunk reverses the chunk pipeline: codec decode, delta decode, then
// dequantisation into float32 values of the given chunk shape.
func decodeChunk(compression Compression, scaleFactor float32, compressed []byte, shape []uint64) ([]float32, error) {
	n := uint64(1)
	for _, s := range shape {
		n *= s
	}
	lengthLast := shape[len(shape)-1]
	rows := int(n / lengthLast)

	values := make([]float32, n)
	switch compression {
	case CompressionP4nzdec256, CompressionP4nzdec256Logarithmic:
		buffer := make([]byte, 2*n)
		pfor.P4nzdec128v16(compressed, int(n), buffer)
		pfor.Delta2dDecode(rows, int(lengthLast), buffer)
		logarithmic := compression == CompressionP4nzdec256Logarithmic
		for i := range values {
			values[i] = dequantise(int16(binary.LittleEndian.Uint16(buffer[2*i:])), scaleFactor, logarithmic)
		}
	case CompressionFpxdec32:
		buffer := make([]byte, 4*n)
		pfor.Fpxdec32(compressed, int(n), buffer, 0)
		pfor.Delta2dDecodeXor(rows, int(lengthLast), buffer)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buffer[4*i:]))
		}
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
	return values, nil
}

func dequantise(v int16, scaleFactor float32, logarithmic bool) float32 {
	if v == math.MaxInt16 {
		return float32(math.NaN())
	}
	if logarithmic {
		return float32(math.Pow(10, float64(v)/float64(scaleFactor)) - 1)
	}
	return float32(v) / scaleFactor
}

// copyRegion recursively copies an N-dimensional sub-cuboid from src to dst,
// bulk-copying the innermost dimension when it is contiguous on both sides.
func copyRegion(dst []float32, dstStrides, dstOffset []uint64, src []float32, srcStrides, srcOffset, shape []uint64) {
	srcBase := uint64(0)
	dstBase := uint64(0)
	for i := range shape {
		srcBase += srcOffset[i] * srcStrides[i]
		dstBase += dstOffset[i] * dstStrides[i]
	}

	var iterate func(dim int, srcIdx, dstIdx uint64)
	iterate = func(dim int, srcIdx, dstIdx uint64) {
		if dim == len(shape)-1 {
			n := shape[dim]
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				copy(dst[dstIdx:dstIdx+n], src[srcIdx:srcIdx+n])
				return
			}
			for i := uint64(0); i < n; i++ {
				dst[dstIdx+i*dstStrides[dim]] = src[srcIdx+i*srcStrides[dim]]
			}
			return
		}
		for i := uint64(0); i < shape[dim]; i++ {
			iterate(dim+1, srcIdx+i*srcStrides[dim], dstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, srcBase, dstBase)
}
