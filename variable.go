package om

import (
	"encoding/binary"
	"math"
)

const (
	scalarHeaderSize = 8
	arrayHeaderSize  = 40
	childEntrySize   = 16
)

// Variable is a read-only view over a variable descriptor byte region.
// All accessors borrow from the underlying slice, which must stay valid and
// unmodified for the lifetime of the returned values.
type Variable struct {
	data []byte
}

// NewVariable wraps a byte region holding one variable descriptor. The slice
// must span exactly the offset/size range recorded for the variable.
func NewVariable(data []byte) Variable {
	return Variable{data: data}
}

// Layout discriminates the three descriptor layouts: the legacy magic
// selects legacy files, otherwise an array data type selects the extended
// array header and anything else the 8-byte scalar header.
func (v Variable) Layout() MemoryLayout {
	d := v.data
	if len(d) >= 3 && d[0] == 'O' && d[1] == 'M' && (d[2] == 1 || d[2] == 2) {
		return MemoryLayoutLegacy
	}
	if DataType(d[0]).IsArray() {
		return MemoryLayoutArray
	}
	return MemoryLayoutScalar
}

// DataType returns the variable's value type. Legacy files are implicitly
// float arrays.
func (v Variable) DataType() DataType {
	if v.Layout() == MemoryLayoutLegacy {
		return DataTypeFloatArray
	}
	return DataType(v.data[0])
}

// Compression returns the chunk codec. Legacy v1 files predate the
// compression byte and always use PFOR with a 2-D delta.
func (v Variable) Compression() Compression {
	if v.Layout() == MemoryLayoutLegacy {
		if v.data[2] == 1 {
			return CompressionPfor16BitDelta2d
		}
		return Compression(v.data[3])
	}
	return Compression(v.data[1])
}

// ScaleFactor returns the quantisation multiplier. Scalars have none and
// report 1.
func (v Variable) ScaleFactor() float32 {
	switch v.Layout() {
	case MemoryLayoutLegacy:
		return math.Float32frombits(binary.LittleEndian.Uint32(v.data[4:]))
	case MemoryLayoutArray:
		return math.Float32frombits(binary.LittleEndian.Uint32(v.data[8:]))
	}
	return 1
}

// AddOffset returns the value offset of an array variable, 0 otherwise.
func (v Variable) AddOffset() float32 {
	if v.Layout() == MemoryLayoutArray {
		return math.Float32frombits(binary.LittleEndian.Uint32(v.data[12:]))
	}
	return 0
}

// NumberOfChildren returns the child reference count.
func (v Variable) NumberOfChildren() uint32 {
	if v.Layout() == MemoryLayoutLegacy {
		return 0
	}
	return binary.LittleEndian.Uint32(v.data[4:])
}

// Child returns the k-th child reference. Out-of-range indices and legacy
// files return a zero OffsetSize.
func (v Variable) Child(k int) OffsetSize {
	var headerSize int
	switch v.Layout() {
	case MemoryLayoutLegacy:
		return OffsetSize{}
	case MemoryLayoutArray:
		headerSize = arrayHeaderSize
	case MemoryLayoutScalar:
		headerSize = scalarHeaderSize
	}
	if k < 0 || uint32(k) >= v.NumberOfChildren() {
		return OffsetSize{}
	}
	entry := v.data[headerSize+childEntrySize*k:]
	return OffsetSize{
		Offset: binary.LittleEndian.Uint64(entry),
		Size:   binary.LittleEndian.Uint64(entry[8:]),
	}
}

// Dimensions returns a borrowed view of the per-dimension extents. Scalars
// have none.
func (v Variable) Dimensions() Dimensions {
	switch v.Layout() {
	case MemoryLayoutLegacy:
		return Dimensions{data: v.data[8:40], count: 2}
	case MemoryLayoutArray:
		count := binary.LittleEndian.Uint64(v.data[16:])
		start := uint64(arrayHeaderSize) + childEntrySize*uint64(v.NumberOfChildren())
		return Dimensions{data: v.data[start : start+8*count], count: int(count)}
	}
	return Dimensions{}
}

// Chunks returns a borrowed view of the per-dimension chunk extents.
func (v Variable) Chunks() Dimensions {
	switch v.Layout() {
	case MemoryLayoutLegacy:
		return Dimensions{data: v.data[24:40], count: 2}
	case MemoryLayoutArray:
		count := binary.LittleEndian.Uint64(v.data[16:])
		start := uint64(arrayHeaderSize) + childEntrySize*uint64(v.NumberOfChildren()) + 8*count
		return Dimensions{data: v.data[start : start+8*count], count: int(count)}
	}
	return Dimensions{}
}

// LUT returns the byte offset and size of the compressed chunk look-up
// table of an array variable.
func (v Variable) LUT() OffsetSize {
	if v.Layout() != MemoryLayoutArray {
		return OffsetSize{}
	}
	return OffsetSize{
		Offset: binary.LittleEndian.Uint64(v.data[32:]),
		Size:   binary.LittleEndian.Uint64(v.data[24:]),
	}
}

// NameBytes returns the borrowed name bytes. Legacy files have no name.
func (v Variable) NameBytes() []byte {
	switch v.Layout() {
	case MemoryLayoutLegacy:
		return nil
	case MemoryLayoutArray:
		count := binary.LittleEndian.Uint64(v.data[16:])
		start := uint64(arrayHeaderSize) + childEntrySize*uint64(v.NumberOfChildren()) + 16*count
		return v.data[start : start+uint64(v.nameLength())]
	}
	width := v.DataType().scalarSize()
	if width < 0 {
		return nil
	}
	start := scalarHeaderSize + childEntrySize*int(v.NumberOfChildren()) + width
	return v.data[start : start+int(v.nameLength())]
}

// Name returns the variable name as a string.
func (v Variable) Name() string {
	return string(v.NameBytes())
}

func (v Variable) nameLength() uint16 {
	return binary.LittleEndian.Uint16(v.data[2:])
}

// Scalar returns the scalar value boxed as its Go type (int8, uint8, ...,
// float64). It fails with ErrInvalidDataType on non-scalar layouts and on
// types without a fixed-width value. DataTypeNone yields nil.
func (v Variable) Scalar() (any, error) {
	if v.Layout() != MemoryLayoutScalar {
		return nil, ErrInvalidDataType
	}
	src := v.data[scalarHeaderSize+childEntrySize*int(v.NumberOfChildren()):]
	switch v.DataType() {
	case DataTypeNone:
		return nil, nil
	case DataTypeInt8:
		return int8(src[0]), nil
	case DataTypeUint8:
		return src[0], nil
	case DataTypeInt16:
		return int16(binary.LittleEndian.Uint16(src)), nil
	case DataTypeUint16:
		return binary.LittleEndian.Uint16(src), nil
	case DataTypeInt32:
		return int32(binary.LittleEndian.Uint32(src)), nil
	case DataTypeUint32:
		return binary.LittleEndian.Uint32(src), nil
	case DataTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(src)), nil
	case DataTypeInt64:
		return int64(binary.LittleEndian.Uint64(src)), nil
	case DataTypeUint64:
		return binary.LittleEndian.Uint64(src), nil
	case DataTypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(src)), nil
	}
	return nil, ErrInvalidDataType
}

// Dimensions is a borrowed, lazily decoded view over a little-endian uint64
// sequence inside a descriptor.
type Dimensions struct {
	data  []byte
	count int
}

// Count returns the number of entries.
func (d Dimensions) Count() int {
	return d.count
}

// At returns the i-th entry.
func (d Dimensions) At(i int) uint64 {
	return binary.LittleEndian.Uint64(d.data[8*i:])
}

// Values decodes all entries into a fresh slice.
func (d Dimensions) Values() []uint64 {
	out := make([]uint64, d.count)
	for i := range out {
		out[i] = d.At(i)
	}
	return out
}
