package om

// DataType identifies the value type of a variable. The numeric values are
// part of the on-disk format and must not be reordered.
type DataType uint8

const (
	DataTypeNone DataType = iota
	DataTypeInt8
	DataTypeUint8
	DataTypeInt16
	DataTypeUint16
	DataTypeInt32
	DataTypeUint32
	DataTypeInt64
	DataTypeUint64
	DataTypeFloat
	DataTypeDouble
	DataTypeString
	DataTypeInt8Array
	DataTypeUint8Array
	DataTypeInt16Array
	DataTypeUint16Array
	DataTypeInt32Array
	DataTypeUint32Array
	DataTypeInt64Array
	DataTypeUint64Array
	DataTypeFloatArray
	DataTypeDoubleArray
	DataTypeStringArray
)

// IsArray reports whether the type describes a chunked array variable.
func (t DataType) IsArray() bool {
	return t >= DataTypeInt8Array && t <= DataTypeDoubleArray
}

// scalarSize returns the width in bytes of a scalar value of this type, or
// -1 if the type has no fixed-width scalar representation. DataTypeNone is a
// valid zero-width scalar (a pure attribute node).
func (t DataType) scalarSize() int {
	switch t {
	case DataTypeNone:
		return 0
	case DataTypeInt8, DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeDouble:
		return 8
	default:
		return -1
	}
}

func (t DataType) String() string {
	names := [...]string{
		"none", "int8", "uint8", "int16", "uint16", "int32", "uint32",
		"int64", "uint64", "float", "double", "string",
		"int8_array", "uint8_array", "int16_array", "uint16_array",
		"int32_array", "uint32_array", "int64_array", "uint64_array",
		"float_array", "double_array", "string_array",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Compression identifies the chunk codec. On-disk stable.
type Compression uint8

const (
	// CompressionP4nzdec256 quantises to 16-bit integers with a scale
	// factor and compresses with delta2d + PFOR.
	CompressionP4nzdec256 Compression = 0
	// CompressionFpxdec32 preserves float32 bit patterns and compresses
	// with XOR delta2d + FPX.
	CompressionFpxdec32 Compression = 1
	// CompressionPfor16BitDelta2d is the implicit codec of legacy v1 files.
	CompressionPfor16BitDelta2d Compression = 2
	// CompressionP4nzdec256Logarithmic applies log10(1+x) before
	// quantisation.
	CompressionP4nzdec256Logarithmic Compression = 3
	// CompressionNone marks variables without compressed payload (scalars).
	CompressionNone Compression = 4
)

func (c Compression) String() string {
	switch c {
	case CompressionP4nzdec256:
		return "p4nzdec256"
	case CompressionFpxdec32:
		return "fpxdec32"
	case CompressionPfor16BitDelta2d:
		return "pfor_16bit_delta2d"
	case CompressionP4nzdec256Logarithmic:
		return "p4nzdec256_logarithmic"
	case CompressionNone:
		return "none"
	}
	return "unknown"
}

// MemoryLayout discriminates the three on-disk variable descriptor layouts.
type MemoryLayout uint8

const (
	MemoryLayoutLegacy MemoryLayout = iota
	MemoryLayoutArray
	MemoryLayoutScalar
)

// OffsetSize locates a variable descriptor inside the container: an absolute
// file offset and the byte size of the descriptor.
type OffsetSize struct {
	Offset uint64
	Size   uint64
}
