package om

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ScalarSize returns the descriptor size WriteScalar will produce, or 0 for
// data types without a fixed-width scalar representation.
func ScalarSize(nameLength uint16, numberOfChildren uint32, dataType DataType) uint64 {
	width := dataType.scalarSize()
	if width < 0 {
		return 0
	}
	return scalarHeaderSize + childEntrySize*uint64(numberOfChildren) + uint64(width) + uint64(nameLength)
}

// ArraySize returns the descriptor size WriteArray will produce.
func ArraySize(nameLength uint16, numberOfChildren uint32, dimensionCount uint64) uint64 {
	return arrayHeaderSize + childEntrySize*uint64(numberOfChildren) + 16*dimensionCount + uint64(nameLength)
}

// WriteScalar serialises a scalar variable descriptor into dst: the 8-byte
// header, the child table, the value and the unterminated name. offset is
// the descriptor's position in the enclosing stream and is recorded in the
// returned OffsetSize together with the written size. value must match
// dataType (nil for DataTypeNone).
func WriteScalar(dst []byte, offset uint64, name string, children []OffsetSize, dataType DataType, value any) (OffsetSize, error) {
	bits, width, err := scalarBits(dataType, value)
	if err != nil {
		return OffsetSize{}, err
	}

	dst[0] = byte(dataType)
	dst[1] = byte(CompressionNone)
	binary.LittleEndian.PutUint16(dst[2:], uint16(len(name)))
	binary.LittleEndian.PutUint32(dst[4:], uint32(len(children)))
	writeChildren(dst[scalarHeaderSize:], children)

	pos := scalarHeaderSize + childEntrySize*len(children)
	switch width {
	case 1:
		dst[pos] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(dst[pos:], uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(dst[pos:], uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(dst[pos:], bits)
	}
	copy(dst[pos+width:], name)

	return OffsetSize{
		Offset: offset,
		Size:   uint64(pos) + uint64(width) + uint64(len(name)),
	}, nil
}

// WriteArray serialises a numeric-array variable descriptor into dst: the
// 40-byte header, the child table, the dimension and chunk extents and the
// unterminated name. offset is recorded in the returned OffsetSize.
func WriteArray(dst []byte, offset uint64, name string, children []OffsetSize, dataType DataType, compression Compression, scaleFactor, addOffset float32, dimensions, chunks []uint64, lutSize, lutOffset uint64) (OffsetSize, error) {
	if !dataType.IsArray() {
		return OffsetSize{}, fmt.Errorf("writing array variable %q: %w", name, ErrInvalidDataType)
	}
	if len(dimensions) != len(chunks) {
		return OffsetSize{}, fmt.Errorf("writing array variable %q: dimension count %d does not match chunk count %d", name, len(dimensions), len(chunks))
	}

	dst[0] = byte(dataType)
	dst[1] = byte(compression)
	binary.LittleEndian.PutUint16(dst[2:], uint16(len(name)))
	binary.LittleEndian.PutUint32(dst[4:], uint32(len(children)))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(scaleFactor))
	binary.LittleEndian.PutUint32(dst[12:], math.Float32bits(addOffset))
	binary.LittleEndian.PutUint64(dst[16:], uint64(len(dimensions)))
	binary.LittleEndian.PutUint64(dst[24:], lutSize)
	binary.LittleEndian.PutUint64(dst[32:], lutOffset)
	writeChildren(dst[arrayHeaderSize:], children)

	pos := arrayHeaderSize + childEntrySize*len(children)
	for i := range dimensions {
		binary.LittleEndian.PutUint64(dst[pos+8*i:], dimensions[i])
		binary.LittleEndian.PutUint64(dst[pos+8*(len(dimensions)+i):], chunks[i])
	}
	pos += 16 * len(dimensions)
	copy(dst[pos:], name)

	return OffsetSize{
		Offset: offset,
		Size:   uint64(pos) + uint64(len(name)),
	}, nil
}

func writeChildren(dst []byte, children []OffsetSize) {
	for i, c := range children {
		binary.LittleEndian.PutUint64(dst[childEntrySize*i:], c.Offset)
		binary.LittleEndian.PutUint64(dst[childEntrySize*i+8:], c.Size)
	}
}

// scalarBits packs a boxed scalar value into raw little-endian bits plus its
// byte width.
func scalarBits(dataType DataType, value any) (uint64, int, error) {
	switch dataType {
	case DataTypeNone:
		return 0, 0, nil
	case DataTypeInt8:
		if v, ok := value.(int8); ok {
			return uint64(uint8(v)), 1, nil
		}
	case DataTypeUint8:
		if v, ok := value.(uint8); ok {
			return uint64(v), 1, nil
		}
	case DataTypeInt16:
		if v, ok := value.(int16); ok {
			return uint64(uint16(v)), 2, nil
		}
	case DataTypeUint16:
		if v, ok := value.(uint16); ok {
			return uint64(v), 2, nil
		}
	case DataTypeInt32:
		if v, ok := value.(int32); ok {
			return uint64(uint32(v)), 4, nil
		}
	case DataTypeUint32:
		if v, ok := value.(uint32); ok {
			return uint64(v), 4, nil
		}
	case DataTypeFloat:
		if v, ok := value.(float32); ok {
			return uint64(math.Float32bits(v)), 4, nil
		}
	case DataTypeInt64:
		if v, ok := value.(int64); ok {
			return uint64(v), 8, nil
		}
	case DataTypeUint64:
		if v, ok := value.(uint64); ok {
			return v, 8, nil
		}
	case DataTypeDouble:
		if v, ok := value.(float64); ok {
			return math.Float64bits(v), 8, nil
		}
	default:
		return 0, 0, fmt.Errorf("scalar value of type %s: %w", dataType, ErrInvalidDataType)
	}
	return 0, 0, fmt.Errorf("scalar value %T does not match data type %s: %w", value, dataType, ErrInvalidDataType)
}
