package om_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/fileblob"

	om "github.com/TuSKan/om-go"
)

// writeTestFile builds a small container: a quantised temperature array and
// a float32-exact pressure array, each with a units attribute, under a root
// group node.
func writeTestFile(t *testing.T, temperature []float32, dims, chunks []uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw := om.NewFileWriter(&buf)
	require.NoError(t, fw.WriteHeader())

	units, err := fw.WriteScalar("units", om.DataTypeInt8, int8('C'), nil)
	require.NoError(t, err)

	temp, err := fw.WriteArrayFloat32("temperature", temperature, dims, chunks, 20, 0, om.CompressionP4nzdec256, []om.OffsetSize{units})
	require.NoError(t, err)

	pressure := make([]float32, len(temperature))
	for i := range pressure {
		pressure[i] = 1000 + temperature[i]/2
	}
	press, err := fw.WriteArrayFloat32("pressure", pressure, dims, chunks, 1, 0, om.CompressionFpxdec32, nil)
	require.NoError(t, err)

	root, err := fw.WriteScalar("", om.DataTypeNone, nil, []om.OffsetSize{temp, press})
	require.NoError(t, err)
	require.NoError(t, fw.Finalize(root))
	return buf.Bytes()
}

func TestFileRoundTrip(t *testing.T) {
	dims := []uint64{6, 7}
	chunks := []uint64{4, 3}
	temperature := make([]float32, 42)
	for i := range temperature {
		temperature[i] = float32(i)/4 - 5
	}
	temperature[11] = float32(math.NaN())

	data := writeTestFile(t, temperature, dims, chunks)
	reader, err := om.NewFileReader(data)
	require.NoError(t, err)

	root := reader.Root()
	require.Equal(t, om.MemoryLayoutScalar, root.Layout())
	require.Equal(t, uint32(2), root.NumberOfChildren())

	temp, err := reader.Lookup("temperature")
	require.NoError(t, err)
	require.Equal(t, om.DataTypeFloatArray, temp.DataType())
	require.Equal(t, dims, temp.Dimensions().Values())
	require.Equal(t, chunks, temp.Chunks().Values())
	require.Equal(t, float32(20), temp.ScaleFactor())

	units, err := reader.VariableAt(temp.Child(0))
	require.NoError(t, err)
	require.Equal(t, "units", units.Name())
	value, err := units.Scalar()
	require.NoError(t, err)
	require.Equal(t, int8('C'), value)

	decoded, err := reader.ReadFloat32Array(temp)
	require.NoError(t, err)
	require.Len(t, decoded, len(temperature))
	for i := range temperature {
		if math.IsNaN(float64(temperature[i])) {
			require.True(t, math.IsNaN(float64(decoded[i])), "value %d", i)
			continue
		}
		require.InDelta(t, temperature[i], decoded[i], 1.0/20, "value %d", i)
	}

	// The float codec round-trips bit-exactly.
	press, err := reader.Lookup("pressure")
	require.NoError(t, err)
	pressure, err := reader.ReadFloat32Array(press)
	require.NoError(t, err)
	for i := range pressure {
		if math.IsNaN(float64(temperature[i])) {
			require.True(t, math.IsNaN(float64(pressure[i])), "value %d", i)
			continue
		}
		require.Equal(t, 1000+temperature[i]/2, pressure[i], "value %d", i)
	}
}

func TestFileRegionMatchesFullRead(t *testing.T) {
	dims := []uint64{8, 6}
	chunks := []uint64{3, 4}
	values := make([]float32, 48)
	for i := range values {
		values[i] = float32(i * i % 53)
	}

	data := writeTestFile(t, values, dims, chunks)
	reader, err := om.NewFileReader(data)
	require.NoError(t, err)
	press, err := reader.Lookup("pressure")
	require.NoError(t, err)

	full, err := reader.ReadFloat32Array(press)
	require.NoError(t, err)

	offset := []uint64{2, 1}
	count := []uint64{5, 4}
	region, err := reader.ReadFloat32Region(press, offset, count)
	require.NoError(t, err)
	require.Len(t, region, 20)

	for r := uint64(0); r < count[0]; r++ {
		for c := uint64(0); c < count[1]; c++ {
			require.Equal(t, full[(offset[0]+r)*dims[1]+offset[1]+c], region[r*count[1]+c], "row %d col %d", r, c)
		}
	}

	_, err = reader.ReadFloat32Region(press, []uint64{5, 5}, []uint64{4, 1})
	require.Error(t, err)
	_, err = reader.ReadFloat32Region(press, []uint64{0}, []uint64{1})
	require.Error(t, err)
}

func TestFileReaderRejectsGarbage(t *testing.T) {
	_, err := om.NewFileReader([]byte("short"))
	require.ErrorIs(t, err, om.ErrInvalidFormat)

	data := writeTestFile(t, make([]float32, 4), []uint64{2, 2}, []uint64{2, 2})
	data[0] = 'X'
	_, err = om.NewFileReader(data)
	require.ErrorIs(t, err, om.ErrInvalidFormat)
}

func TestChunkByteSizes(t *testing.T) {
	dims := []uint64{5, 5}
	chunks := []uint64{2, 2}
	data := writeTestFile(t, make([]float32, 25), dims, chunks)
	reader, err := om.NewFileReader(data)
	require.NoError(t, err)
	temp, err := reader.Lookup("temperature")
	require.NoError(t, err)

	sizes, err := reader.ChunkByteSizes(temp)
	require.NoError(t, err)
	require.Len(t, sizes, 9)
	for i, s := range sizes {
		require.Positive(t, s, "chunk %d", i)
	}
}

func TestOpenBucketObject(t *testing.T) {
	tmpDir := t.TempDir()
	data := writeTestFile(t, []float32{1, 2, 3, 4}, []uint64{2, 2}, []uint64{2, 2})
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test.om"), data, 0o644))

	ctx := context.Background()
	reader, err := om.OpenBucketObject(ctx, "file://"+tmpDir, "test.om")
	require.NoError(t, err)
	require.Equal(t, uint32(2), reader.Root().NumberOfChildren())

	_, err = om.OpenBucketObject(ctx, "file://"+tmpDir, "missing.om")
	require.ErrorContains(t, err, "not found")
}
