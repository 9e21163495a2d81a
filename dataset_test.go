package om_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/fileblob"

	om "github.com/TuSKan/om-go"
)

func TestDataset_NextBatch(t *testing.T) {
	tmpDir := t.TempDir()

	// Shape [10, 2], chunks [5, 2]: batches of 3 cross the chunk boundary.
	values := make([]float32, 20)
	for i := range values {
		values[i] = float32(i)
	}

	var buf bytes.Buffer
	fw := om.NewFileWriter(&buf)
	require.NoError(t, fw.WriteHeader())
	root, err := fw.WriteArrayFloat32("samples", values, []uint64{10, 2}, []uint64{5, 2}, 1, 0, om.CompressionFpxdec32, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Finalize(root))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "samples.om"), buf.Bytes(), 0o644))

	ctx := context.Background()
	ds, err := om.NewDataset(ctx, "file://"+tmpDir, "samples.om", "samples")
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 2}, ds.Dimensions())

	batch1, err := ds.NextBatch(3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, batch1.Shape().Dimensions)
	require.Equal(t, [][]float32{{0, 1}, {2, 3}, {4, 5}}, batch1.Value().([][]float32))

	// Crosses the chunk boundary between rows 4 and 5.
	batch2, err := ds.NextBatch(3)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, batch2.Shape().Dimensions)
	require.Equal(t, [][]float32{{6, 7}, {8, 9}, {10, 11}}, batch2.Value().([][]float32))

	// Remaining rows: a short batch.
	batch3, err := ds.NextBatch(10)
	require.NoError(t, err)
	require.Equal(t, []int{4, 2}, batch3.Shape().Dimensions)
	require.Equal(t, [][]float32{{12, 13}, {14, 15}, {16, 17}, {18, 19}}, batch3.Value().([][]float32))

	_, err = ds.NextBatch(1)
	require.ErrorIs(t, err, io.EOF)
}

func TestDataset_RootVariable(t *testing.T) {
	tmpDir := t.TempDir()

	var buf bytes.Buffer
	fw := om.NewFileWriter(&buf)
	require.NoError(t, fw.WriteHeader())
	root, err := fw.WriteArrayFloat32("", []float32{1, 2, 3, 4}, []uint64{4}, []uint64{2}, 1, 0, om.CompressionP4nzdec256, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Finalize(root))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.om"), buf.Bytes(), 0o644))

	ds, err := om.NewDataset(context.Background(), "file://"+tmpDir, "root.om", "")
	require.NoError(t, err)

	batch, err := ds.NextBatch(4)
	require.NoError(t, err)
	require.Equal(t, []int{4}, batch.Shape().Dimensions)
	require.Equal(t, []float32{1, 2, 3, 4}, batch.Value().([]float32))
}

func TestDataset_RejectsScalarVariable(t *testing.T) {
	tmpDir := t.TempDir()

	var buf bytes.Buffer
	fw := om.NewFileWriter(&buf)
	require.NoError(t, fw.WriteHeader())
	root, err := fw.WriteScalar("answer", om.DataTypeInt64, int64(42), nil)
	require.NoError(t, err)
	require.NoError(t, fw.Finalize(root))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "scalar.om"), buf.Bytes(), 0o644))

	_, err = om.NewDataset(context.Background(), "file://"+tmpDir, "scalar.om", "")
	require.ErrorIs(t, err, om.ErrInvalidDataType)
}
