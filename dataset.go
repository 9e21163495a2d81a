package om

import (
	"context"
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Dataset reads an OM array variable in batches along its outermost
// dimension, for feeding training pipelines.
type Dataset struct {
	reader       *FileReader
	variable     Variable
	dims         []uint64
	CurrentIndex uint64
}

// NewDataset opens an OM container object from a blob bucket and positions a
// batch cursor on the named float32 array variable. An empty name selects
// the root variable.
func NewDataset(ctx context.Context, bucketURL, key, name string) (*Dataset, error) {
	reader, err := OpenBucketObject(ctx, bucketURL, key)
	if err != nil {
		return nil, err
	}

	variable := reader.Root()
	if name != "" {
		variable, err = reader.Lookup(name)
		if err != nil {
			return nil, err
		}
	}
	if variable.DataType() != DataTypeFloatArray || variable.Layout() != MemoryLayoutArray {
		return nil, fmt.Errorf("variable %q has type %s, want a v3 %s: %w", name, variable.DataType(), DataTypeFloatArray, ErrInvalidDataType)
	}
	dims := variable.Dimensions().Values()
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %q has no dimensions", name)
	}

	return &Dataset{reader: reader, variable: variable, dims: dims}, nil
}

// Dimensions returns the shape of the underlying array.
func (d *Dataset) Dimensions() []uint64 {
	return d.dims
}

// NextBatch decodes the next batchSize rows of the outermost dimension into
// a tensor of shape [batch, dims[1:]...]. The last batch may be shorter.
// Returns io.EOF when there is no more data.
func (d *Dataset) NextBatch(batchSize int) (*tensors.Tensor, error) {
	if d.CurrentIndex >= d.dims[0] {
		return nil, io.EOF
	}

	start := d.CurrentIndex
	end := min(start+uint64(batchSize), d.dims[0])

	offset := make([]uint64, len(d.dims))
	offset[0] = start
	count := make([]uint64, len(d.dims))
	count[0] = end - start
	copy(count[1:], d.dims[1:])

	data, err := d.reader.ReadFloat32Region(d.variable, offset, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch [%d, %d): %w", start, end, err)
	}

	batchShape := make([]int, len(count))
	for i := range count {
		batchShape[i] = int(count[i])
	}
	d.CurrentIndex = end
	return tensors.FromFlatDataAndDimensions(data, batchShape...), nil
}
