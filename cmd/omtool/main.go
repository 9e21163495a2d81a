// Command omtool inspects OM files.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	om "github.com/TuSKan/om-go"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "omtool",
	Short:         "Inspect OM container files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the variable tree of an OM file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Report per-chunk compression statistics against a zstd baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(infoCmd, statsCmd)
}

func openFile(path string) (*om.FileReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return om.NewFileReader(data)
}

func runInfo(cmd *cobra.Command, args []string) error {
	reader, err := openFile(args[0])
	if err != nil {
		return err
	}

	// Children are raw (offset, size) pairs; nothing in the format prevents
	// cycles, so track visited offsets.
	visited := map[uint64]bool{}
	var walk func(v om.Variable, offset uint64, depth int) error
	walk = func(v om.Variable, offset uint64, depth int) error {
		indent := strings.Repeat("  ", depth)
		name := v.Name()
		if name == "" {
			name = "(unnamed)"
		}
		switch v.Layout() {
		case om.MemoryLayoutArray, om.MemoryLayoutLegacy:
			fmt.Printf("%s%s: %s dims=%v chunks=%v compression=%s scale=%g\n",
				indent, name, v.DataType(), v.Dimensions().Values(), v.Chunks().Values(), v.Compression(), v.ScaleFactor())
		case om.MemoryLayoutScalar:
			value, err := v.Scalar()
			if err != nil {
				return err
			}
			fmt.Printf("%s%s: %s value=%v\n", indent, name, v.DataType(), value)
		}
		if visited[offset] {
			fmt.Printf("%s  (cycle)\n", indent)
			return nil
		}
		visited[offset] = true
		for i := 0; i < int(v.NumberOfChildren()); i++ {
			ref := v.Child(i)
			child, err := reader.VariableAt(ref)
			if err != nil {
				return err
			}
			if err := walk(child, ref.Offset, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(reader.Root(), reader.RootRef().Offset, 0)
}

func runStats(cmd *cobra.Command, args []string) error {
	reader, err := openFile(args[0])
	if err != nil {
		return err
	}
	root := reader.Root()
	if root.DataType() != om.DataTypeFloatArray || root.Layout() != om.MemoryLayoutArray {
		return fmt.Errorf("root variable is %s, stats needs a v3 float array", root.DataType())
	}

	values, err := reader.ReadFloat32Array(root)
	if err != nil {
		return err
	}
	rawSize := 4 * len(values)
	lut := root.LUT()

	// zstd over the raw little-endian samples is the obvious general-purpose
	// alternative; report it as a baseline for the bespoke codec.
	raw := make([]byte, rawSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()
	zstdSize := len(zw.EncodeAll(raw, nil))

	sizes, err := reader.ChunkByteSizes(root)
	if err != nil {
		return err
	}
	var total, minSize, maxSize uint64
	minSize = math.MaxUint64
	for _, s := range sizes {
		total += s
		minSize = min(minSize, s)
		maxSize = max(maxSize, s)
	}

	fmt.Printf("dimensions:  %v\n", root.Dimensions().Values())
	fmt.Printf("chunks:      %v (%d total)\n", root.Chunks().Values(), len(sizes))
	fmt.Printf("compression: %s, scale factor %g\n", root.Compression(), root.ScaleFactor())
	fmt.Printf("raw size:    %d bytes\n", rawSize)
	fmt.Printf("chunk bytes: %d total, %d min, %d max, %.1f avg (%.1f%% of raw)\n",
		total, minSize, maxSize, float64(total)/float64(len(sizes)), 100*float64(total)/float64(rawSize))
	fmt.Printf("lut size:    %d bytes\n", lut.Size)
	fmt.Printf("zstd (raw):  %d bytes (%.1f%%)\n", zstdSize, 100*float64(zstdSize)/float64(rawSize))
	return nil
}
