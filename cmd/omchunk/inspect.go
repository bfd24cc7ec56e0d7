package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

// chunkRow is one line of `inspect --csv` output.
type chunkRow struct {
	Chunk  uint64 `csv:"chunk"`
	Group  uint64 `csv:"group"`
	Offset uint64 `csv:"offset"`
	Size   uint64 `csv:"size"`
}

func inspectContainer(context *cli.Context) error {
	err := requireArgs(context, 1)
	if err != nil {
		return err
	}

	reader, closeInput, err := openContainer(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer closeInput()

	sizes, err := reader.ChunkSizes()
	if err != nil {
		return err
	}

	table := reader.Table()
	if context.Bool("csv") {
		rows := make([]chunkRow, len(sizes))
		offset := uint64(0)
		for i, size := range sizes {
			rows[i] = chunkRow{
				Chunk:  uint64(i),
				Group:  uint64(i) / table.GroupSize,
				Offset: offset,
				Size:   size,
			}
			offset += size
		}
		return gocsv.Marshal(rows, os.Stdout)
	}

	cfg := reader.Config()
	rawSize := cfg.TotalElements() * uint64(cfg.DataType.Size())
	dataSize := table.DataSize()

	fmt.Printf("data type:      %s\n", cfg.DataType)
	fmt.Printf("method:         %s\n", cfg.Method)
	fmt.Printf("dimensions:     %v\n", cfg.Dimensions)
	fmt.Printf("chunks:         %v (%d total)\n", cfg.Chunks, cfg.NumChunks())
	if cfg.Quantized() {
		fmt.Printf("scale factor:   %g\n", cfg.ScaleFactor)
		fmt.Printf("add offset:     %g\n", cfg.AddOffset)
	}
	fmt.Printf("lookup table:   %d groups of %d chunks\n", table.NumGroups(), table.GroupSize)
	fmt.Printf("raw size:       %d bytes\n", rawSize)
	fmt.Printf("chunk data:     %d bytes (%.2fx)\n", dataSize, float64(rawSize)/float64(dataSize))

	if len(sizes) > 0 {
		sorted := append([]uint64(nil), sizes...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		fmt.Printf(
			"chunk sizes:    min %d, median %d, max %d\n",
			sorted[0],
			sorted[len(sorted)/2],
			sorted[len(sorted)-1],
		)
	}

	attributes := reader.Attributes()
	if len(attributes) > 0 {
		keys := make([]string, 0, len(attributes))
		for key := range attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Println("attributes:")
		for _, key := range keys {
			fmt.Printf("  %s: %s\n", key, attributes[key])
		}
	}
	return nil
}

func verifyContainer(context *cli.Context) error {
	err := requireArgs(context, 1)
	if err != nil {
		return err
	}

	reader, closeInput, err := openContainer(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer closeInput()

	err = reader.Verify()
	if err != nil {
		return err
	}

	// Measuring every chunk decodes all of them.
	sizes, err := reader.ChunkSizes()
	if err != nil {
		return err
	}

	fmt.Printf("OK: digest matches, %d chunks decode cleanly\n", len(sizes))
	return nil
}
