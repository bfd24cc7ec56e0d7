package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/container"
	"github.com/dargueta/omchunk/utilities/compression"
	"github.com/urfave/cli/v2"
)

func requireArgs(context *cli.Context, count int) error {
	if context.NArg() != count {
		return cli.Exit(
			fmt.Sprintf(
				"expected %d arguments, got %d\nUsage: %s %s",
				count,
				context.NArg(),
				context.Command.FullName(),
				context.Command.ArgsUsage,
			),
			1,
		)
	}
	return nil
}

// openContainer opens a container file, which may be wrapped in zstd. A
// compressed container is decompressed into memory.
func openContainer(path string) (*container.Reader, func(), error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	header := make([]byte, 4)
	_, err = io.ReadFull(file, header)
	if err != nil {
		file.Close()
		return nil, nil, omchunk.ErrCorruptData.Wrap(err)
	}

	var input io.ReaderAt = file
	var size int64
	if compression.IsCompressed(header) {
		_, err = file.Seek(0, io.SeekStart)
		if err != nil {
			file.Close()
			return nil, nil, err
		}
		contents, err := compression.DecompressToBytes(file)
		file.Close()
		if err != nil {
			return nil, nil, err
		}

		logger.Debug("decompressed zstd container", "path", path, "bytes", len(contents))
		input = bytes.NewReader(contents)
		size = int64(len(contents))
		file = nil
	} else {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, nil, err
		}
		size = stat.Size()
	}

	closer := func() {
		if file != nil {
			file.Close()
		}
	}

	reader, err := container.Open(input, size, container.WithLogger(logger))
	if err != nil {
		closer()
		return nil, nil, err
	}
	return reader, closer, nil
}

// slabView returns a view of `rows` consecutive planes along the first axis,
// starting at plane `firstRow`.
func slabView(cfg *omchunk.Config, data []byte, firstRow, rows uint64) omchunk.ArrayView {
	shape := append([]uint64(nil), cfg.Dimensions...)
	shape[0] = rows
	origin := make([]uint64, len(shape))
	origin[0] = firstRow
	return omchunk.ArrayView{Data: data, Shape: shape, Origin: origin}
}

// rowSize returns the number of bytes in one plane along the first axis.
func rowSize(cfg *omchunk.Config) uint64 {
	size := uint64(cfg.DataType.Size())
	for _, length := range cfg.Dimensions[1:] {
		size *= length
	}
	return size
}
