package main

import (
	"bufio"
	"os"

	"github.com/dargueta/omchunk"
	"github.com/urfave/cli/v2"
)

func decodeArray(context *cli.Context) error {
	err := requireArgs(context, 2)
	if err != nil {
		return err
	}

	reader, closeInput, err := openContainer(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer closeInput()

	output, err := os.Create(context.Args().Get(1))
	if err != nil {
		return err
	}
	defer output.Close()

	cfg := reader.Config()
	planeSize := rowSize(cfg)
	slabRows := cfg.Chunks[0]
	buffer := make([]byte, slabRows*planeSize)
	writer := bufio.NewWriter(output)

	for firstRow := uint64(0); firstRow < cfg.Dimensions[0]; firstRow += slabRows {
		rows := min(slabRows, cfg.Dimensions[0]-firstRow)
		slab := buffer[:rows*planeSize]

		err = reader.ReadArray(slabView(cfg, slab, firstRow, rows))
		if err != nil {
			return err
		}
		_, err = writer.Write(slab)
		if err != nil {
			return omchunk.ErrIOFailed.Wrap(err)
		}
	}

	err = writer.Flush()
	if err != nil {
		return omchunk.ErrIOFailed.Wrap(err)
	}
	logger.Info(
		"array decoded",
		"elements", cfg.TotalElements(),
		"bytes", cfg.TotalElements()*uint64(cfg.DataType.Size()),
	)
	return nil
}
