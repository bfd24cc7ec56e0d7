package main

import (
	"io"
	"os"

	"github.com/dargueta/omchunk"
	"github.com/dargueta/omchunk/container"
	"github.com/dargueta/omchunk/quantize"
	"github.com/dargueta/omchunk/utilities/compression"
	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v2"
)

func encodeArray(context *cli.Context) error {
	err := requireArgs(context, 2)
	if err != nil {
		return err
	}
	inputPath := context.Args().Get(0)
	outputPath := context.Args().Get(1)

	cfg, configFile, err := omchunk.LoadConfigFile(context.String("config"))
	if err != nil {
		return err
	}

	attributes := map[string]string{}
	for key, value := range configFile.Attributes {
		attributes[key] = value
	}
	if configFile.Name != "" {
		attributes["name"] = configFile.Name
	}

	policy := quantize.Clamp
	if context.Bool("strict") {
		policy = quantize.Strict
	}

	input, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer input.Close()

	expectedSize := int64(cfg.TotalElements()) * int64(cfg.DataType.Size())
	stat, err := input.Stat()
	if err != nil {
		return err
	}
	if stat.Size() != expectedSize {
		return omchunk.Errorf(
			omchunk.ErrInvalidArgument,
			"%s is %d bytes, but a %v array of %s needs %d",
			inputPath,
			stat.Size(),
			cfg.Dimensions,
			cfg.DataType,
			expectedSize,
		)
	}

	output, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer output.Close()

	if !context.Bool("zstd") {
		return writeContainer(cfg, input, output, attributes, policy)
	}

	// Compress on the fly: the container is written into one end of a pipe
	// and zstd reads from the other.
	pipeReader, pipeWriter := io.Pipe()
	done := make(chan error, 1)
	go func() {
		level := zstd.EncoderLevelFromZstd(context.Int("level"))
		written, err := compression.CompressStream(pipeReader, output, level)
		pipeReader.CloseWithError(err)
		if err == nil {
			logger.Info("zstd stream written", "bytes", written)
		}
		done <- err
	}()

	err = writeContainer(cfg, input, pipeWriter, attributes, policy)
	pipeWriter.CloseWithError(err)
	compressErr := <-done
	if err != nil {
		return err
	}
	return compressErr
}

// writeContainer reads the raw array from `input` one row of chunks at a time
// and writes it to `output` as a container.
func writeContainer(
	cfg *omchunk.Config,
	input io.Reader,
	output io.Writer,
	attributes map[string]string,
	policy quantize.Policy,
) error {
	writer, err := container.NewWriter(
		output,
		cfg,
		container.WithLogger(logger),
		container.WithAttributes(attributes),
		container.WithClampPolicy(policy),
	)
	if err != nil {
		return err
	}

	planeSize := rowSize(cfg)
	slabRows := cfg.Chunks[0]
	buffer := make([]byte, slabRows*planeSize)

	for firstRow := uint64(0); firstRow < cfg.Dimensions[0]; firstRow += slabRows {
		rows := min(slabRows, cfg.Dimensions[0]-firstRow)
		slab := buffer[:rows*planeSize]

		_, err = io.ReadFull(input, slab)
		if err != nil {
			return omchunk.ErrIOFailed.Wrap(err)
		}
		err = writer.WriteArray(slabView(cfg, slab, firstRow, rows))
		if err != nil {
			return err
		}
	}

	if writer.Clamped() > 0 {
		logger.Warn("some values were clamped", "count", writer.Clamped())
	}
	return writer.Close()
}
