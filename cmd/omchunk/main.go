package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

// logger is replaced in the app's Before hook once flags are parsed.
var logger = slog.New(slog.DiscardHandler)

func newApp() *cli.App {
	return &cli.App{
		Name:  "omchunk",
		Usage: "Compress N-dimensional arrays into chunked containers and back",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every chunk",
			},
		},
		Before: setUpLogging,
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Compress a raw little-endian array into a container",
				Action:    encodeArray,
				ArgsUsage: "RAW_FILE  OUTPUT_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "YAML file describing the array",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "zstd",
						Usage: "wrap the container in a zstd stream",
					},
					&cli.IntFlag{
						Name:  "level",
						Usage: "zstd compression level",
						Value: 3,
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "fail instead of clamping values that overflow after quantization",
					},
				},
			},
			{
				Name:      "decode",
				Usage:     "Decompress a container into a raw little-endian array",
				Action:    decodeArray,
				ArgsUsage: "CONTAINER_FILE  OUTPUT_FILE",
			},
			{
				Name:      "inspect",
				Usage:     "Print a container's configuration and chunk statistics",
				Action:    inspectContainer,
				ArgsUsage: "CONTAINER_FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "print one CSV row per chunk instead of a summary",
					},
				},
			},
			{
				Name:      "verify",
				Usage:     "Check a container's digest and decode every chunk",
				Action:    verifyContainer,
				ArgsUsage: "CONTAINER_FILE",
			},
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func setUpLogging(context *cli.Context) error {
	level := slog.LevelInfo
	if context.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}
