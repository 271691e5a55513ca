// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stmerge merges the numbered safetensors shards of a model
// directory into <dir>/merged/<dir name>.safetensors.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/nlpodyssey/stmerge"
	"github.com/nlpodyssey/stmerge/internal/logger"
	"github.com/nlpodyssey/stmerge/internal/metrics"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "stmerge",
		Usage:     "merge model-NNNNN-of-MMMMM.safetensors shards into a single file",
		ArgsUsage: "<model-dir>",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "number of shards read concurrently",
				Value:   1,
				EnvVars: []string{"STMERGE_WORKERS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"STMERGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "console or json",
				Value:   logger.FormatConsole,
				EnvVars: []string{"STMERGE_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "write Prometheus metrics of the job to this file (textfile collector format)",
				EnvVars: []string{"STMERGE_METRICS_FILE"},
			},
		},
		// errors are reported by the action itself; main only sets the status
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         merge,
	}
}

func merge(c *cli.Context) (err error) {
	if c.NArg() != 1 {
		fmt.Fprintf(c.App.ErrWriter, "usage: %s [options] %s\n", c.App.Name, c.App.ArgsUsage)
		return cli.Exit("expected exactly one model directory", 1)
	}

	log := logger.New(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
	m := metrics.NewMerge()

	if path := c.String("metrics-file"); path != "" {
		defer func() {
			if werr := m.WriteTextfile(path); werr != nil {
				log.Error().Err(werr).Str("path", path).Msg("failed to write metrics")
				err = multierr.Append(err, werr)
			}
		}()
	}

	res, err := stmerge.Run(c.Args().First(),
		stmerge.WithWorkers(c.Int("workers")),
		stmerge.WithLogger(log),
		stmerge.WithMetrics(m),
	)
	if err != nil {
		log.Error().Err(err).Msg("merge failed")
		return err
	}

	fmt.Fprintf(c.App.Writer, "merged %d tensors from %d shards into %s (%s)\n",
		res.Tensors, res.Shards, res.OutputPath, humanize.Bytes(uint64(res.ActualSize)))
	if res.SizeMismatch {
		fmt.Fprintf(c.App.Writer, "warning: merged size differs from the sum of shards by %s\n",
			humanize.FtoaWithDigits(res.SizeDiff*100, 1)+"%")
	}
	return nil
}
