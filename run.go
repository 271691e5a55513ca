// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// MergedDirName is the subdirectory of the model directory receiving the
// merged file.
const MergedDirName = "merged"

// OutputPath returns where Run writes the merged file for the model
// directory dir: "<dir>/merged/<base name of dir>.safetensors".
func OutputPath(dir string) string {
	return filepath.Join(dir, MergedDirName, filepath.Base(dir)+Extension)
}

// Run performs a complete merge job on the model directory dir: it
// discovers and validates the shards, recreates the "merged" subdirectory
// (removing any previous one) and merges the shards into OutputPath(dir).
//
// Validation errors are returned before any directory is touched. Jobs
// targeting the same directory must not run concurrently.
func Run(dir string, opts ...Option) (Result, error) {
	o := newOptions(opts)

	abs, err := filepath.Abs(dir)
	if err != nil {
		o.metrics.ObserveFailure("discover")
		return Result{}, &PathError{Path: dir, Err: err}
	}
	o.log.Info().Str("folder", filepath.Base(abs)).Str("path", abs).Msg("processing folder")

	set, err := Discover(abs)
	if err != nil {
		o.metrics.ObserveFailure("discover")
		return Result{}, err
	}
	o.log.Info().Int("found", len(set.Shards)).Int("expected", set.Total).Msg("found shard files")
	o.log.Info().
		Str("total_size", humanize.Bytes(uint64(set.TotalSize()))).
		Msg("all shards validated (present and not LFS pointers)")

	mergedDir := filepath.Join(abs, MergedDirName)
	if err = resetDir(mergedDir, o); err != nil {
		o.metrics.ObserveFailure("write")
		return Result{}, err
	}

	out := OutputPath(abs)
	o.log.Info().Str("output", filepath.Base(out)).Msg("merging shards, this may take a while for large models")
	res, err := Merge(set, out, opts...)
	if err != nil {
		return Result{}, err
	}
	o.log.Info().
		Str("output", res.OutputPath).
		Str("size", humanize.Bytes(uint64(res.ActualSize))).
		Dur("elapsed", res.Duration).
		Msg("merge complete")
	return res, nil
}

func resetDir(dir string, o options) error {
	if _, err := os.Lstat(dir); err == nil {
		o.log.Info().Str("path", dir).Msg("removing existing merged folder")
		if err = os.RemoveAll(dir); err != nil {
			return &IOError{Op: "remove", Path: dir, Err: err}
		}
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return &IOError{Op: "create directory", Path: dir, Err: err}
	}
	o.log.Info().Str("path", dir).Msg("created merged folder")
	return nil
}
