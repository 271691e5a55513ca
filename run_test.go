// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nlpodyssey/stmerge/dtype"
	"github.com/nlpodyssey/stmerge/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("models", "llama", "merged", "llama.safetensors"),
		OutputPath(filepath.Join("models", "llama")))
}

func TestRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tiny-model")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeShard(t, dir, 1, 2, map[string]string{"format": "pt"}, newTensor(t, "a", dtype.F16, []int{16}, 1))
	writeShard(t, dir, 2, 2, nil, newTensor(t, "b", dtype.F16, []int{16}, 2))

	// leftovers of a previous run are discarded
	mergedDir := filepath.Join(dir, MergedDirName)
	require.NoError(t, os.Mkdir(mergedDir, 0o755))
	touch(t, filepath.Join(mergedDir, "stale.txt"), "old")

	res, err := Run(dir, WithWorkers(2))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "merged", "tiny-model.safetensors"), res.OutputPath)
	assert.Equal(t, 2, res.Shards)
	assert.Equal(t, 2, res.Tensors)
	assertNoTempFiles(t, mergedDir, "tiny-model.safetensors")

	merged := readAll(t, res.OutputPath)
	assert.Len(t, merged, 2)

	// the merged directory is not scanned as a shard source
	again, err := Run(dir)
	require.NoError(t, err)
	assert.Equal(t, res.ActualSize, again.ActualSize)
}

func TestRun_ValidationFailureTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, 1, 2, nil, newTensor(t, "a", dtype.U8, []int{1}, 1))
	mergedDir := filepath.Join(dir, MergedDirName)
	require.NoError(t, os.Mkdir(mergedDir, 0o755))
	touch(t, filepath.Join(mergedDir, "previous.safetensors"), "keep me")

	m := metrics.NewMerge()
	_, err := Run(dir, WithMetrics(m))

	var mse *MissingShardsError
	require.ErrorAs(t, err, &mse)
	assertNoTempFiles(t, mergedDir, "previous.safetensors")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("discover")))
}

func TestRun_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	touch(t, path, "x")

	_, err := Run(path)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrNotDirectory)
}
