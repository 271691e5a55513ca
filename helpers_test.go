// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nlpodyssey/stmerge/dtype"
	"github.com/stretchr/testify/require"
)

// newTensor returns a RawTensor whose data bytes are all set to fill.
func newTensor(t *testing.T, name string, dt dtype.DType, shape []int, fill byte) RawTensor {
	t.Helper()
	n := dt.Size()
	for _, d := range shape {
		n *= d
	}
	rt, err := NewRawTensor(name, dt, shape, bytes.Repeat([]byte{fill}, n))
	require.NoError(t, err)
	return rt
}

// writeContainer serializes tensors to path.
func writeContainer(t *testing.T, path string, metadata map[string]string, tensors ...RawTensor) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, tensors, metadata))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeShard writes shard index of total in dir and returns its path.
func writeShard(t *testing.T, dir string, index, total int, metadata map[string]string, tensors ...RawTensor) string {
	t.Helper()
	path := filepath.Join(dir, ShardFileName(index, total))
	writeContainer(t, path, metadata, tensors...)
	return path
}

// touch creates a file with the given content.
func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// lfsPointer is the content of a typical git-lfs pointer file.
const lfsPointer = "version https://git-lfs.github.com/spec/v1\n" +
	"oid sha256:4d7a214614ab2935c943f9e0ff69d22eadbb8f32b1258daaa5e2ca24d17e2393\n" +
	"size 12345\n"
