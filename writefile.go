// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

const writeBufferSize = 4 << 20

// WriteFile serializes tensors and metadata to a safetensors file at path.
//
// Data is first written to a temporary file in the same directory, which is
// synced and then renamed onto path. On failure the temporary file is
// removed and path is left untouched: a partially written container never
// becomes visible under the final name.
func WriteFile[T SerializableTensor](path string, tensors []T, metadata map[string]string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmp := f.Name()

	if err = writeSynced(f, path, tensors, metadata); err != nil {
		return multierr.Combine(err, f.Close(), os.Remove(tmp))
	}
	if err = f.Close(); err != nil {
		return multierr.Append(&IOError{Op: "close", Path: tmp, Err: err}, os.Remove(tmp))
	}
	if err = os.Rename(tmp, path); err != nil {
		return multierr.Append(&IOError{Op: "rename", Path: tmp, Err: err}, os.Remove(tmp))
	}
	return nil
}

func writeSynced[T SerializableTensor](f *os.File, path string, tensors []T, metadata map[string]string) error {
	bw := bufio.NewWriterSize(f, writeBufferSize)
	if err := Serialize(bw, tensors, metadata); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
			return fe
		}
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Chmod(0o644); err != nil {
		return &IOError{Op: "chmod", Path: f.Name(), Err: err}
	}
	if err := f.Sync(); err != nil {
		return &IOError{Op: "sync", Path: f.Name(), Err: err}
	}
	return nil
}
