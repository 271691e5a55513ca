// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"errors"
	"fmt"
)

var (
	// ErrNoShardsFound is returned by Discover when a directory holds no
	// file named after the shard convention.
	ErrNoShardsFound = errors.New("no model-*-of-*.safetensors files found")
	// ErrNotDirectory is wrapped by PathError when the given path exists
	// but is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrClosed is returned by Reader methods called after Close.
	ErrClosed = errors.New("reader is closed")
)

// PathError reports a model directory that is missing or unusable.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid model directory %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// InconsistentShardCountError reports two shard files that declare a
// different total number of shards.
type InconsistentShardCountError struct {
	Expected int
	Found    int
	File     string
}

func (e *InconsistentShardCountError) Error() string {
	return fmt.Sprintf("inconsistent shard counts: expected %d, found %d in %s", e.Expected, e.Found, e.File)
}

// MissingShardsError reports a shard set whose size differs from the
// declared total.
type MissingShardsError struct {
	Found    int
	Expected int
}

func (e *MissingShardsError) Error() string {
	return fmt.Sprintf("missing shards: found %d, expected %d", e.Found, e.Expected)
}

// NonSequentialShardError reports a gap or an out-of-range value in the
// sorted shard indices.
type NonSequentialShardError struct {
	ExpectedIndex int
	FoundIndex    int
}

func (e *NonSequentialShardError) Error() string {
	return fmt.Sprintf("non-sequential shard numbering: expected %05d, found %05d", e.ExpectedIndex, e.FoundIndex)
}

// PlaceholderFileError reports a shard that is a git-lfs pointer file
// instead of real content.
type PlaceholderFileError struct {
	File string
}

func (e *PlaceholderFileError) Error() string {
	return fmt.Sprintf("LFS pointer detected (not downloaded): %s", e.File)
}

// FormatError reports a malformed container: bad size prefix, invalid
// header JSON, or tensor byte ranges that are inconsistent or out of range.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid safetensors data: %v", e.Err)
	}
	return fmt.Sprintf("invalid safetensors file %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NotFoundError reports a tensor name absent from a container.
type NotFoundError struct {
	Path string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tensor %q not found in %s", e.Name, e.Path)
}

// IOError reports a filesystem failure while reading or writing a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MergeError wraps any failure raised while loading shards or writing
// the merged container.
type MergeError struct {
	// Phase is either "read" or "write".
	Phase string
	// Path is the shard being read, or the output being written.
	Path string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed (%s %s): %v", e.Phase, e.Path, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }
