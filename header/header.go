// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package header models the JSON header of a safetensors container: the
// tensor descriptors, the free-form metadata block and the position of the
// data segment that follows.
package header

// SizePrefixLen is the byte length of the little-endian uint64 that
// precedes the JSON header.
const SizePrefixLen = 8

// MaxSize is the largest JSON header size, in bytes, accepted by Read.
const MaxSize = 100_000_000

// metadataKey is the reserved JSON key holding the Metadata block.
const metadataKey = "__metadata__"

// Header provides tensors information and metadata, as defined by
// the safetensors format.
type Header struct {
	Tensors  TensorMap
	Metadata Metadata
	// ByteBufferOffset indicates the byte index position where the data
	// segment starts, relative to the beginning of the whole container.
	ByteBufferOffset int
}

// DataSize returns the byte length of the data segment described by the
// tensors, that is the highest DataOffsets.End among them.
func (h Header) DataSize() int {
	end := 0
	for _, t := range h.Tensors {
		if t.DataOffsets.End > end {
			end = t.DataOffsets.End
		}
	}
	return end
}

// Metadata is a set of free-form key/value string pairs.
type Metadata map[string]string

// Clone returns a copy of the Metadata, or nil if it is empty.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
