// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"fmt"
)

// Validate checks whether the content of a Header is valid according to
// safetensors format, returning an error if a problem is encountered,
// otherwise nil.
//
// The Header is checked against the following rules:
//
//   - ByteBufferOffset must not be negative
//   - each key in Tensors TensorMap must match the mapped Tensor.Name
//   - the union of DataOffsets of all Tensors must cover an entire contiguous
//     area of the data segment, starting from offset 0, with no overlap
//   - for each Tensor, its DataOffsets.Begin must be <= DataOffsets.End
//   - for each Tensor, End - Begin must coincide with the byte size
//     computed from Shape and DType (an empty shape counts as one scalar)
//   - no overflow must occur while computing sizes
func (h Header) Validate() error {
	if h.ByteBufferOffset < 0 {
		return fmt.Errorf("invalid byte-buffer offset negative value %d", h.ByteBufferOffset)
	}
	for k, t := range h.Tensors {
		if k != t.Name {
			return fmt.Errorf("tensor names mismatch: TensorMap key %q, Tensor.Name %q", k, t.Name)
		}
	}

	ts := h.Tensors.TensorSlice()
	ts.SortByDataOffsets()

	expectedBegin := 0
	for i, t := range ts {
		if i > 0 && t.DataOffsets.Overlaps(ts[i-1].DataOffsets) {
			return fmt.Errorf("invalid tensor %q: data-offsets %v overlap tensor %q", t.Name, t.DataOffsets, ts[i-1].Name)
		}
		if err := validateTensor(t, expectedBegin); err != nil {
			return fmt.Errorf("invalid tensor %q: %w", t.Name, err)
		}
		expectedBegin = t.DataOffsets.End
	}
	return nil
}

// ValidateBounds checks that every tensor's data lies within a data
// segment of dataLen bytes.
func (h Header) ValidateBounds(dataLen int64) error {
	for _, t := range h.Tensors {
		if int64(t.DataOffsets.End) > dataLen {
			return fmt.Errorf("tensor %q data-offsets [%d, %d) exceed data segment length %d",
				t.Name, t.DataOffsets.Begin, t.DataOffsets.End, dataLen)
		}
	}
	return nil
}

func validateTensor(t Tensor, expectedBegin int) error {
	if t.DataOffsets.Begin != expectedBegin {
		return fmt.Errorf("expected data-offsets begin %d, actual %d", expectedBegin, t.DataOffsets.Begin)
	}
	if t.DataOffsets.End < t.DataOffsets.Begin {
		return fmt.Errorf("expected data-offsets end >= %d (begin), actual %d", t.DataOffsets.Begin, t.DataOffsets.End)
	}
	byteSize, err := t.ByteSize()
	if err != nil {
		return err
	}
	if n := t.DataOffsets.Len(); n != byteSize {
		return fmt.Errorf("byte size computed from shape (%d) differs from data-offsets size (%d)", byteSize, n)
	}
	return nil
}
