// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/nlpodyssey/stmerge/dtype"
)

// Tensor describes a tensor as recorded within a safetensors header.
type Tensor struct {
	Name        string
	DType       dtype.DType
	Shape       Shape
	DataOffsets DataOffsets
}

// ByteSize returns the number of bytes the tensor data must occupy,
// computed from Shape and DType.
func (t Tensor) ByteSize() (int, error) {
	if err := t.DType.Validate(); err != nil {
		return 0, err
	}
	n, err := t.Shape.NumElements()
	if err != nil {
		return 0, err
	}
	hi, size := bits.Mul(n, uint(t.DType.Size()))
	if hi != 0 {
		return 0, fmt.Errorf("int overflow computing tensor byte size from shape")
	}
	if size > math.MaxInt {
		return 0, fmt.Errorf("tensor byte size computed from shape is too large for int type: %d", size)
	}
	return int(size), nil
}

// TensorMap is a set of Tensor objects mapped by their name.
type TensorMap map[string]Tensor

// TensorSlice is a slice of Tensor objects.
type TensorSlice []Tensor

// TensorSlice creates an unsorted slice of Tensor objects filled with
// all values of the TensorMap.
func (tm TensorMap) TensorSlice() TensorSlice {
	if len(tm) == 0 {
		return nil
	}
	ts := make(TensorSlice, 0, len(tm))
	for _, t := range tm {
		ts = append(ts, t)
	}
	return ts
}

// Names returns the tensor names in ascending order.
func (tm TensorMap) Names() []string {
	if len(tm) == 0 {
		return nil
	}
	names := make([]string, 0, len(tm))
	for name := range tm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortByDataOffsets sorts the slice in place by ascending DataOffsets,
// breaking ties by name so the order is total.
func (ts TensorSlice) SortByDataOffsets() {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i].DataOffsets, ts[j].DataOffsets
		if a == b {
			return ts[i].Name < ts[j].Name
		}
		return a.Less(b)
	})
}
