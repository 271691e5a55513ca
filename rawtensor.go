// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nlpodyssey/stmerge/dtype"
	"github.com/nlpodyssey/stmerge/header"
)

// RawTensor is a tensor with data fully loaded in memory.
//
// Data is kept exactly as stored in a safetensors data segment, without
// being interpreted.
type RawTensor struct {
	name  string
	dType dtype.DType
	shape header.Shape
	data  []byte
}

// NewRawTensor returns a RawTensor after checking that the length of data
// matches the byte size implied by dType and shape.
func NewRawTensor(name string, dType dtype.DType, shape []int, data []byte) (RawTensor, error) {
	size, err := header.Tensor{Name: name, DType: dType, Shape: shape}.ByteSize()
	if err != nil {
		return RawTensor{}, fmt.Errorf("invalid tensor %q: %w", name, err)
	}
	if size != len(data) {
		return RawTensor{}, fmt.Errorf("invalid tensor %q: expected %d data bytes, actual %d", name, size, len(data))
	}
	return RawTensor{
		name:  name,
		dType: dType,
		shape: header.Shape(shape).Clone(),
		data:  data,
	}, nil
}

// The Name of the tensor.
func (rt RawTensor) Name() string {
	return rt.name
}

// DType returns the data type of the tensor.
func (rt RawTensor) DType() dtype.DType {
	return rt.dType
}

// The Shape of the tensor. It can be nil.
func (rt RawTensor) Shape() []int {
	return rt.shape
}

// Data returns the raw data of the tensor.
// It is expected to be little-endian and row-major ("C") ordered.
func (rt RawTensor) Data() []byte {
	return rt.data
}

// DataLen returns the length of the data in bytes.
func (rt RawTensor) DataLen() int {
	return len(rt.data)
}

// WriteTo writes the tensor data to w. It satisfies io.WriterTo.
func (rt RawTensor) WriteTo(w io.Writer) (int64, error) {
	if len(rt.data) == 0 {
		return 0, nil
	}
	return bytes.NewReader(rt.data).WriteTo(w)
}
