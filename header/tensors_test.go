// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"testing"

	"github.com/nlpodyssey/stmerge/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor_ByteSize(t *testing.T) {
	testCases := []struct {
		tensor Tensor
		want   int
	}{
		{Tensor{DType: dtype.U8, Shape: nil}, 1},
		{Tensor{DType: dtype.F32, Shape: Shape{}}, 4},
		{Tensor{DType: dtype.BF16, Shape: Shape{3, 4}}, 24},
		{Tensor{DType: dtype.I64, Shape: Shape{2, 0, 5}}, 0},
		{Tensor{DType: dtype.F8E4M3, Shape: Shape{7}}, 7},
	}
	for _, tc := range testCases {
		got, err := tc.tensor.ByteSize()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := Tensor{DType: 0, Shape: Shape{1}}.ByteSize()
	assert.EqualError(t, err, "invalid DType(0)")
}

func TestTensorMap_TensorSlice(t *testing.T) {
	assert.Nil(t, TensorMap(nil).TensorSlice())
	assert.Nil(t, TensorMap{}.TensorSlice())

	tm := TensorMap{
		"foo": Tensor{Name: "foo"},
		"bar": Tensor{Name: "bar"},
		"baz": Tensor{Name: "baz"},
	}
	ts := tm.TensorSlice()
	require.Len(t, ts, 3)
	for _, tensor := range tm {
		assert.Contains(t, ts, tensor)
	}
}

func TestTensorMap_Names(t *testing.T) {
	assert.Nil(t, TensorMap(nil).Names())
	tm := TensorMap{
		"foo": Tensor{Name: "foo"},
		"bar": Tensor{Name: "bar"},
		"baz": Tensor{Name: "baz"},
	}
	assert.Equal(t, []string{"bar", "baz", "foo"}, tm.Names())
}

func TestTensorSlice_SortByDataOffsets(t *testing.T) {
	ts := TensorSlice{
		Tensor{Name: "a", DataOffsets: DataOffsets{Begin: 1, End: 2}},
		Tensor{Name: "b", DataOffsets: DataOffsets{Begin: 3, End: 4}},
		Tensor{Name: "z", DataOffsets: DataOffsets{Begin: 0, End: 0}},
		Tensor{Name: "c", DataOffsets: DataOffsets{Begin: 2, End: 3}},
		Tensor{Name: "d", DataOffsets: DataOffsets{Begin: 0, End: 0}},
	}
	ts.SortByDataOffsets()
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	assert.Equal(t, []string{"d", "z", "a", "c", "b"}, names)
}
