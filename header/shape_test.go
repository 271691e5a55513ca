// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ json.Marshaler = Shape{}

func TestShape_MarshalJSON(t *testing.T) {
	testCases := []struct {
		shape Shape
		json  string
	}{
		{nil, "[]"},
		{Shape{}, "[]"},
		{Shape{42}, "[42]"},
		{Shape{2, 3}, "[2,3]"},
	}
	for _, tc := range testCases {
		b, err := tc.shape.MarshalJSON()
		assert.NoError(t, err, tc)
		assert.Equal(t, tc.json, string(b), tc)
	}
}

func TestShape_NumElements(t *testing.T) {
	n, err := Shape(nil).NumElements()
	assert.NoError(t, err)
	assert.Equal(t, uint(1), n)

	n, err = Shape{2, 3, 4}.NumElements()
	assert.NoError(t, err)
	assert.Equal(t, uint(24), n)

	_, err = Shape{2, -3}.NumElements()
	assert.EqualError(t, err, "shape contains negative value -3")

	_, err = Shape{math.MaxInt, math.MaxInt}.NumElements()
	assert.EqualError(t, err, "int overflow computing tensor elements size from shape")
}

func TestShape_Clone(t *testing.T) {
	assert.Nil(t, Shape(nil).Clone())
	assert.Nil(t, Shape{}.Clone())

	s := Shape{1, 2}
	c := s.Clone()
	assert.Equal(t, s, c)
	c[0] = 9
	assert.Equal(t, 1, s[0])
}
