// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dOff(b, e int) DataOffsets { return DataOffsets{Begin: b, End: e} }

func TestDataOffsets_Less(t *testing.T) {
	testCases := []struct {
		a    DataOffsets
		b    DataOffsets
		want bool
	}{
		{dOff(1, 2), dOff(1, 2), false},
		{dOff(1, 2), dOff(3, 4), true},
		{dOff(3, 4), dOff(1, 2), false},
		{dOff(1, 2), dOff(1, 3), true},
		{dOff(1, 3), dOff(1, 2), false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.a.Less(tc.b), "%v < %v", tc.a, tc.b)
	}
}

func TestDataOffsets_Overlaps(t *testing.T) {
	testCases := []struct {
		a    DataOffsets
		b    DataOffsets
		want bool
	}{
		{dOff(0, 4), dOff(4, 8), false},
		{dOff(0, 4), dOff(3, 8), true},
		{dOff(2, 3), dOff(0, 8), true},
		{dOff(0, 0), dOff(0, 8), false},
		{dOff(5, 5), dOff(0, 8), false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.a.Overlaps(tc.b), "%v overlaps %v", tc.a, tc.b)
		assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "%v overlaps %v", tc.b, tc.a)
	}
}

func TestDataOffsets_UnmarshalJSON(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		var d DataOffsets
		assert.NoError(t, d.UnmarshalJSON([]byte("[1, 2]")))
		assert.Equal(t, dOff(1, 2), d)
		assert.Equal(t, 1, d.Len())
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, v := range []string{"null", "[]", "[1]", "[1,2,3]", "["} {
			var d DataOffsets
			assert.Error(t, d.UnmarshalJSON([]byte(v)), v)
		}
	})
}

func TestDataOffsets_MarshalJSON(t *testing.T) {
	b, err := dOff(1, 2).MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "[1,2]", string(b))
}
