// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"fmt"
)

// DataOffsets describes the "[Begin, End)" byte range of a tensor's data
// within the data segment. Both positions are relative to the beginning
// of the data segment, not of the file.
type DataOffsets struct {
	// Begin is the lower bound byte index (included).
	Begin int
	// End is the upper bound byte index (excluded).
	End int
}

// Len returns the number of bytes covered by the range.
func (a DataOffsets) Len() int {
	return a.End - a.Begin
}

// Less reports whether DataOffsets "a" is ordered before DataOffsets "b".
func (a DataOffsets) Less(b DataOffsets) bool {
	return a.Begin < b.Begin || (a.Begin == b.Begin && a.End < b.End)
}

// Overlaps reports whether the two non-empty ranges share at least one byte.
func (a DataOffsets) Overlaps(b DataOffsets) bool {
	if a.Len() <= 0 || b.Len() <= 0 {
		return false
	}
	return a.Begin < b.End && b.Begin < a.End
}

// UnmarshalJSON deserializes a DataOffsets object from a JSON array of two
// numbers.
func (a *DataOffsets) UnmarshalJSON(b []byte) error {
	var decoded []int
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	if len(decoded) != 2 {
		return fmt.Errorf("invalid data-offsets value: %q", string(b))
	}
	*a = DataOffsets{Begin: decoded[0], End: decoded[1]}
	return nil
}

// MarshalJSON serializes a DataOffsets object to a JSON array of two numbers.
func (a DataOffsets) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{a.Begin, a.End})
}
