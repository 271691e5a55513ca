// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dtype defines the scalar type tags a safetensors header may
// declare for a tensor.
package dtype

import (
	"fmt"
)

// DType represents a safetensors data type.
type DType uint8

const (
	// Bool represents an 8-bit boolean data type.
	Bool DType = iota + 1
	// U8 represents an 8-bit unsigned integer data type.
	U8
	// I8 represents an 8-bit signed integer data type.
	I8
	// F8E4M3 represents an 8-bit floating point data type
	// (4 exponent bits, 3 mantissa bits).
	F8E4M3
	// F8E5M2 represents an 8-bit floating point data type
	// (5 exponent bits, 2 mantissa bits).
	F8E5M2
	// U16 represents a 16-bit unsigned integer data type.
	U16
	// I16 represents a 16-bit signed integer data type.
	I16
	// F16 represents a 16-bit half-precision floating point data type.
	F16
	// BF16 represents a 16-bit brain floating point data type.
	BF16
	// U32 represents a 32-bit unsigned integer data type.
	U32
	// I32 represents a 32-bit signed integer data type.
	I32
	// F32 represents a 32-bit floating point data type.
	F32
	// U64 represents a 64-bit unsigned integer data type.
	U64
	// I64 represents a 64-bit signed integer data type.
	I64
	// F64 represents a 64-bit floating point data type.
	F64
)

type info struct {
	name string
	size int
}

var (
	infos = [...]info{
		Bool:   {"BOOL", 1},
		U8:     {"U8", 1},
		I8:     {"I8", 1},
		F8E4M3: {"F8_E4M3", 1},
		F8E5M2: {"F8_E5M2", 1},
		U16:    {"U16", 2},
		I16:    {"I16", 2},
		F16:    {"F16", 2},
		BF16:   {"BF16", 2},
		U32:    {"U32", 4},
		I32:    {"I32", 4},
		F32:    {"F32", 4},
		U64:    {"U64", 8},
		I64:    {"I64", 8},
		F64:    {"F64", 8},
	}
	byName = func() map[string]DType {
		m := make(map[string]DType, len(infos)-1)
		for dt := Bool; dt <= F64; dt++ {
			m[infos[dt].name] = dt
		}
		return m
	}()
)

// All returns every valid DType, in ascending declaration order.
func All() []DType {
	out := make([]DType, 0, F64)
	for dt := Bool; dt <= F64; dt++ {
		out = append(out, dt)
	}
	return out
}

// Parse returns the DType identified by its safetensors name
// (for example "F32" or "BF16").
func Parse(s string) (DType, error) {
	dt, ok := byName[s]
	if !ok {
		return 0, fmt.Errorf("unknown DType %q", s)
	}
	return dt, nil
}

// Validate returns an error if the DType is not valid, otherwise nil.
func (dt DType) Validate() error {
	if dt == 0 || dt > F64 {
		return fmt.Errorf("invalid DType(%d)", dt)
	}
	return nil
}

// String returns a string representation of a DType.
func (dt DType) String() string {
	if err := dt.Validate(); err != nil {
		return err.Error()
	}
	return infos[dt].name
}

// Size returns the size in bytes of one element of this data type,
// or -1 if the DType value is invalid.
func (dt DType) Size() int {
	if err := dt.Validate(); err != nil {
		return -1
	}
	return infos[dt].size
}

// MarshalJSON satisfies json.Marshaler interface.
func (dt DType) MarshalJSON() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	name := infos[dt].name
	b := make([]byte, 0, len(name)+2)
	b = append(b, '"')
	b = append(b, name...)
	return append(b, '"'), nil
}

// UnmarshalJSON satisfies json.Unmarshaler interface.
func (dt *DType) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", string(b))
	}
	v, ok := byName[string(b[1:len(b)-1])]
	if !ok {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", string(b))
	}
	*dt = v
	return nil
}

// MarshalText satisfies encoding.TextMarshaler interface.
func (dt DType) MarshalText() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(infos[dt].name), nil
}

// UnmarshalText satisfies encoding.TextUnmarshaler interface.
func (dt *DType) UnmarshalText(text []byte) error {
	v, ok := byName[string(text)]
	if !ok {
		return fmt.Errorf("failed to text-unmarshal DType from value %q", string(text))
	}
	*dt = v
	return nil
}
