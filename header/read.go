// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nlpodyssey/stmerge/dtype"
)

type rawHeader map[string]map[string]any

// Read reads and parses from "r" the size prefix and the JSON header of
// a safetensors container. Reading stops at the end of the header, so
// the next byte available from "r" is the first byte of the data segment.
//
// No validation is performed on the obtained Header: see Header.Validate
// and Header.ValidateBounds.
func Read(r io.Reader) (Header, error) {
	size, err := ReadSize(r)
	if err != nil {
		return Header{}, err
	}

	raw, err := decodeJSON(&io.LimitedReader{R: r, N: int64(size)}, int64(size))
	if err != nil {
		return Header{}, fmt.Errorf("failed to JSON-decode header: %w", err)
	}

	h, err := convertRawHeader(raw)
	if err != nil {
		return Header{}, err
	}
	h.ByteBufferOffset = SizePrefixLen + size
	return h, nil
}

// ReadSize reads the little-endian uint64 header size prefix and checks
// that it lies within [2, MaxSize]. A bare minimum header is "{}".
func ReadSize(r io.Reader) (int, error) {
	var arr [SizePrefixLen]byte
	if _, err := io.ReadFull(r, arr[:]); err != nil {
		return 0, fmt.Errorf("failed to read header size: %w", err)
	}
	size := binary.LittleEndian.Uint64(arr[:])
	switch {
	case size < 2:
		return 0, fmt.Errorf("header size too small: %d", size)
	case size > MaxSize:
		return 0, fmt.Errorf("header size too large: %d", size)
	}
	return int(size), nil
}

// decodeJSON decodes one JSON object of exactly "size" bytes from r,
// tolerating trailing whitespace used as alignment padding.
func decodeJSON(r io.Reader, size int64) (rawHeader, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw rawHeader
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if off := dec.InputOffset(); off != size {
		if _, err := dec.Token(); err == nil {
			return nil, fmt.Errorf("unexpected data at byte offset %d", off)
		} else if err != io.EOF {
			return nil, err
		}
	}
	return raw, nil
}

func convertRawHeader(raw rawHeader) (h Header, err error) {
	if rawMeta, ok := raw[metadataKey]; ok {
		delete(raw, metadataKey)
		if h.Metadata, err = convertRawMetadata(rawMeta); err != nil {
			return Header{}, err
		}
	}
	if h.Tensors, err = convertRawTensors(raw); err != nil {
		return Header{}, err
	}
	return h, nil
}

func convertRawMetadata(raw map[string]any) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m := make(Metadata, len(raw))
	for key, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("failed to interpret header metadata: found non-string value for key %q", key)
		}
		m[key] = s
	}
	return m, nil
}

func convertRawTensors(raw rawHeader) (TensorMap, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tm := make(TensorMap, len(raw))
	for name, v := range raw {
		if v == nil {
			return nil, fmt.Errorf("failed to interpret header tensor %q: found null value", name)
		}
		t, err := convertRawTensor(name, v)
		if err != nil {
			return nil, fmt.Errorf("failed to interpret header tensor %q: %w", name, err)
		}
		tm[name] = t
	}
	return tm, nil
}

func convertRawTensor(name string, raw map[string]any) (Tensor, error) {
	t := Tensor{Name: name}
	var err error
	if t.DType, err = convertDType(raw); err != nil {
		return Tensor{}, err
	}
	if t.Shape, err = convertShape(raw); err != nil {
		return Tensor{}, err
	}
	if t.DataOffsets, err = convertDataOffsets(raw); err != nil {
		return Tensor{}, err
	}
	if len(raw) != 3 {
		return Tensor{}, errors.New("JSON object contains unknown keys")
	}
	return t, nil
}

func convertDType(raw map[string]any) (dtype.DType, error) {
	v, ok := raw["dtype"]
	if !ok {
		return 0, errors.New(`"dtype" is missing`)
	}
	s, ok := v.(string)
	if !ok {
		return 0, errors.New(`found non-string "dtype" value`)
	}
	dt, err := dtype.Parse(s)
	if err != nil {
		return 0, fmt.Errorf(`invalid "dtype" value: %q`, s)
	}
	return dt, nil
}

func convertShape(raw map[string]any) (Shape, error) {
	items, err := rawArray(raw, "shape")
	if err != nil {
		return nil, err
	}
	shape := make(Shape, len(items))
	for i, item := range items {
		if shape[i], err = convertNonNegInt(item); err != nil {
			return nil, fmt.Errorf(`failed to interpret "shape" value at index %d: %w`, i, err)
		}
	}
	return shape, nil
}

func convertDataOffsets(raw map[string]any) (DataOffsets, error) {
	items, err := rawArray(raw, "data_offsets")
	if err != nil {
		return DataOffsets{}, err
	}
	if len(items) != 2 {
		return DataOffsets{}, fmt.Errorf(`bad "data_offsets" length: expected 2, actual %d`, len(items))
	}
	var parsed [2]int
	for i, item := range items {
		if parsed[i], err = convertNonNegInt(item); err != nil {
			return DataOffsets{}, fmt.Errorf(`failed to interpret "data_offsets" value at index %d: %w`, i, err)
		}
	}
	return DataOffsets{Begin: parsed[0], End: parsed[1]}, nil
}

func rawArray(raw map[string]any, key string) ([]any, error) {
	v, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("%q is missing", key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("found non-array %q value", key)
	}
	return items, nil
}

func convertNonNegInt(value any) (int, error) {
	jn, ok := value.(json.Number)
	if !ok {
		return 0, errors.New("value is not a number")
	}
	n, err := strconv.ParseInt(jn.String(), 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("failed to convert value %q to int: %w", jn.String(), err)
	}
	if n < 0 {
		return 0, fmt.Errorf("value is negative: %d", n)
	}
	return int(n), nil
}
