// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nlpodyssey/stmerge/dtype"
)

type jsonTensor struct {
	DType       dtype.DType `json:"dtype"`
	Shape       Shape       `json:"shape"`
	DataOffsets DataOffsets `json:"data_offsets"`
}

// MarshalJSON serializes the Header to the safetensors JSON object.
//
// The output is deterministic: the metadata block comes first (omitted
// when empty, with keys sorted), followed by the tensors in ascending
// DataOffsets order. ByteBufferOffset is not part of the JSON form.
func (h Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true

	if len(h.Metadata) > 0 {
		keys := make([]string, 0, len(h.Metadata))
		for k := range h.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		writeKey(&buf, metadataKey)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, k)
			v, err := json.Marshal(h.Metadata[k])
			if err != nil {
				return nil, fmt.Errorf("failed to JSON-encode metadata %q: %w", k, err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
		first = false
	}

	ts := h.Tensors.TensorSlice()
	ts.SortByDataOffsets()
	for _, t := range ts {
		if t.Name == metadataKey {
			return nil, fmt.Errorf("tensor name %q is reserved", metadataKey)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeKey(&buf, t.Name)
		v, err := json.Marshal(jsonTensor{DType: t.DType, Shape: t.Shape, DataOffsets: t.DataOffsets})
		if err != nil {
			return nil, fmt.Errorf("failed to JSON-encode tensor %q: %w", t.Name, err)
		}
		buf.Write(v)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a safetensors JSON header object. ByteBufferOffset
// is left to zero, since the JSON alone does not carry it.
func (h *Header) UnmarshalJSON(data []byte) error {
	raw, err := decodeJSON(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	parsed, err := convertRawHeader(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func writeKey(buf *bytes.Buffer, key string) {
	// json.Marshal on a string never fails
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}
