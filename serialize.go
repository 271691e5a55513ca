// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/nlpodyssey/stmerge/dtype"
	"github.com/nlpodyssey/stmerge/header"
)

// SerializableTensor is implemented by any tensor object whose data can be
// serialized to safetensors format.
type SerializableTensor interface {
	Name() string
	DType() dtype.DType
	Shape() []int
	io.WriterTo
}

// headerAlignment is the boundary the data segment starts on.
const headerAlignment = 8

var headerPadding = [headerAlignment]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}

// Serialize the given tensors and additional metadata to safetensors format,
// writing the result to "w".
//
// Data offsets are always recomputed: tensors are laid out contiguously,
// ordered by descending dtype size and then by name, so the same tensor set
// always produces the same bytes and every tensor is aligned to its element
// size. Duplicate names or an inconsistent layout fail with a *FormatError
// before anything is written.
func Serialize[T SerializableTensor](w io.Writer, tensors []T, metadata map[string]string) error {
	ordered := layoutOrder(tensors)
	head, err := makeValidHeader(ordered, metadata)
	if err != nil {
		return &FormatError{Err: err}
	}
	if err = writeHeader(w, head); err != nil {
		return err
	}
	return writeTensors(w, ordered, head.Tensors)
}

// layoutOrder returns a sorted copy of tensors.
func layoutOrder[T SerializableTensor](tensors []T) []T {
	out := make([]T, len(tensors))
	copy(out, tensors)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].DType().Size(), out[j].DType().Size()
		if si != sj {
			return si > sj
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

func makeValidHeader[T SerializableTensor](tensors []T, metadata map[string]string) (header.Header, error) {
	tm := make(header.TensorMap, len(tensors))
	offset := 0
	for _, t := range tensors {
		name := t.Name()
		if _, ok := tm[name]; ok {
			return header.Header{}, fmt.Errorf("duplicate tensor name %q", name)
		}
		ht := header.Tensor{
			Name:  name,
			DType: t.DType(),
			Shape: t.Shape(),
		}
		size, err := ht.ByteSize()
		if err != nil {
			return header.Header{}, fmt.Errorf("invalid tensor %q: %w", name, err)
		}
		ht.DataOffsets = header.DataOffsets{Begin: offset, End: offset + size}
		offset += size
		tm[name] = ht
	}

	head := header.Header{
		Tensors:  tm,
		Metadata: header.Metadata(metadata).Clone(),
	}
	if err := head.Validate(); err != nil {
		return header.Header{}, fmt.Errorf("failed to generate a valid header: %w", err)
	}
	return head, nil
}

func writeHeader(w io.Writer, head header.Header) error {
	jsonHeader, err := head.MarshalJSON()
	if err != nil {
		return &FormatError{Err: err}
	}

	jsonLen := len(jsonHeader)
	toAlign := (headerAlignment - jsonLen%headerAlignment) % headerAlignment

	var size [header.SizePrefixLen]byte
	binary.LittleEndian.PutUint64(size[:], uint64(jsonLen+toAlign))
	if _, err = w.Write(size[:]); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err = w.Write(jsonHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if toAlign > 0 {
		if _, err = w.Write(headerPadding[:toAlign]); err != nil {
			return fmt.Errorf("failed to write header padding: %w", err)
		}
	}
	return nil
}

func writeTensors[T SerializableTensor](w io.Writer, tensors []T, tm header.TensorMap) error {
	for _, t := range tensors {
		ht := tm[t.Name()]
		n, err := t.WriteTo(w)
		if err != nil {
			return fmt.Errorf("failed to write data of tensor %q: %w", ht.Name, err)
		}
		if expected := int64(ht.DataOffsets.Len()); n != expected {
			return fmt.Errorf("failed to write data of tensor %q: expected %d written bytes, actual %d", ht.Name, expected, n)
		}
	}
	return nil
}
