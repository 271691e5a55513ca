// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"fmt"
	"io"
	"os"

	"github.com/nlpodyssey/stmerge/header"
	"go.uber.org/multierr"
)

// Reader gives random access to the tensors of one safetensors file.
//
// Only the header is kept in memory: tensor data is read on demand, from
// the exact byte range declared by its descriptor. The file stays open
// until Close is called.
type Reader struct {
	f        *os.File
	path     string
	head     header.Header
	dataSize int64
}

// Open opens the safetensors file at path, reads its header, and validates
// it against the file size.
//
// A *FormatError is returned when the size prefix is malformed, the header
// is not valid safetensors JSON, or a tensor's byte range is inconsistent
// or falls outside the file. Filesystem failures are reported as *IOError.
func Open(path string) (_ *Reader, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, f.Close())
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	fileSize := fi.Size()

	head, err := header.Read(io.NewSectionReader(f, 0, fileSize))
	if err != nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("failed to read header: %w", err)}
	}
	if int64(head.ByteBufferOffset) > fileSize {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("header size %d exceeds file size %d",
			head.ByteBufferOffset-header.SizePrefixLen, fileSize)}
	}
	if err = head.Validate(); err != nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("header is invalid: %w", err)}
	}
	dataSize := fileSize - int64(head.ByteBufferOffset)
	if err = head.ValidateBounds(dataSize); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	return &Reader{
		f:        f,
		path:     path,
		head:     head,
		dataSize: dataSize,
	}, nil
}

// Path returns the path the Reader was opened from.
func (r *Reader) Path() string {
	return r.path
}

// Len returns the number of tensors in the file.
func (r *Reader) Len() int {
	return len(r.head.Tensors)
}

// DataSize returns the byte length of the data segment.
func (r *Reader) DataSize() int64 {
	return r.dataSize
}

// Metadata returns the free-form key/value string pairs of the header.
// It can be nil.
func (r *Reader) Metadata() header.Metadata {
	return r.head.Metadata
}

// TensorNames returns the names of all tensors, in ascending order.
func (r *Reader) TensorNames() []string {
	return r.head.Tensors.Names()
}

// Descriptor returns the header entry of the named tensor.
func (r *Reader) Descriptor(name string) (header.Tensor, bool) {
	t, ok := r.head.Tensors[name]
	return t, ok
}

// Tensor reads the data of the named tensor.
//
// It returns a *NotFoundError if the tensor does not exist.
func (r *Reader) Tensor(name string) (RawTensor, error) {
	if r.f == nil {
		return RawTensor{}, ErrClosed
	}
	t, ok := r.head.Tensors[name]
	if !ok {
		return RawTensor{}, &NotFoundError{Path: r.path, Name: name}
	}
	return r.readTensor(t)
}

// Tensors reads the data of all tensors, in data segment order, so that
// the file is scanned sequentially.
func (r *Reader) Tensors() ([]RawTensor, error) {
	if r.f == nil {
		return nil, ErrClosed
	}
	ts := r.head.Tensors.TensorSlice()
	ts.SortByDataOffsets()

	out := make([]RawTensor, len(ts))
	for i, t := range ts {
		var err error
		if out[i], err = r.readTensor(t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Reader) readTensor(t header.Tensor) (RawTensor, error) {
	rt := RawTensor{
		name:  t.Name,
		dType: t.DType,
		shape: t.Shape.Clone(),
	}
	size := t.DataOffsets.Len()
	if size == 0 {
		return rt, nil
	}

	offset := int64(r.head.ByteBufferOffset) + int64(t.DataOffsets.Begin)
	rt.data = make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(r.f, offset, int64(size)), rt.data); err != nil {
		return RawTensor{}, &IOError{Op: fmt.Sprintf("read tensor %q from", t.Name), Path: r.path, Err: err}
	}
	return rt, nil
}

// Close releases the underlying file and drops the parsed header. After
// Close, Len and DataSize return 0, TensorNames and Metadata return nil,
// Descriptor finds nothing, and reading tensor data fails with ErrClosed.
// Path stays available for error reporting.
func (r *Reader) Close() error {
	if r.f == nil {
		return ErrClosed
	}
	err := r.f.Close()
	r.f = nil
	r.head = header.Header{}
	r.dataSize = 0
	if err != nil {
		return &IOError{Op: "close", Path: r.path, Err: err}
	}
	return nil
}
