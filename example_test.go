// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/nlpodyssey/stmerge"
	"github.com/nlpodyssey/stmerge/dtype"
)

func ExampleSerialize() {
	floatData := []float32{0, 1, 2, 3, 4, 5}
	data := make([]byte, 0, len(floatData)*4)
	for _, v := range floatData {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}

	tensor, err := stmerge.NewRawTensor("foo", dtype.F32, []int{1, 2, 3}, data)
	if err != nil {
		log.Fatal(err)
	}

	var buf bytes.Buffer
	if err = stmerge.Serialize(&buf, []stmerge.RawTensor{tensor}, nil); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("data len = %d\n", buf.Len())
	fmt.Printf("data excerpt: ...%s...\n", buf.Bytes()[8:30])

	// Output:
	// data len = 96
	// data excerpt: ...{"foo":{"dtype":"F32",...
}

func ExampleRun() {
	base, err := os.MkdirTemp("", "stmerge-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(base)

	dir := filepath.Join(base, "tiny-model")
	if err = os.Mkdir(dir, 0o755); err != nil {
		log.Fatal(err)
	}
	for i, name := range []string{"embed", "head"} {
		t, err := stmerge.NewRawTensor(name, dtype.F16, []int{2, 2}, make([]byte, 8))
		if err != nil {
			log.Fatal(err)
		}
		path := filepath.Join(dir, stmerge.ShardFileName(i+1, 2))
		if err = stmerge.WriteFile(path, []stmerge.RawTensor{t}, nil); err != nil {
			log.Fatal(err)
		}
	}

	res, err := stmerge.Run(dir)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("merged %d tensors from %d shards\n", res.Tensors, res.Shards)
	fmt.Println(filepath.Base(res.OutputPath))

	r, err := stmerge.Open(res.OutputPath)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()
	head, err := r.Tensor("head")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("head: %s %v\n", head.DType(), head.Shape())

	// Output:
	// merged 2 tensors from 2 shards
	// tiny-model.safetensors
	// head: F16 [2 2]
}
