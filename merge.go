// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"context"
	"math"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nlpodyssey/stmerge/header"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// SizeTolerance is the relative difference between the merged file size
// and the sum of the shard sizes above which a warning is reported.
const SizeTolerance = 0.05

// Result describes a completed merge.
type Result struct {
	OutputPath string
	Shards     int
	Tensors    int
	// Collisions counts tensor names found in more than one shard.
	Collisions int
	// ExpectedSize is the sum of the shard file sizes.
	ExpectedSize int64
	// ActualSize is the size of the merged file.
	ActualSize int64
	// SizeDiff is |ActualSize-ExpectedSize| / ExpectedSize.
	SizeDiff float64
	// SizeMismatch is true when SizeDiff exceeds SizeTolerance. It is a
	// warning only: the merge still succeeded.
	SizeMismatch bool
	Duration     time.Duration
}

// loadedShard holds all tensors copied out of one shard.
type loadedShard struct {
	shard    Shard
	metadata header.Metadata
	tensors  []RawTensor
}

// Merge reads every shard of set and writes a single safetensors file at
// outPath holding the union of their tensors.
//
// The metadata of the first shard is kept, the others are ignored. When a
// tensor name appears in more than one shard, the shard with the highest
// index wins. Shards may be read concurrently (see WithWorkers), but they
// are always combined in index order, so the output does not depend on
// scheduling.
//
// Failures are returned as *MergeError. A size difference above
// SizeTolerance is logged and flagged in the Result, not returned.
func Merge(set ShardSet, outPath string, opts ...Option) (Result, error) {
	o := newOptions(opts)
	start := time.Now()
	expected := set.TotalSize()

	loaded, err := loadShards(set.Shards, o)
	if err != nil {
		o.metrics.ObserveFailure("read")
		return Result{}, err
	}

	table := foldShards(loaded, o)

	o.log.Info().Int("tensors", len(table.tensors)).Str("output", outPath).Msg("writing merged file")
	if err = WriteFile(outPath, table.sorted(), table.metadata); err != nil {
		o.metrics.ObserveFailure("write")
		return Result{}, &MergeError{Phase: "write", Path: outPath, Err: err}
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		o.metrics.ObserveFailure("write")
		return Result{}, &MergeError{Phase: "write", Path: outPath, Err: &IOError{Op: "stat", Path: outPath, Err: err}}
	}

	res := Result{
		OutputPath:   outPath,
		Shards:       len(set.Shards),
		Tensors:      len(table.tensors),
		Collisions:   table.collisions,
		ExpectedSize: expected,
		ActualSize:   fi.Size(),
		Duration:     time.Since(start),
	}
	res.SizeDiff = sizeDiff(res.ExpectedSize, res.ActualSize)
	res.SizeMismatch = res.SizeDiff > SizeTolerance
	o.metrics.ObserveOutput(res.Tensors, res.ActualSize, res.SizeDiff, res.Duration)

	ev := o.log.Info()
	msg := "size verification passed"
	if res.SizeMismatch {
		ev = o.log.Warn()
		msg = "merged size differs from the sum of shards by more than 5%"
	}
	ev.Str("expected", humanize.Bytes(uint64(res.ExpectedSize))).
		Str("actual", humanize.Bytes(uint64(res.ActualSize))).
		Str("diff", percent(res.SizeDiff)).
		Msg(msg)

	return res, nil
}

// loadShards reads all shards with at most o.workers open at once. The
// result is indexed like shards, whatever the completion order.
func loadShards(shards []Shard, o options) ([]loadedShard, error) {
	out := make([]loadedShard, len(shards))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(o.workers)
	for i, s := range shards {
		i, s := i, s
		g.Go(func() error {
			// skip shards not yet started once another one failed
			if ctx.Err() != nil {
				return nil
			}
			ls, err := loadShard(s, o.log)
			if err != nil {
				return &MergeError{Phase: "read", Path: s.Path, Err: err}
			}
			o.metrics.ObserveShard(dataLen(ls.tensors))
			out[i] = ls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// loadShard copies all tensors of s into memory and closes the file
// before returning.
func loadShard(s Shard, log zerolog.Logger) (_ loadedShard, err error) {
	r, err := Open(s.Path)
	if err != nil {
		return loadedShard{}, err
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()

	tensors, err := r.Tensors()
	if err != nil {
		return loadedShard{}, err
	}
	if extra := r.DataSize() - int64(r.head.DataSize()); extra > 0 {
		log.Debug().
			Str("shard", s.Name()).
			Int64("bytes", extra).
			Msg("ignoring trailing bytes after the last tensor")
	}
	log.Debug().
		Str("shard", s.Name()).
		Int("tensors", len(tensors)).
		Str("size", humanize.Bytes(uint64(s.Size))).
		Msg("loaded shard")
	return loadedShard{shard: s, metadata: r.Metadata(), tensors: tensors}, nil
}

// tensorTable is the merged name to tensor mapping built by foldShards.
type tensorTable struct {
	metadata   header.Metadata
	seeded     bool
	tensors    map[string]RawTensor
	origin     map[string]int
	collisions int
}

// foldShards combines loaded shards, in the given order, into one table.
func foldShards(loaded []loadedShard, o options) *tensorTable {
	t := &tensorTable{
		tensors: make(map[string]RawTensor),
		origin:  make(map[string]int),
	}
	for _, ls := range loaded {
		t.add(ls, o)
	}
	return t
}

func (t *tensorTable) add(ls loadedShard, o options) {
	if !t.seeded {
		t.metadata = ls.metadata.Clone()
		t.seeded = true
	}
	for _, rt := range ls.tensors {
		name := rt.Name()
		if prev, ok := t.origin[name]; ok {
			t.collisions++
			o.metrics.ObserveCollision()
			o.log.Warn().
				Str("tensor", name).
				Int("previous_shard", prev).
				Int("shard", ls.shard.Index).
				Msg("tensor defined by more than one shard, keeping the later one")
		}
		t.tensors[name] = rt
		t.origin[name] = ls.shard.Index
	}
}

// sorted returns the tensors ordered by name.
func (t *tensorTable) sorted() []RawTensor {
	out := make([]RawTensor, 0, len(t.tensors))
	for _, rt := range t.tensors {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func dataLen(tensors []RawTensor) int64 {
	var n int64
	for _, t := range tensors {
		n += int64(t.DataLen())
	}
	return n
}

func sizeDiff(expected, actual int64) float64 {
	if expected == 0 {
		return 0
	}
	return math.Abs(float64(actual-expected)) / float64(expected)
}

func percent(r float64) string {
	return humanize.FtoaWithDigits(r*100, 1) + "%"
}
