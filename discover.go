// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Extension is the file extension of safetensors containers.
const Extension = ".safetensors"

var shardNamePattern = regexp.MustCompile(`^model-(\d{5})-of-(\d{5})\.safetensors$`)

// Shard is one numbered file of a split model.
type Shard struct {
	// Index is the 1-based position of the shard.
	Index int
	// Total is the shard count declared by the file name.
	Total int
	Path  string
	// Size is the on-disk size in bytes.
	Size int64
}

// Name returns the file name of the shard.
func (s Shard) Name() string {
	return filepath.Base(s.Path)
}

// ShardSet is a complete, validated list of shards, sorted by Index.
type ShardSet struct {
	Dir    string
	Total  int
	Shards []Shard
}

// TotalSize returns the sum of the on-disk sizes of all shards.
func (ss ShardSet) TotalSize() int64 {
	var n int64
	for _, s := range ss.Shards {
		n += s.Size
	}
	return n
}

// ShardFileName returns the conventional file name of a shard, for
// example "model-00001-of-00004.safetensors".
func ShardFileName(index, total int) string {
	return fmt.Sprintf("model-%05d-of-%05d%s", index, total, Extension)
}

// ParseShardFileName extracts index and total from a shard file name.
// The returned flag is false if the name does not follow the convention.
func ParseShardFileName(name string) (index, total int, ok bool) {
	m := shardNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	// both groups are exactly five digits
	index, _ = strconv.Atoi(m[1])
	total, _ = strconv.Atoi(m[2])
	return index, total, true
}

// Discover scans dir (non-recursively) for shard files and validates that
// they form a complete set.
//
// Checks run in this order, and the first failure is returned:
//
//   - dir must be an existing directory (*PathError)
//   - all shard names must declare the same total (*InconsistentShardCountError)
//   - at least one shard must exist (ErrNoShardsFound)
//   - the number of shards must equal the total (*MissingShardsError)
//   - sorted indices must be exactly 1..total (*NonSequentialShardError)
//   - no shard may be a git-lfs pointer file (*PlaceholderFileError)
//
// Only names and a few bytes of tiny files are read, so Discover is cheap
// compared to a merge.
func Discover(dir string) (ShardSet, error) {
	if err := checkDir(dir); err != nil {
		return ShardSet{}, err
	}

	shards, total, err := scanShards(dir)
	if err != nil {
		return ShardSet{}, err
	}
	if len(shards) == 0 {
		return ShardSet{}, fmt.Errorf("%w in %s", ErrNoShardsFound, dir)
	}

	sort.SliceStable(shards, func(i, j int) bool { return shards[i].Index < shards[j].Index })

	if len(shards) != total {
		return ShardSet{}, &MissingShardsError{Found: len(shards), Expected: total}
	}
	for i, s := range shards {
		if s.Index != i+1 {
			return ShardSet{}, &NonSequentialShardError{ExpectedIndex: i + 1, FoundIndex: s.Index}
		}
	}
	for _, s := range shards {
		if IsPlaceholder(s.Path) {
			return ShardSet{}, &PlaceholderFileError{File: s.Name()}
		}
	}

	return ShardSet{Dir: dir, Total: total, Shards: shards}, nil
}

func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return &PathError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return &PathError{Path: dir, Err: ErrNotDirectory}
	}
	return nil
}

// scanShards lists the shard files of dir in file name order.
func scanShards(dir string) ([]Shard, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, &IOError{Op: "read directory", Path: dir, Err: err}
	}

	var shards []Shard
	total := 0
	for _, e := range entries {
		index, t, ok := ParseShardFileName(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Stat follows symlinks, as found in hub cache snapshots.
		fi, err := os.Stat(path)
		if err != nil {
			return nil, 0, &IOError{Op: "stat", Path: path, Err: err}
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		if len(shards) == 0 {
			total = t
		} else if t != total {
			return nil, 0, &InconsistentShardCountError{Expected: total, Found: t, File: e.Name()}
		}
		shards = append(shards, Shard{Index: index, Total: t, Path: path, Size: fi.Size()})
	}
	return shards, total, nil
}
