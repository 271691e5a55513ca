// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stmerge merges a model split into numbered safetensors shards
// ("model-00001-of-00004.safetensors", ...) back into a single file.
//
// The package is built from four pieces:
//
//   - Open and Reader parse one container and read tensor data lazily,
//     from the byte ranges declared in its header.
//   - Serialize and WriteFile produce a container from a set of tensors,
//     recomputing every offset, and never leave a partial file behind.
//   - Discover finds the shards of a directory and rejects incomplete,
//     inconsistent or not-downloaded (git-lfs pointer) sets.
//   - Merge and Run combine a validated set into one file, keeping the
//     first shard's metadata; on duplicate tensor names the shard with the
//     highest index wins.
package stmerge
