// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"os"
	"strings"
	"unicode/utf8"
)

const (
	// placeholderMaxSize is the largest size of a git-lfs pointer file.
	placeholderMaxSize = 200
	placeholderMarker  = "git-lfs.github.com"
)

// IsPlaceholder reports whether the file at path is a git-lfs pointer left
// in place of content that was never downloaded: at most 200 bytes, valid
// UTF-8 text, with a first line mentioning git-lfs.github.com.
//
// Any failure while reading or decoding the file yields false: a file that
// cannot be read as text is binary, hence real data.
func IsPlaceholder(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() > placeholderMaxSize {
		return false
	}
	b, err := os.ReadFile(path)
	if err != nil || !utf8.Valid(b) {
		return false
	}
	s := string(b)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.Contains(s, placeholderMarker)
}
