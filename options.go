// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stmerge

import (
	"github.com/nlpodyssey/stmerge/internal/metrics"
	"github.com/rs/zerolog"
)

// Option configures Merge and Run.
type Option func(*options)

type options struct {
	workers int
	log     zerolog.Logger
	metrics *metrics.Merge
}

func newOptions(opts []Option) options {
	o := options{
		workers: 1,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithWorkers sets how many shards may be read concurrently. Values
// below 1 are treated as 1, which reads shards strictly one at a time and
// keeps a single file open.
//
// The merged result does not depend on this value.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithLogger sets the logger receiving progress and warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics sets the collectors updated during the job.
func WithMetrics(m *metrics.Merge) Option {
	return func(o *options) {
		o.metrics = m
	}
}
