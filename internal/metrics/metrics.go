// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics holds the Prometheus collectors describing a merge job.
//
// A merge is a batch job, so collectors live in their own registry and are
// exported once at the end of the run with WriteTextfile, in the format
// read by the node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stmerge"

// Merge collects the metrics of one merge job.
//
// All methods are safe to call on a nil *Merge, in which case they do
// nothing.
type Merge struct {
	registry *prometheus.Registry

	ShardsRead       prometheus.Counter
	TensorsMerged    prometheus.Counter
	TensorCollisions prometheus.Counter
	BytesRead        prometheus.Counter
	BytesWritten     prometheus.Counter
	Failures         *prometheus.CounterVec
	Duration         prometheus.Gauge
	SizeDiffRatio    prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

// NewMerge returns a Merge with all collectors registered to a new
// dedicated registry.
func NewMerge() *Merge {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Merge{
		registry: reg,
		ShardsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shards_read_total",
			Help:      "Number of shard files fully read.",
		}),
		TensorsMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tensors_merged_total",
			Help:      "Number of tensors written to the merged file.",
		}),
		TensorCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tensor_collisions_total",
			Help:      "Number of tensor names defined by more than one shard.",
		}),
		BytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_bytes_total",
			Help:      "Tensor data bytes read from shards.",
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Size of the merged file.",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed merge jobs by phase.",
		}, []string{"phase"}),
		Duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Wall time of the last merge.",
		}),
		SizeDiffRatio: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "size_diff_ratio",
			Help:      "Relative size difference between merged file and the sum of shards.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful merge.",
		}),
	}
}

// ObserveShard records a shard whose tensors were read.
func (m *Merge) ObserveShard(dataBytes int64) {
	if m == nil {
		return
	}
	m.ShardsRead.Inc()
	m.BytesRead.Add(float64(dataBytes))
}

// ObserveCollision records a tensor name overwritten by a later shard.
func (m *Merge) ObserveCollision() {
	if m == nil {
		return
	}
	m.TensorCollisions.Inc()
}

// ObserveOutput records a successfully written merged file.
func (m *Merge) ObserveOutput(tensors int, size int64, sizeDiff float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TensorsMerged.Add(float64(tensors))
	m.BytesWritten.Add(float64(size))
	m.SizeDiffRatio.Set(sizeDiff)
	m.Duration.Set(elapsed.Seconds())
	m.LastSuccess.SetToCurrentTime()
}

// ObserveFailure records a failed job in the given phase
// ("discover", "read", "write").
func (m *Merge) ObserveFailure(phase string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(phase).Inc()
}

// WriteTextfile writes all collected metrics to path, atomically.
func (m *Merge) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
