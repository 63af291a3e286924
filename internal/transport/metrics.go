// File: internal/transport/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	descriptors prometheus.Counter
	completions prometheus.Counter
	doorbells   prometheus.Counter
	frames      *prometheus.CounterVec
	frameBytes  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		descriptors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "queue",
			Name:      "descriptors_posted_total",
			Help:      "TX descriptors written to the ring.",
		}),
		completions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "queue",
			Name:      "completions_total",
			Help:      "TX descriptors completed and returned to the poster.",
		}),
		doorbells: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "queue",
			Name:      "doorbells_total",
			Help:      "Doorbell rings.",
		}),
		frames: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "queue",
			Name:      "frames_total",
			Help:      "Frames gathered from the TX ring by outcome.",
		}, []string{"result"}),
		frameBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "hioload",
			Subsystem: "queue",
			Name:      "frame_bytes",
			Help:      "Size of delivered frames.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		}),
	}
}
