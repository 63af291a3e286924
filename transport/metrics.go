// File: transport/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	messages *prometheus.CounterVec
	segments *prometheus.CounterVec
	bytes    prometheus.Counter
	spins    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		messages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "poster",
			Name:      "messages_total",
			Help:      "Messages handed to the poster by outcome.",
		}, []string{"result"}),
		segments: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "poster",
			Name:      "segments_total",
			Help:      "Segments posted by kind.",
		}, []string{"kind"}),
		bytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "poster",
			Name:      "bytes_total",
			Help:      "Bytes posted, framing included.",
		}),
		spins: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "poster",
			Name:      "ring_full_polls_total",
			Help:      "Completion polls issued while waiting for ring entries.",
		}),
	}
}
