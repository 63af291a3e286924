// File: pool/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the manager's Prometheus collectors.
type Metrics struct {
	allocations *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	resolves    *prometheus.CounterVec
	freeItems   *prometheus.GaugeVec
}

// NewMetrics builds pool collectors. A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		allocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "pool",
			Name:      "allocations_total",
			Help:      "Items handed out per region.",
		}, []string{"region"}),
		exhausted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "pool",
			Name:      "exhausted_total",
			Help:      "Allocation attempts that found the region empty.",
		}, []string{"region"}),
		resolves: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hioload",
			Subsystem: "pool",
			Name:      "resolves_total",
			Help:      "Pointer resolutions by outcome.",
		}, []string{"result"}),
		freeItems: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hioload",
			Subsystem: "pool",
			Name:      "free_items",
			Help:      "Items currently on each region's free list.",
		}, []string{"region"}),
	}
}
