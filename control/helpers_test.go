package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func promCounter(mr *MetricsRegistry, name string) prometheus.Counter {
	return promauto.With(mr.Registerer()).NewCounter(prometheus.CounterOpts{Name: name, Help: "test"})
}
