// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus registry shared by the components of one session, with a flat
// snapshot for debug output.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry owns the session's collectors.
type MetricsRegistry struct {
	reg *prometheus.Registry
}

// NewMetricsRegistry creates a registry with the Go runtime collector.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return &MetricsRegistry{reg: reg}
}

// Registerer is handed to components at construction.
func (mr *MetricsRegistry) Registerer() prometheus.Registerer { return mr.reg }

// Gatherer exposes the registry to an HTTP handler.
func (mr *MetricsRegistry) Gatherer() prometheus.Gatherer { return mr.reg }

// GetSnapshot returns counters and gauges whose name starts with prefix,
// summed over their label sets.
func (mr *MetricsRegistry) GetSnapshot(prefix string) (map[string]float64, error) {
	families, err := mr.reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[name] += value(mf.GetType(), m)
		}
	}
	return out, nil
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	}
	return 0
}
