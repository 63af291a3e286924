// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logger construction shared by the facade and tools. Every logger counts
// its messages per level so a noisy datapath shows up in metrics.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Formats.
const (
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
)

// Options selects level, format and destination.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // logfmt or json
	Writer io.Writer

	Registerer prometheus.Registerer
}

// New builds a leveled logger. An empty writer means stderr.
func New(opts Options) (log.Logger, error) {
	filter, err := allow(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	var logger log.Logger
	switch strings.ToLower(opts.Format) {
	case "", FormatLogfmt:
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case FormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown log format").WithContext("format", opts.Format)
	}
	logger = level.NewFilter(logger, filter)

	messages := promauto.With(opts.Registerer).NewCounterVec(prometheus.CounterOpts{
		Namespace: "hioload",
		Name:      "log_messages_total",
		Help:      "Total number of log messages.",
	}, []string{"level"})
	for _, v := range []level.Value{level.DebugValue(), level.InfoValue(), level.WarnValue(), level.ErrorValue()} {
		messages.WithLabelValues(v.String())
	}
	logger = &countingLogger{next: logger, messages: messages}
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}

func allow(name string) (level.Option, error) {
	switch strings.ToLower(name) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, api.NewError(api.ErrCodeInvalidArgument, "unknown log level").WithContext("level", name)
}

type countingLogger struct {
	next     log.Logger
	messages *prometheus.CounterVec
}

// Log forwards kv and counts it under the first level value found.
func (c *countingLogger) Log(kv ...interface{}) error {
	err := c.next.Log(kv...)
	l := "unknown"
	for i := 1; i < len(kv); i += 2 {
		if v, ok := kv[i].(level.Value); ok {
			l = v.String()
			break
		}
	}
	c.messages.WithLabelValues(l).Inc()
	return err
}
