// File: facade/hioload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session aggregates the datapath of one worker behind a single type: the
// buffer manager, a loopback queue, the poster and the control plane
// (config store, metrics registry, debug probes).

package facade

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/momentics/hioload-sga/affinity"
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/control"
	"github.com/momentics/hioload-sga/internal/logging"
	itransport "github.com/momentics/hioload-sga/internal/transport"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/sga"
	"github.com/momentics/hioload-sga/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Option customizes New.
type Option func(*options)

type options struct {
	logger    log.Logger
	logWriter io.Writer
	metrics   *control.MetricsRegistry
}

// WithLogger uses l instead of building a logger from the config.
func WithLogger(l log.Logger) Option { return func(o *options) { o.logger = l } }

// WithLogWriter sends the config-built logger to w.
func WithLogWriter(w io.Writer) Option { return func(o *options) { o.logWriter = w } }

// WithMetrics registers the session's collectors in mr.
func WithMetrics(mr *control.MetricsRegistry) Option { return func(o *options) { o.metrics = mr } }

// Session is a single-worker datapath. It is not safe for concurrent use
// except for Probes, Metrics and Config reads.
type Session struct {
	cfg     control.Config
	logger  log.Logger
	metrics *control.MetricsRegistry
	store   *control.ConfigStore
	probes  *control.DebugProbes

	mgr    *pool.Manager
	queue  *itransport.Loopback
	poster *transport.Poster

	closed bool
}

// New validates cfg and brings up the datapath.
func New(cfg control.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.metrics == nil {
		o.metrics = control.NewMetricsRegistry()
	}
	reg := o.metrics.Registerer()
	if o.logger == nil {
		l, err := logging.New(logging.Options{
			Level:      cfg.LogLevel,
			Format:     cfg.LogFormat,
			Writer:     o.logWriter,
			Registerer: reg,
		})
		if err != nil {
			return nil, err
		}
		o.logger = l
	}

	mgr, err := pool.NewManager(poolOptions(cfg, o.logger, reg))
	if err != nil {
		return nil, errors.Wrap(err, "buffer manager")
	}
	queue, err := itransport.NewLoopback(mgr, itransport.Options{
		Entries:    cfg.QueueEntries,
		RxRegion:   pool.RxRegion,
		Logger:     o.logger,
		Registerer: reg,
	})
	if err != nil {
		_ = mgr.Close()
		return nil, errors.Wrap(err, "loopback queue")
	}
	poster, err := transport.NewPoster(mgr, []transport.Queue{queue}, transport.Options{
		Framing:          cfg.Framing,
		CompletionBudget: cfg.CompletionBudget,
		Logger:           o.logger,
		Registerer:       reg,
	})
	if err != nil {
		_ = queue.Close()
		_ = mgr.Close()
		return nil, errors.Wrap(err, "poster")
	}

	s := &Session{
		cfg:     cfg,
		logger:  log.With(o.logger, "component", "session"),
		metrics: o.metrics,
		store:   control.NewConfigStore(),
		probes:  control.NewDebugProbes(),
		mgr:     mgr,
		queue:   queue,
		poster:  poster,
	}
	s.store.SetConfig(cfg.Map())
	s.store.OnReload(s.reload)
	s.registerProbes()
	level.Info(s.logger).Log("msg", "session ready",
		"rx", humanize.IBytes(uint64(cfg.RxItems)*cfg.RxItemSize.Bytes()),
		"tx", humanize.IBytes(uint64(cfg.TxItems)*cfg.TxItemSize.Bytes()),
		"queue_entries", cfg.QueueEntries, "framing", cfg.Framing)
	return s, nil
}

func poolOptions(cfg control.Config, logger log.Logger, reg prometheus.Registerer) pool.Options {
	return pool.Options{
		RxItemLen:     int(cfg.RxItemSize.Bytes()),
		RxItems:       cfg.RxItems,
		TxItemLen:     int(cfg.TxItemSize.Bytes()),
		TxItems:       cfg.TxItems,
		PageSize:      int(cfg.PageSize.Bytes()),
		LockMemory:    cfg.LockMemory,
		CopyThreshold: int(cfg.CopyThreshold.Bytes()),
		Logger:        logger,
		Registerer:    reg,
	}
}

// reload applies the runtime-tunable keys. Everything else is fixed for the
// session and only reported.
func (s *Session) reload(changed []string) {
	for _, k := range changed {
		v, _ := s.store.Get(k)
		switch k {
		case "completion-budget":
			n, ok := v.(int)
			if !ok {
				level.Warn(s.logger).Log("msg", "ignoring non-integer completion budget", "value", v)
				continue
			}
			s.poster.SetCompletionBudget(n)
			level.Info(s.logger).Log("msg", "completion budget changed", "value", s.poster.CompletionBudget())
		default:
			level.Warn(s.logger).Log("msg", "key is fixed for the session lifetime", "key", k)
		}
	}
}

func (s *Session) registerProbes() {
	control.RegisterPlatformProbes(s.probes)
	s.probes.RegisterProbe("pool.outstanding", func() any { return s.mgr.Outstanding() })
	for name, id := range map[string]int{"pool.rx": pool.RxRegion, "pool.tx": pool.TxRegion} {
		s.probes.RegisterProbe(name, func() any {
			r, ok := s.mgr.Region(id)
			if !ok {
				return nil
			}
			return map[string]any{
				"free":      r.FreeItems(),
				"items":     r.NumItems(),
				"item_size": humanize.IBytes(uint64(r.ItemLen())),
				"page_size": humanize.IBytes(uint64(r.PageSize())),
			}
		})
	}
	s.probes.RegisterProbe("queue", func() any { return s.queue.Stats() })
	s.probes.RegisterProbe("config", func() any { return s.store.GetSnapshot() })
}

// Config returns the config the session was built with.
func (s *Session) Config() control.Config { return s.cfg }

// Manager exposes the buffer manager for allocating application payloads.
func (s *Session) Manager() *pool.Manager { return s.mgr }

// Poster exposes the poster for callers that build their own messages.
func (s *Session) Poster() *transport.Poster { return s.poster }

// Queue exposes the loopback queue.
func (s *Session) Queue() *itransport.Loopback { return s.queue }

// Store returns the runtime key/value store.
func (s *Session) Store() *control.ConfigStore { return s.store }

// Probes returns the debug probe registry.
func (s *Session) Probes() *control.DebugProbes { return s.probes }

// Metrics returns the registry holding the session's collectors.
func (s *Session) Metrics() *control.MetricsRegistry { return s.metrics }

// Reconfigure merges values into the runtime store.
func (s *Session) Reconfigure(values map[string]any) { s.store.SetConfig(values) }

// Pin binds the calling goroutine to cpu. Workers call it before entering
// their posting loop.
func (s *Session) Pin(cpu int) error {
	if err := affinity.Pin(cpu); err != nil {
		level.Warn(s.logger).Log("msg", "pin failed", "cpu", cpu, "err", err)
		return err
	}
	level.Debug(s.logger).Log("msg", "worker pinned", "cpu", cpu)
	return nil
}

// NewCopyContext starts a copy context for the next message.
func (s *Session) NewCopyContext() *sga.CopyContext { return sga.NewCopyContext(s.mgr) }

// NewByteString builds a leaf for b under the session's copy threshold.
func (s *Session) NewByteString(cc *sga.CopyContext, b []byte) (*sga.ByteString, error) {
	return sga.NewByteString(s.mgr, cc, b)
}

// Close releases the queue and the buffer manager. Region memory is unmapped
// once the application has dropped its last handle.
func (s *Session) Close() error {
	if s.closed {
		return api.ErrManagerClosed
	}
	s.closed = true
	if err := s.queue.Close(); err != nil {
		return errors.Wrap(err, "close queue")
	}
	level.Info(s.logger).Log("msg", "session closed", "outstanding", s.mgr.Outstanding())
	return s.mgr.Close()
}
