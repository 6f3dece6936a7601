// Package hostmetrics exposes local host telemetry as a server plugin.
package hostmetrics

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/hostsnap/internal/plugin"
	"github.com/HerbHall/hostsnap/internal/telemetry"
)

// Name is the plugin identifier and URL segment.
const Name = "hostmetrics"

// Compile-time guards.
var (
	_ plugin.Plugin    = (*Plugin)(nil)
	_ plugin.Describer = (*Plugin)(nil)
)

// Plugin serves CPU, memory, OS identity and process samples over HTTP.
type Plugin struct {
	logger   *zap.Logger
	settings Settings
	backend  telemetry.Backend
	metrics  *telemetry.Metrics
	waiter   telemetry.Waiter
	service  *telemetry.Service
	limiter  *rate.Limiter
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithBackend replaces the host backend.
func WithBackend(b telemetry.Backend) Option {
	return func(p *Plugin) { p.backend = b }
}

// WithMetrics attaches sampler instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Plugin) { p.metrics = m }
}

// WithWaiter replaces the settle wait.
func WithWaiter(w telemetry.Waiter) Option {
	return func(p *Plugin) { p.waiter = w }
}

// New creates a new hostmetrics plugin reading the local host.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		logger:   zap.NewNop(),
		settings: DefaultSettings(),
		backend:  telemetry.HostBackend(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) Name() string        { return Name }
func (p *Plugin) Version() string     { return "0.1.0" }
func (p *Plugin) Description() string { return "Host CPU, memory, OS and process telemetry" }

func (p *Plugin) Init(config *viper.Viper, logger *zap.Logger) error {
	settings, err := LoadSettings(config)
	if err != nil {
		return err
	}
	p.settings = settings
	p.logger = logger
	p.service = NewService(settings, p.backend, logger, p.metrics, p.waiter)
	p.limiter = rate.NewLimiter(rate.Limit(settings.RateLimit), settings.RateBurst)

	caps := p.backend.Capabilities
	p.logger.Info("hostmetrics module initialized",
		zap.Bool("per_core_cpu", caps.SupportsPerCoreCPUSampling()),
		zap.Bool("processes", caps.SupportsProcessSampling()),
		zap.Int("core_concurrency", settings.CoreConcurrency),
		zap.Duration("process_settle_interval", settings.ProcessSettleInterval),
	)
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.logger.Info("hostmetrics module started")
	return nil
}

func (p *Plugin) Stop() error {
	p.logger.Info("hostmetrics module stopped")
	return nil
}

// Service returns the telemetry service built by Init, or nil before Init.
func (p *Plugin) Service() *telemetry.Service {
	return p.service
}

// NewService builds a telemetry service from settings. metrics and waiter
// may be nil.
func NewService(s Settings, backend telemetry.Backend, logger *zap.Logger, metrics *telemetry.Metrics, waiter telemetry.Waiter) *telemetry.Service {
	opts := []telemetry.Option{
		telemetry.WithCoreConcurrency(s.CoreConcurrency),
		telemetry.WithProcessSettleInterval(s.ProcessSettleInterval),
		telemetry.WithMetrics(metrics),
	}
	if waiter != nil {
		opts = append(opts, telemetry.WithWaiter(waiter))
	}
	return telemetry.NewService(telemetry.NewSampler(backend, logger, opts...))
}
