package goAuthState

import (
	"errors"
	"log"
	"os"

	"github.com/MrEthical07/goAuthState/identity"
	internalaudit "github.com/MrEthical07/goAuthState/internal/audit"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Builder assembles a [Gateway]. A Builder is single use: Build succeeds at
// most once.
type Builder struct {
	config    Config
	client    identity.Client
	store     *Store
	logger    *logr.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProviderConfig replaces only the provider section.
func (b *Builder) WithProviderConfig(p ProviderConfig) *Builder {
	b.config.Provider = p
	return b
}

// WithClient sets the identity provider client. Required.
func (b *Builder) WithClient(client identity.Client) *Builder {
	b.client = client
	return b
}

// WithStore shares an existing Store with the gateway. By default Build
// creates a fresh one.
func (b *Builder) WithStore(store *Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the diagnostics logger. The default writes through the
// standard log package with a "goAuthState: " prefix.
func (b *Builder) WithLogger(logger logr.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the audit sink. It only receives events when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the gateway. It does not
// subscribe to auth changes; call [Gateway.SubscribeToAuthChanges] once the
// application is ready.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.client == nil {
		return nil, errors.New("identity client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = NewStore()
	}

	var logger logr.Logger
	if b.logger != nil {
		logger = *b.logger
	} else {
		logger = defaultLogger()
	}

	g := &Gateway{
		config:  cfg,
		client:  b.client,
		store:   store,
		log:     logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true

	return g, nil
}

func defaultLogger() logr.Logger {
	return stdr.New(log.New(os.Stderr, "goAuthState: ", log.LstdFlags))
}
