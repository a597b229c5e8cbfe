package recship

import (
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/clock"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/state"
)

// Logger is the structured logger recship writes to.
type Logger = log.Logger

// LogField is a structured log field.
type LogField = log.Field

// Browser hosts pages. The default launches Chrome.
type Browser = ports.Browser

// Option configures optional behavior of Recship.
type Option func(*options)

type options struct {
	logger       Logger
	eventHandler EventHandler
	plugins      []Plugin
	host         Browser
	repository   state.Repository
	dialer       channel.Dialer
	clock        clock.Clock
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		clock:  clock.Real(),
	}
}

// WithLogger sets a custom logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for recship events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Recship starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithHost replaces the Chrome host.
func WithHost(host Browser) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithRepository replaces the store selected by Config.Store. Recship
// closes it on Stop.
func WithRepository(repo state.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithDialer replaces the WebSocket dialer used to reach the consumer.
func WithDialer(d channel.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithClock replaces the clock behind timers, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}
