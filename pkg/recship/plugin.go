package recship

import "context"

// Plugin extends a Recship instance. Plugins are initialized in
// registration order during Start and shut down in reverse order during
// Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to work with.
type PluginConfig struct {
	StateDir   string
	ConfigPath string
	Logger     Logger
}

// BasePlugin implements the lifecycle methods of Plugin as no-ops.
type BasePlugin struct{}

func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
