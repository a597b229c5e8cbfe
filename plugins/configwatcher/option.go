package configwatcher

import "github.com/bft-labs/recship/pkg/recship"

// WithConfigWatcher returns a recship Option that reloads the config file
// named by Config.ConfigPath whenever it changes.
//
// Usage:
//
//	rec, err := recship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) recship.Option {
	return recship.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher enables config watching with default settings.
func WithDefaultConfigWatcher() recship.Option {
	return WithConfigWatcher(DefaultConfig())
}
