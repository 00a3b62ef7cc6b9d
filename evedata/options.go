package evedata

import "go.uber.org/zap"

// Option configures Open and LoadDescription.
type Option func(*config)

type config struct {
	log  *zap.Logger
	join string
}

func defaultConfig() config {
	return config{log: zap.NewNop(), join: "lastfill"}
}

// WithLogger sets the logger used for mapping diagnostics (unmapped items,
// unresolved references, structural problems). The default discards them.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithJoinStrategy selects the default strategy used by File.Join.
// Registered strategies: "lastfill" (default) and "inner".
func WithJoinStrategy(name string) Option {
	return func(c *config) { c.join = name }
}
