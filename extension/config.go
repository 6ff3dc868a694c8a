package extension

import (
	"github.com/xraph/conduit"
)

// Config holds configuration for the Conduit Forge extension.
// Fields can be set programmatically via ExtOption functions or loaded from
// YAML configuration files (under "extensions.conduit" or "conduit" keys).
type Config struct {
	// Config embeds the core conduit configuration.
	conduit.Config `json:",inline" yaml:",inline" mapstructure:",squash"`

	// BasePath is the URL prefix for all conduit routes (default: "/webhooks").
	BasePath string `json:"base_path" yaml:"base_path" mapstructure:"base_path"`

	// DisableRoutes disables automatic route registration with the Forge router.
	DisableRoutes bool `json:"disable_routes" yaml:"disable_routes" mapstructure:"disable_routes"`

	// DisableMigrations disables automatic database migration on Register.
	DisableMigrations bool `json:"disable_migrations" yaml:"disable_migrations" mapstructure:"disable_migrations"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Config:   conduit.DefaultConfig(),
		BasePath: "/webhooks",
	}
}

// ToConduitOptions converts the embedded Config into conduit.Option values.
func (c Config) ToConduitOptions() []conduit.Option {
	var opts []conduit.Option

	if c.Concurrency > 0 {
		opts = append(opts, conduit.WithConcurrency(c.Concurrency))
	}
	if c.PollInterval > 0 {
		opts = append(opts, conduit.WithPollInterval(c.PollInterval))
	}
	if c.BatchSize > 0 {
		opts = append(opts, conduit.WithBatchSize(c.BatchSize))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, conduit.WithRequestTimeout(c.RequestTimeout))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, conduit.WithMaxAttempts(c.MaxAttempts))
	}
	if len(c.RetrySchedule) > 0 {
		opts = append(opts, conduit.WithRetrySchedule(c.RetrySchedule))
	}
	if c.ShutdownTimeout > 0 {
		opts = append(opts, conduit.WithShutdownTimeout(c.ShutdownTimeout))
	}

	return opts
}
