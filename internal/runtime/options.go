package runtime

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/plugins"
)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithExecutor replaces the HTTP executor built from service configuration.
func WithExecutor(executor ports.Executor) Option {
	return func(c *Client) error {
		c.executor = executor
		return nil
	}
}

// WithRegistry registers metrics with registry instead of a new one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Client) error {
		c.registry = registry
		return nil
	}
}

// WithStore replaces the exchange store opened from recorder configuration.
// The Client does not close a store set this way.
func WithStore(store ports.ExchangeStore) Option {
	return func(c *Client) error {
		c.store = store
		c.ownsStore = false
		return nil
	}
}

// WithTokenFunc supplies access tokens instead of the configured static
// token.
func WithTokenFunc(token plugins.TokenFunc) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithPlugins appends plugins after the configured ones.
func WithPlugins(extra ...ports.Plugin) Option {
	return func(c *Client) error {
		c.extraPlugins = append(c.extraPlugins, extra...)
		return nil
	}
}

// WithActivity reports network activity changes to notify.
func WithActivity(notify func(change plugins.ActivityChange, name string)) Option {
	return func(c *Client) error {
		c.activity = notify
		return nil
	}
}
