// Package runtime assembles a configured call pipeline: executor, plugins,
// completion strategy, stubbing, exchange recording and metrics.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tjfontaine/courier/internal/completion"
	"github.com/tjfontaine/courier/internal/config"
	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/decode"
	"github.com/tjfontaine/courier/internal/pipeline"
	"github.com/tjfontaine/courier/internal/plugins"
	"github.com/tjfontaine/courier/internal/storage"
	"github.com/tjfontaine/courier/internal/transport"
)

// ErrUnknownEndpoint is returned for a call to an endpoint that is not
// configured.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Client runs configured endpoints through a pipeline.Provider.
type Client struct {
	cfg *config.Config

	// Dependencies (injected via options)
	executor     ports.Executor
	store        ports.ExchangeStore
	ownsStore    bool
	registry     *prometheus.Registry
	token        plugins.TokenFunc
	extraPlugins []ports.Plugin
	activity     func(plugins.ActivityChange, string)
	logger       *slog.Logger

	provider *pipeline.Provider
	metrics  *plugins.MetricsCollector
	targets  map[string]*EndpointTarget

	closeOnce sync.Once
}

// New builds a Client from cfg.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	c := &Client{
		cfg:       cfg,
		logger:    slog.Default(),
		ownsStore: true,
		targets:   make(map[string]*EndpointTarget, len(cfg.Endpoints)),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if c.executor == nil {
		c.executor = c.newExecutor()
	}

	if c.store == nil && c.ownsStore {
		store, err := storage.Open(context.Background(), storage.Config{
			Driver:    cfg.Recorder.Driver,
			Path:      cfg.Recorder.Path,
			Capacity:  cfg.Recorder.Capacity,
			DSN:       cfg.Recorder.DSN,
			SQLDriver: cfg.Recorder.SQLDriver,
			URL:       cfg.Recorder.URL,
			Password:  cfg.Recorder.Password,
			KeyPrefix: cfg.Recorder.KeyPrefix,
			TTL:       cfg.Recorder.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("open recorder: %w", err)
		}
		c.store = store
	}

	if cfg.Telemetry.Metrics {
		if c.registry == nil {
			c.registry = prometheus.NewRegistry()
			c.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		c.metrics = plugins.NewMetricsCollector(c.registry)
	}

	for _, ep := range cfg.Endpoints {
		c.targets[ep.Name] = NewEndpointTarget(ep, cfg.Service.BaseURL, cfg.Auth.Type)
	}

	c.provider = pipeline.New(c.executor, c.pipelineOptions()...)

	c.logger.Debug("client initialized",
		slog.Int("endpoints", len(c.targets)),
		slog.String("recorder", cfg.Recorder.Driver),
		slog.Bool("metrics", c.metrics != nil),
		slog.Bool("stub", cfg.Stub.Enabled))

	return c, nil
}

func (c *Client) newExecutor() ports.Executor {
	opts := []transport.Option{transport.WithTimeout(c.cfg.Service.Timeout)}
	if c.cfg.Service.MaxBodySize > 0 {
		opts = append(opts, transport.WithMaxBodySize(c.cfg.Service.MaxBodySize))
	}
	if c.cfg.Service.DenyPrivateAddresses {
		opts = append(opts, transport.WithPrivateAddressGuard())
	}
	return transport.NewHTTPExecutor(opts...)
}

func (c *Client) pipelineOptions() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithLogger(c.logger),
		pipeline.WithPlugins(c.plugins()...),
		pipeline.WithCompletion(c.completion()),
		pipeline.WithDecodePool(decode.NewPool(c.cfg.Decode.Workers)),
	}

	if c.cfg.Retry.Enabled && c.cfg.Retry.MaxAttempts > 0 {
		opts = append(opts, pipeline.WithMaxAttempts(c.cfg.Retry.MaxAttempts))
	}

	if c.cfg.Service.PlaceholderMode == "bypass" {
		opts = append(opts, pipeline.WithPlaceholderMode(pipeline.PlaceholderBypass))
	}

	if c.cfg.Stub.Enabled {
		opts = append(opts, pipeline.WithStub(&ports.StubStrategy{
			Delay:   c.cfg.Stub.Delay,
			Provide: configuredSample,
		}))
	}

	return opts
}

// configuredSample stubs endpoints that declare sample data and sends the
// rest to the network.
func configuredSample(endpoint *domain.Endpoint) ports.StubResponse {
	if t, ok := endpoint.Target.(*EndpointTarget); ok && t.sample == nil {
		return ports.ContinueCourse{}
	}
	return pipeline.SampleResponse(endpoint)
}

// plugins returns the chain in order: identification, authentication,
// observation, then recording.
func (c *Client) plugins() []ports.Plugin {
	chain := []ports.Plugin{plugins.RequestID()}

	token := c.token
	if token == nil && c.cfg.Auth.Token != "" {
		token = plugins.StaticToken(c.cfg.Auth.Token)
	}
	if token != nil {
		chain = append(chain, plugins.AccessToken(token))
	}

	if c.cfg.Auth.Username != "" {
		username, password := c.cfg.Auth.Username, c.cfg.Auth.Password
		chain = append(chain, plugins.Credentials(func(target domain.Target) (string, string, bool) {
			authorizable, ok := target.(domain.AccessTokenAuthorizable)
			if !ok || authorizable.AuthorizationType() != domain.AuthBasic {
				return "", "", false
			}
			return username, password, true
		}))
	}

	if c.activity != nil {
		notify := c.activity
		chain = append(chain, plugins.NetworkActivity(func(change plugins.ActivityChange, target domain.Target) {
			notify(change, domain.TargetName(target))
		}))
	}

	if c.cfg.Log.Network {
		var opts []plugins.LoggerOption
		if c.cfg.Log.Bodies > 0 {
			opts = append(opts, plugins.LogBodies(c.cfg.Log.Bodies))
		}
		if c.cfg.Log.Level == "debug" {
			opts = append(opts, plugins.LogHeaders())
		}
		chain = append(chain, plugins.NetworkLogger(c.logger, opts...))
	}

	if c.metrics != nil {
		chain = append(chain, c.metrics.Plugin())
	}

	if c.store != nil {
		chain = append(chain, plugins.Recorder(c.store, c.logger))
	}

	return append(chain, c.extraPlugins...)
}

func (c *Client) completion() ports.CompletionStrategy {
	if !c.cfg.Retry.Enabled {
		return completion.Always
	}

	opts := []completion.RetryOption{
		completion.WithMaxRetries(c.cfg.Retry.MaxRetries),
		completion.WithJitterPercent(c.cfg.Retry.JitterPercent),
		completion.WithRetryLogger(c.logger),
	}
	if c.cfg.Retry.BaseDelay > 0 {
		opts = append(opts, completion.WithBackoff(c.cfg.Retry.BaseDelay, c.cfg.Retry.MaxDelay))
	}
	if len(c.cfg.Retry.Statuses) > 0 {
		opts = append(opts, completion.WithStatuses(c.cfg.Retry.Statuses...))
	}

	var strategy ports.CompletionStrategy = completion.NewStatusRetry(opts...)
	if c.metrics != nil {
		strategy = c.metrics.Completion(strategy)
	}
	return strategy
}

// Target returns the configured target for name.
func (c *Client) Target(name string) (*EndpointTarget, bool) {
	t, ok := c.targets[name]
	return t, ok
}

// Endpoints returns the configured endpoint names, sorted.
func (c *Client) Endpoints() []string {
	names := make([]string, 0, len(c.targets))
	for name := range c.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named endpoint and waits for its response.
func (c *Client) Call(ctx context.Context, name string) (*domain.Response, error) {
	target, ok := c.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return c.provider.Do(ctx, target)
}

// Do runs target, which need not be configured, and waits for its response.
func (c *Client) Do(ctx context.Context, target domain.Target) (*domain.Response, error) {
	return c.provider.Do(ctx, target)
}

// CallJSON runs the named endpoint and decodes a JSON payload. Payloads
// carrying an "error" field are rejected.
func (c *Client) CallJSON(ctx context.Context, name string) (any, *domain.Response, error) {
	target, ok := c.targets[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return DoJSON(ctx, c, target)
}

// DoJSON runs target and decodes its JSON payload.
func DoJSON(ctx context.Context, c *Client, target domain.Target) (any, *domain.Response, error) {
	parser := decode.JSON[any]().WithProblem(decode.FieldProblem("error"))
	return pipeline.DoTyped[any](ctx, c.provider, target, parser)
}

// Submit starts the named endpoint in the background. completion is called
// exactly once unless the returned Call is cancelled first.
func (c *Client) Submit(ctx context.Context, name string, completion func(*domain.Response, error)) (*pipeline.Call, error) {
	target, ok := c.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return c.provider.Submit(ctx, target, completion), nil
}

// Provider returns the underlying pipeline.
func (c *Client) Provider() *pipeline.Provider {
	return c.provider
}

// Store returns the exchange store, or nil when recording is disabled.
func (c *Client) Store() ports.ExchangeStore {
	return c.store
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Close releases the exchange store when the Client opened it.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.store != nil && c.ownsStore {
			if closeErr := c.store.Close(); closeErr != nil {
				c.logger.Error("failed to close store", slog.String("error", closeErr.Error()))
				err = closeErr
			}
		}
	})
	return err
}
