package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/decode"
)

const tracerName = "github.com/tjfontaine/courier/internal/pipeline"

// PlaceholderMode controls how targets with placeholder data are completed.
type PlaceholderMode int

const (
	// PlaceholderThroughChain runs the synthesized 200 response through the
	// plugin chain and the completion strategy like any other outcome.
	PlaceholderThroughChain PlaceholderMode = iota
	// PlaceholderBypass returns the synthesized response immediately, skipping
	// plugins and the completion strategy.
	PlaceholderBypass
)

// Option configures a Provider.
type Option func(*Provider)

// WithResolver replaces DefaultResolve.
func WithResolver(resolve ResolveFunc) Option {
	return func(p *Provider) {
		p.resolve = resolve
	}
}

// WithBuilder replaces DefaultBuild.
func WithBuilder(build BuildFunc) Option {
	return func(p *Provider) {
		p.build = build
	}
}

// WithPlugins sets the plugin chain. Order is significant.
func WithPlugins(plugins ...ports.Plugin) Option {
	return func(p *Provider) {
		p.plugins = append([]ports.Plugin(nil), plugins...)
	}
}

// WithStub enables stubbing. A nil strategy disables it.
func WithStub(stub *ports.StubStrategy) Option {
	return func(p *Provider) {
		p.stub = stub
	}
}

// WithCompletion sets the completion strategy. The default always proceeds.
func WithCompletion(strategy ports.CompletionStrategy) Option {
	return func(p *Provider) {
		p.completion = strategy
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithMaxAttempts caps the number of executions per call, overriding further
// Retry decisions. Zero, the default, leaves retries uncapped.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) {
		p.maxAttempts = n
	}
}

// WithPlaceholderMode selects how placeholder data is completed.
func WithPlaceholderMode(mode PlaceholderMode) Option {
	return func(p *Provider) {
		p.placeholderMode = mode
	}
}

// WithDecodePool sets the worker pool typed submissions decode on.
func WithDecodePool(pool *decode.Pool) Option {
	return func(p *Provider) {
		p.decodePool = pool
	}
}

// WithTracer sets the tracer used for call and attempt spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Provider) {
		p.tracer = tracer
	}
}

// Provider runs calls through resolution, request building, the plugin
// chain, execution and the completion strategy. A Provider is immutable after
// New and safe for concurrent use; every call works on its own request and
// results.
type Provider struct {
	executor        ports.Executor
	resolve         ResolveFunc
	build           BuildFunc
	plugins         []ports.Plugin
	chain           chain
	stub            *ports.StubStrategy
	completion      ports.CompletionStrategy
	logger          *slog.Logger
	maxAttempts     int
	placeholderMode PlaceholderMode
	decodePool      *decode.Pool
	tracer          trace.Tracer
}

// New creates a Provider that sends requests with executor.
func New(executor ports.Executor, opts ...Option) *Provider {
	p := &Provider{
		executor: executor,
		resolve:  DefaultResolve,
		build:    DefaultBuild,
		completion: ports.CompletionFunc(func(context.Context, ports.Attempt) ports.Decision {
			return ports.Proceed
		}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.decodePool == nil {
		p.decodePool = decode.NewPool(0)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	p.chain = newChain(p.plugins, p.logger)
	return p
}

// Submit runs the call in the background and delivers the raw response or a
// *domain.ServiceError to completion exactly once, unless the returned Call is
// cancelled first.
func (p *Provider) Submit(ctx context.Context, target domain.Target, completion func(*domain.Response, error)) *Call {
	call := newCall(ctx)
	go func() {
		defer call.finish()

		resp, err := p.run(call.ctx, target).Unpack()
		call.deliver(func() {
			completion(resp, err)
		})
	}()
	return call
}

// Do runs the call and waits for its result.
func (p *Provider) Do(ctx context.Context, target domain.Target) (*domain.Response, error) {
	var (
		resp *domain.Response
		err  error
	)
	call := p.Submit(ctx, target, func(r *domain.Response, e error) {
		resp, err = r, e
	})
	call.Wait()
	return resp, err
}

// run executes the pipeline for one call and returns the final result.
func (p *Provider) run(ctx context.Context, target domain.Target) domain.Result {
	ctx, span := p.tracer.Start(ctx, "courier.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("courier.target", targetLabel(target))))
	defer span.End()

	result, attempts := p.runAttempts(ctx, target)

	span.SetAttributes(attribute.Int("courier.attempts", attempts))
	if status := result.StatusCode(); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(result.Err.Kind))
	}
	return result
}

func (p *Provider) runAttempts(ctx context.Context, target domain.Target) (domain.Result, int) {
	endpoint, err := p.resolve(target)
	if err != nil {
		return domain.Failure(asServiceError(err, domain.ErrResolution)), 0
	}

	req, err := p.build(ctx, endpoint)
	if err != nil {
		return domain.Failure(asServiceError(err, domain.ErrMapping)), 0
	}

	placeholder, hasPlaceholder := placeholderData(target)
	if hasPlaceholder && p.placeholderMode == PlaceholderBypass {
		return placeholderResult(req, placeholder), 0
	}

	req = p.chain.prepare(ctx, req, target)
	if err := rewindable(req); err != nil {
		return domain.Failure(domain.ErrMapping(fmt.Errorf("buffer request body: %w", err))), 0
	}

	for attempt := 1; ; attempt++ {
		p.chain.willSend(ctx, req, target)

		var result domain.Result
		if hasPlaceholder {
			result = placeholderResult(req, placeholder)
		} else {
			result = p.execute(ctx, endpoint, req, attempt)
		}
		result = validateStatus(result, target)

		p.chain.didReceive(ctx, result, target)
		result = p.chain.process(ctx, result, target)

		decision := p.completion.Decide(ctx, ports.Attempt{
			Number:   attempt,
			Result:   result,
			Target:   target,
			Endpoint: endpoint,
		})
		if decision != ports.Retry {
			return result, attempt
		}

		if p.maxAttempts > 0 && attempt >= p.maxAttempts {
			p.logger.Warn("retry cap reached, proceeding with last result",
				slog.String("target", targetLabel(target)),
				slog.Int("attempts", attempt))
			return result, attempt
		}
		if ctx.Err() != nil {
			return result, attempt
		}

		p.logger.Debug("retrying call",
			slog.String("target", targetLabel(target)),
			slog.Int("attempt", attempt),
			slog.Int("status", result.StatusCode()))
	}
}

// execute performs one attempt against the stub strategy or the executor.
func (p *Provider) execute(ctx context.Context, endpoint *domain.Endpoint, req *http.Request, attempt int) domain.Result {
	ctx, span := p.tracer.Start(ctx, "courier.attempt",
		trace.WithAttributes(
			attribute.Int("courier.attempt", attempt),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String())))
	defer span.End()

	if p.stub != nil {
		if result, ok := runStub(ctx, p.stub, endpoint, req); ok {
			span.SetAttributes(attribute.Bool("courier.stubbed", true))
			return result
		}
	}

	attemptReq, err := replayable(ctx, req)
	if err != nil {
		return domain.Failure(domain.ErrTransport(err, nil))
	}

	data, resp, err := p.executor.Execute(ctx, attemptReq)
	if err != nil {
		span.RecordError(err)
	}
	return MapOutcome(attemptReq, data, resp, err)
}

// rewindable reads a body that has no GetBody into memory so that every
// attempt sends the same bytes.
func rewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

// replayable clones req with a fresh body so every attempt sends the same bytes.
func replayable(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return out, nil
}

func placeholderData(target domain.Target) ([]byte, bool) {
	ph, ok := target.(domain.Placeholder)
	if !ok {
		return nil, false
	}
	return ph.PlaceholderData()
}

func placeholderResult(req *http.Request, data []byte) domain.Result {
	resp := synthesizeResponse(req, http.StatusOK, nil, data)
	return MapOutcome(req, data, resp, nil)
}

// asServiceError keeps an existing ServiceError or wraps err with wrap.
func asServiceError(err error, wrap func(error) *domain.ServiceError) *domain.ServiceError {
	if svcErr, ok := domain.AsServiceError(err); ok {
		return svcErr
	}
	return wrap(err)
}

func targetLabel(target domain.Target) string {
	if target == nil {
		return "<nil>"
	}
	return domain.TargetName(target)
}
