// Package courier provides the public API for describing API calls as
// targets and running them through a plugin and retry pipeline.
// This is the stable API for external consumers.
package courier

import (
	"context"

	"github.com/tjfontaine/courier/internal/completion"
	"github.com/tjfontaine/courier/internal/config"
	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/decode"
	"github.com/tjfontaine/courier/internal/pipeline"
	"github.com/tjfontaine/courier/internal/plugins"
	"github.com/tjfontaine/courier/internal/runtime"
	"github.com/tjfontaine/courier/internal/transport"
)

// Targets and tasks
type (
	Target                  = domain.Target
	SampleDataProvider      = domain.SampleDataProvider
	Placeholder             = domain.Placeholder
	Validatable             = domain.Validatable
	AccessTokenAuthorizable = domain.AccessTokenAuthorizable
	AuthorizationType       = domain.AuthorizationType
	Endpoint                = domain.Endpoint

	Task              = domain.Task
	RequestPlain      = domain.RequestPlain
	RequestData       = domain.RequestData
	RequestJSON       = domain.RequestJSON
	RequestParameters = domain.RequestParameters
	RequestComposite  = domain.RequestComposite
	RequestGraphQL    = domain.RequestGraphQL
)

// Results and errors
type (
	Response       = domain.Response
	Result         = domain.Result
	ServiceError   = domain.ServiceError
	ErrorKind      = domain.ErrorKind
	RejectionError = domain.RejectionError
)

// Pipeline collaborators
type (
	Provider           = pipeline.Provider
	Option             = pipeline.Option
	Call               = pipeline.Call
	Executor           = ports.Executor
	ExecutorFunc       = ports.ExecutorFunc
	Plugin             = ports.Plugin
	CompletionStrategy = ports.CompletionStrategy
	CompletionFunc     = ports.CompletionFunc
	Attempt            = ports.Attempt
	Decision           = ports.Decision
	StubStrategy       = ports.StubStrategy
	StubResponse       = ports.StubResponse
	StubSuccess        = ports.StubSuccess
	StubFailure        = ports.StubFailure
	ContinueCourse     = ports.ContinueCourse
	Parser[T any]      = ports.Parser[T]
)

// Configured clients
type (
	Client         = runtime.Client
	ClientOption   = runtime.Option
	Config         = config.Config
	EndpointTarget = runtime.EndpointTarget
)

const (
	Proceed = ports.Proceed
	Retry   = ports.Retry

	KindResolutionFailed = domain.KindResolutionFailed
	KindMappingFailed    = domain.KindMappingFailed
	KindTransportFailed  = domain.KindTransportFailed
	KindParsingFailed    = domain.KindParsingFailed
	KindResponseRejected = domain.KindResponseRejected

	EncodingDefault = domain.EncodingDefault
	EncodingQuery   = domain.EncodingQuery
	EncodingForm    = domain.EncodingForm

	PlaceholderThroughChain = pipeline.PlaceholderThroughChain
	PlaceholderBypass       = pipeline.PlaceholderBypass
)

var (
	AuthNone   = domain.AuthNone
	AuthBasic  = domain.AuthBasic
	AuthBearer = domain.AuthBearer
	AuthCustom = domain.AuthCustom

	IsKind         = domain.IsKind
	AsServiceError = domain.AsServiceError
	Reject         = domain.Reject
)

// New creates a Provider that sends requests with executor.
// Example:
//
//	p := courier.New(courier.NewHTTPExecutor(),
//	    courier.WithPlugins(courier.RequestID(), courier.NetworkLogger(logger)),
//	    courier.WithCompletion(courier.NewStatusRetry()),
//	)
//	resp, err := p.Do(ctx, target)
var New = pipeline.New

// Provider options
var (
	WithResolver        = pipeline.WithResolver
	WithBuilder         = pipeline.WithBuilder
	WithPlugins         = pipeline.WithPlugins
	WithStub            = pipeline.WithStub
	WithCompletion      = pipeline.WithCompletion
	WithLogger          = pipeline.WithLogger
	WithMaxAttempts     = pipeline.WithMaxAttempts
	WithPlaceholderMode = pipeline.WithPlaceholderMode
	WithDecodePool      = pipeline.WithDecodePool
	WithTracer          = pipeline.WithTracer

	DefaultResolve = pipeline.DefaultResolve
	DefaultBuild   = pipeline.DefaultBuild
	ImmediateStub  = pipeline.ImmediateStub
	DelayedStub    = pipeline.DelayedStub
	SampleResponse = pipeline.SampleResponse
	NewDecodePool  = decode.NewPool
)

// Transport
var (
	NewHTTPExecutor = transport.NewHTTPExecutor
	WithHTTPClient  = transport.WithHTTPClient
	WithTimeout     = transport.WithTimeout
	WithMaxBodySize = transport.WithMaxBodySize
	WithGuard       = transport.WithPrivateAddressGuard
)

// Plugins
var (
	RequestID       = plugins.RequestID
	WithRequestID   = plugins.WithRequestID
	AccessToken     = plugins.AccessToken
	StaticToken     = plugins.StaticToken
	Credentials     = plugins.Credentials
	NetworkActivity = plugins.NetworkActivity
	NetworkLogger   = plugins.NetworkLogger
	Recorder        = plugins.Recorder
	NewMetrics      = plugins.NewMetricsCollector
	LogHeaders      = plugins.LogHeaders
	LogBodies       = plugins.LogBodies
	LogLevel        = plugins.LogLevel
)

// Parsers
var (
	FieldProblem = decode.FieldProblem
	StringParser = decode.String
	BytesParser  = decode.Bytes
)

// Completion strategies
var (
	AlwaysProceed   = completion.Always
	AdaptCompletion = completion.Func
	CompletionChain = completion.Chain
	LimitAttempts   = completion.Limit
	NewStatusRetry  = completion.NewStatusRetry
	RetryStatuses   = completion.DefaultRetryStatuses
	RetryOnStatuses = completion.WithStatuses
	RetryTransport  = completion.WithTransportRetries
	RetryMaxRetries = completion.WithMaxRetries
	RetryBackoff    = completion.WithBackoff
	RetryJitter     = completion.WithJitterPercent
	RetryLogger     = completion.WithRetryLogger
)

// Configured clients
var (
	LoadConfig       = config.Load
	NewClient        = runtime.New
	WithExecutor     = runtime.WithExecutor
	WithStore        = runtime.WithStore
	WithTokenFunc    = runtime.WithTokenFunc
	WithExtraPlugins = runtime.WithPlugins
	WithActivity     = runtime.WithActivity
	WithRegistry     = runtime.WithRegistry
	WithClientLogger = runtime.WithLogger
)

// JSON returns a parser decoding JSON payloads into T.
func JSON[T any]() *decode.JSONParser[T] {
	return decode.JSON[T]()
}

// Decode parses a successful response with parser.
func Decode[T any](resp *Response, parser Parser[T]) (T, error) {
	return pipeline.Decode(resp, parser)
}

// Submit runs target in the background and delivers a decoded value exactly
// once unless the returned Call is cancelled first.
func Submit[T any](ctx context.Context, p *Provider, target Target, parser Parser[T], completion func(T, *Response, error)) *Call {
	return pipeline.Submit(ctx, p, target, parser, completion)
}

// DoTyped runs target and waits for the decoded value.
func DoTyped[T any](ctx context.Context, p *Provider, target Target, parser Parser[T]) (T, *Response, error) {
	return pipeline.DoTyped(ctx, p, target, parser)
}
