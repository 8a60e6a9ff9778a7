package completion

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// DefaultRetryStatuses are retried by a StatusRetry built without
// WithStatuses.
var DefaultRetryStatuses = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// StatusRetry retries transport failures and responses with selected status
// codes, waiting an exponentially growing delay between attempts.
type StatusRetry struct {
	statuses       map[int]bool
	retryTransport bool
	maxRetries     uint64
	base           time.Duration
	cap            time.Duration
	jitterPercent  uint64
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// RetryOption configures a StatusRetry.
type RetryOption func(*StatusRetry)

// WithStatuses replaces the retried status codes.
func WithStatuses(codes ...int) RetryOption {
	return func(s *StatusRetry) {
		s.statuses = make(map[int]bool, len(codes))
		for _, c := range codes {
			s.statuses[c] = true
		}
	}
}

// WithTransportRetries controls whether responseless transport failures are
// retried. Enabled by default.
func WithTransportRetries(enabled bool) RetryOption {
	return func(s *StatusRetry) {
		s.retryTransport = enabled
	}
}

// WithMaxRetries sets how many times a call is retried.
func WithMaxRetries(n uint64) RetryOption {
	return func(s *StatusRetry) {
		s.maxRetries = n
	}
}

// WithBackoff sets the first delay and the largest delay.
func WithBackoff(base, cap time.Duration) RetryOption {
	return func(s *StatusRetry) {
		s.base = base
		s.cap = cap
	}
}

// WithJitterPercent randomises each delay by up to pct percent.
func WithJitterPercent(pct uint64) RetryOption {
	return func(s *StatusRetry) {
		s.jitterPercent = pct
	}
}

// WithRetryLogger sets the logger.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(s *StatusRetry) {
		s.logger = logger
	}
}

// NewStatusRetry returns a strategy that retries up to 3 times, starting at
// 100ms and doubling up to 5s.
func NewStatusRetry(opts ...RetryOption) *StatusRetry {
	s := &StatusRetry{
		retryTransport: true,
		maxRetries:     3,
		base:           100 * time.Millisecond,
		cap:            5 * time.Second,
		logger:         slog.Default(),
		sleep:          sleep,
	}
	WithStatuses(DefaultRetryStatuses...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.base <= 0 {
		s.base = time.Millisecond
	}
	if s.cap < s.base {
		s.cap = s.base
	}
	return s
}

// Decide implements ports.CompletionStrategy. It blocks for the backoff delay
// and proceeds early if ctx is done while waiting.
func (s *StatusRetry) Decide(ctx context.Context, attempt ports.Attempt) ports.Decision {
	if !s.retryable(attempt.Result) {
		return ports.Proceed
	}

	delay, ok := s.delay(attempt)
	if !ok {
		s.logger.Debug("retries exhausted",
			slog.String("target", domain.TargetName(attempt.Target)),
			slog.Int("attempt", attempt.Number))
		return ports.Proceed
	}

	s.logger.Info("retrying request",
		slog.String("target", domain.TargetName(attempt.Target)),
		slog.Int("attempt", attempt.Number),
		slog.Int("status", attempt.Result.StatusCode()),
		slog.Duration("delay", delay))

	if err := s.sleep(ctx, delay); err != nil {
		return ports.Proceed
	}
	return ports.Retry
}

func (s *StatusRetry) retryable(result domain.Result) bool {
	if result.IsSuccess() {
		return s.statuses[result.Response.StatusCode]
	}
	if result.Err == nil || result.Err.Kind != domain.KindTransportFailed {
		return false
	}
	if result.Err.Response != nil {
		return s.statuses[result.Err.Response.StatusCode]
	}
	return s.retryTransport
}

// delay returns the wait before the next attempt. A strategy is shared by
// concurrent calls, so each decision replays a fresh backoff up to the
// attempt number instead of keeping state.
func (s *StatusRetry) delay(attempt ports.Attempt) (time.Duration, bool) {
	b := s.backoff()

	var d time.Duration
	for i := 0; i < attempt.Number; i++ {
		next, stop := b.Next()
		if stop {
			return 0, false
		}
		d = next
	}

	if ra, ok := retryAfter(attempt.Result); ok {
		d = min(ra, s.cap)
	}
	return d, true
}

func (s *StatusRetry) backoff() retry.Backoff {
	b := retry.NewExponential(s.base)
	if s.jitterPercent > 0 {
		b = retry.WithJitterPercent(s.jitterPercent, b)
	}
	b = retry.WithCappedDuration(s.cap, b)
	return retry.WithMaxRetries(s.maxRetries, b)
}

// retryAfter reads a delay-seconds Retry-After header from 429 and 503
// responses.
func retryAfter(result domain.Result) (time.Duration, bool) {
	resp := result.Response
	if resp == nil && result.Err != nil {
		resp = result.Err.Response
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	secs, err := strconv.Atoi(resp.Header().Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
