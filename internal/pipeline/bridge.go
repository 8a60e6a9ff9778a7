package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// Decode parses a successful response with parser. Rejections reported by
// the parser become KindResponseRejected; any other failure, a panic
// included, becomes KindParsingFailed. Both carry resp.
func Decode[T any](resp *domain.Response, parser ports.Parser[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, domain.ErrParsing(fmt.Errorf("parser panicked: %v", r), resp)
		}
	}()

	value, err = parser.Parse(resp.Data)
	if err == nil {
		return value, nil
	}

	var zero T
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		return zero, domain.ErrRejected(resp, rejection.Problem)
	}
	return zero, domain.ErrParsing(err, resp)
}

// Submit runs the call in the background and decodes a successful response
// with parser on the provider's decode pool. completion receives the decoded
// value and the response, or a *domain.ServiceError. Failures are never
// passed to the parser.
func Submit[T any](ctx context.Context, p *Provider, target domain.Target, parser ports.Parser[T], completion func(T, *domain.Response, error)) *Call {
	call := newCall(ctx)
	go func() {
		defer call.finish()

		var zero T
		resp, err := p.run(call.ctx, target).Unpack()
		if err != nil {
			call.deliver(func() {
				completion(zero, nil, err)
			})
			return
		}

		done, err := p.decodePool.Go(call.ctx, func() {
			value, decodeErr := Decode(resp, parser)
			call.deliver(func() {
				completion(value, resp, decodeErr)
			})
		})
		if err != nil {
			call.deliver(func() {
				completion(zero, resp, domain.ErrTransport(err, nil))
			})
			return
		}
		<-done
	}()
	return call
}

// DoTyped runs the call, decodes the response with parser and waits for the
// result.
func DoTyped[T any](ctx context.Context, p *Provider, target domain.Target, parser ports.Parser[T]) (T, *domain.Response, error) {
	var (
		value T
		resp  *domain.Response
		err   error
	)
	call := Submit(ctx, p, target, parser, func(v T, r *domain.Response, e error) {
		value, resp, err = v, r, e
	})
	call.Wait()
	return value, resp, err
}
