// Package completion provides completion strategies: the policies that decide
// after each attempt whether a call proceeds with its result or is retried.
package completion

import (
	"context"

	"github.com/tjfontaine/courier/internal/core/ports"
)

// Always proceeds with every result.
var Always ports.CompletionStrategy = ports.CompletionFunc(func(context.Context, ports.Attempt) ports.Decision {
	return ports.Proceed
})

// Func adapts fn to a strategy.
func Func(fn func(ctx context.Context, attempt ports.Attempt) ports.Decision) ports.CompletionStrategy {
	return ports.CompletionFunc(fn)
}

// Chain asks each strategy in order and retries as soon as one of them does.
// Strategies after the first Retry are not consulted.
func Chain(strategies ...ports.CompletionStrategy) ports.CompletionStrategy {
	return ports.CompletionFunc(func(ctx context.Context, attempt ports.Attempt) ports.Decision {
		for _, s := range strategies {
			if s == nil {
				continue
			}
			if s.Decide(ctx, attempt) == ports.Retry {
				return ports.Retry
			}
		}
		return ports.Proceed
	})
}

// Limit proceeds once maxAttempts attempts have been made and otherwise
// defers to next.
func Limit(maxAttempts int, next ports.CompletionStrategy) ports.CompletionStrategy {
	return ports.CompletionFunc(func(ctx context.Context, attempt ports.Attempt) ports.Decision {
		if maxAttempts > 0 && attempt.Number >= maxAttempts {
			return ports.Proceed
		}
		return next.Decide(ctx, attempt)
	})
}
