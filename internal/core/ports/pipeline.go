// Package ports defines the collaborator interfaces of the call pipeline.
// This file contains the plugin chain contract.
package ports

import (
	"context"
	"net/http"

	"github.com/tjfontaine/courier/internal/core/domain"
)

// Plugin observes and mutates calls at four fixed points. Every field is
// optional; nil functions are skipped. Plugins run in the order they were
// configured and must tolerate being invoked once per attempt.
type Plugin struct {
	// Name identifies the plugin in logs.
	Name string

	// PrepareRequest returns the request to send. It receives a clone of the
	// previous plugin's output and may modify and return it.
	PrepareRequest func(ctx context.Context, req *http.Request, target domain.Target) *http.Request

	// WillSend is notified with the final request before it is sent.
	WillSend func(ctx context.Context, req *http.Request, target domain.Target)

	// DidReceive is notified with each attempt's result before Process runs.
	DidReceive func(ctx context.Context, result domain.Result, target domain.Target)

	// Process returns the result the completion strategy and caller see.
	Process func(ctx context.Context, result domain.Result, target domain.Target) domain.Result
}

// Decision is the outcome of a completion strategy.
type Decision int

const (
	// Proceed delivers the current result to the caller.
	Proceed Decision = iota
	// Retry executes the same prepared request again.
	Retry
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Retry:
		return "retry"
	default:
		return "unknown"
	}
}

// Attempt is the input to a completion strategy.
type Attempt struct {
	// Number is 1 for the first execution and increments per retry.
	Number   int
	Result   domain.Result
	Target   domain.Target
	Endpoint *domain.Endpoint
}

// CompletionStrategy decides whether a call proceeds or retries. Decide may
// block (for example to refresh a credential or to back off) and should
// return promptly once ctx is done.
type CompletionStrategy interface {
	Decide(ctx context.Context, attempt Attempt) Decision
}

// CompletionFunc adapts a function to CompletionStrategy.
type CompletionFunc func(ctx context.Context, attempt Attempt) Decision

// Decide implements CompletionStrategy.
func (f CompletionFunc) Decide(ctx context.Context, attempt Attempt) Decision {
	return f(ctx, attempt)
}
