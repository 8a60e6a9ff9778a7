package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// chain runs plugins in their configured order. Configured order is the only
// ordering: mutators see the previous plugin's output, and nothing reorders
// them at run time.
type chain struct {
	plugins []ports.Plugin
	logger  *slog.Logger
}

func newChain(plugins []ports.Plugin, logger *slog.Logger) chain {
	return chain{
		plugins: append([]ports.Plugin(nil), plugins...),
		logger:  logger,
	}
}

// prepare applies every PrepareRequest left to right. Each plugin receives a
// clone so earlier values are never modified behind a caller's back.
func (c chain) prepare(ctx context.Context, req *http.Request, target domain.Target) *http.Request {
	current := req
	for _, p := range c.plugins {
		if p.PrepareRequest == nil {
			continue
		}
		next := current
		c.guard(p.Name, "prepare_request", func() {
			next = p.PrepareRequest(ctx, current.Clone(ctx), target)
		})
		if next != nil {
			current = next
		}
	}
	return current
}

// willSend notifies every plugin in order.
func (c chain) willSend(ctx context.Context, req *http.Request, target domain.Target) {
	for _, p := range c.plugins {
		if p.WillSend == nil {
			continue
		}
		c.guard(p.Name, "will_send", func() {
			p.WillSend(ctx, req, target)
		})
	}
}

// didReceive notifies every plugin in order.
func (c chain) didReceive(ctx context.Context, result domain.Result, target domain.Target) {
	for _, p := range c.plugins {
		if p.DidReceive == nil {
			continue
		}
		c.guard(p.Name, "did_receive", func() {
			p.DidReceive(ctx, result, target)
		})
	}
}

// process applies every Process left to right.
func (c chain) process(ctx context.Context, result domain.Result, target domain.Target) domain.Result {
	current := result
	for _, p := range c.plugins {
		if p.Process == nil {
			continue
		}
		next := current
		c.guard(p.Name, "process", func() {
			next = p.Process(ctx, current, target)
		})
		current = next
	}
	return current
}

// guard runs fn and recovers from a panic so a misbehaving plugin cannot
// abort the call. A panicking mutator leaves the value unchanged.
func (c chain) guard(plugin, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("plugin panicked",
				slog.String("plugin", plugin),
				slog.String("hook", hook),
				slog.Any("panic", r))
		}
	}()
	fn()
}
