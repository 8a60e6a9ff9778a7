package plugins

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// ActivityChange is reported by NetworkActivity.
type ActivityChange int

const (
	// ActivityBegan is reported before an attempt is sent.
	ActivityBegan ActivityChange = iota
	// ActivityEnded is reported once an attempt has an outcome.
	ActivityEnded
)

func (c ActivityChange) String() string {
	if c == ActivityBegan {
		return "began"
	}
	return "ended"
}

// NetworkActivity calls notify when each attempt begins and ends, for
// driving activity indicators.
func NetworkActivity(notify func(change ActivityChange, target domain.Target)) ports.Plugin {
	return ports.Plugin{
		Name: "network_activity",
		WillSend: func(_ context.Context, _ *http.Request, target domain.Target) {
			notify(ActivityBegan, target)
		},
		DidReceive: func(_ context.Context, _ domain.Result, target domain.Target) {
			notify(ActivityEnded, target)
		},
	}
}

// stopwatch times attempts between WillSend and DidReceive. Both hooks of an
// attempt receive the same call context, and attempts of a call never
// overlap, so the context identifies the attempt in flight.
type stopwatch struct {
	starts sync.Map
}

func (s *stopwatch) start(ctx context.Context) {
	s.starts.Store(ctx, time.Now())
}

func (s *stopwatch) stop(ctx context.Context) time.Duration {
	v, ok := s.starts.LoadAndDelete(ctx)
	if !ok {
		return 0
	}
	return time.Since(v.(time.Time))
}
