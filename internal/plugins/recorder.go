package plugins

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// Exchange outcomes stored in ExchangeRecord.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder persists one ExchangeRecord per attempt. Storage errors are
// logged and never affect the call.
func Recorder(store ports.ExchangeStore, logger *slog.Logger) ports.Plugin {
	return ports.Plugin{
		Name: "recorder",
		DidReceive: func(ctx context.Context, result domain.Result, target domain.Target) {
			rec := NewExchangeRecord(result, target)
			if err := store.SaveExchange(context.WithoutCancel(ctx), rec); err != nil {
				logger.Error("failed to record exchange",
					slog.String("target", rec.Target),
					slog.String("error", err.Error()))
			}
		},
	}
}

// NewExchangeRecord summarises one attempt's result.
func NewExchangeRecord(result domain.Result, target domain.Target) *ports.ExchangeRecord {
	rec := &ports.ExchangeRecord{
		ID:        uuid.New().String(),
		RequestID: requestIDOf(result),
		Target:    domain.TargetName(target),
		Outcome:   OutcomeSuccess,
		CreatedAt: time.Now().UTC(),
	}

	if req := requestOf(result); req != nil {
		rec.Method = req.Method
		rec.URL = req.URL.String()
	} else if target != nil {
		rec.Method = target.Method()
		rec.URL = target.BaseURL() + "/" + target.Path()
	}

	resp := result.Response
	if result.Err != nil {
		rec.Outcome = OutcomeFailure
		rec.ErrorKind = string(result.Err.Kind)
		rec.Error = result.Err.Error()
		resp = result.Err.Response
	}
	if resp != nil {
		rec.StatusCode = resp.StatusCode
		rec.BodySize = len(resp.Data)
	}

	return rec
}
