package ports

import (
	"context"
	"errors"
	"time"
)

// ErrExchangeNotFound is returned by GetExchange for unknown IDs.
var ErrExchangeNotFound = errors.New("exchange not found")

// ExchangeRecord is one persisted attempt.
type ExchangeRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	Target     string    `json:"target"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code,omitempty"`
	Outcome    string    `json:"outcome"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	BodySize   int       `json:"body_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExchangeListOptions filters ListExchanges. Results are newest first; a
// zero Limit means 100.
type ExchangeListOptions struct {
	Target  string
	Outcome string
	Limit   int
}

// ExchangeStore persists exchange records.
type ExchangeStore interface {
	SaveExchange(ctx context.Context, rec *ExchangeRecord) error
	GetExchange(ctx context.Context, id string) (*ExchangeRecord, error)
	ListExchanges(ctx context.Context, opts ExchangeListOptions) ([]*ExchangeRecord, error)
	Close() error
}
