package domain

import "net/http"

// Target describes one logical API call. Implementations are owned by the
// caller and must not change while a call is in flight.
type Target interface {
	// BaseURL is the absolute base address, e.g. "https://api.example.com/v1".
	BaseURL() string
	// Path is appended to BaseURL.
	Path() string
	// Method is the HTTP method.
	Method() string
	// Task describes how parameters and body are encoded.
	Task() Task
	// Headers are added to the built request. May be nil.
	Headers() http.Header
}

// SampleDataProvider is implemented by targets that carry canned response
// data for stubbing.
type SampleDataProvider interface {
	SampleData() []byte
}

// Placeholder is implemented by targets that can answer without any network
// or stub involvement. When ok is true the call completes with a 200 response
// carrying exactly data.
type Placeholder interface {
	PlaceholderData() (data []byte, ok bool)
}

// Validatable is implemented by targets that accept only specific status
// codes. Responses outside the list become KindResponseRejected failures.
type Validatable interface {
	ValidStatusCodes() []int
}

// AccessTokenAuthorizable is implemented by targets that declare how an access
// token should be presented.
type AccessTokenAuthorizable interface {
	AuthorizationType() AuthorizationType
}

// TargetName returns a short, low-cardinality label for t, preferring a
// Name() method when the target has one.
func TargetName(t Target) string {
	if t == nil {
		return ""
	}
	if named, ok := t.(interface{ Name() string }); ok {
		return named.Name()
	}
	return t.Method() + " " + t.Path()
}
