package domain

import "net/url"

// Task describes how a request's parameters and body are encoded.
// The set of tasks is closed.
type Task interface {
	isTask()
}

// RequestPlain sends no body and no extra parameters.
type RequestPlain struct{}

// RequestData sends Body verbatim.
type RequestData struct {
	Body        []byte
	ContentType string
}

// RequestJSON encodes Value as a JSON body.
type RequestJSON struct {
	Value any
}

// ParameterEncoding selects where RequestParameters are placed.
type ParameterEncoding int

const (
	// EncodingDefault uses the query string for GET, HEAD and DELETE and a form
	// body otherwise.
	EncodingDefault ParameterEncoding = iota
	// EncodingQuery always uses the query string.
	EncodingQuery
	// EncodingForm always uses an application/x-www-form-urlencoded body.
	EncodingForm
)

// RequestParameters sends Params either in the query string or as a form body.
type RequestParameters struct {
	Params   url.Values
	Encoding ParameterEncoding
}

// RequestComposite sends Body as JSON and Query in the URL.
type RequestComposite struct {
	Body  any
	Query url.Values
}

// RequestGraphQL sends a GraphQL operation as a JSON body.
type RequestGraphQL struct {
	Query         string
	Variables     map[string]any
	OperationName string
}

func (RequestPlain) isTask()      {}
func (RequestData) isTask()       {}
func (RequestJSON) isTask()       {}
func (RequestParameters) isTask() {}
func (RequestComposite) isTask()  {}
func (RequestGraphQL) isTask()    {}
