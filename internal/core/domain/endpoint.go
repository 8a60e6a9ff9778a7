package domain

import (
	"net/http"
	"net/url"
)

// Endpoint is a fully addressed representation of a Target. Endpoints are
// never mutated after creation; Adding and Replacing return copies.
type Endpoint struct {
	URL     *url.URL
	Method  string
	Task    Task
	Headers http.Header
	Target  Target
}

// Adding returns a copy of e with headers merged over the existing ones.
func (e *Endpoint) Adding(headers http.Header) *Endpoint {
	out := e.clone()
	for k, vs := range headers {
		out.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return out
}

// Replacing returns a copy of e with a different task.
func (e *Endpoint) Replacing(task Task) *Endpoint {
	out := e.clone()
	out.Task = task
	return out
}

func (e *Endpoint) clone() *Endpoint {
	u := *e.URL
	headers := e.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	return &Endpoint{
		URL:     &u,
		Method:  e.Method,
		Task:    e.Task,
		Headers: headers,
		Target:  e.Target,
	}
}
