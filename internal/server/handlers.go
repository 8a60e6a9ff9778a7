package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

const maxCallBody = 1 << 20

// callRequest is the optional JSON body of POST /calls/{name}.
type callRequest struct {
	Body  any               `json:"body,omitempty"`
	Query map[string]string `json:"query,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Problem    any    `json:"problem,omitempty"`
}

type endpointInfo struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	names := s.client.Endpoints()
	out := make([]endpointInfo, 0, len(names))
	for _, name := range names {
		target, _ := s.client.Target(name)
		out = append(out, endpointInfo{
			Name:   name,
			Method: target.Method(),
			URL:    strings.TrimSuffix(target.BaseURL(), "/") + "/" + strings.TrimPrefix(target.Path(), "/"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": out})
}

// handleCall runs a configured endpoint and relays the upstream response.
// Query parameters on the request are merged over the endpoint's own.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	AddLogField(ctx, "endpoint", name)

	target, ok := s.client.Target(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown endpoint: "+name)
		return
	}

	var body callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid call body: "+err.Error())
		return
	}

	query := r.URL.Query()
	for key, value := range body.Query {
		query.Set(key, value)
	}
	if len(query) > 0 {
		target = target.WithQuery(query)
	}
	if body.Body != nil {
		target = target.WithBody(body.Body)
	}

	resp, err := s.client.Do(ctx, target)
	if err != nil {
		AddError(ctx, err)
		writeServiceError(w, err)
		return
	}

	forwardRateLimits(w.Header(), resp.Header())
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Data)
}

func (s *Server) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	store := s.client.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, "not_found", "exchange recording is disabled")
		return
	}

	opts, err := listOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	records, err := store.ListExchanges(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list exchanges")
		return
	}
	if records == nil {
		records = []*ports.ExchangeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exchanges": records})
}

func listOptions(q url.Values) (ports.ExchangeListOptions, error) {
	opts := ports.ExchangeListOptions{
		Target:  q.Get("target"),
		Outcome: q.Get("outcome"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, errors.New("limit must be a positive integer")
		}
		opts.Limit = limit
	}
	return opts, nil
}

func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	store := s.client.Store()
	if store == nil {
		writeError(w, http.StatusNotFound, "not_found", "exchange recording is disabled")
		return
	}

	rec, err := store.GetExchange(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ports.ErrExchangeNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get exchange")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeServiceError reports a failed call. Upstream rate limit headers are
// relayed when the failure carries a response.
func writeServiceError(w http.ResponseWriter, err error) {
	svcErr, ok := domain.AsServiceError(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	if svcErr.Response != nil {
		forwardRateLimits(w.Header(), svcErr.Response.Header())
	}
	writeJSON(w, svcErr.HTTPStatusCode(), errorBody{Error: errorDetail{
		Kind:       string(svcErr.Kind),
		Message:    svcErr.Error(),
		StatusCode: svcErr.StatusCode(),
		Problem:    svcErr.Problem,
	}})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
