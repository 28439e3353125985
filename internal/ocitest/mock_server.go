// Package ocitest provides an in-process stand-in for the OCI control plane.
package ocitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer is a mock control-plane server. Responses are registered per
// request path; unregistered paths answer 404 like the real API does for
// unknown resources.
type MockServer struct {
	server    *httptest.Server
	responses map[string]MockResponse
	requests  []Request
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string

	// Sequence, when set, is served in order on successive requests; the
	// last element repeats. It takes precedence over the other fields.
	Sequence []MockResponse
}

// Request is a request received by the server.
type Request struct {
	Method    string
	Path      string
	Query     string
	Body      string
	RequestID string
}

// NewMockServer creates and starts a mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a request path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// Requests returns a copy of the requests received so far.
func (ms *MockServer) Requests() []Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]Request, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// RequestCount returns how many requests hit path. An empty path counts all.
func (ms *MockServer) RequestCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if path == "" {
		return len(ms.requests)
	}
	n := 0
	for _, r := range ms.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// handler handles incoming HTTP requests.
func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Body:      string(body),
		RequestID: r.Header.Get("opc-request-id"),
	})
	hits := 0
	for _, req := range ms.requests {
		if req.Path == r.URL.Path {
			hits++
		}
	}
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorBody("NotAuthorizedOrNotFound", "resource not found"))
		return
	}
	if len(response.Sequence) > 0 {
		i := hits - 1
		if i >= len(response.Sequence) {
			i = len(response.Sequence) - 1
		}
		response = response.Sequence[i]
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, response.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch v := body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// TaggedResource builds a resource body carrying defined and freeform tags.
func TaggedResource(id string, defined map[string]map[string]any, freeform map[string]string) map[string]any {
	if defined == nil {
		defined = map[string]map[string]any{}
	}
	if freeform == nil {
		freeform = map[string]string{}
	}
	return map[string]any{
		"id":             id,
		"lifecycleState": "ACTIVE",
		"definedTags":    defined,
		"freeformTags":   freeform,
	}
}

// ErrorBody builds a control-plane error document.
func ErrorBody(code, message string) map[string]any {
	return map[string]any{"code": code, "message": message}
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, code, message string) MockResponse {
	return MockResponse{StatusCode: statusCode, Body: ErrorBody(code, message)}
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "InternalServerError", "Internal server error")
}

// MockRateLimitError creates a 429 response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "TooManyRequests", "Too many requests")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockAuthError creates a 401 response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "NotAuthenticated", "The required information to complete authentication was not provided")
}

// MockSlowResponse creates a response delayed by delay.
func MockSlowResponse(delay time.Duration, body any) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body, Delay: delay}
}

// ExpectJSONBody checks that a recorded request body equals expected when
// both are compared as JSON.
func ExpectJSONBody(r Request, expected any) error {
	var actual any
	if err := json.NewDecoder(strings.NewReader(r.Body)).Decode(&actual); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}

	expectedJSON, _ := json.Marshal(expected)
	actualJSON, _ := json.Marshal(actual)

	if string(expectedJSON) != string(actualJSON) {
		return fmt.Errorf("request mismatch:\nexpected: %s\nactual: %s",
			string(expectedJSON), string(actualJSON))
	}
	return nil
}
