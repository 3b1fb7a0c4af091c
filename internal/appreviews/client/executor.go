package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Executor sends requests and turns responses into typed values or HTTPErrors
type Executor struct {
	client *http.Client
}

// NewExecutor creates an Executor on top of the given http.Client
func NewExecutor(client *http.Client) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{client: client}
}

// Execute sends req unchanged and decodes a successful JSON body into out.
//
// Transport failures are returned as-is. A status outside 200-299 yields an
// HTTPError with that status and the status text; the body is not read. A
// successful response that does not decode yields an HTTPError with the
// synthetic status 500. out may be nil to validate and discard the body.
func (e *Executor) Execute(req *http.Request, out any) error {
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decodeError()
	}

	if out == nil {
		if !json.Valid(body) {
			return decodeError()
		}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return decodeError()
	}

	return nil
}

// Execute is the typed form of Executor.Execute
func Execute[T any](e *Executor, req *http.Request) (T, error) {
	var out T
	if err := e.Execute(req, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// RequestOption mutates a request before it is sent
type RequestOption func(*http.Request)

// WithHeader sets a header on the outgoing request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Get issues a GET for url and decodes the response into T
func Get[T any](ctx context.Context, e *Executor, url string, opts ...RequestOption) (T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to create request: %w", err)
	}

	for _, opt := range opts {
		opt(req)
	}

	return Execute[T](e, req)
}
