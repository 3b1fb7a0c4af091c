package client

import (
	"context"
	"fmt"
	"net/http"
)

// FetchApps lists all registered applications
func (c *Client) FetchApps(ctx context.Context) (*AppsResponse, error) {
	resp, err := Get[AppsResponse](ctx, c.executor, c.joinURL("api", "apps"))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchApp gets a single application by its store id
func (c *Client) FetchApp(ctx context.Context, id string) (*AppResponse, error) {
	resp, err := Get[AppResponse](ctx, c.executor, c.joinURL("api", "apps", id))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddApp registers an application by its store id and returns the server's
// confirmation. A 400 means the id is malformed, a 404 means the store lookup
// failed upstream.
func (c *Client) AddApp(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.joinURL("api", "apps", id), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	return Execute[string](c.executor, req)
}
