package client

import "context"

// FetchReviews lists the recent reviews of an application. The service
// limits the window (48 hours by default); the client does not filter.
func (c *Client) FetchReviews(ctx context.Context, appID string) (*ReviewsResponse, error) {
	resp, err := Get[ReviewsResponse](ctx, c.executor, c.joinURL("api", "reviews", appID))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
