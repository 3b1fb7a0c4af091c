package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single request when no timeout is configured
const DefaultTimeout = 30 * time.Second

// Client is an app-review API client
type Client struct {
	baseURL  string
	executor *Executor
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	Logger    *zap.Logger
	Transport http.RoundTripper
	UserAgent string
}

// NewClient creates a new app-review API client
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:      opts.Transport,
			Logger:    opts.Logger,
			UserAgent: opts.UserAgent,
		},
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		executor: NewExecutor(httpClient),
	}
}

// BaseURL returns the API endpoint the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// joinURL safely joins the base URL with path segments, escaping each one
func (c *Client) joinURL(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(strings.Trim(s, "/")))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// Application represents an application registered with the service
type Application struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	ThumbnailURL string `json:"thumbnail_url" yaml:"thumbnail_url"`
	CreatedAt    string `json:"created_at" yaml:"created_at"`
	UpdatedAt    string `json:"updated_at" yaml:"updated_at"`
}

// Review represents a customer review of an application.
// The service emits the author as a plain name and the time as sent_at.
type Review struct {
	ID      string    `json:"id" yaml:"id"`
	AppID   string    `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Author  string    `json:"author" yaml:"author"`
	Title   string    `json:"title" yaml:"title"`
	Content string    `json:"content" yaml:"content"`
	Rating  int       `json:"rating" yaml:"rating"`
	SentAt  time.Time `json:"sent_at" yaml:"sent_at"`
}

// MaxRating is the top of the rating scale
const MaxRating = 5

// Stars renders the rating as filled and empty stars
func (r Review) Stars() string {
	n := r.Rating
	if n < 0 {
		n = 0
	}
	if n > MaxRating {
		n = MaxRating
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxRating-n)
}

// AppsResponse is the response from listing applications
type AppsResponse struct {
	Data []Application `json:"data" yaml:"data"`
}

// AppResponse is the response from fetching a single application
type AppResponse struct {
	Data Application `json:"data" yaml:"data"`
}

// ReviewsResponse is the response from listing an application's reviews
type ReviewsResponse struct {
	Data []Review `json:"data" yaml:"data"`
}
