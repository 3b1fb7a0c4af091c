package client

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request id for correlating client and server logs
const RequestIDHeader = "X-Request-ID"

// Transport decorates outgoing requests with default headers and logs each
// round trip at debug level
type Transport struct {
	Base      http.RoundTripper
	Logger    *zap.Logger
	UserAgent string
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.New().String())
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.base().RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		t.logger().Debug("request failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	t.logger().Debug("request completed", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}
