package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Kind classifies a failure coming out of the client
type Kind int

const (
	// KindUnexpected is anything the client does not recognise
	KindUnexpected Kind = iota
	// KindTransport is a network level failure, no response was received
	KindTransport
	// KindStatus is a non-2xx response from the server
	KindStatus
	// KindDecode is a 2xx response whose body could not be decoded
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unexpected"
	}
}

// decodeFailureMessage is reported with a synthetic 500 when a successful
// response carries a body that is not the expected JSON.
const decodeFailureMessage = "Failed to parse JSON response"

// HTTPError is the normalized error for both real HTTP error statuses and
// the synthetic decode failure
type HTTPError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// statusError builds an HTTPError for a non-2xx response
func statusError(resp *http.Response) *HTTPError {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{Kind: KindStatus, Status: resp.StatusCode, Message: msg}
}

// decodeError builds the synthetic HTTPError for an unparseable body
func decodeError() *HTTPError {
	return &HTTPError{Kind: KindDecode, Status: http.StatusInternalServerError, Message: decodeFailureMessage}
}

// KindOf classifies err. A nil error is KindUnexpected.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnexpected
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Kind
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	return KindUnexpected
}

// StatusOf returns the status code carried by an HTTPError in err's chain
func StatusOf(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	return 0, false
}
