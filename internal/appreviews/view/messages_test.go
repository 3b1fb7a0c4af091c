package view

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
)

func statusErr(status int) error {
	return &client.HTTPError{Kind: client.KindStatus, Status: status, Message: http.StatusText(status)}
}

func TestAddErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "bad request", err: statusErr(http.StatusBadRequest), want: AddInvalidIDMessage},
		{name: "not found", err: statusErr(http.StatusNotFound), want: AddNotFoundMessage},
		{name: "server error", err: statusErr(http.StatusInternalServerError), want: AddFailedMessage},
		{name: "conflict", err: statusErr(http.StatusConflict), want: AddFailedMessage},
		{name: "decode failure", err: &client.HTTPError{Kind: client.KindDecode, Status: 500}, want: AddFailedMessage},
		{name: "transport", err: &url.Error{Op: "Post", URL: "http://x", Err: errors.New("refused")}, want: AddUnexpectedMessage},
		{name: "unexpected", err: errors.New("boom"), want: AddUnexpectedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddErrorMessage(tt.err))
		})
	}
}

func TestReviewsErrorMessage(t *testing.T) {
	assert.Equal(t, ReviewsNotFound, ReviewsErrorMessage(statusErr(http.StatusNotFound)))
	assert.Equal(t, ReviewsUnexpected, ReviewsErrorMessage(statusErr(http.StatusInternalServerError)))
	assert.Equal(t, ReviewsUnexpected, ReviewsErrorMessage(errors.New("boom")))
}

func TestAppsErrorMessage(t *testing.T) {
	msg, empty := AppsErrorMessage(statusErr(http.StatusNotFound))
	assert.True(t, empty)
	assert.Equal(t, AppsNotFoundMessage, msg)

	msg, empty = AppsErrorMessage(statusErr(http.StatusBadGateway))
	assert.False(t, empty)
	assert.Equal(t, AppsFailedMessage, msg)
}
