package view

import (
	"net/http"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
)

// Message is a user-facing error with a headline and an explanation
type Message struct {
	Title       string
	Description string
}

// Add-flow error copy
const (
	AddInvalidIDMessage  = "Invalid App ID. Please enter a valid numeric App Store ID."
	AddNotFoundMessage   = "App not found. Please check the App ID and try again."
	AddFailedMessage     = "Failed to add app. Please try again."
	AddUnexpectedMessage = "An unexpected error occurred. Please try again."
)

// Apps list copy
const (
	AppsNotFoundMessage = "No apps found. Add your first app below."
	AppsFailedMessage   = "Failed to load apps. Please try again."
	AppsEmptyMessage    = "No apps available. Add your first app below."
)

// ReviewsNotFound and ReviewsUnexpected are the reviews error messages
var (
	ReviewsNotFound = Message{
		Title:       "App not found",
		Description: "The app you are looking for does not exist.",
	}
	ReviewsUnexpected = Message{
		Title:       "An unexpected error occurred",
		Description: "Please try again later.",
	}
)

// httpStatus returns the status of err when it came back from the server,
// or false for transport and unexpected failures
func httpStatus(err error) (int, bool) {
	switch client.KindOf(err) {
	case client.KindStatus, client.KindDecode:
		return client.StatusOf(err)
	case client.KindTransport, client.KindUnexpected:
		return 0, false
	}
	return 0, false
}

// AddErrorMessage maps a failed add-app call to the message shown under the form
func AddErrorMessage(err error) string {
	status, ok := httpStatus(err)
	if !ok {
		return AddUnexpectedMessage
	}

	switch status {
	case http.StatusBadRequest:
		return AddInvalidIDMessage
	case http.StatusNotFound:
		return AddNotFoundMessage
	default:
		return AddFailedMessage
	}
}

// ReviewsErrorMessage maps a failed reviews fetch to a title and description
func ReviewsErrorMessage(err error) Message {
	if status, ok := httpStatus(err); ok && status == http.StatusNotFound {
		return ReviewsNotFound
	}
	return ReviewsUnexpected
}

// AppsErrorMessage maps a failed apps fetch to a message. A 404 means no
// apps have been added yet and is reported as an empty list, not a failure.
func AppsErrorMessage(err error) (msg string, empty bool) {
	if status, ok := httpStatus(err); ok && status == http.StatusNotFound {
		return AppsNotFoundMessage, true
	}
	return AppsFailedMessage, false
}
