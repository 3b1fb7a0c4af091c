package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
	"github.com/sorenmh/appreviews/internal/appreviews/output"
)

// State is everything needed to draw one frame of the screen
type State struct {
	Mode Mode

	AppsLoading bool
	AppsErr     error
	Apps        []client.Application

	SelectedID     string
	ReviewsLoading bool
	ReviewsErr     error
	Reviews        *client.ReviewsResponse

	NewAppID string
	Adding   bool
	AddError string

	// Fetching is set while any active query has a request in flight
	Fetching bool
}

const (
	headerTitle    = "Apps Reviews"
	headerSubtitle = "Select an app to view its recent reviews"
	searchSubtitle = "Enter an App Store ID to view its recent reviews"
	reviewsWindow  = "Reviews from the last 48 hours"
	noReviews      = "No recent reviews found for this app."
	tryAgain       = "Try Again (retry)"
	rule           = "----------------------------------------"
)

// Render writes s as plain text. It is a pure function of s.
func Render(w io.Writer, s State) error {
	r := &renderer{w: w}

	r.line(headerTitle)
	if s.Mode == ModeSearch {
		r.line(searchSubtitle)
	} else {
		r.line(headerSubtitle)
	}
	r.blank()

	if s.Mode == ModeBrowse {
		renderApps(r, s)
		renderAddApp(r, s)
	}
	renderReviews(r, s)

	return r.err
}

func renderApps(r *renderer, s State) {
	if n := len(s.Apps); n > 0 {
		r.printf("Select an App (%d)", n)
	} else {
		r.line("Select an App")
	}
	r.line(rule)

	if s.AppsLoading {
		r.line("Loading apps...")
		r.blank()
		return
	}

	if s.AppsErr != nil {
		msg, empty := AppsErrorMessage(s.AppsErr)
		if empty {
			r.line(msg)
		} else {
			r.line("Error")
			r.line(msg)
			r.line(tryAgain)
		}
	} else if len(s.Apps) == 0 {
		r.line(AppsEmptyMessage)
	}

	for _, app := range s.Apps {
		marker := " "
		if app.ID == s.SelectedID {
			marker = ">"
		}
		name := app.Name
		if name == "" {
			name = app.ID
		}
		r.printf("%s %s", marker, name)
		r.printf("  ID: %s", app.ID)
	}
	r.blank()
}

func renderAddApp(r *renderer, s State) {
	r.line("Add New App")
	r.line(rule)
	if s.Adding {
		r.printf("App Store ID: %s  Adding...", s.NewAppID)
	} else {
		r.printf("App Store ID: %s", s.NewAppID)
	}
	if s.AddError != "" {
		r.line(s.AddError)
	}
	r.blank()
}

func renderReviews(r *renderer, s State) {
	if s.SelectedID == "" {
		return
	}

	if s.ReviewsLoading {
		r.line("Loading reviews...")
		return
	}

	// A failed refetch keeps the cached list on screen below the error.
	if s.ReviewsErr != nil {
		msg := ReviewsErrorMessage(s.ReviewsErr)
		r.line(msg.Title)
		r.line(msg.Description)
		r.line(tryAgain)
	}

	if s.Reviews == nil {
		return
	}
	if s.ReviewsErr != nil {
		r.blank()
	}
	r.printf("Recent Reviews (%d)", len(s.Reviews.Data))
	r.line(reviewsWindow)
	r.line(rule)
	if len(s.Reviews.Data) == 0 {
		r.line(noReviews)
	}
	for i, review := range s.Reviews.Data {
		if i > 0 {
			r.blank()
		}
		renderReview(r, review)
	}
}

func renderReview(r *renderer, review client.Review) {
	r.printf("%s (%d/%d)  %s", review.Stars(), review.Rating, client.MaxRating, output.FormatTime(review.SentAt))
	if review.Title != "" {
		r.line(review.Title)
	}
	if review.Content != "" {
		r.line(review.Content)
	}
	author := review.Author
	if strings.TrimSpace(author) == "" {
		author = "Anonymous"
	}
	r.printf("by %s", author)
}

type renderer struct {
	w   io.Writer
	err error
}

func (r *renderer) line(s string) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintln(r.w, s)
}

func (r *renderer) printf(format string, args ...any) {
	r.line(fmt.Sprintf(format, args...))
}

func (r *renderer) blank() {
	r.line("")
}
