package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sorenmh/appreviews/internal/appreviews/output"
)

const browseHelp = `Commands:
  select <app-id>        show reviews for an app
  add <app-id>           add an app by App Store ID
  retry [apps|reviews]   retry a failed request
  refresh                redraw the screen
  help                   show this help
  quit                   exit`

const searchHelp = `Type an App Store ID and press enter to view its reviews.
An empty line clears the search. Type "retry" to retry a failed request, "quit" to exit.`

// Session runs the interactive line-oriented screen on top of a Controller
type Session struct {
	ctrl   *Controller
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewSession creates a session reading commands from in and drawing to out
func NewSession(ctrl *Controller, in io.Reader, out io.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{ctrl: ctrl, in: in, out: out, logger: logger}
}

// Run draws the screen and processes commands until quit, end of input, or
// ctx is done
func (s *Session) Run(ctx context.Context) error {
	s.ctrl.Load()
	if err := s.draw(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		quit, err := s.handle(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		if err := s.draw(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		if s.ctrl.Mode() == ModeSearch {
			fmt.Fprintln(s.out, searchHelp)
		} else {
			fmt.Fprintln(s.out, browseHelp)
		}
		return false, nil
	case "retry":
		switch arg {
		case "apps":
			s.ctrl.RetryApps()
		case "reviews":
			s.ctrl.RetryReviews()
		default:
			st := s.ctrl.State()
			if st.AppsErr == nil && st.ReviewsErr == nil {
				s.ctrl.RetryApps()
				s.ctrl.RetryReviews()
				break
			}
			if st.AppsErr != nil {
				s.ctrl.RetryApps()
			}
			if st.ReviewsErr != nil {
				s.ctrl.RetryReviews()
			}
		}
		return false, nil
	}

	if s.ctrl.Mode() == ModeSearch {
		if line == "" {
			s.ctrl.ClearSearch()
		} else {
			s.ctrl.Search(line)
		}
		return false, nil
	}

	switch cmd {
	case "":
	case "select", "s":
		s.ctrl.Select(arg)
	case "add", "a":
		s.ctrl.AddApp(ctx, arg)
	case "refresh", "r":
		s.ctrl.Load()
	default:
		output.Error(s.out, fmt.Sprintf("unknown command %q. Type \"help\" for a list of commands.", cmd))
	}
	return false, nil
}

// draw renders the current state and, when requests are in flight, waits
// for them and renders again
func (s *Session) draw(ctx context.Context) error {
	st := s.ctrl.State()
	if err := Render(s.out, st); err != nil {
		return err
	}
	if !st.Fetching {
		return nil
	}

	if err := s.ctrl.Wait(ctx); err != nil {
		return err
	}
	s.logger.Debug("requests settled")
	return Render(s.out, s.ctrl.State())
}
