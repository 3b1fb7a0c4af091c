package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
	"github.com/sorenmh/appreviews/internal/appreviews/output"
	"github.com/sorenmh/appreviews/internal/appreviews/query"
	"github.com/sorenmh/appreviews/internal/appreviews/view"
	"github.com/sorenmh/appreviews/internal/shared/config"
	"github.com/sorenmh/appreviews/internal/shared/logging"
)

var rootCmd = &cobra.Command{
	Use:   "appreviews",
	Short: "Browse recent App Store reviews",
	Long: `appreviews is a command-line client for the app-review service.

It allows you to:
  - List the apps being tracked and add new ones by App Store ID
  - View the reviews an app received in the last 48 hours
  - Browse apps and reviews interactively

Configuration:
  Environment variables:
    APPREVIEWS_URL                 - app-review API endpoint (default http://localhost:8080)
    APPREVIEWS_TIMEOUT             - per-request timeout (default 30s)
    APPREVIEWS_APPS_STALE_TIME     - how long the apps list is reused (default 2m)
    APPREVIEWS_REVIEWS_STALE_TIME  - how long reviews are reused (default 5m)
    APPREVIEWS_LOG_LEVEL           - debug, info, warn or error (default warn)

  Config file (~/.appreviews/config.yaml):
    url: https://reviews.example.com
    timeout: 10s

  CLI flags override environment variables and config file.

Example usage:
  appreviews apps list
  appreviews apps add 1458862350
  appreviews reviews 1458862350
  appreviews browse`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.InitConfig()
	config.AddFlags(rootCmd)
}

// session holds what a single command invocation needs to talk to the service
type session struct {
	settings *config.Settings
	logger   *zap.Logger
	client   *client.Client
	cache    *query.Cache
}

// newSession validates the configuration and builds the client stack from it
func newSession() (*session, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, err
	}

	c := client.NewClient(settings.URL, client.Options{
		Timeout:   settings.Timeout,
		Logger:    logger,
		UserAgent: fmt.Sprintf("appreviews/%s", Version),
	})

	logger.Debug("configuration loaded",
		zap.String("url", c.BaseURL()),
		zap.Duration("timeout", settings.Timeout),
	)

	return &session{
		settings: settings,
		logger:   logger,
		client:   c,
		cache:    query.New(query.WithLogger(logger)),
	}, nil
}

func (s *session) Close() {
	s.cache.Close()
	_ = s.logger.Sync()
}

func (s *session) format() output.Format {
	return output.Format(s.settings.Output)
}

func (s *session) controller(mode view.Mode) *view.Controller {
	return view.NewController(s.client, s.cache, view.Options{
		Mode:             mode,
		AppsStaleTime:    s.settings.AppsStaleTime,
		ReviewsStaleTime: s.settings.ReviewsStaleTime,
		Logger:           s.logger,
	})
}
