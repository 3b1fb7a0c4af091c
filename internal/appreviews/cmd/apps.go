package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
	"github.com/sorenmh/appreviews/internal/appreviews/output"
	"github.com/sorenmh/appreviews/internal/appreviews/query"
	"github.com/sorenmh/appreviews/internal/appreviews/view"
)

var appsCmd = &cobra.Command{
	Use:     "apps",
	Aliases: []string{"app"},
	Short:   "Manage tracked apps",
	Long:    `List, view, and add the apps whose reviews are tracked.`,
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tracked apps",
	Long:  `List all apps the service is tracking reviews for.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.cache.Fetch(cmd.Context(), query.Query{
			Key: view.AppsKey,
			Fn: func(ctx context.Context) (any, error) {
				return s.client.FetchApps(ctx)
			},
			StaleTime: s.settings.AppsStaleTime,
			Enabled:   true,
		})
		out := cmd.OutOrStdout()
		if err != nil {
			msg, empty := view.AppsErrorMessage(err)
			if empty {
				output.Info(out, msg)
				return nil
			}
			s.logger.Debug("list apps failed", zap.Error(err))
			return errors.New(msg)
		}

		resp, _ := query.Data[*client.AppsResponse](snap)
		if resp == nil || len(resp.Data) == 0 {
			output.Info(out, view.AppsEmptyMessage)
			return nil
		}

		return output.Print(out, s.format(), resp, func() error {
			headers := []string{"ID", "NAME", "ADDED"}
			rows := make([][]string, 0, len(resp.Data))

			for _, app := range resp.Data {
				rows = append(rows, []string{
					app.ID,
					app.Name,
					output.FormatTimestamp(app.CreatedAt),
				})
			}

			return output.PrintTable(out, headers, rows)
		})
	},
}

var appsShowCmd = &cobra.Command{
	Use:   "show [app-id]",
	Short: "Show app details",
	Long:  `Show details for a single tracked app.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		appID := strings.TrimSpace(args[0])

		resp, err := s.client.FetchApp(cmd.Context(), appID)
		if err != nil {
			if status, ok := client.StatusOf(err); ok && status == http.StatusNotFound {
				return fmt.Errorf("app not found: %s", appID)
			}
			return fmt.Errorf("failed to get app: %w", err)
		}
		app := resp.Data

		out := cmd.OutOrStdout()
		format := s.format()
		if format == output.FormatJSON || format == output.FormatYAML {
			return output.Print(out, format, app, nil)
		}

		// Table format
		fmt.Fprintf(out, "App: %s\n\n", app.Name)
		fmt.Fprintf(out, "  ID:        %s\n", app.ID)
		if app.ThumbnailURL != "" {
			fmt.Fprintf(out, "  Thumbnail: %s\n", app.ThumbnailURL)
		}
		fmt.Fprintf(out, "  Added:     %s\n", output.FormatTimestamp(app.CreatedAt))
		fmt.Fprintf(out, "  Updated:   %s\n", output.FormatTimestamp(app.UpdatedAt))

		return nil
	},
}

var appsAddCmd = &cobra.Command{
	Use:   "add [app-id]",
	Short: "Add an app by App Store ID",
	Long: `Start tracking reviews for an app.

The app is looked up by its numeric App Store ID.

Example:
  appreviews apps add 1458862350`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := strings.TrimSpace(args[0])
		if appID == "" {
			return fmt.Errorf("app ID is required")
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.client.AddApp(cmd.Context(), appID); err != nil {
			s.logger.Debug("add app failed", zap.String("app_id", appID), zap.Error(err))
			return errors.New(view.AddErrorMessage(err))
		}

		output.Success(cmd.OutOrStdout(), fmt.Sprintf("App %s added", appID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
	appsCmd.AddCommand(appsListCmd)
	appsCmd.AddCommand(appsShowCmd)
	appsCmd.AddCommand(appsAddCmd)
}
