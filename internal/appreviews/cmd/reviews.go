package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
	"github.com/sorenmh/appreviews/internal/appreviews/output"
	"github.com/sorenmh/appreviews/internal/appreviews/query"
	"github.com/sorenmh/appreviews/internal/appreviews/view"
)

const noRecentReviews = "No recent reviews found for this app."

var reviewsCmd = &cobra.Command{
	Use:   "reviews [app-id]",
	Short: "Show recent reviews for an app",
	Long: `Show the reviews an app received in the last 48 hours.

Example:
  appreviews reviews 1458862350
  appreviews reviews 1458862350 -o json`,
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

		snap, err := s.cache.Fetch(cmd.Context(), query.Query{
			Key: view.ReviewsKey(appID),
			Fn: func(ctx context.Context) (any, error) {
				return s.client.FetchReviews(ctx, appID)
			},
			StaleTime: s.settings.ReviewsStaleTime,
			Enabled:   true,
		})
		if err != nil {
			s.logger.Debug("fetch reviews failed", zap.String("app_id", appID), zap.Error(err))
			msg := view.ReviewsErrorMessage(err)
			return fmt.Errorf("%s. %s", msg.Title, msg.Description)
		}

		resp, _ := query.Data[*client.ReviewsResponse](snap)
		if resp == nil {
			resp = &client.ReviewsResponse{}
		}

		out := cmd.OutOrStdout()
		format := s.format()
		if format == output.FormatTable && len(resp.Data) == 0 {
			output.Info(out, noRecentReviews)
			return nil
		}

		return output.Print(out, format, resp, func() error {
			headers := []string{"RATING", "DATE", "AGE", "AUTHOR", "TITLE"}
			rows := make([][]string, 0, len(resp.Data))
			now := time.Now()

			for _, review := range resp.Data {
				rows = append(rows, []string{
					fmt.Sprintf("%s %d/%d", review.Stars(), review.Rating, client.MaxRating),
					output.FormatTime(review.SentAt),
					output.FormatTimeAgo(review.SentAt, now),
					review.Author,
					review.Title,
				})
			}

			return output.PrintTable(out, headers, rows)
		})
	},
}

func init() {
	rootCmd.AddCommand(reviewsCmd)
}
