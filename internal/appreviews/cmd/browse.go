package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sorenmh/appreviews/internal/appreviews/view"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse apps and their reviews interactively",
	Long: `Open an interactive screen listing the tracked apps.

Select an app to see its recent reviews, or add a new app by App Store ID.
Type "help" at the prompt for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, view.ModeBrowse)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Look up reviews by App Store ID interactively",
	Long: `Open an interactive screen that shows the recent reviews of any app.

Type an App Store ID and press enter to search. An empty line clears the search.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, view.ModeSearch)
	},
}

func runSession(cmd *cobra.Command, mode view.Mode) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl := s.controller(mode)
	return view.NewSession(ctrl, cmd.InOrStdin(), cmd.OutOrStdout(), s.logger).Run(cmd.Context())
}

func init() {
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(searchCmd)
}
