package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version of appreviews
	Version = "dev"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

var cliVersionCmd = &cobra.Command{
	Use:     "cli-version",
	Aliases: []string{"version"},
	Short:   "Show appreviews version",
	Long:    `Display the version information for appreviews.`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "appreviews version %s\n", Version)
		fmt.Fprintf(out, "commit: %s\n", GitCommit)
		fmt.Fprintf(out, "built: %s\n", BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(cliVersionCmd)
}
