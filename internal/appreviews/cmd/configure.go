package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/sorenmh/appreviews/internal/appreviews/output"
	"github.com/sorenmh/appreviews/internal/shared/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure appreviews settings interactively",
	Long: `Configure appreviews settings interactively or via command line flags.

This command will prompt you for the API URL and log level unless --url is
given. The settings are saved to ~/.appreviews/config.yaml by default, or to
the file named by --config.

Example:
  appreviews configure
  appreviews configure --url https://reviews.example.com --log-level info`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	// Get current values from config
	currentURL := viper.GetString("url")
	currentLogLevel := viper.GetString("logLevel")

	var req *config.ConfigureRequest
	var err error

	// If the URL flag is provided, skip the prompts
	if cmd.Flags().Changed("url") {
		req = &config.ConfigureRequest{
			URL:      currentURL,
			LogLevel: currentLogLevel,
		}
	} else {
		if f, ok := cmd.InOrStdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("stdin is not a terminal; pass --url to configure non-interactively")
		}

		req, err = config.ConfigureInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), currentURL, currentLogLevel)
		if err != nil {
			return err
		}
	}

	path, _ := cmd.Flags().GetString("config")
	written, err := config.SaveConfig(viper.GetViper(), path, *req)
	if err != nil {
		return err
	}

	output.Success(cmd.OutOrStdout(), fmt.Sprintf("Configuration saved to %s", written))
	return nil
}
