package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DefaultURL is the app-review API endpoint used when nothing is configured
	DefaultURL = "http://localhost:8080"
	// DefaultTimeout bounds a single API request
	DefaultTimeout = 30 * time.Second
	// DefaultAppsStaleTime is how long the apps list is reused without a new request
	DefaultAppsStaleTime = 2 * time.Minute
	// DefaultReviewsStaleTime is how long an app's reviews are reused without a new request
	DefaultReviewsStaleTime = 5 * time.Minute
	// DefaultLogLevel keeps the CLI quiet unless something goes wrong
	DefaultLogLevel = "warn"
	// DefaultOutput is the default output format
	DefaultOutput = "table"

	envPrefix = "APPREVIEWS"
	dirName   = ".appreviews"
)

var (
	cfgFile  string
	validate = validator.New()
)

// Settings is the resolved client configuration
type Settings struct {
	URL              string        `yaml:"url" validate:"required,http_url"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	AppsStaleTime    time.Duration `yaml:"appsStaleTime" validate:"gt=0"`
	ReviewsStaleTime time.Duration `yaml:"reviewsStaleTime" validate:"gt=0"`
	LogLevel         string        `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	Output           string        `yaml:"output" validate:"oneof=table json yaml"`
}

// InitConfig initializes the shared configuration system
func InitConfig() {
	SetDefaults(viper.GetViper())
	cobra.OnInitialize(loadConfig)
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("url", DefaultURL)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("appsStaleTime", DefaultAppsStaleTime)
	v.SetDefault("reviewsStaleTime", DefaultReviewsStaleTime)
	v.SetDefault("logLevel", DefaultLogLevel)
	v.SetDefault("output", DefaultOutput)
}

// AddFlags adds common configuration flags to a cobra command
func AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.appreviews/config.yaml)")
	flags.String("url", "", "app-review API endpoint")
	flags.Duration("timeout", 0, "per-request timeout")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "", "output format (table, json, yaml)")

	// Bind flags to viper
	viper.BindPFlag("url", flags.Lookup("url"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))
	viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	viper.BindPFlag("output", flags.Lookup("output"))
}

// loadConfig loads configuration from file and environment
func loadConfig() {
	if err := ReadIn(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ReadIn points v at the config file (explicit path or the default location)
// and the APPREVIEWS_* environment. A missing default file is not an error.
func ReadIn(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// camelCase keys do not map onto env names by themselves
	v.BindEnv("appsStaleTime", envPrefix+"_APPS_STALE_TIME")
	v.BindEnv("reviewsStaleTime", envPrefix+"_REVIEWS_STALE_TIME")
	v.BindEnv("logLevel", envPrefix+"_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Dir returns the directory holding the default config file
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load resolves and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		URL:              strings.TrimSpace(v.GetString("url")),
		Timeout:          v.GetDuration("timeout"),
		AppsStaleTime:    v.GetDuration("appsStaleTime"),
		ReviewsStaleTime: v.GetDuration("reviewsStaleTime"),
		LogLevel:         strings.ToLower(v.GetString("logLevel")),
		Output:           strings.ToLower(v.GetString("output")),
	}

	if err := validate.Struct(s); err != nil {
		return nil, describe(err)
	}
	return s, nil
}

// Current returns the settings of the global configuration
func Current() (*Settings, error) {
	return Load(viper.GetViper())
}

func describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fe := verrs[0]
	switch fe.Field() {
	case "URL":
		return fmt.Errorf("a valid http(s) API URL is required (set APPREVIEWS_URL env var, --url flag, or url in config file)")
	case "Output":
		return fmt.Errorf("unsupported output format %q (table, json, yaml)", fe.Value())
	case "LogLevel":
		return fmt.Errorf("unsupported log level %q (debug, info, warn, error)", fe.Value())
	default:
		return fmt.Errorf("invalid %s: %v", fe.Field(), fe.Value())
	}
}

// ConfigureRequest represents configuration input
type ConfigureRequest struct {
	URL      string
	LogLevel string
}

// ConfigureInteractive prompts for each setting, keeping the current value
// on an empty answer
func ConfigureInteractive(in io.Reader, out io.Writer, currentURL, currentLogLevel string) (*ConfigureRequest, error) {
	reader := bufio.NewReader(in)

	urlInput, err := prompt(reader, out, "API URL", currentURL)
	if err != nil {
		return nil, err
	}

	levelInput, err := prompt(reader, out, "Log level", currentLogLevel)
	if err != nil {
		return nil, err
	}

	if urlInput == "" {
		return nil, fmt.Errorf("URL is required")
	}

	return &ConfigureRequest{
		URL:      urlInput,
		LogLevel: levelInput,
	}, nil
}

func prompt(reader *bufio.Reader, out io.Writer, label, current string) (string, error) {
	fmt.Fprint(out, label)
	if current != "" {
		fmt.Fprintf(out, " [%s]", current)
	}
	fmt.Fprint(out, ": ")

	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		input = current
	}
	return input, nil
}

// SaveConfig validates req merged over the settings in v and writes the
// result to path, creating its directory. An empty path means the default
// config file.
func SaveConfig(v *viper.Viper, path string, req ConfigureRequest) (string, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	// Write a copy so the caller's overrides stay untouched
	out := viper.New()
	for _, key := range v.AllKeys() {
		val := v.Get(key)
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		out.Set(key, val)
	}
	out.Set("url", req.URL)
	if req.LogLevel != "" {
		out.Set("logLevel", req.LogLevel)
	}

	if _, err := Load(out); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := out.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
