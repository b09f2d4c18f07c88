package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tetrisge/rsge/internal/config"
	"github.com/tetrisge/rsge/internal/credentials"
	"github.com/tetrisge/rsge/internal/logging"
	"github.com/tetrisge/rsge/rsge"
	"github.com/tetrisge/rsge/soap"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "rsge",
	Short: "rs.ge waybill and VAT invoice integration",
	Long: `rsge talks to the Georgian Revenue Service (rs.ge) SOAP API.

Configuration is read from a YAML file and RSGE_* environment variables.
The one-shot commands use RSGE_SERVICE_USER and RSGE_SERVICE_PASSWORD.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code := soap.ErrorCode(err); code != "" {
			fmt.Fprintln(os.Stderr, "code:", code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "rsge.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// app bundles what every command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	soap   *soap.Client
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: os.Stderr,
	})

	opts := []soap.Option{
		soap.WithRequestTimeout(cfg.RequestTimeout),
		soap.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, soap.WithUserAgent(cfg.UserAgent))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, soap.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		soap:   soap.NewClient(cfg.ServiceURL, opts...),
	}, nil
}

// localCredentials resolves the configured service user for one-shot
// commands.
func (a *app) localCredentials(ctx context.Context) (rsge.Credentials, error) {
	return credentials.NewStaticStore(rsge.Credentials{
		ServiceUser:     a.cfg.ServiceUser,
		ServicePassword: a.cfg.ServicePassword,
	}).Resolve(ctx, "cli")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
