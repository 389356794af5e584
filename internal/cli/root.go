package cli

import (
	"context"

	"fairhire/internal/config"
	"fairhire/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "fairhire",
	Short: "Fairness and bias auditing for hiring decisions",
	Long: `fairhire measures whether hiring decisions treat protected groups fairly.
It computes per-group selection and error rates, cross-group fairness metrics
(demographic parity, disparate impact, equal opportunity, equalized odds,
predictive parity, Theil index), flags violations against configurable
thresholds and grades each analysis with a 0-100 fairness score.

Run it against a dataset file from the command line, or start the HTTP API
with 'fairhire serve'.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(badgeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
