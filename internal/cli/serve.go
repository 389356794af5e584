package cli

import (
	"context"
	"fmt"

	"fairhire/internal/config"
	"fairhire/internal/errors"
	"fairhire/internal/observability"
	"fairhire/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fairness audit HTTP API",
	Long: `Start an HTTP server that exposes the fairness engine as a REST API.

Available endpoints:
- POST /v1/analyze: Analyze one protected attribute of a dataset
- POST /v1/audits: Audit a job's applications across protected attributes
- GET /v1/audits/{id}: Fetch a stored audit report
- POST /v1/evaluate: Evaluate parallel prediction, label and group arrays
- POST /v1/rates: Metrics from precomputed per-group rates
- GET /v1/badges/{score}: Badge for a fairness score
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

With fairness.watchProfile set, edits to the threshold profile file take
effect without a restart.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies the flags the user set over the server config
func applyServeFlags(cmd *cobra.Command, sc *config.ServerConfig) {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &sc.Port},
		{"host", &sc.Host},
		{"tls-mode", &sc.TLS.Mode},
		{"cert-file", &sc.TLS.CertFile},
		{"key-file", &sc.TLS.KeyFile},
		{"ca-file", &sc.TLS.CAFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, &cfg.Server)
	if err := cfg.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewManager(observability.FromConfig(cfg, Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	svc, source, err := newAuditService(ctx, cfg, logger, serviceDeps{
		store:     true,
		publisher: true,
		narrator:  true,
		telemetry: om,
	})
	if err != nil {
		_ = om.Shutdown(context.Background())
		return fmt.Errorf("failed to create audit service: %w", err)
	}

	if cfg.Fairness.WatchProfile && cfg.Fairness.ProfileFile != "" {
		watcher, err := startProfileWatcher(cfg, source, om.Metrics(), logger)
		if err != nil {
			closeService(svc, logger)
			_ = om.Shutdown(context.Background())
			return err
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop threshold profile watcher")
			}
		}()
	}

	srv, err := server.NewServer(cfg, svc, om, server.ServerConfigFrom(cfg, Version), logger)
	if err != nil {
		closeService(svc, logger)
		_ = om.Shutdown(context.Background())
		return err
	}
	return srv.Start(ctx)
}

func startProfileWatcher(cfg *config.Config, source *config.ThresholdSource, metrics *observability.Metrics, logger *errors.Logger) (*config.ProfileWatcher, error) {
	watcher, err := config.NewProfileWatcher(cfg.Fairness.ProfileFile, cfg.Fairness.BaseThresholds(),
		source, cfg.Fairness.DebounceDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create threshold profile watcher: %w", err)
	}
	watcher.OnReload(func(err error) {
		metrics.RecordProfileReload(context.Background(), err)
	})
	if err := watcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start threshold profile watcher: %w", err)
	}
	return watcher, nil
}
