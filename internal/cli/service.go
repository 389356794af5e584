package cli

import (
	"context"
	"fmt"
	"time"

	"fairhire/internal/audit"
	"fairhire/internal/common"
	"fairhire/internal/config"
	"fairhire/internal/dataset"
	"fairhire/internal/errors"
	"fairhire/internal/events"
	"fairhire/internal/narrative"
	"fairhire/internal/observability"
	"fairhire/internal/store"

	"github.com/spf13/cobra"
)

const serviceCloseTimeout = 10 * time.Second

// serviceDeps selects the optional collaborators a command needs
type serviceDeps struct {
	store     bool
	publisher bool
	narrator  bool
	telemetry *observability.Manager
}

// newAuditService wires an audit service from cfg. The returned threshold
// source is the one the service reads, so a profile watcher can update it.
func newAuditService(ctx context.Context, cfg *config.Config, logger *errors.Logger, deps serviceDeps) (*audit.Service, *config.ThresholdSource, error) {
	source := config.NewThresholdSource(cfg.Fairness.Thresholds)
	opts := audit.Options{
		Thresholds: source,
		Columns:    cfg.Fairness.Columns(),
		Attributes: cfg.Fairness.ProtectedAttributes,
		Metrics:    deps.telemetry.Metrics(),
		Logger:     logger,
	}

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if deps.store {
		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return nil, nil, errors.NewStorageError(errors.ErrCodeStoreFailed,
				fmt.Sprintf("Failed to open %s report store", cfg.Store.Backend), err)
		}
		closers = append(closers, st.Close)
		opts.Store = st
		opts.StoreBackend = cfg.Store.Backend
	}

	if deps.publisher {
		pub, err := events.New(cfg.Events, logger)
		if err != nil {
			cleanup()
			return nil, nil, errors.NewNetworkError(errors.ErrCodePublishFailed, "Failed to create audit event publisher", err)
		}
		closers = append(closers, pub.Close)
		opts.Publisher = pub
	}

	if deps.narrator {
		n, err := narrative.New(ctx, cfg.Narrative, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.Narrator = n
	}

	svc, err := audit.NewService(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, source, nil
}

// closeService releases the service and logs instead of failing the command
func closeService(svc *audit.Service, logger *errors.Logger) {
	if err := svc.Close(serviceCloseTimeout); err != nil {
		logger.LogError(err, "Failed to close audit service")
	}
}

// addOutputFlags registers -o and --format on cmd
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return getConfigFromContext(cmd.Context()).App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// addColumnFlags registers the per-run column overrides on cmd
func addColumnFlags(cmd *cobra.Command) {
	cmd.Flags().String("decision-column", "", "Column holding the hiring decision (default from config)")
	cmd.Flags().String("ground-truth-column", "", "Column holding the ground-truth outcome (default from config)")
	cmd.Flags().Int("favorable", 1, "Outcome value that counts as favorable (default from config)")
}

// columnOverrides reads the flags addColumnFlags registered. Unset flags keep
// the configured conventions.
func columnOverrides(cmd *cobra.Command) (audit.ColumnOverrides, error) {
	var o audit.ColumnOverrides
	var err error
	if o.DecisionColumn, err = cmd.Flags().GetString("decision-column"); err != nil {
		return o, err
	}
	if o.GroundTruthColumn, err = cmd.Flags().GetString("ground-truth-column"); err != nil {
		return o, err
	}
	if cmd.Flags().Changed("favorable") {
		favorable, err := cmd.Flags().GetInt("favorable")
		if err != nil {
			return o, err
		}
		o.FavorableLabel = &favorable
	}
	return o, nil
}

// resolveFormat applies the configured default format and rejects unsupported ones
func resolveFormat(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	format, err := common.ResolveOutputFormat(cc.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	cc.OutputFormat = format
	return nil
}

func loadDatasetArg(fp *common.FileProcessor, args []string) (*dataset.Table, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 dataset file, got %d", len(args))
	}
	return fp.LoadDataset(args[0])
}
