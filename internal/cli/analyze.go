package cli

import (
	"context"
	"fmt"

	"fairhire/internal/audit"
	"fairhire/internal/common"
	"fairhire/internal/dataset"
	"fairhire/internal/errors"
	"fairhire/internal/fairness"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dataset-file]",
	Short: "Analyze hiring decisions for bias on one protected attribute",
	Long: `Analyze a dataset of applications (CSV, JSON or YAML) for bias on one
protected attribute such as gender or age_group.

The report includes:
- Per-group counts, selection rates and error rates
- Demographic parity, disparate impact, equal opportunity and equalized odds
- Violations against the configured thresholds, graded by severity
- A 0-100 fairness score with its badge, and recommendations

When the dataset has no ground-truth column, decisions stand in for labels and
the report carries a reduced-confidence caveat.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if analyzeLegacy {
			if analyzeConfig.OutputFormat != "" && analyzeConfig.OutputFormat != "json" {
				return fmt.Errorf("--legacy output is only available as json")
			}
			analyzeConfig.OutputFormat = "json"
		}
		return resolveFormat(cmd, &analyzeConfig)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig    common.CommandConfig
	analyzeAttribute string
	analyzeLegacy    bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeAttribute, "attribute", "a", "", "Protected attribute column to analyze (required)")
	analyzeCmd.Flags().BoolVar(&analyzeLegacy, "legacy", false, "Emit the flat legacy analysis shape (json only)")
	_ = analyzeCmd.MarkFlagRequired("attribute")
	addColumnFlags(analyzeCmd)
	addOutputFlags(analyzeCmd, &analyzeConfig)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	overrides, err := columnOverrides(cmd)
	if err != nil {
		return err
	}

	svc, _, err := newAuditService(ctx, cfg, logger, serviceDeps{})
	if err != nil {
		return fmt.Errorf("failed to create audit service: %w", err)
	}
	defer closeService(svc, logger)

	var outcome fairness.Outcome
	analyze := func(ctx context.Context, table *dataset.Table) (any, error) {
		outcome, err = svc.Analyze(ctx, audit.AnalyzeRequest{
			Dataset:         table,
			Attribute:       analyzeAttribute,
			ColumnOverrides: overrides,
		})
		if err != nil {
			return nil, err
		}
		if analyzeLegacy && outcome.OK() {
			return fairness.LegacyView(outcome.Report), nil
		}
		return outcome, nil
	}

	logDetails := func(table *dataset.Table, cc common.CommandConfig) {
		logger.Info("Starting fairness analysis",
			"dataset", args[0],
			"rows", table.Len(),
			"attribute", analyzeAttribute,
			"output_format", cc.OutputFormat,
			"output_file", cc.OutputFile)
	}

	if err := common.RunCommand(ctx, logger, cfg.App.MaxFileSize, analyzeConfig, args,
		loadDatasetArg, analyze, logDetails); err != nil {
		return err
	}
	return analysisFailure(outcome)
}

// analysisFailure turns a failed outcome into a command error once it has been printed
func analysisFailure(outcome fairness.Outcome) error {
	if outcome.OK() {
		return nil
	}
	code := errors.ErrCodeInvalidValue
	switch outcome.ErrorKind {
	case fairness.ErrorEmptyDataset:
		code = errors.ErrCodeEmptyDataset
	case fairness.ErrorMissingColumn:
		code = errors.ErrCodeMissingColumn
	case fairness.ErrorShapeMismatch:
		code = errors.ErrCodeShapeMismatch
	}
	return errors.NewAnalysisError(code, outcome.Error, outcome.Err())
}
