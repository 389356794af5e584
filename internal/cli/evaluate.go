package cli

import (
	"context"
	"fmt"

	"fairhire/internal/audit"
	"fairhire/internal/common"
	"fairhire/internal/fairness"
	"fairhire/internal/types"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [arrays-file]",
	Short: "Evaluate parallel prediction, label and group arrays",
	Long: `Evaluate a JSON file of parallel arrays:

  {"predictions": [1, 0, ...], "labels": [1, 1, ...], "groups": ["a", "b", ...],
   "favorableLabel": 1, "attribute": "gender"}

labels is optional; without it decisions stand in for ground truth and the
report carries a reduced-confidence caveat. All arrays must have equal length.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &evaluateConfig)
	},
	RunE: runEvaluate,
}

var evaluateConfig common.CommandConfig

func init() {
	addOutputFlags(evaluateCmd, &evaluateConfig)
}

func loadEvaluateInput(fp *common.FileProcessor, args []string) (types.EvaluateInput, error) {
	var in types.EvaluateInput
	if len(args) != 1 {
		return in, fmt.Errorf("expected 1 arrays file, got %d", len(args))
	}
	err := fp.ReadJSON(args[0], &in)
	return in, err
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	svc, _, err := newAuditService(ctx, cfg, logger, serviceDeps{})
	if err != nil {
		return fmt.Errorf("failed to create audit service: %w", err)
	}
	defer closeService(svc, logger)

	evaluate := func(ctx context.Context, in types.EvaluateInput) (*fairness.FairnessReport, error) {
		return svc.Evaluate(ctx, audit.EvaluateRequest{
			Predictions:    in.Predictions,
			Labels:         in.Labels,
			Groups:         in.Groups,
			FavorableLabel: in.Favorable(),
			Attribute:      in.Attribute,
		})
	}

	logDetails := func(in types.EvaluateInput, cc common.CommandConfig) {
		logger.Info("Starting array evaluation",
			"file", args[0],
			"observations", len(in.Predictions),
			"has_labels", in.Labels != nil,
			"output_format", cc.OutputFormat)
	}

	return common.RunCommand(ctx, logger, cfg.App.MaxFileSize, evaluateConfig, args,
		loadEvaluateInput, evaluate, logDetails)
}
