package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"fairhire/internal/common"
	"fairhire/internal/types"

	"github.com/spf13/cobra"
)

var badgeCmd = &cobra.Command{
	Use:   "badge [score]",
	Short: "Show the badge for a fairness score",
	Long:  "Map a 0-100 fairness score to its letter grade, label and color.",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &badgeConfig)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := getConfigFromContext(ctx)
		logger := getLoggerFromContext(ctx)

		return common.RunCommand(ctx, logger, cfg.App.MaxFileSize, badgeConfig, args,
			func(_ *common.FileProcessor, args []string) (float64, error) {
				return parseScore(args[0])
			},
			func(_ context.Context, score float64) (types.BadgeResult, error) {
				return types.NewBadgeResult(score), nil
			},
			nil)
	},
}

var badgeConfig common.CommandConfig

func init() {
	addOutputFlags(badgeCmd, &badgeConfig)
}

// parseScore accepts a finite number between 0 and 100
func parseScore(raw string) (float64, error) {
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(score) {
		return 0, fmt.Errorf("invalid score %q: must be a number", raw)
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("invalid score %q: must be between 0 and 100", raw)
	}
	return score, nil
}
