package cli

import (
	"context"
	"fmt"

	"fairhire/internal/audit"
	"fairhire/internal/common"
	"fairhire/internal/dataset"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit [dataset-file]",
	Short: "Audit one job's applications across several protected attributes",
	Long: `Audit a dataset of applications for one job across several protected
attributes (by default the configured list, usually gender, age_group and
ethnicity). Attributes missing from the dataset are skipped and listed.

Optionally:
- --narrative asks the configured AI model for a plain-language summary
- --persist keeps the report in the configured store (memory or redis)
- --publish emits an audit.completed event to Kafka`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if auditOpts.narrative && !getConfigFromContext(cmd.Context()).Narrative.Enabled {
			return fmt.Errorf("--narrative requires narrative.enabled in the configuration")
		}
		return resolveFormat(cmd, &auditConfig)
	},
	RunE: runAudit,
}

var (
	auditConfig common.CommandConfig
	auditOpts   struct {
		attributes []string
		jobID      string
		narrative  bool
		persist    bool
		publish    bool
	}
)

func init() {
	auditCmd.Flags().StringSliceVar(&auditOpts.attributes, "attributes", nil, "Protected attributes to audit (default from config)")
	auditCmd.Flags().StringVar(&auditOpts.jobID, "job-id", "", "Job the applications belong to")
	auditCmd.Flags().BoolVar(&auditOpts.narrative, "narrative", false, "Add an AI-written summary of the audit")
	auditCmd.Flags().BoolVar(&auditOpts.persist, "persist", false, "Store the report in the configured store")
	auditCmd.Flags().BoolVar(&auditOpts.publish, "publish", false, "Publish an audit.completed event")
	addColumnFlags(auditCmd)
	addOutputFlags(auditCmd, &auditConfig)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	overrides, err := columnOverrides(cmd)
	if err != nil {
		return err
	}

	svc, _, err := newAuditService(ctx, cfg, logger, serviceDeps{
		store:     auditOpts.persist,
		publisher: auditOpts.publish,
		narrator:  auditOpts.narrative,
	})
	if err != nil {
		return fmt.Errorf("failed to create audit service: %w", err)
	}
	defer closeService(svc, logger)

	run := func(ctx context.Context, table *dataset.Table) (*audit.AuditResult, error) {
		return svc.Audit(ctx, audit.AuditRequest{
			Dataset:         table,
			JobID:           auditOpts.jobID,
			Attributes:      auditOpts.attributes,
			ColumnOverrides: overrides,
			Narrative:       auditOpts.narrative,
		})
	}

	logDetails := func(table *dataset.Table, cc common.CommandConfig) {
		logger.Info("Starting fairness audit",
			"dataset", args[0],
			"rows", table.Len(),
			"job_id", auditOpts.jobID,
			"attributes", auditOpts.attributes,
			"narrative", auditOpts.narrative,
			"output_format", cc.OutputFormat)
	}

	return common.RunCommand(ctx, logger, cfg.App.MaxFileSize, auditConfig, args,
		loadDatasetArg, run, logDetails)
}
