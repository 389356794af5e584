package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fairhire/internal/config"
	apperrors "fairhire/internal/errors"
	"fairhire/internal/fairness"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const applicationsCSV = `gender,age_group,decision
male,young,1
male,young,1
male,old,1
male,old,1
male,old,0
female,young,1
female,young,0
female,old,0
female,old,0
female,old,0
`

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
		Fairness: config.FairnessConfig{
			Thresholds:          fairness.DefaultThresholds(),
			DecisionColumn:      "decision",
			GroundTruthColumn:   "ground_truth",
			FavorableLabel:      1,
			ProtectedAttributes: []string{"gender", "age_group", "ethnicity"},
		},
		Store: config.StoreConfig{Backend: "memory", MemoryCapacity: 10},
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return Execute(context.Background(), testConfig(), apperrors.NewNopLogger())
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestAnalyzeCommand(t *testing.T) {
	dataset := writeInput(t, "apps.csv", applicationsCSV)

	t.Run("biased dataset", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, execute(t, "analyze", dataset, "--attribute", "gender", "-o", out, "--format", "json"))

		var outcome fairness.Outcome
		readJSON(t, out, &outcome)
		require.NotNil(t, outcome.Report)
		assert.True(t, outcome.BiasDetected)
		assert.Equal(t, []string{"female", "male"}, outcome.Report.Summary.GroupsAnalyzed)
		assert.Equal(t, fairness.LabelSourceDecisions, outcome.Report.Summary.LabelSource)
	})

	t.Run("missing attribute column", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "report.json")
		err := execute(t, "analyze", dataset, "--attribute", "ethnicity", "-o", out, "--format", "json")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingColumn))

		var outcome fairness.Outcome
		readJSON(t, out, &outcome)
		assert.Equal(t, fairness.ErrorMissingColumn, outcome.ErrorKind)
	})
}

func TestAuditCommand(t *testing.T) {
	dataset := writeInput(t, "apps.csv", applicationsCSV)
	out := filepath.Join(t.TempDir(), "audit.json")

	require.NoError(t, execute(t, "audit", dataset, "--job-id", "job-7", "-o", out, "--format", "json"))

	var result struct {
		Report    fairness.AuditReport `json:"report"`
		Persisted bool                 `json:"persisted"`
	}
	readJSON(t, out, &result)
	assert.Equal(t, "job-7", result.Report.JobID)
	assert.Equal(t, []string{"gender", "age_group"}, result.Report.Attributes)
	assert.Equal(t, []string{"ethnicity"}, result.Report.SkippedAttributes)
	assert.True(t, result.Report.OverallBiasDetected)
	assert.False(t, result.Persisted)
}

func TestEvaluateCommand(t *testing.T) {
	arrays := writeInput(t, "arrays.json",
		`{"predictions":[1,1,0,0],"labels":[1,0,1,0],"groups":["a","a","b","b"],"attribute":"team"}`)
	out := filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, execute(t, "evaluate", arrays, "-o", out, "--format", "json"))

	var report fairness.FairnessReport
	readJSON(t, out, &report)
	assert.Equal(t, "team", report.Summary.ProtectedAttribute)
	assert.Equal(t, fairness.LabelSourceGroundTruth, report.Summary.LabelSource)
	assert.Equal(t, 1.0, report.GroupStatistics["a"].SelectionRate)

	mismatch := writeInput(t, "arrays.json", `{"predictions":[1,0],"groups":["a"]}`)
	err := execute(t, "evaluate", mismatch, "-o", out, "--format", "json")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeShapeMismatch))

	empty := writeInput(t, "arrays.json", `{"predictions":[],"groups":[]}`)
	err = execute(t, "evaluate", empty, "-o", out, "--format", "json")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyDataset))
}

func TestBadgeCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "badge.json")
	require.NoError(t, execute(t, "badge", "85", "-o", out, "--format", "json"))

	var badge map[string]any
	readJSON(t, out, &badge)
	assert.Equal(t, "A", badge["level"])
	assert.Equal(t, 85.0, badge["score"])

	assert.Error(t, execute(t, "badge", "101", "--format", "json"))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "0", want: 0},
		{raw: "100", want: 100},
		{raw: "72.5", want: 72.5},
		{raw: "-1", wantErr: true},
		{raw: "100.01", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseScore(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnOverrides(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		addColumnFlags(cmd)
		return cmd
	}

	cmd := newCmd()
	o, err := columnOverrides(cmd)
	require.NoError(t, err)
	assert.Empty(t, o.DecisionColumn)
	assert.Nil(t, o.FavorableLabel, "an unset --favorable keeps the configured label")

	cmd = newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--decision-column", "hired", "--favorable", "0"}))
	o, err = columnOverrides(cmd)
	require.NoError(t, err)
	assert.Equal(t, "hired", o.DecisionColumn)
	require.NotNil(t, o.FavorableLabel)
	assert.Equal(t, 0, *o.FavorableLabel)
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().AddFlagSet(serveCmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9000", "--tls-mode", "server"}))

	sc := config.ServerConfig{Host: "localhost", Port: "8080"}
	applyServeFlags(cmd, &sc)
	assert.Equal(t, "9000", sc.Port)
	assert.Equal(t, "localhost", sc.Host)
	assert.Equal(t, "server", sc.TLS.Mode)
}
