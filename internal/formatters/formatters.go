package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"fairhire/internal/audit"
	"fairhire/internal/fairness"
	"fairhire/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the registry the CLI output handler uses
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "FairnessReport", &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", "FairnessReport", &ReportMarkdownFormatter{})
	registry.RegisterFormatter("text", "Outcome", &OutcomeTextFormatter{})
	registry.RegisterFormatter("markdown", "Outcome", &OutcomeMarkdownFormatter{})
	registry.RegisterFormatter("text", "AuditResult", &AuditTextFormatter{})
	registry.RegisterFormatter("markdown", "AuditResult", &AuditMarkdownFormatter{})
	registry.RegisterFormatter("text", "BadgeResult", &BadgeTextFormatter{})
	registry.RegisterFormatter("markdown", "BadgeResult", &BadgeMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *fairness.FairnessReport:
		return "FairnessReport"
	case fairness.Outcome:
		return "Outcome"
	case *audit.AuditResult:
		return "AuditResult"
	case types.BadgeResult:
		return "BadgeResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ReportTextFormatter renders one attribute's fairness report as plain text
type ReportTextFormatter struct{}

func (rtf *ReportTextFormatter) Format(data any) (string, error) {
	report, ok := data.(*fairness.FairnessReport)
	if !ok || report == nil {
		return "", fmt.Errorf("expected *FairnessReport, got %T", data)
	}
	var output strings.Builder
	writeReportText(&output, report)
	return output.String(), nil
}

func (rtf *ReportTextFormatter) SupportedType() string {
	return "FairnessReport"
}

func writeReportText(output *strings.Builder, r *fairness.FairnessReport) {
	s := r.Summary
	fmt.Fprintf(output, "=== FAIRNESS REPORT: %s ===\n\n", s.ProtectedAttribute)
	fmt.Fprintf(output, "Applications: %d\n", s.TotalCount)
	fmt.Fprintf(output, "Groups: %s\n", strings.Join(s.GroupsAnalyzed, ", "))
	fmt.Fprintf(output, "Fairness score: %.2f/100 (%s - %s)\n", s.FairnessScore, s.FairnessBadge.Level, s.FairnessBadge.Label)
	fmt.Fprintf(output, "Bias detected: %s (severity: %s, violations: %d)\n", yesNo(s.BiasDetected), s.OverallSeverity, s.TotalViolations)
	fmt.Fprintf(output, "Label source: %s\n\n", s.LabelSource)

	for _, caveat := range r.Caveats {
		fmt.Fprintf(output, "NOTE: %s\n\n", caveat)
	}

	output.WriteString("=== GROUP STATISTICS ===\n")
	for _, group := range fairness.SortedGroups(r.GroupStatistics) {
		g := r.GroupStatistics[group]
		fmt.Fprintf(output, "%s: count=%d selection_rate=%.4f tpr=%.4f fpr=%.4f precision=%.4f\n",
			group, g.Count, g.SelectionRate, g.TruePositiveRate, g.FalsePositiveRate, g.Precision)
	}
	output.WriteString("\n")

	m := r.FairnessMetrics
	output.WriteString("=== FAIRNESS METRICS ===\n")
	fmt.Fprintf(output, "Demographic parity difference: %.4f\n", m.DemographicParityDifference)
	fmt.Fprintf(output, "Demographic parity ratio: %.4f\n", m.DemographicParityRatio)
	fmt.Fprintf(output, "Equal opportunity difference: %.4f\n", m.EqualOpportunityDifference)
	fmt.Fprintf(output, "Average odds difference: %.4f\n", m.AverageOddsDifference)
	fmt.Fprintf(output, "Predictive parity difference: %.4f\n", m.PredictiveParityDifference)
	fmt.Fprintf(output, "False positive rate difference: %.4f\n", m.FalsePositiveRateDifference)
	fmt.Fprintf(output, "False negative rate difference: %.4f\n", m.FalseNegativeRateDifference)
	fmt.Fprintf(output, "Theil index: %.4f\n", m.TheilIndex)
	if len(m.DisparateImpact) > 0 {
		output.WriteString("Disparate impact:\n")
		for _, pair := range sortedPairs(m.DisparateImpact) {
			fmt.Fprintf(output, "  %s: %.4f\n", pair, m.DisparateImpact[pair])
		}
	}
	output.WriteString("\n")

	if len(r.BiasAnalysis.Violations) > 0 {
		output.WriteString("=== VIOLATIONS ===\n")
		for i, v := range r.BiasAnalysis.Violations {
			fmt.Fprintf(output, "%d. [%s] %s\n", i+1, v.Severity, v.Description)
		}
		output.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		output.WriteString("=== RECOMMENDATIONS ===\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(output, "%d. %s\n", i+1, rec)
		}
	}
}

// ReportMarkdownFormatter renders one attribute's fairness report as markdown
type ReportMarkdownFormatter struct{}

func (rmf *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(*fairness.FairnessReport)
	if !ok || report == nil {
		return "", fmt.Errorf("expected *FairnessReport, got %T", data)
	}
	var output strings.Builder
	writeReportMarkdown(&output, report, "#")
	return output.String(), nil
}

func (rmf *ReportMarkdownFormatter) SupportedType() string {
	return "FairnessReport"
}

// writeReportMarkdown nests the report under the given heading level
func writeReportMarkdown(output *strings.Builder, r *fairness.FairnessReport, heading string) {
	s := r.Summary
	fmt.Fprintf(output, "%s Fairness Report: %s\n\n", heading, s.ProtectedAttribute)
	fmt.Fprintf(output, "**Fairness Score:** %.2f/100 (%s, %s)\n\n", s.FairnessScore, s.FairnessBadge.Level, s.FairnessBadge.Label)
	fmt.Fprintf(output, "**Bias Detected:** %s (severity: %s, violations: %d)\n\n", yesNo(s.BiasDetected), s.OverallSeverity, s.TotalViolations)
	fmt.Fprintf(output, "**Applications:** %d, **Label source:** %s\n\n", s.TotalCount, s.LabelSource)

	for _, caveat := range r.Caveats {
		fmt.Fprintf(output, "> %s\n\n", caveat)
	}

	fmt.Fprintf(output, "%s# Group Statistics\n\n", heading)
	output.WriteString("| Group | Count | Selection rate | TPR | FPR | Precision |\n")
	output.WriteString("|---|---|---|---|---|---|\n")
	for _, group := range fairness.SortedGroups(r.GroupStatistics) {
		g := r.GroupStatistics[group]
		fmt.Fprintf(output, "| %s | %d | %.4f | %.4f | %.4f | %.4f |\n",
			group, g.Count, g.SelectionRate, g.TruePositiveRate, g.FalsePositiveRate, g.Precision)
	}
	output.WriteString("\n")

	m := r.FairnessMetrics
	fmt.Fprintf(output, "%s# Fairness Metrics\n\n", heading)
	output.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(output, "| Demographic parity difference | %.4f |\n", m.DemographicParityDifference)
	fmt.Fprintf(output, "| Demographic parity ratio | %.4f |\n", m.DemographicParityRatio)
	fmt.Fprintf(output, "| Equal opportunity difference | %.4f |\n", m.EqualOpportunityDifference)
	fmt.Fprintf(output, "| Average odds difference | %.4f |\n", m.AverageOddsDifference)
	fmt.Fprintf(output, "| Predictive parity difference | %.4f |\n", m.PredictiveParityDifference)
	fmt.Fprintf(output, "| False positive rate difference | %.4f |\n", m.FalsePositiveRateDifference)
	fmt.Fprintf(output, "| False negative rate difference | %.4f |\n", m.FalseNegativeRateDifference)
	fmt.Fprintf(output, "| Theil index | %.4f |\n", m.TheilIndex)
	for _, pair := range sortedPairs(m.DisparateImpact) {
		fmt.Fprintf(output, "| Disparate impact %s | %.4f |\n", pair, m.DisparateImpact[pair])
	}
	output.WriteString("\n")

	if len(r.BiasAnalysis.Violations) > 0 {
		fmt.Fprintf(output, "%s# Violations\n\n", heading)
		for _, v := range r.BiasAnalysis.Violations {
			fmt.Fprintf(output, "- **%s** %s\n", v.Severity, v.Description)
		}
		output.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(output, "%s# Recommendations\n\n", heading)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(output, "- %s\n", rec)
		}
		output.WriteString("\n")
	}
}

// OutcomeTextFormatter renders a report, or the reason there is none
type OutcomeTextFormatter struct{}

func (otf *OutcomeTextFormatter) Format(data any) (string, error) {
	outcome, ok := data.(fairness.Outcome)
	if !ok {
		return "", fmt.Errorf("expected Outcome, got %T", data)
	}
	var output strings.Builder
	if outcome.OK() {
		writeReportText(&output, outcome.Report)
	} else {
		writeFailureText(&output, outcome)
	}
	return output.String(), nil
}

func (otf *OutcomeTextFormatter) SupportedType() string {
	return "Outcome"
}

func writeFailureText(output *strings.Builder, o fairness.Outcome) {
	fmt.Fprintf(output, "Analysis failed (%s): %s\n", o.ErrorKind, o.Error)
	if o.Column != "" {
		fmt.Fprintf(output, "Column: %s\n", o.Column)
	}
}

// OutcomeMarkdownFormatter renders a report, or the reason there is none
type OutcomeMarkdownFormatter struct{}

func (omf *OutcomeMarkdownFormatter) Format(data any) (string, error) {
	outcome, ok := data.(fairness.Outcome)
	if !ok {
		return "", fmt.Errorf("expected Outcome, got %T", data)
	}
	var output strings.Builder
	if outcome.OK() {
		writeReportMarkdown(&output, outcome.Report, "#")
	} else {
		fmt.Fprintf(&output, "**Analysis failed** (`%s`): %s\n", outcome.ErrorKind, outcome.Error)
	}
	return output.String(), nil
}

func (omf *OutcomeMarkdownFormatter) SupportedType() string {
	return "Outcome"
}

// AuditTextFormatter renders a multi-attribute audit as plain text
type AuditTextFormatter struct{}

func (atf *AuditTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*audit.AuditResult)
	if !ok || result == nil || result.Report == nil {
		return "", fmt.Errorf("expected *AuditResult, got %T", data)
	}
	a := result.Report

	var output strings.Builder
	output.WriteString("=== FAIRNESS AUDIT ===\n\n")
	fmt.Fprintf(&output, "Audit ID: %s\n", a.AuditID)
	if a.JobID != "" {
		fmt.Fprintf(&output, "Job ID: %s\n", a.JobID)
	}
	fmt.Fprintf(&output, "Date: %s\n", a.AuditDate.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&output, "Applications: %d\n", a.TotalApplications)
	fmt.Fprintf(&output, "Overall bias detected: %s\n", yesNo(a.OverallBiasDetected))
	if len(a.SkippedAttributes) > 0 {
		fmt.Fprintf(&output, "Skipped attributes (not in dataset): %s\n", strings.Join(a.SkippedAttributes, ", "))
	}
	fmt.Fprintf(&output, "Stored: %s, Published: %s\n\n", yesNo(result.Persisted), yesNo(result.Published))

	if a.Narrative != "" {
		output.WriteString("=== SUMMARY ===\n")
		output.WriteString(a.Narrative)
		output.WriteString("\n\n")
	} else if result.NarrativeError != "" {
		fmt.Fprintf(&output, "Narrative unavailable: %s\n\n", result.NarrativeError)
	}

	for _, attr := range a.Attributes {
		outcome := a.Analyses[attr]
		if outcome.OK() {
			writeReportText(&output, outcome.Report)
		} else {
			fmt.Fprintf(&output, "=== FAIRNESS REPORT: %s ===\n\n", attr)
			writeFailureText(&output, outcome)
		}
		output.WriteString("\n")
	}

	if len(a.SummaryRecommendations) > 0 {
		output.WriteString("=== AUDIT RECOMMENDATIONS ===\n")
		for i, rec := range a.SummaryRecommendations {
			fmt.Fprintf(&output, "%d. %s\n", i+1, rec)
		}
	}
	return output.String(), nil
}

func (atf *AuditTextFormatter) SupportedType() string {
	return "AuditResult"
}

// AuditMarkdownFormatter renders a multi-attribute audit as markdown
type AuditMarkdownFormatter struct{}

func (amf *AuditMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*audit.AuditResult)
	if !ok || result == nil || result.Report == nil {
		return "", fmt.Errorf("expected *AuditResult, got %T", data)
	}
	a := result.Report

	var output strings.Builder
	output.WriteString("# Fairness Audit\n\n")
	fmt.Fprintf(&output, "- **Audit ID:** `%s`\n", a.AuditID)
	if a.JobID != "" {
		fmt.Fprintf(&output, "- **Job ID:** %s\n", a.JobID)
	}
	fmt.Fprintf(&output, "- **Date:** %s\n", a.AuditDate.Format("2006-01-02"))
	fmt.Fprintf(&output, "- **Applications:** %d\n", a.TotalApplications)
	fmt.Fprintf(&output, "- **Overall bias detected:** %s\n", yesNo(a.OverallBiasDetected))
	if len(a.SkippedAttributes) > 0 {
		fmt.Fprintf(&output, "- **Skipped attributes:** %s\n", strings.Join(a.SkippedAttributes, ", "))
	}
	output.WriteString("\n")

	if a.Narrative != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(a.Narrative)
		output.WriteString("\n\n")
	}

	for _, attr := range a.Attributes {
		outcome := a.Analyses[attr]
		if outcome.OK() {
			writeReportMarkdown(&output, outcome.Report, "##")
			continue
		}
		fmt.Fprintf(&output, "## Fairness Report: %s\n\n**Analysis failed** (`%s`): %s\n\n", attr, outcome.ErrorKind, outcome.Error)
	}

	if len(a.SummaryRecommendations) > 0 {
		output.WriteString("## Audit Recommendations\n\n")
		for _, rec := range a.SummaryRecommendations {
			fmt.Fprintf(&output, "- %s\n", rec)
		}
	}
	return output.String(), nil
}

func (amf *AuditMarkdownFormatter) SupportedType() string {
	return "AuditResult"
}

// BadgeTextFormatter handles text formatting for badges
type BadgeTextFormatter struct{}

func (btf *BadgeTextFormatter) Format(data any) (string, error) {
	b, ok := data.(types.BadgeResult)
	if !ok {
		return "", fmt.Errorf("expected BadgeResult, got %T", data)
	}
	return fmt.Sprintf("Score %.2f: %s (%s)\n%s\n", b.Score, b.Level, b.Label, b.Description), nil
}

func (btf *BadgeTextFormatter) SupportedType() string {
	return "BadgeResult"
}

// BadgeMarkdownFormatter handles markdown formatting for badges
type BadgeMarkdownFormatter struct{}

func (bmf *BadgeMarkdownFormatter) Format(data any) (string, error) {
	b, ok := data.(types.BadgeResult)
	if !ok {
		return "", fmt.Errorf("expected BadgeResult, got %T", data)
	}
	return fmt.Sprintf("**%s** %s (score %.2f)\n\n%s\n", b.Level, b.Label, b.Score, b.Description), nil
}

func (bmf *BadgeMarkdownFormatter) SupportedType() string {
	return "BadgeResult"
}

func sortedPairs(di fairness.DisparateImpact) []fairness.GroupPair {
	pairs := make([]fairness.GroupPair, 0, len(di))
	for pair := range di {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	return pairs
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
