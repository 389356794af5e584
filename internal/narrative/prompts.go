package narrative

import (
	"fmt"
	"sort"
	"strings"

	"fairhire/internal/fairness"
)

// DefaultSystemPrompt frames the model as a fairness reviewer
const DefaultSystemPrompt = `You are an employment-fairness analyst reviewing the statistical audit of an automated hiring process.

Your principles:
- Only describe what the audit numbers show; never speculate about individual candidates
- Distinguish clearly between findings backed by ground truth and findings computed in reduced-confidence mode
- Use neutral, non-accusatory language suitable for HR leadership and compliance teams
- Prefer concrete, actionable next steps over general advice`

// DefaultUserPrompt is a template with one %s placeholder for the audit digest
const DefaultUserPrompt = `Summarize the following hiring fairness audit for a non-technical audience.

**Tasks:**

1. Write a summary of at most 120 words stating whether bias was detected and how severe it is.
2. List 2-5 key findings, each naming the protected attribute, the affected groups and the metric involved.
3. If any attribute was analyzed without ground truth, say that its error-rate metrics are not meaningful.

**Audit:**
-----
%s
-----`

// Prompts holds the resolved prompt pair
type Prompts struct {
	System string
	User   string
}

// ResolvePrompts prefers configured prompts over the defaults
func ResolvePrompts(system, user string) Prompts {
	p := Prompts{System: DefaultSystemPrompt, User: DefaultUserPrompt}
	if strings.TrimSpace(system) != "" {
		p.System = system
	}
	if strings.TrimSpace(user) != "" {
		p.User = user
	}
	return p
}

// Render fills the user template with the audit digest. Templates without a
// placeholder get the digest appended.
func (p Prompts) Render(report *fairness.AuditReport) string {
	digest := Digest(report)
	if strings.Contains(p.User, "%s") {
		return fmt.Sprintf(p.User, digest)
	}
	return p.User + "\n\n" + digest
}

// Digest renders the parts of an audit the model needs as compact text
func Digest(report *fairness.AuditReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", orNone(report.JobID))
	fmt.Fprintf(&b, "Applications: %d\n", report.TotalApplications)
	fmt.Fprintf(&b, "Overall bias detected: %t\n", report.OverallBiasDetected)
	if len(report.SkippedAttributes) > 0 {
		fmt.Fprintf(&b, "Attributes not present in data: %s\n", strings.Join(report.SkippedAttributes, ", "))
	}

	for _, attr := range report.Attributes {
		outcome := report.Analyses[attr]
		fmt.Fprintf(&b, "\n## %s\n", attr)
		if !outcome.OK() {
			fmt.Fprintf(&b, "Analysis failed (%s): %s\n", outcome.ErrorKind, outcome.Error)
			continue
		}

		r := outcome.Report
		s := r.Summary
		fmt.Fprintf(&b, "Score: %.2f (%s), severity: %s, violations: %d\n",
			s.FairnessScore, s.FairnessBadge.Level, s.OverallSeverity, s.TotalViolations)
		if s.ReducedConfidence {
			b.WriteString("Reduced confidence: decisions were used as labels\n")
		}

		groups := make([]string, 0, len(r.GroupStatistics))
		for g := range r.GroupStatistics {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			gs := r.GroupStatistics[g]
			fmt.Fprintf(&b, "- group %s: n=%d selection_rate=%.4f tpr=%.4f fpr=%.4f\n",
				g, gs.Count, gs.SelectionRate, gs.TruePositiveRate, gs.FalsePositiveRate)
		}
		for _, v := range r.BiasAnalysis.Violations {
			fmt.Fprintf(&b, "- violation [%s] %s\n", v.Severity, v.Description)
		}
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
