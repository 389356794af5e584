package narrative

import (
	"context"
	"strings"

	"fairhire/internal/fairness"
)

// Narrator writes a plain-language summary of a completed audit
type Narrator interface {
	Summarize(ctx context.Context, report *fairness.AuditReport) (*Narrative, error)
	ModelInfo(ctx context.Context) *ModelInfo
	Stats() map[string]any
	Close() error
}

// Narrative is the generated audit summary
type Narrative struct {
	Summary     string      `json:"summary"`
	KeyFindings []string    `json:"keyFindings"`
	Model       string      `json:"-"`
	Usage       *TokenUsage `json:"-"`
}

// Text flattens the narrative for AuditReport.Narrative
func (n *Narrative) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(n.Summary))
	for _, f := range n.KeyFindings {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	return b.String()
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
