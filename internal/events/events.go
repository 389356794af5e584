// Package events announces completed audits to downstream consumers.
package events

import (
	"context"
	"sort"
	"time"

	"fairhire/internal/fairness"
)

// TypeAuditCompleted is the event type written for every finished audit.
const TypeAuditCompleted = "audit.completed"

// Publisher delivers audit events
type Publisher interface {
	Publish(ctx context.Context, report *fairness.AuditReport) error
	Close() error
}

// AuditCompleted is the payload of an audit.completed event
type AuditCompleted struct {
	Type                string             `json:"type"`
	AuditID             string             `json:"audit_id"`
	JobID               string             `json:"job_id,omitempty"`
	AuditDate           time.Time          `json:"audit_date"`
	OccurredAt          time.Time          `json:"occurred_at"`
	TotalApplications   int                `json:"total_applications"`
	OverallBiasDetected bool               `json:"overall_bias_detected"`
	Attributes          []AttributeSummary `json:"attributes"`
	SkippedAttributes   []string           `json:"skipped_attributes,omitempty"`
}

// AttributeSummary is the per-attribute headline carried by an event.
// Failed analyses carry only ErrorKind.
type AttributeSummary struct {
	Attribute         string             `json:"attribute"`
	BiasDetected      bool               `json:"bias_detected"`
	FairnessScore     float64            `json:"fairness_score,omitempty"`
	BadgeLevel        string             `json:"badge_level,omitempty"`
	OverallSeverity   fairness.Severity  `json:"overall_severity,omitempty"`
	TotalViolations   int                `json:"total_violations"`
	ReducedConfidence bool               `json:"reduced_confidence,omitempty"`
	ErrorKind         fairness.ErrorKind `json:"error_kind,omitempty"`
}

// NewAuditCompleted summarizes report. Attributes keep the order they were audited in.
func NewAuditCompleted(report *fairness.AuditReport, now time.Time) AuditCompleted {
	ev := AuditCompleted{
		Type:                TypeAuditCompleted,
		AuditID:             report.AuditID,
		JobID:               report.JobID,
		AuditDate:           report.AuditDate,
		OccurredAt:          now.UTC(),
		TotalApplications:   report.TotalApplications,
		OverallBiasDetected: report.OverallBiasDetected,
		Attributes:          make([]AttributeSummary, 0, len(report.Analyses)),
		SkippedAttributes:   report.SkippedAttributes,
	}

	attrs := report.Attributes
	if len(attrs) != len(report.Analyses) {
		attrs = make([]string, 0, len(report.Analyses))
		for attr := range report.Analyses {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
	}

	for _, attr := range attrs {
		outcome, ok := report.Analyses[attr]
		if !ok {
			continue
		}
		summary := AttributeSummary{Attribute: attr, BiasDetected: outcome.BiasDetected}
		if outcome.OK() {
			s := outcome.Report.Summary
			summary.FairnessScore = s.FairnessScore
			summary.BadgeLevel = s.FairnessBadge.Level
			summary.OverallSeverity = s.OverallSeverity
			summary.TotalViolations = s.TotalViolations
			summary.ReducedConfidence = s.ReducedConfidence
		} else {
			summary.ErrorKind = outcome.ErrorKind
		}
		ev.Attributes = append(ev.Attributes, summary)
	}
	return ev
}

// NopPublisher drops every event; used when events are disabled
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *fairness.AuditReport) error { return nil }

func (NopPublisher) Close() error { return nil }
