package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fairhire/internal/config"
	apperrors "fairhire/internal/errors"
	"fairhire/internal/fairness"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes audit.completed events keyed by audit id, so every
// event for one audit lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
	logger *apperrors.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// New returns a Kafka publisher, or a NopPublisher when events are disabled
func New(cfg config.EventsConfig, logger *apperrors.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg, logger)
}

// NewKafkaPublisher configures a kafka-go writer from cfg
func NewKafkaPublisher(cfg config.EventsConfig, logger *apperrors.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            kafka.Gzip,
		MaxAttempts:            3,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		Async:                  cfg.Async,
	}
	if cfg.Async {
		// async writes report failures only through the completion callback
		writer.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				logger.LogError(err, "Async audit event delivery failed", "topic", cfg.Topic, "messages", len(messages))
			}
		}
	}

	logger.Info("Kafka audit event publisher configured",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"async", cfg.Async)
	return newKafkaPublisher(writer, cfg.Topic, logger), nil
}

func newKafkaPublisher(w messageWriter, topic string, logger *apperrors.Logger) *KafkaPublisher {
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}
	return &KafkaPublisher{writer: w, topic: topic, now: time.Now, logger: logger}
}

// Publish writes one audit.completed event for report
func (p *KafkaPublisher) Publish(ctx context.Context, report *fairness.AuditReport) error {
	if report == nil || report.AuditID == "" {
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Audit report with an id is required", nil)
	}

	ev := NewAuditCompleted(report, p.now())
	value, err := json.Marshal(ev)
	if err != nil {
		return apperrors.NewInternalError(apperrors.ErrCodePublishFailed, "Failed to encode audit event", err)
	}

	msg := kafka.Message{
		Key:   []byte(report.AuditID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeAuditCompleted)},
		},
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodePublishFailed, "Failed to publish audit event", err).
			WithContext("topic", p.topic).
			WithContext("audit_id", report.AuditID)
	}
	p.logger.Debug("Audit event published",
		"topic", p.topic,
		"audit_id", report.AuditID,
		"bytes", len(value),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Close flushes pending writes and releases connections
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
