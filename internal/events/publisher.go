// Package events publishes certificate lifecycle events to Kafka so
// downstream systems (document generation, CRM sync) can react without
// polling the registry.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"certregistry/internal/certificate"
	"certregistry/internal/platform/config"
)

// Event types carried on the wire.
const (
	TypeCreated       = "certificate.created"
	TypeStatusChanged = "certificate.status_changed"
	TypeRevoked       = "certificate.revoked"
)

// Event is the wire format for one lifecycle event. Records are keyed by
// certificate ID so per-certificate ordering holds within a partition.
type Event struct {
	Type          string    `json:"type"`
	CertificateID int64     `json:"certificate_id"`
	NumberPart    string    `json:"number_part"`
	Status        string    `json:"status"`
	FromStatus    string    `json:"from_status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher produces lifecycle events. A nil *Publisher is a valid no-op,
// which is how deployments without a broker run.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the configured brokers and ensures the topic
// exists. Returns (nil, nil) when no seeds are configured.
func NewPublisher(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Seeds) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Seeds...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, cfg.Topic); err != nil {
		// Topic may already exist; anything else surfaces on first produce.
		logger.DebugContext(ctx, "topic creation skipped", "topic", cfg.Topic, "error", err)
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.client.Flush(ctx); err != nil {
		p.logger.WarnContext(ctx, "failed to flush event buffer", "error", err)
	}
	p.client.Close()
}

// CertificateCreated publishes a certificate.created event.
// Satisfies certificate.EventPublisher.
func (p *Publisher) CertificateCreated(ctx context.Context, c *certificate.Certificate) {
	p.publish(ctx, Event{
		Type:          TypeCreated,
		CertificateID: c.ID,
		NumberPart:    c.NumberPart,
		Status:        string(c.Status),
		OccurredAt:    time.Now().UTC(),
	})
}

// StatusChanged publishes a status transition. Transitions into revoked get
// their own event type.
// Satisfies certificate.EventPublisher.
func (p *Publisher) StatusChanged(ctx context.Context, c *certificate.Certificate, from, to certificate.Status) {
	eventType := TypeStatusChanged
	if to == certificate.StatusRevoked {
		eventType = TypeRevoked
	}
	p.publish(ctx, Event{
		Type:          eventType,
		CertificateID: c.ID,
		NumberPart:    c.NumberPart,
		Status:        string(to),
		FromStatus:    string(from),
		OccurredAt:    time.Now().UTC(),
	})
}

// publish produces asynchronously. Event delivery is best-effort: a broker
// outage must never fail the registry operation that triggered the event.
func (p *Publisher) publish(ctx context.Context, e Event) {
	if p == nil {
		return
	}

	value, err := json.Marshal(e)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode lifecycle event", "type", e.Type, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatInt(e.CertificateID, 10)),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to publish lifecycle event",
				"type", e.Type,
				"certificate_id", e.CertificateID,
				"error", err,
			)
		}
	})
}
