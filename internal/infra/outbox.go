package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/nysc/volunteers/internal/repository"
)

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay polls the event_outbox table and publishes events to Kafka.
// Published rows are deleted.
type OutboxRelay struct {
	db          repository.DBTX
	outbox      repository.OutboxRepository
	publisher   Publisher
	topicPrefix string
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(
	db repository.DBTX,
	outbox repository.OutboxRepository,
	publisher Publisher,
	topicPrefix string,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		db:          db,
		outbox:      outbox,
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Poll(ctx); err != nil {
				r.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

type outboxMessage struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Poll publishes one batch in insertion order and returns how many events
// were delivered. It stops at the first failed publish so later events never
// overtake an earlier one; the failed event is retried on the next poll.
func (r *OutboxRelay) Poll(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchUnpublished(ctx, r.db, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		msg, err := json.Marshal(outboxMessage{
			EventID:       e.EventID.String(),
			AggregateType: string(e.AggregateType),
			AggregateID:   e.AggregateID,
			EventType:     string(e.EventType),
			Payload:       json.RawMessage(e.Payload),
			OccurredAt:    e.OccurredAt,
		})
		if err != nil {
			r.logger.Error("encode outbox event failed", "event_id", e.EventID, "error", err)
			break
		}

		if err := r.publisher.Publish(ctx, e.Topic(r.topicPrefix), []byte(e.PartitionKey), msg); err != nil {
			r.logger.Error("kafka publish failed", "event_id", e.EventID, "error", err)
			break
		}
		ids = append(ids, e.SeqID)
	}

	if err := r.outbox.MarkPublished(ctx, r.db, ids); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	r.logger.Debug("outbox poll complete", "published", len(ids), "fetched", len(events))
	return len(ids), nil
}

