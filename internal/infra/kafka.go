package infra

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Volunteer events travel on <prefix>volunteer.<event> topics. The outbox
// relay keys each message by volunteer id, so one volunteer's events share a
// partition and arrive in the order they were committed.

// brokerList splits a comma separated KAFKA_BROKERS value, dropping blanks.
func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// EventPublisher writes relayed outbox rows to Kafka. With Kafka switched off
// it accepts and drops every event, which keeps the relay draining the outbox.
type EventPublisher struct {
	w      *kafka.Writer
	logger *slog.Logger
}

func NewEventPublisher(brokers string, enabled bool, logger *slog.Logger) *EventPublisher {
	addrs := brokerList(brokers)
	if !enabled || len(addrs) == 0 {
		logger.Info("volunteer event publishing disabled")
		return &EventPublisher{logger: logger}
	}

	logger.Info("volunteer event publishing to kafka", "brokers", addrs)
	return &EventPublisher{
		logger: logger,
		w: &kafka.Writer{
			Addr:                   kafka.TCP(addrs...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *EventPublisher) Enabled() bool { return p.w != nil }

// Publish sends one volunteer event. key is the volunteer id.
func (p *EventPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.w == nil {
		p.logger.Debug("volunteer event dropped", "topic", topic, "volunteer_id", string(key))
		return nil
	}
	return p.w.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: value})
}

func (p *EventPublisher) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

// TailedEvent is one volunteer event read back off a topic.
type TailedEvent struct {
	At          time.Time
	VolunteerID string
	Payload     []byte
}

// EventTail follows a single volunteer event topic as a consumer group
// member. It backs `volunteerctl events tail`.
type EventTail struct {
	r *kafka.Reader
}

func NewEventTail(brokers, topic, groupID string, enabled bool) *EventTail {
	addrs := brokerList(brokers)
	if !enabled || len(addrs) == 0 {
		return &EventTail{}
	}
	return &EventTail{r: kafka.NewReader(kafka.ReaderConfig{
		Brokers:  addrs,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20, // event payloads are small JSON documents
	})}
}

func (t *EventTail) Enabled() bool { return t.r != nil }

// Next blocks until the next event arrives or ctx is done.
func (t *EventTail) Next(ctx context.Context) (TailedEvent, error) {
	msg, err := t.r.ReadMessage(ctx)
	if err != nil {
		return TailedEvent{}, err
	}
	return TailedEvent{At: msg.Time, VolunteerID: string(msg.Key), Payload: msg.Value}, nil
}

func (t *EventTail) Close() error {
	if t.r == nil {
		return nil
	}
	return t.r.Close()
}
