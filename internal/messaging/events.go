package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/config"
)

// HeaderEventType carries the EventType of a published domain event.
const HeaderEventType = "event-type"

// EventType names a domain change.
type EventType string

const (
	EventDeliveryNoteCreated  EventType = "delivery_note.created"
	EventDeliveryNoteUpdated  EventType = "delivery_note.updated"
	EventDeliveryNoteDeleted  EventType = "delivery_note.deleted"
	EventPurchaseOrderCreated EventType = "purchase_order.created"
	EventPurchaseOrderUpdated EventType = "purchase_order.updated"
	EventPurchaseOrderDeleted EventType = "purchase_order.deleted"
)

// Event announces that an entity changed and which purchase order numbers it touched.
type Event struct {
	Type       EventType `json:"type"`
	ID         string    `json:"id"`
	PONumbers  []string  `json:"po_numbers,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Encode turns e into a bus message keyed by entity id.
func (e Event) Encode() (Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Key:     []byte(e.ID),
		Value:   payload,
		Headers: map[string]string{HeaderEventType: string(e.Type)},
		Time:    e.OccurredAt,
	}, nil
}

// DecodeEvent parses a message produced by Event.Encode.
func DecodeEvent(msg Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		e.Type = EventType(msg.Headers[HeaderEventType])
	}
	return e, nil
}

// EventType returns the type header of msg.
func (m Message) EventType() EventType {
	return EventType(m.Headers[HeaderEventType])
}

// Events publishes domain events. Failures are logged, never returned, so a
// broker outage cannot fail a committed write.
type Events struct {
	client  Client
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewEvents wires the event publisher over the messaging client.
func NewEvents(client Client, cfg config.Config, logger *zap.Logger) *Events {
	return &Events{client: client, enabled: cfg.Messaging.Enabled, logger: logger, now: time.Now}
}

// NewEventsFor builds an always enabled publisher, mostly for tests.
func NewEventsFor(client Client, logger *zap.Logger) *Events {
	return &Events{client: client, enabled: true, logger: logger, now: time.Now}
}

// Publish emits an event of type t for entity id.
func (p *Events) Publish(ctx context.Context, t EventType, id string, poNumbers ...string) {
	if p == nil || !p.enabled || p.client == nil {
		return
	}
	numbers := make([]string, 0, len(poNumbers))
	for _, n := range poNumbers {
		if n != "" {
			numbers = append(numbers, n)
		}
	}
	msg, err := Event{Type: t, ID: id, PONumbers: numbers, OccurredAt: p.now().UTC()}.Encode()
	if err != nil {
		p.logger.Error("encode event", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, msg); err != nil {
		p.logger.Error("publish event", zap.String("type", string(t)), zap.String("id", id), zap.Error(err))
	}
}

// Recorder is an in-process Client that keeps published messages.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	topic    string
}

// NewRecorder builds an empty Recorder.
func NewRecorder(topic string) *Recorder {
	return &Recorder{topic: topic}
}

func (r *Recorder) Publish(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.Topic = r.topic
	r.messages = append(r.messages, msg)
	return nil
}

// Consume blocks until ctx is done; recorded messages are read with Events.
func (r *Recorder) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *Recorder) Topic() string { return r.topic }

// Events decodes every recorded message.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.messages))
	for _, msg := range r.messages {
		if e, err := DecodeEvent(msg); err == nil {
			out = append(out, e)
		}
	}
	return out
}
