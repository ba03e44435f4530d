package bus

import (
	"time"

	"go.uber.org/zap"
)

const (
	MarketSnapshotEvent = "market.snapshot"
	OrderUpdateEvent    = "order.update"
)

// Event is the envelope routed by the Bus. It must not be modified after Publish,
// every subscriber receives the same value.
type Event struct {
	Type          string         `json:"type"`
	TimeStamp     int64          `json:"timestamp"`
	Source        string         `json:"source"`
	CorrelationID *string        `json:"correlation_id"`
	Payload       map[string]any `json:"payload"`
}

func NewEvent(eventType, source string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		TimeStamp: time.Now().UnixMilli(),
		Source:    source,
		Payload:   payload,
	}
}

func (e Event) WithCorrelationID(id string) Event {
	e.CorrelationID = &id
	return e
}

func (e Event) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("type", e.Type),
		zap.Int64("timestamp", e.TimeStamp),
		zap.String("source", e.Source),
	}
	if e.CorrelationID != nil {
		fields = append(fields, zap.String("correlation_id", *e.CorrelationID))
	}
	return fields
}
