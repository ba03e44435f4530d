package bus

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/peter-kozarec/botplatform/pkg/common"
)

var (
	ErrUnexpectedEventType = errors.New("unexpected event type")
	ErrInvalidPayload      = errors.New("invalid event payload")
)

// EncodePayload flattens v into a JSON compatible map using its json tags.
func EncodePayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}

// DecodePayload fills out from a payload produced by EncodePayload or received over the wire.
func DecodePayload(payload map[string]any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func NewMarketSnapshotEvent(source string, snapshot common.MarketSnapshot) (Event, error) {
	payload, err := EncodePayload(snapshot)
	if err != nil {
		return Event{}, err
	}
	return NewEvent(MarketSnapshotEvent, source, payload), nil
}

func MarketSnapshotFromEvent(ev Event) (common.MarketSnapshot, error) {
	var snapshot common.MarketSnapshot
	if ev.Type != MarketSnapshotEvent {
		return snapshot, fmt.Errorf("%w: %s", ErrUnexpectedEventType, ev.Type)
	}
	err := DecodePayload(ev.Payload, &snapshot)
	return snapshot, err
}

// NewOrderUpdateEvent wraps an update and correlates it with the client order id when present.
func NewOrderUpdateEvent(source string, update common.OrderUpdate) (Event, error) {
	payload, err := EncodePayload(update)
	if err != nil {
		return Event{}, err
	}
	ev := NewEvent(OrderUpdateEvent, source, payload)
	if update.ClientID != "" {
		ev = ev.WithCorrelationID(update.ClientID)
	}
	return ev, nil
}

func OrderUpdateFromEvent(ev Event) (common.OrderUpdate, error) {
	var update common.OrderUpdate
	if ev.Type != OrderUpdateEvent {
		return update, fmt.Errorf("%w: %s", ErrUnexpectedEventType, ev.Type)
	}
	err := DecodePayload(ev.Payload, &update)
	return update, err
}
