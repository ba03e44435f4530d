package bus

import (
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func MarshalJSON(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func UnmarshalJSON(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return ev, nil
}

// MarshalProto encodes the envelope as a google.protobuf.Struct.
func MarshalProto(ev Event) ([]byte, error) {
	payload, err := EncodePayload(ev.Payload)
	if err != nil {
		return nil, err
	}

	var correlationID any
	if ev.CorrelationID != nil {
		correlationID = *ev.CorrelationID
	}

	s, err := structpb.NewStruct(map[string]any{
		"type":           ev.Type,
		"timestamp":      ev.TimeStamp,
		"source":         ev.Source,
		"correlation_id": correlationID,
		"payload":        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return proto.Marshal(s)
}

func UnmarshalProto(data []byte) (Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	fields := s.GetFields()
	ev := Event{
		Type:      fields["type"].GetStringValue(),
		TimeStamp: int64(fields["timestamp"].GetNumberValue()),
		Source:    fields["source"].GetStringValue(),
	}
	if v, ok := fields["correlation_id"].GetKind().(*structpb.Value_StringValue); ok {
		id := v.StringValue
		ev.CorrelationID = &id
	}
	if p := fields["payload"].GetStructValue(); p != nil {
		ev.Payload = p.AsMap()
	}
	return ev, nil
}
