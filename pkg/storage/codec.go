package storage

import (
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

// EncodeState serializes a leg state into a protobuf Struct blob. Decimals travel as strings.
func EncodeState(state common.LegState) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal leg state: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unable to unmarshal leg state fields: %w", err)
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("unable to build leg state struct: %w", err)
	}

	return proto.Marshal(st)
}

func DecodeState(blob []byte) (common.LegState, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(blob, &st); err != nil {
		return common.LegState{}, fmt.Errorf("unable to unmarshal leg state blob: %w", err)
	}

	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return common.LegState{}, fmt.Errorf("unable to marshal leg state fields: %w", err)
	}

	var state common.LegState
	if err := json.Unmarshal(raw, &state); err != nil {
		return common.LegState{}, fmt.Errorf("unable to unmarshal leg state: %w", err)
	}
	return state, nil
}
