package common

import (
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Action string

const (
	ActionOpen        Action = "open"
	ActionClose       Action = "close"
	ActionScaleIn     Action = "scale_in"
	ActionScaleOut    Action = "scale_out"
	ActionBubbleEntry Action = "bubble_entry"
	ActionBubbleExit  Action = "bubble_exit"
)

// ActionIntent is what a strategy wants to happen. It is translated into orders by the runtime.
type ActionIntent struct {
	Action  Action         `json:"action"`
	Side    *PositionSide  `json:"side,omitempty"`
	Size    *fixed.Point   `json:"size,omitempty"`
	Price   *fixed.Point   `json:"price,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (a ActionIntent) Fields() []zap.Field {
	fields := []zap.Field{zap.String("action", string(a.Action))}
	if a.Side != nil {
		fields = append(fields, zap.String("side", string(*a.Side)))
	}
	if a.Size != nil {
		fields = append(fields, zap.String("size", a.Size.String()))
	}
	if a.Price != nil {
		fields = append(fields, zap.String("price", a.Price.String()))
	}
	return fields
}
