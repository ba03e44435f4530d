package common

// StrategyContext is everything a strategy sees on one tick.
type StrategyContext struct {
	Symbol    string            `json:"symbol"`
	Market    MarketSnapshot    `json:"market"`
	Signals   *SignalSnapshot   `json:"signals,omitempty"`
	Position  *PositionSnapshot `json:"position,omitempty"`
	TimeStamp int64             `json:"timestamp"`
}
