package signals

import (
	"context"
	"errors"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

const (
	KeyMid    = "mid"
	KeySpread = "spread"
	KeyMean   = "mean"
	KeyStdDev = "stddev"
	KeyZScore = "zscore"
)

var ErrInvalidWindow = errors.New("window size must be positive")

// ZScore tracks a rolling window of mid prices per symbol and reports how far the latest mid
// is from the window mean in standard deviations. The z-score is only reported once the
// window is full and the prices are not constant.
type ZScore struct {
	windowSize int
	windows    map[string]*fixed.Window
}

func NewZScore(windowSize int) (*ZScore, error) {
	if windowSize <= 0 {
		return nil, ErrInvalidWindow
	}
	return &ZScore{
		windowSize: windowSize,
		windows:    make(map[string]*fixed.Window),
	}, nil
}

// OnMarketSnapshot is called from the bus consumer only.
func (z *ZScore) OnMarketSnapshot(_ context.Context, snapshot common.MarketSnapshot) (common.SignalSnapshot, error) {
	w, ok := z.windows[snapshot.Symbol]
	if !ok {
		w = fixed.NewWindow(z.windowSize)
		z.windows[snapshot.Symbol] = w
	}

	mid := snapshot.Price
	if snapshot.Bid.IsPos() && snapshot.Ask.IsPos() {
		mid = snapshot.Bid.Add(snapshot.Ask).DivInt(2)
	}
	w.Add(mid)

	mean := w.Mean()
	stdDev := w.SampleStdDev()

	data := map[string]float64{
		KeyMid:    toFloat(mid),
		KeySpread: toFloat(snapshot.Ask.Sub(snapshot.Bid)),
		KeyMean:   toFloat(mean),
		KeyStdDev: toFloat(stdDev),
	}
	if w.IsFull() && stdDev.IsPos() {
		data[KeyZScore] = toFloat(w.Latest().Sub(mean).Div(stdDev))
	}

	return common.SignalSnapshot{
		Symbol:    snapshot.Symbol,
		Data:      data,
		TimeStamp: snapshot.TimeStamp,
	}, nil
}

func toFloat(p fixed.Point) float64 {
	f, _ := p.Float64()
	return f
}
