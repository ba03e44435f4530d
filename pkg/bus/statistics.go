package bus

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Statistics struct {
	RunTime       time.Duration
	PublishCount  uint64
	DispatchCount uint64
	DispatchFails uint64
	DroppedCount  uint64
	Throughput    float64
}

func (b *Bus) Statistics() Statistics {
	s := Statistics{
		RunTime:       time.Duration(b.runTime.Load()),
		PublishCount:  b.publishCount.Load(),
		DispatchCount: b.dispatchCount.Load(),
		DispatchFails: b.dispatchFails.Load(),
		DroppedCount:  b.droppedCount.Load(),
	}
	if s.RunTime > 0 {
		s.Throughput = float64(s.DispatchCount) / s.RunTime.Seconds()
	}
	return s
}

func (b *Bus) PrintStatistics() {
	s := b.Statistics()
	b.logger.Info("bus statistics",
		zap.String("run_time", fmt.Sprintf("%.2fs", s.RunTime.Seconds())),
		zap.Uint64("publish_count", s.PublishCount),
		zap.Uint64("dispatch_count", s.DispatchCount),
		zap.Uint64("dispatch_fails", s.DispatchFails),
		zap.Uint64("dropped_count", s.DroppedCount),
		zap.String("throughput", fmt.Sprintf("%.2f", s.Throughput)))
}
