package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type sliceSource struct {
	snapshots []common.MarketSnapshot
	err       error
}

func (s *sliceSource) GetNext(context.Context) (common.MarketSnapshot, error) {
	if len(s.snapshots) == 0 {
		if s.err != nil {
			return common.MarketSnapshot{}, s.err
		}
		return common.MarketSnapshot{}, ErrEof
	}
	next := s.snapshots[0]
	s.snapshots = s.snapshots[1:]
	return next, nil
}

type publishRecorder []bus.Event

func (p *publishRecorder) Publish(ev bus.Event) { *p = append(*p, ev) }

func TestDispatcher_DrainUntilEof(t *testing.T) {
	src := &sliceSource{snapshots: []common.MarketSnapshot{
		{Symbol: "A", Price: fixed.One, TimeStamp: 10},
		{Symbol: "B", Price: fixed.Two},
	}}
	var pub publishRecorder

	require.NoError(t, Drain(context.Background(), CreateSnapshotDispatcher(&pub, "test", src)))
	require.Len(t, pub, 2)
	assert.Equal(t, int64(10), pub[0].TimeStamp)
	assert.NotZero(t, pub[1].TimeStamp)
	assert.Equal(t, "test", pub[1].Source)
}

func TestDispatcher_DrainPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	var pub publishRecorder

	err := Drain(context.Background(), CreateSnapshotDispatcher(&pub, "test", &sliceSource{err: boom}))
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Drain(ctx, CreateSnapshotDispatcher(&pub, "test", &sliceSource{}))
	require.ErrorIs(t, err, context.Canceled)
}
