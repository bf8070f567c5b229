package reel_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/reel"
	"github.com/arloliu/reel/internal/metrics"
	"github.com/arloliu/reel/replay"
	"github.com/arloliu/reel/store"
	"github.com/arloliu/reel/types"
)

func TestRecordAndReplayRoundTrip(t *testing.T) {
	journal, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	recorder := journal.NewRecorder()
	require.NoError(t, recorder.Next(ctx, "prices", "p0"))
	require.NoError(t, recorder.Next(ctx, "trades", "t0"))
	require.NoError(t, recorder.Next(ctx, "prices", "p1"))
	require.NoError(t, recorder.Complete(ctx, "prices"))

	assert.Equal(t, []any{"p0", "p1"}, replayAll(t, journal, "prices"))
}

func TestRecorderErrorRoundTrip(t *testing.T) {
	journal, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	recorder := journal.NewRecorder()
	require.NoError(t, recorder.Next(ctx, "a", "v0"))
	require.NoError(t, recorder.Error(ctx, "a", errors.New("feed dropped")))

	pub, err := journal.NewPlayer().Play(replay.WithFilter("a"))
	require.NoError(t, err)

	sub := &captureSubscriber{}
	pub.Subscribe(sub).Request(10)

	require.Eventually(t, func() bool {
		return sub.Err() != nil
	}, waitTimeout, waitTick)

	var recorded *types.RecordedError
	require.ErrorAs(t, sub.Err(), &recorded)
	assert.Equal(t, "feed dropped", recorded.Message)
	assert.Equal(t, []any{"v0"}, sub.Values())
}

func TestRecordBridgesPublisher(t *testing.T) {
	// Record one journal's replay into a second journal; the copy must
	// replay identically, terminal included.
	source, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	recorder := source.NewRecorder()
	for i := 0; i < 5; i++ {
		require.NoError(t, recorder.Next(ctx, "a", int64(i)))
	}
	require.NoError(t, recorder.Complete(ctx, "a"))

	pub, err := source.NewPlayer().Play(replay.WithFilter("a"))
	require.NoError(t, err)

	target, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer target.Close()

	require.NoError(t, target.NewRecorder().Record(ctx, pub, "copy"))

	assert.Equal(t,
		[]any{int64(0), int64(1), int64(2), int64(3), int64(4)},
		replayAll(t, target, "copy"))
}

func TestRecordPreservesRecordedError(t *testing.T) {
	source, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	recorder := source.NewRecorder()
	require.NoError(t, recorder.Next(ctx, "a", "v0"))
	require.NoError(t, recorder.Error(ctx, "a", errors.New("boom")))

	pub, err := source.NewPlayer().Play(replay.WithFilter("a"))
	require.NoError(t, err)

	target, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer target.Close()

	// Recording a failed stream is a successful recording.
	require.NoError(t, target.NewRecorder().Record(ctx, pub, "copy"))

	pub, err = target.NewPlayer().Play(replay.WithFilter("copy"))
	require.NoError(t, err)

	sub := &captureSubscriber{}
	pub.Subscribe(sub).Request(10)

	require.Eventually(t, func() bool {
		return sub.Err() != nil
	}, waitTimeout, waitTick)

	var recorded *types.RecordedError
	require.ErrorAs(t, sub.Err(), &recorded)
	assert.Equal(t, "boom", recorded.Message)
}

func TestRecordCancelledByContext(t *testing.T) {
	source, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.NewRecorder().Next(ctx, "a", "v0"))

	// No recorded terminal and live-tail replay: the stream never ends
	// on its own, so only the context stops the recording.
	pub, err := source.NewPlayer().Play(replay.WithFilter("a"))
	require.NoError(t, err)

	target, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer target.Close()

	recordCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err = target.NewRecorder().Record(recordCtx, pub, "copy")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// countingMetrics tracks worker cancellations observed by a player.
type countingMetrics struct {
	metrics.NopMetrics
	cancelled atomic.Int64
}

func (m *countingMetrics) IncSubscriptionCancelled() {
	m.cancelled.Add(1)
}

// flakyStore fails every append after the first failAfter ones. Appends
// come from the single recording goroutine, so no locking is needed.
type flakyStore struct {
	store.Store
	failAfter int
	appends   int
}

func (s *flakyStore) Append(ctx context.Context, data []byte) error {
	s.appends++
	if s.appends > s.failAfter {
		return errors.New("disk full")
	}

	return s.Store.Append(ctx, data)
}

func TestRecordCancelsUpstreamOnAppendFailure(t *testing.T) {
	srcMetrics := &countingMetrics{}
	source, err := reel.New(store.NewMemory(), reel.WithMetrics(srcMetrics))
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()
	recorder := source.NewRecorder()
	for i := 0; i < 3; i++ {
		require.NoError(t, recorder.Next(ctx, "a", int64(i)))
	}

	// No recorded terminal: the source replay live-tails, so only a
	// cancellation can stop its worker.
	pub, err := source.NewPlayer().Play(replay.WithFilter("a"))
	require.NoError(t, err)

	target, err := reel.New(&flakyStore{Store: store.NewMemory(), failAfter: 1})
	require.NoError(t, err)
	defer target.Close()

	err = target.NewRecorder().Record(ctx, pub, "copy")
	require.ErrorContains(t, err, "disk full")

	// The failed recording must detach from the upstream; its worker
	// observes the cancellation and exits instead of delivering into a
	// dead recording forever.
	require.Eventually(t, func() bool {
		return srcMetrics.cancelled.Load() == 1
	}, waitTimeout, waitTick)
}

func TestConcurrentRecorders(t *testing.T) {
	journal, err := reel.New(store.NewMemory())
	require.NoError(t, err)
	defer journal.Close()

	ctx := context.Background()
	const perFilter = 20

	done := make(chan error, 2)
	for _, filter := range []string{"left", "right"} {
		filter := filter
		go func() {
			recorder := journal.NewRecorder()
			for i := 0; i < perFilter; i++ {
				if err := recorder.Next(ctx, filter, int64(i)); err != nil {
					done <- err

					return
				}
			}
			done <- recorder.Complete(ctx, filter)
		}()
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	// Interleaving is arbitrary; per-filter order and count are not.
	for _, filter := range []string{"left", "right"} {
		values := replayAll(t, journal, filter)
		require.Len(t, values, perFilter)
		for i, v := range values {
			assert.Equal(t, int64(i), v)
		}
	}
}
