package replay

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/arloliu/reel/codec"
	"github.com/arloliu/reel/store"
	"github.com/arloliu/reel/types"
)

// timeUnset marks the pacing reference clock as uninitialized. The first
// in-window record is never delayed because there is no prior reference.
const timeUnset = math.MinInt64

// paceSlice bounds a single ACTUAL_TIME sleep so cancellation latency
// stays bounded by the slice, not by the full recorded gap.
const paceSlice = 100 * time.Millisecond

// Worker lifecycle states. Transitions are one-way out of stateRunning.
const (
	stateRunning int32 = iota
	stateCancelled
	stateCompleted
	stateFailed
)

// worker is the per-subscription background procedure. It is the only
// goroutine that reads from the journal or invokes subscriber callbacks,
// which serializes all OnNext/OnComplete/OnError calls for its
// subscription.
type worker struct {
	id     string
	sub    types.Subscriber
	reader store.Reader
	opts   Options

	// demand is the only mutable state shared with callers: Request adds
	// to it, the worker decrements it by exactly one per delivery. It
	// never goes negative.
	demand    atomic.Int64
	cancelled atomic.Bool
	state     atomic.Int32

	logger  types.Logger
	metrics types.MetricsCollector

	// lastTime is the pacing reference: the timestamp of the most recent
	// in-window record, whether or not its filter matched. Worker
	// goroutine only.
	lastTime int64
}

// request adds n to the outstanding demand. Non-positive requests are
// ignored; the demand counter must never move backwards from a caller.
func (w *worker) request(n int64) {
	if n <= 0 {
		w.logger.Warn("ignoring non-positive demand request",
			"subscription", w.id,
			"n", n,
		)

		return
	}

	w.demand.Add(n)
}

// cancel flags the subscription for cancellation. Idempotent; the worker
// observes the flag at its next checkpoint.
func (w *worker) cancel() {
	if w.cancelled.CompareAndSwap(false, true) {
		w.logger.Debug("replay cancellation requested", "subscription", w.id)
	}
}

// run scans the journal until a terminal signal or cancellation.
//
// Each iteration: wait for demand, read one record, decode, check the
// end bound (before the filter, so the scan terminates at the window even
// if the target filter never appears again), then pace, filter, and
// deliver. The journal position only advances when a record is about to
// be evaluated, so unconsumed demand causes no read-ahead.
func (w *worker) run() {
	defer w.reader.Close()

	ctx := context.Background()
	w.lastTime = timeUnset

	for {
		if w.observeCancel() {
			return
		}

		if w.demand.Load() <= 0 {
			w.idle()

			continue
		}

		data, ok, err := w.reader.ReadNext(ctx)
		if w.observeCancel() {
			// Cancelled mid-read: stop immediately, no further state
			// changes or callbacks.
			return
		}
		if err != nil {
			w.fail(err)

			return
		}
		if !ok {
			if w.opts.CompleteAtEOF {
				w.complete()

				return
			}
			// Live-tail: retry the same position once data arrives.
			w.idle()

			continue
		}

		rec, err := codec.Decode(data)
		if err != nil {
			// Sequence ordering cannot be trusted past a corrupt
			// record; the subscription ends here.
			w.fail(err)

			return
		}

		// The upper bound is absolute: it ends the scan regardless of
		// filter match, so a replay cannot live-tail past its window.
		if rec.Timestamp > w.opts.PlayUntilTime || rec.SeqNo >= w.opts.PlayUntilSeqNo {
			w.complete()

			return
		}

		if rec.Timestamp > w.opts.PlayFromTime && rec.SeqNo >= w.opts.PlayFromSeqNo {
			// Pacing runs before the filter check: skipped in-window
			// records still advance the replay clock, so ACTUAL_TIME
			// reproduces gaps caused by other streams' records too.
			w.pace(rec.Timestamp)
			if w.observeCancel() {
				return
			}

			if rec.Filter == w.opts.Filter {
				switch rec.Status {
				case types.StatusComplete:
					w.complete()

					return
				case types.StatusError:
					w.fail(&types.RecordedError{Message: rec.ErrMsg})

					return
				case types.StatusNext:
					// Decrement exactly once, immediately before OnNext.
					w.demand.Add(-1)
					w.sub.OnNext(rec.Value)
					w.metrics.IncRecordDelivered(rec.Filter)
				}
			} else {
				w.metrics.IncRecordSkipped(rec.Filter)
			}

			w.lastTime = rec.Timestamp
		}
	}
}

// observeCancel reports whether the cancellation flag is set, recording
// the state transition the first time the worker sees it.
func (w *worker) observeCancel() bool {
	if !w.cancelled.Load() {
		return false
	}

	if w.state.CompareAndSwap(stateRunning, stateCancelled) {
		w.metrics.IncSubscriptionCancelled()
		w.logger.Debug("replay cancelled", "subscription", w.id)
	}

	return true
}

// complete delivers the terminal OnComplete at most once.
func (w *worker) complete() {
	if !w.state.CompareAndSwap(stateRunning, stateCompleted) {
		return
	}

	w.sub.OnComplete()
	w.metrics.IncSubscriptionCompleted()
	w.logger.Debug("replay completed", "subscription", w.id)
}

// fail delivers the terminal OnError at most once.
func (w *worker) fail(err error) {
	if !w.state.CompareAndSwap(stateRunning, stateFailed) {
		return
	}

	w.sub.OnError(err)
	w.metrics.IncSubscriptionFailed()
	w.logger.Debug("replay failed",
		"subscription", w.id,
		"error", err.Error(),
	)
}

// idle waits while demand is exhausted or the journal has no new records,
// per the configured pause strategy.
func (w *worker) idle() {
	switch w.opts.Pause {
	case Spin:
		// Busy retry.
	case Yield:
		if w.opts.PollInterval > 0 {
			time.Sleep(w.opts.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
}

// pace delays the current record per the replay rate. ACTUAL_TIME sleeps
// for the recorded gap since the previous in-window record and supersedes
// the pause strategy for in-window spacing.
func (w *worker) pace(timestamp int64) {
	if w.opts.Rate == ActualTime {
		if w.lastTime == timeUnset {
			return
		}

		delta := timestamp - w.lastTime
		if delta <= 0 {
			return
		}

		w.metrics.ObservePaceDelay(float64(delta) / 1000.0)
		w.sleep(time.Duration(delta) * time.Millisecond)

		return
	}

	if w.opts.Pause == Yield {
		runtime.Gosched()
	}
}

// sleep waits d in bounded slices, returning early once cancelled.
func (w *worker) sleep(d time.Duration) {
	for d > 0 && !w.cancelled.Load() {
		slice := min(d, paceSlice)
		time.Sleep(slice)
		d -= slice
	}
}
