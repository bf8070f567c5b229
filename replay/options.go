package replay

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/reel/types"
)

// ReplayRate controls the delay between successive in-window records.
type ReplayRate int

const (
	// AsFastAsPossible replays with no deliberate delay between records.
	AsFastAsPossible ReplayRate = iota

	// ActualTime reproduces the original inter-record wall-clock gaps,
	// sleeping for the recorded timestamp delta before each in-window
	// record after the first.
	ActualTime
)

// PauseStrategy controls CPU behavior while the worker waits for demand
// or for new records at the end of the journal.
type PauseStrategy int

const (
	// Yield cooperatively yields the processor while idle, sleeping in
	// PollInterval slices. Lowest CPU cost, bounded wake-up latency.
	Yield PauseStrategy = iota

	// Spin busy-loops while idle. Burns a core for the lowest possible
	// latency between an append (or a request) and its delivery.
	Spin
)

// Options controls how a replay is executed. Build it through Option
// functions passed to Play; the zero value is not valid on its own
// because a filter must always be chosen explicitly.
type Options struct {
	// Filter selects the logical stream to replay. A record is eligible
	// only if its filter matches exactly.
	Filter string

	// PlayFromTime is the exclusive lower time bound in epoch
	// milliseconds: only records with Timestamp > PlayFromTime are in
	// the window. Default: no lower bound.
	PlayFromTime int64

	// PlayUntilTime is the upper time bound: a record with Timestamp
	// greater than PlayUntilTime ends the replay, so records stamped
	// exactly PlayUntilTime are still played. Default: no upper bound.
	PlayUntilTime int64

	// PlayFromSeqNo is the inclusive lower sequence bound. Default: 0.
	PlayFromSeqNo int64

	// PlayUntilSeqNo is the exclusive upper sequence bound: a record
	// with SeqNo >= PlayUntilSeqNo ends the replay. Default: no bound.
	PlayUntilSeqNo int64

	// Rate selects AS_FAST_AS_POSSIBLE or ACTUAL_TIME pacing.
	Rate ReplayRate

	// Pause selects the idle strategy while waiting for demand or data.
	Pause PauseStrategy

	// CompleteAtEOF, when true, completes the subscription once the
	// reader catches up to the end of the journal. When false the worker
	// live-tails, waiting for records appended later.
	CompleteAtEOF bool

	// PollInterval is the sleep granularity for Yield waits. It bounds
	// cancellation latency while idle. Default: 1ms.
	PollInterval time.Duration

	// filterSet records that WithFilter was called; an unset filter
	// fails validation since replaying "everything" is never meaningful
	// in a multiplexed journal.
	filterSet bool
}

// DefaultOptions returns options with the full time and sequence range,
// AS_FAST_AS_POSSIBLE rate, Yield pausing, and live-tail at end of log.
func DefaultOptions() Options {
	return Options{
		PlayFromTime:   math.MinInt64,
		PlayUntilTime:  math.MaxInt64,
		PlayFromSeqNo:  0,
		PlayUntilSeqNo: math.MaxInt64,
		Rate:           AsFastAsPossible,
		Pause:          Yield,
		CompleteAtEOF:  false,
		PollInterval:   time.Millisecond,
	}
}

// Option configures a replay.
type Option func(*Options)

// WithFilter selects the logical stream to replay. Required.
func WithFilter(filter string) Option {
	return func(o *Options) {
		o.Filter = filter
		o.filterSet = true
	}
}

// WithPlayFromTime sets the exclusive lower time bound (epoch ms).
func WithPlayFromTime(t int64) Option {
	return func(o *Options) {
		o.PlayFromTime = t
	}
}

// WithPlayUntilTime sets the upper time bound (epoch ms). Records with a
// greater timestamp end the replay.
func WithPlayUntilTime(t int64) Option {
	return func(o *Options) {
		o.PlayUntilTime = t
	}
}

// WithPlayFromSeqNo sets the inclusive lower sequence bound.
func WithPlayFromSeqNo(seq int64) Option {
	return func(o *Options) {
		o.PlayFromSeqNo = seq
	}
}

// WithPlayUntilSeqNo sets the exclusive upper sequence bound.
func WithPlayUntilSeqNo(seq int64) Option {
	return func(o *Options) {
		o.PlayUntilSeqNo = seq
	}
}

// WithReplayRate sets the pacing mode.
func WithReplayRate(r ReplayRate) Option {
	return func(o *Options) {
		o.Rate = r
	}
}

// WithPauseStrategy sets the idle strategy.
func WithPauseStrategy(p PauseStrategy) Option {
	return func(o *Options) {
		o.Pause = p
	}
}

// WithCompleteAtEOF selects completing versus live-tailing when the
// reader reaches the end of the journal.
func WithCompleteAtEOF(complete bool) Option {
	return func(o *Options) {
		o.CompleteAtEOF = complete
	}
}

// WithPollInterval sets the Yield wait granularity.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = d
	}
}

// Validate checks the options for consistency.
//
// Returns an error wrapping types.ErrInvalidOptions when the filter was
// never set, a bound range is inverted, the lower sequence bound is
// negative, or the poll interval is not positive.
func (o *Options) Validate() error {
	if !o.filterSet {
		return fmt.Errorf("%w: filter must be set", types.ErrInvalidOptions)
	}
	if o.PlayFromTime > o.PlayUntilTime {
		return fmt.Errorf("%w: playFromTime %d after playUntilTime %d",
			types.ErrInvalidOptions, o.PlayFromTime, o.PlayUntilTime)
	}
	if o.PlayFromSeqNo > o.PlayUntilSeqNo {
		return fmt.Errorf("%w: playFromSeqNo %d after playUntilSeqNo %d",
			types.ErrInvalidOptions, o.PlayFromSeqNo, o.PlayUntilSeqNo)
	}
	if o.PlayFromSeqNo < 0 {
		return fmt.Errorf("%w: playFromSeqNo %d is negative",
			types.ErrInvalidOptions, o.PlayFromSeqNo)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s",
			types.ErrInvalidOptions, o.PollInterval)
	}

	return nil
}
