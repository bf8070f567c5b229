package reel

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/arloliu/reel/types"
)

// Recorder writes records to a journal under caller-chosen filters.
//
// A Recorder is a thin handle; create as many as needed. Appends from
// multiple recorders interleave in journal order with strictly
// increasing sequence numbers.
type Recorder struct {
	journal *Journal
}

// Next records a data emission for the filter.
func (r *Recorder) Next(ctx context.Context, filter string, value any) error {
	return r.journal.append(ctx, filter, types.StatusNext, value, "")
}

// Complete records the normal end of the filter's stream. A replay of
// the filter completes when it reaches this record.
func (r *Recorder) Complete(ctx context.Context, filter string) error {
	return r.journal.append(ctx, filter, types.StatusComplete, nil, "")
}

// Error records the failure of the filter's stream, preserving the
// error's message. A replay of the filter fails with a RecordedError
// when it reaches this record.
func (r *Recorder) Error(ctx context.Context, filter string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	return r.journal.append(ctx, filter, types.StatusError, nil, msg)
}

// Record subscribes to pub with unbounded demand and records every
// emission under the filter until the stream terminates.
//
// It blocks until the upstream terminal is recorded or ctx is done. The
// upstream terminal is journaled, not returned: a recorded error stream
// is a successful recording, so Record returns nil for it. A non-nil
// return means the recording itself failed, either an append error or
// ctx cancellation.
func (r *Recorder) Record(ctx context.Context, pub types.Publisher, filter string) error {
	rs := &recordingSubscriber{
		rec:    r,
		filter: filter,
		done:   make(chan error, 1),
	}

	sub := pub.Subscribe(rs)
	sub.Request(math.MaxInt64)

	select {
	case err := <-rs.done:
		if err != nil {
			// An append failure ends the recording while the upstream is
			// still live; detach so its worker stops delivering into a
			// dead recording.
			sub.Cancel()
		}

		return err
	case <-ctx.Done():
		sub.Cancel()

		return ctx.Err()
	}
}

// recordingSubscriber forwards upstream signals into journal appends.
type recordingSubscriber struct {
	rec    *Recorder
	filter string
	done   chan error
	once   sync.Once
	failed atomic.Bool
}

func (s *recordingSubscriber) OnNext(value any) {
	if s.failed.Load() {
		return
	}

	if err := s.rec.Next(context.Background(), s.filter, value); err != nil {
		s.failed.Store(true)
		s.finish(err)
	}
}

func (s *recordingSubscriber) OnComplete() {
	s.finish(s.rec.Complete(context.Background(), s.filter))
}

func (s *recordingSubscriber) OnError(cause error) {
	s.finish(s.rec.Error(context.Background(), s.filter, cause))
}

func (s *recordingSubscriber) finish(err error) {
	s.once.Do(func() {
		s.done <- err
	})
}
