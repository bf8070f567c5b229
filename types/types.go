// Package types provides shared types and errors for the reel library.
//
// This is a "leaf" package with no imports from other reel packages,
// allowing it to be imported by any package without causing import cycles.
package types

import "errors"

// Status identifies the kind of signal a journal record carries.
//
// The numeric values are part of the record wire format and must not be
// renumbered.
type Status uint8

const (
	// StatusNext carries a payload value emitted by the recorded stream.
	StatusNext Status = 1
	// StatusComplete marks the normal end of a logical stream. It carries
	// no payload and is the last record for its filter.
	StatusComplete Status = 2
	// StatusError marks the abnormal end of a logical stream. It carries
	// the original error message and is the last record for its filter.
	StatusError Status = 3
)

// Valid reports whether the status is one of the known wire tags.
func (s Status) Valid() bool {
	return s == StatusNext || s == StatusComplete || s == StatusError
}

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusNext:
		return "NEXT"
	case StatusComplete:
		return "COMPLETE"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Record is one decoded journal entry.
//
// Records are written by a Recorder and read back by a Player. Within one
// Filter group at most one COMPLETE or ERROR record exists, and it is the
// last record with that filter.
type Record struct {
	// SeqNo is the journal-wide sequence number, strictly increasing in
	// log order across all filters.
	SeqNo int64

	// Timestamp is the wall-clock capture time in epoch milliseconds.
	Timestamp int64

	// Filter labels the logical stream this record belongs to. One
	// physical journal may interleave records from multiple filters.
	Filter string

	// Status is the signal kind: NEXT, COMPLETE or ERROR.
	Status Status

	// Value is the payload for StatusNext records. It must be a
	// MessagePack-representable value (strings, numbers, bools, []byte,
	// maps and slices thereof, or nil).
	Value any

	// ErrMsg is the recorded error message for StatusError records.
	ErrMsg string
}

// Subscriber receives replayed signals from a Publisher.
//
// All callbacks for one subscription are invoked from a single worker
// goroutine, never concurrently. After OnComplete or OnError no further
// callback occurs.
type Subscriber interface {
	// OnNext delivers one payload value. It is called only while the
	// subscriber has outstanding demand.
	OnNext(value any)

	// OnComplete signals the normal end of the replay. Called at most once.
	OnComplete()

	// OnError signals the abnormal end of the replay. Called at most once.
	OnError(err error)
}

// Subscription is the consumer-side handle for one active replay.
type Subscription interface {
	// Request adds n to the subscription's outstanding demand. Values of
	// n <= 0 are ignored. Safe for concurrent use.
	Request(n int64)

	// Cancel stops the replay. Idempotent; after the worker observes the
	// cancellation no further callbacks occur.
	Cancel()
}

// Publisher is the demand-controlled source of replayed records.
type Publisher interface {
	// Subscribe registers a subscriber and returns its subscription
	// handle. The handle is returned before any data is delivered; no
	// callback is invoked re-entrantly from Subscribe.
	Subscribe(sub Subscriber) Subscription
}

// Logger is the structured logging interface accepted by reel components.
//
// Arguments after the message are alternating keys and values, matching
// the log/slog convention. A nil logger is replaced by a no-op
// implementation internally.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MetricsCollector receives journal and replay statistics.
//
// A nil collector is replaced by a no-op implementation internally.
type MetricsCollector interface {
	// IncRecordAppended counts one record written to the journal.
	IncRecordAppended(filter string)

	// IncRecordDelivered counts one OnNext delivery.
	IncRecordDelivered(filter string)

	// IncRecordSkipped counts one in-window record passed over because
	// its filter did not match the replay options.
	IncRecordSkipped(filter string)

	// IncSubscriptionStarted counts one replay subscription creation.
	IncSubscriptionStarted()

	// IncSubscriptionCompleted counts one OnComplete termination.
	IncSubscriptionCompleted()

	// IncSubscriptionCancelled counts one cancellation observed by a worker.
	IncSubscriptionCancelled()

	// IncSubscriptionFailed counts one OnError termination.
	IncSubscriptionFailed()

	// ObservePaceDelay records one pacing sleep, in seconds, inserted to
	// reproduce the original inter-record gap during ACTUAL_TIME replay.
	ObservePaceDelay(seconds float64)
}

// Sentinel errors for common failure scenarios.
var (
	// ErrInvalidOptions indicates play options that failed validation.
	// It is returned synchronously by Play, before any subscription exists.
	ErrInvalidOptions = errors.New("reel: invalid play options")

	// ErrJournalClosed indicates an operation on a closed journal.
	ErrJournalClosed = errors.New("reel: journal is closed")

	// ErrStoreClosed indicates an append or read on a closed store.
	ErrStoreClosed = errors.New("reel: store is closed")

	// ErrReaderClosed indicates a read on a closed reader.
	ErrReaderClosed = errors.New("reel: reader is closed")
)

// DecodeError indicates a corrupt or unrecognized journal record.
//
// The replay engine surfaces it as a terminal OnError and stops reading:
// sequence ordering cannot be trusted past a corrupt record, so it never
// skips one and continues.
type DecodeError struct {
	// Cause is the underlying decoding failure.
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return "reel: record decode failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// RecordedError is an error value that was itself recorded: the original
// stream terminated with ERROR, and replay reproduces that termination.
//
// Consumers can distinguish it from DecodeError with errors.As.
type RecordedError struct {
	// Message is the error text captured at record time.
	Message string
}

// Error implements the error interface.
func (e *RecordedError) Error() string {
	return "reel: recorded stream error: " + e.Message
}

// StoreError wraps a storage backend failure.
//
// The replay engine treats store failures as fatal for the affected
// subscription; retry policy, if any, belongs to the store itself.
type StoreError struct {
	// Op describes the failed operation ("append", "read", "open reader").
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "reel: store " + e.Op + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *StoreError) Unwrap() error {
	return e.Cause
}
