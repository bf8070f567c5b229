package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/reel/types"
)

// NATSConfig configures the NATS JetStream store.
type NATSConfig struct {
	// StreamName is the JetStream stream holding the journal.
	// Default: "reel-journal"
	StreamName string

	// Subject is the subject records are published to.
	// Default: "reel.journal"
	Subject string

	// MaxAge is the maximum age of records in the stream. Zero keeps
	// records forever. Passed through to JetStream as-is; reel applies no
	// retention policy of its own.
	MaxAge time.Duration

	// MaxMsgs caps the number of records in the stream. Default: unlimited.
	MaxMsgs int64

	// MaxBytes caps the total stream size. Default: unlimited.
	MaxBytes int64

	// Replicas is the number of stream replicas.
	// Default: 1 (use 3 for production clusters)
	Replicas int

	// PublishTimeout bounds each append when the caller's context has no
	// deadline of its own. Default: 5 seconds.
	PublishTimeout time.Duration

	// FetchWait is how long a reader waits for a message before reporting
	// not-available. Keep it short: ReadNext is specified as
	// non-blocking, and this wait only smooths over network latency.
	// Default: 10ms.
	FetchWait time.Duration
}

// DefaultNATSConfig returns the default configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		StreamName:     "reel-journal",
		Subject:        "reel.journal",
		MaxMsgs:        -1,
		MaxBytes:       -1,
		Replicas:       1,
		PublishTimeout: 5 * time.Second,
		FetchWait:      10 * time.Millisecond,
	}
}

// NATSOption configures a NATS store.
type NATSOption func(*NATSConfig)

// WithStreamName sets the JetStream stream name.
func WithStreamName(name string) NATSOption {
	return func(c *NATSConfig) {
		c.StreamName = name
	}
}

// WithSubject sets the subject records are published to.
func WithSubject(subject string) NATSOption {
	return func(c *NATSConfig) {
		c.Subject = subject
	}
}

// WithMaxAge sets the maximum age of records in the stream.
func WithMaxAge(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.MaxAge = d
	}
}

// WithMaxMsgs caps the number of records in the stream.
func WithMaxMsgs(n int64) NATSOption {
	return func(c *NATSConfig) {
		c.MaxMsgs = n
	}
}

// WithMaxBytes caps the total stream size in bytes.
func WithMaxBytes(n int64) NATSOption {
	return func(c *NATSConfig) {
		c.MaxBytes = n
	}
}

// WithReplicas sets the number of stream replicas.
func WithReplicas(n int) NATSOption {
	return func(c *NATSConfig) {
		c.Replicas = n
	}
}

// WithPublishTimeout sets the default timeout for appends.
func WithPublishTimeout(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.PublishTimeout = d
	}
}

// WithFetchWait sets how long a reader waits before reporting
// not-available.
func WithFetchWait(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.FetchWait = d
	}
}

// NATS implements an append-only log on a NATS JetStream stream.
//
// Unlike Memory, records persisted to JetStream survive process crashes,
// and multiple processes can tail the same journal. Each reader is an
// ordered ephemeral consumer starting from the first stream sequence, so
// readers never interfere with each other or consume records destructively
// (the stream uses limits-based retention, not a work queue).
type NATS struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	config NATSConfig
	closed atomic.Bool
}

// NewNATS creates a JetStream-backed store.
//
// This creates or updates the underlying stream. The caller is responsible
// for creating the JetStream context from their NATS connection.
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	js, _ := jetstream.New(nc)
//	st, _ := store.NewNATS(js)
func NewNATS(js jetstream.JetStream, opts ...NATSOption) (*NATS, error) {
	if js == nil {
		return nil, errors.New("reel: JetStream context is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	streamConfig := jetstream.StreamConfig{
		Name:        config.StreamName,
		Description: "reel journal",
		Subjects:    []string{config.Subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      config.MaxAge,
		MaxMsgs:     config.MaxMsgs,
		MaxBytes:    config.MaxBytes,
		Replicas:    config.Replicas,
		Storage:     jetstream.FileStorage,
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		return nil, fmt.Errorf("reel: failed to create/update stream: %w", err)
	}

	return &NATS{js: js, stream: stream, config: config}, nil
}

// Append publishes one record to the journal stream.
func (n *NATS) Append(ctx context.Context, data []byte) error {
	if n.closed.Load() {
		return types.ErrStoreClosed
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && n.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.PublishTimeout)
		defer cancel()
	}

	if _, err := n.js.Publish(ctx, n.config.Subject, data); err != nil {
		return &types.StoreError{Op: "append", Cause: err}
	}

	return nil
}

// OpenReader creates an ordered ephemeral consumer positioned at the first
// record of the stream.
func (n *NATS) OpenReader() (Reader, error) {
	if n.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	consumer, err := n.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, &types.StoreError{Op: "open reader", Cause: err}
	}

	return &natsReader{consumer: consumer, fetchWait: n.config.FetchWait}, nil
}

// Close marks the store as closed. The JetStream stream and its records
// are left untouched. Safe to call multiple times.
func (n *NATS) Close() error {
	n.closed.Store(true)

	return nil
}

type natsReader struct {
	consumer  jetstream.Consumer
	fetchWait time.Duration
	closed    atomic.Bool
}

// ReadNext fetches the next message, mapping a fetch timeout to
// not-available so the replay worker decides how to wait.
func (r *natsReader) ReadNext(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if r.closed.Load() {
		return nil, false, types.ErrReaderClosed
	}

	msg, err := r.consumer.Next(jetstream.FetchMaxWait(r.fetchWait))
	if err != nil {
		if errors.Is(err, jetstream.ErrNoMessages) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, false, nil
		}

		return nil, false, &types.StoreError{Op: "read", Cause: err}
	}

	return msg.Data(), true, nil
}

// Close marks the reader as closed. The ephemeral consumer is cleaned up
// by the server once idle.
func (r *natsReader) Close() error {
	r.closed.Store(true)

	return nil
}
