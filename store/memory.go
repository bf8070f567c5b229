package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/reel/types"
)

// Memory implements an in-process append-only log.
//
// # Durability Warning
//
// Appended records are LOST on process restart. Use Memory for:
//   - Development and testing
//   - Short-lived recordings where loss is acceptable
//
// For durable journals, use File, SQLite or NATS.
//
// # Thread Safety
//
// Append and OpenReader are safe for concurrent use. Close marks the
// store as closed; readers opened earlier keep access to records already
// appended.
type Memory struct {
	mu      sync.RWMutex
	records [][]byte
	closed  atomic.Bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds one record at the end of the log.
//
// The data is copied, so the caller may reuse its buffer.
func (m *Memory) Append(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return types.ErrStoreClosed
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.records = append(m.records, buf)
	m.mu.Unlock()

	return nil
}

// OpenReader returns a reader positioned at the first record.
func (m *Memory) OpenReader() (Reader, error) {
	if m.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	return &memoryReader{store: m}, nil
}

// Len returns the number of records currently in the store.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// Close marks the store as closed. Subsequent Append and OpenReader calls
// return ErrStoreClosed. Safe to call multiple times.
func (m *Memory) Close() error {
	m.closed.Store(true)

	return nil
}

type memoryReader struct {
	store  *Memory
	pos    int
	closed atomic.Bool
}

// ReadNext returns the record at the reader's position and advances it.
// Records appended after the reader caught up are picked up by later calls.
func (r *memoryReader) ReadNext(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if r.closed.Load() {
		return nil, false, types.ErrReaderClosed
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.pos >= len(r.store.records) {
		return nil, false, nil
	}

	// Records are copied on append and never mutated afterwards, so the
	// stored slice can be handed out directly.
	data := r.store.records[r.pos]
	r.pos++

	return data, true, nil
}

// Close marks the reader as closed.
func (r *memoryReader) Close() error {
	r.closed.Store(true)

	return nil
}
