package reel

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/reel/codec"
	"github.com/arloliu/reel/internal/logging"
	"github.com/arloliu/reel/internal/metrics"
	"github.com/arloliu/reel/replay"
	"github.com/arloliu/reel/store"
	"github.com/arloliu/reel/types"
)

// DefaultDirName is the subdirectory Open creates under the given base
// directory to hold journal segments.
const DefaultDirName = ".reel"

// Journal is a recorded event log bound to a store backend.
//
// A Journal assigns journal-wide sequence numbers and timestamps on
// append, and hands out Recorders for writing and Players for replaying.
// One journal may serve concurrent recorders and any number of replays.
type Journal struct {
	store     store.Store
	ownsStore bool
	dirName   string

	// mu orders sequence assignment with the append itself, so sequence
	// numbers are strictly increasing in journal order even with
	// concurrent recorders.
	mu  sync.Mutex
	seq int64

	closed  bool
	clock   func() int64
	logger  types.Logger
	metrics types.MetricsCollector
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the structured logger used by the journal and the
// players it creates.
func WithLogger(l types.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithMetrics sets the metrics collector used by the journal and the
// players it creates.
func WithMetrics(m types.MetricsCollector) Option {
	return func(j *Journal) {
		if m != nil {
			j.metrics = m
		}
	}
}

// WithTimestampProvider overrides the record timestamp source. The
// provider must return epoch milliseconds. Useful for deterministic
// tests and for recording streams that carry their own time base.
func WithTimestampProvider(clock func() int64) Option {
	return func(j *Journal) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// WithDirName overrides the journal subdirectory name used by Open and
// Clear.
func WithDirName(name string) Option {
	return func(j *Journal) {
		if name != "" {
			j.dirName = name
		}
	}
}

func newJournal(opts ...Option) *Journal {
	j := &Journal{
		dirName: DefaultDirName,
		clock:   func() int64 { return time.Now().UnixMilli() },
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// New creates a journal over an existing store. The caller keeps
// ownership of the store; closing the journal does not close it.
//
// Sequence numbering resumes after any records already in the store.
func New(st store.Store, opts ...Option) (*Journal, error) {
	if st == nil {
		return nil, errors.New("reel: journal store is required")
	}

	j := newJournal(opts...)
	j.store = st

	if err := j.initSeq(); err != nil {
		return nil, err
	}

	return j, nil
}

// Open creates a file-backed journal under dir. Segments live in the
// journal subdirectory (DefaultDirName unless overridden), which is
// created on the first recording, not here. Closing the journal closes
// the underlying store.
func Open(dir string, opts ...Option) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("reel: journal directory is required")
	}

	j := newJournal(opts...)

	st, err := store.OpenFile(filepath.Join(dir, j.dirName))
	if err != nil {
		return nil, err
	}
	j.store = st
	j.ownsStore = true

	if err := j.initSeq(); err != nil {
		st.Close()

		return nil, err
	}

	return j, nil
}

// initSeq counts the records already present so new appends continue the
// journal-wide sequence instead of restarting at zero.
func (j *Journal) initSeq() error {
	reader, err := j.store.OpenReader()
	if err != nil {
		return &types.StoreError{Op: "open reader", Cause: err}
	}
	defer reader.Close()

	ctx := context.Background()
	var n int64
	for {
		_, ok, err := reader.ReadNext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++
	}

	j.mu.Lock()
	j.seq = n
	j.mu.Unlock()

	if n > 0 {
		j.logger.Debug("journal resumed", "records", n)
	}

	return nil
}

// append assigns the next sequence number and timestamp, encodes the
// record, and writes it to the store. The sequence only advances when
// the append succeeds.
func (j *Journal) append(ctx context.Context, filter string, status types.Status, value any, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return types.ErrJournalClosed
	}

	rec := types.Record{
		SeqNo:     j.seq,
		Timestamp: j.clock(),
		Filter:    filter,
		Status:    status,
		Value:     value,
		ErrMsg:    errMsg,
	}

	data, err := codec.Encode(nil, rec)
	if err != nil {
		return err
	}

	if err := j.store.Append(ctx, data); err != nil {
		return err
	}

	j.seq++
	j.metrics.IncRecordAppended(filter)

	return nil
}

// NewRecorder returns a recorder writing to this journal.
func (j *Journal) NewRecorder() *Recorder {
	return &Recorder{journal: j}
}

// NewPlayer returns a player replaying this journal, inheriting the
// journal's logger and metrics collector.
func (j *Journal) NewPlayer() *replay.Player {
	return replay.NewPlayer(j.store,
		replay.WithLogger(j.logger),
		replay.WithMetrics(j.metrics),
	)
}

// Store returns the underlying store.
func (j *Journal) Store() store.Store {
	return j.store
}

// Close marks the journal closed for recording. Journals created with
// Open also close their store; journals over a caller-provided store do
// not. Safe to call multiple times. Replays already running keep their
// readers until they finish.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()

		return nil
	}
	j.closed = true
	j.mu.Unlock()

	if j.ownsStore {
		return j.store.Close()
	}

	return nil
}

// Clear removes the journal's segment files under dir, honoring
// WithDirName. Foreign files in the journal directory are left alone;
// the directory itself is removed only when nothing remains in it. A
// missing directory is not an error.
func Clear(dir string, opts ...Option) error {
	j := newJournal(opts...)
	path := filepath.Join(dir, j.dirName)

	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), store.SegmentSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}

	remaining, err := os.ReadDir(path)
	if err == nil && len(remaining) == 0 {
		return os.Remove(path)
	}

	return nil
}
