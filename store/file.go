package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arloliu/reel/types"
)

// SegmentSuffix is the file name suffix of journal segment files.
const SegmentSuffix = ".seg"

// maxRecordSize bounds a single framed record. A longer length prefix is
// treated as corruption rather than an allocation request.
const maxRecordSize = 1 << 30

// SyncMode controls when segment writes are flushed to stable storage.
type SyncMode int

const (
	// SyncNever leaves flushing to the operating system. Fastest, with a
	// crash window of unflushed records.
	SyncNever SyncMode = iota

	// SyncAlways fsyncs after every append. Highest durability, lowest
	// throughput.
	SyncAlways
)

// FileConfig configures a file store.
type FileConfig struct {
	// SegmentSize is the byte threshold after which a new segment file is
	// started. Default: 64MB.
	SegmentSize int64

	// Sync controls fsync behavior on append. Default: SyncNever.
	Sync SyncMode
}

// DefaultFileConfig returns the default file store configuration.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		SegmentSize: 64 << 20,
		Sync:        SyncNever,
	}
}

// FileOption configures a File store.
type FileOption func(*FileConfig)

// WithSegmentSize sets the segment rotation threshold in bytes.
func WithSegmentSize(n int64) FileOption {
	return func(c *FileConfig) {
		c.SegmentSize = n
	}
}

// WithSyncMode sets the fsync behavior on append.
func WithSyncMode(m SyncMode) FileOption {
	return func(c *FileConfig) {
		c.Sync = m
	}
}

// File implements an append-only log over segmented files.
//
// Records are framed as a 4-byte little-endian length followed by the
// record body. Segments are named "00000000.seg", "00000001.seg", ... and
// rotated once they exceed the configured segment size.
//
// The journal directory is created lazily on the first append, so opening
// a file store has no filesystem side effects. Readers tolerate a missing
// directory and report it as an empty log.
//
// Appends are safe for concurrent use; each reader must be confined to a
// single goroutine.
type File struct {
	dir    string
	config FileConfig

	mu      sync.Mutex
	cur     *os.File
	curIdx  int64
	curSize int64
	closed  atomic.Bool
}

// OpenFile opens (or prepares) a file store rooted at dir.
//
// Existing segments are picked up, and new appends continue after the
// highest existing segment. The directory itself is created on the first
// append, not here.
func OpenFile(dir string, opts ...FileOption) (*File, error) {
	if dir == "" {
		return nil, errors.New("reel: file store directory cannot be empty")
	}

	config := DefaultFileConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.SegmentSize <= 0 {
		return nil, fmt.Errorf("reel: segment size must be positive, got %d", config.SegmentSize)
	}

	return &File{dir: dir, config: config, curIdx: -1}, nil
}

// Dir returns the store's root directory.
func (f *File) Dir() string {
	return f.dir
}

// Append frames and writes one record, rotating segments as needed.
func (f *File) Append(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.closed.Load() {
		return types.ErrStoreClosed
	}
	if len(data) > maxRecordSize {
		return fmt.Errorf("reel: record of %d bytes exceeds maximum record size", len(data))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureSegment(int64(len(data))); err != nil {
		return &types.StoreError{Op: "append", Cause: err}
	}

	frame := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	n, err := f.cur.Write(frame)
	f.curSize += int64(n)
	if err != nil {
		return &types.StoreError{Op: "append", Cause: err}
	}

	if f.config.Sync == SyncAlways {
		if err := f.cur.Sync(); err != nil {
			return &types.StoreError{Op: "append", Cause: err}
		}
	}

	return nil
}

// ensureSegment opens the current segment, creating the directory and the
// initial segment on first use, and rotates when the next frame would push
// the segment past the size threshold. Callers hold f.mu.
func (f *File) ensureSegment(frameLen int64) error {
	if f.cur == nil {
		if err := os.MkdirAll(f.dir, 0o755); err != nil {
			return err
		}

		idx, err := lastSegmentIndex(f.dir)
		if err != nil {
			return err
		}
		if idx < 0 {
			idx = 0
		}

		if err := f.openSegmentForAppend(idx); err != nil {
			return err
		}
	}

	if f.curSize > 0 && f.curSize+4+frameLen > f.config.SegmentSize {
		if err := f.cur.Close(); err != nil {
			return err
		}
		if err := f.openSegmentForAppend(f.curIdx + 1); err != nil {
			return err
		}
	}

	return nil
}

func (f *File) openSegmentForAppend(idx int64) error {
	file, err := os.OpenFile(segmentPath(f.dir, idx), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()

		return err
	}

	f.cur = file
	f.curIdx = idx
	f.curSize = info.Size()

	return nil
}

// OpenReader returns a reader positioned at the first record of the first
// segment.
func (f *File) OpenReader() (Reader, error) {
	if f.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	return &fileReader{dir: f.dir, seg: -1}, nil
}

// Close closes the current segment file. Safe to call multiple times.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cur != nil {
		err := f.cur.Close()
		f.cur = nil

		return err
	}

	return nil
}

// fileReader scans segments in order with its own file handles, so it
// never interferes with the writer or with other readers.
type fileReader struct {
	dir    string
	seg    int64 // -1 until the first segment is located
	f      *os.File
	closed atomic.Bool
}

// ReadNext returns the next framed record.
//
// A partially written frame at the tail (the writer is mid-append) is
// reported as not-available; the reader rewinds and retries the same
// position on the next call.
func (r *fileReader) ReadNext(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if r.closed.Load() {
		return nil, false, types.ErrReaderClosed
	}

	for {
		if r.f == nil {
			ok, err := r.openCurrentSegment()
			if err != nil {
				return nil, false, &types.StoreError{Op: "read", Cause: err}
			}
			if !ok {
				return nil, false, nil
			}
		}

		pos, err := r.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, false, &types.StoreError{Op: "read", Cause: err}
		}

		var hdr [4]byte
		if _, err := io.ReadFull(r.f, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				// Clean frame boundary: advance to the next segment if
				// the writer has rotated, otherwise we are caught up.
				if segmentExists(r.dir, r.seg+1) {
					r.f.Close()
					r.f = nil
					r.seg++

					continue
				}

				return nil, false, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return r.rewind(pos)
			}

			return nil, false, &types.StoreError{Op: "read", Cause: err}
		}

		length := binary.LittleEndian.Uint32(hdr[:])
		if length > maxRecordSize {
			return nil, false, &types.StoreError{
				Op:    "read",
				Cause: fmt.Errorf("corrupt frame length %d in segment %d", length, r.seg),
			}
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r.f, data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return r.rewind(pos)
			}

			return nil, false, &types.StoreError{Op: "read", Cause: err}
		}

		return data, true, nil
	}
}

// rewind seeks back to the start of a half-visible frame and reports
// not-available so the caller retries once the writer finishes.
func (r *fileReader) rewind(pos int64) ([]byte, bool, error) {
	if _, err := r.f.Seek(pos, io.SeekStart); err != nil {
		return nil, false, &types.StoreError{Op: "read", Cause: err}
	}

	return nil, false, nil
}

// openCurrentSegment opens the segment the reader is positioned at,
// locating the first segment on initial use. Returns ok=false when no
// segment exists yet.
func (r *fileReader) openCurrentSegment() (bool, error) {
	if r.seg < 0 {
		first, err := firstSegmentIndex(r.dir)
		if err != nil {
			return false, err
		}
		if first < 0 {
			return false, nil
		}
		r.seg = first
	}

	file, err := os.Open(segmentPath(r.dir, r.seg))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}
	r.f = file

	return true, nil
}

// Close closes the reader's segment handle.
func (r *fileReader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	if r.f != nil {
		err := r.f.Close()
		r.f = nil

		return err
	}

	return nil
}

func segmentPath(dir string, idx int64) string {
	return filepath.Join(dir, fmt.Sprintf("%08d%s", idx, SegmentSuffix))
}

func segmentExists(dir string, idx int64) bool {
	_, err := os.Stat(segmentPath(dir, idx))

	return err == nil
}

// segmentIndexes lists the segment indexes present in dir, sorted
// ascending. A missing directory yields an empty list.
func segmentIndexes(dir string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var indexes []int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, SegmentSuffix) {
			continue
		}
		idx, err := strconv.ParseInt(strings.TrimSuffix(name, SegmentSuffix), 10, 64)
		if err != nil {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	return indexes, nil
}

func firstSegmentIndex(dir string) (int64, error) {
	indexes, err := segmentIndexes(dir)
	if err != nil || len(indexes) == 0 {
		return -1, err
	}

	return indexes[0], nil
}

func lastSegmentIndex(dir string) (int64, error) {
	indexes, err := segmentIndexes(dir)
	if err != nil || len(indexes) == 0 {
		return -1, err
	}

	return indexes[len(indexes)-1], nil
}
