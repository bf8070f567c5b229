package store_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/reel/store"
)

func TestFileStoreLazyDirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")

	st, err := store.OpenFile(dir)
	require.NoError(t, err)
	defer st.Close()

	// Opening the store must not touch the filesystem.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	// A reader over the missing directory sees an empty log.
	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	_, ok, err := reader.ReadNext(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// The first append creates the directory.
	require.NoError(t, st.Append(context.Background(), []byte("first")))
	_, statErr = os.Stat(dir)
	require.NoError(t, statErr)

	data, ok, err := reader.ReadNext(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(data))
}

func TestFileStoreSegmentRotation(t *testing.T) {
	dir := t.TempDir()

	// Tiny segments force a rotation every couple of records.
	st, err := store.OpenFile(dir, store.WithSegmentSize(32))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	payload := []byte("0123456789") // 14 bytes framed

	for i := 0; i < 10; i++ {
		require.NoError(t, st.Append(ctx, payload))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1, "small segment size must produce multiple segments")

	// A reader must cross segment boundaries transparently.
	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	for i := 0; i < 10; i++ {
		data, ok, err := reader.ReadNext(ctx)
		require.NoError(t, err)
		require.True(t, ok, "record %d must be readable across segments", i)
		assert.Equal(t, payload, data)
	}

	_, ok, err := reader.ReadNext(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreReopenContinuesLastSegment(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.OpenFile(dir)
	require.NoError(t, err)
	require.NoError(t, st.Append(ctx, []byte("before")))
	require.NoError(t, st.Close())

	st, err = store.OpenFile(dir)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Append(ctx, []byte("after")))

	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	for _, want := range []string{"before", "after"} {
		data, ok, err := reader.ReadNext(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(data))
	}
}

func TestFileStoreHalfWrittenFrame(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.OpenFile(dir)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Append(ctx, []byte("complete")))

	// Simulate a writer caught mid-append: a frame header promising more
	// bytes than are present in the file.
	seg := filepath.Join(dir, "00000000"+store.SegmentSuffix)
	f, err := os.OpenFile(seg, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], 100)
	_, err = f.Write(hdr[:])
	require.NoError(t, err)
	_, err = f.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	data, ok, err := reader.ReadNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "complete", string(data))

	// The half-visible frame is not-available, not an error.
	_, ok, err = reader.ReadNext(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Once the remaining bytes arrive the same position yields the record.
	f, err = os.OpenFile(seg, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	rest := make([]byte, 100-len("partial"))
	_, err = f.Write(rest)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, ok, err = reader.ReadNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, data, 100)
	assert.Equal(t, "partial", string(data[:7]))
}

func TestFileStoreRejectsEmptyDir(t *testing.T) {
	_, err := store.OpenFile("")
	require.Error(t, err)
}

func TestFileStoreRejectsNonPositiveSegmentSize(t *testing.T) {
	_, err := store.OpenFile(t.TempDir(), store.WithSegmentSize(0))
	require.Error(t, err)
}
