package store_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/reel/store"
	"github.com/arloliu/reel/test/testutil"
)

var natsStreamSeq atomic.Int64

func TestNATSStoreNewWithNilJetStream(t *testing.T) {
	_, err := store.NewNATS(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JetStream context is nil")
}

func TestNATSStoreContract(t *testing.T) {
	js := testutil.StartEmbeddedNATS(t)

	runStoreContract(t, func(t *testing.T) store.Store {
		t.Helper()

		// Each contract case gets its own stream so positions and
		// contents never bleed between subtests.
		n := natsStreamSeq.Add(1)
		st, err := store.NewNATS(js,
			store.WithStreamName(fmt.Sprintf("reel-test-%d", n)),
			store.WithSubject(fmt.Sprintf("reel.test.%d", n)),
		)
		require.NoError(t, err)

		return st
	})
}

func TestNATSStoreMultipleReadersShareStream(t *testing.T) {
	js := testutil.StartEmbeddedNATS(t)

	st, err := store.NewNATS(js,
		store.WithStreamName("reel-test-shared"),
		store.WithSubject("reel.test.shared"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, []byte("one")))
	require.NoError(t, st.Append(ctx, []byte("two")))

	// Limits-based retention: a reader consuming the stream must not
	// remove records from another reader's view.
	r1, err := st.OpenReader()
	require.NoError(t, err)
	defer r1.Close()

	for _, want := range []string{"one", "two"} {
		data, ok, err := readEventually(t, r1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(data))
	}

	r2, err := st.OpenReader()
	require.NoError(t, err)
	defer r2.Close()

	data, ok, err := readEventually(t, r2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", string(data))
}
