package replay_test

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/arloliu/reel/codec"
	"github.com/arloliu/reel/replay"
	"github.com/arloliu/reel/store"
)

// TestDemandInvariant checks, over randomized journal sizes and request
// sequences, that the number of delivered records never exceeds the
// total requested demand and that deliveries preserve journal order.
func TestDemandInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numRecords := rapid.Int64Range(0, 40).Draw(t, "numRecords")
		requests := rapid.SliceOfN(rapid.Int64Range(1, 15), 1, 6).Draw(t, "requests")

		st := store.NewMemory()
		for i := int64(0); i < numRecords; i++ {
			data, err := codec.Encode(nil, nextRecord(i, 100+i, "f", i))
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if err := st.Append(context.Background(), data); err != nil {
				t.Fatalf("append: %v", err)
			}
		}

		player := replay.NewPlayer(st)
		pub, err := player.Play(
			replay.WithFilter("f"),
			replay.WithCompleteAtEOF(true),
		)
		if err != nil {
			t.Fatalf("play: %v", err)
		}

		sub := &captureSubscriber{}
		handle := pub.Subscribe(sub)

		var requested int64
		for _, n := range requests {
			handle.Request(n)
			requested += n
		}

		expected := min(requested, numRecords)

		deadline := time.Now().Add(waitTimeout)
		for int64(sub.Count()) < expected && time.Now().Before(deadline) {
			time.Sleep(waitTick)
		}

		// Settle so an over-delivery would have time to surface.
		time.Sleep(5 * time.Millisecond)

		delivered := sub.Values()
		if int64(len(delivered)) != expected {
			t.Fatalf("delivered %d records, expected %d (requested %d of %d)",
				len(delivered), expected, requested, numRecords)
		}

		for i, v := range delivered {
			if v != int64(i) {
				t.Fatalf("out-of-order delivery at %d: got %v", i, v)
			}
		}

		// Completion needs leftover demand: reaching end of log is itself
		// a read attempt, so exactly-matched demand leaves the worker
		// idle rather than completed.
		if requested > numRecords {
			deadline = time.Now().Add(waitTimeout)
			for sub.Completes() == 0 && time.Now().Before(deadline) {
				time.Sleep(waitTick)
			}
			if sub.Completes() != 1 {
				t.Fatalf("expected completion, got %d", sub.Completes())
			}
		} else if sub.Completes() != 0 {
			t.Fatalf("completed with %d of %d demand outstanding",
				requested, numRecords)
		}

		handle.Cancel()
	})
}
