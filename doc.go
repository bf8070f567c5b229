// Package reel records streams of events into an append-only journal and
// plays them back later under demand-controlled flow, reproducing the
// original values, ordering, and optionally the original timing.
//
// A journal multiplexes any number of logical streams, distinguished by a
// filter string, into one sequential log. Recording captures every
// emission with a journal-wide sequence number and a timestamp; replay
// scans the log, selects one filter, and delivers matching records to a
// subscriber as demand allows.
//
// # Recording
//
//	journal, err := reel.Open("/var/data/capture")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer journal.Close()
//
//	recorder := journal.NewRecorder()
//	recorder.Next(ctx, "prices", price)
//	recorder.Complete(ctx, "prices")
//
// # Replay
//
//	player := journal.NewPlayer()
//	pub, err := player.Play(
//	    replay.WithFilter("prices"),
//	    replay.WithReplayRate(replay.ActualTime),
//	    replay.WithCompleteAtEOF(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sub := pub.Subscribe(consumer)
//	sub.Request(1000)
//
// # Backends
//
// The store package provides the journal backends: segmented files for
// durable local capture, memory for tests, SQLite for queryable archives,
// and NATS JetStream for shared remote journals. A Journal works over any
// of them through reel.New; reel.Open is the file-backed shorthand.
//
// # Typical Uses
//
// Record a production feed once and replay it in tests at full speed, or
// in ACTUAL_TIME to reproduce a latency-sensitive bug. Because recorded
// terminals are part of the journal, a replayed stream completes or fails
// exactly where the original did.
package reel
