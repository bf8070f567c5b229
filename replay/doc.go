// Package replay plays recorded journals back to subscribers under a
// demand-controlled flow protocol.
//
// A Player wraps a store and produces one Publisher per Play call. Each
// Subscribe spawns a dedicated worker goroutine that scans the journal
// from the start, applies the configured filter and time/sequence bounds,
// paces emission, and delivers records to the subscriber only while
// outstanding demand is positive.
//
// # Basic Usage
//
//	player := replay.NewPlayer(st)
//	pub, err := player.Play(
//	    replay.WithFilter("prices"),
//	    replay.WithCompleteAtEOF(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sub := pub.Subscribe(consumer)
//	sub.Request(100)
//
// # Backpressure
//
// The worker reads one record from the journal only when it next needs to
// evaluate one, and never while demand is exhausted, so a slow consumer
// causes no read-ahead. Demand accounting is atomic: Request never blocks
// on an in-flight delivery.
//
// # Windows and Pacing
//
// The sequence window is inclusive at the start and exclusive at the end.
// The time window plays records stamped after PlayFromTime through those
// stamped PlayUntilTime itself; the first record past either upper bound
// ends the replay. That check runs before the filter, so a replay
// terminates at its configured end even if the target filter never
// appears again.
// ACTUAL_TIME pacing reproduces the original inter-record gaps, including
// gaps caused by other filters' records within the window.
//
// # Liveness
//
// With WithCompleteAtEOF(true) a replay completes once the reader catches
// up to the end of the journal. Otherwise it live-tails: the worker keeps
// polling for records appended later, and only cancellation or a recorded
// terminal ends the subscription.
package replay
