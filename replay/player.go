package replay

import (
	"errors"

	"github.com/google/uuid"

	"github.com/arloliu/reel/internal/logging"
	"github.com/arloliu/reel/internal/metrics"
	"github.com/arloliu/reel/store"
	"github.com/arloliu/reel/types"
)

// Player creates demand-controlled publishers over a recorded journal.
//
// A Player is cheap and stateless: all per-replay state lives in the
// subscription workers. One Player may serve many concurrent replays,
// each with its own reader position.
type Player struct {
	store   store.Store
	logger  types.Logger
	metrics types.MetricsCollector
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLogger sets the structured logger for replay events.
func WithLogger(l types.Logger) PlayerOption {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics collector for replay statistics.
func WithMetrics(m types.MetricsCollector) PlayerOption {
	return func(p *Player) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPlayer creates a player over the given store.
func NewPlayer(st store.Store, opts ...PlayerOption) *Player {
	p := &Player{
		store:   st,
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewNopMetrics(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Play validates the options and returns a publisher for them.
//
// Validation failures are reported here, synchronously, before any
// subscription exists. The returned publisher may be subscribed multiple
// times; every subscription replays the journal from the start under the
// same options with its own reader and worker.
func (p *Player) Play(opts ...Option) (types.Publisher, error) {
	if p.store == nil {
		return nil, errors.New("reel: player has no store")
	}

	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	return &playPublisher{player: p, options: options}, nil
}

// playPublisher binds validated options to the player's store.
type playPublisher struct {
	player  *Player
	options Options
}

// Subscribe opens a fresh reader at the start of the journal and spawns
// the subscription's worker.
//
// The subscription handle is constructed before the worker starts, so no
// callback is invoked re-entrantly from Subscribe. Initial demand is
// zero: nothing is delivered until the subscriber requests.
func (pub *playPublisher) Subscribe(sub types.Subscriber) types.Subscription {
	p := pub.player

	w := &worker{
		id:      uuid.NewString(),
		sub:     sub,
		opts:    pub.options,
		logger:  p.logger,
		metrics: p.metrics,
	}

	p.metrics.IncSubscriptionStarted()
	p.logger.Debug("replay subscription started",
		"subscription", w.id,
		"filter", pub.options.Filter,
	)

	reader, err := p.store.OpenReader()
	if err != nil {
		// The caller still gets a subscription handle; the failure
		// arrives as the terminal signal, off the Subscribe stack.
		go w.fail(&types.StoreError{Op: "open reader", Cause: err})

		return &playSubscription{worker: w}
	}
	w.reader = reader

	go w.run()

	return &playSubscription{worker: w}
}

// playSubscription is the consumer-side handle for one worker.
type playSubscription struct {
	worker *worker
}

// Request adds n to the subscription's outstanding demand.
func (s *playSubscription) Request(n int64) {
	s.worker.request(n)
}

// Cancel flags the subscription for cancellation.
func (s *playSubscription) Cancel() {
	s.worker.cancel()
}
