package game

import (
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/rook/internal/deck"
)

// Config holds the rules and pacing of a table
type Config struct {
	Players       []Player
	WinningScore  int
	DealerBid     int
	MaxBid        int
	RevealDelay   time.Duration
	SettleDelay   time.Duration
	GameOverDelay time.Duration
}

// DefaultConfig returns the standard rules
func DefaultConfig() Config {
	return Config{
		Players:       append([]Player(nil), DefaultPlayers...),
		WinningScore:  300,
		DealerBid:     70,
		MaxBid:        deck.TotalPoints,
		RevealDelay:   3 * time.Second,
		SettleDelay:   5 * time.Second,
		GameOverDelay: 5 * time.Second,
	}
}

// Option configures an Engine
type Option func(*Engine)

// WithConfig replaces the default rules
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithClock sets the clock that drives trick settlement
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRecorder sets the destination for game events
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// Engine owns the single authoritative State of a table. Commands are
// applied one at a time under a lock; trick settlement runs on timers that
// take the same lock.
type Engine struct {
	mu       sync.Mutex
	config   Config
	state    State
	deck     *deck.Deck
	clock    quartz.Clock
	logger   *log.Logger
	recorder Recorder
	notifier *Notifier

	gameID  uuid.UUID
	handID  uuid.UUID
	pending *quartz.Timer
	closed  bool
}

// NewEngine creates an engine in the pre-deal phase with nobody seated
func NewEngine(logger *log.Logger, rng *rand.Rand, opts ...Option) *Engine {
	e := &Engine{
		config:   DefaultConfig(),
		deck:     deck.NewDeck(rng),
		clock:    quartz.NewReal(),
		logger:   logger.WithPrefix("engine"),
		recorder: nopRecorder{},
		notifier: NewNotifier(),
		gameID:   newID(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.config.Players) == 0 {
		e.config.Players = append([]Player(nil), DefaultPlayers...)
	}
	e.state = newState(e.config.Players)
	return e
}

// Config returns the rules the engine was built with
func (e *Engine) Config() Config {
	return e.config
}

// Snapshot returns a deep copy of the current state
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// View calls fn with a snapshot while holding the engine lock, so no update
// is published until fn returns. fn must not call back into the engine.
func (e *Engine) View(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state.Clone())
}

// Subscribe registers s for state updates and returns a function that
// removes it
func (e *Engine) Subscribe(s Subscriber) (unsubscribe func()) {
	return e.notifier.Subscribe(s)
}

// Close stops any pending settlement step. Commands are still accepted but
// a trick completed after Close is never settled.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

// publish must be called with e.mu held
func (e *Engine) publish() {
	e.notifier.Publish(e.state.Clone())
}

func (e *Engine) header(t EventType) Header {
	return Header{
		TS:   e.clock.Now().UnixMilli(),
		Type: t,
		Game: e.gameID,
		Hand: e.handID,
	}
}

func (e *Engine) record(ev Event) {
	e.recorder.Record(ev)
}

func (e *Engine) knows(p Player) bool {
	_, ok := e.state.Connected[p]
	return ok
}

// newID returns a time-ordered UUIDv7 so game and hand IDs sort by creation
func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
