package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/randutil"
	"github.com/stretchr/testify/require"
)

// eventLog collects recorded events for assertions
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) Types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]EventType, len(l.events))
	for i, e := range l.events {
		types[i] = e.EventType()
	}
	return types
}

func (l *eventLog) OfType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type testTable struct {
	*Engine
	clock  *quartz.Mock
	events *eventLog
}

// newTestTable returns an engine on a mock clock with a fixed seed
func newTestTable(t *testing.T, opts ...Option) *testTable {
	t.Helper()
	clock := quartz.NewMock(t)
	events := &eventLog{}
	opts = append([]Option{WithClock(clock), WithRecorder(events)}, opts...)
	e := NewEngine(log.New(io.Discard), randutil.New(42), opts...)
	t.Cleanup(e.Close)
	return &testTable{Engine: e, clock: clock, events: events}
}

// seatEveryone sits the default roster north, east, south, west
func (tt *testTable) seatEveryone(t *testing.T) {
	t.Helper()
	for i, p := range DefaultPlayers {
		require.NoError(t, tt.Sit(p, Seats[i]))
	}
}

// player returns who sits at seat
func (tt *testTable) player(seat Seat) Player {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.state.Seats[seat]
}

// setPhase replaces the current phase directly
func (tt *testTable) setPhase(p Phase) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.state.Phase = p
}

// advance moves the mock clock by d and waits for any settlement step
func (tt *testTable) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tt.clock.Advance(d).MustWait(ctx)
}

// passToDealer passes every seat but the dealer, who takes the bid
func (tt *testTable) passToDealer(t *testing.T) Seat {
	t.Helper()
	s := tt.Snapshot()
	dealer := s.Dealer
	for seat := dealer.Next(); seat != dealer; seat = seat.Next() {
		require.NoError(t, tt.Pass(tt.player(seat)))
	}
	return dealer
}

// discardFirst chooses the first five cards of the bid winner's hand as the
// nest
func (tt *testTable) discardFirst(t *testing.T, trumps deck.Color) {
	t.Helper()
	s := tt.Snapshot()
	nest, ok := s.Phase.(*NestPhase)
	require.True(t, ok, "expected nest phase, got %s", s.Phase.Kind())
	discards := nest.Cards[nest.WonBid][:deck.NestSize]
	require.NoError(t, tt.ChooseNest(tt.player(nest.WonBid), discards, trumps))
}

// playTrick plays the first card of each hand in turn order
func (tt *testTable) playTrick(t *testing.T) Trick {
	t.Helper()
	var trick Trick
	for range Seats {
		s := tt.Snapshot()
		phase, ok := s.Phase.(*TricksPhase)
		require.True(t, ok, "expected tricks phase, got %s", s.Phase.Kind())
		card := phase.Cards[phase.Turn][0]
		trick[phase.Turn] = card
		require.NoError(t, tt.Play(s.Seats[phase.Turn], card))
	}
	return trick
}

// playHand plays ten tricks and waits for the hand to be scored and checked
// for a game win
func (tt *testTable) playHand(t *testing.T) {
	t.Helper()
	cfg := tt.Config()
	for i := 0; i < deck.HandSize; i++ {
		tt.playTrick(t)
		tt.advance(t, cfg.RevealDelay)
	}
	tt.advance(t, cfg.SettleDelay)
	tt.advance(t, cfg.GameOverDelay)
}

func mustCard(t *testing.T, s string) deck.Card {
	t.Helper()
	c, err := deck.ParseCard(s)
	require.NoError(t, err)
	return c
}

func mustTrick(t *testing.T, north, east, south, west string) Trick {
	t.Helper()
	return Trick{mustCard(t, north), mustCard(t, east), mustCard(t, south), mustCard(t, west)}
}
