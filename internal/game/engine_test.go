package game

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lox/rook/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineStartsEmpty(t *testing.T) {
	tt := newTestTable(t)
	s := tt.Snapshot()

	assert.False(t, s.Busy)
	assert.Equal(t, North, s.Dealer)
	assert.Equal(t, PhasePreDeal, s.Phase.Kind())
	assert.Len(t, s.Connected, len(DefaultPlayers))
	for _, p := range DefaultPlayers {
		assert.False(t, s.Connected[p])
	}
	for _, p := range s.Seats {
		assert.Empty(t, p)
	}
	assert.Empty(t, s.NorthSouthDeltas)
	assert.Empty(t, s.EastWestDeltas)
}

func TestConnectAndDisconnect(t *testing.T) {
	tt := newTestTable(t)

	require.NoError(t, tt.Connect("bill"))
	require.NoError(t, tt.Sit("bill", South))
	assert.True(t, tt.Snapshot().Connected["bill"])

	require.NoError(t, tt.Disconnect("bill"))
	s := tt.Snapshot()
	assert.False(t, s.Connected["bill"])
	assert.Equal(t, Player("bill"), s.Seats[South], "disconnecting keeps the seat")

	err := tt.Connect("mallory")
	assert.True(t, errors.Is(err, ErrUnknownPlayer))
}

func TestSeating(t *testing.T) {
	tt := newTestTable(t)

	require.NoError(t, tt.Sit("bill", North))

	err := tt.Sit("josh", North)
	assert.True(t, errors.Is(err, ErrSeating), "expected seating error, got %v", err)

	err = tt.Sit("josh", Seat(9))
	assert.True(t, errors.Is(err, ErrSeating))

	// Moving seats vacates the old one
	require.NoError(t, tt.Sit("bill", West))
	s := tt.Snapshot()
	assert.Empty(t, s.Seats[North])
	assert.Equal(t, Player("bill"), s.Seats[West])

	require.NoError(t, tt.Stand("bill"))
	assert.Empty(t, tt.Snapshot().Seats[West])

	// Standing when not seated is a no-op
	require.NoError(t, tt.Stand("bill"))
}

func TestStartRequiresFullTable(t *testing.T) {
	tt := newTestTable(t)
	require.NoError(t, tt.Sit("bill", North))
	require.NoError(t, tt.Sit("josh", South))

	err := tt.StartNewHand("bill")
	assert.True(t, errors.Is(err, ErrSeating))
	err = tt.StartNewGame("bill")
	assert.True(t, errors.Is(err, ErrSeating))
	assert.Equal(t, PhasePreDeal, tt.Snapshot().Phase.Kind())
}

func TestStartNewHandDeals(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)

	require.NoError(t, tt.StartNewHand("bill"))
	s := tt.Snapshot()

	assert.Equal(t, East, s.Dealer, "dealer rotates before dealing")
	phase, ok := s.Phase.(*BidPhase)
	require.True(t, ok)
	assert.Equal(t, South, phase.Turn)
	assert.Len(t, phase.Nest, deck.NestSize)

	seen := map[deck.Card]bool{}
	for _, seat := range Seats {
		assert.Len(t, phase.Cards[seat], deck.HandSize)
		assert.True(t, phase.Bids[seat].Unset())
		for _, c := range phase.Cards[seat] {
			seen[c] = true
		}
	}
	for _, c := range phase.Nest {
		seen[c] = true
	}
	assert.Len(t, seen, deck.Size)

	assert.Equal(t, []EventType{EventDealt}, tt.events.Types())
}

func TestDealerWinsWhenEveryoneElsePasses(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)

	// The next deal makes north the dealer
	tt.mu.Lock()
	tt.state.Dealer = West
	tt.mu.Unlock()

	require.NoError(t, tt.StartNewHand("bill"))
	s := tt.Snapshot()
	require.Equal(t, North, s.Dealer)
	require.Equal(t, East, s.Phase.(*BidPhase).Turn)

	require.NoError(t, tt.Pass("deborah"))
	require.NoError(t, tt.Pass("josh"))
	require.NoError(t, tt.Pass("maia"))

	s = tt.Snapshot()
	nest, ok := s.Phase.(*NestPhase)
	require.True(t, ok, "expected nest phase, got %s", s.Phase.Kind())
	assert.Equal(t, North, nest.WonBid)
	assert.Equal(t, 70, nest.Bid)
	assert.Len(t, nest.Cards[North], deck.HandSize+deck.NestSize)

	wonBid := tt.events.OfType(EventWonBid)
	require.Len(t, wonBid, 1)
	assert.Equal(t, Player("bill"), wonBid[0].(WonBidEvent).Player)
}

func TestBidding(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))

	// Dealer is east, so south opens
	err := tt.Bid("bill", 80)
	assert.True(t, errors.Is(err, ErrNotYourTurn), "expected not your turn, got %v", err)

	err = tt.Bid("josh", 0)
	assert.True(t, errors.Is(err, ErrIllegalMove))
	err = tt.Bid("josh", 125)
	assert.True(t, errors.Is(err, ErrIllegalMove))

	require.NoError(t, tt.Bid("josh", 80))

	err = tt.Bid("maia", 80)
	assert.True(t, errors.Is(err, ErrIllegalMove), "bid must beat the standing bid")
	require.NoError(t, tt.Bid("maia", 85))
	require.NoError(t, tt.Pass("bill"))
	require.NoError(t, tt.Pass("deborah"))

	s := tt.Snapshot()
	phase := s.Phase.(*BidPhase)
	assert.Equal(t, South, phase.Turn, "auction returns to south")
	assert.Equal(t, BySeat[Bid]{PassedBid, PassedBid, {Amount: 80}, {Amount: 85}}, phase.Bids)

	require.NoError(t, tt.Bid("josh", 120))

	s = tt.Snapshot()
	nest, ok := s.Phase.(*NestPhase)
	require.True(t, ok)
	assert.Equal(t, South, nest.WonBid)
	assert.Equal(t, 120, nest.Bid)

	err = tt.Bid("maia", 90)
	assert.True(t, errors.Is(err, ErrWrongPhase))
}

func TestRejectedCommandLeavesStateUnchanged(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))

	before := tt.Snapshot()
	updates := 0
	unsubscribe := tt.Subscribe(SubscriberFunc(func(State) { updates++ }))
	defer unsubscribe()

	assert.Error(t, tt.Bid("bill", 80))
	assert.Error(t, tt.Play("josh", before.Phase.(*BidPhase).Cards[South][0]))
	assert.Error(t, tt.ChooseNest("josh", nil, deck.Red))
	assert.Error(t, tt.Stand("josh"))
	assert.Error(t, tt.Sit("josh", North))

	assert.Equal(t, before, tt.Snapshot())
	assert.Zero(t, updates)
}

func TestChooseNest(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))
	dealer := tt.passToDealer(t)
	winner := tt.player(dealer)

	s := tt.Snapshot()
	hand := s.Phase.(*NestPhase).Cards[dealer]
	notHeld := deck.Without(deck.All(), hand...)[0]

	tests := []struct {
		name     string
		player   Player
		discards []deck.Card
		trumps   deck.Color
		want     error
	}{
		{"someone else", tt.player(dealer.Next()), hand[:5], deck.Red, ErrNotYourTurn},
		{"no trumps", winner, hand[:5], deck.NoColor, ErrIllegalMove},
		{"too few", winner, hand[:4], deck.Red, ErrIllegalMove},
		{"too many", winner, hand[:6], deck.Red, ErrIllegalMove},
		{"not held", winner, append([]deck.Card{notHeld}, hand[:4]...), deck.Red, ErrIllegalMove},
		{"repeated", winner, []deck.Card{hand[0], hand[0], hand[1], hand[2], hand[3]}, deck.Red, ErrIllegalMove},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tt.ChooseNest(tc.player, tc.discards, tc.trumps)
			assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
		})
	}

	require.NoError(t, tt.ChooseNest(winner, hand[5:10], deck.Yellow))

	s = tt.Snapshot()
	tricks, ok := s.Phase.(*TricksPhase)
	require.True(t, ok)
	assert.Equal(t, deck.Yellow, tricks.Trumps)
	assert.Equal(t, dealer, tricks.Leader)
	assert.Equal(t, dealer, tricks.Turn)
	assert.Equal(t, hand[5:10], tricks.Nest)
	assert.Nil(t, tricks.PreviousTrick)
	for _, seat := range Seats {
		assert.Len(t, tricks.Cards[seat], deck.HandSize)
		assert.Nil(t, tricks.Played[seat])
	}

	switch {
	case deck.Contains(tricks.Nest, deck.Rook):
		assert.Equal(t, NestHolder, tricks.Rook)
	default:
		require.False(t, tricks.Rook.InNest)
		assert.True(t, deck.Contains(tricks.Cards[tricks.Rook.Seat], deck.Rook))
	}
}

func TestPlayValidation(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))
	dealer := tt.passToDealer(t)
	tt.discardFirst(t, deck.Green)

	s := tt.Snapshot()
	phase := s.Phase.(*TricksPhase)
	next := dealer.Next()

	err := tt.Play(tt.player(next), phase.Cards[next][0])
	assert.True(t, errors.Is(err, ErrNotYourTurn))

	err = tt.Play(tt.player(dealer), phase.Cards[next][0])
	assert.True(t, errors.Is(err, ErrIllegalMove), "card from another hand, got %v", err)

	card := phase.Cards[dealer][0]
	require.NoError(t, tt.Play(tt.player(dealer), card))

	s = tt.Snapshot()
	phase = s.Phase.(*TricksPhase)
	assert.Equal(t, next, phase.Turn)
	require.NotNil(t, phase.Played[dealer])
	assert.Equal(t, card, *phase.Played[dealer])
	assert.False(t, deck.Contains(phase.Cards[dealer], card))
	assert.Len(t, phase.Cards[dealer], deck.HandSize-1)
}

func TestStandIsOnlyAllowedBetweenHands(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))

	err := tt.Stand("bill")
	assert.True(t, errors.Is(err, ErrWrongPhase))

	err = tt.Sit("bill", North)
	assert.True(t, errors.Is(err, ErrSeating))

	tt.passToDealer(t)
	tt.discardFirst(t, deck.Black)
	tt.playHand(t)

	require.Equal(t, PhaseDone, tt.Snapshot().Phase.Kind())
	require.NoError(t, tt.Stand("bill"))
	assert.Empty(t, tt.Snapshot().Seats[North])
}

func TestStartNewGameResetsScores(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)

	tt.mu.Lock()
	tt.state.NorthSouthScore = 150
	tt.state.EastWestScore = -40
	tt.state.NorthSouthDeltas = []int{90, 60}
	tt.state.EastWestDeltas = []int{-70, 30}
	tt.mu.Unlock()

	require.NoError(t, tt.StartNewGame("maia"))
	require.NoError(t, tt.StartNewHand("maia"))

	s := tt.Snapshot()
	assert.Zero(t, s.NorthSouthScore)
	assert.Zero(t, s.EastWestScore)
	assert.Empty(t, s.NorthSouthDeltas)
	assert.Empty(t, s.EastWestDeltas)
	assert.Equal(t, BySeat[Player]{"bill", "deborah", "josh", "maia"}, s.Seats)
	assert.Equal(t, PhaseBid, s.Phase.Kind())
	assert.Equal(t, []EventType{EventNewGame, EventDealt, EventDealt}, tt.events.Types())

	dealt := tt.events.OfType(EventDealt)
	assert.Equal(t, tt.events.OfType(EventNewGame)[0].GameID(), dealt[1].GameID())
	assert.NotEqual(t, dealt[0].HandID(), dealt[1].HandID())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)
	require.NoError(t, tt.StartNewHand("bill"))

	s := tt.Snapshot()
	phase := s.Phase.(*BidPhase)
	original := phase.Cards[North][0]
	phase.Cards[North][0] = deck.Rook
	phase.Turn = West
	s.Connected["bill"] = true

	fresh := tt.Snapshot()
	assert.Equal(t, original, fresh.Phase.(*BidPhase).Cards[North][0])
	assert.Equal(t, South, fresh.Phase.(*BidPhase).Turn)
	assert.False(t, fresh.Connected["bill"])
}

func TestSubscribersSeeEveryAcceptedCommand(t *testing.T) {
	tt := newTestTable(t)

	var seen []State
	unsubscribe := tt.Subscribe(SubscriberFunc(func(s State) { seen = append(seen, s) }))

	require.NoError(t, tt.Connect("josh"))
	require.NoError(t, tt.Sit("josh", East))
	assert.Error(t, tt.Sit("bill", East))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Connected["josh"])
	assert.Empty(t, seen[0].Seats[East])
	assert.Equal(t, Player("josh"), seen[1].Seats[East])

	unsubscribe()
	require.NoError(t, tt.Stand("josh"))
	assert.Len(t, seen, 2)
}

func TestApplyRejectsUnknownCommand(t *testing.T) {
	tt := newTestTable(t)
	err := tt.Apply(Command{Type: "shuffle", Player: "bill"})
	assert.True(t, errors.Is(err, ErrIllegalMove))
}

func TestViewHoldsBackUpdates(t *testing.T) {
	tt := newTestTable(t)
	var updates atomic.Int32
	tt.Subscribe(SubscriberFunc(func(State) { updates.Add(1) }))

	done := make(chan error, 1)
	tt.View(func(s State) {
		go func() { done <- tt.Connect("bill") }()
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, updates.Load(), "no update is published while viewing")
		assert.False(t, s.Connected["bill"])
	})

	require.NoError(t, <-done)
	assert.Equal(t, int32(1), updates.Load())
	assert.True(t, tt.Snapshot().Connected["bill"])
}

func TestTableCommandsNeedNoPlayer(t *testing.T) {
	tt := newTestTable(t)
	tt.seatEveryone(t)

	require.NoError(t, tt.StartNewGame(""))
	assert.Equal(t, PhaseBid, tt.Snapshot().Phase.Kind())
	require.NoError(t, tt.StartNewHand(""))
	assert.Equal(t, PhaseBid, tt.Snapshot().Phase.Kind())

	assert.ErrorIs(t, tt.Pass(""), ErrUnknownPlayer)
	assert.ErrorIs(t, tt.StartNewHand("mallory"), ErrUnknownPlayer)
}
