// Package game implements the authoritative state of a four-player Rook
// table: seating, dealing, bidding, the nest exchange, trick play and
// scoring.
//
// The main type is Engine, which owns a single State and applies commands to
// it one at a time. Every accepted command produces a new snapshot that is
// pushed to subscribers; rejected commands return a typed error and leave the
// state untouched.
//
// # Basic Usage
//
//	e := game.NewEngine(logger, rng)
//	defer e.Close()
//	unsubscribe := e.Subscribe(game.SubscriberFunc(func(s game.State) {
//	    // broadcast s to clients
//	}))
//	defer unsubscribe()
//
//	e.Sit("bill", game.North)
//	// ... seat the other three players
//	e.StartNewGame("bill")
//
// # Trick Settlement
//
// When the fourth card of a trick is played the engine marks itself busy and
// settles the trick in timed steps: the full trick stays visible for the
// reveal delay, the trick is awarded, and after the last trick of a hand the
// hand is scored and finally checked for a game win. The steps run on a
// quartz.Clock so tests can drive them with a mock clock:
//
//	clock := quartz.NewMock(t)
//	e := game.NewEngine(logger, rng, game.WithClock(clock))
//	// ... play four cards
//	clock.Advance(3 * time.Second).MustWait(ctx)
//
// # Determinism
//
// Shuffles draw from the *rand.Rand passed to NewEngine, so a fixed seed
// reproduces every deal.
package game
