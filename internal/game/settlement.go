package game

import (
	"time"

	"github.com/lox/rook/internal/deck"
)

// beginSettlement freezes the table once the fourth card of a trick is down.
// The trick stays visible for the reveal delay, then settleTrick awards it.
func (e *Engine) beginSettlement(phase *TricksPhase, trick Trick) {
	e.state.Busy = true
	e.schedule(e.config.RevealDelay, "reveal", func() {
		e.settleTrick(phase, trick)
	})
}

// schedule runs step after d with the engine locked, then publishes. Steps
// queue the next step themselves before returning.
func (e *Engine) schedule(d time.Duration, name string, step func()) {
	e.pending = e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		e.pending = nil
		step()
		e.publish()
	}, "settlement", name)
}

func (e *Engine) settleTrick(phase *TricksPhase, trick Trick) {
	if e.state.Phase != Phase(phase) {
		e.logger.Error("Trick settlement found the hand replaced", "phase", e.state.Phase.Kind())
		e.state.Busy = false
		return
	}

	winner, err := TrickWinner(trick, phase.Leader, phase.Trumps)
	if err != nil {
		e.logger.Error("Cannot settle trick", "error", err)
		e.state.Busy = false
		return
	}

	won := deck.PointsIn(trick[:])
	phase.Points[winner] += won
	phase.PreviousTrick = &trick
	phase.Played = BySeat[*deck.Card]{}

	player := e.state.Seats[winner]
	e.record(WonTrickEvent{Header: e.header(EventWonTrick), Player: player, Played: trick, PointsWon: won})
	e.logger.Info("Trick won", "player", player, "seat", winner, "points", won)

	if len(phase.Cards[winner]) > 0 {
		phase.Leader = winner
		phase.Turn = winner
		e.state.Busy = false
		return
	}

	e.schedule(e.config.SettleDelay, "score", func() {
		e.scoreHand(phase, winner, trick)
	})
}

// scoreHand awards the nest to the winner of the last trick and applies the
// hand's score deltas
func (e *Engine) scoreHand(phase *TricksPhase, lastWinner Seat, lastTrick Trick) {
	phase.Points[lastWinner] += deck.PointsIn(phase.Nest)
	deltas := ScoreDeltas(phase.WonBid.Team(), phase.Bid, phase.Points)
	e.state.addDeltas(deltas)

	e.state.Phase = &DonePhase{
		Bid:             phase.Bid,
		WonBid:          phase.WonBid,
		Rook:            phase.Rook,
		Points:          phase.Points,
		LastTrick:       lastTrick,
		NorthSouthDelta: deltas[NorthSouth],
		EastWestDelta:   deltas[EastWest],
	}

	e.record(HandFinishedEvent{
		Header:          e.header(EventHandFinished),
		NorthSouthDelta: deltas[NorthSouth],
		EastWestDelta:   deltas[EastWest],
	})
	e.logger.Info("Hand finished",
		"north_south", deltas[NorthSouth], "east_west", deltas[EastWest],
		"north_south_score", e.state.NorthSouthScore, "east_west_score", e.state.EastWestScore)

	e.schedule(e.config.GameOverDelay, "game-over", e.checkGameOver)
}

func (e *Engine) checkGameOver() {
	e.state.Busy = false
	team, won := GameWinner(e.state.Score(NorthSouth), e.state.Score(EastWest), e.config.WinningScore)
	if !won {
		return
	}
	e.record(WonGameEvent{
		Header:          e.header(EventWonGame),
		Team:            team,
		NorthSouthScore: e.state.Score(NorthSouth),
		EastWestScore:   e.state.Score(EastWest),
	})
	e.logger.Info("Game won", "team", team,
		"score", e.state.Score(team), "opponents", e.state.Score(team.Other()),
		"hands", len(e.state.Deltas(team)))
}
