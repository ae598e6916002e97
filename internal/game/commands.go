package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lox/rook/internal/deck"
)

// CommandType names a client command
type CommandType string

const (
	CommandConnect      CommandType = "connect"
	CommandDisconnect   CommandType = "disconnect"
	CommandSit          CommandType = "sit"
	CommandStand        CommandType = "stand"
	CommandBid          CommandType = "bid"
	CommandPass         CommandType = "pass"
	CommandChooseNest   CommandType = "choose_nest"
	CommandPlay         CommandType = "play"
	CommandStartNewHand CommandType = "start_new_hand"
	CommandStartNewGame CommandType = "start_new_game"
)

// Command is a request from a player. Only the fields relevant to Type are
// read: Seat for sit, Amount for bid, Trumps and Discards for choose_nest and
// Card for play.
type Command struct {
	Type     CommandType
	Player   Player
	Seat     Seat
	Amount   int
	Trumps   deck.Color
	Discards []deck.Card
	Card     deck.Card
}

// Apply validates and applies a command. On success subscribers receive the
// new state; on failure the state is unchanged and the error wraps one of
// the package's Err values.
func (e *Engine) Apply(cmd Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.apply(cmd); err != nil {
		e.logger.Debug("Rejected command", "type", cmd.Type, "player", cmd.Player, "error", err)
		return err
	}
	e.publish()
	return nil
}

func (e *Engine) apply(cmd Command) error {
	// Table commands may come from the operator rather than a player
	tableCommand := cmd.Type == CommandStartNewHand || cmd.Type == CommandStartNewGame
	if !e.knows(cmd.Player) && !(tableCommand && cmd.Player == "") {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, cmd.Player)
	}

	switch cmd.Type {
	case CommandConnect:
		e.state.Connected[cmd.Player] = true
		e.logger.Info("Player connected", "player", cmd.Player)
		return nil
	case CommandDisconnect:
		e.state.Connected[cmd.Player] = false
		e.logger.Info("Player disconnected", "player", cmd.Player)
		return nil
	case CommandSit:
		return e.sit(cmd.Player, cmd.Seat)
	case CommandStand:
		return e.stand(cmd.Player)
	}

	if e.state.Busy {
		return fmt.Errorf("%w: wait for the trick to be settled", ErrBusy)
	}

	switch cmd.Type {
	case CommandBid:
		return e.bid(cmd.Player, cmd.Amount)
	case CommandPass:
		return e.pass(cmd.Player)
	case CommandChooseNest:
		return e.chooseNest(cmd.Player, cmd.Discards, cmd.Trumps)
	case CommandPlay:
		return e.play(cmd.Player, cmd.Card)
	case CommandStartNewHand:
		return e.startNewHand()
	case CommandStartNewGame:
		return e.startNewGame()
	default:
		return fmt.Errorf("%w: unknown command %q", ErrIllegalMove, cmd.Type)
	}
}

// Connect marks a player as connected
func (e *Engine) Connect(p Player) error {
	return e.Apply(Command{Type: CommandConnect, Player: p})
}

// Disconnect marks a player as disconnected. Their seat is kept.
func (e *Engine) Disconnect(p Player) error {
	return e.Apply(Command{Type: CommandDisconnect, Player: p})
}

// Sit moves a player into an empty seat
func (e *Engine) Sit(p Player, seat Seat) error {
	return e.Apply(Command{Type: CommandSit, Player: p, Seat: seat})
}

// Stand removes a player from their seat
func (e *Engine) Stand(p Player) error {
	return e.Apply(Command{Type: CommandStand, Player: p})
}

// Bid places a bid for the player whose turn it is
func (e *Engine) Bid(p Player, amount int) error {
	return e.Apply(Command{Type: CommandBid, Player: p, Amount: amount})
}

// Pass drops the player out of the auction
func (e *Engine) Pass(p Player) error {
	return e.Apply(Command{Type: CommandPass, Player: p})
}

// ChooseNest discards cards from the bid winner's hand and names trumps
func (e *Engine) ChooseNest(p Player, discards []deck.Card, trumps deck.Color) error {
	return e.Apply(Command{Type: CommandChooseNest, Player: p, Discards: discards, Trumps: trumps})
}

// Play plays a card to the current trick
func (e *Engine) Play(p Player, card deck.Card) error {
	return e.Apply(Command{Type: CommandPlay, Player: p, Card: card})
}

// StartNewHand deals a new hand, keeping the scores
func (e *Engine) StartNewHand(p Player) error {
	return e.Apply(Command{Type: CommandStartNewHand, Player: p})
}

// StartNewGame resets the scores and deals a new hand
func (e *Engine) StartNewGame(p Player) error {
	return e.Apply(Command{Type: CommandStartNewGame, Player: p})
}

func (e *Engine) sit(p Player, seat Seat) error {
	if !seat.Valid() {
		return fmt.Errorf("%w: invalid seat %d", ErrSeating, int(seat))
	}
	if occupant := e.state.Seats[seat]; occupant != "" {
		return fmt.Errorf("%w: %s is already taken by %s", ErrSeating, seat, occupant)
	}
	if current, ok := e.state.SeatOf(p); ok {
		if e.handInProgress() {
			return fmt.Errorf("%w: you cannot change seats while the game is in the %q phase", ErrWrongPhase, e.state.Phase.Kind())
		}
		e.state.Seats[current] = ""
	}
	e.state.Seats[seat] = p
	e.logger.Info("Player sat down", "player", p, "seat", seat)
	return nil
}

func (e *Engine) stand(p Player) error {
	if e.handInProgress() {
		return fmt.Errorf("%w: you cannot stand up while the game is in the %q phase", ErrWrongPhase, e.state.Phase.Kind())
	}
	if seat, ok := e.state.SeatOf(p); ok {
		e.state.Seats[seat] = ""
		e.logger.Info("Player stood up", "player", p, "seat", seat)
	}
	return nil
}

func (e *Engine) handInProgress() bool {
	switch e.state.Phase.(type) {
	case *PreDealPhase, *DonePhase:
		return false
	default:
		return true
	}
}

// checkTurn verifies that every seat is filled and that p sits at turn
func (e *Engine) checkTurn(p Player, turn Seat) error {
	if !e.state.AllSeated() {
		return fmt.Errorf("%w: every seat must be filled", ErrSeating)
	}
	if e.state.Seats[turn] != p {
		return fmt.Errorf("%w: it is %s's turn", ErrNotYourTurn, e.state.Seats[turn])
	}
	return nil
}

func (e *Engine) bid(p Player, amount int) error {
	phase, ok := e.state.Phase.(*BidPhase)
	if !ok {
		return fmt.Errorf("%w: you cannot bid when the game phase is %q", ErrWrongPhase, e.state.Phase.Kind())
	}
	if err := e.checkTurn(p, phase.Turn); err != nil {
		return err
	}
	if amount < 1 || amount > e.config.MaxBid {
		return fmt.Errorf("%w: bid must be between 1 and %d", ErrIllegalMove, e.config.MaxBid)
	}
	if highest := HighestBid(phase.Bids, phase.Turn); amount <= highest {
		return fmt.Errorf("%w: bid must be higher than %d", ErrIllegalMove, highest)
	}

	phase.Bids[phase.Turn] = Bid{Amount: amount}
	e.record(BidEvent{Header: e.header(EventBid), Player: p, Amount: amount})
	e.logger.Info("Player bid", "player", p, "amount", amount)
	e.resolveAuction(phase)
	return nil
}

func (e *Engine) pass(p Player) error {
	phase, ok := e.state.Phase.(*BidPhase)
	if !ok {
		return fmt.Errorf("%w: you cannot pass when the game phase is %q", ErrWrongPhase, e.state.Phase.Kind())
	}
	if err := e.checkTurn(p, phase.Turn); err != nil {
		return err
	}

	phase.Bids[phase.Turn] = PassedBid
	e.record(PassedEvent{Header: e.header(EventPassed), Player: p})
	e.logger.Info("Player passed", "player", p)
	e.resolveAuction(phase)
	return nil
}

func (e *Engine) resolveAuction(phase *BidPhase) {
	outcome := ResolveBids(phase.Bids, phase.Turn, e.state.Dealer, AuctionRules{
		DealerBid: e.config.DealerBid,
		MaxBid:    e.config.MaxBid,
	})
	if !outcome.Won {
		phase.Turn = outcome.Turn
		return
	}

	cards := phase.Cards
	cards[outcome.Winner] = append(cards[outcome.Winner], phase.Nest...)
	e.state.Phase = &NestPhase{
		Cards:  cards,
		Bid:    outcome.Amount,
		WonBid: outcome.Winner,
	}

	winner := e.state.Seats[outcome.Winner]
	e.record(WonBidEvent{Header: e.header(EventWonBid), Player: winner, Seat: outcome.Winner, Amount: outcome.Amount})
	e.logger.Info("Bid won", "player", winner, "seat", outcome.Winner, "amount", outcome.Amount)
}

func (e *Engine) chooseNest(p Player, discards []deck.Card, trumps deck.Color) error {
	phase, ok := e.state.Phase.(*NestPhase)
	if !ok {
		return fmt.Errorf("%w: you cannot choose the nest when the game phase is %q", ErrWrongPhase, e.state.Phase.Kind())
	}
	if e.state.Seats[phase.WonBid] != p {
		return fmt.Errorf("%w: only %s can choose the nest", ErrNotYourTurn, e.state.Seats[phase.WonBid])
	}
	if !trumps.Valid() {
		return fmt.Errorf("%w: trumps must be a color", ErrIllegalMove)
	}
	if len(discards) != deck.NestSize {
		return fmt.Errorf("%w: the nest must be exactly %d cards", ErrIllegalMove, deck.NestSize)
	}
	hand := phase.Cards[phase.WonBid]
	for i, card := range discards {
		if !deck.Contains(hand, card) {
			return fmt.Errorf("%w: %s is not in your hand", ErrIllegalMove, card)
		}
		if deck.Contains(discards[:i], card) {
			return fmt.Errorf("%w: %s is discarded twice", ErrIllegalMove, card)
		}
	}

	cards := phase.Cards
	cards[phase.WonBid] = deck.Without(hand, discards...)
	nest := cloneCards(discards)

	rook := NestHolder
	for _, seat := range Seats {
		if deck.Contains(cards[seat], deck.Rook) {
			rook = RookHolder{Seat: seat}
		}
	}

	e.state.Phase = &TricksPhase{
		Cards:  cards,
		Trumps: trumps,
		Nest:   nest,
		Rook:   rook,
		Bid:    phase.Bid,
		WonBid: phase.WonBid,
		Leader: phase.WonBid,
		Turn:   phase.WonBid,
	}

	e.record(ChoseNestEvent{
		Header: e.header(EventChoseNest),
		Player: p,
		Cards:  cloneCards(cards[phase.WonBid]),
		Nest:   cloneCards(nest),
		Trumps: trumps,
	})
	e.logger.Info("Nest chosen", "player", p, "trumps", trumps, "rook", rook)
	return nil
}

func (e *Engine) play(p Player, card deck.Card) error {
	phase, ok := e.state.Phase.(*TricksPhase)
	if !ok {
		return fmt.Errorf("%w: you cannot play a card when the game phase is %q", ErrWrongPhase, e.state.Phase.Kind())
	}
	if err := e.checkTurn(p, phase.Turn); err != nil {
		return err
	}
	seat := phase.Turn
	if phase.Played[seat] != nil {
		return fmt.Errorf("%w: you have already played to this trick", ErrIllegalMove)
	}
	if !deck.Contains(phase.Cards[seat], card) {
		return fmt.Errorf("%w: %s is not in your hand", ErrIllegalMove, card)
	}

	played := card
	phase.Played[seat] = &played
	phase.Cards[seat] = deck.Without(phase.Cards[seat], card)
	phase.Turn = seat.Next()

	e.record(PlayedEvent{Header: e.header(EventPlayed), Player: p, Card: card})
	e.logger.Debug("Card played", "player", p, "card", card)

	if trick, complete := completedTrick(phase); complete {
		e.beginSettlement(phase, trick)
	}
	return nil
}

func completedTrick(phase *TricksPhase) (Trick, bool) {
	var trick Trick
	for _, seat := range Seats {
		if phase.Played[seat] == nil {
			return trick, false
		}
		trick[seat] = *phase.Played[seat]
	}
	return trick, true
}

func (e *Engine) startNewHand() error {
	if !e.state.AllSeated() {
		return fmt.Errorf("%w: every seat must be filled to deal", ErrSeating)
	}
	e.deal()
	return nil
}

func (e *Engine) startNewGame() error {
	if !e.state.AllSeated() {
		return fmt.Errorf("%w: every seat must be filled to start a game", ErrSeating)
	}
	e.state.resetScores()
	e.gameID = newID()
	e.handID = uuid.Nil
	e.record(NewGameEvent{Header: e.header(EventNewGame)})
	e.logger.Info("New game", "game", e.gameID)
	e.deal()
	return nil
}

// deal rotates the dealer, shuffles and enters the auction with the seat
// after the dealer to act first
func (e *Engine) deal() {
	e.state.Dealer = e.state.Dealer.Next()
	e.handID = newID()

	e.deck.Shuffle()
	dealt, nest := e.deck.Deal()
	var cards Hands
	for i, seat := range Seats {
		cards[seat] = dealt[i]
	}

	e.state.Phase = &BidPhase{
		Cards: cards,
		Nest:  nest,
		Turn:  e.state.Dealer.Next(),
	}

	e.record(DealtEvent{
		Header: e.header(EventDealt),
		Seats:  e.state.Seats,
		Dealer: e.state.Seats[e.state.Dealer],
		Cards:  cloneHands(cards),
		Nest:   cloneCards(nest),
	})
	e.logger.Info("Hand dealt", "dealer", e.state.Seats[e.state.Dealer], "hand", e.handID)
}
