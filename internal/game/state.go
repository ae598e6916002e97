package game

import (
	"encoding/json"
	"maps"
)

// State is the whole table: who is connected and seated, the dealer, the
// cumulative scores and the current phase. Values handed to subscribers and
// returned by Engine.Snapshot are deep copies.
type State struct {
	Busy             bool            `json:"busy"`
	Connected        map[Player]bool `json:"connected"`
	Seats            BySeat[Player]  `json:"seats"`
	Dealer           Seat            `json:"dealer"`
	NorthSouthScore  int             `json:"north_south_score"`
	EastWestScore    int             `json:"east_west_score"`
	NorthSouthDeltas []int           `json:"north_south_deltas"`
	EastWestDeltas   []int           `json:"east_west_deltas"`
	Phase            Phase           `json:"phase"`
}

// UnmarshalJSON decodes a state, including its phase
func (s *State) UnmarshalJSON(data []byte) error {
	type alias State
	aux := struct {
		*alias
		Phase json.RawMessage `json:"phase"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	s.Phase = nil
	if len(aux.Phase) > 0 && string(aux.Phase) != "null" {
		phase, err := DecodePhase(aux.Phase)
		if err != nil {
			return err
		}
		s.Phase = phase
	}
	return nil
}

func newState(players []Player) State {
	connected := make(map[Player]bool, len(players))
	for _, p := range players {
		connected[p] = false
	}
	return State{
		Connected:        connected,
		Dealer:           North,
		NorthSouthDeltas: []int{},
		EastWestDeltas:   []int{},
		Phase:            &PreDealPhase{},
	}
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	c := s
	c.Connected = maps.Clone(s.Connected)
	c.NorthSouthDeltas = append([]int{}, s.NorthSouthDeltas...)
	c.EastWestDeltas = append([]int{}, s.EastWestDeltas...)
	if s.Phase != nil {
		c.Phase = s.Phase.clone()
	}
	return c
}

// Score returns a team's cumulative score
func (s State) Score(t Team) int {
	if t == NorthSouth {
		return s.NorthSouthScore
	}
	return s.EastWestScore
}

// Deltas returns the per-hand score changes of a team
func (s State) Deltas(t Team) []int {
	if t == NorthSouth {
		return s.NorthSouthDeltas
	}
	return s.EastWestDeltas
}

// SeatOf returns the seat a player occupies
func (s State) SeatOf(p Player) (Seat, bool) {
	if p == "" {
		return North, false
	}
	for _, seat := range Seats {
		if s.Seats[seat] == p {
			return seat, true
		}
	}
	return North, false
}

// AllSeated reports whether every seat is occupied
func (s State) AllSeated() bool {
	for _, p := range s.Seats {
		if p == "" {
			return false
		}
	}
	return true
}

func (s *State) addDeltas(deltas [2]int) {
	s.NorthSouthDeltas = append(s.NorthSouthDeltas, deltas[NorthSouth])
	s.EastWestDeltas = append(s.EastWestDeltas, deltas[EastWest])
	s.NorthSouthScore += deltas[NorthSouth]
	s.EastWestScore += deltas[EastWest]
}

func (s *State) resetScores() {
	s.NorthSouthScore, s.EastWestScore = 0, 0
	s.NorthSouthDeltas = []int{}
	s.EastWestDeltas = []int{}
}
