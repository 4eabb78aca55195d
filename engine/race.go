package engine

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Race is a minimal turn-based game: each turn a player moves their token
// forward or passes, and the first token to reach the end of the track wins.
// When only one racer is left they win by default.
type Race struct {
	TrackLength int
	MaxSteps    int
}

func NewRace() *Race {
	return &Race{TrackLength: 30, MaxSteps: 6}
}

type raceState struct {
	Track     int            `json:"track"`
	Players   []string       `json:"players"`
	Positions map[string]int `json:"positions"`
	Moves     int            `json:"moves"`
	Winner    string         `json:"winner,omitempty"`
}

type raceAction struct {
	Type  string `json:"type"`
	Steps int    `json:"steps,omitempty"`
}

type raceDelta struct {
	Player   string `json:"player"`
	Action   string `json:"action"`
	Steps    int    `json:"steps,omitempty"`
	Position int    `json:"position"`
	Winner   string `json:"winner,omitempty"`
}

func (r *Race) Setup(players []string) (json.RawMessage, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("race: no players")
	}
	st := raceState{
		Track:     r.TrackLength,
		Players:   slices.Clone(players),
		Positions: make(map[string]int, len(players)),
	}
	for _, p := range players {
		st.Positions[p] = 0
	}
	return json.Marshal(st)
}

func (r *Race) Apply(state json.RawMessage, player string, action json.RawMessage) (Outcome, error) {
	st, err := decodeRace(state)
	if err != nil {
		return Outcome{}, err
	}

	var act raceAction
	if err := json.Unmarshal(action, &act); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrIllegalAction, err)
	}
	if st.Winner != "" {
		return Outcome{}, fmt.Errorf("%w: race is over", ErrIllegalAction)
	}
	if !slices.Contains(st.Players, player) {
		return Outcome{}, fmt.Errorf("%w: %s is not racing", ErrIllegalAction, player)
	}

	delta := raceDelta{Player: player, Action: act.Type}
	switch act.Type {
	case "move":
		if act.Steps < 1 || act.Steps > r.MaxSteps {
			return Outcome{}, fmt.Errorf("%w: steps must be 1..%d", ErrIllegalAction, r.MaxSteps)
		}
		pos := min(st.Positions[player]+act.Steps, st.Track)
		st.Positions[player] = pos
		if pos == st.Track {
			st.Winner = player
		}
		delta.Steps = act.Steps
	case "pass":
	default:
		return Outcome{}, fmt.Errorf("%w: unknown action %q", ErrIllegalAction, act.Type)
	}
	st.Moves++
	delta.Position = st.Positions[player]
	delta.Winner = st.Winner

	return encodeRace(st, delta, true)
}

func (r *Race) Drop(state json.RawMessage, player string) (Outcome, error) {
	st, err := decodeRace(state)
	if err != nil {
		return Outcome{}, err
	}
	st.Players = slices.DeleteFunc(st.Players, func(p string) bool { return p == player })
	delete(st.Positions, player)
	if st.Winner == "" && len(st.Players) == 1 {
		st.Winner = st.Players[0]
	}
	return encodeRace(st, raceDelta{Player: player, Action: "drop", Winner: st.Winner}, false)
}

func (r *Race) IsTerminal(state json.RawMessage) bool {
	st, err := decodeRace(state)
	if err != nil {
		return false
	}
	return st.Winner != ""
}

func decodeRace(state json.RawMessage) (raceState, error) {
	var st raceState
	if err := json.Unmarshal(state, &st); err != nil {
		return st, fmt.Errorf("race: corrupt state: %w", err)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]int)
	}
	return st, nil
}

func encodeRace(st raceState, delta raceDelta, endTurn bool) (Outcome, error) {
	stateData, err := json.Marshal(st)
	if err != nil {
		return Outcome{}, err
	}
	deltaData, err := json.Marshal(delta)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{State: stateData, Delta: deltaData, EndTurn: endTurn}, nil
}
