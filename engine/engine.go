// Package engine holds the value-in/value-out contract between a room and
// the game rules, and a small reference game used by the default server.
//
// Rooms never look inside engine state: they store the JSON the engine
// returns, hand it back on the next call and relay deltas to clients.
package engine

import (
	"encoding/json"
	"errors"
)

// ErrIllegalAction is returned when an action is invalid for the current
// state. Rooms report it only to the player who sent the action.
var ErrIllegalAction = errors.New("illegal action")

// Outcome is the result of applying an action or dropping a player.
type Outcome struct {
	State json.RawMessage
	Delta json.RawMessage
	// EndTurn passes the turn to the next player in turn order.
	EndTurn bool
}
