package room

import (
	"errors"

	"github.com/wfunc/roomsync/engine"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
	"github.com/wfunc/roomsync/state"
)

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomFull              = errors.New("room is full")
	ErrRoomAlreadyInProgress = errors.New("room already in progress")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrNotHost               = errors.New("only the host can do that")
	ErrNotInRoom             = errors.New("player is not in the room")
	ErrAlreadyInRoom         = errors.New("connection is already in a room")
	ErrGamePaused            = errors.New("game is paused")
	ErrNotEnoughPlayers      = errors.New("player count out of range")
	ErrPlayersNotReady       = errors.New("not every player is ready")
	ErrInvalidState          = errors.New("not allowed in the current room state")
	ErrNameTaken             = errors.New("name already taken")
	ErrBadRequest            = errors.New("bad request")
	ErrRateLimited           = errors.New("rate limited")
	ErrCodeSpaceExhausted    = errors.New("no free room code")
	ErrInternal              = errors.New("internal error")
)

// KindOf maps an error returned by this package to its wire kind.
func KindOf(err error) network.ErrorKind {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return network.KindRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return network.KindRoomFull
	case errors.Is(err, ErrRoomAlreadyInProgress):
		return network.KindRoomAlreadyInProgress
	case errors.Is(err, ErrNotYourTurn):
		return network.KindNotYourTurn
	case errors.Is(err, engine.ErrIllegalAction):
		return network.KindIllegalAction
	case errors.Is(err, ErrNotHost):
		return network.KindNotHost
	case errors.Is(err, ErrNotInRoom):
		return network.KindNotInRoom
	case errors.Is(err, ErrAlreadyInRoom):
		return network.KindAlreadyInRoom
	case errors.Is(err, ErrGamePaused):
		return network.KindGamePaused
	case errors.Is(err, ErrNotEnoughPlayers), errors.Is(err, ErrPlayersNotReady):
		return network.KindNotEnoughPlayers
	case errors.Is(err, ErrInvalidState), errors.Is(err, state.ErrTransitionNotAllowed):
		return network.KindInvalidState
	case errors.Is(err, ErrNameTaken):
		return network.KindNameTaken
	case errors.Is(err, ErrBadRequest), errors.Is(err, network.ErrMalformedMessage):
		return network.KindBadRequest
	case errors.Is(err, ErrRateLimited):
		return network.KindRateLimited
	case errors.Is(err, session.ErrConnectionClosed), errors.Is(err, network.ErrConnectionClosed):
		return network.KindConnectionClosed
	default:
		return network.KindInternalError
	}
}

// ErrorEnvelope builds the error message for err. Internal errors carry no
// detail.
func ErrorEnvelope(err error) *network.Envelope {
	kind := KindOf(err)
	if kind == network.KindInternalError {
		return network.NewError(kind, "")
	}
	return network.NewError(kind, err.Error())
}
