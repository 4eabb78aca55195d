package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MsgType names one logical message. Every transport frame carries exactly
// one JSON-encoded Envelope.
type MsgType string

const (
	MsgTypeHeartbeat MsgType = "heartbeat"

	// client -> server
	MsgTypeCreateRoom   MsgType = "create_room"
	MsgTypeJoinRoom     MsgType = "join_room"
	MsgTypeLeaveRoom    MsgType = "leave_room"
	MsgTypeStartGame    MsgType = "start_game"
	MsgTypeResetGame    MsgType = "reset_game"
	MsgTypePlayerAction MsgType = "player_action"
	MsgTypeResync       MsgType = "resync"
	MsgTypeSetReady     MsgType = "set_ready"
	MsgTypeRoomList     MsgType = "room_list"

	// server -> client
	MsgTypeWelcome       MsgType = "welcome"
	MsgTypeRoomJoined    MsgType = "room_joined"
	MsgTypeStateSnapshot MsgType = "state_snapshot"
	MsgTypeStateDelta    MsgType = "state_delta"
	MsgTypePresence      MsgType = "presence"
	MsgTypeGameOver      MsgType = "game_over"
	MsgTypeChatHistory   MsgType = "chat_history"
	MsgTypeError         MsgType = "error"

	// both directions
	MsgTypeChat MsgType = "chat"
)

// ErrorKind is the machine-readable part of an error message.
type ErrorKind string

const (
	KindRoomNotFound          ErrorKind = "RoomNotFound"
	KindRoomFull              ErrorKind = "RoomFull"
	KindRoomAlreadyInProgress ErrorKind = "RoomAlreadyInProgress"
	KindNotYourTurn           ErrorKind = "NotYourTurn"
	KindIllegalAction         ErrorKind = "IllegalAction"
	KindConnectionClosed      ErrorKind = "ConnectionClosed"
	KindSequenceGap           ErrorKind = "SequenceGap"
	KindServerShutdown        ErrorKind = "ServerShutdown"
	KindNotHost               ErrorKind = "NotHost"
	KindNotInRoom             ErrorKind = "NotInRoom"
	KindAlreadyInRoom         ErrorKind = "AlreadyInRoom"
	KindGamePaused            ErrorKind = "GamePaused"
	KindNotEnoughPlayers      ErrorKind = "NotEnoughPlayers"
	KindInvalidState          ErrorKind = "InvalidState"
	KindNameTaken             ErrorKind = "NameTaken"
	KindBadRequest            ErrorKind = "BadRequest"
	KindRateLimited           ErrorKind = "RateLimited"
	KindSessionReplaced       ErrorKind = "SessionReplaced"
	KindInternalError         ErrorKind = "InternalError"
)

// ErrorBody is the payload of an error message. It is only ever sent to the
// client that caused it.
type ErrorBody struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// PlayerView is the public view of one member of a room.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Host      bool   `json:"host"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// RoomView is the public view of a room's membership and status.
type RoomView struct {
	Code    string       `json:"code"`
	Name    string       `json:"name"`
	Status  string       `json:"status"`
	Turn    string       `json:"turn,omitempty"`
	Players []PlayerView `json:"players"`
}

// ChatLine is one relayed chat message as kept in a room's history.
type ChatLine struct {
	Seq      uint64    `json:"seq"`
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// Envelope is the single wire message shape. Fields that do not apply to a
// message type are omitted.
type Envelope struct {
	Type     MsgType         `json:"type"`
	Seq      uint64          `json:"seq,omitempty"`
	Code     string          `json:"code,omitempty"`
	Name     string          `json:"name,omitempty"`
	RoomName string          `json:"room_name,omitempty"`
	Token    string          `json:"token,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Ready    *bool           `json:"ready,omitempty"`
	Text     string          `json:"text,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
	Room     *RoomView       `json:"room,omitempty"`
	Rooms    []RoomView      `json:"rooms,omitempty"`
	History  []ChatLine      `json:"history,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

var ErrMalformedMessage = errors.New("malformed message")

// Encode marshals an envelope into one frame.
func Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses one frame. A frame that is not a JSON object with a type is
// malformed.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &env, nil
}

// NewError builds an error message.
func NewError(kind ErrorKind, detail string) *Envelope {
	return &Envelope{Type: MsgTypeError, Error: &ErrorBody{Kind: kind, Detail: detail}}
}
