// models/models.go
package models

import (
	"time"
)

// EventKind names a room lifecycle transition.
type EventKind string

const (
	EventRoomCreated  EventKind = "room_created"
	EventPlayerJoined EventKind = "player_joined"
	EventPlayerLeft   EventKind = "player_left"
	EventGameStarted  EventKind = "game_started"
	EventGameReset    EventKind = "game_reset"
	EventGamePaused   EventKind = "game_paused"
	EventGameResumed  EventKind = "game_resumed"
	EventGameFinished EventKind = "game_finished"
	EventRoomClosed   EventKind = "room_closed"
)

// RoomEvent is one entry of the room audit log.
type RoomEvent struct {
	Code       string    `json:"code"`
	Kind       EventKind `json:"kind"`
	PlayerID   string    `json:"player_id,omitempty"`
	Status     string    `json:"status"`
	Seq        uint64    `json:"seq"`
	Players    int       `json:"players"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoomSummary is the lobby view of a live room.
type RoomSummary struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Players    int       `json:"players"`
	Connected  int       `json:"connected"`
	MaxPlayers int       `json:"max_players"`
	Host       string    `json:"host,omitempty"`
	Seq        uint64    `json:"seq"`
	CreatedAt  time.Time `json:"created_at"`
}
