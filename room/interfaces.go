package room

import (
	"context"
	"encoding/json"

	"github.com/wfunc/roomsync/engine"
	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/session"
)

// Engine applies game rules. Rooms treat every state and delta as opaque.
type Engine interface {
	Setup(players []string) (json.RawMessage, error)
	Apply(state json.RawMessage, player string, action json.RawMessage) (engine.Outcome, error)
	// Drop removes a player that left a running game for good.
	Drop(state json.RawMessage, player string) (engine.Outcome, error)
	IsTerminal(state json.RawMessage) bool
}

// Broadcaster delivers envelopes to sessions. It must never block on a
// slow peer.
type Broadcaster interface {
	Broadcast(recipients []*session.Session, env *network.Envelope) int
	SendTo(s *session.Session, env *network.Envelope) error
}

// Recorder receives room lifecycle events. Rooms call it while holding
// their lock, so implementations must return quickly.
type Recorder interface {
	Record(ctx context.Context, event models.RoomEvent) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, models.RoomEvent) error { return nil }
