// services/room_service.go
package services

import (
	"fmt"

	"github.com/wfunc/roomsync/models"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/room"
)

// RoomDetail is the administrative view of one room.
type RoomDetail struct {
	Summary models.RoomSummary `json:"summary"`
	Room    network.RoomView   `json:"room"`
}

// RoomService is the read and admin surface over the room registry shared by
// the HTTP API and the admin RPC.
type RoomService struct {
	rooms *room.Manager
}

func NewRoomService(rooms *room.Manager) *RoomService {
	return &RoomService{rooms: rooms}
}

// ListRooms returns the rooms that have not finished.
func (s *RoomService) ListRooms() []models.RoomSummary {
	rooms := s.rooms.List()
	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// RoomViews returns the lobby list in wire form.
func (s *RoomService) RoomViews() []network.RoomView {
	rooms := s.rooms.List()
	views := make([]network.RoomView, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, r.View())
	}
	return views
}

func (s *RoomService) RoomDetail(code string) (RoomDetail, error) {
	r, ok := s.rooms.GetRoom(code)
	if !ok {
		return RoomDetail{}, fmt.Errorf("%w: %s", room.ErrRoomNotFound, code)
	}
	return RoomDetail{Summary: r.Summary(), Room: r.View()}, nil
}

// CloseRoom closes a live room and tells its players why.
func (s *RoomService) CloseRoom(code, reason string) error {
	r, ok := s.rooms.GetRoom(code)
	if !ok {
		return fmt.Errorf("%w: %s", room.ErrRoomNotFound, code)
	}
	if reason == "" {
		reason = "room closed by an administrator"
	}
	r.Close(reason)
	return nil
}
