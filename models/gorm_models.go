// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoomEvent is the room_events table.
type GormRoomEvent struct {
	gorm.Model
	Code       string    `gorm:"size:16;index;not null"`
	Kind       string    `gorm:"size:32;not null"`
	PlayerID   string    `gorm:"size:36"`
	Status     string    `gorm:"size:16;not null"`
	Seq        uint64    `gorm:"not null;default:0"`
	Players    int       `gorm:"not null;default:0"`
	Detail     string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"index;not null"`
}

func (GormRoomEvent) TableName() string {
	return "room_events"
}

func NewGormRoomEvent(e RoomEvent) *GormRoomEvent {
	return &GormRoomEvent{
		Code:       e.Code,
		Kind:       string(e.Kind),
		PlayerID:   e.PlayerID,
		Status:     e.Status,
		Seq:        e.Seq,
		Players:    e.Players,
		Detail:     e.Detail,
		OccurredAt: e.OccurredAt,
	}
}
