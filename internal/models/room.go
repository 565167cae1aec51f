package models

import (
	"time"

	"gorm.io/datatypes"
)

type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCompleted RoomStatus = "completed"
	StatusError     RoomStatus = "error"
)

// RoomCapacity is the maximum number of members per room.
const RoomCapacity = 5

type Room struct {
	ID     string     `gorm:"primaryKey;size:6" json:"id"`
	Status RoomStatus `gorm:"type:varchar(20);not null;default:'waiting'" json:"status"`

	// Itinerary is written exactly once, on the first successful generation.
	Itinerary datatypes.JSON `gorm:"type:jsonb" json:"itinerary,omitempty"`

	// GenerationStarted is the claim marker for the at-most-once trigger.
	GenerationStarted bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
