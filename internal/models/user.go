package models

import "time"

type User struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	RoomID  string `gorm:"size:6;not null;index" json:"room_id"`
	Name    string `gorm:"not null" json:"name"`
	IsReady bool   `gorm:"not null;default:false" json:"is_ready"`

	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}
