package models

import "gorm.io/datatypes"

type Vote struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	RoomID  string `gorm:"size:6;not null;index" json:"room_id"`
	UserID  string `gorm:"size:36;not null;index" json:"user_id"`
	PlaceID string `gorm:"not null" json:"place_id"`

	// PlaceData is the voted place payload, carried through unmodified.
	PlaceData datatypes.JSON `gorm:"type:jsonb" json:"place_data"`

	VoteCount int `gorm:"not null" json:"vote_count"`
}
