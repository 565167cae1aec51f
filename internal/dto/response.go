package dto

import (
	"encoding/json"
	"time"

	"github.com/chayanin/tripvote-service/internal/models"
	"github.com/chayanin/tripvote-service/internal/service"
)

type CreateRoomResponse struct {
	Success   bool   `json:"success"`
	RoomID    string `json:"roomId"`
	ShareLink string `json:"shareLink"`
}

type UserView struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	IsReady  bool      `json:"isReady"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomStatusResponse struct {
	Success        bool              `json:"success"`
	RoomID         string            `json:"roomId"`
	Users          []UserView        `json:"users"`
	VotesSubmitted int               `json:"votesSubmitted"`
	TotalUsers     int               `json:"totalUsers"`
	IsReady        bool              `json:"isReady"`
	Status         models.RoomStatus `json:"status"`
	Itinerary      json.RawMessage   `json:"itinerary"`
}

type JoinRoomResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type SubmitVotesResponse struct {
	Success        bool            `json:"success"`
	UserID         string          `json:"userId"`
	IsReady        bool            `json:"isReady"`
	VotesSubmitted int             `json:"votesSubmitted"`
	TotalUsers     int             `json:"totalUsers"`
	AllReady       bool            `json:"allReady"`
	Itinerary      json.RawMessage `json:"itinerary"`
}

type UserVotesView struct {
	UserID   string           `json:"userId"`
	UserName string           `json:"userName"`
	Votes    []map[string]any `json:"votes"`
}

type RoomVotesResponse struct {
	Success    bool            `json:"success"`
	Votes      []UserVotesView `json:"votes"`
	TotalVotes int             `json:"totalVotes"`
}

type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ToRoomStatusResponse(view *service.RoomStatusView) RoomStatusResponse {
	users := make([]UserView, len(view.Users))
	for i, u := range view.Users {
		users[i] = UserView{
			UserID:   u.ID,
			Name:     u.Name,
			IsReady:  u.IsReady,
			JoinedAt: u.JoinedAt,
		}
	}

	return RoomStatusResponse{
		Success:        true,
		RoomID:         view.Room.ID,
		Users:          users,
		VotesSubmitted: view.VotesSubmitted,
		TotalUsers:     len(view.Users),
		IsReady:        len(view.Users) == models.RoomCapacity && view.VotesSubmitted == models.RoomCapacity,
		Status:         view.Room.Status,
		Itinerary:      json.RawMessage(view.Room.Itinerary),
	}
}

func ToRoomVotesResponse(view *service.RoomVotesView) RoomVotesResponse {
	votes := make([]UserVotesView, len(view.Votes))
	for i, uv := range view.Votes {
		votes[i] = UserVotesView{
			UserID:   uv.UserID,
			UserName: uv.UserName,
			Votes:    uv.Votes,
		}
	}
	return RoomVotesResponse{
		Success:    true,
		Votes:      votes,
		TotalVotes: view.TotalVotes,
	}
}
