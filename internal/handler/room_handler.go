package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chayanin/tripvote-service/internal/dto"
	"github.com/chayanin/tripvote-service/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type RoomHandler struct {
	roomSvc service.RoomService
	voteSvc service.VoteService
	baseURL string
}

func NewRoomHandler(roomSvc service.RoomService, voteSvc service.VoteService, baseURL string) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, voteSvc: voteSvc, baseURL: baseURL}
}

func (h *RoomHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/rooms", h.CreateRoom)
	e.GET("/rooms", h.GetRoomStatus)
	e.POST("/rooms/:roomId/join", h.JoinRoom)
	e.POST("/rooms/:roomId/votes", h.SubmitVotes)
	e.GET("/rooms/:roomId/votes", h.ListRoomVotes)
	e.POST("/session", h.CreateSession)
}

func (h *RoomHandler) CreateRoom(c echo.Context) error {
	room, err := h.roomSvc.CreateRoom(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create room")
	}

	return c.JSON(http.StatusOK, dto.CreateRoomResponse{
		Success:   true,
		RoomID:    room.ID,
		ShareLink: fmt.Sprintf("%s/room/%s", h.baseURL, room.ID),
	})
}

func (h *RoomHandler) GetRoomStatus(c echo.Context) error {
	roomID := c.QueryParam("roomId")
	if roomID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Room ID required")
	}

	view, err := h.roomSvc.GetRoomStatus(c.Request().Context(), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToRoomStatusResponse(view))
}

func (h *RoomHandler) JoinRoom(c echo.Context) error {
	roomID := c.Param("roomId")

	var req dto.JoinRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.roomSvc.JoinRoom(c.Request().Context(), roomID, req.UserName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNameRequired),
			errors.Is(err, service.ErrRoomFull),
			errors.Is(err, service.ErrNameTaken):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRoomNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to join room")
		}
	}

	return c.JSON(http.StatusOK, dto.JoinRoomResponse{
		Success:  true,
		UserID:   user.ID,
		UserName: user.Name,
	})
}

func (h *RoomHandler) SubmitVotes(c echo.Context) error {
	roomID := c.Param("roomId")

	var req dto.SubmitVotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var votes []service.PlaceVoteInput
	if req.Votes != nil {
		votes = make([]service.PlaceVoteInput, len(req.Votes))
		for i, v := range req.Votes {
			votes[i] = service.PlaceVoteInput{
				PlaceID: v.PlaceID,
				Count:   v.Count,
				Payload: v.Payload,
			}
		}
	}

	result, err := h.voteSvc.SubmitVotes(c.Request().Context(), roomID, req.UserID, votes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVotesRequired),
			errors.Is(err, service.ErrRoomClosed):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRoomNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrUserNotInRoom):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to submit votes")
		}
	}

	return c.JSON(http.StatusOK, dto.SubmitVotesResponse{
		Success:        true,
		UserID:         result.UserID,
		IsReady:        result.IsReady,
		VotesSubmitted: result.VotesSubmitted,
		TotalUsers:     result.TotalUsers,
		AllReady:       result.AllReady,
		Itinerary:      result.Itinerary,
	})
}

func (h *RoomHandler) ListRoomVotes(c echo.Context) error {
	roomID := c.Param("roomId")

	view, err := h.voteSvc.ListRoomVotes(c.Request().Context(), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToRoomVotesResponse(view))
}

// CreateSession issues an anonymous session id for solo browsing before a
// room exists.
func (h *RoomHandler) CreateSession(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.SessionResponse{
		Success:   true,
		SessionID: uuid.NewString(),
	})
}
