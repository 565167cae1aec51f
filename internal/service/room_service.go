package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/chayanin/tripvote-service/internal/models"
	"github.com/chayanin/tripvote-service/internal/repository"
	"github.com/chayanin/tripvote-service/pkg/rabbitmq"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full (max 5 users)")
	ErrNameRequired      = errors.New("name is required")
	ErrNameTaken         = errors.New("name already taken in this group")
	ErrRoomCodeExhausted = errors.New("could not allocate a unique room code")
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeRetries  = 5
)

// RoomStatusView is the point-in-time status a client polls for.
type RoomStatusView struct {
	Room           *models.Room
	Users          []models.User
	VotesSubmitted int
}

type RoomService interface {
	CreateRoom(ctx context.Context) (*models.Room, error)
	GetRoomStatus(ctx context.Context, roomID string) (*RoomStatusView, error)
	JoinRoom(ctx context.Context, roomID, userName string) (*models.User, error)
}

type roomService struct {
	roomRepo  repository.RoomRepository
	userRepo  repository.UserRepository
	publisher *rabbitmq.Publisher
}

func NewRoomService(roomRepo repository.RoomRepository, userRepo repository.UserRepository, publisher *rabbitmq.Publisher) RoomService {
	return &roomService{
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// CreateRoom allocates a fresh 6-character room code and inserts the room in
// waiting state. Codes are collision-checked; after roomCodeRetries duplicate
// draws the attempt is abandoned.
func (s *roomService) CreateRoom(ctx context.Context) (*models.Room, error) {
	for attempt := 0; attempt < roomCodeRetries; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}

		_, err = s.roomRepo.FindByID(ctx, code)
		if err == nil {
			continue // code already in use, draw again
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check room code: %w", err)
		}

		room := &models.Room{
			ID:     code,
			Status: models.StatusWaiting,
		}
		if err := s.roomRepo.Create(ctx, room); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue // lost the insert race for this code, draw again
			}
			return nil, fmt.Errorf("create room: %w", err)
		}

		if s.publisher != nil {
			_ = s.publisher.Publish("room.created", map[string]string{"roomId": room.ID})
		}

		return room, nil
	}

	return nil, ErrRoomCodeExhausted
}

func (s *roomService) GetRoomStatus(ctx context.Context, roomID string) (*RoomStatusView, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	users, err := s.userRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ready := 0
	for _, u := range users {
		if u.IsReady {
			ready++
		}
	}

	return &RoomStatusView{
		Room:           room,
		Users:          users,
		VotesSubmitted: ready,
	}, nil
}

// JoinRoom admits a user into a room. The room row is locked for the duration
// of the capacity and name checks so two concurrent joins to a near-full room
// cannot both slip past the limit.
func (s *roomService) JoinRoom(ctx context.Context, roomID, userName string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, ErrNameRequired
	}

	var result *models.User

	err := s.roomRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.roomRepo.FindByIDForUpdate(ctx, tx, roomID); err != nil {
			return ErrRoomNotFound
		}

		count, err := s.userRepo.CountByRoomID(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if count >= models.RoomCapacity {
			return ErrRoomFull
		}

		taken, err := s.userRepo.NameExists(ctx, tx, roomID, userName)
		if err != nil {
			return err
		}
		if taken {
			return ErrNameTaken
		}

		user := &models.User{
			ID:     uuid.NewString(),
			RoomID: roomID,
			Name:   userName,
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}

		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("room.joined", map[string]string{
			"roomId":   roomID,
			"userId":   result.ID,
			"userName": result.Name,
		})
	}

	return result, nil
}

func generateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}
