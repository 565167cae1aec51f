package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/chayanin/tripvote-service/internal/models"
	"github.com/chayanin/tripvote-service/internal/repository"
	"github.com/chayanin/tripvote-service/pkg/rabbitmq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrVotesRequired = errors.New("userId and votes are required")
	ErrUserNotInRoom = errors.New("user not found in room")
	ErrRoomClosed    = errors.New("room is closed")
)

// ItineraryGenerator produces an itinerary from the aggregated vote list.
// The call may take seconds and may fail; the caller owns the timeout.
type ItineraryGenerator interface {
	Generate(ctx context.Context, places []AggregatedPlace) (json.RawMessage, error)
}

// PlaceVoteInput is one voted place as accepted by the collector: the two
// fields the core reads plus the payload carried through opaquely.
type PlaceVoteInput struct {
	PlaceID string
	Count   int
	Payload map[string]any
}

type SubmitResult struct {
	UserID         string
	IsReady        bool
	VotesSubmitted int
	TotalUsers     int
	AllReady       bool
	Itinerary      json.RawMessage
}

type UserVotes struct {
	UserID   string
	UserName string
	Votes    []map[string]any
}

type RoomVotesView struct {
	Votes      []UserVotes
	TotalVotes int
}

type VoteService interface {
	SubmitVotes(ctx context.Context, roomID, userID string, votes []PlaceVoteInput) (*SubmitResult, error)
	ListRoomVotes(ctx context.Context, roomID string) (*RoomVotesView, error)
}

type voteService struct {
	roomRepo  repository.RoomRepository
	userRepo  repository.UserRepository
	voteRepo  repository.VoteRepository
	generator ItineraryGenerator
	publisher *rabbitmq.Publisher
	timeout   time.Duration
}

func NewVoteService(
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	voteRepo repository.VoteRepository,
	generator ItineraryGenerator,
	publisher *rabbitmq.Publisher,
	timeout time.Duration,
) VoteService {
	return &voteService{
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		voteRepo:  voteRepo,
		generator: generator,
		publisher: publisher,
		timeout:   timeout,
	}
}

// SubmitVotes replaces the user's vote set and marks them ready, then runs the
// readiness check. Replacement is delete-then-insert inside one transaction
// holding the room row lock, so a reader never sees a ready user with a
// half-written vote set. If this submission is the one that completes the
// room, generation runs synchronously before the call returns.
func (s *voteService) SubmitVotes(ctx context.Context, roomID, userID string, votes []PlaceVoteInput) (*SubmitResult, error) {
	if userID == "" || votes == nil {
		return nil, ErrVotesRequired
	}

	err := s.roomRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return ErrRoomNotFound
		}

		if _, err := s.userRepo.FindByIDInRoom(ctx, tx, userID, roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotInRoom
			}
			return err
		}

		// A completed (or failed) room's itinerary is frozen.
		if room.Status != models.StatusWaiting {
			return ErrRoomClosed
		}

		if err := s.voteRepo.DeleteByUser(ctx, tx, userID); err != nil {
			return err
		}

		rows := make([]models.Vote, 0, len(votes))
		for _, v := range votes {
			payload, err := json.Marshal(v.Payload)
			if err != nil {
				return err
			}
			rows = append(rows, models.Vote{
				RoomID:    roomID,
				UserID:    userID,
				PlaceID:   v.PlaceID,
				PlaceData: datatypes.JSON(payload),
				VoteCount: v.Count,
			})
		}
		if err := s.voteRepo.CreateBatch(ctx, tx, rows); err != nil {
			return err
		}

		return s.userRepo.SetReady(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		UserID:         userID,
		IsReady:        true,
		VotesSubmitted: len(votes),
	}

	claimed, err := s.checkReadiness(ctx, roomID, result)
	if err != nil {
		return nil, err
	}

	if claimed {
		result.Itinerary = s.generate(ctx, roomID)
	}

	return result, nil
}

// checkReadiness evaluates the trigger condition under the room row lock and,
// when it holds, claims generation by flipping generation_started. The flag is
// a compare-and-set: concurrent fifth-vote submissions race on the lock and
// only the first sees it unset.
func (s *voteService) checkReadiness(ctx context.Context, roomID string, result *SubmitResult) (bool, error) {
	claimed := false

	err := s.roomRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}

		total, err := s.userRepo.CountByRoomID(ctx, tx, roomID)
		if err != nil {
			return err
		}
		ready, err := s.userRepo.CountReadyByRoomID(ctx, tx, roomID)
		if err != nil {
			return err
		}

		result.TotalUsers = int(total)
		result.AllReady = total == models.RoomCapacity && ready == total

		if len(room.Itinerary) > 0 {
			result.Itinerary = json.RawMessage(room.Itinerary)
			return nil
		}

		if result.AllReady && !room.GenerationStarted {
			ok, err := s.roomRepo.MarkGenerationStarted(ctx, tx, roomID)
			if err != nil {
				return err
			}
			claimed = ok
		}
		return nil
	})

	return claimed, err
}

// generate aggregates the room's votes, calls the producer and persists the
// outcome. Failures transition the room to error and are not surfaced to the
// triggering request; the vote submission itself already succeeded.
func (s *voteService) generate(ctx context.Context, roomID string) json.RawMessage {
	rows, err := s.voteRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		log.Printf("[Itinerary] room %s: loading votes failed: %v", roomID, err)
		s.fail(ctx, roomID)
		return nil
	}

	aggregated := AggregateVotes(rows)
	if len(aggregated) == 0 {
		log.Printf("[Itinerary] room %s: no voted places, nothing to generate", roomID)
		s.fail(ctx, roomID)
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	itinerary, err := s.generator.Generate(genCtx, aggregated)
	if err != nil {
		log.Printf("[Itinerary] room %s: generation failed: %v", roomID, err)
		s.fail(ctx, roomID)
		return nil
	}

	updated, err := s.roomRepo.SetItineraryIfEmpty(ctx, roomID, datatypes.JSON(itinerary))
	if err != nil {
		log.Printf("[Itinerary] room %s: persisting itinerary failed: %v", roomID, err)
		s.fail(ctx, roomID)
		return nil
	}
	if !updated {
		// Lost the write race; the stored itinerary wins.
		room, err := s.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			return nil
		}
		return json.RawMessage(room.Itinerary)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("room.completed", map[string]string{"roomId": roomID})
	}

	return itinerary
}

func (s *voteService) fail(ctx context.Context, roomID string) {
	if err := s.roomRepo.SetStatus(ctx, roomID, models.StatusError); err != nil {
		log.Printf("[Itinerary] room %s: marking room failed: %v", roomID, err)
	}
	if s.publisher != nil {
		_ = s.publisher.Publish("room.failed", map[string]string{"roomId": roomID})
	}
}

// ListRoomVotes returns every member's current vote set grouped by user.
func (s *voteService) ListRoomVotes(ctx context.Context, roomID string) (*RoomVotesView, error) {
	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	users, err := s.userRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	rows, err := s.voteRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	grouped := make([]UserVotes, 0, len(users))
	for _, row := range rows {
		i, seen := index[row.UserID]
		if !seen {
			index[row.UserID] = len(grouped)
			grouped = append(grouped, UserVotes{
				UserID:   row.UserID,
				UserName: names[row.UserID],
			})
			i = len(grouped) - 1
		}

		var payload map[string]any
		if err := json.Unmarshal(row.PlaceData, &payload); err != nil || payload == nil {
			payload = map[string]any{"placeId": row.PlaceID}
		}
		payload["votes"] = row.VoteCount
		grouped[i].Votes = append(grouped[i].Votes, payload)
	}

	return &RoomVotesView{
		Votes:      grouped,
		TotalVotes: len(rows),
	}, nil
}
