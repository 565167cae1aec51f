//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chayanin/tripvote-service/internal/models"
	"github.com/chayanin/tripvote-service/internal/repository"
	"github.com/chayanin/tripvote-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGenerator stands in for the itinerary producer and counts invocations.
type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	lastInput []service.AggregatedPlace
	err       error
	result    json.RawMessage
}

func (f *fakeGenerator) Generate(ctx context.Context, places []service.AggregatedPlace) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastInput = places
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return json.RawMessage(`{"itinerary":[{"place":{"id":"P1"}}],"overview":"test day"}`), nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newServices(gen service.ItineraryGenerator) (service.RoomService, service.VoteService) {
	roomRepo := repository.NewRoomRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)
	voteRepo := repository.NewVoteRepository(testDB)
	roomSvc := service.NewRoomService(roomRepo, userRepo, nil)
	voteSvc := service.NewVoteService(roomRepo, userRepo, voteRepo, gen, nil, 10*time.Second)
	return roomSvc, voteSvc
}

func placeVote(placeID string, count int) service.PlaceVoteInput {
	return service.PlaceVoteInput{
		PlaceID: placeID,
		Count:   count,
		Payload: map[string]any{
			"placeId":   placeID,
			"placeName": "Place " + placeID,
			"votes":     count,
		},
	}
}

func TestCreateRoom_CodeFormatAndState(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	assert.Len(t, room.ID, 6)
	assert.Equal(t, models.StatusWaiting, room.Status)
	assert.Empty(t, room.Itinerary)

	// codes are unique across rooms
	other, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, room.ID, other.ID)
}

// Test: 10 users join a 5-seat room concurrently → exactly 5 admitted
func TestConcurrentJoins_CapacityHolds(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	totalUsers := 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	rejected := 0

	wg.Add(totalUsers)
	for i := 0; i < totalUsers; i++ {
		go func(idx int) {
			defer wg.Done()
			_, err := roomSvc.JoinRoom(t.Context(), room.ID, fmt.Sprintf("user-%02d", idx))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else if errors.Is(err, service.ErrRoomFull) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, admitted, "exactly 5 users should be admitted")
	assert.Equal(t, 5, rejected, "the rest should hit the capacity limit")

	var dbCount int64
	testDB.Model(&models.User{}).Where("room_id = ?", room.ID).Count(&dbCount)
	assert.Equal(t, int64(5), dbCount)
}

func TestJoinRoom_SixthSequentialJoinRejected(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := roomSvc.JoinRoom(t.Context(), room.ID, fmt.Sprintf("member-%d", i))
		require.NoError(t, err)
	}

	_, err = roomSvc.JoinRoom(t.Context(), room.ID, "latecomer")
	assert.ErrorIs(t, err, service.ErrRoomFull)
}

func TestJoinRoom_NameUniquenessCaseInsensitive(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	_, err = roomSvc.JoinRoom(t.Context(), room.ID, "alice")
	require.NoError(t, err)

	_, err = roomSvc.JoinRoom(t.Context(), room.ID, "Alice")
	assert.ErrorIs(t, err, service.ErrNameTaken)

	_, err = roomSvc.JoinRoom(t.Context(), room.ID, "ALICE")
	assert.ErrorIs(t, err, service.ErrNameTaken)
}

func TestJoinRoom_ValidationOrder(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	// Empty name wins over missing room
	_, err := roomSvc.JoinRoom(t.Context(), "ZZZZZZ", "   ")
	assert.ErrorIs(t, err, service.ErrNameRequired)

	_, err = roomSvc.JoinRoom(t.Context(), "ZZZZZZ", "alice")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestSubmitVotes_Validation(t *testing.T) {
	cleanTables()
	roomSvc, voteSvc := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)
	user, err := roomSvc.JoinRoom(t.Context(), room.ID, "alice")
	require.NoError(t, err)

	_, err = voteSvc.SubmitVotes(t.Context(), room.ID, "", []service.PlaceVoteInput{placeVote("P1", 1)})
	assert.ErrorIs(t, err, service.ErrVotesRequired)

	_, err = voteSvc.SubmitVotes(t.Context(), room.ID, user.ID, nil)
	assert.ErrorIs(t, err, service.ErrVotesRequired)

	_, err = voteSvc.SubmitVotes(t.Context(), "ZZZZZZ", user.ID, []service.PlaceVoteInput{placeVote("P1", 1)})
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	// Member of a different room is forbidden here
	otherRoom, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)
	stranger, err := roomSvc.JoinRoom(t.Context(), otherRoom.ID, "bob")
	require.NoError(t, err)

	_, err = voteSvc.SubmitVotes(t.Context(), room.ID, stranger.ID, []service.PlaceVoteInput{placeVote("P1", 1)})
	assert.ErrorIs(t, err, service.ErrUserNotInRoom)
}

// Test: resubmission replaces the previous vote set, never merges
func TestSubmitVotes_IdempotentRevote(t *testing.T) {
	cleanTables()
	roomSvc, voteSvc := newServices(&fakeGenerator{})

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)
	user, err := roomSvc.JoinRoom(t.Context(), room.ID, "alice")
	require.NoError(t, err)

	first := []service.PlaceVoteInput{placeVote("P1", 3), placeVote("P2", 1)}
	result, err := voteSvc.SubmitVotes(t.Context(), room.ID, user.ID, first)
	require.NoError(t, err)
	assert.True(t, result.IsReady)
	assert.Equal(t, 2, result.VotesSubmitted)

	second := []service.PlaceVoteInput{placeVote("P3", 2)}
	result, err = voteSvc.SubmitVotes(t.Context(), room.ID, user.ID, second)
	require.NoError(t, err)
	assert.Equal(t, 1, result.VotesSubmitted)

	var rows []models.Vote
	require.NoError(t, testDB.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "second submission should fully replace the first")
	assert.Equal(t, "P3", rows[0].PlaceID)
	assert.Equal(t, 2, rows[0].VoteCount)
}

// Test: 5 users finish voting concurrently → the producer runs exactly once
func TestAllReady_GeneratesExactlyOnce(t *testing.T) {
	cleanTables()
	gen := &fakeGenerator{}
	roomSvc, voteSvc := newServices(gen)

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	names := []string{"Alice", "Bob", "Carol", "Dave", "Eve"}
	users := make([]*models.User, len(names))
	for i, name := range names {
		users[i], err = roomSvc.JoinRoom(t.Context(), room.ID, name)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(len(users))
	for _, u := range users {
		go func(userID string) {
			defer wg.Done()
			_, err := voteSvc.SubmitVotes(t.Context(), room.ID, userID, []service.PlaceVoteInput{placeVote("P1", 1)})
			assert.NoError(t, err)
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, gen.callCount(), "producer must run exactly once per room")

	var stored models.Room
	require.NoError(t, testDB.First(&stored, "id = ?", room.ID).Error)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.NotEmpty(t, stored.Itinerary)

	// Aggregation saw every vote: P1 summed across all 5 users
	require.Len(t, gen.lastInput, 1)
	assert.Equal(t, "P1", gen.lastInput[0].PlaceID)
	assert.Equal(t, 5, gen.lastInput[0].Votes)
	assert.Len(t, gen.lastInput[0].Voters, 5)
}

// Test: producer failure → room stuck in error, itinerary stays null,
// the triggering submission still succeeds
func TestGenerationFailure_RoomEntersErrorState(t *testing.T) {
	cleanTables()
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	roomSvc, voteSvc := newServices(gen)

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	users := make([]*models.User, 5)
	for i := range users {
		users[i], err = roomSvc.JoinRoom(t.Context(), room.ID, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}

	var last *service.SubmitResult
	for _, u := range users {
		last, err = voteSvc.SubmitVotes(t.Context(), room.ID, u.ID, []service.PlaceVoteInput{placeVote("P1", 1)})
		require.NoError(t, err, "producer failure must not fail the vote submission")
	}

	assert.True(t, last.AllReady)
	assert.Nil(t, last.Itinerary)
	assert.Equal(t, 1, gen.callCount())

	var stored models.Room
	require.NoError(t, testDB.First(&stored, "id = ?", room.ID).Error)
	assert.Equal(t, models.StatusError, stored.Status)
	assert.Empty(t, stored.Itinerary)
}

// Test: a completed room's itinerary is frozen
func TestSubmitVotes_AfterCompletionRejected(t *testing.T) {
	cleanTables()
	gen := &fakeGenerator{}
	roomSvc, voteSvc := newServices(gen)

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	users := make([]*models.User, 5)
	for i := range users {
		users[i], err = roomSvc.JoinRoom(t.Context(), room.ID, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}
	for _, u := range users {
		_, err = voteSvc.SubmitVotes(t.Context(), room.ID, u.ID, []service.PlaceVoteInput{placeVote("P1", 1)})
		require.NoError(t, err)
	}

	var before models.Room
	require.NoError(t, testDB.First(&before, "id = ?", room.ID).Error)
	require.Equal(t, models.StatusCompleted, before.Status)

	_, err = voteSvc.SubmitVotes(t.Context(), room.ID, users[0].ID, []service.PlaceVoteInput{placeVote("P9", 5)})
	assert.ErrorIs(t, err, service.ErrRoomClosed)

	var after models.Room
	require.NoError(t, testDB.First(&after, "id = ?", room.ID).Error)
	assert.Equal(t, string(before.Itinerary), string(after.Itinerary), "itinerary must never change once set")
	assert.Equal(t, 1, gen.callCount())
}

// Test: full scenario — create, 5 joins, 5 votes, status poll, vote listing
func TestFullFlow_StatusAndVoteListing(t *testing.T) {
	cleanTables()
	gen := &fakeGenerator{}
	roomSvc, voteSvc := newServices(gen)

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	names := []string{"Alice", "Bob", "Carol", "Dave", "Eve"}
	for i, name := range names {
		user, err := roomSvc.JoinRoom(t.Context(), room.ID, name)
		require.NoError(t, err)

		view, err := roomSvc.GetRoomStatus(t.Context(), room.ID)
		require.NoError(t, err)
		assert.Len(t, view.Users, i+1)
		assert.Equal(t, i, view.VotesSubmitted)

		_, err = voteSvc.SubmitVotes(t.Context(), room.ID, user.ID, []service.PlaceVoteInput{placeVote("P1", 1)})
		require.NoError(t, err)
	}

	view, err := roomSvc.GetRoomStatus(t.Context(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, view.Room.Status)
	assert.Equal(t, 5, view.VotesSubmitted)
	assert.NotEmpty(t, view.Room.Itinerary)

	votes, err := voteSvc.ListRoomVotes(t.Context(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, votes.TotalVotes)
	assert.Len(t, votes.Votes, 5)
	for _, uv := range votes.Votes {
		assert.NotEmpty(t, uv.UserName)
		require.Len(t, uv.Votes, 1)
		assert.Equal(t, "P1", uv.Votes[0]["placeId"])
	}
}

func TestGetRoomStatus_NotFound(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})

	_, err := roomSvc.GetRoomStatus(t.Context(), "ZZZZZZ")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

// Test: the generation claim is first-writer-wins; a second claim on the same
// room reports it was already taken.
func TestMarkGenerationStarted_SecondClaimLoses(t *testing.T) {
	cleanTables()
	roomSvc, _ := newServices(&fakeGenerator{})
	roomRepo := repository.NewRoomRepository(testDB)

	room, err := roomSvc.CreateRoom(t.Context())
	require.NoError(t, err)

	claimed, err := roomRepo.MarkGenerationStarted(t.Context(), testDB, room.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = roomRepo.MarkGenerationStarted(t.Context(), testDB, room.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

// Test: a duplicate-key insert on the room code consumes a retry instead of
// failing room creation.
func TestCreateRoom_DuplicateKeyTranslated(t *testing.T) {
	cleanTables()
	roomRepo := repository.NewRoomRepository(testDB)

	require.NoError(t, roomRepo.Create(t.Context(), &models.Room{ID: "AB12CD", Status: models.StatusWaiting}))

	err := roomRepo.Create(t.Context(), &models.Room{ID: "AB12CD", Status: models.StatusWaiting})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
