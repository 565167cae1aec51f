package repository

import (
	"context"

	"github.com/chayanin/tripvote-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Room, error)
	MarkGenerationStarted(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	SetItineraryIfEmpty(ctx context.Context, id string, itinerary datatypes.JSON) (bool, error)
	SetStatus(ctx context.Context, id string, status models.RoomStatus) error
	GetDB() *gorm.DB
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByIDForUpdate acquires a row-level lock on the room within the given transaction.
// All room mutations (join, vote submit, generation claim) serialize on this lock.
func (r *roomRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Room, error) {
	var room models.Room
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// MarkGenerationStarted claims the generation critical section with a
// compare-and-set on the marker column. Returns false if another writer
// already claimed it.
func (r *roomRepository) MarkGenerationStarted(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND generation_started = ?", id, false).
		Update("generation_started", true)
	return res.RowsAffected > 0, res.Error
}

// SetItineraryIfEmpty persists the itinerary and completes the room in one
// conditional update. Returns false if another writer got there first.
func (r *roomRepository) SetItineraryIfEmpty(ctx context.Context, id string, itinerary datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND itinerary IS NULL", id).
		Updates(map[string]any{
			"itinerary": itinerary,
			"status":    models.StatusCompleted,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *roomRepository) SetStatus(ctx context.Context, id string, status models.RoomStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Update("status", status).Error
}
