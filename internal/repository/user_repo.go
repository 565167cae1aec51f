package repository

import (
	"context"

	"github.com/chayanin/tripvote-service/internal/models"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	FindByRoomID(ctx context.Context, roomID string) ([]models.User, error)
	FindByIDInRoom(ctx context.Context, tx *gorm.DB, userID, roomID string) (*models.User, error)
	CountByRoomID(ctx context.Context, tx *gorm.DB, roomID string) (int64, error)
	CountReadyByRoomID(ctx context.Context, tx *gorm.DB, roomID string) (int64, error)
	NameExists(ctx context.Context, tx *gorm.DB, roomID, name string) (bool, error)
	SetReady(ctx context.Context, tx *gorm.DB, userID string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return tx.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByRoomID(ctx context.Context, roomID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC, id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) FindByIDInRoom(ctx context.Context, tx *gorm.DB, userID, roomID string) (*models.User, error) {
	var user models.User
	err := tx.WithContext(ctx).
		Where("id = ? AND room_id = ?", userID, roomID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountByRoomID(ctx context.Context, tx *gorm.DB, roomID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *userRepository) CountReadyByRoomID(ctx context.Context, tx *gorm.DB, roomID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("room_id = ? AND is_ready = ?", roomID, true).
		Count(&count).Error
	return count, err
}

// NameExists checks display-name uniqueness case-insensitively within a room.
func (r *userRepository) NameExists(ctx context.Context, tx *gorm.DB, roomID, name string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("room_id = ? AND LOWER(name) = LOWER(?)", roomID, name).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) SetReady(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_ready", true).Error
}
