package repository

import (
	"context"

	"github.com/chayanin/tripvote-service/internal/models"
	"gorm.io/gorm"
)

type VoteRepository interface {
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error
	CreateBatch(ctx context.Context, tx *gorm.DB, votes []models.Vote) error
	FindByRoomID(ctx context.Context, roomID string) ([]models.Vote, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Vote{}).Error
}

func (r *voteRepository) CreateBatch(ctx context.Context, tx *gorm.DB, votes []models.Vote) error {
	if len(votes) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&votes).Error
}

// FindByRoomID returns all vote rows for a room in insertion order, which is
// the encounter order the aggregation fold relies on.
func (r *voteRepository) FindByRoomID(ctx context.Context, roomID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}
