package repository

import (
	"context"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	return translate("review", nil, database.Conn(ctx, r.db).Create(rv).Error)
}

func (r *ReviewRepository) GetByBorrowRequest(ctx context.Context, requestID uint) (*models.Review, error) {
	var rv models.Review
	if err := database.Conn(ctx, r.db).Where("borrow_request_id = ?", requestID).First(&rv).Error; err != nil {
		return nil, translate("review", nil, err)
	}
	return &rv, nil
}

func (r *ReviewRepository) ListByTool(ctx context.Context, toolID uint) ([]models.Review, error) {
	var out []models.Review
	err := database.Conn(ctx, r.db).Where("tool_id = ?", toolID).Order("id DESC").Find(&out).Error
	return out, translate("review", nil, err)
}

func (r *ReviewRepository) RatingsForTool(ctx context.Context, toolID uint) ([]int, error) {
	return r.ratings(ctx, "tool_id = ?", toolID)
}

func (r *ReviewRepository) RatingsForUser(ctx context.Context, userID uint) ([]int, error) {
	return r.ratings(ctx, "reviewee_id = ?", userID)
}

func (r *ReviewRepository) ratings(ctx context.Context, cond string, id uint) ([]int, error) {
	var out []int
	err := database.Conn(ctx, r.db).Model(&models.Review{}).Where(cond, id).Pluck("rating", &out).Error
	return out, translate("review", nil, err)
}
