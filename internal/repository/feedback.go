package repository

import (
	"context"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	return translate("feedback", nil, database.Conn(ctx, r.db).Create(f).Error)
}

func (r *FeedbackRepository) GetByBooking(ctx context.Context, bookingID uint) (*models.Feedback, error) {
	var f models.Feedback
	if err := database.Conn(ctx, r.db).Where("booking_id = ?", bookingID).First(&f).Error; err != nil {
		return nil, translate("feedback", nil, err)
	}
	return &f, nil
}

func (r *FeedbackRepository) ListByDriver(ctx context.Context, driverID uint) ([]models.Feedback, error) {
	var out []models.Feedback
	err := database.Conn(ctx, r.db).Where("driver_id = ?", driverID).Order("id DESC").Find(&out).Error
	return out, translate("feedback", nil, err)
}

// RatingsForDriver returns every rating the driver received.
func (r *FeedbackRepository) RatingsForDriver(ctx context.Context, driverID uint) ([]int, error) {
	var out []int
	err := database.Conn(ctx, r.db).Model(&models.Feedback{}).Where("driver_id = ?", driverID).Pluck("rating", &out).Error
	return out, translate("feedback", nil, err)
}
