package repository

import (
	"context"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return translate("payment", nil, database.Conn(ctx, r.db).Create(p).Error)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := getByID(ctx, r.db, &p, "payment", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	return translate("payment", p.ID, database.Conn(ctx, r.db).Save(p).Error)
}

func (r *PaymentRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Payment{}, "payment", id)
}

func (r *PaymentRepository) GetByBooking(ctx context.Context, bookingID uint) (*models.Payment, error) {
	return r.findOne(ctx, "booking_id = ?", bookingID)
}

func (r *PaymentRepository) GetByBorrowRequest(ctx context.Context, requestID uint) (*models.Payment, error) {
	return r.findOne(ctx, "borrow_request_id = ?", requestID)
}

func (r *PaymentRepository) findOne(ctx context.Context, cond string, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := database.Conn(ctx, r.db).Where(cond, id).First(&p).Error; err != nil {
		return nil, translate("payment", nil, err)
	}
	return &p, nil
}
