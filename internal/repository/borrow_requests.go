package repository

import (
	"context"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type BorrowRequestRepository struct {
	db *gorm.DB
}

func NewBorrowRequestRepository(db *gorm.DB) *BorrowRequestRepository {
	return &BorrowRequestRepository{db: db}
}

func (r *BorrowRequestRepository) Create(ctx context.Context, br *models.BorrowRequest) error {
	return translate("borrow request", nil, database.Conn(ctx, r.db).Create(br).Error)
}

func (r *BorrowRequestRepository) GetByID(ctx context.Context, id uint) (*models.BorrowRequest, error) {
	var br models.BorrowRequest
	if err := getByID(ctx, r.db, &br, "borrow request", id); err != nil {
		return nil, err
	}
	return &br, nil
}

func (r *BorrowRequestRepository) Update(ctx context.Context, br *models.BorrowRequest) error {
	return translate("borrow request", br.ID, database.Conn(ctx, r.db).Save(br).Error)
}

// Delete removes the request; its payment and review go with it.
func (r *BorrowRequestRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.BorrowRequest{}, "borrow request", id)
}

func (r *BorrowRequestRepository) List(ctx context.Context, f models.TransactionFilter) ([]models.BorrowRequest, int64, error) {
	var total int64
	if err := database.Conn(ctx, r.db).Model(&models.BorrowRequest{}).Scopes(borrowFilter(f)).Count(&total).Error; err != nil {
		return nil, 0, translate("borrow request", nil, err)
	}

	limit, offset := f.Page()
	var out []models.BorrowRequest
	err := database.Conn(ctx, r.db).
		Scopes(borrowFilter(f)).
		Order("start_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate("borrow request", nil, err)
}

func borrowFilter(f models.TransactionFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.RequesterID != 0 {
			q = q.Where("borrower_id = ?", f.RequesterID)
		}
		if f.ResourceID != 0 {
			q = q.Where("tool_id = ?", f.ResourceID)
		}
		if f.OwnerID != 0 {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if len(f.Statuses) > 0 {
			q = q.Where("status IN ?", f.Statuses)
		}
		if !f.From.IsZero() {
			q = q.Where("end_date >= ?", f.From)
		}
		if !f.To.IsZero() {
			q = q.Where("start_date <= ?", f.To)
		}
		if f.MinCost.Valid {
			q = q.Where("COALESCE(actual_cost, estimated_cost) >= ?", f.MinCost.Decimal)
		}
		if f.MaxCost.Valid {
			q = q.Where("COALESCE(actual_cost, estimated_cost) <= ?", f.MaxCost.Decimal)
		}
		return q
	}
}

// FindOverlaps returns open requests on the tool whose window intersects
// [start, end].
func (r *BorrowRequestRepository) FindOverlaps(ctx context.Context, toolID uint, start, end time.Time, excludeID uint) ([]models.BorrowRequest, error) {
	q := database.Conn(ctx, r.db).
		Where("tool_id = ? AND status IN ?", toolID, lifecycle.OpenStatuses).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var out []models.BorrowRequest
	err := q.Order("start_date").Find(&out).Error
	return out, translate("borrow request", nil, err)
}

// ListOverdue returns active requests whose end date is before now.
func (r *BorrowRequestRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.BorrowRequest, error) {
	var out []models.BorrowRequest
	err := database.Conn(ctx, r.db).
		Where("status = ? AND end_date < ?", lifecycle.StatusInProgress, now).
		Order("end_date").
		Find(&out).Error
	return out, translate("borrow request", nil, err)
}

func (r *BorrowRequestRepository) CountByTool(ctx context.Context, toolID uint) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&models.BorrowRequest{}).Where("tool_id = ?", toolID).Count(&n).Error
	return n, translate("borrow request", nil, err)
}
