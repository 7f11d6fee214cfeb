package repository

import (
	"context"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	return translate("booking", nil, database.Conn(ctx, r.db).Create(b).Error)
}

func (r *BookingRepository) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := getByID(ctx, r.db, &b, "booking", id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	return translate("booking", b.ID, database.Conn(ctx, r.db).Save(b).Error)
}

// Delete removes the booking; its payment and feedback go with it.
func (r *BookingRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Booking{}, "booking", id)
}

func (r *BookingRepository) List(ctx context.Context, f models.TransactionFilter) ([]models.Booking, int64, error) {
	var total int64
	base := database.Conn(ctx, r.db).Model(&models.Booking{}).Scopes(bookingFilter(f))
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, translate("booking", nil, err)
	}

	limit, offset := f.Page()
	var out []models.Booking
	err := database.Conn(ctx, r.db).
		Scopes(bookingFilter(f)).
		Order("scheduled_start DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate("booking", nil, err)
}

func bookingFilter(f models.TransactionFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.RequesterID != 0 {
			q = q.Where("customer_id = ?", f.RequesterID)
		}
		if f.ResourceID != 0 {
			q = q.Where("driver_id = ?", f.ResourceID)
		}
		if f.VehicleID != 0 {
			q = q.Where("vehicle_id = ?", f.VehicleID)
		}
		if len(f.Statuses) > 0 {
			q = q.Where("status IN ?", f.Statuses)
		}
		if !f.From.IsZero() {
			q = q.Where("scheduled_end >= ?", f.From)
		}
		if !f.To.IsZero() {
			q = q.Where("scheduled_start <= ?", f.To)
		}
		if f.MinCost.Valid {
			q = q.Where("COALESCE(actual_fare, estimated_fare) >= ?", f.MinCost.Decimal)
		}
		if f.MaxCost.Valid {
			q = q.Where("COALESCE(actual_fare, estimated_fare) <= ?", f.MaxCost.Decimal)
		}
		return q
	}
}

// FindOverlaps returns open bookings holding the driver or the vehicle for
// any part of the window.
func (r *BookingRepository) FindOverlaps(ctx context.Context, oq models.OverlapQuery) ([]models.Booking, error) {
	q := database.Conn(ctx, r.db).
		Where("status IN ?", lifecycle.OpenStatuses).
		Where("scheduled_start <= ? AND scheduled_end >= ?", oq.End, oq.Start)
	switch {
	case oq.DriverID != 0 && oq.VehicleID != 0:
		q = q.Where("(driver_id = ? OR vehicle_id = ?)", oq.DriverID, oq.VehicleID)
	case oq.DriverID != 0:
		q = q.Where("driver_id = ?", oq.DriverID)
	case oq.VehicleID != 0:
		q = q.Where("vehicle_id = ?", oq.VehicleID)
	default:
		return nil, nil
	}
	if oq.ExcludeID != 0 {
		q = q.Where("id <> ?", oq.ExcludeID)
	}

	var out []models.Booking
	err := q.Order("scheduled_start").Find(&out).Error
	return out, translate("booking", nil, err)
}

// OpenCountByDriver counts open bookings per driver. Drivers without any are
// absent from the map.
func (r *BookingRepository) OpenCountByDriver(ctx context.Context, driverIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(driverIDs))
	if len(driverIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		DriverID uint
		Open     int64
	}
	err := database.Conn(ctx, r.db).
		Model(&models.Booking{}).
		Select("driver_id, COUNT(*) AS open").
		Where("driver_id IN ? AND status IN ?", driverIDs, lifecycle.OpenStatuses).
		Group("driver_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("booking", nil, err)
	}
	for _, row := range rows {
		out[row.DriverID] = row.Open
	}
	return out, nil
}

// CountByDriver counts every booking, terminal ones included, that
// references the driver.
func (r *BookingRepository) CountByDriver(ctx context.Context, driverID uint) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&models.Booking{}).Where("driver_id = ?", driverID).Count(&n).Error
	return n, translate("booking", nil, err)
}

func (r *BookingRepository) CountByVehicle(ctx context.Context, vehicleID uint) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&models.Booking{}).Where("vehicle_id = ?", vehicleID).Count(&n).Error
	return n, translate("booking", nil, err)
}
