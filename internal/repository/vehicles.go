package repository

import (
	"context"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	return translate("vehicle", nil, database.Conn(ctx, r.db).Create(v).Error)
}

func (r *VehicleRepository) GetByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := getByID(ctx, r.db, &v, "vehicle", id); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VehicleRepository) Update(ctx context.Context, v *models.Vehicle) error {
	return translate("vehicle", v.ID, database.Conn(ctx, r.db).Save(v).Error)
}

func (r *VehicleRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Vehicle{}, "vehicle", id)
}

// List returns vehicles, all of them when status is zero.
func (r *VehicleRepository) List(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error) {
	q := database.Conn(ctx, r.db)
	if status != 0 {
		q = q.Where("status = ?", status)
	}
	var out []models.Vehicle
	err := q.Order("id").Find(&out).Error
	return out, translate("vehicle", nil, err)
}

// UsableForDriver returns the vehicle paired with the driver that is not in
// maintenance. Whether it is free for a given window is an overlap question.
func (r *VehicleRepository) UsableForDriver(ctx context.Context, driverID uint) (*models.Vehicle, error) {
	var v models.Vehicle
	err := database.Conn(ctx, r.db).
		Where("driver_id = ? AND status <> ?", driverID, models.VehicleMaintenance).
		Order("id").
		First(&v).Error
	if err != nil {
		return nil, translate("vehicle", nil, err)
	}
	return &v, nil
}
