package repository

import (
	"context"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type MaintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

func (r *MaintenanceRepository) Create(ctx context.Context, m *models.Maintenance) error {
	return translate("maintenance", nil, database.Conn(ctx, r.db).Create(m).Error)
}

func (r *MaintenanceRepository) GetByID(ctx context.Context, id uint) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := getByID(ctx, r.db, &m, "maintenance", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MaintenanceRepository) Update(ctx context.Context, m *models.Maintenance) error {
	return translate("maintenance", m.ID, database.Conn(ctx, r.db).Save(m).Error)
}

func (r *MaintenanceRepository) ListByVehicle(ctx context.Context, vehicleID uint) ([]models.Maintenance, error) {
	var out []models.Maintenance
	err := database.Conn(ctx, r.db).Where("vehicle_id = ?", vehicleID).Order("scheduled_for DESC").Find(&out).Error
	return out, translate("maintenance", nil, err)
}

// Due returns scheduled records whose date is at or before the cutoff,
// oldest first.
func (r *MaintenanceRepository) Due(ctx context.Context, cutoff time.Time) ([]models.Maintenance, error) {
	var out []models.Maintenance
	err := database.Conn(ctx, r.db).
		Where("status = ? AND scheduled_for <= ?", models.MaintenanceScheduled, cutoff).
		Order("scheduled_for").
		Find(&out).Error
	return out, translate("maintenance", nil, err)
}
