package repository

import (
	"context"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type DriverRepository struct {
	db *gorm.DB
}

func NewDriverRepository(db *gorm.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

func (r *DriverRepository) Create(ctx context.Context, d *models.Driver) error {
	return translate("driver", nil, database.Conn(ctx, r.db).Create(d).Error)
}

func (r *DriverRepository) GetByID(ctx context.Context, id uint) (*models.Driver, error) {
	var d models.Driver
	if err := getByID(ctx, r.db, &d, "driver", id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DriverRepository) GetByUserID(ctx context.Context, userID uint) (*models.Driver, error) {
	var d models.Driver
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).First(&d).Error
	if err != nil {
		return nil, translate("driver", nil, err)
	}
	return &d, nil
}

func (r *DriverRepository) Update(ctx context.Context, d *models.Driver) error {
	return translate("driver", d.ID, database.Conn(ctx, r.db).Save(d).Error)
}

func (r *DriverRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Driver{}, "driver", id)
}

func (r *DriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	var out []models.Driver
	err := database.Conn(ctx, r.db).Order("id").Find(&out).Error
	return out, translate("driver", nil, err)
}

// ListAvailable returns available drivers, optionally only those whose
// location contains the given text (case-insensitive).
func (r *DriverRepository) ListAvailable(ctx context.Context, location string) ([]models.Driver, error) {
	q := database.Conn(ctx, r.db).Where("status = ?", models.DriverAvailable)
	if loc := strings.TrimSpace(location); loc != "" {
		q = q.Where("location ILIKE ?", "%"+escapeLike(loc)+"%")
	}
	var out []models.Driver
	err := q.Order("rating DESC, id").Find(&out).Error
	return out, translate("driver", nil, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
