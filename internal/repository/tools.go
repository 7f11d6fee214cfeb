package repository

import (
	"context"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type ToolRepository struct {
	db *gorm.DB
}

func NewToolRepository(db *gorm.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

func (r *ToolRepository) Create(ctx context.Context, t *models.Tool) error {
	return translate("tool", nil, database.Conn(ctx, r.db).Create(t).Error)
}

func (r *ToolRepository) GetByID(ctx context.Context, id uint) (*models.Tool, error) {
	var t models.Tool
	if err := getByID(ctx, r.db, &t, "tool", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ToolRepository) Update(ctx context.Context, t *models.Tool) error {
	return translate("tool", t.ID, database.Conn(ctx, r.db).Save(t).Error)
}

func (r *ToolRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Tool{}, "tool", id)
}

func (r *ToolRepository) List(ctx context.Context, f models.ToolFilter) ([]models.Tool, int64, error) {
	var total int64
	if err := database.Conn(ctx, r.db).Model(&models.Tool{}).Scopes(toolFilter(f)).Count(&total).Error; err != nil {
		return nil, 0, translate("tool", nil, err)
	}

	limit, offset := f.Page()
	var out []models.Tool
	err := database.Conn(ctx, r.db).
		Scopes(toolFilter(f)).
		Order("rating DESC, id").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, total, translate("tool", nil, err)
}

func toolFilter(f models.ToolFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.OwnerID != 0 {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if c := strings.TrimSpace(f.Category); c != "" {
			q = q.Where("LOWER(category) = LOWER(?)", c)
		}
		if loc := strings.TrimSpace(f.Location); loc != "" {
			q = q.Where("location ILIKE ?", "%"+escapeLike(loc)+"%")
		}
		if text := strings.TrimSpace(f.Query); text != "" {
			like := "%" + escapeLike(text) + "%"
			q = q.Where("(name ILIKE ? OR description ILIKE ?)", like, like)
		}
		if f.Status != 0 {
			q = q.Where("status = ?", f.Status)
		}
		if !f.AvailableFrom.IsZero() && !f.AvailableTo.IsZero() {
			q = q.Where(`NOT EXISTS (
				SELECT 1 FROM borrow_requests br
				WHERE br.tool_id = tools.id AND br.status IN ?
				AND br.start_date <= ? AND br.end_date >= ?)`,
				lifecycle.OpenStatuses, f.AvailableTo, f.AvailableFrom)
		}
		return q
	}
}
