package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
)

// ImageUploader is the part of ImageStore the tool catalogue uses.
type ImageUploader interface {
	UploadImage(file *multipart.FileHeader, folder string) (string, error)
	DeleteImage(imageURL string) error
}

type ToolInput struct {
	Name        string
	Description string
	Category    string
	Condition   string
	Location    string
	DailyRate   decimal.Decimal
}

type ToolService struct {
	d      Deps
	images ImageUploader
}

func NewToolService(d Deps, images ImageUploader) *ToolService {
	return &ToolService{d: d, images: images}
}

func (s *ToolService) Create(ctx context.Context, actor Actor, in ToolInput) (*models.Tool, error) {
	if err := checkTool(in); err != nil {
		return nil, err
	}
	owner, err := s.d.Stores.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(owner); err != nil {
		return nil, err
	}
	t := &models.Tool{OwnerID: owner.ID, Status: models.ToolAvailable}
	applyTool(t, in)
	if err := s.d.Stores.Tools.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ToolService) Update(ctx context.Context, actor Actor, id uint, in ToolInput) (*models.Tool, error) {
	if err := checkTool(in); err != nil {
		return nil, err
	}
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	applyTool(t, in)
	if err := s.d.Stores.Tools.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SetStatus lets the owner list or unlist a tool. Borrowed is driven by
// pickup and return.
func (s *ToolService) SetStatus(ctx context.Context, actor Actor, id uint, status models.ToolStatus) (*models.Tool, error) {
	if status != models.ToolAvailable && status != models.ToolUnavailable {
		return nil, apperrors.Invalid("status", "must be available or unavailable")
	}
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.ToolBorrowed {
		return nil, apperrors.ConflictError{Resource: "tool", Msg: fmt.Sprintf("tool %d is currently borrowed", t.ID)}
	}
	t.Status = status
	if err := s.d.Stores.Tools.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete refuses while any borrow request references the tool.
func (s *ToolService) Delete(ctx context.Context, actor Actor, id uint) error {
	var imageURL string
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		t, err := s.owned(ctx, actor, id)
		if err != nil {
			return err
		}
		n, err := s.d.Stores.BorrowRequests.CountByTool(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperrors.ConflictError{Resource: "tool", Msg: fmt.Sprintf("tool %d is still referenced by %d borrow requests", id, n)}
		}
		imageURL = t.ImageURL
		return s.d.Stores.Tools.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.dropImage(imageURL)
	return nil
}

func (s *ToolService) Get(ctx context.Context, id uint) (*models.Tool, error) {
	return s.d.Stores.Tools.GetByID(ctx, id)
}

func (s *ToolService) List(ctx context.Context, f models.ToolFilter) ([]models.Tool, int64, error) {
	var v apperrors.ValidationError
	if !f.AvailableFrom.IsZero() || !f.AvailableTo.IsZero() {
		lifecycle.CheckWindow(&v, "availableFrom", "availableTo", f.AvailableFrom, f.AvailableTo)
	}
	if err := v.Err(); err != nil {
		return nil, 0, err
	}
	return s.d.Stores.Tools.List(ctx, f)
}

// UploadImage replaces the tool's picture.
func (s *ToolService) UploadImage(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (*models.Tool, error) {
	if s.images == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}
	if file == nil {
		return nil, apperrors.Invalid("image", "is required")
	}
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.UploadImage(file, "tools")
	if err != nil {
		return nil, err
	}
	old := t.ImageURL
	t.ImageURL = url
	if err := s.d.Stores.Tools.Update(ctx, t); err != nil {
		s.dropImage(url)
		return nil, err
	}
	s.dropImage(old)
	return t, nil
}

func (s *ToolService) dropImage(url string) {
	if url == "" || s.images == nil {
		return
	}
	if err := s.images.DeleteImage(url); err != nil {
		log.Printf("Failed to delete image %s: %v", url, err)
	}
}

func (s *ToolService) owned(ctx context.Context, actor Actor, id uint) (*models.Tool, error) {
	t, err := s.d.Stores.Tools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && t.OwnerID != actor.UserID {
		return nil, apperrors.UnauthorizedError{Msg: "only the owner can change this tool"}
	}
	return t, nil
}

func checkTool(in ToolInput) error {
	var v apperrors.ValidationError
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required")
	}
	if !in.DailyRate.IsPositive() {
		v.Add("dailyRate", "must be greater than zero")
	}
	return v.Err()
}

func applyTool(t *models.Tool, in ToolInput) {
	t.Name = strings.TrimSpace(in.Name)
	t.Description = in.Description
	t.Category = strings.TrimSpace(in.Category)
	t.Condition = in.Condition
	t.Location = strings.TrimSpace(in.Location)
	t.DailyRate = in.DailyRate.Round(2)
}
