package services

import (
	"context"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, actor Actor) (*models.User, error) {
	return s.users.GetByID(ctx, actor.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, name, phone string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if phone != "" {
		u.Phone = phone
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetActive blocks or unblocks a user. Blocked users cannot log in or open
// new bookings and borrow requests.
func (s *UserService) SetActive(ctx context.Context, actor Actor, id uint, active bool) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == actor.UserID && !active {
		return nil, apperrors.Invalid("id", "cannot block yourself")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateFCMToken stores the device token used for push notifications.
func (s *UserService) UpdateFCMToken(ctx context.Context, actor Actor, token string) error {
	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	u.FCMToken = strings.TrimSpace(token)
	return s.users.Update(ctx, u)
}
