package services

import (
	"context"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/pkg/utils"
	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 6

var validate = validator.New()

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     models.Role
}

type AuthService struct {
	users  UserStore
	secret string
}

func NewAuthService(users UserStore, secret string) *AuthService {
	return &AuthService{users: users, secret: secret}
}

// Register creates an account and returns it with a session token. Admins
// cannot be self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}

	var v apperrors.ValidationError
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		v.Add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		v.Add("password", "must be at least 6 characters")
	}
	if !in.Role.Valid() || in.Role == models.RoleAdmin {
		v.Add("role", "must be customer, driver or owner")
	}
	if err := v.Err(); err != nil {
		return nil, "", err
	}

	existing, err := optional(s.users.GetByEmail(ctx, email))
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", apperrors.ConflictError{Resource: "user", Msg: "duplicate email"}
	}

	u := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Phone:    in.Phone,
		Password: in.Password,
		Role:     in.Role,
		IsActive: true,
	}
	if err := u.HashPassword(); err != nil {
		return nil, "", err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), s.secret)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if apperrors.IsNotFound(err) {
		return nil, "", apperrors.UnauthorizedError{Msg: "invalid email or password"}
	}
	if err != nil {
		return nil, "", err
	}
	if err := u.CheckPassword(password); err != nil {
		return nil, "", apperrors.UnauthorizedError{Msg: "invalid email or password"}
	}
	if err := requireActive(u); err != nil {
		return nil, "", err
	}

	token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), s.secret)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
