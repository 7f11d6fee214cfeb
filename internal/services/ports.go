package services

import (
	"context"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/models"
)

// TxRunner runs fn inside a serializable transaction carried by ctx.
type TxRunner interface {
	Serializable(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type DriverStore interface {
	Create(ctx context.Context, d *models.Driver) error
	GetByID(ctx context.Context, id uint) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Driver, error)
	Update(ctx context.Context, d *models.Driver) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.Driver, error)
	ListAvailable(ctx context.Context, location string) ([]models.Driver, error)
}

type VehicleStore interface {
	Create(ctx context.Context, v *models.Vehicle) error
	GetByID(ctx context.Context, id uint) (*models.Vehicle, error)
	Update(ctx context.Context, v *models.Vehicle) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error)
	UsableForDriver(ctx context.Context, driverID uint) (*models.Vehicle, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	Update(ctx context.Context, b *models.Booking) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f models.TransactionFilter) ([]models.Booking, int64, error)
	FindOverlaps(ctx context.Context, q models.OverlapQuery) ([]models.Booking, error)
	OpenCountByDriver(ctx context.Context, driverIDs []uint) (map[uint]int64, error)
	CountByDriver(ctx context.Context, driverID uint) (int64, error)
	CountByVehicle(ctx context.Context, vehicleID uint) (int64, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	GetByBooking(ctx context.Context, bookingID uint) (*models.Payment, error)
	GetByBorrowRequest(ctx context.Context, requestID uint) (*models.Payment, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f *models.Feedback) error
	GetByBooking(ctx context.Context, bookingID uint) (*models.Feedback, error)
	ListByDriver(ctx context.Context, driverID uint) ([]models.Feedback, error)
	RatingsForDriver(ctx context.Context, driverID uint) ([]int, error)
}

type MaintenanceStore interface {
	Create(ctx context.Context, m *models.Maintenance) error
	GetByID(ctx context.Context, id uint) (*models.Maintenance, error)
	Update(ctx context.Context, m *models.Maintenance) error
	ListByVehicle(ctx context.Context, vehicleID uint) ([]models.Maintenance, error)
	Due(ctx context.Context, cutoff time.Time) ([]models.Maintenance, error)
}

type ToolStore interface {
	Create(ctx context.Context, t *models.Tool) error
	GetByID(ctx context.Context, id uint) (*models.Tool, error)
	Update(ctx context.Context, t *models.Tool) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f models.ToolFilter) ([]models.Tool, int64, error)
}

type BorrowRequestStore interface {
	Create(ctx context.Context, r *models.BorrowRequest) error
	GetByID(ctx context.Context, id uint) (*models.BorrowRequest, error)
	Update(ctx context.Context, r *models.BorrowRequest) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f models.TransactionFilter) ([]models.BorrowRequest, int64, error)
	FindOverlaps(ctx context.Context, toolID uint, start, end time.Time, excludeID uint) ([]models.BorrowRequest, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.BorrowRequest, error)
	CountByTool(ctx context.Context, toolID uint) (int64, error)
}

type ReviewStore interface {
	Create(ctx context.Context, r *models.Review) error
	GetByBorrowRequest(ctx context.Context, requestID uint) (*models.Review, error)
	ListByTool(ctx context.Context, toolID uint) ([]models.Review, error)
	RatingsForTool(ctx context.Context, toolID uint) ([]int, error)
	RatingsForUser(ctx context.Context, userID uint) ([]int, error)
}

// Stores groups every repository a service may need.
type Stores struct {
	Users          UserStore
	Drivers        DriverStore
	Vehicles       VehicleStore
	Bookings       BookingStore
	Payments       PaymentStore
	Feedback       FeedbackStore
	Maintenance    MaintenanceStore
	Tools          ToolStore
	BorrowRequests BorrowRequestStore
	Reviews        ReviewStore
}

// RatingCache keeps recomputed averages close to readers.
type RatingCache interface {
	SetRating(ctx context.Context, key string, avg float64, count int) error
	GetRating(ctx context.Context, key string) (avg float64, count int, ok bool, err error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
