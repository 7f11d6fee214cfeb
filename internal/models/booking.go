package models

import (
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// Booking is a fleet transaction. DriverID and VehicleID are set on
// assignment and are RESTRICT foreign keys.
type Booking struct {
	Base
	CustomerID         uint                `json:"customerId" gorm:"not null;index"`
	DriverID           *uint               `json:"driverId" gorm:"index"`
	VehicleID          *uint               `json:"vehicleId" gorm:"index"`
	PickupLocation     string              `json:"pickupLocation" gorm:"not null"`
	DropoffLocation    string              `json:"dropoffLocation" gorm:"not null"`
	DistanceKm         float64             `json:"distanceKm" gorm:"not null;default:0"`
	ScheduledStart     time.Time           `json:"scheduledStart" gorm:"not null"`
	ScheduledEnd       time.Time           `json:"scheduledEnd" gorm:"not null"`
	Status             lifecycle.Status    `json:"-" gorm:"type:smallint;not null;default:1;index"`
	EstimatedFare      decimal.Decimal     `json:"estimatedFare" gorm:"type:numeric(12,2);not null"`
	ActualFare         decimal.NullDecimal `json:"actualFare" gorm:"type:numeric(12,2)"`
	RequestedAt        time.Time           `json:"requestedAt" gorm:"not null"`
	AssignedAt         *time.Time          `json:"assignedAt"`
	StartedAt          *time.Time          `json:"startedAt"`
	CompletedAt        *time.Time          `json:"completedAt"`
	CancelledAt        *time.Time          `json:"cancelledAt"`
	CancellationReason string              `json:"cancellationReason"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Fare is what the booking costs now: the actual fare once known.
func (b Booking) Fare() decimal.Decimal {
	if b.ActualFare.Valid {
		return b.ActualFare.Decimal
	}
	return b.EstimatedFare
}

type Feedback struct {
	Base
	BookingID  uint   `json:"bookingId" gorm:"uniqueIndex;not null"`
	CustomerID uint   `json:"customerId" gorm:"not null"`
	DriverID   uint   `json:"driverId" gorm:"not null;index"`
	Rating     int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment    string `json:"comment"`
}

func (Feedback) TableName() string {
	return "feedback"
}

type MaintenanceStatus int16

const (
	MaintenanceScheduled MaintenanceStatus = iota + 1
	MaintenanceInProgress
	MaintenanceCompleted
	MaintenanceCancelled
)

var maintenanceStatusLabels = map[MaintenanceStatus]string{
	MaintenanceScheduled:  "scheduled",
	MaintenanceInProgress: "in_progress",
	MaintenanceCompleted:  "completed",
	MaintenanceCancelled:  "cancelled",
}

func (s MaintenanceStatus) String() string {
	if l, ok := maintenanceStatusLabels[s]; ok {
		return l
	}
	return "unknown"
}

// Maintenance is a service record on a vehicle with its own small lifecycle.
type Maintenance struct {
	Base
	VehicleID    uint              `json:"vehicleId" gorm:"not null;index"`
	Description  string            `json:"description" gorm:"not null"`
	ScheduledFor time.Time         `json:"scheduledFor" gorm:"not null"`
	StartedAt    *time.Time        `json:"startedAt"`
	CompletedAt  *time.Time        `json:"completedAt"`
	Cost         decimal.Decimal   `json:"cost" gorm:"type:numeric(12,2);not null;default:0"`
	Status       MaintenanceStatus `json:"-" gorm:"type:smallint;not null;default:1;index"`
	Notes        string            `json:"notes"`
}

func (Maintenance) TableName() string {
	return "maintenance_records"
}
