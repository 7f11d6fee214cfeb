package models

import (
	"github.com/shopspring/decimal"
)

type DriverStatus int16

const (
	DriverAvailable DriverStatus = iota + 1
	DriverOnTrip
	DriverOffline
)

var driverStatusLabels = map[DriverStatus]string{
	DriverAvailable: "available",
	DriverOnTrip:    "on_trip",
	DriverOffline:   "offline",
}

func (s DriverStatus) String() string {
	if l, ok := driverStatusLabels[s]; ok {
		return l
	}
	return "unknown"
}

func ParseDriverStatus(label string) (DriverStatus, bool) {
	for s, l := range driverStatusLabels {
		if l == label {
			return s, true
		}
	}
	return 0, false
}

// Driver is the person half of a fleet resource.
type Driver struct {
	Base
	UserID        uint         `json:"userId" gorm:"uniqueIndex;not null"`
	Name          string       `json:"name" gorm:"not null"`
	LicenseNumber string       `json:"licenseNumber" gorm:"uniqueIndex;not null"`
	Phone         string       `json:"phone"`
	Location      string       `json:"location"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	Status        DriverStatus `json:"-" gorm:"type:smallint;not null;default:1"`
	Rating        float64      `json:"rating" gorm:"not null;default:0"`
	TotalTrips    int          `json:"totalTrips" gorm:"not null;default:0"`
}

func (Driver) TableName() string {
	return "drivers"
}

type VehicleStatus int16

const (
	VehicleAvailable VehicleStatus = iota + 1
	VehicleInUse
	VehicleMaintenance
)

var vehicleStatusLabels = map[VehicleStatus]string{
	VehicleAvailable:   "available",
	VehicleInUse:       "in_use",
	VehicleMaintenance: "maintenance",
}

func (s VehicleStatus) String() string {
	if l, ok := vehicleStatusLabels[s]; ok {
		return l
	}
	return "unknown"
}

func ParseVehicleStatus(label string) (VehicleStatus, bool) {
	for s, l := range vehicleStatusLabels {
		if l == label {
			return s, true
		}
	}
	return 0, false
}

// Vehicle is the machine half of a fleet resource. DriverID is the driver the
// vehicle is normally paired with.
type Vehicle struct {
	Base
	RegistrationNumber string          `json:"registrationNumber" gorm:"uniqueIndex;not null"`
	Make               string          `json:"make"`
	ModelName          string          `json:"model" gorm:"column:model"`
	Type               string          `json:"type" gorm:"not null"`
	Capacity           int             `json:"capacity" gorm:"not null;default:0"`
	RatePerKm          decimal.Decimal `json:"ratePerKm" gorm:"type:numeric(12,2);not null"`
	Status             VehicleStatus   `json:"-" gorm:"type:smallint;not null;default:1"`
	DriverID           *uint           `json:"driverId"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
