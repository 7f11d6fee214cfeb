package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
)

type RegisterDriverInput struct {
	UserID        uint
	Name          string
	LicenseNumber string
	Phone         string
	Location      string
	Latitude      float64
	Longitude     float64
}

type VehicleInput struct {
	RegistrationNumber string
	Make               string
	Model              string
	Type               string
	Capacity           int
	RatePerKm          decimal.Decimal
	DriverID           *uint
}

// FleetService manages the driver and vehicle registry.
type FleetService struct {
	d Deps
}

func NewFleetService(d Deps) *FleetService {
	return &FleetService{d: d}
}

// RegisterDriver creates the driver profile of a user. A user registers
// themself; an admin may register anyone.
func (s *FleetService) RegisterDriver(ctx context.Context, actor Actor, in RegisterDriverInput) (*models.Driver, error) {
	if in.UserID == 0 {
		in.UserID = actor.UserID
	}
	if !actor.IsAdmin() && in.UserID != actor.UserID {
		return nil, apperrors.UnauthorizedError{Msg: "cannot register another user as driver"}
	}
	var v apperrors.ValidationError
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required")
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		v.Add("licenseNumber", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		u, err := s.d.Stores.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if err := requireActive(u); err != nil {
			return err
		}
		drv = &models.Driver{
			UserID:        u.ID,
			Name:          strings.TrimSpace(in.Name),
			LicenseNumber: strings.ToUpper(strings.TrimSpace(in.LicenseNumber)),
			Phone:         in.Phone,
			Location:      in.Location,
			Latitude:      in.Latitude,
			Longitude:     in.Longitude,
			Status:        models.DriverAvailable,
		}
		if err := s.d.Stores.Drivers.Create(ctx, drv); err != nil {
			return err
		}
		if u.Role == models.RoleCustomer {
			u.Role = models.RoleDriver
			return s.d.Stores.Users.Update(ctx, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drv, nil
}

// SetDriverStatus switches availability. on_trip is owned by the booking
// lifecycle and cannot be set or left by hand.
func (s *FleetService) SetDriverStatus(ctx context.Context, actor Actor, id uint, status models.DriverStatus) (*models.Driver, error) {
	if status != models.DriverAvailable && status != models.DriverOffline {
		return nil, apperrors.Invalid("status", "must be available or offline")
	}
	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if drv, err = s.ownDriver(ctx, actor, id); err != nil {
			return err
		}
		if drv.Status == models.DriverOnTrip {
			return apperrors.ConflictError{Resource: "driver", Msg: fmt.Sprintf("driver %d is on a trip", drv.ID)}
		}
		drv.Status = status
		return s.d.Stores.Drivers.Update(ctx, drv)
	})
	if err != nil {
		return nil, err
	}
	return drv, nil
}

func (s *FleetService) UpdateLocation(ctx context.Context, actor Actor, id uint, location string, lat, lng float64) (*models.Driver, error) {
	var v apperrors.ValidationError
	if lat < -90 || lat > 90 {
		v.Add("latitude", "must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		v.Add("longitude", "must be between -180 and 180")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	drv, err := s.ownDriver(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if location != "" {
		drv.Location = strings.TrimSpace(location)
	}
	drv.Latitude, drv.Longitude = lat, lng
	if err := s.d.Stores.Drivers.Update(ctx, drv); err != nil {
		return nil, err
	}
	return drv, nil
}

func (s *FleetService) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	return s.d.Stores.Drivers.GetByID(ctx, id)
}

func (s *FleetService) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.d.Stores.Drivers.List(ctx)
}

func (s *FleetService) ListAvailableDrivers(ctx context.Context, location string) ([]models.Driver, error) {
	return s.d.Stores.Drivers.ListAvailable(ctx, location)
}

// DeleteDriver refuses while any booking references the driver.
func (s *FleetService) DeleteDriver(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		n, err := s.d.Stores.Bookings.CountByDriver(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperrors.ConflictError{Resource: "driver", Msg: fmt.Sprintf("driver %d is still referenced by %d bookings", id, n)}
		}
		return s.d.Stores.Drivers.Delete(ctx, id)
	})
}

func (s *FleetService) AddVehicle(ctx context.Context, actor Actor, in VehicleInput) (*models.Vehicle, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkVehicle(in); err != nil {
		return nil, err
	}
	if in.DriverID != nil {
		if _, err := s.d.Stores.Drivers.GetByID(ctx, *in.DriverID); err != nil {
			return nil, err
		}
	}
	veh := &models.Vehicle{Status: models.VehicleAvailable}
	applyVehicle(veh, in)
	if err := s.d.Stores.Vehicles.Create(ctx, veh); err != nil {
		return nil, err
	}
	return veh, nil
}

func (s *FleetService) UpdateVehicle(ctx context.Context, actor Actor, id uint, in VehicleInput) (*models.Vehicle, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkVehicle(in); err != nil {
		return nil, err
	}
	veh, err := s.d.Stores.Vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DriverID != nil {
		if _, err := s.d.Stores.Drivers.GetByID(ctx, *in.DriverID); err != nil {
			return nil, err
		}
	}
	applyVehicle(veh, in)
	if err := s.d.Stores.Vehicles.Update(ctx, veh); err != nil {
		return nil, err
	}
	return veh, nil
}

// SetVehicleStatus is the manual override. in_use is owned by trips and
// maintenance by maintenance records.
func (s *FleetService) SetVehicleStatus(ctx context.Context, actor Actor, id uint, status models.VehicleStatus) (*models.Vehicle, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != models.VehicleAvailable && status != models.VehicleMaintenance {
		return nil, apperrors.Invalid("status", "must be available or maintenance")
	}
	veh, err := s.d.Stores.Vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if veh.Status == models.VehicleInUse {
		return nil, apperrors.ConflictError{Resource: "vehicle", Msg: fmt.Sprintf("vehicle %d is on a trip", veh.ID)}
	}
	veh.Status = status
	if err := s.d.Stores.Vehicles.Update(ctx, veh); err != nil {
		return nil, err
	}
	return veh, nil
}

func (s *FleetService) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	return s.d.Stores.Vehicles.GetByID(ctx, id)
}

func (s *FleetService) ListVehicles(ctx context.Context, status models.VehicleStatus) ([]models.Vehicle, error) {
	return s.d.Stores.Vehicles.List(ctx, status)
}

// DeleteVehicle refuses while any booking references the vehicle; its
// maintenance records go with it.
func (s *FleetService) DeleteVehicle(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		n, err := s.d.Stores.Bookings.CountByVehicle(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperrors.ConflictError{Resource: "vehicle", Msg: fmt.Sprintf("vehicle %d is still referenced by %d bookings", id, n)}
		}
		return s.d.Stores.Vehicles.Delete(ctx, id)
	})
}

// ownDriver loads a driver the actor may act for.
func (s *FleetService) ownDriver(ctx context.Context, actor Actor, id uint) (*models.Driver, error) {
	drv, err := s.d.Stores.Drivers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && drv.UserID != actor.UserID {
		return nil, apperrors.UnauthorizedError{Msg: "not your driver profile"}
	}
	return drv, nil
}

func checkVehicle(in VehicleInput) error {
	var v apperrors.ValidationError
	if strings.TrimSpace(in.RegistrationNumber) == "" {
		v.Add("registrationNumber", "is required")
	}
	if strings.TrimSpace(in.Type) == "" {
		v.Add("type", "is required")
	}
	if in.Capacity < 0 {
		v.Add("capacity", "must not be negative")
	}
	if !in.RatePerKm.IsPositive() {
		v.Add("ratePerKm", "must be greater than zero")
	}
	return v.Err()
}

func applyVehicle(veh *models.Vehicle, in VehicleInput) {
	veh.RegistrationNumber = strings.ToUpper(strings.TrimSpace(in.RegistrationNumber))
	veh.Make = in.Make
	veh.ModelName = in.Model
	veh.Type = strings.TrimSpace(in.Type)
	veh.Capacity = in.Capacity
	veh.RatePerKm = in.RatePerKm.Round(2)
	veh.DriverID = in.DriverID
}
