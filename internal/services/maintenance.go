package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
)

type ScheduleMaintenanceInput struct {
	VehicleID    uint
	Description  string
	ScheduledFor time.Time
	Notes        string
}

type MaintenanceService struct {
	d Deps
}

func NewMaintenanceService(d Deps) *MaintenanceService {
	return &MaintenanceService{d: d}
}

func (s *MaintenanceService) Schedule(ctx context.Context, actor Actor, in ScheduleMaintenanceInput) (*models.Maintenance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var v apperrors.ValidationError
	if strings.TrimSpace(in.Description) == "" {
		v.Add("description", "is required")
	}
	if in.ScheduledFor.IsZero() {
		v.Add("scheduledFor", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.d.Stores.Vehicles.GetByID(ctx, in.VehicleID); err != nil {
		return nil, err
	}

	m := &models.Maintenance{
		VehicleID:    in.VehicleID,
		Description:  strings.TrimSpace(in.Description),
		ScheduledFor: in.ScheduledFor.UTC(),
		Status:       models.MaintenanceScheduled,
		Notes:        in.Notes,
	}
	if err := s.d.Stores.Maintenance.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Start takes the vehicle out of service. A vehicle on a trip cannot go in.
func (s *MaintenanceService) Start(ctx context.Context, actor Actor, id uint) (*models.Maintenance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var m *models.Maintenance
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if m, err = s.d.Stores.Maintenance.GetByID(ctx, id); err != nil {
			return err
		}
		if m.Status != models.MaintenanceScheduled {
			return maintenanceTransition(m.Status, models.MaintenanceInProgress)
		}
		veh, err := s.d.Stores.Vehicles.GetByID(ctx, m.VehicleID)
		if err != nil {
			return err
		}
		if veh.Status == models.VehicleInUse {
			return apperrors.ConflictError{Resource: "vehicle", Msg: fmt.Sprintf("vehicle %d is on a trip", veh.ID)}
		}

		now := s.d.now()
		m.Status = models.MaintenanceInProgress
		m.StartedAt = &now
		if err := s.d.Stores.Maintenance.Update(ctx, m); err != nil {
			return err
		}
		veh.Status = models.VehicleMaintenance
		return s.d.Stores.Vehicles.Update(ctx, veh)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Complete records the cost and returns the vehicle to service.
func (s *MaintenanceService) Complete(ctx context.Context, actor Actor, id uint, cost decimal.Decimal, notes string) (*models.Maintenance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if cost.IsNegative() {
		return nil, apperrors.Invalid("cost", "must not be negative")
	}
	var m *models.Maintenance
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if m, err = s.d.Stores.Maintenance.GetByID(ctx, id); err != nil {
			return err
		}
		if m.Status != models.MaintenanceInProgress {
			return maintenanceTransition(m.Status, models.MaintenanceCompleted)
		}

		now := s.d.now()
		m.Status = models.MaintenanceCompleted
		m.CompletedAt = &now
		m.Cost = cost.Round(2)
		if notes != "" {
			m.Notes = notes
		}
		if err := s.d.Stores.Maintenance.Update(ctx, m); err != nil {
			return err
		}
		return s.release(ctx, m.VehicleID)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MaintenanceService) Cancel(ctx context.Context, actor Actor, id uint) (*models.Maintenance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var m *models.Maintenance
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if m, err = s.d.Stores.Maintenance.GetByID(ctx, id); err != nil {
			return err
		}
		if m.Status != models.MaintenanceScheduled && m.Status != models.MaintenanceInProgress {
			return maintenanceTransition(m.Status, models.MaintenanceCancelled)
		}
		wasStarted := m.Status == models.MaintenanceInProgress
		m.Status = models.MaintenanceCancelled
		if err := s.d.Stores.Maintenance.Update(ctx, m); err != nil {
			return err
		}
		if wasStarted {
			return s.release(ctx, m.VehicleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Due lists scheduled work falling within the next window.
func (s *MaintenanceService) Due(ctx context.Context, within time.Duration) ([]models.Maintenance, error) {
	if within < 0 {
		return nil, apperrors.Invalid("within", "must not be negative")
	}
	return s.d.Stores.Maintenance.Due(ctx, s.d.now().Add(within))
}

func (s *MaintenanceService) ListByVehicle(ctx context.Context, vehicleID uint) ([]models.Maintenance, error) {
	if _, err := s.d.Stores.Vehicles.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.d.Stores.Maintenance.ListByVehicle(ctx, vehicleID)
}

func (s *MaintenanceService) release(ctx context.Context, vehicleID uint) error {
	veh, err := s.d.Stores.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if veh.Status != models.VehicleMaintenance {
		return nil
	}
	veh.Status = models.VehicleAvailable
	return s.d.Stores.Vehicles.Update(ctx, veh)
}

func maintenanceTransition(from, to models.MaintenanceStatus) error {
	return apperrors.InvalidTransitionError{Resource: "maintenance", From: from.String(), To: to.String()}
}
