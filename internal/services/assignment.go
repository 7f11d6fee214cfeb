package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
)

// Candidate is a driver with a usable vehicle who is free for a window.
type Candidate struct {
	Driver   models.Driver
	Vehicle  models.Vehicle
	Workload int64
}

// Move records one booking handed from an overloaded driver to another.
type Move struct {
	BookingID    uint `json:"bookingId"`
	FromDriverID uint `json:"fromDriverId"`
	ToDriverID   uint `json:"toDriverId"`
	VehicleID    uint `json:"vehicleId"`
}

type AssignmentService struct {
	d Deps
}

func NewAssignmentService(d Deps) *AssignmentService {
	return &AssignmentService{d: d}
}

// rankForBooking orders by rating desc, then workload asc, then ID asc.
func rankForBooking(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Driver.Rating != b.Driver.Rating {
			return a.Driver.Rating > b.Driver.Rating
		}
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		return a.Driver.ID < b.Driver.ID
	})
}

// rankForBalance orders by workload asc, then rating desc, then ID asc.
func rankForBalance(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		if a.Driver.Rating != b.Driver.Rating {
			return a.Driver.Rating > b.Driver.Rating
		}
		return a.Driver.ID < b.Driver.ID
	})
}

// Candidates lists available drivers whose location contains location, who
// have a usable vehicle, and who hold nothing overlapping [start, end].
func (s *AssignmentService) Candidates(ctx context.Context, location string, start, end time.Time, excludeBookingID uint) ([]Candidate, error) {
	drivers, err := s.d.Stores.Drivers.ListAvailable(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.eligible(ctx, drivers, start, end, excludeBookingID)
}

func (s *AssignmentService) eligible(ctx context.Context, drivers []models.Driver, start, end time.Time, excludeBookingID uint) ([]Candidate, error) {
	ids := make([]uint, 0, len(drivers))
	for _, drv := range drivers {
		ids = append(ids, drv.ID)
	}
	counts, err := s.d.Stores.Bookings.OpenCountByDriver(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(drivers))
	for _, drv := range drivers {
		if drv.Status != models.DriverAvailable {
			continue
		}
		veh, err := s.d.Stores.Vehicles.UsableForDriver(ctx, drv.ID)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		overlaps, err := s.d.Stores.Bookings.FindOverlaps(ctx, models.OverlapQuery{
			DriverID:  drv.ID,
			VehicleID: veh.ID,
			Start:     start,
			End:       end,
			ExcludeID: excludeBookingID,
		})
		if err != nil {
			return nil, err
		}
		if len(overlaps) > 0 {
			continue
		}
		out = append(out, Candidate{Driver: drv, Vehicle: *veh, Workload: counts[drv.ID]})
	}
	rankForBooking(out)
	return out, nil
}

// Select returns the best candidate for the window.
func (s *AssignmentService) Select(ctx context.Context, location string, start, end time.Time, excludeBookingID uint) (*Candidate, error) {
	candidates, err := s.Candidates(ctx, location, start, end, excludeBookingID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperrors.ConflictError{Resource: "booking", Msg: "no available driver for the requested window"}
	}
	return &candidates[0], nil
}

// Workload counts the driver's open bookings.
func (s *AssignmentService) Workload(ctx context.Context, driverID uint) (int64, error) {
	if _, err := s.d.Stores.Drivers.GetByID(ctx, driverID); err != nil {
		return 0, err
	}
	counts, err := s.d.Stores.Bookings.OpenCountByDriver(ctx, []uint{driverID})
	if err != nil {
		return 0, err
	}
	return counts[driverID], nil
}

// Rebalance moves assigned, not yet started bookings away from drivers above
// the configured workload to the least loaded eligible driver. Bookings that
// no one else can take stay where they are.
func (s *AssignmentService) Rebalance(ctx context.Context, actor Actor) ([]Move, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	limit := s.d.Pricing.MaxDriverWorkload

	var moves []Move
	var moved []models.Booking
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		moves, moved = nil, nil
		drivers, err := s.d.Stores.Drivers.List(ctx)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(drivers))
		for _, drv := range drivers {
			ids = append(ids, drv.ID)
		}
		counts, err := s.d.Stores.Bookings.OpenCountByDriver(ctx, ids)
		if err != nil {
			return err
		}

		for _, from := range drivers {
			if counts[from.ID] <= limit {
				continue
			}
			assigned, _, err := s.d.Stores.Bookings.List(ctx, models.TransactionFilter{
				ResourceID: from.ID,
				Statuses:   []lifecycle.Status{lifecycle.StatusAssigned},
				Limit:      100,
			})
			if err != nil {
				return err
			}
			for i := range assigned {
				if counts[from.ID] <= limit {
					break
				}
				b := assigned[i]
				target, err := s.balanceTarget(ctx, drivers, counts, limit, b)
				if err != nil {
					return err
				}
				if target == nil {
					continue
				}

				toID, vehID := target.Driver.ID, target.Vehicle.ID
				now := s.d.now()
				b.DriverID = &toID
				b.VehicleID = &vehID
				b.AssignedAt = &now
				b.EstimatedFare = s.d.fleetFare(b.DistanceKm, target.Vehicle.RatePerKm).Total
				if err := s.d.Stores.Bookings.Update(ctx, &b); err != nil {
					return err
				}
				counts[from.ID]--
				counts[toID]++
				moves = append(moves, Move{BookingID: b.ID, FromDriverID: from.ID, ToDriverID: toID, VehicleID: vehID})
				moved = append(moved, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, b := range moved {
		s.d.notify(ctx, Event{
			Domain:     "fleet",
			Kind:       "booking",
			ID:         b.ID,
			Status:     "reassigned",
			Recipients: uniqueIDs(b.CustomerID),
			Title:      "Driver changed",
			Body:       fmt.Sprintf("Booking #%d has a new driver", b.ID),
			Data:       map[string]any{"fromDriverId": moves[i].FromDriverID, "toDriverId": moves[i].ToDriverID},
		})
	}
	return moves, nil
}

func (s *AssignmentService) balanceTarget(ctx context.Context, drivers []models.Driver, counts map[uint]int64, limit int64, b models.Booking) (*Candidate, error) {
	var pool []models.Driver
	for _, drv := range drivers {
		if b.DriverID != nil && drv.ID == *b.DriverID {
			continue
		}
		if counts[drv.ID] >= limit {
			continue
		}
		pool = append(pool, drv)
	}
	candidates, err := s.eligible(ctx, pool, b.ScheduledStart, b.ScheduledEnd, b.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// eligible reads counts from the store; the moves made so far in this
	// pass live in counts.
	for i := range candidates {
		candidates[i].Workload = counts[candidates[i].Driver.ID]
	}
	rankForBalance(candidates)
	return &candidates[0], nil
}
