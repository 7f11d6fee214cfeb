package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/pkg/utils"
	"github.com/shopspring/decimal"
)

type CreateBookingInput struct {
	PickupLocation  string
	DropoffLocation string
	PickupLat       float64
	PickupLng       float64
	DropoffLat      float64
	DropoffLng      float64
	DistanceKm      float64
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	DriverID        *uint
	VehicleID       *uint
	AutoAssign      bool
	// DriverLocation narrows auto-assignment to drivers whose location
	// contains it.
	DriverLocation string
}

type CompleteInput struct {
	ActualDistanceKm *float64
	ActualFare       *decimal.Decimal
}

// TransitionInput carries what any target status may need.
type TransitionInput struct {
	Target           lifecycle.Status
	DriverID         *uint
	VehicleID        *uint
	DriverLocation   string
	ActualDistanceKm *float64
	ActualFare       *decimal.Decimal
	Reason           string
}

type BookingService struct {
	d      Deps
	assign *AssignmentService
}

func NewBookingService(d Deps, assign *AssignmentService) *BookingService {
	return &BookingService{d: d, assign: assign}
}

func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, error) {
	var v apperrors.ValidationError
	if strings.TrimSpace(in.PickupLocation) == "" {
		v.Add("pickupLocation", "is required")
	}
	if strings.TrimSpace(in.DropoffLocation) == "" {
		v.Add("dropoffLocation", "is required")
	}
	if in.DistanceKm < 0 {
		v.Add("distanceKm", "must not be negative")
	}
	lifecycle.CheckWindow(&v, "scheduledStart", "scheduledEnd", in.ScheduledStart, in.ScheduledEnd)
	if in.VehicleID != nil && in.DriverID == nil {
		v.Add("driverId", "is required when vehicleId is set")
	}
	if in.AutoAssign && in.DriverID != nil {
		v.Add("autoAssign", "cannot be combined with driverId")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	customer, err := s.d.Stores.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(customer); err != nil {
		return nil, err
	}

	rate := s.d.Pricing.DefaultRatePerKm
	if in.VehicleID != nil {
		veh, err := s.d.Stores.Vehicles.GetByID(ctx, *in.VehicleID)
		if err != nil {
			return nil, err
		}
		rate = veh.RatePerKm
	}
	distance := in.DistanceKm
	if distance == 0 {
		distance = utils.RoadDistance(in.PickupLat, in.PickupLng, in.DropoffLat, in.DropoffLng)
	}
	quote := s.d.fleetFare(distance, rate)

	var b *models.Booking
	var drv *models.Driver
	err = s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		b = &models.Booking{
			CustomerID:      customer.ID,
			PickupLocation:  strings.TrimSpace(in.PickupLocation),
			DropoffLocation: strings.TrimSpace(in.DropoffLocation),
			DistanceKm:      distance,
			ScheduledStart:  in.ScheduledStart.UTC(),
			ScheduledEnd:    in.ScheduledEnd.UTC(),
			Status:          lifecycle.StatusPending,
			EstimatedFare:   quote.Total,
			RequestedAt:     s.d.now(),
		}
		if err := s.d.Stores.Bookings.Create(ctx, b); err != nil {
			return err
		}

		switch {
		case in.DriverID != nil:
			drv, err = s.assignLocked(ctx, b, *in.DriverID, in.VehicleID)
			return err
		case in.AutoAssign:
			cand, err := s.assign.Select(ctx, in.DriverLocation, b.ScheduledStart, b.ScheduledEnd, b.ID)
			if err != nil {
				return err
			}
			vehID := cand.Vehicle.ID
			drv, err = s.assignLocked(ctx, b, cand.Driver.ID, &vehID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.d.notify(ctx, bookingEvent(b, drv, "Booking received"))
	return b, nil
}

// assignLocked attaches a driver and vehicle to a pending booking and prices
// the estimate at the vehicle's rate. It must run inside the serializable
// transaction so the overlap check holds until commit.
func (s *BookingService) assignLocked(ctx context.Context, b *models.Booking, driverID uint, vehicleID *uint) (*models.Driver, error) {
	if err := lifecycle.Transition("booking", lifecycle.Fleet, b.Status, lifecycle.StatusAssigned); err != nil {
		return nil, err
	}

	drv, err := s.d.Stores.Drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if drv.Status == models.DriverOffline {
		return nil, apperrors.ConflictError{Resource: "driver", Msg: fmt.Sprintf("driver %d is offline", drv.ID)}
	}

	var veh *models.Vehicle
	if vehicleID != nil {
		veh, err = s.d.Stores.Vehicles.GetByID(ctx, *vehicleID)
		if err != nil {
			return nil, err
		}
		if veh.Status == models.VehicleMaintenance {
			return nil, apperrors.ConflictError{Resource: "vehicle", Msg: fmt.Sprintf("vehicle %d is under maintenance", veh.ID)}
		}
	} else {
		veh, err = s.d.Stores.Vehicles.UsableForDriver(ctx, drv.ID)
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ConflictError{Resource: "driver", Msg: fmt.Sprintf("driver %d has no usable vehicle", drv.ID)}
		}
		if err != nil {
			return nil, err
		}
	}

	overlaps, err := s.d.Stores.Bookings.FindOverlaps(ctx, models.OverlapQuery{
		DriverID:  drv.ID,
		VehicleID: veh.ID,
		Start:     b.ScheduledStart,
		End:       b.ScheduledEnd,
		ExcludeID: b.ID,
	})
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return nil, apperrors.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("driver or vehicle already committed to booking %d for an overlapping window", overlaps[0].ID),
		}
	}

	now := s.d.now()
	vehID := veh.ID
	b.DriverID = &drv.ID
	b.VehicleID = &vehID
	b.Status = lifecycle.StatusAssigned
	b.AssignedAt = &now
	b.EstimatedFare = s.d.fleetFare(b.DistanceKm, veh.RatePerKm).Total
	if err := s.d.Stores.Bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return drv, nil
}

// Assign attaches a specific driver, and optionally a specific vehicle, to a
// pending booking.
func (s *BookingService) Assign(ctx context.Context, actor Actor, id, driverID uint, vehicleID *uint) (*models.Booking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var b *models.Booking
	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.d.Stores.Bookings.GetByID(ctx, id); err != nil {
			return err
		}
		drv, err = s.assignLocked(ctx, b, driverID, vehicleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, bookingEvent(b, drv, "Driver assigned"))
	return b, nil
}

// AutoAssign picks the best ranked free driver for a pending booking.
func (s *BookingService) AutoAssign(ctx context.Context, actor Actor, id uint, driverLocation string) (*models.Booking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var b *models.Booking
	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.d.Stores.Bookings.GetByID(ctx, id); err != nil {
			return err
		}
		if err := lifecycle.Transition("booking", lifecycle.Fleet, b.Status, lifecycle.StatusAssigned); err != nil {
			return err
		}
		cand, err := s.assign.Select(ctx, driverLocation, b.ScheduledStart, b.ScheduledEnd, b.ID)
		if err != nil {
			return err
		}
		vehID := cand.Vehicle.ID
		drv, err = s.assignLocked(ctx, b, cand.Driver.ID, &vehID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, bookingEvent(b, drv, "Driver assigned"))
	return b, nil
}

// Start hands the booking over to its driver.
func (s *BookingService) Start(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	var b *models.Booking
	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.d.Stores.Bookings.GetByID(ctx, id); err != nil {
			return err
		}
		if err := lifecycle.Transition("booking", lifecycle.Fleet, b.Status, lifecycle.StatusInProgress); err != nil {
			return err
		}
		if drv, err = s.assignedDriver(ctx, actor, b); err != nil {
			return err
		}

		now := s.d.now()
		b.Status = lifecycle.StatusInProgress
		b.StartedAt = &now
		if err := s.d.Stores.Bookings.Update(ctx, b); err != nil {
			return err
		}

		drv.Status = models.DriverOnTrip
		if err := s.d.Stores.Drivers.Update(ctx, drv); err != nil {
			return err
		}
		return s.setVehicleStatus(ctx, b.VehicleID, models.VehicleInUse)
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, bookingEvent(b, drv, "Trip started"))
	return b, nil
}

// Complete closes a trip. The fare is recomputed from the actual distance at
// the vehicle's rate; a client supplied fare overrides it only within
// (0, FARE_CEILING].
func (s *BookingService) Complete(ctx context.Context, actor Actor, id uint, in CompleteInput) (*models.Booking, error) {
	ceiling := s.d.Pricing.FareCeiling

	var v apperrors.ValidationError
	if in.ActualDistanceKm == nil && in.ActualFare == nil {
		v.Add("actualFare", "actualFare or actualDistanceKm is required")
	}
	if in.ActualDistanceKm != nil && *in.ActualDistanceKm < 0 {
		v.Add("actualDistanceKm", "must not be negative")
	}
	if in.ActualFare != nil {
		v.Merge(lifecycle.CheckActualCost("actualFare", *in.ActualFare, ceiling))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var b *models.Booking
	var drv *models.Driver
	var avg float64
	var count int
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.d.Stores.Bookings.GetByID(ctx, id); err != nil {
			return err
		}
		if err := lifecycle.Transition("booking", lifecycle.Fleet, b.Status, lifecycle.StatusCompleted); err != nil {
			return err
		}
		if drv, err = s.assignedDriver(ctx, actor, b); err != nil {
			return err
		}

		if in.ActualDistanceKm != nil {
			b.DistanceKm = *in.ActualDistanceKm
		}
		fare, err := s.actualFare(ctx, b, in)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckActualCost("actualFare", fare, ceiling); err != nil {
			return err
		}

		now := s.d.now()
		b.ActualFare = decimal.NewNullDecimal(fare)
		b.Status = lifecycle.StatusCompleted
		b.CompletedAt = &now
		if err := s.d.Stores.Bookings.Update(ctx, b); err != nil {
			return err
		}

		if drv.Status == models.DriverOnTrip {
			drv.Status = models.DriverAvailable
		}
		drv.TotalTrips++
		if avg, count, err = refreshDriverRating(ctx, s.d, drv); err != nil {
			return err
		}
		return s.setVehicleStatus(ctx, b.VehicleID, models.VehicleAvailable)
	})
	if err != nil {
		return nil, err
	}

	cacheRating(ctx, s.d, driverRatingKey(drv.ID), avg, count)
	s.d.notify(ctx, bookingEvent(b, drv, "Trip completed"))
	return b, nil
}

func (s *BookingService) actualFare(ctx context.Context, b *models.Booking, in CompleteInput) (decimal.Decimal, error) {
	if in.ActualFare != nil {
		return in.ActualFare.Round(2), nil
	}
	rate := s.d.Pricing.DefaultRatePerKm
	if b.VehicleID != nil {
		veh, err := s.d.Stores.Vehicles.GetByID(ctx, *b.VehicleID)
		if err != nil {
			return decimal.Zero, err
		}
		rate = veh.RatePerKm
	}
	return s.d.fleetFare(b.DistanceKm, rate).Total, nil
}

// Cancel is the customer's (or an admin's) way out before the trip starts.
// Terminal status frees the driver and vehicle for other windows.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id uint, reason string) (*models.Booking, error) {
	return s.close(ctx, actor, id, lifecycle.StatusCancelled, reason)
}

// Reject is the assigned driver's (or an admin's) refusal.
func (s *BookingService) Reject(ctx context.Context, actor Actor, id uint, reason string) (*models.Booking, error) {
	return s.close(ctx, actor, id, lifecycle.StatusRejected, reason)
}

func (s *BookingService) close(ctx context.Context, actor Actor, id uint, to lifecycle.Status, reason string) (*models.Booking, error) {
	var b *models.Booking
	var drv *models.Driver
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.d.Stores.Bookings.GetByID(ctx, id); err != nil {
			return err
		}
		if err := lifecycle.Transition("booking", lifecycle.Fleet, b.Status, to); err != nil {
			return err
		}
		if b.DriverID != nil {
			if drv, err = s.d.Stores.Drivers.GetByID(ctx, *b.DriverID); err != nil {
				return err
			}
		}

		switch to {
		case lifecycle.StatusCancelled:
			if !actor.IsAdmin() && actor.UserID != b.CustomerID {
				return apperrors.UnauthorizedError{Msg: "only the customer can cancel this booking"}
			}
		case lifecycle.StatusRejected:
			if !actor.IsAdmin() && (drv == nil || drv.UserID != actor.UserID) {
				return apperrors.UnauthorizedError{Msg: "only the assigned driver can reject this booking"}
			}
		}

		paid, err := completedPayment(s.d.Stores.Payments.GetByBooking(ctx, b.ID))
		if err != nil {
			return err
		}
		if paid {
			return apperrors.InvalidTransitionError{
				Resource: "booking",
				From:     b.Status.Label(lifecycle.Fleet),
				To:       to.Label(lifecycle.Fleet),
				Reason:   "payment already completed",
			}
		}

		now := s.d.now()
		b.Status = to
		b.CancelledAt = &now
		b.CancellationReason = strings.TrimSpace(reason)
		return s.d.Stores.Bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	title := "Booking cancelled"
	if to == lifecycle.StatusRejected {
		title = "Booking rejected"
	}
	s.d.notify(ctx, bookingEvent(b, drv, title))
	return b, nil
}

// Transition moves a booking to target, dispatching to the operation that
// owns that edge.
func (s *BookingService) Transition(ctx context.Context, actor Actor, id uint, in TransitionInput) (*models.Booking, error) {
	switch in.Target {
	case lifecycle.StatusAssigned:
		if in.DriverID == nil {
			return s.AutoAssign(ctx, actor, id, in.DriverLocation)
		}
		return s.Assign(ctx, actor, id, *in.DriverID, in.VehicleID)
	case lifecycle.StatusInProgress:
		return s.Start(ctx, actor, id)
	case lifecycle.StatusCompleted:
		return s.Complete(ctx, actor, id, CompleteInput{ActualDistanceKm: in.ActualDistanceKm, ActualFare: in.ActualFare})
	case lifecycle.StatusCancelled:
		return s.Cancel(ctx, actor, id, in.Reason)
	case lifecycle.StatusRejected:
		return s.Reject(ctx, actor, id, in.Reason)
	}

	if !in.Target.Valid() {
		return nil, apperrors.Invalid("status", "unknown status")
	}
	b, err := s.d.Stores.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, lifecycle.Transition("booking", lifecycle.Fleet, b.Status, in.Target)
}

func (s *BookingService) Get(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	b, err := s.d.Stores.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetDetails assembles the booking with the rows it references.
func (s *BookingService) GetDetails(ctx context.Context, actor Actor, id uint) (*models.BookingDetails, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := &models.BookingDetails{Booking: *b}

	if d.Customer, err = optional(s.d.Stores.Users.GetByID(ctx, b.CustomerID)); err != nil {
		return nil, err
	}
	if b.DriverID != nil {
		if d.Driver, err = optional(s.d.Stores.Drivers.GetByID(ctx, *b.DriverID)); err != nil {
			return nil, err
		}
	}
	if b.VehicleID != nil {
		if d.Vehicle, err = optional(s.d.Stores.Vehicles.GetByID(ctx, *b.VehicleID)); err != nil {
			return nil, err
		}
	}
	if d.Payment, err = optional(s.d.Stores.Payments.GetByBooking(ctx, b.ID)); err != nil {
		return nil, err
	}
	if d.Feedback, err = optional(s.d.Stores.Feedback.GetByBooking(ctx, b.ID)); err != nil {
		return nil, err
	}
	return d, nil
}

// List scopes non-admin callers to their own bookings: customers see what
// they booked, drivers what they drive.
func (s *BookingService) List(ctx context.Context, actor Actor, f models.TransactionFilter) ([]models.Booking, int64, error) {
	if err := checkFilter(f); err != nil {
		return nil, 0, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDriver:
		drv, err := s.d.Stores.Drivers.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, err
		}
		f.ResourceID = drv.ID
	default:
		f.RequesterID = actor.UserID
	}
	return s.d.Stores.Bookings.List(ctx, f)
}

// Delete removes a booking with its payment and feedback.
func (s *BookingService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.d.Stores.Bookings.Delete(ctx, id)
}

func (s *BookingService) canView(ctx context.Context, actor Actor, b *models.Booking) error {
	if actor.IsAdmin() || actor.UserID == b.CustomerID {
		return nil
	}
	if b.DriverID != nil {
		drv, err := s.d.Stores.Drivers.GetByID(ctx, *b.DriverID)
		if err == nil && drv.UserID == actor.UserID {
			return nil
		}
	}
	return apperrors.UnauthorizedError{Msg: "not your booking"}
}

// assignedDriver loads the booking's driver and checks the actor is that
// driver or an admin.
func (s *BookingService) assignedDriver(ctx context.Context, actor Actor, b *models.Booking) (*models.Driver, error) {
	if b.DriverID == nil {
		return nil, apperrors.Invalid("driverId", "booking has no driver")
	}
	drv, err := s.d.Stores.Drivers.GetByID(ctx, *b.DriverID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && drv.UserID != actor.UserID {
		return nil, apperrors.UnauthorizedError{Msg: "only the assigned driver can do this"}
	}
	return drv, nil
}

func (s *BookingService) setVehicleStatus(ctx context.Context, vehicleID *uint, status models.VehicleStatus) error {
	if vehicleID == nil {
		return nil
	}
	veh, err := s.d.Stores.Vehicles.GetByID(ctx, *vehicleID)
	if err != nil {
		return err
	}
	if veh.Status == models.VehicleMaintenance || veh.Status == status {
		return nil
	}
	veh.Status = status
	return s.d.Stores.Vehicles.Update(ctx, veh)
}

func checkFilter(f models.TransactionFilter) error {
	var v apperrors.ValidationError
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		v.Add("to", "must not be before from")
	}
	if f.MinCost.Valid && f.MinCost.Decimal.IsNegative() {
		v.Add("minCost", "must not be negative")
	}
	if f.MinCost.Valid && f.MaxCost.Valid && f.MinCost.Decimal.GreaterThan(f.MaxCost.Decimal) {
		v.Add("maxCost", "must not be below minCost")
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			v.Add("status", "unknown status")
			break
		}
	}
	return v.Err()
}

func bookingEvent(b *models.Booking, drv *models.Driver, title string) Event {
	recipients := []uint{b.CustomerID}
	if drv != nil {
		recipients = append(recipients, drv.UserID)
	}
	status := b.Status.Label(lifecycle.Fleet)
	return Event{
		Domain:     "fleet",
		Kind:       "booking",
		ID:         b.ID,
		Status:     status,
		Recipients: uniqueIDs(recipients...),
		Title:      title,
		Body:       fmt.Sprintf("Booking #%d is now %s", b.ID, status),
		Data:       map[string]any{"fare": b.Fare().StringFixed(2)},
	}
}
