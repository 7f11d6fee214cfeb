package services

import (
	"context"
	"sync"
	"testing"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingInput(start, end int) CreateBookingInput {
	return CreateBookingInput{
		PickupLocation:  "Westlands",
		DropoffLocation: "CBD",
		DistanceKm:      4.2,
		ScheduledStart:  day(start),
		ScheduledEnd:    day(end),
	}
}

func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	driverActor, drv, veh := e.driver("Nairobi", 4.5)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAssigned, b.Status)
	assert.Equal(t, veh.ID, *b.VehicleID)
	assert.Equal(t, "500.00", b.EstimatedFare.StringFixed(2))

	b, err = e.bookings.Start(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInProgress, b.Status)
	gotDrv, _ := e.deps.Stores.Drivers.GetByID(ctx, drv.ID)
	assert.Equal(t, models.DriverOnTrip, gotDrv.Status)
	gotVeh, _ := e.deps.Stores.Vehicles.GetByID(ctx, veh.ID)
	assert.Equal(t, models.VehicleInUse, gotVeh.Status)

	km := 12.3
	b, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualDistanceKm: &km})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, b.Status)
	assert.Equal(t, "1300.00", b.Fare().StringFixed(2))

	gotDrv, _ = e.deps.Stores.Drivers.GetByID(ctx, drv.ID)
	assert.Equal(t, models.DriverAvailable, gotDrv.Status)
	assert.Equal(t, 1, gotDrv.TotalTrips)
	gotVeh, _ = e.deps.Stores.Vehicles.GetByID(ctx, veh.ID)
	assert.Equal(t, models.VehicleAvailable, gotVeh.Status)

	_, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualDistanceKm: &km})
	assert.True(t, apperrors.IsInvalidTransition(err))

	assert.Equal(t, []string{"booking.assigned", "booking.in_progress", "booking.completed"}, e.events.types())
}

func TestBookingCreateValidation(t *testing.T) {
	e := newEnv()
	customer := e.user(models.RoleCustomer)

	in := bookingInput(3, 1)
	in.PickupLocation = " "
	in.DistanceKm = -1
	_, err := e.bookings.Create(context.Background(), customer, in)

	var v apperrors.ValidationError
	require.ErrorAs(t, err, &v)
	fields := map[string]bool{}
	for _, f := range v.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["pickupLocation"])
	assert.True(t, fields["distanceKm"])
	assert.True(t, fields["scheduledEnd"])
	assert.Empty(t, e.db.bookings)
}

func TestBookingBlockedCustomerCannotCreate(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	u, _ := e.deps.Stores.Users.GetByID(ctx, customer.UserID)
	u.IsActive = false
	require.NoError(t, e.deps.Stores.Users.Update(ctx, u))

	_, err := e.bookings.Create(ctx, customer, bookingInput(1, 2))
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestBookingOverlapConflict(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 3)
	in.DriverID = &drv.ID
	_, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)

	// touching windows overlap
	in = bookingInput(3, 4)
	in.DriverID = &drv.ID
	_, err = e.bookings.Create(ctx, customer, in)
	assert.True(t, apperrors.IsConflict(err))
	assert.Len(t, e.db.bookings, 1, "failed create must not leave a pending booking")

	in = bookingInput(4, 5)
	in.DriverID = &drv.ID
	_, err = e.bookings.Create(ctx, customer, in)
	assert.NoError(t, err)
}

func TestBookingCancelledWindowIsFree(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	_, err = e.bookings.Cancel(ctx, customer, b.ID, "plans changed")
	require.NoError(t, err)

	_, err = e.bookings.Create(ctx, customer, in)
	assert.NoError(t, err)
}

func TestConcurrentBookingNeverDoubleBooks(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	_, drv, _ := e.driver("Nairobi", 4)
	customers := make([]Actor, 8)
	for i := range customers {
		customers[i] = e.user(models.RoleCustomer)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	for _, c := range customers {
		wg.Add(1)
		go func(c Actor) {
			defer wg.Done()
			in := bookingInput(1, 2)
			in.DriverID = &drv.ID
			_, err := e.bookings.Create(ctx, c, in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperrors.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, len(customers)-1, conflicts)
	held, _ := e.deps.Stores.Bookings.FindOverlaps(ctx, models.OverlapQuery{DriverID: drv.ID, Start: day(1), End: day(2)})
	assert.Len(t, held, 1)
}

func TestBookingAutoAssignPicksBestRated(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	e.driver("Nairobi West", 3.9)
	_, best, _ := e.driver("nairobi east", 4.8)
	e.driver("Mombasa", 5)

	in := bookingInput(1, 2)
	in.AutoAssign = true
	in.DriverLocation = "NAIROBI"
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	assert.Equal(t, best.ID, *b.DriverID)
}

func TestBookingCompleteFareBounds(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	driverActor, drv, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	_, err = e.bookings.Start(ctx, driverActor, b.ID)
	require.NoError(t, err)

	_, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{})
	assert.True(t, apperrors.IsValidation(err))

	zero := decimal.Zero
	_, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualFare: &zero})
	assert.True(t, apperrors.IsValidation(err))

	huge := decimal.NewFromInt(100001)
	_, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualFare: &huge})
	assert.True(t, apperrors.IsValidation(err))

	ok := decimal.RequireFromString("750.456")
	b, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualFare: &ok})
	require.NoError(t, err)
	assert.Equal(t, "750.46", b.Fare().StringFixed(2))
}

func TestBookingOnlyAssignedDriverStarts(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, _ := e.driver("Nairobi", 4)
	other, _, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)

	_, err = e.bookings.Start(ctx, other, b.ID)
	assert.True(t, apperrors.IsUnauthorized(err))
	_, err = e.bookings.Start(ctx, customer, b.ID)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestBookingCancelBlockedByCompletedPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)

	_, err = e.payments.Process(ctx, customer, ProcessPaymentInput{BookingID: &b.ID, Method: models.MethodCard})
	require.NoError(t, err)

	_, err = e.bookings.Cancel(ctx, customer, b.ID, "")
	var it apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, "payment already completed", it.Reason)

	got, _ := e.deps.Stores.Bookings.GetByID(ctx, b.ID)
	assert.Equal(t, lifecycle.StatusAssigned, got.Status)
}

func TestBookingTerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	b, err := e.bookings.Create(ctx, customer, bookingInput(1, 2))
	require.NoError(t, err)

	_, err = e.bookings.Cancel(ctx, customer, b.ID, "")
	require.NoError(t, err)

	_, err = e.bookings.Cancel(ctx, customer, b.ID, "")
	assert.True(t, apperrors.IsInvalidTransition(err))
	_, err = e.bookings.Transition(ctx, admin, b.ID, TransitionInput{Target: lifecycle.StatusPending})
	assert.True(t, apperrors.IsInvalidTransition(err))
	_, err = e.bookings.Transition(ctx, admin, b.ID, TransitionInput{Target: lifecycle.Status(42)})
	assert.True(t, apperrors.IsValidation(err))
}

func TestBookingDeleteCascadesAndRestricts(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, veh := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	_, err = e.payments.Process(ctx, customer, ProcessPaymentInput{BookingID: &b.ID, Method: models.MethodCash})
	require.NoError(t, err)

	assert.True(t, apperrors.IsConflict(e.fleet.DeleteDriver(ctx, admin, drv.ID)))
	assert.True(t, apperrors.IsConflict(e.fleet.DeleteVehicle(ctx, admin, veh.ID)))

	assert.True(t, apperrors.IsUnauthorized(e.bookings.Delete(ctx, customer, b.ID)))
	require.NoError(t, e.bookings.Delete(ctx, admin, b.ID))
	assert.Empty(t, e.db.payments)

	assert.NoError(t, e.fleet.DeleteVehicle(ctx, admin, veh.ID))
	assert.NoError(t, e.fleet.DeleteDriver(ctx, admin, drv.ID))
}

func TestBookingListScopesToCaller(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	alice := e.user(models.RoleCustomer)
	bob := e.user(models.RoleCustomer)
	driverActor, drv, _ := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	_, err := e.bookings.Create(ctx, alice, in)
	require.NoError(t, err)
	_, err = e.bookings.Create(ctx, bob, bookingInput(1, 2))
	require.NoError(t, err)

	list, n, err := e.bookings.List(ctx, alice, models.TransactionFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, alice.UserID, list[0].CustomerID)

	list, _, err = e.bookings.List(ctx, driverActor, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, n, err = e.bookings.List(ctx, admin, models.TransactionFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, _, err = e.bookings.List(ctx, admin, models.TransactionFilter{From: day(3), To: day(1)})
	assert.True(t, apperrors.IsValidation(err))
}

func TestBookingDetailsComposesRows(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	_, drv, veh := e.driver("Nairobi", 4)

	in := bookingInput(1, 2)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)

	d, err := e.bookings.GetDetails(ctx, customer, b.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Customer)
	require.NotNil(t, d.Driver)
	require.NotNil(t, d.Vehicle)
	assert.Equal(t, customer.UserID, d.Customer.ID)
	assert.Equal(t, veh.ID, d.Vehicle.ID)
	assert.Nil(t, d.Payment)
	assert.Nil(t, d.Feedback)

	stranger := e.user(models.RoleCustomer)
	_, err = e.bookings.GetDetails(ctx, stranger, b.ID)
	assert.True(t, apperrors.IsUnauthorized(err))
}
