package services

import (
	"context"
	"testing"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedTrip runs a booking for customer on drv to completion.
func completedTrip(t *testing.T, e *env, customer, driverActor Actor, drv *models.Driver, start int) *models.Booking {
	t.Helper()
	ctx := context.Background()
	in := bookingInput(start, start)
	in.DriverID = &drv.ID
	b, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	_, err = e.bookings.Start(ctx, driverActor, b.ID)
	require.NoError(t, err)
	km := 3.0
	b, err = e.bookings.Complete(ctx, driverActor, b.ID, CompleteInput{ActualDistanceKm: &km})
	require.NoError(t, err)
	return b
}

func TestFeedbackAveragesRatings(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	driverActor, drv, _ := e.driver("Nairobi", 0)

	for i, rating := range []int{5, 3, 4} {
		b := completedTrip(t, e, customer, driverActor, drv, i+1)
		_, err := e.feedback.Submit(ctx, customer, b.ID, rating, "")
		require.NoError(t, err)
	}

	got, _ := e.deps.Stores.Drivers.GetByID(ctx, drv.ID)
	assert.Equal(t, 4.0, got.Rating)

	sum, err := e.feedback.DriverRating(ctx, drv.ID)
	require.NoError(t, err)
	assert.Equal(t, RatingSummary{Average: 4.0, Count: 3}, sum)
	assert.Equal(t, RatingSummary{Average: 4.0, Count: 3}, e.cache.ratings[driverRatingKey(drv.ID)])

	list, err := e.feedback.ListForDriver(ctx, drv.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestFeedbackRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	customer := e.user(models.RoleCustomer)
	stranger := e.user(models.RoleCustomer)
	driverActor, drv, _ := e.driver("Nairobi", 0)

	for _, rating := range []int{0, 6} {
		_, err := e.feedback.Submit(ctx, customer, 1, rating, "")
		assert.True(t, apperrors.IsValidation(err), "rating %d", rating)
	}

	in := bookingInput(1, 1)
	in.DriverID = &drv.ID
	open, err := e.bookings.Create(ctx, customer, in)
	require.NoError(t, err)
	_, err = e.feedback.Submit(ctx, customer, open.ID, 5, "")
	assert.True(t, apperrors.IsValidation(err), "not completed")

	b := completedTrip(t, e, customer, driverActor, drv, 2)
	_, err = e.feedback.Submit(ctx, stranger, b.ID, 5, "")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = e.feedback.Submit(ctx, customer, b.ID, 5, "smooth")
	require.NoError(t, err)
	_, err = e.feedback.Submit(ctx, customer, b.ID, 4, "again")
	assert.True(t, apperrors.IsConflict(err))
}

func TestDriverRatingWithoutFeedbackIsZero(t *testing.T) {
	e := newEnv()
	_, drv, _ := e.driver("Nairobi", 0)

	sum, err := e.feedback.DriverRating(context.Background(), drv.ID)
	require.NoError(t, err)
	assert.Equal(t, RatingSummary{}, sum)

	_, err = e.feedback.DriverRating(context.Background(), 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReviewSubmitUpdatesToolAndOwner(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	owner := e.user(models.RoleOwner)
	borrower := e.user(models.RoleCustomer)
	tool := e.tool(owner, 100)

	for i, rating := range []int{5, 4} {
		r := rentTool(t, e, owner, borrower, tool, i*3, i*3+1)
		returned := day(i*3 + 1)
		_, err := e.rentals.Return(ctx, owner, r.ID, ReturnInput{ReturnedAt: &returned})
		require.NoError(t, err)

		rv, err := e.reviews.Submit(ctx, borrower, r.ID, rating, "")
		require.NoError(t, err)
		assert.Equal(t, owner.UserID, rv.RevieweeID)
	}

	got, _ := e.deps.Stores.Tools.GetByID(ctx, tool.ID)
	assert.Equal(t, 4.5, got.Rating)

	sum, err := e.reviews.ToolRating(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, RatingSummary{Average: 4.5, Count: 2}, sum)

	sum, err = e.reviews.UserRating(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)

	list, err := e.reviews.ListForTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReviewRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	owner := e.user(models.RoleOwner)
	borrower := e.user(models.RoleCustomer)
	tool := e.tool(owner, 100)

	r := rentTool(t, e, owner, borrower, tool, 0, 1)
	_, err := e.reviews.Submit(ctx, borrower, r.ID, 5, "")
	assert.True(t, apperrors.IsValidation(err), "not returned")

	returned := day(1)
	_, err = e.rentals.Return(ctx, owner, r.ID, ReturnInput{ReturnedAt: &returned})
	require.NoError(t, err)

	_, err = e.reviews.Submit(ctx, owner, r.ID, 5, "")
	assert.True(t, apperrors.IsUnauthorized(err))
	_, err = e.reviews.Submit(ctx, borrower, r.ID, 9, "")
	assert.True(t, apperrors.IsValidation(err))
	_, err = e.reviews.Submit(ctx, borrower, r.ID, 3, "")
	require.NoError(t, err)
	_, err = e.reviews.Submit(ctx, borrower, r.ID, 3, "")
	assert.True(t, apperrors.IsConflict(err))
}
