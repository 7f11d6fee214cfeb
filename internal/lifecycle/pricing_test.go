package lifecycle

import (
	"testing"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(n int) time.Time {
	return time.Date(2025, 1, n, 9, 30, 0, 0, time.UTC)
}

func TestLateFine(t *testing.T) {
	rate := decimal.NewFromInt(100)

	assert.True(t, LateFine(day(10), day(13), rate).Equal(decimal.NewFromInt(300)))
	assert.True(t, LateFine(day(10), day(8), rate).IsZero())
	assert.True(t, LateFine(day(10), day(10), rate).IsZero())
	// a return late in the evening of the due day is not a late day
	assert.True(t, LateFine(day(10), day(10).Add(14*time.Hour), rate).IsZero())
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2025, 1, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 1, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
}

func TestEstimateByDays(t *testing.T) {
	rate := decimal.RequireFromString("12.50")
	start := day(1)

	assert.Equal(t, "12.50", EstimateByDays(rate, start, start).StringFixed(2))
	assert.Equal(t, "12.50", EstimateByDays(rate, start, start.Add(3*time.Hour)).StringFixed(2))
	assert.Equal(t, "25.00", EstimateByDays(rate, start, start.Add(25*time.Hour)).StringFixed(2))
	assert.Equal(t, "37.50", EstimateByDays(rate, start, start.Add(72*time.Hour)).StringFixed(2))
}

func TestBillableUnits(t *testing.T) {
	assert.Equal(t, int64(1), BillableUnits(0))
	assert.Equal(t, int64(1), BillableUnits(0.4))
	assert.Equal(t, int64(8), BillableUnits(7.2))
}

func TestCheckActualCost(t *testing.T) {
	ceiling := decimal.NewFromInt(1000)

	assert.NoError(t, CheckActualCost("actualFare", decimal.RequireFromString("0.01"), ceiling))
	assert.NoError(t, CheckActualCost("actualFare", ceiling, ceiling))
	assert.NoError(t, CheckActualCost("actualFare", decimal.NewFromInt(5000), decimal.Zero))

	for _, bad := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5), decimal.RequireFromString("1000.01")} {
		err := CheckActualCost("actualFare", bad, ceiling)
		assert.True(t, apperrors.IsValidation(err), bad.String())
	}
}
