package lifecycle

import (
	"math"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// BillableDays is max(1, ceil((end-start)/24h)).
func BillableDays(start, end time.Time) int64 {
	days := int64(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// BillableUnits is max(1, ceil(units)).
func BillableUnits(units float64) int64 {
	n := int64(math.Ceil(units))
	if n < 1 {
		return 1
	}
	return n
}

// EstimateByDays prices a rental window at rate per started day.
func EstimateByDays(dailyRate decimal.Decimal, start, end time.Time) decimal.Decimal {
	return dailyRate.Mul(decimal.NewFromInt(BillableDays(start, end))).Round(2)
}

// LateFine is max(0, daysBetween(expected, actual)) × dailyRate.
func LateFine(expected, actual time.Time, dailyRate decimal.Decimal) decimal.Decimal {
	late := DaysBetween(expected, actual)
	if late <= 0 {
		return decimal.Zero
	}
	return dailyRate.Mul(decimal.NewFromInt(int64(late))).Round(2)
}

// CheckActualCost bounds an actual fare or cost: strictly positive and, when
// ceiling is positive, not above it.
func CheckActualCost(field string, cost, ceiling decimal.Decimal) error {
	if !cost.IsPositive() {
		return apperrors.Invalid(field, "must be greater than zero")
	}
	if ceiling.IsPositive() && cost.GreaterThan(ceiling) {
		return apperrors.Invalid(field, "must not exceed "+ceiling.StringFixed(2))
	}
	return nil
}
