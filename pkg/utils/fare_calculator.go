package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// FareQuote is a distance fare with its breakdown.
type FareQuote struct {
	BaseFare       decimal.Decimal `json:"baseFare"`
	DistanceFare   decimal.Decimal `json:"distanceFare"`
	BillableKm     int64           `json:"billableKm"`
	RatePerKm      decimal.Decimal `json:"ratePerKm"`
	MinimumApplied bool            `json:"minimumApplied"`
	Total          decimal.Decimal `json:"total"`
}

// CalculateDistanceFare prices a trip as base + rate × max(1, ceil(km)),
// raised to minFare when it comes out lower, rounded to 2 decimals.
func CalculateDistanceFare(distanceKm float64, ratePerKm, baseFare, minFare decimal.Decimal) FareQuote {
	km := int64(math.Ceil(distanceKm))
	if km < 1 {
		km = 1
	}

	distanceFare := ratePerKm.Mul(decimal.NewFromInt(km)).Round(2)
	total := baseFare.Add(distanceFare).Round(2)

	quote := FareQuote{
		BaseFare:     baseFare.Round(2),
		DistanceFare: distanceFare,
		BillableKm:   km,
		RatePerKm:    ratePerKm,
		Total:        total,
	}
	if total.LessThan(minFare) {
		quote.Total = minFare.Round(2)
		quote.MinimumApplied = true
	}
	return quote
}
