// Package services holds the fleet and rental workflows. Every state change
// that commits a resource runs inside a serializable transaction; events go
// out only after commit.
package services

import (
	"context"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/config"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/pkg/utils"
	"github.com/shopspring/decimal"
)

type Deps struct {
	Stores   Stores
	Tx       TxRunner
	Notifier Notifier
	Cache    RatingCache
	Pricing  config.Pricing
	Now      func() time.Time
}

// fleetFare prices km at rate with the configured base and minimum fares.
func (d Deps) fleetFare(km float64, rate decimal.Decimal) utils.FareQuote {
	return utils.CalculateDistanceFare(km, rate, d.Pricing.FleetBaseFare, d.Pricing.FleetMinFare)
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) notify(ctx context.Context, events ...Event) {
	n := d.Notifier
	if n == nil {
		n = nopNotifier{}
	}
	for _, e := range events {
		if e.At.IsZero() {
			e.At = d.now()
		}
		_ = n.Notify(ctx, e)
	}
}

// completedPayment reports whether a lookup found a completed payment.
func completedPayment(p *models.Payment, err error) (bool, error) {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return p.Status == models.PaymentCompleted, nil
}

func requireActive(u *models.User) error {
	if !u.IsActive {
		return apperrors.UnauthorizedError{Msg: "account is blocked"}
	}
	return nil
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return apperrors.UnauthorizedError{Msg: "admin role required"}
	}
	return nil
}

// optional turns a NotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
