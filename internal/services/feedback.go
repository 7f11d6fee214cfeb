package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
)

// RatingSummary is an average over every rating a subject received.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type FeedbackService struct {
	d Deps
}

func NewFeedbackService(d Deps) *FeedbackService {
	return &FeedbackService{d: d}
}

// Submit records the customer's rating of a completed booking and refreshes
// the driver's average.
func (s *FeedbackService) Submit(ctx context.Context, actor Actor, bookingID uint, rating int, comment string) (*models.Feedback, error) {
	if !lifecycle.ValidRating(rating) {
		return nil, apperrors.Invalid("rating", fmt.Sprintf("must be between %d and %d", lifecycle.MinRating, lifecycle.MaxRating))
	}

	var fb *models.Feedback
	var drv *models.Driver
	var avg float64
	var count int
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		b, err := s.d.Stores.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CustomerID != actor.UserID {
			return apperrors.UnauthorizedError{Msg: "only the customer can rate this booking"}
		}
		if b.Status != lifecycle.StatusCompleted || b.DriverID == nil {
			return apperrors.Invalid("bookingId", "booking must be completed before feedback")
		}
		existing, err := optional(s.d.Stores.Feedback.GetByBooking(ctx, b.ID))
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ConflictError{Resource: "feedback", Msg: fmt.Sprintf("booking %d already has feedback", b.ID)}
		}

		fb = &models.Feedback{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			DriverID:   *b.DriverID,
			Rating:     rating,
			Comment:    strings.TrimSpace(comment),
		}
		if err := s.d.Stores.Feedback.Create(ctx, fb); err != nil {
			return err
		}

		if drv, err = s.d.Stores.Drivers.GetByID(ctx, fb.DriverID); err != nil {
			return err
		}
		avg, count, err = refreshDriverRating(ctx, s.d, drv)
		return err
	})
	if err != nil {
		return nil, err
	}

	cacheRating(ctx, s.d, driverRatingKey(drv.ID), avg, count)
	s.d.notify(ctx, Event{
		Domain:     "fleet",
		Kind:       "feedback",
		ID:         fb.ID,
		Status:     "submitted",
		Recipients: uniqueIDs(drv.UserID),
		Title:      "New rating",
		Body:       fmt.Sprintf("You received %d stars for booking #%d", rating, fb.BookingID),
		Data:       map[string]any{"bookingId": fb.BookingID, "average": avg},
	})
	return fb, nil
}

// DriverRating serves from the cache when it can.
func (s *FeedbackService) DriverRating(ctx context.Context, driverID uint) (RatingSummary, error) {
	if s.d.Cache != nil {
		avg, count, ok, err := s.d.Cache.GetRating(ctx, driverRatingKey(driverID))
		if err != nil {
			log.Printf("rating cache read %d: %v", driverID, err)
		} else if ok {
			return RatingSummary{Average: avg, Count: count}, nil
		}
	}

	if _, err := s.d.Stores.Drivers.GetByID(ctx, driverID); err != nil {
		return RatingSummary{}, err
	}
	ratings, err := s.d.Stores.Feedback.RatingsForDriver(ctx, driverID)
	if err != nil {
		return RatingSummary{}, err
	}
	sum := RatingSummary{Average: lifecycle.AverageRating(ratings), Count: len(ratings)}
	cacheRating(ctx, s.d, driverRatingKey(driverID), sum.Average, sum.Count)
	return sum, nil
}

func (s *FeedbackService) ListForDriver(ctx context.Context, driverID uint) ([]models.Feedback, error) {
	if _, err := s.d.Stores.Drivers.GetByID(ctx, driverID); err != nil {
		return nil, err
	}
	return s.d.Stores.Feedback.ListByDriver(ctx, driverID)
}

// refreshDriverRating recomputes the average and saves the driver.
func refreshDriverRating(ctx context.Context, d Deps, drv *models.Driver) (float64, int, error) {
	ratings, err := d.Stores.Feedback.RatingsForDriver(ctx, drv.ID)
	if err != nil {
		return 0, 0, err
	}
	drv.Rating = lifecycle.AverageRating(ratings)
	if err := d.Stores.Drivers.Update(ctx, drv); err != nil {
		return 0, 0, err
	}
	return drv.Rating, len(ratings), nil
}

func cacheRating(ctx context.Context, d Deps, key string, avg float64, count int) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.SetRating(ctx, key, avg, count); err != nil {
		log.Printf("rating cache write %s: %v", key, err)
	}
}

func driverRatingKey(id uint) string { return fmt.Sprintf("driver:%d", id) }
func toolRatingKey(id uint) string   { return fmt.Sprintf("tool:%d", id) }
func userRatingKey(id uint) string   { return fmt.Sprintf("user:%d", id) }
