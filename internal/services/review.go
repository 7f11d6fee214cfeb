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

type ReviewService struct {
	d Deps
}

func NewReviewService(d Deps) *ReviewService {
	return &ReviewService{d: d}
}

// Submit records the borrower's review of a returned rental. The owner is the
// reviewee and the tool's average is refreshed.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, requestID uint, rating int, comment string) (*models.Review, error) {
	if !lifecycle.ValidRating(rating) {
		return nil, apperrors.Invalid("rating", fmt.Sprintf("must be between %d and %d", lifecycle.MinRating, lifecycle.MaxRating))
	}

	var rv *models.Review
	var toolAvg, userAvg float64
	var toolCount, userCount int
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		r, err := s.d.Stores.BorrowRequests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if r.BorrowerID != actor.UserID {
			return apperrors.UnauthorizedError{Msg: "only the borrower can review this rental"}
		}
		if r.Status != lifecycle.StatusCompleted {
			return apperrors.Invalid("borrowRequestId", "tool must be returned before review")
		}
		existing, err := optional(s.d.Stores.Reviews.GetByBorrowRequest(ctx, r.ID))
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ConflictError{Resource: "review", Msg: fmt.Sprintf("borrow request %d already has a review", r.ID)}
		}

		rv = &models.Review{
			BorrowRequestID: r.ID,
			ToolID:          r.ToolID,
			ReviewerID:      r.BorrowerID,
			RevieweeID:      r.OwnerID,
			Rating:          rating,
			Comment:         strings.TrimSpace(comment),
		}
		if err := s.d.Stores.Reviews.Create(ctx, rv); err != nil {
			return err
		}

		tool, err := s.d.Stores.Tools.GetByID(ctx, r.ToolID)
		if err != nil {
			return err
		}
		ratings, err := s.d.Stores.Reviews.RatingsForTool(ctx, tool.ID)
		if err != nil {
			return err
		}
		toolAvg, toolCount = lifecycle.AverageRating(ratings), len(ratings)
		tool.Rating = toolAvg
		if err := s.d.Stores.Tools.Update(ctx, tool); err != nil {
			return err
		}

		if ratings, err = s.d.Stores.Reviews.RatingsForUser(ctx, rv.RevieweeID); err != nil {
			return err
		}
		userAvg, userCount = lifecycle.AverageRating(ratings), len(ratings)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cacheRating(ctx, s.d, toolRatingKey(rv.ToolID), toolAvg, toolCount)
	cacheRating(ctx, s.d, userRatingKey(rv.RevieweeID), userAvg, userCount)
	s.d.notify(ctx, Event{
		Domain:     "rental",
		Kind:       "review",
		ID:         rv.ID,
		Status:     "submitted",
		Recipients: uniqueIDs(rv.RevieweeID),
		Title:      "New review",
		Body:       fmt.Sprintf("Your tool received %d stars", rating),
		Data:       map[string]any{"toolId": rv.ToolID, "average": toolAvg},
	})
	return rv, nil
}

func (s *ReviewService) ToolRating(ctx context.Context, toolID uint) (RatingSummary, error) {
	return s.summary(ctx, toolRatingKey(toolID), func() ([]int, error) {
		if _, err := s.d.Stores.Tools.GetByID(ctx, toolID); err != nil {
			return nil, err
		}
		return s.d.Stores.Reviews.RatingsForTool(ctx, toolID)
	})
}

// UserRating averages the reviews a user received as an owner.
func (s *ReviewService) UserRating(ctx context.Context, userID uint) (RatingSummary, error) {
	return s.summary(ctx, userRatingKey(userID), func() ([]int, error) {
		if _, err := s.d.Stores.Users.GetByID(ctx, userID); err != nil {
			return nil, err
		}
		return s.d.Stores.Reviews.RatingsForUser(ctx, userID)
	})
}

func (s *ReviewService) ListForTool(ctx context.Context, toolID uint) ([]models.Review, error) {
	if _, err := s.d.Stores.Tools.GetByID(ctx, toolID); err != nil {
		return nil, err
	}
	return s.d.Stores.Reviews.ListByTool(ctx, toolID)
}

func (s *ReviewService) summary(ctx context.Context, key string, load func() ([]int, error)) (RatingSummary, error) {
	if s.d.Cache != nil {
		avg, count, ok, err := s.d.Cache.GetRating(ctx, key)
		if err != nil {
			log.Printf("rating cache read %s: %v", key, err)
		} else if ok {
			return RatingSummary{Average: avg, Count: count}, nil
		}
	}
	ratings, err := load()
	if err != nil {
		return RatingSummary{}, err
	}
	sum := RatingSummary{Average: lifecycle.AverageRating(ratings), Count: len(ratings)}
	cacheRating(ctx, s.d, key, sum.Average, sum.Count)
	return sum, nil
}
