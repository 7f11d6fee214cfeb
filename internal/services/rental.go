package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
)

type CreateBorrowInput struct {
	ToolID    uint
	StartDate time.Time
	EndDate   time.Time
	Message   string
}

type ReturnInput struct {
	ReturnedAt *time.Time
	ActualCost *decimal.Decimal
}

type RentalTransitionInput struct {
	Target     lifecycle.Status
	Reason     string
	ReturnedAt *time.Time
	ActualCost *decimal.Decimal
}

// OverdueRequest is an active rental past its end date with the fine it has
// accrued so far.
type OverdueRequest struct {
	Request     models.BorrowRequest `json:"request"`
	DaysLate    int                  `json:"daysLate"`
	AccruedFine decimal.Decimal      `json:"accruedFine"`
}

type RentalService struct {
	d Deps
}

func NewRentalService(d Deps) *RentalService {
	return &RentalService{d: d}
}

func (s *RentalService) CreateRequest(ctx context.Context, actor Actor, in CreateBorrowInput) (*models.BorrowRequest, error) {
	var v apperrors.ValidationError
	if in.ToolID == 0 {
		v.Add("toolId", "is required")
	}
	lifecycle.CheckWindow(&v, "startDate", "endDate", in.StartDate, in.EndDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	borrower, err := s.d.Stores.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(borrower); err != nil {
		return nil, err
	}

	var r *models.BorrowRequest
	err = s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		tool, err := s.d.Stores.Tools.GetByID(ctx, in.ToolID)
		if err != nil {
			return err
		}
		if tool.OwnerID == borrower.ID {
			return apperrors.Invalid("toolId", "cannot borrow your own tool")
		}
		if tool.Status == models.ToolUnavailable {
			return apperrors.ConflictError{Resource: "tool", Msg: fmt.Sprintf("tool %d is not available", tool.ID)}
		}
		start, end := in.StartDate.UTC(), in.EndDate.UTC()
		if err := s.checkOverlap(ctx, tool.ID, start, end, 0); err != nil {
			return err
		}

		r = &models.BorrowRequest{
			ToolID:        tool.ID,
			BorrowerID:    borrower.ID,
			OwnerID:       tool.OwnerID,
			StartDate:     start,
			EndDate:       end,
			Status:        lifecycle.StatusPending,
			EstimatedCost: lifecycle.EstimateByDays(tool.DailyRate, start, end),
			Message:       strings.TrimSpace(in.Message),
			RequestedAt:   s.d.now(),
		}
		return s.d.Stores.BorrowRequests.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.d.notify(ctx, rentalEvent(r, "New borrow request"))
	return r, nil
}

// Approve commits the tool to the window. Overlap is checked again under the
// serializable transaction.
func (s *RentalService) Approve(ctx context.Context, actor Actor, id uint) (*models.BorrowRequest, error) {
	var r *models.BorrowRequest
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if r, err = s.d.Stores.BorrowRequests.GetByID(ctx, id); err != nil {
			return err
		}
		if !actor.IsAdmin() && r.OwnerID != actor.UserID {
			return apperrors.UnauthorizedError{Msg: "only the tool owner can approve this request"}
		}
		if err := lifecycle.Transition("borrow request", lifecycle.Rental, r.Status, lifecycle.StatusAssigned); err != nil {
			return err
		}
		tool, err := s.d.Stores.Tools.GetByID(ctx, r.ToolID)
		if err != nil {
			return err
		}
		if tool.Status == models.ToolUnavailable {
			return apperrors.ConflictError{Resource: "tool", Msg: fmt.Sprintf("tool %d is not available", tool.ID)}
		}
		if err := s.checkOverlap(ctx, r.ToolID, r.StartDate, r.EndDate, r.ID); err != nil {
			return err
		}

		now := s.d.now()
		r.Status = lifecycle.StatusAssigned
		r.ApprovedAt = &now
		return s.d.Stores.BorrowRequests.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, rentalEvent(r, "Borrow request approved"))
	return r, nil
}

func (s *RentalService) Reject(ctx context.Context, actor Actor, id uint, reason string) (*models.BorrowRequest, error) {
	return s.close(ctx, actor, id, lifecycle.StatusRejected, reason)
}

func (s *RentalService) Cancel(ctx context.Context, actor Actor, id uint, reason string) (*models.BorrowRequest, error) {
	return s.close(ctx, actor, id, lifecycle.StatusCancelled, reason)
}

func (s *RentalService) close(ctx context.Context, actor Actor, id uint, to lifecycle.Status, reason string) (*models.BorrowRequest, error) {
	var r *models.BorrowRequest
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if r, err = s.d.Stores.BorrowRequests.GetByID(ctx, id); err != nil {
			return err
		}
		switch to {
		case lifecycle.StatusRejected:
			if !actor.IsAdmin() && r.OwnerID != actor.UserID {
				return apperrors.UnauthorizedError{Msg: "only the tool owner can reject this request"}
			}
		case lifecycle.StatusCancelled:
			if !actor.IsAdmin() && r.BorrowerID != actor.UserID {
				return apperrors.UnauthorizedError{Msg: "only the borrower can cancel this request"}
			}
		}
		if err := lifecycle.Transition("borrow request", lifecycle.Rental, r.Status, to); err != nil {
			return err
		}

		paid, err := completedPayment(s.d.Stores.Payments.GetByBorrowRequest(ctx, r.ID))
		if err != nil {
			return err
		}
		if paid {
			return apperrors.InvalidTransitionError{
				Resource: "borrow request",
				From:     r.Status.Label(lifecycle.Rental),
				To:       to.Label(lifecycle.Rental),
				Reason:   "payment already completed",
			}
		}

		now := s.d.now()
		r.Status = to
		r.CancelledAt = &now
		r.RejectionReason = strings.TrimSpace(reason)
		return s.d.Stores.BorrowRequests.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	title := "Borrow request cancelled"
	if to == lifecycle.StatusRejected {
		title = "Borrow request rejected"
	}
	s.d.notify(ctx, rentalEvent(r, title))
	return r, nil
}

// Pickup hands the tool to the borrower.
func (s *RentalService) Pickup(ctx context.Context, actor Actor, id uint) (*models.BorrowRequest, error) {
	var r *models.BorrowRequest
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if r, err = s.party(ctx, actor, id); err != nil {
			return err
		}
		if err := lifecycle.Transition("borrow request", lifecycle.Rental, r.Status, lifecycle.StatusInProgress); err != nil {
			return err
		}
		tool, err := s.d.Stores.Tools.GetByID(ctx, r.ToolID)
		if err != nil {
			return err
		}
		if tool.Status == models.ToolBorrowed {
			return apperrors.ConflictError{Resource: "tool", Msg: fmt.Sprintf("tool %d has not been returned yet", tool.ID)}
		}

		now := s.d.now()
		r.Status = lifecycle.StatusInProgress
		r.PickedUpAt = &now
		if err := s.d.Stores.BorrowRequests.Update(ctx, r); err != nil {
			return err
		}
		tool.Status = models.ToolBorrowed
		return s.d.Stores.Tools.Update(ctx, tool)
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, rentalEvent(r, "Tool picked up"))
	return r, nil
}

// Return closes an active rental. The cost is the estimate plus the late
// fine. Only the owner or an admin may backdate the return or override the
// cost, which must stay within (0, FARE_CEILING].
func (s *RentalService) Return(ctx context.Context, actor Actor, id uint, in ReturnInput) (*models.BorrowRequest, error) {
	ceiling := s.d.Pricing.FareCeiling
	if in.ActualCost != nil {
		if err := lifecycle.CheckActualCost("actualCost", *in.ActualCost, ceiling); err != nil {
			return nil, err
		}
	}

	var r *models.BorrowRequest
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if r, err = s.party(ctx, actor, id); err != nil {
			return err
		}
		if (in.ReturnedAt != nil || in.ActualCost != nil) && !actor.IsAdmin() && actor.UserID != r.OwnerID {
			return apperrors.UnauthorizedError{Msg: "only the tool owner can set the return time or cost"}
		}
		if err := lifecycle.Transition("borrow request", lifecycle.Rental, r.Status, lifecycle.StatusCompleted); err != nil {
			return err
		}
		returned := s.d.now()
		if in.ReturnedAt != nil {
			returned = in.ReturnedAt.UTC()
		}
		if r.PickedUpAt != nil && returned.Before(*r.PickedUpAt) {
			return apperrors.Invalid("returnedAt", "must not be before pickup")
		}
		tool, err := s.d.Stores.Tools.GetByID(ctx, r.ToolID)
		if err != nil {
			return err
		}

		r.LateFee = lifecycle.LateFine(r.EndDate, returned, tool.DailyRate)
		cost := r.EstimatedCost.Add(r.LateFee)
		if in.ActualCost != nil {
			cost = in.ActualCost.Round(2)
		}
		if err := lifecycle.CheckActualCost("actualCost", cost, ceiling); err != nil {
			return err
		}

		r.ActualCost = decimal.NewNullDecimal(cost)
		r.ActualReturnDate = &returned
		r.Status = lifecycle.StatusCompleted
		if err := s.d.Stores.BorrowRequests.Update(ctx, r); err != nil {
			return err
		}
		if tool.Status == models.ToolBorrowed {
			tool.Status = models.ToolAvailable
			return s.d.Stores.Tools.Update(ctx, tool)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, rentalEvent(r, "Tool returned"))
	return r, nil
}

// Overdue lists active rentals past their end date. Non-admins see the ones
// they borrow or own.
func (s *RentalService) Overdue(ctx context.Context, actor Actor) ([]OverdueRequest, error) {
	now := s.d.now()
	reqs, err := s.d.Stores.BorrowRequests.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	rates := map[uint]decimal.Decimal{}
	out := make([]OverdueRequest, 0, len(reqs))
	for _, r := range reqs {
		if !actor.IsAdmin() && r.BorrowerID != actor.UserID && r.OwnerID != actor.UserID {
			continue
		}
		if !lifecycle.IsOverdue(r.Status, r.EndDate, now) {
			continue
		}
		rate, ok := rates[r.ToolID]
		if !ok {
			tool, err := s.d.Stores.Tools.GetByID(ctx, r.ToolID)
			if err != nil {
				return nil, err
			}
			rate = tool.DailyRate
			rates[r.ToolID] = rate
		}
		out = append(out, OverdueRequest{
			Request:     r,
			DaysLate:    lifecycle.DaysBetween(r.EndDate, now),
			AccruedFine: lifecycle.LateFine(r.EndDate, now, rate),
		})
	}
	return out, nil
}

func (s *RentalService) Transition(ctx context.Context, actor Actor, id uint, in RentalTransitionInput) (*models.BorrowRequest, error) {
	switch in.Target {
	case lifecycle.StatusAssigned:
		return s.Approve(ctx, actor, id)
	case lifecycle.StatusInProgress:
		return s.Pickup(ctx, actor, id)
	case lifecycle.StatusCompleted:
		return s.Return(ctx, actor, id, ReturnInput{ReturnedAt: in.ReturnedAt, ActualCost: in.ActualCost})
	case lifecycle.StatusCancelled:
		return s.Cancel(ctx, actor, id, in.Reason)
	case lifecycle.StatusRejected:
		return s.Reject(ctx, actor, id, in.Reason)
	}

	if !in.Target.Valid() {
		return nil, apperrors.Invalid("status", "unknown status")
	}
	r, err := s.d.Stores.BorrowRequests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, lifecycle.Transition("borrow request", lifecycle.Rental, r.Status, in.Target)
}

func (s *RentalService) Get(ctx context.Context, actor Actor, id uint) (*models.BorrowRequest, error) {
	return s.party(ctx, actor, id)
}

func (s *RentalService) GetDetails(ctx context.Context, actor Actor, id uint) (*models.BorrowRequestDetails, error) {
	r, err := s.party(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := &models.BorrowRequestDetails{Request: *r}
	if d.Tool, err = optional(s.d.Stores.Tools.GetByID(ctx, r.ToolID)); err != nil {
		return nil, err
	}
	if d.Borrower, err = optional(s.d.Stores.Users.GetByID(ctx, r.BorrowerID)); err != nil {
		return nil, err
	}
	if d.Owner, err = optional(s.d.Stores.Users.GetByID(ctx, r.OwnerID)); err != nil {
		return nil, err
	}
	if d.Payment, err = optional(s.d.Stores.Payments.GetByBorrowRequest(ctx, r.ID)); err != nil {
		return nil, err
	}
	if d.Review, err = optional(s.d.Stores.Reviews.GetByBorrowRequest(ctx, r.ID)); err != nil {
		return nil, err
	}
	return d, nil
}

// List shows non-admins the requests they made, or the ones on their tools
// when OwnerID is their own id.
func (s *RentalService) List(ctx context.Context, actor Actor, f models.TransactionFilter) ([]models.BorrowRequest, int64, error) {
	if err := checkFilter(f); err != nil {
		return nil, 0, err
	}
	if !actor.IsAdmin() && f.OwnerID != actor.UserID {
		f.OwnerID = 0
		f.RequesterID = actor.UserID
	}
	return s.d.Stores.BorrowRequests.List(ctx, f)
}

// Delete removes a request together with its payment and review.
func (s *RentalService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.d.Stores.BorrowRequests.Delete(ctx, id)
}

func (s *RentalService) checkOverlap(ctx context.Context, toolID uint, start, end time.Time, excludeID uint) error {
	overlaps, err := s.d.Stores.BorrowRequests.FindOverlaps(ctx, toolID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(overlaps) > 0 {
		return apperrors.ConflictError{
			Resource: "borrow request",
			Msg:      fmt.Sprintf("tool %d is already requested by borrow request %d for an overlapping window", toolID, overlaps[0].ID),
		}
	}
	return nil
}

// party loads a request the actor takes part in.
func (s *RentalService) party(ctx context.Context, actor Actor, id uint) (*models.BorrowRequest, error) {
	r, err := s.d.Stores.BorrowRequests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.BorrowerID != actor.UserID && r.OwnerID != actor.UserID {
		return nil, apperrors.UnauthorizedError{Msg: "not your borrow request"}
	}
	return r, nil
}

func rentalEvent(r *models.BorrowRequest, title string) Event {
	status := r.Status.Label(lifecycle.Rental)
	return Event{
		Domain:     "rental",
		Kind:       "borrow_request",
		ID:         r.ID,
		Status:     status,
		Recipients: uniqueIDs(r.BorrowerID, r.OwnerID),
		Title:      title,
		Body:       fmt.Sprintf("Borrow request #%d is now %s", r.ID, status),
		Data:       map[string]any{"toolId": r.ToolID, "cost": r.Cost().StringFixed(2)},
	}
}
