package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessPaymentInput targets exactly one booking or one borrow request.
type ProcessPaymentInput struct {
	BookingID       *uint
	BorrowRequestID *uint
	Method          models.PaymentMethod
	Amount          *decimal.Decimal
}

type PaymentService struct {
	d Deps
}

func NewPaymentService(d Deps) *PaymentService {
	return &PaymentService{d: d}
}

// payable is the part of a booking or borrow request a payment cares about.
type payable struct {
	kind        string
	domain      lifecycle.Domain
	id          uint
	payerID     uint
	payeeID     uint
	status      lifecycle.Status
	amount      decimal.Decimal
	description string
	lines       []ReceiptLine
}

func (s *PaymentService) Process(ctx context.Context, actor Actor, in ProcessPaymentInput) (*models.Payment, error) {
	var v apperrors.ValidationError
	if (in.BookingID == nil) == (in.BorrowRequestID == nil) {
		v.Add("bookingId", "exactly one of bookingId and borrowRequestId is required")
	}
	if !in.Method.Valid() {
		v.Add("method", "must be one of cash, card, mobile_money")
	}
	if in.Amount != nil {
		v.Merge(lifecycle.CheckActualCost("amount", *in.Amount, s.d.Pricing.FareCeiling))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var p *models.Payment
	var target *payable
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if target, err = s.load(ctx, in.BookingID, in.BorrowRequestID); err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != target.payerID {
			return apperrors.UnauthorizedError{Msg: "only the requester can pay for this " + target.kind}
		}
		if target.status == lifecycle.StatusCancelled || target.status == lifecycle.StatusRejected {
			return apperrors.ConflictError{Resource: "payment", Msg: fmt.Sprintf("%s %d is %s", target.kind, target.id, target.status.Label(target.domain))}
		}

		existing, err := optional(s.existing(ctx, in.BookingID, in.BorrowRequestID))
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != models.PaymentFailed {
			return apperrors.ConflictError{Resource: "payment", Msg: fmt.Sprintf("%s %d already has a %s payment", target.kind, target.id, existing.Status)}
		}

		// the computed fare or cost is what gets billed; only admins settle a
		// different amount
		amount := target.amount
		if in.Amount != nil {
			if !actor.IsAdmin() && !in.Amount.Round(2).Equal(target.amount) {
				return apperrors.Invalid("amount", "must equal the amount due, "+target.amount.StringFixed(2))
			}
			amount = in.Amount.Round(2)
		}
		if err := lifecycle.CheckActualCost("amount", amount, s.d.Pricing.FareCeiling); err != nil {
			return err
		}

		now := s.d.now()
		p = existing
		if p == nil {
			p = &models.Payment{BookingID: in.BookingID, BorrowRequestID: in.BorrowRequestID}
		}
		p.PayerID = target.payerID
		p.Amount = amount
		p.Method = in.Method
		p.Status = models.PaymentCompleted
		p.Reference = "PAY-" + strings.ToUpper(uuid.NewString())
		p.PaidAt = &now
		if existing != nil {
			return s.d.Stores.Payments.Update(ctx, p)
		}
		return s.d.Stores.Payments.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.d.notify(ctx, paymentEvent(p, target, "Payment received"))
	return p, nil
}

// Refund reverses a completed payment.
func (s *PaymentService) Refund(ctx context.Context, actor Actor, id uint) (*models.Payment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var p *models.Payment
	var target *payable
	err := s.d.Tx.Serializable(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.d.Stores.Payments.GetByID(ctx, id); err != nil {
			return err
		}
		if p.Status != models.PaymentCompleted {
			return apperrors.InvalidTransitionError{Resource: "payment", From: p.Status.String(), To: models.PaymentRefunded.String()}
		}
		if target, err = s.load(ctx, p.BookingID, p.BorrowRequestID); err != nil {
			return err
		}
		now := s.d.now()
		p.Status = models.PaymentRefunded
		p.RefundedAt = &now
		return s.d.Stores.Payments.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.d.notify(ctx, paymentEvent(p, target, "Payment refunded"))
	return p, nil
}

func (s *PaymentService) Get(ctx context.Context, actor Actor, id uint) (*models.Payment, error) {
	p, err := s.d.Stores.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && p.PayerID != actor.UserID {
		target, err := s.load(ctx, p.BookingID, p.BorrowRequestID)
		if err != nil {
			return nil, err
		}
		if target.payeeID != actor.UserID {
			return nil, apperrors.UnauthorizedError{Msg: "not your payment"}
		}
	}
	return p, nil
}

// Receipt renders the payment as a PDF.
func (s *PaymentService) Receipt(ctx context.Context, actor Actor, id uint) ([]byte, string, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if p.Status != models.PaymentCompleted && p.Status != models.PaymentRefunded {
		return nil, "", apperrors.Invalid("paymentId", "payment has no receipt")
	}
	target, err := s.load(ctx, p.BookingID, p.BorrowRequestID)
	if err != nil {
		return nil, "", err
	}
	data := ReceiptData{Payment: *p, Description: target.description, Lines: target.lines, IssuedAt: s.d.now()}
	if payer, err := optional(s.d.Stores.Users.GetByID(ctx, p.PayerID)); err != nil {
		return nil, "", err
	} else if payer != nil {
		data.PayerName, data.PayerEmail = payer.Name, payer.Email
	}
	return BuildReceiptPDF(data)
}

func (s *PaymentService) existing(ctx context.Context, bookingID, requestID *uint) (*models.Payment, error) {
	if bookingID != nil {
		return s.d.Stores.Payments.GetByBooking(ctx, *bookingID)
	}
	return s.d.Stores.Payments.GetByBorrowRequest(ctx, *requestID)
}

func (s *PaymentService) load(ctx context.Context, bookingID, requestID *uint) (*payable, error) {
	if bookingID != nil {
		b, err := s.d.Stores.Bookings.GetByID(ctx, *bookingID)
		if err != nil {
			return nil, err
		}
		t := &payable{
			kind:        "booking",
			domain:      lifecycle.Fleet,
			id:          b.ID,
			payerID:     b.CustomerID,
			status:      b.Status,
			amount:      b.Fare(),
			description: fmt.Sprintf("Booking #%d: %s to %s", b.ID, b.PickupLocation, b.DropoffLocation),
			lines:       []ReceiptLine{{Label: fmt.Sprintf("Trip fare (%.2f km)", b.DistanceKm), Amount: b.Fare()}},
		}
		if b.DriverID != nil {
			if drv, err := optional(s.d.Stores.Drivers.GetByID(ctx, *b.DriverID)); err != nil {
				return nil, err
			} else if drv != nil {
				t.payeeID = drv.UserID
			}
		}
		return t, nil
	}
	if requestID == nil {
		return nil, apperrors.Invalid("borrowRequestId", "is required")
	}

	r, err := s.d.Stores.BorrowRequests.GetByID(ctx, *requestID)
	if err != nil {
		return nil, err
	}
	lines := []ReceiptLine{{Label: "Rental", Amount: r.EstimatedCost}}
	if r.LateFee.IsPositive() {
		lines = append(lines, ReceiptLine{Label: "Late return fine", Amount: r.LateFee})
	}
	return &payable{
		kind:        "borrow request",
		domain:      lifecycle.Rental,
		id:          r.ID,
		payerID:     r.BorrowerID,
		payeeID:     r.OwnerID,
		status:      r.Status,
		amount:      r.Cost(),
		description: fmt.Sprintf("Borrow request #%d for tool #%d, %s to %s", r.ID, r.ToolID, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02")),
		lines:       lines,
	}, nil
}

func paymentEvent(p *models.Payment, t *payable, title string) Event {
	domain := "fleet"
	if t.domain == lifecycle.Rental {
		domain = "rental"
	}
	return Event{
		Domain:     domain,
		Kind:       "payment",
		ID:         p.ID,
		Status:     p.Status.String(),
		Recipients: uniqueIDs(p.PayerID, t.payeeID),
		Title:      title,
		Body:       fmt.Sprintf("%s for %s #%d", p.Amount.StringFixed(2), t.kind, t.id),
		Data:       map[string]any{"reference": p.Reference, "amount": p.Amount.StringFixed(2)},
	}
}
