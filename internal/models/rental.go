package models

import (
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/shopspring/decimal"
)

type ToolStatus int16

const (
	ToolAvailable ToolStatus = iota + 1
	ToolBorrowed
	ToolUnavailable
)

var toolStatusLabels = map[ToolStatus]string{
	ToolAvailable:   "available",
	ToolBorrowed:    "borrowed",
	ToolUnavailable: "unavailable",
}

func (s ToolStatus) String() string {
	if l, ok := toolStatusLabels[s]; ok {
		return l
	}
	return "unknown"
}

func ParseToolStatus(label string) (ToolStatus, bool) {
	for s, l := range toolStatusLabels {
		if l == label {
			return s, true
		}
	}
	return 0, false
}

type Tool struct {
	Base
	OwnerID     uint            `json:"ownerId" gorm:"not null;index"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	Category    string          `json:"category" gorm:"index"`
	Condition   string          `json:"condition"`
	Location    string          `json:"location"`
	DailyRate   decimal.Decimal `json:"dailyRate" gorm:"type:numeric(12,2);not null"`
	ImageURL    string          `json:"imageUrl"`
	Status      ToolStatus      `json:"-" gorm:"type:smallint;not null;default:1"`
	Rating      float64         `json:"rating" gorm:"not null;default:0"`
}

func (Tool) TableName() string {
	return "tools"
}

// BorrowRequest is a rental transaction. OwnerID is copied from the tool so
// ownership checks do not need a join.
type BorrowRequest struct {
	Base
	ToolID           uint                `json:"toolId" gorm:"not null;index"`
	BorrowerID       uint                `json:"borrowerId" gorm:"not null;index"`
	OwnerID          uint                `json:"ownerId" gorm:"not null;index"`
	StartDate        time.Time           `json:"startDate" gorm:"not null"`
	EndDate          time.Time           `json:"endDate" gorm:"not null"`
	Status           lifecycle.Status    `json:"-" gorm:"type:smallint;not null;default:1;index"`
	EstimatedCost    decimal.Decimal     `json:"estimatedCost" gorm:"type:numeric(12,2);not null"`
	LateFee          decimal.Decimal     `json:"lateFee" gorm:"type:numeric(12,2);not null;default:0"`
	ActualCost       decimal.NullDecimal `json:"actualCost" gorm:"type:numeric(12,2)"`
	Message          string              `json:"message"`
	RejectionReason  string              `json:"rejectionReason"`
	RequestedAt      time.Time           `json:"requestedAt" gorm:"not null"`
	ApprovedAt       *time.Time          `json:"approvedAt"`
	PickedUpAt       *time.Time          `json:"pickedUpAt"`
	ActualReturnDate *time.Time          `json:"actualReturnDate"`
	CancelledAt      *time.Time          `json:"cancelledAt"`
}

func (BorrowRequest) TableName() string {
	return "borrow_requests"
}

// Cost is the actual cost once returned, the estimate before.
func (r BorrowRequest) Cost() decimal.Decimal {
	if r.ActualCost.Valid {
		return r.ActualCost.Decimal
	}
	return r.EstimatedCost
}

type Review struct {
	Base
	BorrowRequestID uint   `json:"borrowRequestId" gorm:"uniqueIndex;not null"`
	ToolID          uint   `json:"toolId" gorm:"not null;index"`
	ReviewerID      uint   `json:"reviewerId" gorm:"not null"`
	RevieweeID      uint   `json:"revieweeId" gorm:"not null;index"`
	Rating          int    `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment         string `json:"comment"`
}

func (Review) TableName() string {
	return "reviews"
}
