package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus int16

const (
	PaymentPending PaymentStatus = iota + 1
	PaymentCompleted
	PaymentFailed
	PaymentRefunded
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentPending:   "pending",
	PaymentCompleted: "completed",
	PaymentFailed:    "failed",
	PaymentRefunded:  "refunded",
}

func (s PaymentStatus) String() string {
	if l, ok := paymentStatusLabels[s]; ok {
		return l
	}
	return "unknown"
}

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodMobile PaymentMethod = "mobile_money"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodCard || m == MethodMobile
}

// Payment belongs to exactly one booking or one borrow request. Both keys are
// unique and cascade on delete.
type Payment struct {
	Base
	BookingID       *uint           `json:"bookingId" gorm:"uniqueIndex"`
	BorrowRequestID *uint           `json:"borrowRequestId" gorm:"uniqueIndex"`
	PayerID         uint            `json:"payerId" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method          PaymentMethod   `json:"method" gorm:"type:varchar(20);not null"`
	Status          PaymentStatus   `json:"-" gorm:"type:smallint;not null;default:1"`
	Reference       string          `json:"reference" gorm:"uniqueIndex;not null"`
	PaidAt          *time.Time      `json:"paidAt"`
	RefundedAt      *time.Time      `json:"refundedAt"`
}

func (Payment) TableName() string {
	return "payments"
}
