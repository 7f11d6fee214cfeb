package models

import (
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// BookingDetails is a booking plus the rows it points at, assembled by
// lookups. Missing parts stay nil.
type BookingDetails struct {
	Booking  Booking
	Customer *User
	Driver   *Driver
	Vehicle  *Vehicle
	Payment  *Payment
	Feedback *Feedback
}

type BorrowRequestDetails struct {
	Request  BorrowRequest
	Tool     *Tool
	Borrower *User
	Owner    *User
	Payment  *Payment
	Review   *Review
}

// TransactionFilter narrows booking and borrow-request listings. Zero values
// are ignored. ResourceID is the driver for bookings and the tool for borrow
// requests; VehicleID only applies to bookings. From/To select transactions whose window intersects
// [From, To]; cost bounds apply to the actual cost when known, else the
// estimate.
type TransactionFilter struct {
	RequesterID uint
	ResourceID  uint
	VehicleID   uint
	OwnerID     uint
	Statuses    []lifecycle.Status
	From        time.Time
	To          time.Time
	MinCost     decimal.NullDecimal
	MaxCost     decimal.NullDecimal
	Limit       int
	Offset      int
}

// Page caps Limit.
func (f TransactionFilter) Page() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ToolFilter narrows tool searches. When both AvailableFrom and AvailableTo
// are set only tools free for the whole window are returned.
type ToolFilter struct {
	OwnerID       uint
	Category      string
	Location      string
	Query         string
	Status        ToolStatus
	AvailableFrom time.Time
	AvailableTo   time.Time
	Limit         int
	Offset        int
}

func (f ToolFilter) Page() (limit, offset int) {
	return TransactionFilter{Limit: f.Limit, Offset: f.Offset}.Page()
}

// OverlapQuery describes a proposed booking window on a driver and/or a
// vehicle. ExcludeID skips the booking being re-checked.
type OverlapQuery struct {
	DriverID  uint
	VehicleID uint
	Start     time.Time
	End       time.Time
	ExcludeID uint
}
