package handlers

import (
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/shopspring/decimal"
)

// Response types embed the stored row and shadow the smallint status with
// its label and money with two fixed decimals.

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

type bookingResponse struct {
	models.Booking
	Status        string  `json:"status"`
	EstimatedFare string  `json:"estimatedFare"`
	ActualFare    *string `json:"actualFare"`
}

func newBooking(b models.Booking) bookingResponse {
	return bookingResponse{
		Booking:       b,
		Status:        b.Status.Label(lifecycle.Fleet),
		EstimatedFare: money(b.EstimatedFare),
		ActualFare:    nullMoney(b.ActualFare),
	}
}

func newBookings(list []models.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, newBooking(b))
	}
	return out
}

type borrowRequestResponse struct {
	models.BorrowRequest
	Status        string  `json:"status"`
	EstimatedCost string  `json:"estimatedCost"`
	LateFee       string  `json:"lateFee"`
	ActualCost    *string `json:"actualCost"`
	IsOverdue     bool    `json:"isOverdue"`
}

func newBorrowRequest(r models.BorrowRequest, now func() time.Time) borrowRequestResponse {
	return borrowRequestResponse{
		BorrowRequest: r,
		Status:        r.Status.Label(lifecycle.Rental),
		EstimatedCost: money(r.EstimatedCost),
		LateFee:       money(r.LateFee),
		ActualCost:    nullMoney(r.ActualCost),
		IsOverdue:     lifecycle.IsOverdue(r.Status, r.EndDate, now()),
	}
}

func newBorrowRequests(list []models.BorrowRequest, now func() time.Time) []borrowRequestResponse {
	out := make([]borrowRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, newBorrowRequest(r, now))
	}
	return out
}

type driverResponse struct {
	models.Driver
	Status string `json:"status"`
}

func newDriver(d models.Driver) driverResponse {
	return driverResponse{Driver: d, Status: d.Status.String()}
}

func newDrivers(list []models.Driver) []driverResponse {
	out := make([]driverResponse, 0, len(list))
	for _, d := range list {
		out = append(out, newDriver(d))
	}
	return out
}

type vehicleResponse struct {
	models.Vehicle
	Status    string `json:"status"`
	RatePerKm string `json:"ratePerKm"`
}

func newVehicle(v models.Vehicle) vehicleResponse {
	return vehicleResponse{Vehicle: v, Status: v.Status.String(), RatePerKm: money(v.RatePerKm)}
}

func newVehicles(list []models.Vehicle) []vehicleResponse {
	out := make([]vehicleResponse, 0, len(list))
	for _, v := range list {
		out = append(out, newVehicle(v))
	}
	return out
}

type toolResponse struct {
	models.Tool
	Status    string `json:"status"`
	DailyRate string `json:"dailyRate"`
}

func newTool(t models.Tool) toolResponse {
	return toolResponse{Tool: t, Status: t.Status.String(), DailyRate: money(t.DailyRate)}
}

func newTools(list []models.Tool) []toolResponse {
	out := make([]toolResponse, 0, len(list))
	for _, t := range list {
		out = append(out, newTool(t))
	}
	return out
}

type paymentResponse struct {
	models.Payment
	Status string `json:"status"`
	Amount string `json:"amount"`
}

func newPayment(p models.Payment) paymentResponse {
	return paymentResponse{Payment: p, Status: p.Status.String(), Amount: money(p.Amount)}
}

type maintenanceResponse struct {
	models.Maintenance
	Status string `json:"status"`
	Cost   string `json:"cost"`
}

func newMaintenance(m models.Maintenance) maintenanceResponse {
	return maintenanceResponse{Maintenance: m, Status: m.Status.String(), Cost: money(m.Cost)}
}

func newMaintenanceList(list []models.Maintenance) []maintenanceResponse {
	out := make([]maintenanceResponse, 0, len(list))
	for _, m := range list {
		out = append(out, newMaintenance(m))
	}
	return out
}

type bookingDetailsResponse struct {
	Booking  bookingResponse  `json:"booking"`
	Customer *models.User     `json:"customer"`
	Driver   *driverResponse  `json:"driver"`
	Vehicle  *vehicleResponse `json:"vehicle"`
	Payment  *paymentResponse `json:"payment"`
	Feedback *models.Feedback `json:"feedback"`
}

func newBookingDetails(d *models.BookingDetails) bookingDetailsResponse {
	out := bookingDetailsResponse{
		Booking:  newBooking(d.Booking),
		Customer: d.Customer,
		Feedback: d.Feedback,
	}
	if d.Driver != nil {
		v := newDriver(*d.Driver)
		out.Driver = &v
	}
	if d.Vehicle != nil {
		v := newVehicle(*d.Vehicle)
		out.Vehicle = &v
	}
	if d.Payment != nil {
		v := newPayment(*d.Payment)
		out.Payment = &v
	}
	return out
}

type borrowRequestDetailsResponse struct {
	Request  borrowRequestResponse `json:"request"`
	Tool     *toolResponse         `json:"tool"`
	Borrower *models.User          `json:"borrower"`
	Owner    *models.User          `json:"owner"`
	Payment  *paymentResponse      `json:"payment"`
	Review   *models.Review        `json:"review"`
}

func newBorrowRequestDetails(d *models.BorrowRequestDetails, now func() time.Time) borrowRequestDetailsResponse {
	out := borrowRequestDetailsResponse{
		Request:  newBorrowRequest(d.Request, now),
		Borrower: d.Borrower,
		Owner:    d.Owner,
		Review:   d.Review,
	}
	if d.Tool != nil {
		v := newTool(*d.Tool)
		out.Tool = &v
	}
	if d.Payment != nil {
		v := newPayment(*d.Payment)
		out.Payment = &v
	}
	return out
}

type overdueResponse struct {
	Request     borrowRequestResponse `json:"request"`
	DaysLate    int                   `json:"daysLate"`
	AccruedFine string                `json:"accruedFine"`
}

func newOverdue(list []services.OverdueRequest, now func() time.Time) []overdueResponse {
	out := make([]overdueResponse, 0, len(list))
	for _, o := range list {
		out = append(out, overdueResponse{
			Request:     newBorrowRequest(o.Request, now),
			DaysLate:    o.DaysLate,
			AccruedFine: money(o.AccruedFine),
		})
	}
	return out
}
