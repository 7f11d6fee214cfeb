package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	PickupLocation  string  `json:"pickupLocation" binding:"required"`
	DropoffLocation string  `json:"dropoffLocation" binding:"required"`
	PickupLat       float64 `json:"pickupLat"`
	PickupLng       float64 `json:"pickupLng"`
	DropoffLat      float64 `json:"dropoffLat"`
	DropoffLng      float64 `json:"dropoffLng"`
	DistanceKm      float64 `json:"distanceKm" binding:"gte=0"`
	ScheduledStart  string  `json:"scheduledStart"`
	ScheduledEnd    string  `json:"scheduledEnd"`
	DriverID        *uint   `json:"driverId"`
	VehicleID       *uint   `json:"vehicleId"`
	AutoAssign      bool    `json:"autoAssign"`
	DriverLocation  string  `json:"driverLocation"`
}

// BookingStatusRequest moves a booking along its lifecycle. Only the fields
// the target needs are read.
type BookingStatusRequest struct {
	Status           string           `json:"status" binding:"required"`
	DriverID         *uint            `json:"driverId"`
	VehicleID        *uint            `json:"vehicleId"`
	DriverLocation   string           `json:"driverLocation"`
	ActualDistanceKm *float64         `json:"actualDistanceKm"`
	ActualFare       *decimal.Decimal `json:"actualFare"`
	Reason           string           `json:"reason"`
}

type AssignRequest struct {
	DriverID       *uint  `json:"driverId"`
	VehicleID      *uint  `json:"vehicleId"`
	DriverLocation string `json:"driverLocation"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func CreateBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateBookingRequest
		var v apperrors.ValidationError
		if err := c.ShouldBindJSON(&input); err != nil && !bindFields(&v, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start := timeField(&v, "scheduledStart", input.ScheduledStart, true)
		end := timeField(&v, "scheduledEnd", input.ScheduledEnd, true)
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		b, err := bookings.Create(c.Request.Context(), actor(c), services.CreateBookingInput{
			PickupLocation:  input.PickupLocation,
			DropoffLocation: input.DropoffLocation,
			PickupLat:       input.PickupLat,
			PickupLng:       input.PickupLng,
			DropoffLat:      input.DropoffLat,
			DropoffLng:      input.DropoffLng,
			DistanceKm:      input.DistanceKm,
			ScheduledStart:  start,
			ScheduledEnd:    end,
			DriverID:        input.DriverID,
			VehicleID:       input.VehicleID,
			AutoAssign:      input.AutoAssign,
			DriverLocation:  input.DriverLocation,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newBooking(*b))
	}
}

// GetBooking returns the booking with its customer, driver, vehicle, payment
// and feedback.
func GetBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		details, err := bookings.GetDetails(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newBookingDetails(details))
	}
}

func ListBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := transactionFilter(c, lifecycle.Fleet)
		if err != nil {
			respondError(c, err)
			return
		}
		list, total, err := bookings.List(c.Request.Context(), actor(c), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse(newBookings(list), total, f))
	}
}

// AssignBooking pairs a booking with the given driver, or picks one when
// driverId is absent.
func AssignBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input AssignRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		b, err := bookings.Transition(c.Request.Context(), actor(c), id, services.TransitionInput{
			Target:         lifecycle.StatusAssigned,
			DriverID:       input.DriverID,
			VehicleID:      input.VehicleID,
			DriverLocation: input.DriverLocation,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newBooking(*b))
	}
}

func UpdateBookingStatus(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input BookingStatusRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		target, known := lifecycle.ParseStatus(lifecycle.Fleet, input.Status)
		if !known {
			respondError(c, apperrors.Invalid("status", "unknown status "+input.Status))
			return
		}

		b, err := bookings.Transition(c.Request.Context(), actor(c), id, services.TransitionInput{
			Target:           target,
			DriverID:         input.DriverID,
			VehicleID:        input.VehicleID,
			DriverLocation:   input.DriverLocation,
			ActualDistanceKm: input.ActualDistanceKm,
			ActualFare:       input.ActualFare,
			Reason:           input.Reason,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newBooking(*b))
	}
}

func DeleteBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := bookings.Delete(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func SubmitFeedback(feedback *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input FeedbackRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		f, err := feedback.Submit(c.Request.Context(), actor(c), id, input.Rating, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, f)
	}
}

// RebalanceBookings moves assigned bookings off overloaded drivers.
func RebalanceBookings(assign *services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		moves, err := assign.Rebalance(c.Request.Context(), actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"moves": moves, "count": len(moves)})
	}
}
