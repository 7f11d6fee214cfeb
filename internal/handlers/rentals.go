package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BorrowRequestRequest struct {
	ToolID    uint   `json:"toolId" binding:"required"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Message   string `json:"message"`
}

// RentalStatusRequest moves a borrow request along its lifecycle. Labels are
// approved, active, returned, rejected and cancelled; the fleet names are
// accepted too.
type RentalStatusRequest struct {
	Status     string           `json:"status" binding:"required"`
	Reason     string           `json:"reason"`
	ReturnedAt *string          `json:"returnedAt"`
	ActualCost *decimal.Decimal `json:"actualCost"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func CreateBorrowRequest(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input BorrowRequestRequest
		var v apperrors.ValidationError
		if err := c.ShouldBindJSON(&input); err != nil && !bindFields(&v, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start := timeField(&v, "startDate", input.StartDate, true)
		end := timeField(&v, "endDate", input.EndDate, true)
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		r, err := rentals.CreateRequest(c.Request.Context(), actor(c), services.CreateBorrowInput{
			ToolID:    input.ToolID,
			StartDate: start,
			EndDate:   end,
			Message:   input.Message,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newBorrowRequest(*r, clock))
	}
}

func GetBorrowRequest(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		details, err := rentals.GetDetails(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newBorrowRequestDetails(details, clock))
	}
}

// ListBorrowRequests lists what the caller borrowed, or with ?ownerId= set
// to their own id, what was asked of them. Admins see everything.
func ListBorrowRequests(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := transactionFilter(c, lifecycle.Rental)
		if err != nil {
			respondError(c, err)
			return
		}
		list, total, err := rentals.List(c.Request.Context(), actor(c), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse(newBorrowRequests(list, clock), total, f))
	}
}

func UpdateBorrowRequestStatus(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input RentalStatusRequest
		var v apperrors.ValidationError
		if err := c.ShouldBindJSON(&input); err != nil && !bindFields(&v, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		target, known := lifecycle.ParseStatus(lifecycle.Rental, input.Status)
		if !known && input.Status != "" {
			v.Add("status", "unknown status "+input.Status)
		}
		returnedAt := optionalTime(&v, "returnedAt", input.ReturnedAt)
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		r, err := rentals.Transition(c.Request.Context(), actor(c), id, services.RentalTransitionInput{
			Target:     target,
			Reason:     input.Reason,
			ReturnedAt: returnedAt,
			ActualCost: input.ActualCost,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newBorrowRequest(*r, clock))
	}
}

func DeleteBorrowRequest(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := rentals.Delete(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ListOverdue shows active rentals past their end date with the fine so far.
func ListOverdue(rentals *services.RentalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := rentals.Overdue(c.Request.Context(), actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newOverdue(list, clock))
	}
}

func SubmitReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input ReviewRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		r, err := reviews.Submit(c.Request.Context(), actor(c), id, input.Rating, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}
