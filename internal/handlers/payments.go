package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	BookingID       *uint            `json:"bookingId"`
	BorrowRequestID *uint            `json:"borrowRequestId"`
	Method          string           `json:"method" binding:"required,oneof=cash card mobile_money"`
	Amount          *decimal.Decimal `json:"amount"`
}

func ProcessPayment(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input PaymentRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		p, err := payments.Process(c.Request.Context(), actor(c), services.ProcessPaymentInput{
			BookingID:       input.BookingID,
			BorrowRequestID: input.BorrowRequestID,
			Method:          models.PaymentMethod(input.Method),
			Amount:          input.Amount,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newPayment(*p))
	}
}

func GetPayment(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		p, err := payments.Get(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newPayment(*p))
	}
}

func RefundPayment(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		p, err := payments.Refund(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newPayment(*p))
	}
}

// DownloadReceipt serves the PDF receipt of a settled payment.
func DownloadReceipt(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		pdf, name, err := payments.Receipt(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
