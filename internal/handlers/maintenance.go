package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ScheduleMaintenanceRequest struct {
	VehicleID    uint   `json:"vehicleId" binding:"required"`
	Description  string `json:"description" binding:"required"`
	ScheduledFor string `json:"scheduledFor"`
	Notes        string `json:"notes"`
}

type CompleteMaintenanceRequest struct {
	Cost  decimal.Decimal `json:"cost"`
	Notes string          `json:"notes"`
}

func ScheduleMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ScheduleMaintenanceRequest
		var v apperrors.ValidationError
		if err := c.ShouldBindJSON(&input); err != nil && !bindFields(&v, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		at := timeField(&v, "scheduledFor", input.ScheduledFor, true)
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		m, err := maint.Schedule(c.Request.Context(), actor(c), services.ScheduleMaintenanceInput{
			VehicleID:    input.VehicleID,
			Description:  input.Description,
			ScheduledFor: at,
			Notes:        input.Notes,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newMaintenance(*m))
	}
}

func StartMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		m, err := maint.Start(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newMaintenance(*m))
	}
}

func CompleteMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input CompleteMaintenanceRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		m, err := maint.Complete(c.Request.Context(), actor(c), id, input.Cost, input.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newMaintenance(*m))
	}
}

func CancelMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		m, err := maint.Cancel(c.Request.Context(), actor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newMaintenance(*m))
	}
}

// DueMaintenance lists scheduled work in the next ?days= days (default 7).
func DueMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 7
		if raw := c.Query("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, apperrors.Invalid("days", "must be a non-negative integer"))
				return
			}
			days = n
		}
		list, err := maint.Due(c.Request.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newMaintenanceList(list))
	}
}

func ListVehicleMaintenance(maint *services.MaintenanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		list, err := maint.ListByVehicle(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newMaintenanceList(list))
	}
}
