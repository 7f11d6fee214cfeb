package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type VehicleRequest struct {
	RegistrationNumber string          `json:"registrationNumber" binding:"required"`
	Make               string          `json:"make"`
	Model              string          `json:"model"`
	Type               string          `json:"type" binding:"required"`
	Capacity           int             `json:"capacity" binding:"gte=0"`
	RatePerKm          decimal.Decimal `json:"ratePerKm"`
	DriverID           *uint           `json:"driverId"`
}

func (r VehicleRequest) input() services.VehicleInput {
	return services.VehicleInput{
		RegistrationNumber: r.RegistrationNumber,
		Make:               r.Make,
		Model:              r.Model,
		Type:               r.Type,
		Capacity:           r.Capacity,
		RatePerKm:          r.RatePerKm,
		DriverID:           r.DriverID,
	}
}

func AddVehicle(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VehicleRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		veh, err := fleet.AddVehicle(c.Request.Context(), actor(c), input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newVehicle(*veh))
	}
}

func UpdateVehicle(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input VehicleRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		veh, err := fleet.UpdateVehicle(c.Request.Context(), actor(c), id, input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newVehicle(*veh))
	}
}

func UpdateVehicleStatus(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input StatusRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		status, known := models.ParseVehicleStatus(input.Status)
		if !known {
			respondError(c, apperrors.Invalid("status", "must be available or maintenance"))
			return
		}
		veh, err := fleet.SetVehicleStatus(c.Request.Context(), actor(c), id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newVehicle(*veh))
	}
}

func GetVehicle(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		veh, err := fleet.GetVehicle(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newVehicle(*veh))
	}
}

// ListVehicles accepts an optional ?status= label.
func ListVehicles(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status models.VehicleStatus
		if raw := c.Query("status"); raw != "" {
			var known bool
			if status, known = models.ParseVehicleStatus(raw); !known {
				respondError(c, apperrors.Invalid("status", "unknown status "+raw))
				return
			}
		}
		list, err := fleet.ListVehicles(c.Request.Context(), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newVehicles(list))
	}
}

func DeleteVehicle(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := fleet.DeleteVehicle(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
