package handlers

import (
	"net/http"
	"strconv"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/config"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/chachabrian/fleetshare-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// EstimateFare quotes a fleet trip. The distance comes from ?distanceKm= or
// from the pickup/dropoff coordinates; ?vehicleId= prices it at that
// vehicle's rate instead of the default.
func EstimateFare(fleet *services.FleetService, pricing config.Pricing) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v apperrors.ValidationError
		km := floatQuery(&v, c, "distanceKm")
		if c.Query("distanceKm") == "" {
			coords := [4]float64{}
			for i, name := range []string{"pickupLat", "pickupLng", "dropoffLat", "dropoffLng"} {
				if c.Query(name) == "" {
					v.Add(name, "is required when distanceKm is absent")
					continue
				}
				coords[i] = floatQuery(&v, c, name)
			}
			km = utils.RoadDistance(coords[0], coords[1], coords[2], coords[3])
		}
		if km < 0 {
			v.Add("distanceKm", "must not be negative")
		}
		vehicleID := uintQuery(&v, c, "vehicleId")
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		rate := pricing.DefaultRatePerKm
		if vehicleID != 0 {
			veh, err := fleet.GetVehicle(c.Request.Context(), vehicleID)
			if err != nil {
				respondError(c, err)
				return
			}
			rate = veh.RatePerKm
		}

		quote := utils.CalculateDistanceFare(km, rate, pricing.FleetBaseFare, pricing.FleetMinFare)
		c.JSON(http.StatusOK, gin.H{
			"distanceKm":     km,
			"billableKm":     quote.BillableKm,
			"ratePerKm":      money(quote.RatePerKm),
			"baseFare":       money(quote.BaseFare),
			"distanceFare":   money(quote.DistanceFare),
			"minimumApplied": quote.MinimumApplied,
			"total":          money(quote.Total),
		})
	}
}

// EstimateRental quotes a tool for ?start=&end= at its daily rate.
func EstimateRental(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var v apperrors.ValidationError
		start := timeField(&v, "start", c.Query("start"), true)
		end := timeField(&v, "end", c.Query("end"), true)
		if len(v.Fields) == 0 {
			lifecycle.CheckWindow(&v, "start", "end", start, end)
		}
		if err := v.Err(); err != nil {
			respondError(c, err)
			return
		}

		tool, err := tools.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"toolId":    tool.ID,
			"days":      lifecycle.BillableDays(start, end),
			"dailyRate": money(tool.DailyRate),
			"total":     money(lifecycle.EstimateByDays(tool.DailyRate, start, end)),
		})
	}
}

func floatQuery(v *apperrors.ValidationError, c *gin.Context, name string) float64 {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v.Add(name, "must be a number")
		return 0
	}
	return f
}
