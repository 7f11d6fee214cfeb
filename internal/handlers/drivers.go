package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type RegisterDriverRequest struct {
	UserID        uint    `json:"userId"`
	Name          string  `json:"name" binding:"required"`
	LicenseNumber string  `json:"licenseNumber" binding:"required"`
	Phone         string  `json:"phone"`
	Location      string  `json:"location"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type LocationRequest struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type candidateResponse struct {
	Driver   driverResponse  `json:"driver"`
	Vehicle  vehicleResponse `json:"vehicle"`
	Workload int64           `json:"workload"`
}

func RegisterDriver(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterDriverRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		drv, err := fleet.RegisterDriver(c.Request.Context(), actor(c), services.RegisterDriverInput{
			UserID:        input.UserID,
			Name:          input.Name,
			LicenseNumber: input.LicenseNumber,
			Phone:         input.Phone,
			Location:      input.Location,
			Latitude:      input.Latitude,
			Longitude:     input.Longitude,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newDriver(*drv))
	}
}

// ListDrivers returns every driver, or with ?available=true only those free
// to take work, optionally narrowed by ?location=.
func ListDrivers(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			list []models.Driver
			err  error
		)
		if c.Query("available") == "true" {
			list, err = fleet.ListAvailableDrivers(c.Request.Context(), c.Query("location"))
		} else {
			list, err = fleet.ListDrivers(c.Request.Context())
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newDrivers(list))
	}
}

func GetDriver(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		drv, err := fleet.GetDriver(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newDriver(*drv))
	}
}

func UpdateDriverStatus(fleet *services.FleetService) gin.HandlerFunc {
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
		status, known := models.ParseDriverStatus(input.Status)
		if !known {
			respondError(c, apperrors.Invalid("status", "must be available or offline"))
			return
		}

		drv, err := fleet.SetDriverStatus(c.Request.Context(), actor(c), id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newDriver(*drv))
	}
}

func UpdateDriverLocation(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input LocationRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		drv, err := fleet.UpdateLocation(c.Request.Context(), actor(c), id, input.Location, input.Latitude, input.Longitude)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newDriver(*drv))
	}
}

func DeleteDriver(fleet *services.FleetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := fleet.DeleteDriver(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func GetDriverRating(feedback *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		summary, err := feedback.DriverRating(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func ListDriverFeedback(feedback *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		list, err := feedback.ListForDriver(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetDriverWorkload reports how many open bookings the driver holds.
func GetDriverWorkload(fleet *services.FleetService, assign *services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if _, err := fleet.GetDriver(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		n, err := assign.Workload(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"driverId": id, "workload": n})
	}
}

// ListCandidates ranks the drivers that could take a window, best first.
func ListCandidates(assign *services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		list, err := assign.Candidates(c.Request.Context(), c.Query("location"), start, end, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]candidateResponse, 0, len(list))
		for _, cand := range list {
			out = append(out, candidateResponse{
				Driver:   newDriver(cand.Driver),
				Vehicle:  newVehicle(cand.Vehicle),
				Workload: cand.Workload,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
