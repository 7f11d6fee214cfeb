package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ToolRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
	Location    string          `json:"location"`
	DailyRate   decimal.Decimal `json:"dailyRate"`
}

func (r ToolRequest) input() services.ToolInput {
	return services.ToolInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Condition:   r.Condition,
		Location:    r.Location,
		DailyRate:   r.DailyRate,
	}
}

func CreateTool(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ToolRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		t, err := tools.Create(c.Request.Context(), actor(c), input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newTool(*t))
	}
}

func UpdateTool(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input ToolRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
		t, err := tools.Update(c.Request.Context(), actor(c), id, input.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newTool(*t))
	}
}

func UpdateToolStatus(tools *services.ToolService) gin.HandlerFunc {
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
		status, known := models.ParseToolStatus(input.Status)
		if !known {
			respondError(c, apperrors.Invalid("status", "must be available or unavailable"))
			return
		}
		t, err := tools.SetStatus(c.Request.Context(), actor(c), id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newTool(*t))
	}
}

func DeleteTool(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := tools.Delete(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func GetTool(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		t, err := tools.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newTool(*t))
	}
}

// ListTools searches the catalogue. availableFrom/availableTo keep only tools
// free for that whole window.
func ListTools(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := toolFilter(c)
		if err != nil {
			respondError(c, err)
			return
		}
		list, total, err := tools.List(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse(newTools(list), total, f))
	}
}

// UploadToolImage takes a multipart "image" file.
func UploadToolImage(tools *services.ToolService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		file, err := c.FormFile("image")
		if err != nil {
			respondError(c, apperrors.Invalid("image", "is required"))
			return
		}
		t, err := tools.UploadImage(c.Request.Context(), actor(c), id, file)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newTool(*t))
	}
}

func ListToolReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		list, err := reviews.ListForTool(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetToolRating(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		summary, err := reviews.ToolRating(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func GetUserRating(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		summary, err := reviews.UserRating(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
