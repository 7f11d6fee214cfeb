package handlers

import (
	"net/http"

	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type FCMTokenRequest struct {
	Token string `json:"token"`
}

func GetProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.Profile(c.Request.Context(), actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input UpdateProfileRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		user, err := users.UpdateProfile(c.Request.Context(), actor(c), input.Name, input.Phone)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// SetUserActive blocks or unblocks an account.
func SetUserActive(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var input SetActiveRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		user, err := users.SetActive(c.Request.Context(), actor(c), id, *input.Active)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// RegisterFCMToken stores the device token used for push notifications. An
// empty token removes it.
func RegisterFCMToken(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input FCMTokenRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}

		if err := users.UpdateFCMToken(c.Request.Context(), actor(c), input.Token); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "token updated"})
	}
}
