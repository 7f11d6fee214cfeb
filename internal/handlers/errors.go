package handlers

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/middleware"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError writes err with the status its type maps to.
func respondError(c *gin.Context, err error) {
	var v apperrors.ValidationError
	switch {
	case errors.As(err, &v):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": v.Fields})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsInvalidTransition(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case apperrors.IsUnauthorized(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s: %v", middleware.GetRequestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindError reports a failed ShouldBind in the same shape as a
// ValidationError.
func bindError(c *gin.Context, err error) {
	var v apperrors.ValidationError
	if !bindFields(&v, err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondError(c, v)
}

// bindFields adds the field violations of a failed ShouldBind to v. It
// reports false when err is not a validation failure, e.g. malformed JSON.
func bindFields(v *apperrors.ValidationError, err error) bool {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve {
		v.Add(jsonName(fe.Field()), tagMessage(fe))
	}
	return true
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	if field == "ID" || strings.HasSuffix(field, "ID") && len(field) > 2 {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.Invalid(name, "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// actor is the caller as set by middleware.AuthMiddleware.
func actor(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetUint("userId"),
		Role:   models.Role(c.GetString("userRole")),
	}
}
