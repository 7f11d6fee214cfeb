package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var clock = time.Now

const dateLayout = "2006-01-02"

// parseTime accepts RFC3339 or a bare date, which is read as midnight UTC.
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, raw)
}

func timeField(v *apperrors.ValidationError, field, raw string, required bool) time.Time {
	if raw == "" {
		if required {
			v.Add(field, "is required")
		}
		return time.Time{}
	}
	t, err := parseTime(raw)
	if err != nil {
		v.Add(field, "must be RFC3339 or YYYY-MM-DD")
	}
	return t
}

func optionalTime(v *apperrors.ValidationError, field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t := timeField(v, field, *raw, true)
	return &t
}

func uintQuery(v *apperrors.ValidationError, c *gin.Context, name string) uint {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		v.Add(name, "must be a positive integer")
		return 0
	}
	return uint(n)
}

func intQuery(v *apperrors.ValidationError, c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		v.Add(name, "must be a non-negative integer")
		return 0
	}
	return n
}

func decimalQuery(v *apperrors.ValidationError, c *gin.Context, name string) decimal.NullDecimal {
	raw := c.Query(name)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v.Add(name, "must be a number")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// transactionFilter reads the listing query shared by bookings and borrow
// requests: status (comma separated labels), from, to, minCost, maxCost,
// resourceId, vehicleId, ownerId, requesterId, limit and offset.
func transactionFilter(c *gin.Context, d lifecycle.Domain) (models.TransactionFilter, error) {
	var v apperrors.ValidationError
	f := models.TransactionFilter{
		RequesterID: uintQuery(&v, c, "requesterId"),
		ResourceID:  uintQuery(&v, c, "resourceId"),
		VehicleID:   uintQuery(&v, c, "vehicleId"),
		OwnerID:     uintQuery(&v, c, "ownerId"),
		MinCost:     decimalQuery(&v, c, "minCost"),
		MaxCost:     decimalQuery(&v, c, "maxCost"),
		Limit:       intQuery(&v, c, "limit"),
		Offset:      intQuery(&v, c, "offset"),
		From:        timeField(&v, "from", c.Query("from"), false),
		To:          timeField(&v, "to", c.Query("to"), false),
	}

	if raw := c.Query("status"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			s, ok := lifecycle.ParseStatus(d, label)
			if !ok {
				v.Add("status", "unknown status "+strings.TrimSpace(label))
				continue
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		v.Add("to", "must not be before from")
	}
	if f.MinCost.Valid && f.MaxCost.Valid && f.MaxCost.Decimal.LessThan(f.MinCost.Decimal) {
		v.Add("maxCost", "must not be below minCost")
	}
	return f, v.Err()
}

func toolFilter(c *gin.Context) (models.ToolFilter, error) {
	var v apperrors.ValidationError
	f := models.ToolFilter{
		OwnerID:       uintQuery(&v, c, "ownerId"),
		Category:      c.Query("category"),
		Location:      c.Query("location"),
		Query:         c.Query("q"),
		AvailableFrom: timeField(&v, "availableFrom", c.Query("availableFrom"), false),
		AvailableTo:   timeField(&v, "availableTo", c.Query("availableTo"), false),
		Limit:         intQuery(&v, c, "limit"),
		Offset:        intQuery(&v, c, "offset"),
	}
	if raw := c.Query("status"); raw != "" {
		s, ok := models.ParseToolStatus(raw)
		if !ok {
			v.Add("status", "unknown status "+raw)
		}
		f.Status = s
	}
	return f, v.Err()
}

func listResponse(items any, total int64, f interface{ Page() (int, int) }) gin.H {
	limit, offset := f.Page()
	return gin.H{"items": items, "total": total, "limit": limit, "offset": offset}
}
