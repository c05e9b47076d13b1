package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/holdings"
	"goldfolio/internal/middleware"
	"goldfolio/internal/uuid"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseFlexibleTime accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func parseFlexibleTime(s string) (time.Time, error) {
	return holdings.ParseDate(s)
}

// endOfDay widens a plain date to the last instant of that day so that
// to_date filters are inclusive.
func endOfDay(s string, t time.Time) time.Time {
	if len(s) == len("2006-01-02") {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}
