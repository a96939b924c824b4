package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// ValidationError represents a request validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrEmptySelection),
		errors.Is(err, model.ErrInvalidCellKey),
		errors.Is(err, model.ErrInvalidViewport),
		errors.Is(err, model.ErrInvalidWebhook):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrOutsideProperty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrDonationNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTestModeDisabled):
		return http.StatusForbidden
	case errors.Is(err, model.ErrPaymentProvider),
		errors.Is(err, model.ErrEmailNotDelivered):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrPersistenceWrite),
		errors.Is(err, model.ErrPersistenceRead):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error body
func respondError(c *gin.Context, message string, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// respondBindError reports a body that could not be parsed
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request format",
		"details": err.Error(),
	})
}

// validateSquares checks that every key parses as a cell key
func validateSquares(field string, squares []string) error {
	if len(squares) == 0 {
		return &ValidationError{Field: field, Message: "at least one square is required"}
	}
	for _, s := range squares {
		if _, err := geometry.FromCellKey(model.CellKey(s)); err != nil {
			return &ValidationError{Field: field, Message: "invalid square key " + s}
		}
	}
	return nil
}
