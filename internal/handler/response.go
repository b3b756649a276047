package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cab/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are reported without their cause.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	_ = c.Error(err)
	if code == http.StatusInternalServerError {
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service error kinds to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest

	// Business rule rejected a well-formed request.
	case errors.Is(err, service.ErrInvalidBooking):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict

	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}
