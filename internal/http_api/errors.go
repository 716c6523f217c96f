package http_api

import (
	"errors"
	"net/http"

	"github.com/core-coin/successio/internal/models"
	"github.com/gin-gonic/gin"
)

// statusFor maps engine error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrState),
		errors.Is(err, models.ErrAlreadyProcessed),
		errors.Is(err, models.ErrAlreadyDone):
		return http.StatusConflict
	case errors.Is(err, models.ErrCapacity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Unknown errors are logged and hidden.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorw("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"success": false, "error": "internal error"})
		return
	}

	body := gin.H{"success": false, "error": err.Error()}
	var pctErr *models.PercentageError
	if errors.As(err, &pctErr) {
		body["current"] = pctErr.Current
		body["attempted"] = pctErr.Attempted
	}
	s.logger.Debugw("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	c.JSON(status, body)
}

func (s *HTTPServer) badRequest(c *gin.Context, err error) {
	s.logger.Debugw("Invalid request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request body: " + err.Error(),
	})
}
