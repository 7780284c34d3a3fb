package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restqr/services"
	"github.com/yeremiapane/restqr/utils"
)

// statusFor maps service errors onto HTTP status codes and a client-safe
// message.
func statusFor(err error) (int, string) {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid or expired token"
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrIdempotencyKeyReused):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func respondServiceError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	utils.RespondError(c, code, errors.New(msg))
}
