package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-api/internal/domain"
)

const internalErrorMessage = "Internal server error."

// ErrorMessage is the body of every failed response.
type ErrorMessage struct {
	Message string `json:"message"`
}

// errorResponse maps a service failure to its status code and body.
func errorResponse(err error) (int, ErrorMessage) {
	var (
		notFound *domain.AccountNotFoundError
		invalid  *domain.InvalidArgumentError
		exists   *domain.AccountExistsError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorMessage{Message: notFound.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorMessage{Message: invalid.Error()}
	case errors.As(err, &exists):
		return http.StatusConflict, ErrorMessage{Message: exists.Error()}
	default:
		return http.StatusInternalServerError, ErrorMessage{Message: internalErrorMessage}
	}
}

func (h *Handler) respondWithError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c, h.logger).WithError(err).Error("request failed")
	}
	c.JSON(status, body)
}

func respondWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorMessage{Message: message})
}
