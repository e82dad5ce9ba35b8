package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/modbot/pkg/db/store"
)

const (
	ErrCodeInvalidRequest      = "ERR_INVALID_REQUEST"
	ErrCodeTagNotFound         = "ERR_TAG_NOT_FOUND"
	ErrCodeInternalError       = "ERR_INTERNAL_ERROR"
	ErrCodePersistenceDisabled = "ERR_PERSISTENCE_DISABLED"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, APIError{
		Code:    code,
		Message: message,
	})
}

// storeError maps a store error onto a response.
func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, ErrCodeTagNotFound, "tag not found")
	case errors.Is(err, store.ErrInvalidName):
		ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	default:
		s.log.Error("Store request failed: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query the tag store")
	}
}
