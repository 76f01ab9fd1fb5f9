package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/cryptox"
	"github.com/gin-gonic/gin"
)

// statusOf maps service errors to HTTP status codes and the message shown to
// the caller. Unknown errors become 500 without leaking their text.
func statusOf(err error) (int, api.ErrorResponse) {
	switch {
	case errors.Is(err, common.ErrPasswordRequired):
		// missing and wrong passwords look the same
		return http.StatusForbidden, api.ErrorResponse{Error: common.ErrPasswordRequired.Error(), RequiresPassword: true}
	case errors.Is(err, common.ErrExpired):
		return http.StatusGone, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrorForbidden), errors.Is(err, common.ErrUserBlocked):
		return http.StatusForbidden, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrValidation), errors.Is(err, cryptox.ErrKeyFormat):
		return http.StatusBadRequest, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, api.ErrorResponse{Error: common.ErrTokenExpired.Error()}
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, api.ErrorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, api.ErrorResponse{Error: common.ErrStorageUnavailable.Error()}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Error: common.ErrorInternal.Error()}
	}
}

func writeError(c *gin.Context, err error) {
	code, body := statusOf(err)
	c.JSON(code, body)
}

// fail writes err and logs it when it maps to a server error.
func (s *Server) fail(c *gin.Context, err error) {
	code, _ := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "handler error", "path", c.Request.URL.Path, "error", err)
	}
	writeError(c, err)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "malformed request: " + err.Error()})
}
