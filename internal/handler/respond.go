package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taufik7000/efarina-finance-flow/internal/service"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// fail writes err in the error envelope. Service errors keep their message;
// anything else is logged and reported generically.
func fail(c *gin.Context, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, verr.Msg)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidRefresh):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, err.Error())
	case errors.Is(err, service.ErrForbidden):
		util.Error(c, http.StatusForbidden, util.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrIdentityExists), errors.Is(err, service.ErrConflict):
		util.Error(c, http.StatusConflict, util.CodeConflict, err.Error())
	case errors.Is(err, service.ErrLocked):
		util.Error(c, http.StatusLocked, util.CodeLocked, err.Error())
	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Terjadi kesalahan pada server")
	}
}
