package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/middleware"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// TableHandler exposes the users and transactions collections.
type TableHandler struct {
	Tables *service.TableService
	Logger *slog.Logger
}

func NewTableHandler(tables *service.TableService, logger *slog.Logger) *TableHandler {
	return &TableHandler{Tables: tables, Logger: logger}
}

func collection(c *gin.Context) (backend.Collection, bool) {
	col := backend.Collection(c.Param("collection"))
	if !col.Valid() {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "Tabel tidak ditemukan")
		return "", false
	}
	return col, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, middleware.MaxBody+1))
	if err == nil && len(body) > middleware.MaxBody {
		util.Error(c, http.StatusRequestEntityTooLarge, util.CodeInvalidParam, "Payload terlalu besar")
		return nil, false
	}
	if err != nil || len(body) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Payload tidak valid")
		return nil, false
	}
	return body, true
}

func (h *TableHandler) List(c *gin.Context) {
	col, ok := collection(c)
	if !ok {
		return
	}
	q, err := backend.ParseQuery(c.Request.URL.Query())
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}
	rows, err := h.Tables.List(c.Request.Context(), middleware.CurrentIdentity(c), col, q)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"rows": rows})
}

func (h *TableHandler) Insert(c *gin.Context) {
	col, ok := collection(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	row, err := h.Tables.Insert(c.Request.Context(), middleware.CurrentIdentity(c), col, body)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"row": row})
}

func (h *TableHandler) Update(c *gin.Context) {
	col, ok := collection(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	row, err := h.Tables.Update(c.Request.Context(), middleware.CurrentIdentity(c), col, c.Param("id"), body)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"row": row})
}

func (h *TableHandler) Delete(c *gin.Context) {
	col, ok := collection(c)
	if !ok {
		return
	}
	if err := h.Tables.Delete(c.Request.Context(), middleware.CurrentIdentity(c), col, c.Param("id")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{})
}

// MonthlyStats returns totals for ?month=YYYY-MM, defaulting to this month.
func (h *TableHandler) MonthlyStats(c *gin.Context) {
	stats, err := h.Tables.Monthly(c.Request.Context(), c.Query("month"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"stats": stats})
}
