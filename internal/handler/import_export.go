package handler

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/report"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

var exportHeaders = []string{"Tanggal", "Deskripsi", "Kategori", "Jenis", "Jumlah"}

type ExportHandler struct {
	Tables *service.TableService
	Logger *slog.Logger
}

func NewExportHandler(tables *service.TableService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{Tables: tables, Logger: logger}
}

func kindLabel(k models.Kind) string {
	if k == models.KindIncome {
		return "Pemasukan"
	}
	return "Pengeluaran"
}

// rows loads the transactions in ?from= / ?to= (YYYY-MM-DD, inclusive),
// newest first.
func (h *ExportHandler) rows(c *gin.Context) ([]models.Transaction, bool) {
	f := report.Filter{From: c.Query("from"), To: c.Query("to")}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if err := util.ValidateDate(d); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Format tanggal harus YYYY-MM-DD")
			return nil, false
		}
	}
	all, err := h.Tables.Transactions(c.Request.Context(), "", "")
	if err != nil {
		fail(c, h.Logger, err)
		return nil, false
	}
	rows := report.Apply(all, f)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, true
}

func filename(ext string) string {
	return fmt.Sprintf("attachment; filename=\"transaksi_%s.%s\"", time.Now().Format("20060102"), ext)
}

// ExportCSV writes the transactions as CSV with a UTF-8 BOM for Excel.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", filename("csv"))
	c.Status(http.StatusOK)

	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeaders)
	for _, t := range rows {
		_ = w.Write([]string{t.Date, t.Description, t.Category, kindLabel(t.Type), report.Signed(t).StringFixed(2)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.Logger.Warn("write csv export", "error", err)
	}
}

// ExportXLSX writes the transactions as a single-sheet workbook.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	rows, ok := h.rows(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transaksi"
	index, err := f.NewSheet(sheet)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for i, t := range rows {
		r := i + 2
		amount, _ := report.Signed(t).Float64()
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r), t.Date)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", r), t.Description)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", r), t.Category)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", r), kindLabel(t.Type))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", r), amount)
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "D", 15)
	_ = f.SetColWidth(sheet, "E", "E", 16)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", filename("xlsx"))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.Logger.Warn("write xlsx export", "error", err)
	}
}
