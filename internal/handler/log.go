package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/middleware"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// LogHandler serves the caller's audit trail.
type LogHandler struct {
	DB         *gorm.DB
	EncryptKey string
	PageSize   int
}

const maxPageSize = 100

func NewLogHandler(db *gorm.DB, encryptKey string, pageSize int) *LogHandler {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 20
	}
	return &LogHandler{DB: db, EncryptKey: encryptKey, PageSize: pageSize}
}

type logResp struct {
	ID        uint      `json:"id"`
	Method    string    `json:"method"`
	Status    int       `json:"status"`
	Path      string    `json:"path"`
	Action    string    `json:"action"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// ListLogs pages through the caller's audit entries, newest first. start and
// end (YYYY-MM-DD) bound the date; q matches the decrypted path or action.
func (h *LogHandler) ListLogs(c *gin.Context) {
	id := middleware.CurrentIdentity(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query("page_size"))
	if size <= 0 || size > maxPageSize {
		size = h.PageSize
	}

	base := h.DB.WithContext(c.Request.Context()).Model(&models.AuditLog{}).Where("identity_id = ?", id.ID)
	if s := c.Query("start"); s != "" {
		start, err := time.Parse(models.DateLayout, s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Format tanggal mulai harus YYYY-MM-DD")
			return
		}
		base = base.Where("created_at >= ?", start)
	}
	if e := c.Query("end"); e != "" {
		end, err := time.Parse(models.DateLayout, e)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Format tanggal akhir harus YYYY-MM-DD")
			return
		}
		base = base.Where("created_at < ?", end.Add(24*time.Hour))
	}

	var logs []models.AuditLog
	if err := base.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Gagal memuat log")
		return
	}

	// path and action are encrypted, so the keyword filter runs here
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	items := make([]logResp, 0, len(logs))
	for _, l := range logs {
		item := logResp{
			ID:        l.ID,
			Method:    l.Method,
			Status:    l.Status,
			Path:      util.DecryptField(h.EncryptKey, l.PathEnc),
			Action:    util.DecryptField(h.EncryptKey, l.ActionEnc),
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		}
		if q != "" && !strings.Contains(strings.ToLower(item.Path), q) && !strings.Contains(strings.ToLower(item.Action), q) {
			continue
		}
		items = append(items, item)
	}

	total := len(items)
	from := total
	if page-1 <= total/size {
		from = min((page-1)*size, total)
	}
	to := from + size
	if to > total {
		to = total
	}

	util.Success(c, util.Response{
		"items": items[from:to],
		"total": total,
		"page":  page,
		"size":  size,
	})
}
