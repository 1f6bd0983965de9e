package middleware

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

const maxAuditBody = 2000

// MaxBody bounds request bodies read on the tables routes.
const MaxBody = 1 << 20

// Audit records mutating requests of signed-in callers. Path and action are
// stored encrypted with encryptKey.
func Audit(db *gorm.DB, encryptKey string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			c.Next()
			return
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, MaxBody+1))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		id := CurrentIdentity(c)
		if id == nil {
			return
		}

		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if len(bodyBytes) > 0 && len(bodyBytes) < maxAuditBody {
			action += " " + string(bodyBytes)
		}

		encPath, err := util.EncryptField(encryptKey, path)
		if err != nil {
			logger.Error("encrypt audit path", "error", err)
			return
		}
		encAction, err := util.EncryptField(encryptKey, action)
		if err != nil {
			logger.Error("encrypt audit action", "error", err)
			return
		}

		identityID := id.ID
		entry := models.AuditLog{
			IdentityID: &identityID,
			Method:     c.Request.Method,
			Status:     c.Writer.Status(),
			PathEnc:    encPath,
			ActionEnc:  encAction,
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Warn("write audit log", "error", err)
		}
	}
}
