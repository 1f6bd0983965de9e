package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/handler"
	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/middleware"
	"github.com/taufik7000/efarina-finance-flow/internal/realtime"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
)

// Deps are the long-lived components the routes share.
type Deps struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// SetupRouter configures the gin engine of the data service.
func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery(), middleware.Metrics(d.Metrics))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authSvc := service.NewAuthService(d.DB, cfg.JWT, cfg.Security, d.Hub, d.Metrics, d.Logger)
	tableSvc := service.NewTableService(d.DB, d.Metrics, d.Logger)

	api := r.Group("/api", middleware.APIKey(cfg.Backend.AnonKey))
	requireAuth := middleware.Auth(authSvc)
	audit := middleware.Audit(d.DB, cfg.Security.EncryptionKey, d.Logger)

	// credentials pass through these routes, so they are never audited
	authHandler := handler.NewAuthHandler(authSvc, d.Hub, d.Metrics, d.Logger)
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/token", authHandler.Token)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/user", requireAuth, authHandler.GetUser)
	auth.PUT("/user", requireAuth, authHandler.UpdateUser)
	auth.GET("/events", requireAuth, authHandler.Events)

	tableHandler := handler.NewTableHandler(tableSvc, d.Logger)
	tables := api.Group("/tables", middleware.OptionalAuth(authSvc), audit)
	tables.GET("/:collection", tableHandler.List)
	tables.POST("/:collection", tableHandler.Insert)
	tables.PATCH("/:collection/:id", tableHandler.Update)
	tables.DELETE("/:collection/:id", tableHandler.Delete)

	protected := api.Group("", requireAuth)
	protected.GET("/stats/monthly", tableHandler.MonthlyStats)

	exportHandler := handler.NewExportHandler(tableSvc, d.Logger)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	logHandler := handler.NewLogHandler(d.DB, cfg.Security.EncryptionKey, cfg.App.PageSize)
	protected.GET("/logs", logHandler.ListLogs)

	return r
}
