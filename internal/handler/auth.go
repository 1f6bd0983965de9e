package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/middleware"
	"github.com/taufik7000/efarina-finance-flow/internal/realtime"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

type AuthHandler struct {
	Auth    *service.AuthService
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, hub *realtime.Hub, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Hub: hub, Metrics: m, Logger: logger}
}

type signUpReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// SignUp registers an identity without signing it in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email dan password wajib diisi")
		return
	}
	id, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"user": service.Public(id)})
}

type tokenReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token signs in with email and password.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Email dan password wajib diisi")
		return
	}
	sess, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"session": sess})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "refresh_token wajib diisi")
		return
	}
	sess, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"session": sess})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	util.Success(c, util.Response{"user": service.Public(middleware.CurrentIdentity(c))})
}

// UpdateUser changes the caller's display name or password.
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	var req service.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Payload tidak valid")
		return
	}
	id, err := h.Auth.UpdateUser(c.Request.Context(), middleware.CurrentIdentity(c), middleware.CurrentSession(c), req)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	util.Success(c, util.Response{"user": service.Public(id)})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Events streams session changes of the caller's session over a websocket
// until either side closes it.
func (h *AuthHandler) Events(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade", "error", err)
		return
	}
	client := realtime.NewClient(conn, h.Logger)
	h.Hub.Register(sess.ID, client)
	h.Metrics.ListenerOpened()
	start := time.Now()

	client.Drain()

	h.Hub.Unregister(sess.ID, client)
	h.Metrics.ListenerClosed()
	client.Close()
	h.Logger.Debug("event stream closed", "session", sess.ID, "duration", time.Since(start))
}
