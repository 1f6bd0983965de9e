package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the data payload of a success envelope.
type Response map[string]any

// Business error codes carried next to the HTTP status.
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeLocked       = 42301
	CodeServerErr    = 50001
)

// Envelope is the body of every API response. Data is set on success,
// Message on failure.
type Envelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message,omitempty"`
	Data    Response `json:"data,omitempty"`
}

// Success writes data with status 200.
func Success(c *gin.Context, data Response) {
	if data == nil {
		data = Response{}
	}
	c.JSON(http.StatusOK, Envelope{Code: CodeOK, Data: data})
}

// Error writes a failure envelope with the given status and business code.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, Envelope{Code: code, Message: msg})
}
