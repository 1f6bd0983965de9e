package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	Success(c, Response{"rows": []int{1, 2}})
	assert.Equal(t, http.StatusOK, rec.Code)
	var ok Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, CodeOK, ok.Code)
	assert.Empty(t, ok.Message)
	assert.Contains(t, ok.Data, "rows")

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	Error(c, http.StatusLocked, CodeLocked, "Akun terkunci")
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.JSONEq(t, `{"code":42301,"message":"Akun terkunci"}`, rec.Body.String())
}
