package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/database"
	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/middleware"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/realtime"
)

type env struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	token  string
}

func setup(t *testing.T, opts ...func(*config.Config)) *env {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	hub := realtime.NewHub()
	t.Cleanup(func() {
		hub.Stop()
		_ = database.Close(db)
	})

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		JWT:      config.JWTConfig{Secret: "router-secret", ExpireHours: 1, RefreshDays: 1},
		Security: config.SecurityConfig{BcryptCost: 4, EncryptionKey: "audit-key"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	e := &env{
		t:  t,
		db: db,
		engine: SetupRouter(cfg, Deps{
			DB:      db,
			Hub:     hub,
			Metrics: metrics.New(prometheus.NewRegistry()),
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		}),
	}

	e.call(http.MethodPost, "/api/auth/signup", map[string]string{"email": "ann@efarina.tv", "password": "rahasia1", "name": "Ann"})
	var out struct {
		Data struct {
			Session struct {
				AccessToken string `json:"access_token"`
			} `json:"session"`
		} `json:"data"`
	}
	rec := e.call(http.MethodPost, "/api/auth/token", map[string]string{"email": "ann@efarina.tv", "password": "rahasia1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	e.token = out.Data.Session.AccessToken
	require.NotEmpty(t, e.token)
	return e
}

func (e *env) call(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func (e *env) addTransaction(date, desc string, amount string, kind models.Kind) {
	e.t.Helper()
	rec := e.call(http.MethodPost, "/api/tables/transactions", map[string]any{
		"date": date, "description": desc, "category": "Iklan", "amount": amount, "type": kind,
	})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)

	rec := e.call(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.call(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "efarina_auth_events_total")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := setup(t)
	e.token = ""

	for _, path := range []string{"/api/stats/monthly", "/api/export/csv", "/api/logs", "/api/auth/user"} {
		rec := e.call(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestUnknownCollection(t *testing.T) {
	e := setup(t)
	rec := e.call(http.MethodGet, "/api/tables/ledgers", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.call(http.MethodGet, "/api/tables/users?email=like", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthlyStats(t *testing.T) {
	e := setup(t)
	e.addTransaction("2024-05-01", "Iklan", "1000", models.KindIncome)
	e.addTransaction("2024-05-02", "Listrik", "-400", models.KindExpense)
	e.addTransaction("2024-06-01", "Juni", "50", models.KindIncome)

	rec := e.call(http.MethodGet, "/api/stats/monthly?month=2024-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data struct {
			Stats struct {
				Summary struct {
					Balance string `json:"balance"`
					Count   int    `json:"count"`
				} `json:"summary"`
				Daily []json.RawMessage `json:"daily"`
			} `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "600", out.Data.Stats.Summary.Balance)
	assert.Equal(t, 2, out.Data.Stats.Summary.Count)
	assert.Len(t, out.Data.Stats.Daily, 2)

	rec = e.call(http.MethodGet, "/api/stats/monthly?month=05-2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCSV(t *testing.T) {
	e := setup(t)
	e.addTransaction("2024-05-01", "Iklan", "1500000", models.KindIncome)
	e.addTransaction("2024-05-03", "Listrik", "250000", models.KindExpense)

	rec := e.call(http.MethodGet, "/api/export/csv?from=2024-05-01&to=2024-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "\ufeff"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Tanggal,Deskripsi,Kategori,Jenis,Jumlah", lines[0])
	assert.Equal(t, "2024-05-03,Listrik,Iklan,Pengeluaran,-250000.00", lines[1])
	assert.Equal(t, "2024-05-01,Iklan,Iklan,Pemasukan,1500000.00", lines[2])

	rec = e.call(http.MethodGet, "/api/export/csv?from=kemarin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportXLSX(t *testing.T) {
	e := setup(t)
	e.addTransaction("2024-05-01", "Iklan", "1500000", models.KindIncome)

	rec := e.call(http.MethodGet, "/api/export/xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Transaksi")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tanggal", rows[0][0])
	assert.Equal(t, "Iklan", rows[1][1])
	assert.Equal(t, "Pemasukan", rows[1][3])
}

func TestAuditLogsPaging(t *testing.T) {
	e := setup(t)
	e.addTransaction("2024-05-01", "Iklan", "1500000", models.KindIncome)
	e.addTransaction("2024-05-02", "Iklan", "2500000", models.KindIncome)

	var out struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
			Total int               `json:"total"`
			Size  int               `json:"size"`
		} `json:"data"`
	}
	rec := e.call(http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 20, out.Data.Size)
	assert.Len(t, out.Data.Items, 2)

	rec = e.call(http.MethodGet, "/api/logs?page=4611686018427387905&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Data.Total)
	assert.Empty(t, out.Data.Items)

	rec = e.call(http.MethodGet, "/api/logs?page=2&page_size=1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Data.Items, 1)

	small := setup(t, func(c *config.Config) { c.App.PageSize = 1 })
	small.addTransaction("2024-05-01", "Iklan", "1500000", models.KindIncome)
	small.addTransaction("2024-05-02", "Iklan", "2500000", models.KindIncome)
	rec = small.call(http.MethodGet, "/api/logs", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Data.Size)
	assert.Len(t, out.Data.Items, 1)
}

func TestOversizedBodyRejected(t *testing.T) {
	e := setup(t)
	big := strings.Repeat("x", middleware.MaxBody)
	rec := e.call(http.MethodPost, "/api/tables/transactions", map[string]any{
		"date": "2024-05-01", "description": big, "category": "Iklan", "amount": "1", "type": models.KindIncome,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var count int64
	require.NoError(t, e.db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAuditLogs(t *testing.T) {
	e := setup(t)
	e.addTransaction("2024-05-01", "Iklan", "1500000", models.KindIncome)

	var stored models.AuditLog
	require.NoError(t, e.db.First(&stored).Error)
	assert.NotContains(t, stored.PathEnc, "/api/tables")

	rec := e.call(http.MethodGet, "/api/logs?q=transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data struct {
			Items []struct {
				Method string `json:"method"`
				Path   string `json:"path"`
				Action string `json:"action"`
			} `json:"items"`
			Total int `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 1, out.Data.Total)
	assert.Equal(t, http.MethodPost, out.Data.Items[0].Method)
	assert.Equal(t, "/api/tables/transactions", out.Data.Items[0].Path)
	assert.Contains(t, out.Data.Items[0].Action, "Iklan")

	rec = e.call(http.MethodGet, "/api/logs?q=users", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 0, out.Data.Total)
}
