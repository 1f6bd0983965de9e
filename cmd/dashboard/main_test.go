package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/database"
	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/realtime"
	"github.com/taufik7000/efarina-finance-flow/internal/router"
)

type DashboardTestSuite struct {
	suite.Suite
	srv    *httptest.Server
	hub    *realtime.Hub
	dir    string
	config string
}

func TestDashboardTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardTestSuite))
}

func (s *DashboardTestSuite) SetupTest() {
	db, err := database.Init(config.DatabaseConfig{Path: ":memory:"})
	s.Require().NoError(err)
	s.Require().NoError(database.AutoMigrate(db))
	s.T().Cleanup(func() { _ = database.Close(db) })

	s.hub = realtime.NewHub()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		JWT:      config.JWTConfig{Secret: "dashboard-secret", ExpireHours: 1, RefreshDays: 1},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
	s.srv = httptest.NewServer(router.SetupRouter(cfg, router.Deps{
		DB:      db,
		Hub:     s.hub,
		Metrics: metrics.New(prometheus.NewRegistry()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}))

	s.dir = s.T().TempDir()
	s.writeConfig(false)
}

func (s *DashboardTestSuite) TearDownTest() {
	s.hub.Stop()
	s.srv.Close()
}

func (s *DashboardTestSuite) writeConfig(demo bool) {
	s.config = filepath.Join(s.dir, "config.yaml")
	yaml := fmt.Sprintf(`backend:
  url: %s
client:
  session_path: %s
  timeout: 5s
  bootstrap_wait: 5s
log:
  level: error
demo:
  enabled: %t
`, s.srv.URL, filepath.Join(s.dir, "session.db"), demo)
	s.Require().NoError(os.WriteFile(s.config, []byte(yaml), 0o600))
}

// dash runs one CLI invocation and returns its stdout.
func (s *DashboardTestSuite) dash(stdin string, args ...string) (string, error) {
	out := new(bytes.Buffer)
	full := append([]string{"-config", s.config}, args...)
	err := run(context.Background(), full, bytes.NewBufferString(stdin), out, new(bytes.Buffer))
	return out.String(), err
}

func (s *DashboardTestSuite) mustDash(stdin string, args ...string) string {
	out, err := s.dash(stdin, args...)
	s.Require().NoError(err, out)
	return out
}

func (s *DashboardTestSuite) TestMissingAndUnknownCommand() {
	out, err := s.dash("")
	s.Error(err)
	s.Contains(out, "Usage:")

	_, err = s.dash("", "launch")
	s.ErrorContains(err, "unknown command")
}

func (s *DashboardTestSuite) TestSessionLifecycle() {
	out := s.mustDash("rahasia1\n", "signup", "-email", "ann@efarina.tv", "-name", "Ann")
	s.Contains(out, "Pendaftaran berhasil")

	_, err := s.dash("", "whoami")
	s.True(apperr.IsKind(err, apperr.KindNotAuthenticated))

	_, err = s.dash("", "login", "-email", "ann@efarina.tv", "-password", "salah")
	s.True(apperr.IsKind(err, apperr.KindAuth))

	out = s.mustDash("ann@efarina.tv\nrahasia1\n", "login")
	s.Contains(out, "Login berhasil")

	// the session survives between invocations
	out = s.mustDash("", "whoami")
	s.Contains(out, "ann@efarina.tv")
	s.Contains(out, "Departemen: Umum")

	out = s.mustDash("", "profile", "-department", "Produksi")
	s.Contains(out, "Profil diperbarui")
	s.Contains(s.mustDash("", "whoami"), "Departemen: Produksi")

	out = s.mustDash("", "logout")
	s.Contains(out, "Logout berhasil")
	_, err = s.dash("", "whoami")
	s.Error(err)
}

func (s *DashboardTestSuite) TestTransactions() {
	s.mustDash("rahasia1\n", "signup", "-email", "ann@efarina.tv")
	s.mustDash("", "login", "-email", "ann@efarina.tv", "-password", "rahasia1")

	out := s.mustDash("", "tx", "add", "-date", "2024-05-01", "-desc", "Iklan pagi", "-category", "Iklan", "-amount", "1500000")
	s.Contains(out, "Transaksi berhasil ditambahkan")
	s.Contains(out, "+Rp 1.500.000")

	s.mustDash("", "tx", "add", "-date", "2024-05-02", "-desc", "Listrik", "-category", "Utilitas", "-amount", "250000", "-type", "expense")

	_, err := s.dash("", "tx", "add", "-date", "kemarin", "-desc", "X", "-category", "X", "-amount", "1")
	s.True(apperr.IsKind(err, apperr.KindMutation))

	out = s.mustDash("", "tx", "list")
	s.Contains(out, "Iklan pagi")
	s.Contains(out, "-Rp 250.000")

	out = s.mustDash("", "tx", "list", "-type", "expense")
	s.NotContains(out, "Iklan pagi")

	out = s.mustDash("", "tx", "summary")
	s.Contains(out, "Rp 1.250.000")
	s.Contains(out, "Utilitas")

	_, err = s.dash("", "tx", "delete")
	s.ErrorContains(err, "missing -id")
}

func (s *DashboardTestSuite) TestUsers() {
	s.mustDash("rahasia1\n", "signup", "-email", "ann@efarina.tv")
	s.mustDash("", "login", "-email", "ann@efarina.tv", "-password", "rahasia1")

	out := s.mustDash("", "users", "add", "-name", "Budi", "-email", "Budi@Efarina.tv", "-role", "finance")
	s.Contains(out, "Pengguna berhasil ditambahkan")

	out = s.mustDash("", "users", "list")
	s.Contains(out, "budi@efarina.tv")
	s.Contains(out, "finance")

	_, err := s.dash("", "users", "add", "-name", "Budi", "-email", "budi@efarina.tv")
	s.True(apperr.IsKind(err, apperr.KindMutation))

	_, err = s.dash("", "users", "update", "-id", "x", "-role", "root")
	s.True(apperr.IsKind(err, apperr.KindMutation))

	_, err = s.dash("", "users")
	s.ErrorContains(err, "usage")
}

func (s *DashboardTestSuite) TestDemoProvisionedAtStartup() {
	s.writeConfig(true)

	s.mustDash("", "help")
	out := s.mustDash("", "demo")
	s.Contains(out, "Akun demo sudah ada")

	s.mustDash("", "login", "-email", "demo@efarina.tv", "-password", "123456")
	out = s.mustDash("", "whoami")
	s.Contains(out, "User Demo")
	s.Contains(out, "Departemen: Demo")
}
