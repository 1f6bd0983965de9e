package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/backend/backendtest"
	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
	"github.com/taufik7000/efarina-finance-flow/internal/session"
)

var demo = config.DemoConfig{
	Enabled:    true,
	Email:      "demo@efarina.tv",
	Password:   "123456",
	Name:       "User Demo",
	Department: "Demo",
}

type BootstrapTestSuite struct {
	suite.Suite
	ctx    context.Context
	fake   *backendtest.Fake
	store  *session.Store
	toasts *notify.Recorder
	logger *slog.Logger
}

func (s *BootstrapTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.fake = backendtest.New()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = session.New(s.fake, session.WithLogger(s.logger))
	s.toasts = &notify.Recorder{}
}

func (s *BootstrapTestSuite) TearDownTest() {
	s.store.Close()
}

func (s *BootstrapTestSuite) routine(cfg config.DemoConfig, opts ...Option) *Routine {
	opts = append([]Option{WithLogger(s.logger), WithNotifier(s.toasts)}, opts...)
	return New(s.store, s.fake, cfg, opts...)
}

func (s *BootstrapTestSuite) run(r *Routine) Report {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	task := r.Start(ctx)
	defer task.Close()
	rep, err := task.Wait(ctx)
	require.NoError(s.T(), err)
	return rep
}

func (s *BootstrapTestSuite) TestCreatesDemoAccount() {
	rep := s.run(s.routine(demo))

	assert.Equal(s.T(), DemoCreated, rep.Demo)
	assert.NoError(s.T(), rep.Err)
	assert.False(s.T(), rep.Restored)
	assert.Equal(s.T(), session.Anonymous, s.store.State())

	rows := s.fake.Rows(backend.Users)
	require.Len(s.T(), rows, 1)
	assert.Equal(s.T(), "demo@efarina.tv", rows[0]["email"])
	assert.Equal(s.T(), "User Demo", rows[0]["name"])
	assert.Equal(s.T(), "Demo", rows[0]["department"])
	assert.Equal(s.T(), "user", rows[0]["role"])
	assert.Equal(s.T(), "active", rows[0]["status"])

	_, err := s.fake.SignInWithPassword(s.ctx, "demo@efarina.tv", "123456")
	assert.NoError(s.T(), err)
}

func (s *BootstrapTestSuite) TestIdempotent() {
	first := s.run(s.routine(demo))
	require.Equal(s.T(), DemoCreated, first.Demo)
	inserts := s.fake.Calls("Insert")
	signUps := s.fake.Calls("SignUp")

	second := s.run(s.routine(demo))

	assert.Equal(s.T(), DemoExists, second.Demo)
	assert.Equal(s.T(), inserts, s.fake.Calls("Insert"))
	assert.Equal(s.T(), signUps, s.fake.Calls("SignUp"))
	assert.Len(s.T(), s.fake.Rows(backend.Users), 1)
}

func (s *BootstrapTestSuite) TestIdentityWithoutProfile() {
	s.fake.AddIdentity("demo@efarina.tv", "123456", "User Demo")

	rep := s.run(s.routine(demo))

	assert.Equal(s.T(), DemoCreated, rep.Demo)
	require.Len(s.T(), s.fake.Rows(backend.Users), 1)
	// the lookup session is released and never installed in the store
	assert.Equal(s.T(), 1, s.fake.Calls("SignOut"))
	assert.Nil(s.T(), s.store.Session())
}

func (s *BootstrapTestSuite) TestDuplicateProfileIsSuccess() {
	s.fake.Fail("Insert", backendtest.Conflict("duplicate key value violates unique constraint"))

	rep := s.run(s.routine(demo))

	assert.Equal(s.T(), DemoExists, rep.Demo)
	assert.NoError(s.T(), rep.Err)
}

func (s *BootstrapTestSuite) TestFailureIsSwallowed() {
	s.fake.Fail("Select", backendtest.Unavailable("service unavailable"))

	rep := s.run(s.routine(demo))

	assert.Equal(s.T(), DemoFailed, rep.Demo)
	require.Error(s.T(), rep.Err)
	assert.True(s.T(), apperr.IsKind(rep.Err, apperr.KindBootstrap))
	assert.Equal(s.T(), 0, s.fake.Calls("SignUp"))
	// readiness is not blocked
	assert.Equal(s.T(), session.Anonymous, s.store.State())
	assert.Empty(s.T(), s.toasts.All())
}

func (s *BootstrapTestSuite) TestDisabled() {
	cfg := demo
	cfg.Enabled = false

	rep := s.run(s.routine(cfg))

	assert.Equal(s.T(), DemoSkipped, rep.Demo)
	assert.Equal(s.T(), 0, s.fake.Calls("Select"))
}

func (s *BootstrapTestSuite) TestListenerSeesInitialSession() {
	var mu sync.Mutex
	var events []backend.EventType
	listener := func(ev backend.EventType, _ *backend.Session) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}
	cfg := demo
	cfg.Enabled = false

	s.run(s.routine(cfg, WithListener(listener)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(s.T(), []backend.EventType{backend.EventInitialSession}, events)
}

func (s *BootstrapTestSuite) TestWaitHonoursContext() {
	block := make(chan struct{})
	defer close(block)
	s.fake.Before = func(method, _ string) {
		if method == "Select" {
			<-block
		}
	}
	task := s.routine(demo).Start(s.ctx)
	defer task.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(s.T(), err, context.DeadlineExceeded)
	select {
	case <-task.Done():
		s.T().Fatal("task finished while blocked")
	default:
	}
}

func (s *BootstrapTestSuite) TestProvisionDemo() {
	require.NoError(s.T(), s.routine(demo).ProvisionDemo(s.ctx))
	last, _ := s.toasts.Last()
	assert.Equal(s.T(), "Akun demo berhasil dibuat", last.Description)

	require.NoError(s.T(), s.routine(demo).ProvisionDemo(s.ctx))
	last, _ = s.toasts.Last()
	assert.Equal(s.T(), "Akun demo sudah ada", last.Description)
	assert.Len(s.T(), s.fake.Rows(backend.Users), 1)
}

func (s *BootstrapTestSuite) TestProvisionDemoFailure() {
	s.fake.Fail("SignUp", backendtest.Unavailable("signups disabled"))

	err := s.routine(demo).ProvisionDemo(s.ctx)

	assert.True(s.T(), apperr.IsKind(err, apperr.KindBootstrap))
	last, _ := s.toasts.Last()
	assert.Equal(s.T(), notify.Destructive, last.Variant)
	assert.Equal(s.T(), "signups disabled", last.Description)
}

func TestBootstrapTestSuite(t *testing.T) {
	suite.Run(t, new(BootstrapTestSuite))
}
