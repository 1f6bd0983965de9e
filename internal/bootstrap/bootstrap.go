// Package bootstrap runs the dashboard's startup side effects: session
// restore and best-effort provisioning of the demo account.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
	"github.com/taufik7000/efarina-finance-flow/internal/session"
)

// DemoOutcome says what provisioning did.
type DemoOutcome string

const (
	DemoSkipped DemoOutcome = "skipped"
	DemoExists  DemoOutcome = "exists"
	DemoCreated DemoOutcome = "created"
	DemoFailed  DemoOutcome = "failed"
)

// Report describes a finished bootstrap run.
type Report struct {
	Restored bool
	Demo     DemoOutcome
	// Err is the logged BootstrapError, if any. It is never returned.
	Err      error
	Duration time.Duration
}

type Option func(*Routine)

func WithLogger(l *slog.Logger) Option { return func(r *Routine) { r.logger = l } }

func WithNotifier(n notify.Notifier) Option { return func(r *Routine) { r.notifier = n } }

// WithListener subscribes fn to the session store for the lifetime of the task.
func WithListener(fn session.Listener) Option { return func(r *Routine) { r.listener = fn } }

// Routine performs startup work against a session store and the data service.
type Routine struct {
	store    *session.Store
	remote   backend.Remote
	demo     config.DemoConfig
	logger   *slog.Logger
	notifier notify.Notifier
	listener session.Listener
}

func New(store *session.Store, remote backend.Remote, demo config.DemoConfig, opts ...Option) *Routine {
	r := &Routine{
		store:    store,
		remote:   remote,
		demo:     demo,
		logger:   slog.Default(),
		notifier: notify.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Task is a running bootstrap. Its failure never propagates; Wait only
// reports what happened.
type Task struct {
	done        chan struct{}
	report      Report
	unsubscribe func()
}

// Done is closed when the run has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the run finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Report, error) {
	select {
	case <-t.done:
		return t.report, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

// Close releases the listener registered by WithListener.
func (t *Task) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

// Start runs the routine in the background.
func (r *Routine) Start(ctx context.Context) *Task {
	t := &Task{done: make(chan struct{})}
	if r.listener != nil {
		t.unsubscribe = r.store.Subscribe(r.listener)
	}
	go func() {
		defer close(t.done)
		t.report = r.run(ctx)
	}()
	return t
}

func (r *Routine) run(ctx context.Context) Report {
	start := time.Now()
	rep := Report{Demo: DemoSkipped}

	_, rep.Restored = r.store.Restore(ctx)

	if r.demo.Enabled {
		outcome, err := r.ensureDemo(ctx)
		rep.Demo = outcome
		if err != nil {
			rep.Demo = DemoFailed
			rep.Err = apperr.New(apperr.KindBootstrap, "bootstrap.demo", err)
			r.logger.Error("provision demo account", "email", r.demo.Email, "error", err)
		} else {
			r.logger.Info("demo account ready", "email", r.demo.Email, "outcome", outcome)
		}
	}

	rep.Duration = time.Since(start)
	return rep
}

// ProvisionDemo creates the demo account on request and reports the result
// as a notification. Unlike the startup run it returns its error.
func (r *Routine) ProvisionDemo(ctx context.Context) error {
	outcome, err := r.ensureDemo(ctx)
	if err != nil {
		r.logger.Error("provision demo account", "email", r.demo.Email, "error", err)
		r.notifier.Notify(ctx, notify.Failure("Gagal", apperr.Message(err)))
		return apperr.New(apperr.KindBootstrap, "bootstrap.ProvisionDemo", err)
	}
	if outcome == DemoExists {
		r.notifier.Notify(ctx, notify.Success("Informasi", "Akun demo sudah ada"))
		return nil
	}
	r.notifier.Notify(ctx, notify.Success("Berhasil", "Akun demo berhasil dibuat"))
	return nil
}

// ensureDemo checks for the demo profile and creates the identity and
// profile when it is missing. Existing rows count as success.
func (r *Routine) ensureDemo(ctx context.Context) (DemoOutcome, error) {
	token := r.store.AccessToken()

	var rows []models.User
	q := backend.Query{}.Eq("email", r.demo.Email).WithLimit(1)
	if err := r.remote.Select(ctx, token, backend.Users, q, &rows); err != nil {
		return DemoFailed, err
	}
	if len(rows) > 0 {
		return DemoExists, nil
	}

	id, err := r.remote.SignUp(ctx, backend.SignUpParams{
		Email:    r.demo.Email,
		Password: r.demo.Password,
		Name:     r.demo.Name,
	})
	if err != nil {
		if !backend.IsConflict(err) {
			return DemoFailed, err
		}
		// identity without profile: sign in only to learn its id
		sess, err := r.remote.SignInWithPassword(ctx, r.demo.Email, r.demo.Password)
		if err != nil {
			return DemoFailed, err
		}
		defer func() {
			if err := r.remote.SignOut(ctx, sess.AccessToken); err != nil {
				r.logger.Warn("sign out demo lookup session", "error", err)
			}
		}()
		id = &sess.Identity
		token = sess.AccessToken
	}

	profile := models.User{
		ID:         id.ID,
		Name:       r.demo.Name,
		Email:      r.demo.Email,
		Role:       models.RoleUser,
		Department: r.demo.Department,
		Status:     models.StatusActive,
	}
	if err := r.remote.Insert(ctx, token, backend.Users, profile, nil); err != nil {
		if backend.IsConflict(err) {
			return DemoExists, nil
		}
		return DemoFailed, err
	}
	return DemoCreated, nil
}
