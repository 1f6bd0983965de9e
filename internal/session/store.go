// Package session holds the dashboard's single current session and the
// actions that change it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
)

// State is where the store sits in its lifecycle.
type State int

const (
	Unknown State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// ErrSuperseded is returned by an action whose result arrived after a
// later-issued action had already been applied.
var ErrSuperseded = errors.New("session: superseded by a later action")

// ErrClosed is returned by actions completing after Close.
var ErrClosed = errors.New("session: store closed")

// Persister keeps the current session across process restarts.
type Persister interface {
	Load(ctx context.Context) (*backend.Session, error)
	Save(ctx context.Context, s *backend.Session) error
	Clear(ctx context.Context) error
}

// Listener is called after every applied change with the event type and the
// new session, nil when signed out.
type Listener func(event backend.EventType, s *backend.Session)

// ProfileUpdate is the part of a profile a user may change themselves.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
}

type Option func(*Store)

func WithPersister(p Persister) Option { return func(s *Store) { s.persist = p } }

func WithNotifications(n backend.Notifications) Option { return func(s *Store) { s.events = n } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

func WithNotifier(n notify.Notifier) Option { return func(s *Store) { s.notifier = n } }

// WithRefreshMargin refreshes restored sessions that expire within d.
func WithRefreshMargin(d time.Duration) Option { return func(s *Store) { s.margin = d } }

// Store is the single source of truth for who is signed in.
type Store struct {
	remote   backend.Remote
	persist  Persister
	events   backend.Notifications
	logger   *slog.Logger
	notifier notify.Notifier
	margin   time.Duration

	inflight atomic.Int32

	mu        sync.Mutex
	state     State
	current   *backend.Session
	issued    uint64
	applied   uint64
	closed    bool
	listeners map[int]Listener
	nextID    int
}

func New(remote backend.Remote, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		logger:    slog.Default(),
		notifier:  notify.Discard,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ticket orders actions by issue time.
type ticket uint64

func (s *Store) begin() ticket {
	s.inflight.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return ticket(s.issued)
}

func (s *Store) end() { s.inflight.Add(-1) }

type change struct {
	event   backend.EventType
	session *backend.Session
	// persist writes the new session, or clears the persisted one when nil
	persist bool
}

// apply installs ch unless a later ticket was already applied or the store is
// closed. Listeners run after the lock is released.
func (s *Store) apply(ctx context.Context, t ticket, ch change) bool {
	s.mu.Lock()
	if s.closed || uint64(t) <= s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = uint64(t)
	s.current = ch.session
	if ch.session != nil {
		s.state = Authenticated
	} else {
		s.state = Anonymous
	}
	if ch.persist && s.persist != nil {
		var err error
		if ch.session != nil {
			err = s.persist.Save(ctx, ch.session)
		} else {
			err = s.persist.Clear(ctx)
		}
		if err != nil {
			s.logger.Error("persist session", "event", ch.event, "error", err)
		}
	}
	listeners := s.snapshot()
	s.mu.Unlock()

	dispatch(listeners, ch.event, ch.session)
	return true
}

func (s *Store) snapshot() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func dispatch(listeners []Listener, event backend.EventType, sess *backend.Session) {
	for _, l := range listeners {
		var cp *backend.Session
		if sess != nil {
			v := *sess
			cp = &v
		}
		l(event, cp)
	}
}

// Subscribe registers fn for every future change. The returned func removes
// it and may be called more than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// Close drops every listener; results of actions still in flight are
// discarded when they arrive.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = map[int]Listener{}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the current session, nil when signed out.
func (s *Store) Session() *backend.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Identity returns the signed-in identity, nil when signed out.
func (s *Store) Identity() *backend.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	id := s.current.Identity
	return &id
}

// AccessToken is the bearer for remote calls; empty when signed out.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Loading is true until the first restore resolves and while any auth
// action is in flight.
func (s *Store) Loading() bool {
	if s.inflight.Load() > 0 {
		return true
	}
	return s.State() == Unknown
}

// Restore loads the persisted session, refreshing it when expired, and
// validates it against the data service. It never fails: service errors
// resolve to not found and are logged.
func (s *Store) Restore(ctx context.Context) (*backend.Session, bool) {
	t := s.begin()
	defer s.end()

	sess, drop := s.restore(ctx)
	s.apply(ctx, t, change{event: backend.EventInitialSession, session: sess, persist: sess != nil || drop})

	cur := s.Session()
	return cur, cur != nil
}

// restore reports drop when the persisted session was rejected and must be
// cleared.
func (s *Store) restore(ctx context.Context) (sess *backend.Session, drop bool) {
	if s.persist == nil {
		return nil, false
	}
	sess, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Error("load persisted session", "error", err)
		return nil, false
	}
	if sess == nil {
		return nil, false
	}

	if sess.Expired(s.margin) {
		refreshed, err := s.remote.RefreshSession(ctx, sess.RefreshToken)
		if err != nil {
			s.logger.Warn("refresh persisted session", "identity", sess.Identity.ID, "error", err)
			return nil, backend.IsUnauthorized(err)
		}
		// the old refresh token is spent once rotated
		if err := s.persist.Save(ctx, refreshed); err != nil {
			s.logger.Error("persist refreshed session", "identity", refreshed.Identity.ID, "error", err)
		}
		sess = refreshed
	}

	id, err := s.remote.GetUser(ctx, sess.AccessToken)
	if err != nil {
		s.logger.Warn("validate persisted session", "identity", sess.Identity.ID, "error", err)
		return nil, backend.IsUnauthorized(err)
	}
	sess.Identity = *id
	return sess, false
}

// SignIn replaces the current session with a new one for email.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	t := s.begin()
	defer s.end()

	sess, err := s.remote.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign in", "email", email, "error", err)
		s.notifier.Notify(ctx, notify.Failure("Login gagal", apperr.Message(err)))
		return apperr.New(apperr.KindAuth, "session.SignIn", err)
	}

	if !s.apply(ctx, t, change{event: backend.EventSignedIn, session: sess, persist: true}) {
		s.release(ctx, sess)
		if s.isClosed() {
			return ErrClosed
		}
		return ErrSuperseded
	}
	s.logger.Info("signed in", "identity", sess.Identity.ID)
	s.notifier.Notify(ctx, notify.Success("Login berhasil", "Selamat datang kembali!"))
	return nil
}

// release signs out a remote session that was never installed.
func (s *Store) release(ctx context.Context, sess *backend.Session) {
	if err := s.remote.SignOut(ctx, sess.AccessToken); err != nil {
		s.logger.Warn("release discarded session", "identity", sess.Identity.ID, "error", err)
	}
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SignUp creates an identity and its profile row. It does not sign in.
// When the profile insert fails the identity remains and the returned error
// has kind ProfileInconsistency.
func (s *Store) SignUp(ctx context.Context, email, password, name string) (*backend.Identity, error) {
	s.inflight.Add(1)
	defer s.end()

	id, err := s.remote.SignUp(ctx, backend.SignUpParams{Email: email, Password: password, Name: name})
	if err != nil {
		s.logger.Warn("sign up", "email", email, "error", err)
		s.notifier.Notify(ctx, notify.Failure("Pendaftaran gagal", apperr.Message(err)))
		return nil, apperr.New(apperr.KindAuth, "session.SignUp", err)
	}

	profile := models.User{
		ID:         id.ID,
		Name:       name,
		Email:      email,
		Role:       models.RoleUser,
		Department: models.DefaultDepartment,
		Status:     models.StatusActive,
	}
	if err := s.remote.Insert(ctx, s.AccessToken(), backend.Users, profile, nil); err != nil {
		s.logger.Error("insert profile after sign up", "identity", id.ID, "error", err)
		s.notifier.Notify(ctx, notify.Failure("Pendaftaran gagal", apperr.Message(err)))
		return id, apperr.New(apperr.KindProfileInconsistency, "session.SignUp", err)
	}

	s.logger.Info("signed up", "identity", id.ID)
	s.notifier.Notify(ctx, notify.Success("Pendaftaran berhasil", "Silahkan login dengan akun baru Anda"))
	return id, nil
}

// SignOut ends the session remotely and clears local state whatever the
// remote outcome. A remote failure is still returned.
func (s *Store) SignOut(ctx context.Context) error {
	t := s.begin()
	defer s.end()

	token := s.AccessToken()
	var err error
	if token != "" {
		err = s.remote.SignOut(ctx, token)
		// an already invalid token is signed out
		if backend.IsUnauthorized(err) {
			err = nil
		}
	}
	s.apply(ctx, t, change{event: backend.EventSignedOut, persist: true})

	if err != nil {
		s.logger.Warn("sign out", "error", err)
		s.notifier.Notify(ctx, notify.Failure("Logout gagal", apperr.Message(err)))
		return apperr.New(apperr.KindAuth, "session.SignOut", err)
	}
	s.notifier.Notify(ctx, notify.Success("Logout berhasil", "Anda telah keluar dari sistem"))
	return nil
}

// Refresh rotates the session tokens. An unauthorized refresh signs the
// store out locally.
func (s *Store) Refresh(ctx context.Context) error {
	t := s.begin()
	defer s.end()

	cur := s.Session()
	if cur == nil {
		return apperr.NotAuthenticated("session.Refresh")
	}
	sess, err := s.remote.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		if backend.IsUnauthorized(err) {
			s.apply(ctx, t, change{event: backend.EventSignedOut, persist: true})
		}
		s.logger.Warn("refresh session", "identity", cur.Identity.ID, "error", err)
		return apperr.New(apperr.KindAuth, "session.Refresh", err)
	}
	if !s.apply(ctx, t, change{event: backend.EventTokenRefreshed, session: sess, persist: true}) {
		return ErrSuperseded
	}
	return nil
}

// UpdateProfile changes the signed-in user's own profile row.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	s.inflight.Add(1)
	defer s.end()

	cur := s.Session()
	if cur == nil {
		err := apperr.NotAuthenticated("session.UpdateProfile")
		s.notifier.Notify(ctx, notify.Failure("Update profil gagal", err.Message()))
		return err
	}

	patch := models.UserPatch{Name: upd.Name, Department: upd.Department}
	if err := s.remote.Update(ctx, cur.AccessToken, backend.Users, cur.Identity.ID, patch, nil); err != nil {
		s.logger.Warn("update profile", "identity", cur.Identity.ID, "error", err)
		s.notifier.Notify(ctx, notify.Failure("Update profil gagal", apperr.Message(err)))
		return apperr.New(apperr.KindMutation, "session.UpdateProfile", err)
	}

	s.mu.Lock()
	var listeners []Listener
	var updated *backend.Session
	// the profile row changed; the identity's own name is owned by the auth service
	if !s.closed && s.current != nil && s.current.Identity.ID == cur.Identity.ID {
		v := *s.current
		updated = &v
		listeners = s.snapshot()
	}
	s.mu.Unlock()
	dispatch(listeners, backend.EventUserUpdated, updated)

	s.notifier.Notify(ctx, notify.Success("Profil diperbarui", "Perubahan profil telah disimpan"))
	return nil
}

// Watch applies remote session-change events until ctx is done or the
// stream ends. A remote sign-out of the current identity moves the store to
// Anonymous.
func (s *Store) Watch(ctx context.Context) error {
	if s.events == nil {
		return errors.New("session: no notification source configured")
	}
	cur := s.Session()
	if cur == nil {
		return apperr.NotAuthenticated("session.Watch")
	}
	ch, err := s.events.Listen(ctx, cur.AccessToken)
	if err != nil {
		return apperr.New(apperr.KindAuth, "session.Watch", err)
	}
	for ev := range ch {
		s.handle(ctx, ev)
	}
	return nil
}

func (s *Store) handle(ctx context.Context, ev backend.Event) {
	id := s.Identity()
	if id == nil || (ev.IdentityID != "" && ev.IdentityID != id.ID) {
		return
	}
	switch ev.Type {
	case backend.EventSignedOut:
		t := s.begin()
		defer s.end()
		if s.apply(ctx, t, change{event: backend.EventSignedOut, persist: true}) {
			s.logger.Info("signed out remotely", "identity", id.ID)
			s.notifier.Notify(ctx, notify.Failure("Sesi berakhir", "Silahkan login kembali"))
		}
	case backend.EventUserUpdated:
		s.mu.Lock()
		listeners := s.snapshot()
		var cur *backend.Session
		if s.current != nil {
			v := *s.current
			cur = &v
		}
		s.mu.Unlock()
		dispatch(listeners, backend.EventUserUpdated, cur)
	}
}
