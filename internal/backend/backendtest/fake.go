// Package backendtest provides an in-memory data service for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

type identity struct {
	backend.Identity
	password string
}

// Fake implements backend.Remote and backend.Notifications in memory.
// Failures can be injected per method and every call is counted.
type Fake struct {
	// Before runs at the start of every call with the method name and its
	// key argument (email, collection or id). It may block.
	Before func(method, arg string)

	mu         sync.Mutex
	identities map[string]*identity // by lower-cased email
	sessions   map[string]*backend.Session
	refresh    map[string]string // refresh token -> access token
	rows       map[backend.Collection][]map[string]any
	failures   map[string]error
	calls      map[string]int
	listeners  []chan backend.Event
	seq        int
}

func New() *Fake {
	return &Fake{
		identities: map[string]*identity{},
		sessions:   map[string]*backend.Session{},
		refresh:    map[string]string{},
		rows:       map[backend.Collection][]map[string]any{},
		failures:   map[string]error{},
		calls:      map[string]int{},
	}
}

// Unauthorized, Conflict and Unavailable are ready-made service errors.
func Unauthorized(msg string) error {
	return &backend.Error{Status: http.StatusUnauthorized, Code: 40101, Message: msg}
}

func Conflict(msg string) error {
	return &backend.Error{Status: http.StatusConflict, Code: 40901, Message: msg}
}

func Unavailable(msg string) error {
	return &backend.Error{Status: http.StatusServiceUnavailable, Code: 50001, Message: msg}
}

// Fail makes method return err until Clear is called.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

func (f *Fake) Clear(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, method)
}

// Calls reports how often method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Rows returns a copy of every row stored in c.
func (f *Fake) Rows(c backend.Collection) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.rows[c]))
	for _, r := range f.rows[c] {
		out = append(out, cloneRow(r))
	}
	return out
}

// AddIdentity registers an identity directly and returns it.
func (f *Fake) AddIdentity(email, password, name string) backend.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := &identity{
		Identity: backend.Identity{ID: uuid.NewString(), Email: email, Name: name, CreatedAt: time.Now().UTC()},
		password: password,
	}
	f.identities[strings.ToLower(email)] = id
	return id.Identity
}

// Revoke invalidates a session as if it was signed out elsewhere and pushes
// a SIGNED_OUT event to listeners.
func (f *Fake) Revoke(accessToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[accessToken]
	if !ok {
		return
	}
	delete(f.sessions, accessToken)
	delete(f.refresh, s.RefreshToken)
	ev := backend.Event{Type: backend.EventSignedOut, IdentityID: s.Identity.ID, At: time.Now()}
	for _, ch := range f.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Listeners reports how many Listen streams are open.
func (f *Fake) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// ExpireAccess makes the access token look expired to clients while keeping
// its refresh token valid.
func (f *Fake) ExpireAccess(accessToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[accessToken]; ok {
		s.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

func (f *Fake) enter(method, arg string) error {
	if f.Before != nil {
		f.Before(method, arg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.failures[method]
}

func (f *Fake) issue(id backend.Identity) *backend.Session {
	f.seq++
	s := &backend.Session{
		AccessToken:  fmt.Sprintf("access-%d-%s", f.seq, id.ID),
		RefreshToken: fmt.Sprintf("refresh-%d-%s", f.seq, id.ID),
		ExpiresAt:    time.Now().Add(time.Hour),
		Identity:     id,
	}
	f.sessions[s.AccessToken] = s
	f.refresh[s.RefreshToken] = s.AccessToken
	cp := *s
	return &cp
}

func (f *Fake) SignUp(_ context.Context, params backend.SignUpParams) (*backend.Identity, error) {
	if err := f.enter("SignUp", params.Email); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(params.Email)
	if _, ok := f.identities[key]; ok {
		return nil, Conflict("User already exists")
	}
	id := &identity{
		Identity: backend.Identity{ID: uuid.NewString(), Email: params.Email, Name: params.Name, CreatedAt: time.Now().UTC()},
		password: params.Password,
	}
	f.identities[key] = id
	out := id.Identity
	return &out, nil
}

func (f *Fake) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	if err := f.enter("SignInWithPassword", email); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.identities[strings.ToLower(email)]
	if !ok || id.password != password {
		return nil, Unauthorized("Invalid login credentials")
	}
	return f.issue(id.Identity), nil
}

func (f *Fake) RefreshSession(_ context.Context, refreshToken string) (*backend.Session, error) {
	if err := f.enter("RefreshSession", refreshToken); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	access, ok := f.refresh[refreshToken]
	if !ok {
		return nil, Unauthorized("Invalid refresh token")
	}
	old, ok := f.sessions[access]
	delete(f.refresh, refreshToken)
	if !ok {
		return nil, Unauthorized("Session revoked")
	}
	delete(f.sessions, access)
	return f.issue(old.Identity), nil
}

func (f *Fake) SignOut(_ context.Context, accessToken string) error {
	if err := f.enter("SignOut", accessToken); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[accessToken]; ok {
		delete(f.refresh, s.RefreshToken)
		delete(f.sessions, accessToken)
	}
	return nil
}

func (f *Fake) GetUser(_ context.Context, accessToken string) (*backend.Identity, error) {
	if err := f.enter("GetUser", accessToken); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[accessToken]
	if !ok || s.Expired(0) {
		return nil, Unauthorized("JWT expired")
	}
	id := s.Identity
	return &id, nil
}

// Listen returns a channel of session events pushed through Revoke.
func (f *Fake) Listen(ctx context.Context, accessToken string) (<-chan backend.Event, error) {
	if err := f.enter("Listen", accessToken); err != nil {
		return nil, err
	}
	ch := make(chan backend.Event, 8)
	f.mu.Lock()
	f.listeners = append(f.listeners, ch)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, l := range f.listeners {
			if l == ch {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (f *Fake) Select(_ context.Context, _ string, c backend.Collection, q backend.Query, out any) error {
	if err := f.enter("Select", string(c)); err != nil {
		return err
	}
	f.mu.Lock()
	var rows []map[string]any
	for _, r := range f.rows[c] {
		if matchAll(r, q.Filters) {
			rows = append(rows, cloneRow(r))
		}
	}
	f.mu.Unlock()

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			c := compare(rows[i][q.OrderBy], rows[j][q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return remarshal(rows, out)
}

func (f *Fake) Insert(_ context.Context, _ string, c backend.Collection, row any, out any) error {
	if err := f.enter("Insert", string(c)); err != nil {
		return err
	}
	var r map[string]any
	if err := remarshal(row, &r); err != nil {
		return err
	}
	if id, _ := r["id"].(string); id == "" {
		r["id"] = uuid.NewString()
	}
	if ts, _ := r["created_at"].(string); ts == "" || strings.HasPrefix(ts, "0001-") {
		r["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	f.mu.Lock()
	for _, existing := range f.rows[c] {
		if existing["id"] == r["id"] || (c == backend.Users && strings.EqualFold(fmt.Sprint(existing["email"]), fmt.Sprint(r["email"]))) {
			f.mu.Unlock()
			return Conflict("duplicate key value violates unique constraint")
		}
	}
	f.rows[c] = append(f.rows[c], r)
	saved := cloneRow(r)
	f.mu.Unlock()

	if out == nil {
		return nil
	}
	return remarshal(saved, out)
}

func (f *Fake) Update(_ context.Context, _ string, c backend.Collection, id string, patch any, out any) error {
	if err := f.enter("Update", id); err != nil {
		return err
	}
	var fields map[string]any
	if err := remarshal(patch, &fields); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[c] {
		if r["id"] != id {
			continue
		}
		for k, v := range fields {
			if v != nil && k != "id" {
				r[k] = v
			}
		}
		if out == nil {
			return nil
		}
		return remarshal(cloneRow(r), out)
	}
	return &backend.Error{Status: http.StatusNotFound, Code: 40401, Message: "record not found"}
}

func (f *Fake) Delete(_ context.Context, _ string, c backend.Collection, id string) error {
	if err := f.enter("Delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[c]
	for i, r := range rows {
		if r["id"] == id {
			f.rows[c] = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	return nil
}

func remarshal(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func cloneRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matchAll(r map[string]any, filters []backend.Filter) bool {
	for _, f := range filters {
		if !match(r[f.Column], f) {
			return false
		}
	}
	return true
}

func match(v any, f backend.Filter) bool {
	c := compare(v, f.Value)
	switch f.Op {
	case backend.OpEq:
		return c == 0
	case backend.OpNeq:
		return c != 0
	case backend.OpGt:
		return c > 0
	case backend.OpGte:
		return c >= 0
	case backend.OpLt:
		return c < 0
	case backend.OpLte:
		return c <= 0
	case backend.OpLike, backend.OpILike:
		pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(f.Value), "%", ".*") + "$"
		if f.Op == backend.OpILike {
			pattern = "(?i)" + pattern
		}
		ok, _ := regexp.MatchString(pattern, fmt.Sprint(v))
		return ok
	}
	return false
}

// compare orders numerically when both sides parse as numbers.
func compare(a, b any) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	af, errA := strconv.ParseFloat(as, 64)
	bf, errB := strconv.ParseFloat(bs, 64)
	if errA == nil && errB == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(as, bs)
}
