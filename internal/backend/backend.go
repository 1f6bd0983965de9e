// Package backend defines the contract between the dashboard and the data
// service: identities, sessions, auth operations and table CRUD over the
// users and transactions collections.
package backend

import (
	"context"
	"time"
)

// Collection names a table exposed by the data service.
type Collection string

const (
	Users        Collection = "users"
	Transactions Collection = "transactions"
)

func (c Collection) Valid() bool {
	return c == Users || c == Transactions
}

// Identity is the public projection of an authenticated account.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs an identity with the tokens that authenticate it.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"user"`
}

// Expired reports whether the access token expires within margin.
func (s *Session) Expired(margin time.Duration) bool {
	return !s.ExpiresAt.After(time.Now().Add(margin))
}

// EventType names a session change.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event is a session-change notification pushed by the data service.
type Event struct {
	Type       EventType `json:"type"`
	IdentityID string    `json:"identity_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	At         time.Time `json:"at"`
}

// SignUpParams creates a new identity.
type SignUpParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Auth is the authentication half of the data service.
type Auth interface {
	SignUp(ctx context.Context, params SignUpParams) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
}

// Tables is the collection half of the data service. Rows are decoded into
// out, which must be a pointer; token may be empty for anonymous access.
type Tables interface {
	Select(ctx context.Context, token string, c Collection, q Query, out any) error
	Insert(ctx context.Context, token string, c Collection, row any, out any) error
	Update(ctx context.Context, token string, c Collection, id string, patch any, out any) error
	Delete(ctx context.Context, token string, c Collection, id string) error
}

// Remote is a typed handle to the whole data service.
type Remote interface {
	Auth
	Tables
}

// Notifications streams session-change events for the holder of accessToken
// until ctx is cancelled.
type Notifications interface {
	Listen(ctx context.Context, accessToken string) (<-chan Event, error)
}
