// Package client talks to the data service over HTTP and websockets.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

// Client implements backend.Remote and backend.Notifications.
type Client struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

var (
	_ backend.Remote        = (*Client)(nil)
	_ backend.Notifications = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Event streams are not affected.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the service at baseURL.
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:    u,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) header(h http.Header, token string) {
	if c.anonKey != "" {
		h.Set("apikey", c.anonKey)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

// do sends a request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.header(req.Header, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &backend.Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return &backend.Error{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) SignUp(ctx context.Context, params backend.SignUpParams) (*backend.Identity, error) {
	var out struct {
		User backend.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, "", params, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	in := map[string]string{"email": email, "password": password}
	var out struct {
		Session backend.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", nil, "", in, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error) {
	in := map[string]string{"refresh_token": refreshToken}
	var out struct {
		Session backend.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, "", in, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, accessToken, nil, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	var out struct {
		User backend.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateUser changes the signed-in identity's name or password. A password
// change signs out the identity's other sessions.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, name, password *string) (*backend.Identity, error) {
	in := map[string]*string{}
	if name != nil {
		in["name"] = name
	}
	if password != nil {
		in["password"] = password
	}
	var out struct {
		User backend.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/user", nil, accessToken, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func tablePath(col backend.Collection, id string) string {
	p := "/api/tables/" + url.PathEscape(string(col))
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) Select(ctx context.Context, token string, col backend.Collection, q backend.Query, out any) error {
	var data struct {
		Rows json.RawMessage `json:"rows"`
	}
	if err := c.do(ctx, http.MethodGet, tablePath(col, ""), q.Encode(), token, nil, &data); err != nil {
		return err
	}
	return decodeRows(data.Rows, out)
}

func (c *Client) Insert(ctx context.Context, token string, col backend.Collection, row any, out any) error {
	var data struct {
		Row json.RawMessage `json:"row"`
	}
	if err := c.do(ctx, http.MethodPost, tablePath(col, ""), nil, token, row, &data); err != nil {
		return err
	}
	return decodeRows(data.Row, out)
}

func (c *Client) Update(ctx context.Context, token string, col backend.Collection, id string, patch any, out any) error {
	var data struct {
		Row json.RawMessage `json:"row"`
	}
	if err := c.do(ctx, http.MethodPatch, tablePath(col, id), nil, token, patch, &data); err != nil {
		return err
	}
	return decodeRows(data.Row, out)
}

func (c *Client) Delete(ctx context.Context, token string, col backend.Collection, id string) error {
	return c.do(ctx, http.MethodDelete, tablePath(col, id), nil, token, nil, nil)
}

func decodeRows(raw json.RawMessage, out any) error {
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

// Listen opens the session event stream. The channel is closed when ctx is
// done or the connection drops.
func (c *Client) Listen(ctx context.Context, accessToken string) (<-chan backend.Event, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/api/auth/events"

	h := http.Header{}
	c.header(h, accessToken)
	conn, resp, err := c.dialer.DialContext(ctx, u.String(), h)
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			var env envelope
			_ = json.NewDecoder(resp.Body).Decode(&env)
			resp.Body.Close()
			return nil, &backend.Error{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		}
		return nil, fmt.Errorf("dial events: %w", err)
	}

	out := make(chan backend.Event, 8)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var ev backend.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
					c.logger.Warn("event stream ended", "error", err)
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
