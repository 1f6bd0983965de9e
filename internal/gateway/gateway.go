// Package gateway wraps create, update and delete calls against a collection
// with busy flags, notifications and stale marking of the collection's read.
package gateway

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/cache"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
)

// Op is a mutation kind with its own busy flag.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Sessions supplies the bearer token and identity of the signed-in user.
type Sessions interface {
	AccessToken() string
	Identity() *backend.Identity
}

// Messages are the success descriptions shown per operation.
type Messages struct {
	Created string
	Updated string
	Deleted string
}

func (m Messages) of(op Op) string {
	switch op {
	case OpCreate:
		return m.Created
	case OpUpdate:
		return m.Updated
	}
	return m.Deleted
}

type Option func(*Gateway)

func WithLogger(l *slog.Logger) Option { return func(g *Gateway) { g.logger = l } }

func WithNotifier(n notify.Notifier) Option { return func(g *Gateway) { g.notifier = n } }

// Gateway mutates one collection. Concurrent mutations are not ordered.
type Gateway struct {
	remote     backend.Tables
	sessions   Sessions
	cache      *cache.Client
	collection backend.Collection
	messages   Messages
	logger     *slog.Logger
	notifier   notify.Notifier

	creating atomic.Int32
	updating atomic.Int32
	deleting atomic.Int32
}

func New(remote backend.Tables, sessions Sessions, c *cache.Client, collection backend.Collection, msgs Messages, opts ...Option) *Gateway {
	g := &Gateway{
		remote:     remote,
		sessions:   sessions,
		cache:      c,
		collection: collection,
		messages:   msgs,
		logger:     slog.Default(),
		notifier:   notify.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key is the cache key of the collection's read query.
func (g *Gateway) Key() cache.Key { return cache.Key(g.collection) }

func (g *Gateway) counter(op Op) *atomic.Int32 {
	switch op {
	case OpCreate:
		return &g.creating
	case OpUpdate:
		return &g.updating
	}
	return &g.deleting
}

// Busy reports whether an op call is in flight.
func (g *Gateway) Busy(op Op) bool { return g.counter(op).Load() > 0 }

// Create inserts row and decodes the stored row into out when non-nil.
func (g *Gateway) Create(ctx context.Context, row, out any) error {
	return g.do(ctx, OpCreate, func(ctx context.Context, token string) error {
		return g.remote.Insert(ctx, token, g.collection, row, out)
	})
}

func (g *Gateway) Update(ctx context.Context, id string, patch, out any) error {
	return g.do(ctx, OpUpdate, func(ctx context.Context, token string) error {
		return g.remote.Update(ctx, token, g.collection, id, patch, out)
	})
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.do(ctx, OpDelete, func(ctx context.Context, token string) error {
		return g.remote.Delete(ctx, token, g.collection, id)
	})
}

func (g *Gateway) do(ctx context.Context, op Op, call func(ctx context.Context, token string) error) error {
	busy := g.counter(op)
	busy.Add(1)
	defer busy.Add(-1)

	if err := call(ctx, g.sessions.AccessToken()); err != nil {
		return g.fail(ctx, op, err)
	}
	g.cache.Invalidate(g.Key())
	g.notifier.Notify(ctx, notify.Success("Berhasil", g.messages.of(op)))
	return nil
}

// fail reports err without touching the cache.
func (g *Gateway) fail(ctx context.Context, op Op, err error) error {
	g.logger.Warn("mutation failed", "collection", g.collection, "op", op, "error", err)
	g.notifier.Notify(ctx, notify.Failure("Error", apperr.Message(err)))
	return apperr.New(apperr.KindMutation, "gateway."+string(op)+" "+string(g.collection), err)
}

// listQuery builds the cached read of the collection.
func listQuery[T any](g *Gateway, q backend.Query) *cache.Query[[]T] {
	return cache.NewQuery(g.cache, g.Key(), func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := g.remote.Select(ctx, g.sessions.AccessToken(), g.collection, q, &rows); err != nil {
			g.logger.Warn("list failed", "collection", g.collection, "error", err)
			g.notifier.Notify(ctx, notify.Failure("Error", apperr.Message(err)))
			return nil, err
		}
		return rows, nil
	})
}
