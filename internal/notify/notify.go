// Package notify delivers transient user-facing notifications (toasts).
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type Variant string

const (
	Default     Variant = "default"
	Destructive Variant = "destructive"
)

// Notification is a short message shown to the user.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Success builds a default notification.
func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: Default}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: Destructive}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notification) {}

// Logger writes notifications to a slog.Logger; destructive ones at warn level.
type Logger struct {
	Log *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{Log: logger}
}

func (l *Logger) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Variant == Destructive {
		level = slog.LevelWarn
	}
	l.Log.Log(ctx, level, "notification", "title", n.Title, "description", n.Description, "variant", string(n.Variant))
}

// Writer prints notifications as single lines, for CLI output.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(_ context.Context, n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := "*"
	if n.Variant == Destructive {
		prefix = "!"
	}
	if n.Description == "" {
		fmt.Fprintf(w.out, "%s %s\n", prefix, n.Title)
		return
	}
	fmt.Fprintf(w.out, "%s %s: %s\n", prefix, n.Title, n.Description)
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.seen))
	copy(out, r.seen)
	return out
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return Notification{}, false
	}
	return r.seen[len(r.seen)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = nil
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}
