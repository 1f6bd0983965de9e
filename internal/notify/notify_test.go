package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Notify(context.Background(), Success("Berhasil", "Transaksi berhasil ditambahkan"))
	w.Notify(context.Background(), Failure("Error", ""))

	assert.Equal(t, "* Berhasil: Transaksi berhasil ditambahkan\n! Error\n", buf.String())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(context.Background(), Success("a", ""))
	r.Notify(context.Background(), Failure("b", "x"))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, Default, all[0].Variant)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, Destructive, last.Variant)

	r.Reset()
	assert.Empty(t, r.All())
}

func TestLoggerAndMulti(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var rec Recorder

	Multi{NewLogger(logger), &rec, Discard}.Notify(context.Background(), Failure("Error", "gagal"))

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "title=Error")
	assert.Len(t, rec.All(), 1)
}
