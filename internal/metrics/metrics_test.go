package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(nil)
	m.Auth("signin", nil)
	m.Auth("signin", errors.New("bad password"))
	m.Auth("signin", errors.New("bad password"))
	m.Mutation("transactions", "insert", nil)
	m.ObserveRequest("GET", "/api/tables/:collection", 200, 12*time.Millisecond)
	m.ListenerOpened()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authTotal.WithLabelValues("signin", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authTotal.WithLabelValues("signin", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutationTotal.WithLabelValues("transactions", "insert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listeners))
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.Auth("signup", nil)
	second.Auth("signup", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(second.authTotal.WithLabelValues("signup", "ok")))
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.Mutation("users", "delete", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `efarina_tables_mutations_total{collection="users",op="delete",result="ok"} 1`)
}
