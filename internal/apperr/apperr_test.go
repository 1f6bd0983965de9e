package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

func TestIsKind(t *testing.T) {
	remote := &backend.Error{Status: http.StatusUnauthorized, Message: "Invalid login credentials"}
	err := New(KindAuth, "session.SignIn", remote)

	assert.True(t, IsKind(err, KindAuth))
	assert.False(t, IsKind(err, KindMutation))
	assert.True(t, IsKind(fmt.Errorf("wrapped: %w", err), KindAuth))
	assert.False(t, IsKind(errors.New("plain"), KindAuth))
	assert.False(t, IsKind(nil, KindAuth))
}

func TestIsKind_Nested(t *testing.T) {
	inner := New(KindProfileInconsistency, "session.SignUp", errors.New("insert failed"))
	outer := New(KindAuth, "session.SignUp", inner)

	assert.True(t, IsKind(outer, KindAuth))
	assert.True(t, IsKind(outer, KindProfileInconsistency))
}

func TestMessage(t *testing.T) {
	remote := &backend.Error{Status: http.StatusConflict, Message: "User already registered"}

	assert.Equal(t, "User already registered", Message(New(KindAuth, "op", remote)))
	assert.Equal(t, "User already registered", Message(remote))
	assert.Equal(t, "boom", Message(New(KindMutation, "op", errors.New("boom"))))
	assert.Equal(t, "User tidak ditemukan", Message(NotAuthenticated("op")))
	assert.Equal(t, "", Message(nil))
}

func TestErrorString(t *testing.T) {
	err := New(KindMutation, "gateway.Delete", errors.New("boom"))
	assert.Equal(t, "gateway.Delete: boom", err.Error())
	assert.ErrorIs(t, NotAuthenticated("x"), ErrNotAuthenticated)
}
