package service

import "errors"

// Errors returned by the services. Messages are shown to users as is.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrLocked             = errors.New("Akun terkunci sementara, coba lagi nanti")
	ErrIdentityExists     = errors.New("User already registered")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrInvalidRefresh     = errors.New("Invalid refresh token")
	ErrNotFound           = errors.New("Data tidak ditemukan")
	ErrConflict           = errors.New("duplicate key value violates unique constraint")
	ErrForbidden          = errors.New("Akses ditolak")
)

// ValidationError is a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
