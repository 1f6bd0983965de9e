package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure reported by the data service. Message is meant for
// users and is surfaced verbatim.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data service: status %d", e.Status)
	}
	return e.Message
}

func hasStatus(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == status
}

// IsConflict reports an "already exists" / duplicate key failure.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsUnauthorized reports a rejected or expired credential.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }
