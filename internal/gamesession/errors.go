package gamesession

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/store"
)

var (
	// ErrSessionActive is returned when starting while a session is live.
	ErrSessionActive = errors.New("a session is already active")
	// ErrSessionNotStarted is returned for mutations without a live session.
	ErrSessionNotStarted = errors.New("no active session")
)

// SessionStartFailure means the remote session could not be created. Play
// must not start; the caller may retry.
type SessionStartFailure struct {
	Err error
}

func (e *SessionStartFailure) Error() string {
	return fmt.Sprintf("start session: %v", e.Err)
}

func (e *SessionStartFailure) Unwrap() error { return e.Err }

// SessionEndFailure means the final result could not be submitted. The
// session is still over locally.
type SessionEndFailure struct {
	SessionID string
	Attempts  int
	Err       error
}

func (e *SessionEndFailure) Error() string {
	return fmt.Sprintf("finalize session %s after %d attempt(s): %v", e.SessionID, e.Attempts, e.Err)
}

func (e *SessionEndFailure) Unwrap() error { return e.Err }

// retryable reports whether another finalize attempt may succeed: network
// failures and temporary API statuses. Validation errors and definite
// answers such as 404 or 409 are final.
func retryable(err error) bool {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// alreadyFinalized reports whether the store says the session already has
// its result.
func alreadyFinalized(err error) bool {
	return api.StatusOf(err) == http.StatusConflict || errors.Is(err, store.ErrAlreadyFinalized)
}
