package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind says why a generation failed. Callers such as the coach only need
// it to decide whether asking again is worthwhile.
type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindRateLimited Kind = "rate limited"
	KindInvalid     Kind = "invalid response"
	KindTruncated   Kind = "truncated"
)

// Error is a failed generation from any provider.
type Error struct {
	Kind       Kind
	Status     int             // provider HTTP status, 0 when there was none
	RetryAfter time.Duration   // set on rate limits the provider hinted at
	Content    json.RawMessage // the rejected reply, if one arrived
	Err        error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrRateLimited = &Error{Kind: KindRateLimited}
	ErrInvalid     = &Error{Kind: KindInvalid}
	ErrTruncated   = &Error{Kind: KindTruncated}
)

func (e *Error) Error() string {
	msg := "LLM " + string(e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Err: err}
}

func invalid(content json.RawMessage, err error) error {
	return &Error{Kind: KindInvalid, Content: content, Err: err}
}

func truncated(content json.RawMessage) error {
	return &Error{Kind: KindTruncated, Content: content, Err: errors.New("max tokens reached")}
}

// fromStatus classifies an SDK error carrying an HTTP status.
func fromStatus(status int, err error) error {
	kind := KindUnavailable
	if status == http.StatusTooManyRequests {
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Status: status, Err: err}
}
