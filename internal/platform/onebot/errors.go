package onebot

import (
	"errors"
	"fmt"
)

var (
	ErrClosed       = errors.New("onebot client closed")
	ErrInvalidID    = errors.New("invalid numeric id")
	ErrInvalidParam = errors.New("invalid parameter")
	ErrBotNotAdmin  = errors.New("bot lacks admin rights in group")
)

// Kind classifies a failed control API call.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindResponseFormat
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindResponseFormat:
		return "response_format"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every control API call.
// Status is the HTTP status when a response was received; Retcode is set for
// decoded remote errors.
type Error struct {
	Kind    Kind
	Action  string
	Status  int
	Retcode int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Kind == KindRemote && e.Retcode != 0:
		return fmt.Sprintf("onebot %s: %s error (retcode %d): %s", e.Action, e.Kind, e.Retcode, msg)
	case e.Status != 0 && e.Kind == KindRemote:
		return fmt.Sprintf("onebot %s: %s error (http %d): %s", e.Action, e.Kind, e.Status, msg)
	default:
		return fmt.Sprintf("onebot %s: %s error: %s", e.Action, e.Kind, msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a control API error, or zero if err is not one.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// Retryable reports whether another attempt could change the outcome:
// transport failures, timeouts and HTTP 5xx.
func Retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindRemote:
		return apiErr.Status >= 500
	default:
		return false
	}
}
