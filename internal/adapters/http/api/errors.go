package api

import (
	"errors"
	"net/http"

	eventqueue "github.com/okian/ethos/internal/adapters/mq/queue"
	service "github.com/okian/ethos/internal/app"
	"github.com/okian/ethos/internal/domain/tracker"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("unavailable")
)

// Error ties an operation name and a sentinel kind to the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind wraps err under op with kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind for op without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap classifies err from a downstream call and wraps it under op.
func Wrap(op string, err error) error {
	return WrapKind(op, kindOf(err), err)
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidSnapshot):
		return ErrBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrUnknownCharacter), errors.Is(err, tracker.ErrIndexOutOfRange):
		return ErrNotFound
	case errors.Is(err, ErrBackpressure), errors.Is(err, eventqueue.ErrFull):
		return ErrBackpressure
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted), errors.Is(err, eventqueue.ErrClosed):
		return ErrUnavailable
	default:
		return errInternal
	}
}

var errInternal = errors.New("internal error")

// statusOf maps an error to its HTTP status and response code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
