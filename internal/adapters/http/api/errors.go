package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/clashintel/internal/adapters/mq/queue"
	"github.com/okian/clashintel/internal/adapters/repository"
	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/domain/comparison"
	"github.com/okian/clashintel/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("leadership role required")
	ErrUnavailable  = errors.New("service unavailable")

	errEmptyBatch = errors.New("empty batch")
	errBadDays    = errors.New("days must be an integer")
	errBadTH      = errors.New("th must be a number")
)

// Wrap prefixes err with the operation name.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind tags err with a sentinel kind so errors.Is matches both.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns a bare error of the given kind.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// classify maps an error to an HTTP status and a short code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidTag),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, model.ErrInvalidRecord),
		errors.Is(err, service.ErrClanTagRequired):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, comparison.ErrPlayerNotInClan),
		errors.Is(err, service.ErrClanNotTracked),
		errors.Is(err, service.ErrNoInsights):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted),
		errors.Is(err, queue.ErrClosed), errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
