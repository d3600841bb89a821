// Package services defines the business logic of the engagement pipeline.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Admission rejections (duplicate views, rate caps, bots) are not errors; they
// are reported as domain.Reason values. Translation into HTTP status codes is
// performed at the handler layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized is returned when an operation needs an authenticated
	// user and none was supplied. Nothing is mutated.
	ErrUnauthorized = errors.New("authenticated user required")

	// ErrInvalidPostID is returned for an empty or oversized post identifier.
	ErrInvalidPostID = errors.New("invalid post id")

	// ErrInvalidSession is returned when an engagement beacon carries no
	// usable session token.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrInvalidMetrics is returned when an engagement beacon is out of range
	// (scroll depth outside 0..100 or a negative counter).
	ErrInvalidMetrics = errors.New("engagement metrics out of range")

	// ErrStatsUnavailable is returned when no aggregate can be served: nothing
	// is cached or persisted and derivation failed.
	ErrStatsUnavailable = errors.New("stats unavailable")

	// ErrLimiterUnavailable wraps key-value store failures during admission.
	ErrLimiterUnavailable = errors.New("admission store unavailable")

	// ErrTrackingDegraded wraps persistence failures of a tracking write. The
	// primary user action proceeds; callers report a degraded result.
	ErrTrackingDegraded = errors.New("tracking degraded")
)

const maxPostIDLen = 64

func validPostID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= maxPostIDLen
}
