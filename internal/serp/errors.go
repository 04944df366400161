package serp

import (
	"errors"
	"fmt"
)

// SessionUnavailableError indicates the browser driver could not start a
// session. The unit of work fails; the next query gets a fresh acquire.
type SessionUnavailableError struct {
	Err error
}

func (e SessionUnavailableError) Error() string {
	return fmt.Sprintf("session unavailable: %v", e.Err)
}

func (e SessionUnavailableError) Unwrap() error {
	return e.Err
}

// NavigationTimeoutError indicates a page-load deadline was exceeded.
// The session that produced it is suspect and must be torn down.
type NavigationTimeoutError struct {
	URL string
	Err error
}

func (e NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation timeout for %s: %v", e.URL, e.Err)
}

func (e NavigationTimeoutError) Unwrap() error {
	return e.Err
}

// AntiBotBlockedError indicates a sustained CAPTCHA or throttle signal that
// survived the bounded retry budget. The session is disposed.
type AntiBotBlockedError struct {
	Engine Engine
	Signal string
}

func (e AntiBotBlockedError) Error() string {
	return fmt.Sprintf("blocked by anti-bot protection (%s) on %s", e.Signal, e.Engine)
}

// CacheUnavailableError indicates the cache store is unreachable. It is
// absorbed inside the cache layer (read degrades to miss, write is logged)
// and never surfaces as a per-query failure.
type CacheUnavailableError struct {
	Err error
}

func (e CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable: %v", e.Err)
}

func (e CacheUnavailableError) Unwrap() error {
	return e.Err
}

// FailureLabel maps an error to a stable short label used in batch statuses
// and metrics label values.
func FailureLabel(err error) string {
	if err == nil {
		return ""
	}
	var sessionErr SessionUnavailableError
	if errors.As(err, &sessionErr) {
		return "session_unavailable"
	}
	var navErr NavigationTimeoutError
	if errors.As(err, &navErr) {
		return "navigation_timeout"
	}
	var blockedErr AntiBotBlockedError
	if errors.As(err, &blockedErr) {
		return "antibot_blocked"
	}
	var cacheErr CacheUnavailableError
	if errors.As(err, &cacheErr) {
		return "cache_unavailable"
	}
	return "other"
}
