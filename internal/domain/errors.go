package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransient indicates a retryable backend failure (429, 5xx, timeout).
type ErrTransient struct {
	Err error
}

func (e ErrTransient) Error() string {
	return fmt.Errorf("transient: %w", e.Err).Error()
}

func (e ErrTransient) Unwrap() error {
	return e.Err
}

// ErrAuth indicates an authentication failure (HTTP 401). Never retried.
type ErrAuth struct {
	Err error
}

func (e ErrAuth) Error() string {
	return fmt.Errorf("auth: %w", e.Err).Error()
}

func (e ErrAuth) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing product (HTTP 404 on a product lookup).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates admission was denied after blackout or backoff
// was exhausted. RetryAfter hints when the caller may try again.
type ErrRateLimited struct {
	Err        error
	RetryAfter time.Duration
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrNormalize indicates the backend payload shape was unrecognized.
type ErrNormalize struct {
	Err error
}

func (e ErrNormalize) Error() string {
	return fmt.Errorf("normalize: %w", e.Err).Error()
}

func (e ErrNormalize) Unwrap() error {
	return e.Err
}

// ErrorTypeLabel maps an error to its metrics label.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var transient ErrTransient
	if errors.As(err, &transient) {
		return "transient"
	}
	var auth ErrAuth
	if errors.As(err, &auth) {
		return "auth"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var normalize ErrNormalize
	if errors.As(err, &normalize) {
		return "normalize"
	}
	return "other"
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var transient ErrTransient
	return errors.As(err, &transient)
}
