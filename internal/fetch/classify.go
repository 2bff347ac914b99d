package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"pricehunt-engine/internal/domain"
)

type kind int

const (
	kindOK kind = iota
	kindTransient   // 5xx, network error, timeout: retry then fall back
	kindRateLimited // 429: retry then raise, no fallback
	kindAuth        // 401: fatal, immediate
	kindNotFound    // 404: empty success (search) or not-found (product)
	kindUnexpected  // anything else: permanent after one retry
)

// classify maps a backend attempt to its handling class.
func classify(err error, status int) (kind, error) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return kindTransient, domain.ErrTransient{Err: err}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return kindTransient, domain.ErrTransient{Err: err}
		}
		if errors.Is(err, context.Canceled) {
			return kindUnexpected, err
		}
		// transport-level failure
		return kindTransient, domain.ErrTransient{Err: err}
	}

	switch {
	case status >= 200 && status < 300:
		return kindOK, nil
	case status == http.StatusTooManyRequests:
		return kindRateLimited, domain.ErrRateLimited{Err: fmt.Errorf("backend returned 429")}
	case status == http.StatusUnauthorized:
		return kindAuth, domain.ErrAuth{Err: fmt.Errorf("backend rejected credentials (401)")}
	case status == http.StatusNotFound:
		return kindNotFound, domain.ErrNotFound{Err: fmt.Errorf("backend returned 404")}
	case status >= 500:
		return kindTransient, domain.ErrTransient{Err: fmt.Errorf("backend status %d", status)}
	default:
		return kindUnexpected, fmt.Errorf("unexpected backend status %d", status)
	}
}
