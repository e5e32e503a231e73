// Package resilience holds the failure taxonomy and retry policy shared by
// the upstream clients and the profile pool. Failures are contained at the
// smallest unit (one paper, one review, one author); nothing in this package
// aborts an enclosing year or collection request.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// RateLimitedError signals an upstream 429. The profile pool reacts with
// exponential backoff before retrying the same identifier.
type RateLimitedError struct {
	Err        error
	RetryAfter string
}

func (e *RateLimitedError) Error() string { return e.Err.Error() }

func (e *RateLimitedError) Unwrap() error { return e.Err }

// NotFoundError signals an absent profile or record. This is a valid
// outcome, not a failure: anonymized or withdrawn identifiers simply
// produce no output row.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "not found: " + e.ID }

// MalformedError signals a payload that could not be parsed at field
// level. The affected record is substituted with explicit empty values or
// skipped; the error never propagates past the record.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string { return e.Err.Error() }

func (e *MalformedError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the chain contains a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsNotFound reports whether the chain contains a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsMalformed reports whether the chain contains a MalformedError. A record
// claiming one API shape but parsing like the other is wrapped as malformed
// for that record only.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// IsTransient returns true for errors worth retrying: rate limits, network
// timeouts, connection resets, DNS failures. Malformed payloads and
// not-found outcomes are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if IsRateLimited(err) {
		return true
	}
	if IsNotFound(err) || IsMalformed(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
