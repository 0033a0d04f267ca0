package download

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPError is returned for replies with a status other than 2xx.
type HTTPError struct {
	StatusCode int
	URL        string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s returned status %d %s (retry after %v)",
			e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.RetryAfter)
	}
	return fmt.Sprintf("%s returned status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// SSLError carries certificate verification failures of a request.
type SSLError struct {
	URL    string
	Errors []string
}

func (e *SSLError) Error() string {
	return fmt.Sprintf("SSL errors for %s: %v", e.URL, e.Errors)
}

// IsHTTPError checks if an error is an HTTP status error.
func IsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// sslErrors extracts certificate problems from a transport error.
// It returns nil for all other errors.
func sslErrors(err error) []string {
	var msgs []string

	var verr *tls.CertificateVerificationError
	if errors.As(err, &verr) {
		msgs = append(msgs, verr.Err.Error())
		return msgs
	}

	var unknown x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	switch {
	case errors.As(err, &unknown):
		msgs = append(msgs, unknown.Error())
	case errors.As(err, &hostname):
		msgs = append(msgs, hostname.Error())
	case errors.As(err, &invalid):
		msgs = append(msgs, invalid.Error())
	}
	return msgs
}

// parseRetryAfter extracts the Retry-After header value.
// Returns the duration to wait, or 0 if header is not present.
// Supports both delay-seconds (integer) and HTTP-date formats.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if duration := time.Until(retryTime); duration > 0 {
			return duration
		}
	}

	return 0
}
