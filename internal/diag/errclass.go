package diag

import (
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
)

// TransportErrorType categorizes the type of connection failure.
type TransportErrorType int

const (
	// TransportErrorUnknown indicates an unclassified connection error.
	TransportErrorUnknown TransportErrorType = iota
	// TransportErrorTLS indicates a TLS/certificate verification error.
	TransportErrorTLS
	// TransportErrorNetwork indicates a connectivity error (refused, unreachable).
	TransportErrorNetwork
	// TransportErrorTimeout indicates the instance did not answer in time.
	TransportErrorTimeout
	// TransportErrorDNS indicates a DNS resolution failure.
	TransportErrorDNS
)

// String returns a human-readable name for the transport error type.
func (t TransportErrorType) String() string {
	switch t {
	case TransportErrorTLS:
		return "TLS certificate error"
	case TransportErrorNetwork:
		return "Network error"
	case TransportErrorTimeout:
		return "Connection timeout"
	case TransportErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ClassifyTransportError analyzes a failed request's error chain and
// categorizes it. Classification only shapes the printed hint; it never
// changes whether a step is fatal.
func ClassifyTransportError(err error) TransportErrorType {
	if err == nil {
		return TransportErrorUnknown
	}

	if isTLSError(err) {
		return TransportErrorTLS
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportErrorDNS
	}

	if isTimeoutError(err) {
		return TransportErrorTimeout
	}

	if isNetworkError(err.Error()) {
		return TransportErrorNetwork
	}

	return TransportErrorUnknown
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	// x509 verification errors travel the chain by value, not pointer
	var certErr x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	// Fall back to message keywords; the crypto/tls alert errors don't
	// export types to match on.
	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	// net.Error is an interface, so walk the chain manually
	for e := err; e != nil; {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return true
		}
		if u, ok := e.(interface{ Unwrap() error }); ok {
			e = u.Unwrap()
		} else {
			break
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
