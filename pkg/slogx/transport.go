package slogx

import (
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs outbound requests using the
// logger carried by the request context.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger := FromContext(req.Context()).With(
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	resp, err := t.base().RoundTrip(req)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Debug("http_request_failed",
			"duration_ms", duration,
			"error", err.Error(),
		)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
