// Package jama is a client for the two Jama Connect REST endpoints the
// scope diagnostic exercises: the OAuth token endpoint and the projects
// listing. It is not a general Jama SDK.
package jama

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/jamatools/jamacheck/pkg/slogx"
)

const (
	tokenPath    = "/rest/oauth/token"
	projectsPath = "/rest/v1/projects"
)

// DefaultTimeout bounds each request to the instance. The diagnostic makes
// exactly two calls, so a hung server should fail fast rather than wedge
// the whole run.
const DefaultTimeout = 30 * time.Second

// Client talks to a single Jama Connect instance using client-credentials
// authentication.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client entirely. Mainly for
// tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithInsecureSkipVerify disables TLS certificate verification. Only for
// instances behind self-signed certificates; leave it off everywhere else.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient.Transport = &slogx.Transport{Base: insecureTransport()}
	}
}

// NewClient creates a client for the instance at baseURL. The credentials
// are fixed for the client's lifetime.
func NewClient(baseURL, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &slogx.Transport{},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TokenURL returns the resolved token endpoint URL.
func (c *Client) TokenURL() string { return c.baseURL + tokenPath }

// ProjectsURL returns the resolved projects endpoint URL.
func (c *Client) ProjectsURL() string { return c.baseURL + projectsPath }

func insecureTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return t
}
