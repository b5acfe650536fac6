package check_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jamatools/jamacheck/internal/config"
	"github.com/jamatools/jamacheck/internal/diag"
	"github.com/jamatools/jamacheck/internal/jama"
	"github.com/jamatools/jamacheck/pkg/slogx"
)

/*
 * Common constants and helper functions for the end-to-end scope checks.
 * This includes the stub Jama Connect instance, the pipeline runner, and
 * shared assertions.
 */

const (
	goodClientID     = "jamacheck-e2e"
	goodClientSecret = "s3cret-e2e"
	signingKey       = "e2e-signing-key"
)

// jamaProject is one row the stub serves from the projects resource.
type jamaProject struct {
	id     int64
	key    string
	name   string
	folder bool
}

// defaultProjects returns the rows a healthy instance answers with. The
// folder entry is deliberate: Jama interleaves folders into the projects
// listing and they count as rows.
func defaultProjects() []jamaProject {
	return []jamaProject{
		{id: 20, key: "AV", name: "Avionics"},
		{id: 21, key: "GC", name: "Ground Control"},
		{id: 33, key: "ARCH", name: "Archive", folder: true},
	}
}

// jamaInstance is an in-process stand-in for a Jama Connect server. It
// issues signed bearer tokens from the OAuth endpoint and serves the
// projects resource, with knobs to reproduce the failure modes the
// checker has to recognize.
type jamaInstance struct {
	srv *httptest.Server
	key []byte

	mu              sync.Mutex
	grantedScope    string // scope claim stamped into issued tokens
	omitAccessToken bool   // answer the grant without an access_token field
	dropProjects    bool   // hard-close connections on the projects endpoint
	forceStatus     int    // non-zero forces this status on the projects endpoint
	forceBody       string
	projects        []jamaProject
	tokenRequests   int
	projectHits     int
	lastBearer      string
}

// newJamaInstance starts a stub instance over plain HTTP.
func newJamaInstance(t *testing.T) *jamaInstance {
	return startInstance(t, false)
}

// newTLSJamaInstance starts a stub instance behind a self-signed
// certificate, the way on-prem Jama deployments often run.
func newTLSJamaInstance(t *testing.T) *jamaInstance {
	return startInstance(t, true)
}

func startInstance(t *testing.T, withTLS bool) *jamaInstance {
	t.Helper()

	j := &jamaInstance{
		key:          []byte(signingKey),
		grantedScope: "read",
		projects:     defaultProjects(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/oauth/token", j.handleToken)
	mux.HandleFunc("GET /rest/v1/projects", j.handleProjects)

	if withTLS {
		j.srv = httptest.NewTLSServer(mux)
	} else {
		j.srv = httptest.NewServer(mux)
	}
	t.Cleanup(j.srv.Close)
	return j
}

func (j *jamaInstance) baseURL() string { return j.srv.URL }

func (j *jamaInstance) grantScope(scope string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.grantedScope = scope
}

func (j *jamaInstance) omitToken() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.omitAccessToken = true
}

func (j *jamaInstance) setProjects(projects []jamaProject) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.projects = projects
}

func (j *jamaInstance) forceProjectsResponse(status int, body string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.forceStatus = status
	j.forceBody = body
}

func (j *jamaInstance) dropProjectsConnections() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dropProjects = true
}

// stats returns the request counters and the last Authorization header
// seen on the projects endpoint.
func (j *jamaInstance) stats() (tokenRequests, projectHits int, lastBearer string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tokenRequests, j.projectHits, j.lastBearer
}

// handleToken implements the client_credentials grant the way Jama does:
// HTTP Basic client authentication and a form-encoded grant_type.
func (j *jamaInstance) handleToken(w http.ResponseWriter, r *http.Request) {
	j.mu.Lock()
	j.tokenRequests++
	omit := j.omitAccessToken
	scope := j.grantedScope
	j.mu.Unlock()

	id, secret, ok := r.BasicAuth()
	if !ok || id != goodClientID || secret != goodClientSecret {
		writeJSON(w, http.StatusUnauthorized,
			`{"error":"invalid_client","error_description":"Invalid client credentials."}`)
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)
		return
	}

	if omit {
		writeJSON(w, http.StatusOK, `{"token_type":"bearer","expires_in":3600}`)
		return
	}

	token, err := j.issueToken(scope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, fmt.Sprintf(
		`{"access_token":%q,"token_type":"bearer","expires_in":3600,"scope":%q}`, token, scope))
}

// issueToken signs a short-lived HS256 token carrying the granted scope.
func (j *jamaInstance) issueToken(scope string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   goodClientID,
		"iss":   j.srv.URL,
		"scope": scope,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.key)
}

// handleProjects serves the projects listing. Like the real instance it
// blows up with an IndexOutOfBoundsException when the presented token was
// granted without the read scope.
func (j *jamaInstance) handleProjects(w http.ResponseWriter, r *http.Request) {
	j.mu.Lock()
	j.projectHits++
	j.lastBearer = r.Header.Get("Authorization")
	drop := j.dropProjects
	force := j.forceStatus
	forceBody := j.forceBody
	projects := append([]jamaProject(nil), j.projects...)
	j.mu.Unlock()

	if drop {
		hj, ok := w.(http.Hijacker)
		if ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
			}
		}
		return
	}
	if force != 0 {
		writeJSON(w, force, forceBody)
		return
	}

	scope, err := j.tokenScope(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized,
			`{"meta":{"status":"Unauthorized","message":"No authorization header provided or token invalid"}}`)
		return
	}
	if !strings.Contains(" "+scope+" ", " read ") {
		writeJSON(w, http.StatusInternalServerError,
			`{"meta":{"status":"Internal Server Error","message":"java.lang.IndexOutOfBoundsException: Index: 0, Size: 0"}}`)
		return
	}

	data := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		data = append(data, map[string]any{
			"id":         p.id,
			"projectKey": p.key,
			"isFolder":   p.folder,
			"fields":     map[string]any{"name": p.name},
		})
	}
	payload := map[string]any{
		"meta": map[string]any{
			"status": "OK",
			"pageInfo": map[string]any{
				"startIndex":   0,
				"resultCount":  len(data),
				"totalResults": len(data),
			},
		},
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// tokenScope validates the bearer token and returns its scope claim.
func (j *jamaInstance) tokenScope(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("no bearer token presented")
	}

	parsed, err := jwt.Parse(raw,
		func(*jwt.Token) (any, error) { return j.key, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	scope, _ := claims["scope"].(string)
	return scope, nil
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// checkParams configures one pipeline run.
type checkParams struct {
	clientID     string
	clientSecret string
	insecure     bool
	verbose      bool
}

// defaultParams returns params using the credentials the stub accepts.
func defaultParams() checkParams {
	return checkParams{clientID: goodClientID, clientSecret: goodClientSecret}
}

// runCheck executes the full two-step check pipeline against baseURL,
// logs the report transcript, and returns it with the run error.
func runCheck(t *testing.T, baseURL string, params checkParams) (string, error) {
	t.Helper()

	cfg := &config.Config{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     params.clientID,
		ClientSecret: params.clientSecret,
		Insecure:     params.insecure,
		HTTPTimeout:  10 * time.Second,
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	require.NoError(t, cfg.Validate(), "stub-backed configuration should validate")

	return runCheckWithConfig(t, cfg, params.verbose)
}

// runCheckWithConfig drives the pipeline from an already resolved
// configuration, the way the CLI layer does after flag handling.
func runCheckWithConfig(t *testing.T, cfg *config.Config, verbose bool) (string, error) {
	t.Helper()

	logger := slogx.New(slogx.Config{
		Service: "jamacheck-e2e",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Writer:  io.Discard,
	})

	opts := []jama.Option{jama.WithTimeout(cfg.HTTPTimeout)}
	if cfg.Insecure {
		opts = append(opts, jama.WithInsecureSkipVerify())
	}
	client := jama.NewClient(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, opts...)

	var report bytes.Buffer
	runner := diag.NewRunner(client, &report, logger)
	runner.Verbose = verbose

	err := runner.Run(slogx.WithContext(t.Context(), logger))

	for _, line := range strings.Split(strings.TrimRight(report.String(), "\n"), "\n") {
		t.Logf("report: %s", line)
	}
	return report.String(), err
}

// assertVerdictSuccess verifies the transcript reaches the read-scope
// verdict with the expected project count.
func assertVerdictSuccess(t *testing.T, report string, wantProjects int) {
	t.Helper()

	require.Contains(t, report, "bearer token obtained")
	require.Contains(t, report, "projects API call succeeded")
	noun := "projects"
	if wantProjects == 1 {
		noun = "project"
	}
	require.Contains(t, report, fmt.Sprintf("Found %d %s", wantProjects, noun))
	require.Contains(t, report, "OAuth scope is correctly set to 'read'")
}

// assertScopeDiagnosis verifies the transcript names the known scope
// misconfiguration and how to fix it.
func assertScopeDiagnosis(t *testing.T, report string) {
	t.Helper()

	require.Contains(t, report, "Status Code: 500")
	require.Contains(t, report, "IndexOutOfBoundsException")
	require.Contains(t, report, "OAuth client scope misconfiguration")
	require.Contains(t, report, "'Token Information' instead of 'read'")
	require.Contains(t, report, "Jama Admin Console")
}
