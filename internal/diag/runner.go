// Package diag runs the two-step OAuth scope check against a Jama Connect
// instance and prints a human-readable verdict: request a token with the
// client_credentials grant, then probe the projects listing with it.
package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jamatools/jamacheck/internal/jama"
	"github.com/jamatools/jamacheck/pkg/jwtpeek"
)

// Runner executes the scope check against one instance.
type Runner struct {
	// Client performs the two REST calls.
	Client *jama.Client

	// Out receives the verdict lines. Logs never mix into it.
	Out io.Writer

	// Logger carries ambient logging; it must not write to Out.
	Logger *slog.Logger

	// Signatures is the known-issue list consulted when the projects call
	// fails. Defaults to KnownIssues.
	Signatures []Signature

	// Verbose renders a table of the returned projects on success.
	Verbose bool
}

// NewRunner wires a runner with the default known-issue list.
func NewRunner(client *jama.Client, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		Client:     client,
		Out:        out,
		Logger:     logger,
		Signatures: KnownIssues,
	}
}

// Run executes the check. The returned error is non-nil only for the
// token-step failure; a failed projects call is itself a finding and never
// fails the run.
func (r *Runner) Run(ctx context.Context) error {
	r.printHeader()

	token, err := r.tokenStep(ctx)
	if err != nil {
		return err
	}

	r.projectsStep(ctx, token)
	return nil
}

// tokenStep performs the client_credentials grant. Any failure here is
// fatal: without the instance even answering the grant there is nothing
// left to diagnose.
func (r *Runner) tokenStep(ctx context.Context) (string, error) {
	r.printf("")
	r.printf("Step 1: requesting an OAuth token...")

	reply, err := r.Client.RequestToken(ctx)
	if err != nil {
		r.fail(fmt.Sprintf("error getting token: %v", err))
		r.adviseTransport(err)
		r.Logger.Error("token_request_failed", "error", err.Error())
		return "", &TokenStepError{Reason: err}
	}

	if reply.StatusCode != http.StatusOK {
		r.fail("failed to get token")
		r.printf("Status Code: %d", reply.StatusCode)
		r.printf("Response: %s", reply.RawBody)
		r.Logger.Error("token_request_rejected", "status", reply.StatusCode)
		return "", &TokenStepError{Status: reply.StatusCode}
	}

	r.ok("bearer token obtained")
	r.printf("Token type: %s", reply.Token.TokenType)
	r.printf("Expires in: %d seconds", reply.Token.ExpiresIn)

	token := reply.AccessToken()
	if token == "" {
		// Keep going with the empty token; how the server reacts to a
		// credential it never granted is still useful signal.
		r.printf("Warning: the response carried no access_token")
		r.Logger.Warn("token_missing_in_response")
	} else if info, isJWT := jwtpeek.Peek(token); isJWT && len(info.Scopes) > 0 {
		r.printf("Granted scopes (unverified claims): %s", strings.Join(info.Scopes, " "))
	}

	r.Logger.Info("token_obtained", "expires_in", reply.Token.ExpiresIn)
	return token, nil
}

// projectsStep probes the projects listing with the obtained token and
// classifies whatever comes back.
func (r *Runner) projectsStep(ctx context.Context, token string) {
	r.printf("")
	r.printf("Step 2: calling the projects API with the token...")

	reply, err := r.Client.FetchProjects(ctx, token)
	if err != nil {
		r.fail(fmt.Sprintf("error calling projects API: %v", err))
		r.adviseTransport(err)
		r.Logger.Error("projects_request_failed", "error", err.Error())
		return
	}

	if reply.StatusCode != http.StatusOK {
		r.fail("projects API call failed")
		r.printf("Status Code: %d", reply.StatusCode)
		r.printf("Response: %s", reply.RawBody)
		r.diagnose(reply.StatusCode, reply.RawBody)
		r.Logger.Error("projects_request_rejected", "status", reply.StatusCode)
		return
	}

	count := reply.Count()
	noun := "projects"
	if count == 1 {
		noun = "project"
	}

	r.ok("projects API call succeeded")
	r.printf("Found %d %s", count, noun)
	r.printf("OAuth scope is correctly set to 'read'")

	if r.Verbose && count > 0 {
		r.renderProjects(reply.Projects())
	}

	r.Logger.Info("projects_listed", "count", count)
}

// diagnose prints the advice of every known-issue signature the failed
// reply matches.
func (r *Runner) diagnose(status int, body []byte) {
	for _, sig := range MatchSignatures(r.Signatures, status, body) {
		r.printf("")
		r.printf("%s: %s", text.FgYellow.Sprint("Known issue"), sig.Summary)
		for _, line := range sig.Advice {
			r.printf("%s", line)
		}
		r.Logger.Warn("known_issue_matched", "signature", sig.Name)
	}
}

// adviseTransport prints a remediation hint for classifiable connection
// failures.
func (r *Runner) adviseTransport(err error) {
	switch ClassifyTransportError(err) {
	case TransportErrorTLS:
		r.printf("Hint: the instance presented an untrusted certificate; retry with --insecure if it is self-signed.")
	case TransportErrorDNS:
		r.printf("Hint: the hostname did not resolve; check the base URL.")
	case TransportErrorTimeout:
		r.printf("Hint: the instance did not answer in time; check connectivity or raise --timeout.")
	case TransportErrorNetwork:
		r.printf("Hint: the connection was refused or dropped; check the base URL and that the instance is up.")
	}
}

func (r *Runner) renderProjects(projects []jama.Project) {
	tw := table.NewWriter()
	tw.SetOutputMirror(r.Out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("ID"),
		text.FgHiCyan.Sprint("KEY"),
		text.FgHiCyan.Sprint("NAME"),
	})
	for _, p := range projects {
		tw.AppendRow(table.Row{p.ID, p.ProjectKey, p.Fields.Name})
	}
	tw.Render()
}

func (r *Runner) printHeader() {
	r.printf("=== Jama OAuth scope check ===")
	r.printf("Token URL:    %s", r.Client.TokenURL())
	r.printf("Projects URL: %s", r.Client.ProjectsURL())
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.Out, format+"\n", args...)
}

func (r *Runner) ok(msg string) {
	fmt.Fprintf(r.Out, "%s: %s\n", text.FgGreen.Sprint("OK"), msg)
}

func (r *Runner) fail(msg string) {
	fmt.Fprintf(r.Out, "%s: %s\n", text.FgRed.Sprint("FAILED"), msg)
}
