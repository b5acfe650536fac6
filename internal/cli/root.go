// Package cli wires the jamacheck command tree: flag and environment
// handling, logger construction, and the mapping from failures to process
// exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamatools/jamacheck/internal/config"
	"github.com/jamatools/jamacheck/internal/diag"
	"github.com/jamatools/jamacheck/internal/jama"
	"github.com/jamatools/jamacheck/pkg/runid"
	"github.com/jamatools/jamacheck/pkg/slogx"
)

// Exit codes for the CLI.
const (
	// ExitCodeSuccess indicates the check ran to completion, whatever the
	// verdict was. A scope misconfiguration is a successful diagnosis.
	ExitCodeSuccess = 0
	// ExitCodeError indicates the run could not complete: unusable
	// configuration, or a token step that did not produce a grant.
	ExitCodeError = 1
)

var version = "dev"

// SetVersion injects the build version stamped by the linker.
func SetVersion(v string) {
	version = v
}

// rootOptions holds the flag values for one command instance.
type rootOptions struct {
	baseURL      string
	clientID     string
	clientSecret string
	insecure     bool
	timeout      time.Duration
	verbose      bool
	envFile      string
}

// newRootCmd builds the root command. Tests construct their own instance
// so runs never share flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "jamacheck",
		Short: "Check a Jama Connect OAuth client's scope configuration",
		Long: `jamacheck requests a token with the OAuth2 client_credentials grant and
then probes the projects API with it. A token that is granted but cannot
read projects usually means the OAuth client's scope is set to
'Token Information' instead of 'read' in the Jama Admin Console; the tool
recognizes that failure mode and says so.`,
		Example: `  jamacheck --base-url https://jama.example.com/contour --client-id ci --client-secret s3cret
  JAMA_BASE_URL=https://jama.example.com jamacheck --insecure`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	cmd.Version = version

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Jama instance base URL (env JAMA_BASE_URL)")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth client ID (env JAMA_CLIENT_ID)")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth client secret (env JAMA_CLIENT_SECRET)")
	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification (env JAMA_INSECURE)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", jama.DefaultTimeout, "per-request timeout (env JAMA_HTTP_TIMEOUT)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging plus a table of the returned projects")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "load environment from this file instead of ./.env")

	cmd.AddCommand(newVersionCmd())

	return cmd
}

// run resolves configuration and hands off to the diagnostic runner.
func (o *rootOptions) run(cmd *cobra.Command) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slogx.New(slogx.Config{
		Service: "jamacheck",
		Version: cmd.Root().Version,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Writer:  cmd.ErrOrStderr(),
	})
	logger = logger.With("run_id", runid.New().String())
	ctx := slogx.WithContext(cmd.Context(), logger)

	clientOpts := []jama.Option{jama.WithTimeout(cfg.HTTPTimeout)}
	if cfg.Insecure {
		clientOpts = append(clientOpts, jama.WithInsecureSkipVerify())
		logger.Warn("tls_verification_disabled")
	}
	client := jama.NewClient(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, clientOpts...)

	runner := diag.NewRunner(client, cmd.OutOrStdout(), logger)
	runner.Verbose = o.verbose

	logger.Info("check_started", "base_url", cfg.BaseURL)
	return runner.Run(ctx)
}

// loadConfig resolves the environment configuration and lays any changed
// flags on top of it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(o.baseURL), "/")
	}
	if cmd.Flags().Changed("client-id") {
		cfg.ClientID = o.clientID
	}
	if cmd.Flags().Changed("client-secret") {
		cfg.ClientSecret = o.clientSecret
	}
	if cmd.Flags().Changed("insecure") {
		cfg.Insecure = o.insecure
	}
	if cmd.Flags().Changed("timeout") {
		cfg.HTTPTimeout = o.timeout
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExitCode maps the error returned by command execution to the process
// exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeError
}

// alreadyReported reports whether the runner printed the failure itself,
// leaving nothing useful to add on stderr.
func alreadyReported(err error) bool {
	var stepErr *diag.TokenStepError
	return errors.As(err, &stepErr)
}

// Execute is the entry point called by main. It runs the CLI and exits
// the process with the mapped code.
func Execute() {
	root := newRootCmd()
	root.SetVersionTemplate(`{{printf "jamacheck version %s\n" .Version}}`)

	if err := root.Execute(); err != nil {
		if !alreadyReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(ExitCode(err))
	}
}
