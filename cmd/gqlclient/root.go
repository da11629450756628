package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentuity/go-gqlclient/config"
	"github.com/agentuity/go-gqlclient/env"
	"github.com/agentuity/go-gqlclient/graphql"
	"github.com/agentuity/go-gqlclient/logger"
	cstr "github.com/agentuity/go-gqlclient/string"
	"github.com/agentuity/go-gqlclient/tui"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var errGraphQL = errors.New("graphql errors in response")

type app struct {
	out     io.Writer
	errOut  io.Writer
	log     logger.Logger
	client  *graphql.Client
	cleanup config.CleanupFunc
}

func run(args []string, out, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(context.Background())
	a.close()
	if err != nil {
		a.report(err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gqlclient",
		Short:         "Run GraphQL queries, mutations and file uploads against an endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("endpoint", "", "GraphQL base URL (overrides config and "+env.EndpointEnvVar+")")
	flags.StringArray("header", nil, "extra request header as Key=Value, repeatable")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("env-file", ".env", "load variables from this file when present")
	flags.String("otlp-url", "", "OTLP/HTTP collector URL for traces")
	flags.String("otlp-token", "", "bearer token for the OTLP collector")

	root.AddCommand(a.queryCommand(), a.mutateCommand(), a.uploadCommand())
	return root
}

// setup builds the client. It runs in each subcommand so the root help works
// without a config.
func (a *app) setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := env.Load(envFile); err != nil {
			return err
		}
	}
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	a.log = env.NewLogger(cmd, cfg.LogLevel)

	cfg.Endpoint = env.FlagOrEnv(cmd, "endpoint", env.EndpointEnvVar, cfg.Endpoint)
	cfg.Telemetry.OTLPURL = env.FlagOrEnv(cmd, "otlp-url", env.OTLPURLEnvVar, cfg.Telemetry.OTLPURL)
	cfg.Telemetry.Token = cstr.MaskedString(env.FlagOrEnv(cmd, "otlp-token", env.OTLPTokenEnvVar, cfg.Telemetry.Token.Text()))
	headers, _ := cmd.Flags().GetStringArray("header")
	for _, h := range headers {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return errors.Newf("invalid --header %q, expected Key=Value", h)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]cstr.MaskedString{}
		}
		cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = cstr.MaskedString(v)
	}
	if cfg.Endpoint == "" {
		return errors.Newf("no endpoint: pass --endpoint, set %s or add endpoint to the config", env.EndpointEnvVar)
	}
	a.log.Debug("using endpoint %s with %s cache", cfg.Endpoint, cfg.Cache.Backend)

	a.client, a.cleanup, err = config.NewClient(cmd.Context(), cfg, a.log)
	return err
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// print writes data as indented JSON and returns errGraphQL when the
// envelope carries errors.
func (a *app) print(resp *graphql.Envelope) error {
	var data any
	if err := resp.Decode(&data); err != nil {
		return errors.Wrap(err, "decode data")
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	if resp.HasErrors() {
		fmt.Fprintln(a.errOut, tui.RenderErrors(resp.Errors))
		return errGraphQL
	}
	return nil
}

func (a *app) report(err error) {
	if errors.Is(err, errGraphQL) {
		return
	}
	var serr *graphql.ServerError
	if errors.As(err, &serr) {
		tui.ShowError(a.errOut, "server responded with status %d", serr.Status)
		if serr.Envelope != nil && serr.Envelope.HasErrors() {
			fmt.Fprintln(a.errOut, tui.RenderErrors(serr.Envelope.Errors))
		} else if serr.Body != "" {
			fmt.Fprintln(a.errOut, tui.Muted(serr.Body))
		}
		return
	}
	tui.ShowError(a.errOut, "%s", err)
}
