package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/agentuity/go-gqlclient/graphql"
	"github.com/agentuity/go-gqlclient/multipart"
	"github.com/agentuity/go-gqlclient/tui"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func parseVars(cmd *cobra.Command) (multipart.Value, error) {
	raw, _ := cmd.Flags().GetString("vars")
	if strings.TrimSpace(raw) == "" {
		return multipart.Null(), nil
	}
	v, err := multipart.ParseJSON([]byte(raw))
	if err != nil {
		return multipart.Value{}, errors.Wrap(err, "invalid --vars")
	}
	if v.Kind() != multipart.KindMap {
		return multipart.Value{}, errors.Newf("--vars must be a JSON object, got %s", v.Kind())
	}
	return v, nil
}

// queryVars decodes --vars keeping number literals intact.
func queryVars(cmd *cobra.Command) (graphql.Variables, error) {
	raw, _ := cmd.Flags().GetString("vars")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var vars graphql.Variables
	if err := dec.Decode(&vars); err != nil {
		return nil, errors.Wrap(err, "--vars must be a JSON object")
	}
	return vars, nil
}

func (a *app) queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query NAME",
		Short: "Run a named query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			vars, err := queryVars(cmd)
			if err != nil {
				return err
			}
			return a.do(cmd.Context(), "query "+args[0], func(ctx context.Context) (*graphql.Envelope, error) {
				return a.client.Query(ctx, args[0], vars)
			})
		},
	}
	cmd.Flags().String("vars", "", "variables as a JSON object")
	return cmd
}

func (a *app) mutateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate NAME",
		Short: "Run a named mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			v, err := parseVars(cmd)
			if err != nil {
				return err
			}
			var vars any
			if v.Kind() == multipart.KindMap {
				vars = v
			}
			return a.do(cmd.Context(), "mutation "+args[0], func(ctx context.Context) (*graphql.Envelope, error) {
				return a.client.Mutate(ctx, args[0], vars)
			})
		},
	}
	cmd.Flags().String("vars", "", "variables as a JSON object")
	return cmd
}

func (a *app) uploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload NAME --file path=./file ...",
		Short: "Run a named mutation carrying files",
		Long: "Each --file places a file at a dotted path inside the variables, " +
			"for example --file doc=./report.pdf or --file input.images.0=./a.png.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			vars, err := parseVars(cmd)
			if err != nil {
				return err
			}
			files, _ := cmd.Flags().GetStringArray("file")
			var closers []io.Closer
			defer func() {
				for _, c := range closers {
					c.Close()
				}
			}()
			for _, spec := range files {
				path, file, ok := strings.Cut(spec, "=")
				if !ok || path == "" || file == "" {
					return errors.Newf("invalid --file %q, expected path=./file", spec)
				}
				f, closer, err := multipart.OpenFile(file)
				if err != nil {
					return err
				}
				closers = append(closers, closer)
				if vars, err = multipart.Attach(vars, path, multipart.FileValue(f)); err != nil {
					return errors.Wrapf(err, "--file %s", spec)
				}
			}
			return a.do(cmd.Context(), "uploading "+args[0], func(ctx context.Context) (*graphql.Envelope, error) {
				return a.client.Upload(ctx, args[0], vars)
			})
		},
	}
	cmd.Flags().String("vars", "", "variables as a JSON object")
	cmd.Flags().StringArray("file", nil, "file to upload as path=./file, repeatable")
	return cmd
}

func (a *app) do(ctx context.Context, title string, fn func(ctx context.Context) (*graphql.Envelope, error)) error {
	var resp *graphql.Envelope
	err := tui.WithSpinner(ctx, title, func(ctx context.Context) error {
		var err error
		resp, err = fn(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return a.print(resp)
}
