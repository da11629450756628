package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/agentuity/go-gqlclient/cache"
	"github.com/agentuity/go-gqlclient/multipart"
	"github.com/agentuity/go-gqlclient/sys"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation is the kind of a GraphQL request.
type Operation string

const (
	OperationQuery    Operation = "query"
	OperationMutation Operation = "mutation"
	OperationUpload   Operation = "upload-mutation"
)

func (o Operation) path() string {
	switch o {
	case OperationMutation:
		return "mutate"
	case OperationUpload:
		return "upload"
	}
	return "query"
}

// Variables are the arguments of a query.
type Variables map[string]any

// Request describes any operation for PerformRequest.
type Request struct {
	Operation Operation
	Name      string
	// Variables must be Variables or nil for queries. Mutations accept any
	// JSON-serializable value; uploads accept what multipart.FromAny does.
	Variables any
	Options   []CallOption
}

func (c *Client) startSpan(ctx context.Context, op Operation, name string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "graphql."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.type", string(op)),
			attribute.String("graphql.operation.name", name),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func marshalVariables(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "encode variables"), ErrInvalidArgument)
	}
	if string(b) == "null" {
		return []byte("{}"), nil
	}
	return b, nil
}

// Query runs a read operation. Identical queries (same name, structurally
// equal variables) are answered from the cache without a request. Only
// successful responses are cached.
func (c *Client) Query(ctx context.Context, name string, variables Variables, opts ...CallOption) (env *Envelope, err error) {
	if name == "" {
		return nil, invalidf("query name is required")
	}
	vars, err := marshalVariables(map[string]any(variables))
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, OperationQuery, name)
	defer func() { endSpan(span, err) }()

	var fresh *Envelope
	body, hit, err := cache.Exec(ctx, c.cache, cache.Key(string(OperationQuery), name, vars), func(ctx context.Context) ([]byte, bool, error) {
		u := c.endpoint(OperationQuery, name, url.Values{"variables": {string(vars)}})
		b, err := c.send(ctx, http.MethodGet, u, nil, "", opts)
		if err != nil {
			return nil, false, err
		}
		if fresh, err = decodeEnvelope(b); err != nil {
			return nil, false, err
		}
		return b, true, nil
	})
	span.SetAttributes(attribute.Bool("graphql.cache.hit", hit))
	if err != nil {
		return nil, err
	}
	if hit {
		c.logger.Trace("loading %s from cache", name)
		return decodeEnvelope(body)
	}
	return fresh, nil
}

// Mutate runs a write operation. Mutations never read or write the cache.
func (c *Client) Mutate(ctx context.Context, name string, variables any, opts ...CallOption) (env *Envelope, err error) {
	if name == "" {
		return nil, invalidf("mutation name is required")
	}
	vars, err := marshalVariables(variables)
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, OperationMutation, name)
	defer func() { endSpan(span, err) }()

	b, err := c.send(ctx, http.MethodPost, c.endpoint(OperationMutation, name, nil), bytes.NewReader(vars), "", opts)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(b)
}

// Upload runs a mutation whose variables carry files, sending them as a
// multipart body. Variables must be a non-empty map.
func (c *Client) Upload(ctx context.Context, name string, variables any, opts ...CallOption) (env *Envelope, err error) {
	if name == "" {
		return nil, invalidf("upload name is required")
	}
	v, err := multipart.FromAny(variables)
	if err != nil {
		return nil, err
	}
	parts, err := multipart.Encode(v)
	if err != nil {
		return nil, err
	}
	body, contentType, err := parts.Body(c.maxUploadSize)
	if err != nil {
		return nil, err
	}
	ctx, span := c.startSpan(ctx, OperationUpload, name)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.Int("graphql.upload.files", len(parts.Files)),
		attribute.Int("graphql.upload.bytes", body.Len()),
	)
	c.logger.Trace("uploading %d file(s) for %s", len(parts.Files), name)

	b, err := c.send(ctx, http.MethodPost, c.endpoint(OperationUpload, name, nil), body, contentType, opts)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(b)
}

// PerformRequest dispatches r to Query, Mutate or Upload.
func (c *Client) PerformRequest(ctx context.Context, r Request) (*Envelope, error) {
	switch r.Operation {
	case OperationQuery:
		var vars Variables
		switch v := r.Variables.(type) {
		case nil:
		case Variables:
			vars = v
		case map[string]any:
			vars = v
		default:
			return nil, invalidf("query variables must be a map, got %T", r.Variables)
		}
		return c.Query(ctx, r.Name, vars, r.Options...)
	case OperationMutation:
		return c.Mutate(ctx, r.Name, r.Variables, r.Options...)
	case OperationUpload:
		return c.Upload(ctx, r.Name, r.Variables, r.Options...)
	}
	return nil, invalidf("unknown operation %q", r.Operation)
}

// QueryAsync runs Query on a new goroutine.
func (c *Client) QueryAsync(ctx context.Context, name string, variables Variables, opts ...CallOption) <-chan sys.Result[*Envelope] {
	return sys.Go(ctx, func(ctx context.Context) (*Envelope, error) {
		return c.Query(ctx, name, variables, opts...)
	})
}

// MutateAsync runs Mutate on a new goroutine.
func (c *Client) MutateAsync(ctx context.Context, name string, variables any, opts ...CallOption) <-chan sys.Result[*Envelope] {
	return sys.Go(ctx, func(ctx context.Context) (*Envelope, error) {
		return c.Mutate(ctx, name, variables, opts...)
	})
}

// UploadAsync runs Upload on a new goroutine.
func (c *Client) UploadAsync(ctx context.Context, name string, variables any, opts ...CallOption) <-chan sys.Result[*Envelope] {
	return sys.Go(ctx, func(ctx context.Context) (*Envelope, error) {
		return c.Upload(ctx, name, variables, opts...)
	})
}
