package graphql

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"runtime/debug"

	"github.com/agentuity/go-gqlclient/cache"
	"github.com/agentuity/go-gqlclient/logger"
	cstr "github.com/agentuity/go-gqlclient/string"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

const tracerName = "github.com/agentuity/go-gqlclient/graphql"

// DefaultMaxResponseSize bounds response bodies unless WithMaxResponseSize
// says otherwise.
const DefaultMaxResponseSize = 64 << 20

// Client issues GraphQL operations against one endpoint. It is safe for
// concurrent use and is not reconfigured after New.
type Client struct {
	baseURL         *url.URL
	headers         http.Header
	defaults        RequestOptions
	client          Doer
	cache           cache.Cache
	cacheSize       int
	logger          logger.Logger
	tracerProvider  trace.TracerProvider
	tracer          trace.Tracer
	requestIDHeader string
	maxUploadSize   int64
	maxResponseSize int64
}

// New returns a Client for the endpoint at baseURL. Operations are resolved
// relative to it: <baseURL>/query, /mutate and /upload.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse base url %q", baseURL), ErrInvalidArgument)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, invalidf("base url %q must be absolute", baseURL)
	}
	c := &Client{baseURL: u}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewConsoleLogger()
	}
	c.logger = c.logger.WithPrefix("[graphql]")
	if c.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		c.client = &http.Client{Jar: jar}
	}
	if c.cache == nil {
		c.cache = cache.NewInMemory(cache.WithMaxEntries(c.cacheSize), cache.WithLogger(c.logger))
	}
	if c.maxResponseSize <= 0 {
		c.maxResponseSize = DefaultMaxResponseSize
	}
	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	c.tracer = c.tracerProvider.Tracer(tracerName)
	return c, nil
}

// Cache returns the query cache.
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// Close releases the query cache.
func (c *Client) Close(ctx context.Context) error {
	return c.cache.CloseContext(ctx)
}

// UserAgent is sent with every request unless a header overrides it.
func UserAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "go-gqlclient/" + Version + " (" + gitSHA + ")"
}

func (c *Client) endpoint(op Operation, name string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = path.Join("/", c.baseURL.Path, op.path())
	if query == nil {
		query = url.Values{}
	}
	query.Set("name", name)
	u.RawQuery = query.Encode()
	return &u
}

func (c *Client) requestOptions(opts []CallOption) RequestOptions {
	ro := c.defaults.clone()
	for _, opt := range opts {
		opt(&ro)
	}
	return ro
}

func setHeaders(dst, src http.Header) {
	for k, vals := range src {
		dst.Del(k)
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}

// send issues one request and returns the raw body of a 2xx response.
// contentType, when set, overrides every other Content-Type header.
func (c *Client) send(ctx context.Context, method string, u *url.URL, body io.Reader, contentType string, opts []CallOption) ([]byte, error) {
	ro := c.requestOptions(opts)
	if ro.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ro.Timeout)
		defer cancel()
	}
	masked := cstr.MaskURL(u, "name")

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrapf(err, "create request %s", masked)
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Content-Type", "application/json")
	setHeaders(req.Header, c.headers)
	setHeaders(req.Header, ro.Headers)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.requestIDHeader != "" && req.Header.Get(c.requestIDHeader) == "" {
		req.Header.Set(c.requestIDHeader, uuid.NewString())
	}

	c.logger.Debug("fetching %s %s", method, masked)
	if c.logger.IsLevelEnabled(logger.LevelTrace) {
		c.logger.Trace("request headers: %v", cstr.MaskHeader(req.Header))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &TransportError{URL: masked, Method: method, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, &TransportError{URL: masked, Method: method, Err: errors.Wrap(err, "read response body")}
	}
	if int64(len(respBody)) > c.maxResponseSize {
		return nil, errors.Mark(errors.Newf("response from %s exceeds %d bytes", masked, c.maxResponseSize), ErrMalformedResponse)
	}
	contentTypeResp := resp.Header.Get("Content-Type")
	preview := bodyPreview(respBody, contentTypeResp)
	c.logger.Debug("response status: %s", resp.Status)
	c.logger.Trace("response body: %s, content-type: %s", preview, contentTypeResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{
			URL:     masked,
			Method:  method,
			Status:  resp.StatusCode,
			Body:    preview,
			TraceID: resp.Header.Get("traceparent"),
		}
		if env, err := decodeEnvelope(respBody); err == nil {
			serr.Envelope = env
		}
		return nil, serr
	}
	return respBody, nil
}
