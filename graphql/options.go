package graphql

import (
	"net/http"
	"time"

	"github.com/agentuity/go-gqlclient/cache"
	"github.com/agentuity/go-gqlclient/logger"
	"go.opentelemetry.io/otel/trace"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// RequestOptions are pass-through settings for a single request. Client
// defaults are merged with per-call options: headers merge by name with the
// call winning, a non-zero call timeout replaces the default.
type RequestOptions struct {
	Headers http.Header
	Timeout time.Duration
}

func (o RequestOptions) clone() RequestOptions {
	return RequestOptions{Headers: o.Headers.Clone(), Timeout: o.Timeout}
}

// CallOption adjusts the options of one call.
type CallOption func(*RequestOptions)

// Header sets a header for one call, replacing any default with that name.
func Header(key, value string) CallOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = http.Header{}
		}
		o.Headers.Set(key, value)
	}
}

// Timeout bounds one call.
func Timeout(d time.Duration) CallOption {
	return func(o *RequestOptions) { o.Timeout = d }
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent with every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) { c.headers = h.Clone() }
}

// WithHTTPClient replaces the transport. The default is an *http.Client with
// a cookie jar.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.client = d }
}

// WithCache replaces the in-memory query cache. The client closes it on
// Close.
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

// WithCacheSize sets the capacity of the default in-memory cache.
func WithCacheSize(n int) Option {
	return func(c *Client) { c.cacheSize = n }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProvider = tp }
}

// WithRequestID sends a fresh UUID under header on every request that does
// not already carry one.
func WithRequestID(header string) Option {
	return func(c *Client) { c.requestIDHeader = header }
}

// WithDefaultOptions sets the options every call starts from.
func WithDefaultOptions(o RequestOptions) Option {
	return func(c *Client) { c.defaults = o.clone() }
}

// WithMaxResponseSize caps the bytes read from a response body. Zero keeps
// DefaultMaxResponseSize.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) { c.maxResponseSize = n }
}

// WithMaxUploadSize caps the total file bytes of an upload. Zero means no
// limit.
func WithMaxUploadSize(n int64) Option {
	return func(c *Client) { c.maxUploadSize = n }
}
