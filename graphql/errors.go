package graphql

import (
	"fmt"

	"github.com/agentuity/go-gqlclient/multipart"
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidArgument marks caller mistakes detected before any request
	// is sent: an empty operation name, upload variables that are missing or
	// cannot be traversed, or an upload over the size limit.
	ErrInvalidArgument = multipart.ErrInvalidArgument

	// ErrMalformedResponse marks a 2xx response whose body is not a JSON
	// response envelope.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrServer matches every *ServerError.
	ErrServer = errors.New("server error")
)

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// ServerError is returned when the server answers with a non-2xx status.
// GraphQL errors sent along with the failure are kept in Envelope when the
// body could be parsed.
type ServerError struct {
	URL      string
	Method   string
	Status   int
	Body     string
	TraceID  string
	Envelope *Envelope
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("%s %s: server responded with status %d", e.Method, e.URL, e.Status)
	if e.Envelope != nil && len(e.Envelope.Errors) > 0 {
		msg += ": " + e.Envelope.Errors[0].Message
	}
	return msg
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// TransportError wraps a failure of the underlying transport.
type TransportError struct {
	URL    string
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
