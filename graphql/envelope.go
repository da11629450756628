package graphql

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Envelope is a normalized GraphQL response. Errors is never nil.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Errors     gqlerror.List   `json:"errors"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// Decode unmarshals Data into v. A null or absent data field leaves v
// untouched.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// HasErrors reports whether the server returned GraphQL errors.
func (e *Envelope) HasErrors() bool {
	return len(e.Errors) > 0
}

// Err returns the GraphQL errors as a single error, or nil.
func (e *Envelope) Err() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors
}

func decodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.Mark(errors.Newf("response is not a JSON object (%d bytes)", len(body)), ErrMalformedResponse)
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode response"), ErrMalformedResponse)
	}
	if env.Errors == nil {
		env.Errors = gqlerror.List{}
	}
	return &env, nil
}
