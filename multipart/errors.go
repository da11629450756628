package multipart

import "github.com/cockroachdb/errors"

// ErrInvalidArgument marks errors caused by input that cannot be encoded.
// They are raised before any network activity.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}
