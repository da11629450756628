package multipart

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ErrFileInJSON is returned when a file handle is serialized as plain JSON.
// Files only travel as multipart parts.
var ErrFileInJSON = errors.New("file handles cannot be serialized as JSON")

// File is an opaque upload handle. Reader is consumed once when the request
// body is built.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// NewFile returns a handle reading from r.
func NewFile(name string, r io.Reader) *File {
	return &File{Name: name, Reader: r}
}

// OpenFile opens path for upload. The caller owns the returned closer.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open upload %s", path)
	}
	return &File{Name: filepath.Base(path), Reader: f}, f, nil
}

// MarshalJSON always fails so that a file nested in a plain struct or
// map cannot be silently dropped.
func (File) MarshalJSON() ([]byte, error) {
	return nil, ErrFileInJSON
}

func (f *File) contentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return "application/octet-stream"
}

func (f *File) filename() string {
	if f.Name != "" {
		return f.Name
	}
	return "blob"
}
