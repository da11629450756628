package multipart

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	mimemultipart "mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// OperationsPlaceholder is sent as the operations part. The server resolves
	// the operation from the endpoint name.
	OperationsPlaceholder = "{}"

	// RootPath prefixes every path in the map part.
	RootPath = "variables"
)

// Part is one extracted file and the index that names its multipart part.
type Part struct {
	Index int
	Path  string
	File  *File
}

// Parts is the result of Encode.
type Parts struct {
	// Variables is the JSON of the input with every file replaced by null.
	Variables []byte
	// Map ties each part index to the single path its file came from.
	Map   map[string][]string
	Files []Part
}

// Encode walks variables depth first, replaces each file with null and
// assigns it the next index starting at 0. Variables must be a non-empty map.
func Encode(variables Value) (*Parts, error) {
	switch {
	case variables.Kind() == KindNull:
		return nil, invalidf("upload without variables is not supported")
	case variables.Kind() != KindMap:
		return nil, invalidf("upload variables must be a map, got %s", variables.Kind())
	case variables.Len() == 0:
		return nil, invalidf("upload without variables is not supported")
	}
	e := &encoder{parts: &Parts{Map: map[string][]string{}, Files: []Part{}}}
	cleaned, err := e.walk(variables, RootPath)
	if err != nil {
		return nil, err
	}
	vars, err := cleaned.MarshalJSON()
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "encode variables"), ErrInvalidArgument)
	}
	e.parts.Variables = vars
	return e.parts, nil
}

type encoder struct {
	parts *Parts
}

func (e *encoder) walk(v Value, path string) (Value, error) {
	switch v.Kind() {
	case KindFile:
		if v.file == nil || v.file.Reader == nil {
			return Value{}, invalidf("file at %s has no reader", path)
		}
		idx := len(e.parts.Files)
		part := Part{Index: idx, Path: path, File: v.file}
		e.parts.Files = append(e.parts.Files, part)
		e.parts.Map[part.indexKey()] = []string{path}
		return Null(), nil
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			c, err := e.walk(item, path+"."+strconv.Itoa(i))
			if err != nil {
				return Value{}, err
			}
			items[i] = c
		}
		return List(items...), nil
	case KindMap:
		obj := Object()
		for _, k := range v.keys {
			before := len(e.parts.Files)
			c, err := e.walk(v.m[k], path+"."+k)
			if err != nil {
				return Value{}, err
			}
			// map paths are dotted, so a key holding a dot cannot lead to a file
			if len(e.parts.Files) > before && strings.Contains(k, ".") {
				return Value{}, invalidf("key %q at %s cannot be addressed in the map part", k, path)
			}
			obj.set(k, c)
		}
		return obj, nil
	}
	return v, nil
}

// MapJSON renders the map part with indices in numeric order.
func (p *Parts) MapJSON() []byte {
	idx := make([]int, 0, len(p.Map))
	for k := range p.Map {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range idx {
		if i > 0 {
			buf.WriteByte(',')
		}
		k := strconv.Itoa(n)
		paths, _ := json.Marshal(p.Map[k])
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(paths)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Write emits the operations, variables and map fields followed by one part
// per file. A positive limit caps the total number of file bytes; exceeding
// it returns ErrInvalidArgument.
func (p *Parts) Write(w *mimemultipart.Writer, limit int64) error {
	fields := []struct {
		name string
		data []byte
	}{
		{"operations", []byte(OperationsPlaceholder)},
		{"variables", p.Variables},
		{"map", p.MapJSON()},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, string(f.data)); err != nil {
			return errors.Wrapf(err, "write %s part", f.name)
		}
	}
	remaining := limit
	for _, part := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     part.indexKey(),
			"filename": part.File.filename(),
		}))
		h.Set("Content-Type", part.File.contentType())
		pw, err := w.CreatePart(h)
		if err != nil {
			return errors.Wrapf(err, "create part %d", part.Index)
		}
		if limit <= 0 {
			if _, err := io.Copy(pw, part.File.Reader); err != nil {
				return errors.Wrapf(err, "read file %s", part.Path)
			}
			continue
		}
		n, err := io.CopyN(pw, part.File.Reader, remaining+1)
		if err != nil && err != io.EOF {
			return errors.Wrapf(err, "read file %s", part.Path)
		}
		if n > remaining {
			return invalidf("upload exceeds %d bytes at %s", limit, part.Path)
		}
		remaining -= n
	}
	return nil
}

// Body buffers the full multipart body and returns it with its content type.
func (p *Parts) Body(limit int64) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := mimemultipart.NewWriter(&buf)
	if err := p.Write(w, limit); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

// Reconstruct attaches files to the null-substituted variables at the paths
// named by the map part. It is the inverse of Encode.
func Reconstruct(variables []byte, mapping map[string][]string, files map[string]*File) (Value, error) {
	root, err := ParseJSON(variables)
	if err != nil {
		return Value{}, err
	}
	for idx, paths := range mapping {
		f, ok := files[idx]
		if !ok {
			return Value{}, invalidf("missing file part %s", idx)
		}
		for _, path := range paths {
			segs := strings.Split(path, ".")
			if len(segs) < 2 || segs[0] != RootPath {
				return Value{}, invalidf("path %q is outside %s", path, RootPath)
			}
			if root, err = setPath(root, segs[1:], FileValue(f), false); err != nil {
				return Value{}, errors.Wrapf(err, "attach part %s", idx)
			}
		}
	}
	return root, nil
}

// Attach places leaf at the dotted path below root, creating maps for
// missing keys. List segments must address an existing element. Maps and
// lists reachable from root are modified in place.
func Attach(root Value, path string, leaf Value) (Value, error) {
	if path == "" {
		return Value{}, invalidf("empty path")
	}
	if root.Kind() == KindNull {
		root = Object()
	}
	return setPath(root, strings.Split(path, "."), leaf, true)
}

func setPath(v Value, segs []string, leaf Value, create bool) (Value, error) {
	if len(segs) == 0 {
		return leaf, nil
	}
	if create && v.Kind() == KindNull {
		v = Object()
	}
	switch v.Kind() {
	case KindMap:
		child, ok := v.m[segs[0]]
		if !ok && !create {
			return Value{}, invalidf("no key %q", segs[0])
		}
		c, err := setPath(child, segs[1:], leaf, create)
		if err != nil {
			return Value{}, err
		}
		v.set(segs[0], c)
		return v, nil
	case KindList:
		i, err := strconv.Atoi(segs[0])
		if err != nil || i < 0 || i >= len(v.list) {
			return Value{}, invalidf("no index %q", segs[0])
		}
		c, err := setPath(v.list[i], segs[1:], leaf, create)
		if err != nil {
			return Value{}, err
		}
		v.list[i] = c
		return v, nil
	}
	return Value{}, invalidf("cannot descend into %s at %q", v.Kind(), segs[0])
}

func (p Part) indexKey() string {
	return strconv.Itoa(p.Index)
}
