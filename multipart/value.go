package multipart

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// Value is a node of a variables document: a JSON scalar, a list, a map with
// ordered keys, or a file handle. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	list []Value
	keys []string
	m    map[string]Value
	file *File
}

// Field is one key of a map Value.
type Field struct {
	Key   string
	Value Value
}

func Null() Value                { return Value{} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }
func Int(n int64) Value          { return Number(json.Number(strconv.FormatInt(n, 10))) }
func String(s string) Value      { return Value{kind: KindString, str: s} }

// Float returns a number Value in the shortest representation of f.
func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'g', -1, 64)))
}

// List returns a list Value holding items in order.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// KV builds a Field for Object.
func KV(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Object returns a map Value whose keys keep the order given. A repeated key
// replaces the earlier value in its original position.
func Object(fields ...Field) Value {
	v := Value{kind: KindMap, m: make(map[string]Value, len(fields))}
	for _, f := range fields {
		v.set(f.Key, f.Value)
	}
	return v
}

// FileValue wraps a file handle.
func FileValue(f *File) Value {
	return Value{kind: KindFile, file: f}
}

func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is null, an empty list or an empty map.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.keys) == 0
	}
	return false
}

// Len returns the number of items of a list or keys of a map.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.keys)
	}
	return 0
}

// Keys returns map keys in order.
func (v Value) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the value stored under key of a map.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Index returns the i-th item of a list.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

func (v Value) Bool() bool          { return v.b }
func (v Value) Number() json.Number { return v.num }
func (v Value) Str() string         { return v.str }
func (v Value) File() *File         { return v.file }

func (v *Value) set(key string, val Value) {
	if _, ok := v.m[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.m[key] = val
}

// Equal reports deep structural equality. Map key order is ignored and files
// compare by handle identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindFile:
		return v.file == o.file
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.keys) != len(o.keys) {
			return false
		}
		for _, k := range v.keys {
			ov, ok := o.m[k]
			if !ok || !v.m[k].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON writes v with map keys in order. A file anywhere in v yields
// ErrFileInJSON; Encode strips files before serializing.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindFile:
		return ErrFileInJSON
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		b, err := json.Marshal(v.num)
		if err != nil {
			return errors.Wrapf(err, "invalid number %q", string(v.num))
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.m[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.Newf("unknown value kind %d", v.kind)
	}
	return nil
}
