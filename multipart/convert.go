package multipart

import (
	"encoding/base64"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

var fileType = reflect.TypeOf(File{})

// FromAny converts ordinary Go values into a Value. Maps with string keys are
// walked in sorted key order, slices and arrays in index order. Structs are
// converted through their JSON form and must not contain files. Channels,
// funcs, complex numbers and values that contain themselves are rejected with
// ErrInvalidArgument.
func FromAny(v any) (Value, error) {
	c := &converter{active: map[visit]struct{}{}}
	return c.fromAny(v, RootPath)
}

// visit identifies a map, slice or pointer on the current descent.
type visit struct {
	ptr uintptr
	len int
	typ reflect.Type
}

type converter struct {
	active map[visit]struct{}
}

// enter records rv as being walked and returns the func that forgets it. A
// reference already on the path is a cycle.
func (c *converter) enter(rv reflect.Value, path string) (func(), error) {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if key.ptr == 0 {
		return func() {}, nil
	}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if _, ok := c.active[key]; ok {
		return nil, invalidf("cycle at %s", path)
	}
	c.active[key] = struct{}{}
	return func() { delete(c.active, key) }, nil
}

func (c *converter) fromAny(v any, path string) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *File:
		if t == nil {
			return Value{}, invalidf("nil file at %s", path)
		}
		return FileValue(t), nil
	case File:
		return FileValue(&t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case json.RawMessage:
		val, err := ParseJSON(t)
		if err != nil {
			return Value{}, errors.Mark(errors.Wrapf(err, "raw json at %s", path), ErrInvalidArgument)
		}
		return val, nil
	case []byte:
		return String(base64.StdEncoding.EncodeToString(t)), nil
	case map[string]any:
		leave, err := c.enter(reflect.ValueOf(t), path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Object()
		for _, k := range keys {
			child, err := c.fromAny(t[k], path+"."+k)
			if err != nil {
				return Value{}, err
			}
			obj.set(k, child)
		}
		return obj, nil
	case []any:
		leave, err := c.enter(reflect.ValueOf(t), path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		items := make([]Value, 0, len(t))
		for i, item := range t {
			child, err := c.fromAny(item, path+"."+strconv.Itoa(i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, child)
		}
		return List(items...), nil
	}
	return c.fromReflect(reflect.ValueOf(v), path)
}

func (c *converter) fromReflect(rv reflect.Value, path string) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null(), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(json.Number(strconv.FormatUint(rv.Uint(), 10))), nil
	case reflect.Float32:
		return Number(json.Number(strconv.FormatFloat(rv.Float(), 'g', -1, 32))), nil
	case reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return c.fromAny(rv.Elem().Interface(), path)
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.fromAny(rv.Elem().Interface(), path)
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return c.fromList(rv, path)
	case reflect.Array:
		return c.fromList(rv, path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, invalidf("map with %s keys at %s", rv.Type().Key(), path)
		}
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := c.enter(rv, path)
		if err != nil {
			return Value{}, err
		}
		defer leave()
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := Object()
		for _, k := range keys {
			mv := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			child, err := c.fromAny(mv.Interface(), path+"."+k)
			if err != nil {
				return Value{}, err
			}
			obj.set(k, child)
		}
		return obj, nil
	case reflect.Struct:
		if rv.Type() == fileType {
			f := rv.Interface().(File)
			return FileValue(&f), nil
		}
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			if errors.Is(err, ErrFileInJSON) {
				return Value{}, invalidf("struct %s at %s contains a file; use a map or multipart.Object", rv.Type(), path)
			}
			return Value{}, errors.Mark(errors.Wrapf(err, "encode %s at %s", rv.Type(), path), ErrInvalidArgument)
		}
		return ParseJSON(b)
	}
	return Value{}, invalidf("cannot encode %s at %s", rv.Kind(), path)
}

func (c *converter) fromList(rv reflect.Value, path string) (Value, error) {
	items := make([]Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		child, err := c.fromAny(rv.Index(i).Interface(), path+"."+strconv.Itoa(i))
		if err != nil {
			return Value{}, err
		}
		items = append(items, child)
	}
	return List(items...), nil
}
