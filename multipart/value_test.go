package multipart

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeepsKeyOrder(t *testing.T) {
	v := Object(KV("b", Int(1)), KV("a", Int(2)), KV("b", Int(3)))
	assert.Equal(t, []string{"b", "a"}, v.Keys())
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(b))
}

func TestValueJSONScalars(t *testing.T) {
	v := Object(
		KV("n", Null()),
		KV("t", Bool(true)),
		KV("f", Float(1.5)),
		KV("s", String("q\"x")),
		KV("l", List()),
	)
	b, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"n":null,"t":true,"f":1.5,"s":"q\"x","l":[]}`, string(b))

	_, err = json.Marshal(Object(KV("file", FileValue(NewFile("x", strings.NewReader(""))))))
	assert.True(t, errors.Is(err, ErrFileInJSON))

	_, err = Number("abc").MarshalJSON()
	assert.Error(t, err)
}

func TestParseJSONRoundTrip(t *testing.T) {
	src := `{"z":1,"a":[true,null,"s",{"k":2.50}]}`
	v, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, v.Keys())
	b, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, src, string(b))

	_, err = ParseJSON([]byte(`{"a":1} {}`))
	assert.Error(t, err)
	_, err = ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	f := NewFile("a", strings.NewReader(""))
	a := Object(KV("x", Int(1)), KV("y", FileValue(f)))
	b := Object(KV("y", FileValue(f)), KV("x", Int(1)))
	assert.True(t, a.Equal(b))
	c := Object(KV("y", FileValue(NewFile("a", strings.NewReader("")))), KV("x", Int(1)))
	assert.False(t, a.Equal(c))
	assert.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))
	assert.False(t, Int(1).Equal(String("1")))
}

type postInput struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

type withFile struct {
	Doc *File `json:"doc"`
}

type named string

func TestFromAny(t *testing.T) {
	f := NewFile("a", strings.NewReader(""))
	v, err := FromAny(map[string]any{
		"zeta":  1,
		"alpha": []any{"x", f, uint8(7), 2.5},
		"post":  postInput{Title: "hi"},
		"ptr":   &postInput{Title: "p", Tags: []string{"t"}},
		"named": named("n"),
		"ints":  []int{1, 2},
		"smap":  map[string]string{"b": "2", "a": "1"},
		"nil":   nil,
		"raw":   json.RawMessage(`{"k":[1]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "ints", "named", "nil", "post", "ptr", "raw", "smap", "zeta"}, v.Keys())

	alpha, _ := v.Get("alpha")
	file, ok := alpha.Index(1)
	require.True(t, ok)
	assert.Equal(t, KindFile, file.Kind())
	assert.Same(t, f, file.File())

	parts, err := Encode(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"alpha":["x",null,7,2.5],
		"ints":[1,2],
		"named":"n",
		"nil":null,
		"post":{"title":"hi"},
		"ptr":{"title":"p","tags":["t"]},
		"raw":{"k":[1]},
		"smap":{"a":"1","b":"2"},
		"zeta":1
	}`, string(parts.Variables))
}

func TestFromAnyRejectsUntraversable(t *testing.T) {
	selfMap := map[string]any{"a": 1}
	selfMap["self"] = selfMap
	selfList := []any{1, nil}
	selfList[1] = selfList
	selfPtr := new(any)
	*selfPtr = selfPtr
	cases := map[string]any{
		"cyclicMap":     selfMap,
		"cyclicList":    selfList,
		"cyclicNested":  map[string]any{"input": map[string]any{"deep": selfMap}},
		"cyclicPointer": map[string]any{"p": selfPtr},
		"chan":          map[string]any{"c": make(chan int)},
		"func":          map[string]any{"f": func() {}},
		"complex":       []any{complex(1, 2)},
		"intKeys":       map[int]string{1: "a"},
		"structFile":    withFile{Doc: NewFile("a", strings.NewReader(""))},
		"nilFile":       map[string]any{"f": (*File)(nil)},
		"badRawMessage": json.RawMessage(`{`),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromAny(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument), err.Error())
		})
	}
}

func TestFromAnySharedValuesAreNotCycles(t *testing.T) {
	shared := map[string]any{"k": "v"}
	tags := []any{"a", "b"}
	v, err := FromAny(map[string]any{"x": shared, "y": shared, "t1": tags, "t2": tags})
	require.NoError(t, err)
	parts, err := Encode(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"t1":["a","b"],"t2":["a","b"],"x":{"k":"v"},"y":{"k":"v"}}`, string(parts.Variables))
}

func TestFromAnyStructWithoutFileSet(t *testing.T) {
	v, err := FromAny(withFile{})
	require.NoError(t, err)
	d, ok := v.Get("doc")
	require.True(t, ok)
	assert.Equal(t, KindNull, d.Kind())
}
