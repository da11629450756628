package tui

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func TestHasTTY(t *testing.T) {
	assert.Contains(t, []bool{true, false}, HasTTY)
}

func TestRenderErrors(t *testing.T) {
	assert.Empty(t, RenderErrors(nil))

	out := RenderErrors(gqlerror.List{
		{
			Message:    "forbidden",
			Path:       ast.Path{ast.PathName("createPost")},
			Locations:  []gqlerror.Location{{Line: 2, Column: 3}},
			Extensions: map[string]interface{}{"code": "FORBIDDEN"},
		},
		{Message: "second"},
	})
	assert.Contains(t, out, "2 GraphQL error(s)")
	assert.Contains(t, out, "forbidden")
	assert.Contains(t, out, "createPost")
	assert.Contains(t, out, "2:3")
	assert.Contains(t, out, "FORBIDDEN")
	assert.Contains(t, out, "second")
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	ShowSuccess(&buf, "uploaded %d file(s)", 2)
	ShowError(&buf, "failed: %s", "boom")
	assert.Contains(t, buf.String(), "uploaded 2 file(s)")
	assert.Contains(t, buf.String(), "failed: boom")
}

func TestWithSpinnerWithoutTTY(t *testing.T) {
	if HasTTY {
		t.Skip("requires a non-interactive stdout")
	}
	want := errors.New("boom")
	err := WithSpinner(context.Background(), "working", func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
	ran := false
	assert.NoError(t, WithSpinner(context.Background(), "working", func(context.Context) error { ran = true; return nil }))
	assert.True(t, ran)
}
