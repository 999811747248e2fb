package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseline = `
paths:
  /posts:
    get:
      responses:
        200: {description: OK}
        400: {description: Error}
    post:
      responses:
        "201": {description: Created}
  /likes/count/{postId}:
    get:
      responses:
        "200": {description: OK}
`

func TestParseSpec_YAMLAndJSON(t *testing.T) {
	spec, err := parseSpec([]byte(baseline))
	require.NoError(t, err)
	assert.Contains(t, spec.Paths["/posts"]["get"].Responses, "400")
	assert.Contains(t, spec.Paths["/posts"]["post"].Responses, "201")

	spec, err = parseSpec([]byte(`{"paths":{"/users":{"get":{"responses":{"200":{}}},"parameters":[]}}}`))
	require.NoError(t, err)
	assert.Len(t, spec.Paths["/users"], 1)

	_, err = parseSpec([]byte(`swagger: "2.0"`))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	base, err := parseSpec([]byte(baseline))
	require.NoError(t, err)

	revision, err := parseSpec([]byte(`
paths:
  /posts:
    get:
      responses:
        "200": {description: OK}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed operation: POST /posts",
		"removed path: /likes/count/{postId}",
		"removed response code: GET /posts -> 400",
	}, compare(base, revision))
	assert.Empty(t, compare(base, base))
}

func TestBuiltinDocsCoverBoardRoutes(t *testing.T) {
	spec, err := loadBuiltin()
	require.NoError(t, err)

	for _, path := range []string{
		"/auth/sign-up",
		"/auth/log-in",
		"/posts",
		"/posts/{postId}",
		"/comments/on/{postId}",
		"/comments/{commentId}",
		"/likes/on/{postId}",
	} {
		assert.Contains(t, spec.Paths, path)
	}
	assert.Contains(t, spec.Paths["/comments/{commentId}"]["delete"].Responses, "409")
}
