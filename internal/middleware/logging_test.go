package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger_AddsContextAttrs(t *testing.T) {
	t.Cleanup(func() { ConfigureLogger("test", &bytes.Buffer{}) })

	var buf bytes.Buffer
	ConfigureLogger("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, 42)
	Logger.With("component", "test").InfoContext(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, float64(42), line["user_id"])
	assert.Equal(t, "test", line["component"])
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	uid, ok := UserIDFromContext(WithUserID(context.Background(), 9))
	assert.True(t, ok)
	assert.Equal(t, uint(9), uid)

	_, ok = UserIDFromContext(WithUserID(context.Background(), 0))
	assert.False(t, ok)
}
