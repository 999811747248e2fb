package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsboard/internal/config"
	"newsboard/internal/database"
	"newsboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:          "test",
		Port:         "0",
		JWTSecret:    "flow-test-secret",
		JWTIssuer:    "newsboard-test",
		JWTTTLHours:  1,
		FeatureFlags: "search=on,live_feed=on",
	}
}

func newTestServer(t *testing.T, rdb *redis.Client) (*Server, *fiber.App) {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	s, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	return s, s.NewApp()
}

type apiClient struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (a apiClient) do(method, path string, body any) (*http.Response, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, raw
}

func (a apiClient) as(token string) apiClient {
	a.token = token
	return a
}

func signUp(t *testing.T, api apiClient, username string) (string, uint) {
	t.Helper()
	resp, raw := api.do(http.MethodPost, "/api/auth/sign-up", map[string]string{
		"username": username,
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var body struct {
		Data struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token, body.Data.User.ID
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body.Code
}

func TestBoardFlow(t *testing.T) {
	_, app := newTestServer(t, nil)
	api := apiClient{t: t, app: app}

	aliceToken, _ := signUp(t, api, "alice")
	bobToken, _ := signUp(t, api, "bob")
	alice := api.as(aliceToken)
	bob := api.as(bobToken)

	t.Run("duplicate sign up conflicts", func(t *testing.T) {
		resp, raw := api.do(http.MethodPost, "/api/auth/sign-up", map[string]string{
			"username": "alice", "password": "password1",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, string(models.KindConflict), errorCode(t, raw))
	})

	t.Run("log in with wrong password", func(t *testing.T) {
		resp, raw := api.do(http.MethodPost, "/api/auth/log-in", map[string]string{
			"username": "alice", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(models.KindInvalidCredentials), errorCode(t, raw))
	})

	t.Run("listing requires a token", func(t *testing.T) {
		resp, raw := api.do(http.MethodGet, "/api/posts", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(models.KindMissingToken), errorCode(t, raw))
	})

	resp, raw := alice.do(http.MethodPost, "/api/posts", map[string]string{
		"title": "Show board: a tiny news board",
		"url":   "https://example.com/board",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created struct {
		Data models.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	postID := created.Data.ID
	postPath := fmt.Sprintf("/api/posts/%d", postID)

	t.Run("list paginates", func(t *testing.T) {
		resp, raw := bob.do(http.MethodGet, "/api/posts?page=1&limit=5", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page struct {
			Data       []models.Post `json:"data"`
			Pagination struct {
				TotalItems  int64 `json:"total_items"`
				CurrentPage int   `json:"current_page"`
				HasNextPage bool  `json:"has_next_page"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(raw, &page))
		assert.Len(t, page.Data, 1)
		assert.Equal(t, int64(1), page.Pagination.TotalItems)
		assert.False(t, page.Pagination.HasNextPage)
	})

	t.Run("invalid pagination", func(t *testing.T) {
		resp, raw := bob.do(http.MethodGet, "/api/posts?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, string(models.KindInvalidPagination), errorCode(t, raw))
	})

	t.Run("non owner cannot edit", func(t *testing.T) {
		resp, raw := bob.do(http.MethodPatch, postPath, map[string]string{"title": "hijacked"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, string(models.KindForbidden), errorCode(t, raw))

		resp, raw = api.do(http.MethodGet, postPath, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), "Show board")
	})

	commentsPath := fmt.Sprintf("/api/comments/on/%d", postID)
	resp, raw = bob.do(http.MethodPost, commentsPath, map[string]any{"content": "Nice work"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var parent struct {
		Data models.Comment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &parent))

	resp, raw = alice.do(http.MethodPost, commentsPath, map[string]any{
		"content":   "Thanks!",
		"parent_id": parent.Data.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var reply struct {
		Data models.Comment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))

	t.Run("comment with replies cannot be deleted", func(t *testing.T) {
		resp, raw := bob.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", parent.Data.ID), nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, string(models.KindHasReplies), errorCode(t, raw))
	})

	t.Run("replies are listed", func(t *testing.T) {
		resp, raw := bob.do(http.MethodGet, fmt.Sprintf("/api/comments/%d/replies", parent.Data.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), "Thanks!")
	})

	t.Run("reply then parent can be deleted", func(t *testing.T) {
		resp, _ := alice.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", reply.Data.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = bob.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", parent.Data.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	likesPath := fmt.Sprintf("/api/likes/on/%d", postID)
	t.Run("likes are idempotent", func(t *testing.T) {
		resp, _ := bob.do(http.MethodPost, likesPath, nil)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp, _ = bob.do(http.MethodPost, likesPath, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, raw := api.do(http.MethodGet, fmt.Sprintf("/api/likes/count/%d", postID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"data":{"total_likes":1}}`, string(raw))

		resp, raw = bob.do(http.MethodGet, fmt.Sprintf("/api/likes/status/%d", postID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"data":{"total_likes":1,"is_liked_by_current_user":true}}`, string(raw))
	})

	t.Run("unlike", func(t *testing.T) {
		resp, _ := bob.do(http.MethodDelete, likesPath, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp, raw := bob.do(http.MethodDelete, likesPath, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, string(models.KindNotFound), errorCode(t, raw))
	})

	t.Run("search", func(t *testing.T) {
		resp, raw := api.do(http.MethodGet, "/api/posts/search?q=tiny", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), "Show board")
	})

	t.Run("owner deletes post", func(t *testing.T) {
		resp, _ := bob.do(http.MethodDelete, postPath, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = alice.do(http.MethodDelete, postPath, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = api.do(http.MethodGet, postPath, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("me", func(t *testing.T) {
		resp, raw := alice.do(http.MethodGet, "/api/users/me", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), `"username":"alice"`)
		assert.NotContains(t, string(raw), "password")
	})
}

func TestUpdatePostPatchSemantics(t *testing.T) {
	_, app := newTestServer(t, nil)
	api := apiClient{t: t, app: app}
	token, _ := signUp(t, api, "carol")
	carol := api.as(token)

	resp, raw := carol.do(http.MethodPost, "/api/posts", map[string]string{
		"title": "t", "url": "https://example.com", "content": "c",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created struct {
		Data models.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	postPath := fmt.Sprintf("/api/posts/%d", created.Data.ID)

	decodePost := func(raw []byte) models.Post {
		var body struct {
			Data models.Post `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
		return body.Data
	}

	t.Run("omitted fields are kept", func(t *testing.T) {
		resp, raw := carol.do(http.MethodPatch, postPath, map[string]any{"title": "renamed"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		post := decodePost(raw)
		assert.Equal(t, "renamed", post.Title)
		require.NotNil(t, post.URL)
		assert.Equal(t, "https://example.com", *post.URL)
		require.NotNil(t, post.Content)
		assert.Equal(t, "c", *post.Content)
	})

	t.Run("null title is rejected", func(t *testing.T) {
		resp, raw := carol.do(http.MethodPatch, postPath, map[string]any{"title": nil})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, string(models.KindValidation), errorCode(t, raw))
	})

	t.Run("null clears url and content", func(t *testing.T) {
		resp, raw := carol.do(http.MethodPatch, postPath, map[string]any{"url": nil, "content": nil})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		post := decodePost(raw)
		assert.Equal(t, "renamed", post.Title)
		assert.Nil(t, post.URL)
		assert.Nil(t, post.Content)

		resp, raw = api.do(http.MethodGet, postPath, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		post = decodePost(raw)
		assert.Nil(t, post.URL)
		assert.Nil(t, post.Content)
	})
}

func TestListPostsRejectsOverflowingPage(t *testing.T) {
	_, app := newTestServer(t, nil)
	api := apiClient{t: t, app: app}
	token, _ := signUp(t, api, "dave")
	dave := api.as(token)

	resp, raw := dave.do(http.MethodPost, "/api/posts", map[string]string{"title": "only post"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = dave.do(http.MethodGet, "/api/posts?page=9223372036854775807&limit=2", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(models.KindInvalidPagination), errorCode(t, raw))

	resp, raw = dave.do(http.MethodGet, "/api/posts?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"data":[]`)
	assert.Contains(t, string(raw), `"has_next_page":false`)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	_, app := newTestServer(t, nil)
	api := apiClient{t: t, app: app}
	token, _ := signUp(t, api, "erin")
	erin := api.as(token)

	for _, title := range []string{"100% uptime", "plain title"} {
		resp, raw := erin.do(http.MethodPost, "/api/posts", map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	}

	resp, raw := api.do(http.MethodGet, "/api/posts/search?q=%25", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), "100% uptime")
	assert.NotContains(t, string(raw), "plain title")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	_, app := newTestServer(t, nil)

	resp, raw := apiClient{t: t, app: app}.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(models.KindNotFound), errorCode(t, raw))
}

func TestReadinessCheck(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		_, app := newTestServer(t, nil)
		resp, raw := apiClient{t: t, app: app}.do(http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), `"redis":"unavailable"`)
	})

	t.Run("redis healthy then down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		_, app := newTestServer(t, rdb)

		resp, raw := apiClient{t: t, app: app}.do(http.MethodGet, "/health/ready", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		assert.Contains(t, string(raw), `"redis":"healthy"`)

		mr.Close()
		resp, raw = apiClient{t: t, app: app}.do(http.MethodGet, "/health/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(raw), `"redis":"unhealthy"`)
	})
}
