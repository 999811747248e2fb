package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix      = "post:%d"
	LikeCountKeyPrefix = "post:%d:likes"
)

// Read-model lifetimes. SetTTL overrides them at startup.
var (
	PostTTL      = 5 * time.Minute
	LikeCountTTL = 1 * time.Minute
)

// SetTTL sets the lifetime of every cached read model. Non-positive values
// keep the defaults. Call before serving requests.
func SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	PostTTL = ttl
	LikeCountTTL = ttl
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func LikeCountKey(postID uint) string {
	return fmt.Sprintf(LikeCountKeyPrefix, postID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, and stores the result with ttl. Redis failures fall through to
// fetch so the cache never fails a read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	family := keyFamily(key)

	ctx, span := observability.TraceRedisOperation(ctx, "aside")
	defer span.End()

	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate drops keys; errors are ignored because the entries expire anyway.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidatePost drops every cached read model derived from the post.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID), LikeCountKey(postID))
}

func keyFamily(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) > 2 {
		return parts[0] + ":" + parts[len(parts)-1]
	}
	return parts[0]
}

// Healthy pings Redis. A disabled cache reports healthy.
func Healthy(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}
