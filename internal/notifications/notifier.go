// Package notifications fans board events out to websocket clients, across
// instances through Redis pub/sub when it is available.
package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"newsboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	FeedChannel       = "board:feed"
	postChannelPrefix = "board:post:"
	userChannelPrefix = "notifications:user:"
)

// PostChannel derives the Redis channel name for a post's activity.
func PostChannel(postID uint) string {
	return postChannelPrefix + strconv.FormatUint(uint64(postID), 10)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseChannel splits a channel name into its kind ("feed", "post" or
// "user") and numeric id.
func ParseChannel(channel string) (kind string, id uint, err error) {
	if channel == FeedChannel {
		return "feed", 0, nil
	}
	var raw string
	switch {
	case strings.HasPrefix(channel, postChannelPrefix):
		kind, raw = "post", strings.TrimPrefix(channel, postChannelPrefix)
	case strings.HasPrefix(channel, userChannelPrefix):
		kind, raw = "user", strings.TrimPrefix(channel, userChannelPrefix)
	default:
		return "", 0, fmt.Errorf("unknown channel %q", channel)
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid channel %q: %w", channel, err)
	}
	return kind, uint(n), nil
}

// Notifier publishes board events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events leave this process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishFeed sends a payload to every connected client.
func (n *Notifier) PublishFeed(ctx context.Context, payload string) error {
	return n.publish(ctx, FeedChannel, payload)
}

// PublishPost sends a payload to clients watching a post.
func (n *Notifier) PublishPost(ctx context.Context, postID uint, payload string) error {
	return n.publish(ctx, PostChannel(postID), payload)
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	return n.publish(ctx, UserChannel(userID), payload)
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartSubscriber subscribes to the feed, post and user channels and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, FeedChannel, postChannelPrefix+"*", userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in board subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
