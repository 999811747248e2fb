package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishFeed(context.Background(), "payload"))
	assert.NoError(t, n.PublishPost(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishUser(context.Background(), 1, "payload"))
	assert.NoError(t, n.StartSubscriber(context.Background(), func(string, string) {
		t.Fatal("no messages expected")
	}))
}

func TestParseChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channel string
		kind    string
		id      uint
		wantErr bool
	}{
		{channel: FeedChannel, kind: "feed"},
		{channel: PostChannel(5), kind: "post", id: 5},
		{channel: UserChannel(100), kind: "user", id: 100},
		{channel: "board:post:abc", wantErr: true},
		{channel: "chat:conv:1", wantErr: true},
	}

	for _, tt := range tests {
		kind, id, err := ParseChannel(tt.channel)
		if tt.wantErr {
			assert.Error(t, err, tt.channel)
			continue
		}
		require.NoError(t, err, tt.channel)
		assert.Equal(t, tt.kind, kind)
		assert.Equal(t, tt.id, id)
	}
}

func TestNotifier_SubscriberReceivesAndStops(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type msg struct{ channel, payload string }
	received := make(chan msg, 4)
	require.NoError(t, n.StartSubscriber(ctx, func(channel, payload string) {
		received <- msg{channel, payload}
	}))

	require.NoError(t, n.PublishPost(context.Background(), 3, "hello"))
	select {
	case m := <-received:
		assert.Equal(t, PostChannel(3), m.channel)
		assert.Equal(t, "hello", m.payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishFeed(context.Background(), "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case m := <-received:
			return m.payload == "after-cancel"
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestHub_WiredThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub()
	client, err := hub.Register(1, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	event, err := NewEvent(EventPostCreated, 4, 2, map[string]any{"title": "hi"}).Encode()
	require.NoError(t, err)
	require.NoError(t, n.PublishFeed(context.Background(), event))

	select {
	case got := <-client.Send:
		assert.JSONEq(t, event, string(got))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed event")
	}
}
