package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProducer(t *testing.T, maxLen int64) (*Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProducer(client, "", maxLen), client
}

func TestPublishImageStored(t *testing.T) {
	producer, client := newTestProducer(t, 0)
	ctx := context.Background()

	id, err := producer.PublishImageStored(ctx, "peck-strut", ImageStored{
		Folder:       "v1-content-peck-strut-1-abc",
		OriginalURL:  "https://cdn.example.com/original.png",
		ThumbnailURL: "https://cdn.example.com/thumbnail.png",
		Provider:     "s3",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, TypeImageStored, entries[0].Values["type"])

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &msg))
	assert.Equal(t, TypeImageStored, msg.Type)
	assert.Equal(t, "peck-strut", msg.Namespace)
	assert.Equal(t, "s3", msg.Metadata["provider"])

	var evt ImageStored
	require.NoError(t, msg.UnmarshalPayload(&evt))
	assert.Equal(t, "v1-content-peck-strut-1-abc", evt.Folder)
}

func TestPublishPostPublished(t *testing.T) {
	producer, client := newTestProducer(t, 0)
	ctx := context.Background()

	_, err := producer.PublishPostPublished(ctx, PostPublished{
		Platform:  "instagram",
		PostID:    "1789",
		Permalink: "https://www.instagram.com/p/1789/",
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &msg))
	assert.Empty(t, msg.Namespace)
	assert.Equal(t, "instagram", msg.Metadata["platform"])

	var evt PostPublished
	require.NoError(t, msg.UnmarshalPayload(&evt))
	assert.Equal(t, "1789", evt.PostID)
}

func TestPublishFailsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewProducer(client, "events", 0).PublishPostPublished(context.Background(), PostPublished{PostID: "1"})
	assert.Error(t, err)
}
