package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// Redis implements MessageStore on a shared Redis instance so horizontally
// scaled deployments serve the same live sessions. Each chat history is a
// Redis list at `<prefix>/chatstore/messages/<chatID>`, trimmed to the most
// recent messages on every write. An optional TTL expires idle chats.
type Redis struct {
	client *redis.Client
	prefix string
	max    int64
	ttl    time.Duration
}

// NewRedisStore returns a Redis-backed MessageStore with the given key
// prefix, keeping at most DefaultMaxMessages per chat and no expiry.
func NewRedisStore(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		max:    DefaultMaxMessages,
	}
}

// WithMaxMessages overrides the number of most recent messages kept per chat.
func (m *Redis) WithMaxMessages(n int) *Redis {
	if n > 0 {
		m.max = int64(n)
	}
	return m
}

// WithTTL expires a chat history after the given duration of inactivity.
func (m *Redis) WithTTL(ttl time.Duration) *Redis {
	m.ttl = ttl
	return m
}

func (m *Redis) messagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *Redis) Messages(ctx context.Context) []llms.Message {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "chat_context", "err", err.Error())
		return nil
	}

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "lrange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal_message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *Redis) Add(ctx context.Context, msg llms.Message) error {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := m.messagesKey(chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if m.max > 0 {
		// keep only the most recent messages
		pipe.LTrim(ctx, key, -m.max, -1)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}
	return nil
}

func (m *Redis) Reset(ctx context.Context) error {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		return err
	}

	err = m.client.Del(ctx, m.messagesKey(chatID)).Err()
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}
