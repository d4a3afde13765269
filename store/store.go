// Package store keeps per-chat conversation history.
// The chat ID is taken from the chatmodel context on every call, so the
// same store instance serves any number of concurrent chats.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "store")

// DefaultMaxMessages is the number of most recent messages kept per chat.
const DefaultMaxMessages = 50

// ErrInvalidChatContext is returned when the context does not carry a chat ID.
var ErrInvalidChatContext = errors.New("invalid chat context")

// MessageStore keeps conversation history per chat.
type MessageStore interface {
	// Messages returns the stored history for the chat in the context,
	// oldest first. Backend failures are logged and yield an empty history.
	Messages(ctx context.Context) []llms.Message
	// Add appends a message to the history for the chat in the context.
	Add(ctx context.Context, msg llms.Message) error
	// Reset removes the stored history for the chat in the context.
	Reset(ctx context.Context) error
}

func chatIDFromContext(ctx context.Context) (string, error) {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return "", errors.WithStack(ErrInvalidChatContext)
	}
	return chatID, nil
}
