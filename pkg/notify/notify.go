// Package notify sends best-effort push notifications about notable agent
// events, such as a visitor leaving contact details or a question the agent
// could not answer.
package notify

import (
	"context"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/persona", "notify")

// Sender delivers a short notification text. Implementations are
// best-effort: callers treat a failed send as an observability event, not a
// turn failure.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Config provides the Pushover credentials.
type Config struct {
	// Token is the Pushover application token.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	// User is the Pushover user key.
	User string `json:"user,omitempty" yaml:"user,omitempty"`
}

// New returns a Pushover sender when both credentials are configured,
// otherwise a Noop sender, so callers can always construct.
func New(cfg *Config) Sender {
	if cfg == nil || cfg.Token == "" || cfg.User == "" {
		logger.KV(xlog.INFO, "status", "pushover_not_configured", "sender", "noop")
		return Noop{}
	}
	return NewPushover(cfg.Token, cfg.User)
}

// Noop is a sender that drops notifications.
type Noop struct{}

var _ Sender = Noop{}

// Send implements Sender.
func (Noop) Send(ctx context.Context, text string) error {
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "notification_dropped",
		"text_length", len(text),
	)
	return nil
}
