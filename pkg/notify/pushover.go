package notify

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// DefaultPushoverURL is the Pushover messages endpoint.
const DefaultPushoverURL = "https://api.pushover.net/1/messages.json"

const channelPushover = "pushover"

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pushover sends notifications through the Pushover message API.
type Pushover struct {
	token      string
	user       string
	url        string
	httpClient Doer
}

var _ Sender = (*Pushover)(nil)

// NewPushover creates a Pushover sender with the given credentials.
func NewPushover(token, user string) *Pushover {
	return &Pushover{
		token:      token,
		user:       user,
		url:        DefaultPushoverURL,
		httpClient: http.DefaultClient,
	}
}

// WithURL overrides the endpoint URL.
func (p *Pushover) WithURL(u string) *Pushover {
	p.url = u
	return p
}

// WithHTTPClient overrides the HTTP client.
func (p *Pushover) WithHTTPClient(client Doer) *Pushover {
	p.httpClient = client
	return p
}

// Send posts the message as form data to the Pushover API.
func (p *Pushover) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.user)
	form.Set("message", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
	if err != nil {
		metricskey.StatsNotificationsFailed.IncrCounter(1, channelPushover)
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		metricskey.StatsNotificationsFailed.IncrCounter(1, channelPushover)
		return errors.WithMessage(err, "failed to send notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metricskey.StatsNotificationsFailed.IncrCounter(1, channelPushover)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("pushover returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	metricskey.StatsNotificationsSent.IncrCounter(1, channelPushover)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "notification_sent",
		"channel", channelPushover,
	)
	return nil
}
