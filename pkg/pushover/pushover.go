// Package pushover is a minimal client for the Pushover message API, the
// gateway's out-of-band notification channel. Delivery is best-effort;
// callers decide whether a failure matters.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const messagesPath = "/1/messages.json"

type Config struct {
	Token   string        `split_words:"true" required:"true"`
	User    string        `split_words:"true" required:"true"`
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.pushover.net"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	user       string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("pushover token is required")
	}
	user := strings.TrimSpace(cfg.User)
	if user == "" {
		return nil, errors.New("pushover user is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("pushover base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		user:    user,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Send posts one message. No acknowledgement beyond the HTTP status is
// required and nothing is retried.
func (c *Client) Send(ctx context.Context, message, title string, priority int) error {
	if c == nil {
		return errors.New("nil pushover client")
	}

	form := url.Values{
		"token":    {c.token},
		"user":     {c.user},
		"message":  {message},
		"title":    {title},
		"priority": {strconv.Itoa(priority)},
		"sound":    {"magic"},
		"html":     {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute pushover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pushover http status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
