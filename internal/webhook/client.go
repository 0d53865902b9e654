package webhook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matheus3301/hookchat/internal/store"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultSendTimeout = 30 * time.Second
	DefaultPollTimeout = 5 * time.Second

	// Source tags every envelope so the remote workflow can tell clients apart.
	Source = "hookchat"

	maxResponseBody = 1 << 20
)

// Identity is the local user as the remote workflow sees it.
type Identity struct {
	ID    string
	Name  string
	Phone string
}

// Options configures a Client.
type Options struct {
	SendURL     string
	PollURL     string
	Identity    Identity
	SendTimeout time.Duration
	PollTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Envelope is the JSON body posted to the send endpoint.
type Envelope struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserPhone string `json:"userPhone"`
	SessionID string `json:"sessionId,omitempty"`
	Source    string `json:"source"`
}

// Ack is a successful send response, body passed through.
type Ack struct {
	StatusCode int
	Body       []byte
}

// Inbound is one message reported by the poll endpoint.
type Inbound struct {
	ID        string
	Text      string
	From      string
	Timestamp int64
}

// Client talks to the remote workflow over plain HTTP webhooks. It holds no
// state between calls and never retries.
type Client struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

// New creates a Client, filling unset timeouts with the defaults.
func New(opts Options) *Client {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, http: hc, logger: logger.Named("webhook")}
}

// Send posts msg to the send endpoint. Failures are one of *RemoteError,
// *UnreachableError or *LocalError.
func (c *Client) Send(ctx context.Context, msg store.Message, sessionID string) (Ack, error) {
	if c.opts.SendURL == "" {
		return Ack{}, &LocalError{Err: fmt.Errorf("send url not configured")}
	}

	body, err := json.Marshal(Envelope{
		MessageID: msg.ID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		UserID:    c.opts.Identity.ID,
		UserName:  c.opts.Identity.Name,
		UserPhone: c.opts.Identity.Phone,
		SessionID: sessionID,
		Source:    Source,
	})
	if err != nil {
		return Ack{}, &LocalError{Err: fmt.Errorf("encode envelope: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.SendTimeout)
	defer cancel()

	if err := checkURL(c.opts.SendURL); err != nil {
		return Ack{}, &LocalError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.SendURL, bytes.NewReader(body))
	if err != nil {
		return Ack{}, &LocalError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Ack{}, &UnreachableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Ack{}, &UnreachableError{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Ack{}, &RemoteError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Debug("message delivered to remote",
		zap.String("msg_id", msg.ID),
		zap.Int("status", resp.StatusCode))
	return Ack{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Poll fetches messages newer than since. Any failure, including a missing
// or malformed "messages" array, yields an empty result.
func (c *Client) Poll(ctx context.Context, since int64) []Inbound {
	if c.opts.PollURL == "" {
		return nil
	}

	u, err := url.Parse(c.opts.PollURL)
	if err != nil {
		c.logger.Warn("invalid poll url", zap.Error(err))
		return nil
	}
	q := u.Query()
	q.Set("userId", c.opts.Identity.ID)
	q.Set("since", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.logger.Warn("build poll request", zap.Error(err))
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("poll failed", zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("poll rejected", zap.Int("status", resp.StatusCode))
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.logger.Debug("read poll response", zap.Error(err))
		return nil
	}
	return ParseInbound(body)
}

// checkURL rejects targets the HTTP client could never dispatch to.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid send url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid send url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid send url %q: missing host", raw)
	}
	return nil
}

// derivedID names an inbound entry that arrived without an id. The same
// entry re-polled gets the same id.
func derivedID(in Inbound) string {
	sum := sha256.Sum256([]byte(in.From + "\x00" + strconv.FormatInt(in.Timestamp, 10) + "\x00" + in.Text))
	return "in-" + hex.EncodeToString(sum[:8])
}

// ParseInbound extracts the "messages" array of a poll response. Entries
// without text are skipped; entries without an id get one derived from
// sender, timestamp and text.
func ParseInbound(body []byte) []Inbound {
	if !gjson.ValidBytes(body) {
		return nil
	}
	arr := gjson.GetBytes(body, "messages")
	if !arr.IsArray() {
		return nil
	}

	var out []Inbound
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		text := v.Get("text")
		if !text.Exists() || text.String() == "" {
			return true
		}
		in := Inbound{
			ID:        v.Get("id").String(),
			Text:      text.String(),
			From:      v.Get("from").String(),
			Timestamp: v.Get("timestamp").Int(),
		}
		if in.ID == "" {
			in.ID = derivedID(in)
		}
		out = append(out, in)
		return true
	})
	return out
}
