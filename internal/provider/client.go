package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrRetriesExhausted is returned once every attempt against an endpoint failed transiently
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrInvalidPayload is returned when the provider answers with something other than a JSON object
	ErrInvalidPayload = errors.New("provider returned a non-object JSON body")
)

// APIError describes a non-successful provider response
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("provider %s returned status %d: %s", e.Endpoint, e.StatusCode, body)
}

// Retryable reports whether the status is worth another attempt
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a Client
type Options struct {
	BaseURL        string
	AccessToken    string
	AccountID      string
	MinInterval    time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffJitter  time.Duration
	RequestTimeout time.Duration
}

// Client talks to the mention provider API. Requests made through one Client are
// spaced by at least MinInterval.
type Client struct {
	opts    Options
	client  *resty.Client
	limiter *rate.Limiter
	jitter  func(limit time.Duration) time.Duration
}

// PageOptions selects one page of mentions
type PageOptions struct {
	Cursor string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// MentionsPage is one page of mentions plus the cursor of the following page
type MentionsPage struct {
	Mentions []Mention
	Next     string
}

// NewClient creates a new provider client
func NewClient(opts Options) *Client {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Client{
		opts: opts,
		client: resty.New().
			SetHeader("User-Agent", "Mentions-Sync/1.0").
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(limit, 1),
		jitter:  randomJitter,
	}
}

// ListAlerts fetches every alert visible to the configured account
func (c *Client) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	endpoint := c.accountPath() + "/alerts"

	root, err := c.get(ctx, endpoint, c.opts.BaseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}

	list, ok := firstOf(root, alertListStrategies)
	if !ok {
		return []models.Alert{}, nil
	}

	alerts := make([]models.Alert, 0)
	for _, item := range list.Array() {
		alert, ok := parseAlert(item)
		if !ok {
			logrus.Debugf("Dropping provider alert without identifier: %s", item.Raw)
			continue
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// ListMentionsPage fetches one page of mentions for an alert. A URL-shaped cursor is
// followed as-is; any other cursor is sent as a query parameter.
func (c *Client) ListMentionsPage(ctx context.Context, alertID string, opts PageOptions) (*MentionsPage, error) {
	endpoint := fmt.Sprintf("%s/alerts/%s/mentions", c.accountPath(), url.PathEscape(alertID))

	var root gjson.Result
	var err error
	if isURLCursor(opts.Cursor) {
		root, err = c.get(ctx, endpoint, opts.Cursor, nil)
	} else {
		query := url.Values{}
		if !opts.Since.IsZero() {
			query.Set("since", opts.Since.UTC().Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			query.Set("until", opts.Until.UTC().Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Cursor != "" {
			query.Set("cursor", opts.Cursor)
		}
		root, err = c.get(ctx, endpoint, c.opts.BaseURL+endpoint, query)
	}
	if err != nil {
		return nil, err
	}

	page := &MentionsPage{Mentions: []Mention{}}
	if list, ok := firstOf(root, mentionListStrategies); ok {
		for _, item := range list.Array() {
			if item.IsObject() {
				page.Mentions = append(page.Mentions, Mention{raw: item})
			}
		}
	}
	if next, ok := firstOf(root, nextCursorStrategies); ok {
		page.Next = strings.TrimSpace(next.String())
	}

	return page, nil
}

func (c *Client) accountPath() string {
	if c.opts.AccountID == "" {
		return ""
	}
	return "/accounts/" + url.PathEscape(c.opts.AccountID)
}

// get performs a throttled GET with retries and returns the parsed JSON object
func (c *Client) get(ctx context.Context, endpoint, rawURL string, query url.Values) (gjson.Result, error) {
	target, err := c.withToken(rawURL, query)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("provider %s: invalid request URL: %w", endpoint, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return gjson.Result{}, fmt.Errorf("provider %s: throttle wait: %w", endpoint, err)
		}

		root, err := c.attempt(ctx, endpoint, target)
		if err == nil {
			return root, nil
		}
		if ctx.Err() != nil {
			return gjson.Result{}, fmt.Errorf("provider %s: %w", endpoint, ctx.Err())
		}
		if !isRetryable(err) {
			return gjson.Result{}, err
		}

		lastErr = err
		if attempt == c.opts.MaxAttempts {
			break
		}

		delay := time.Duration(attempt)*c.opts.BackoffBase + c.jitter(c.opts.BackoffJitter)
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt,
			"delay":    delay.String(),
		}).Warnf("Provider request failed, retrying: %v", err)

		if err := sleep(ctx, delay); err != nil {
			return gjson.Result{}, fmt.Errorf("provider %s: %w", endpoint, err)
		}
	}

	return gjson.Result{}, fmt.Errorf("provider %s: %w after %d attempts: %w", endpoint, ErrRetriesExhausted, c.opts.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, endpoint, target string) (gjson.Result, error) {
	attemptCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	resp, err := c.client.R().
		SetContext(attemptCtx).
		Get(target)
	if err != nil {
		return gjson.Result{}, &transportError{endpoint: endpoint, err: err}
	}

	if resp.StatusCode() >= 400 {
		return gjson.Result{}, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("provider %s: %w", endpoint, ErrInvalidPayload)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("provider %s: %w", endpoint, ErrInvalidPayload)
	}

	return root, nil
}

// withToken attaches the access token, preserving any parameters already on rawURL
func (c *Client) withToken(rawURL string, extra url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	query := u.Query()
	for key, values := range extra {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	query.Set("access_token", c.opts.AccessToken)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// transportError wraps network-level failures, including per-attempt timeouts
type transportError struct {
	endpoint string
	err      error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("provider %s: request failed: %v", e.endpoint, e.err)
}

func (e *transportError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var transportErr *transportError
	return errors.As(err, &transportErr)
}

func isURLCursor(cursor string) bool {
	lower := strings.ToLower(cursor)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
}
