// Package http is the default transport: a retrying net/http client that
// attaches bearer tokens.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fivetwenty-io/restwrap/internal/auth"
	"github.com/fivetwenty-io/restwrap/internal/constants"
	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/hashicorp/go-retryablehttp"
)

// Client sends raw requests over HTTP. It implements restwrap.Transport.
type Client struct {
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	userAgent    string
	logger       restwrap.Logger
	debug        bool
}

var _ restwrap.Transport = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger restwrap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent sent when a request has none.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets retry behavior. Retries happen on connection errors,
// 429 and 5xx answers.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying net/http client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a transport. tokenManager may be nil for anonymous APIs.
func NewClient(tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
		logger:       restwrap.NoopLogger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	retryClient.Logger = &leveledLogger{logger: client.logger, debug: client.debug}

	return client
}

// Send performs the request. Any status code is returned as a response;
// only failures to obtain one are errors. A 401 triggers one token refresh
// and a single resend when the refresh produced a different token.
func (c *Client) Send(ctx context.Context, req *restwrap.RawRequest) (*restwrap.RawResponse, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || c.tokenManager == nil || req.Headers.Get("Authorization") != "" {
		return resp, nil
	}

	before, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return resp, nil //nolint:nilerr // the 401 answer is the result
	}

	err = c.tokenManager.RefreshToken(ctx)
	if err != nil {
		c.logger.Warn("Token refresh after 401 failed", map[string]interface{}{
			"error": err.Error(),
		})

		return resp, nil
	}

	after, err := c.tokenManager.GetToken(ctx)
	if err != nil || after == before {
		return resp, nil //nolint:nilerr // an unchanged token would be rejected again
	}

	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req *restwrap.RawRequest) (*restwrap.RawResponse, error) {
	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.tokenManager != nil && httpReq.Header.Get("Authorization") == "" {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting auth token: %w", err)
		}

		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL,
			"size":   len(req.Body),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"size":     len(respBody),
			"duration": time.Since(start).String(),
			"preview":  preview(respBody),
		})
	}

	return &restwrap.RawResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

const previewSize = 256

func preview(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > previewSize {
		return string(body[:previewSize]) + "..."
	}

	return string(body)
}

// leveledLogger routes retryablehttp's own messages to the client logger.
// Its debug chatter is only forwarded in debug mode.
type leveledLogger struct {
	logger restwrap.Logger
	debug  bool
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Info(msg, toFields(keysAndValues))
	}
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug(msg, toFields(keysAndValues))
	}
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
