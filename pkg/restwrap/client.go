package restwrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errNilResponse = errors.New("transport returned no response")

// Client resolves resources from a registry and executes requests against them
// through a Transport. A Client is safe for concurrent use once built.
type Client struct {
	registry     *Registry
	transport    Transport
	codec        Codec
	paging       PagingRule
	logger       Logger
	headers      http.Header
	interceptors *InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithCodec replaces the default JSON codec.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		c.codec = codec
	}
}

// WithPagingRule replaces the default paging rule.
func WithPagingRule(rule PagingRule) Option {
	return func(c *Client) {
		c.paging = rule
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDefaultHeader adds a header sent with every request unless overridden.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRequestInterceptor appends a request interceptor.
func WithRequestInterceptor(interceptor RequestInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddRequestInterceptor(interceptor)
	}
}

// WithResponseInterceptor appends a response interceptor.
func WithResponseInterceptor(interceptor ResponseInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddResponseInterceptor(interceptor)
	}
}

// NewClient creates a client over registry using transport for all I/O.
func NewClient(registry *Registry, transport Transport, opts ...Option) (*Client, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	if transport == nil {
		return nil, ErrTransportRequired
	}

	client := &Client{
		registry:     registry,
		transport:    transport,
		codec:        JSONCodec{},
		paging:       DefaultPagingRule(),
		logger:       noopLogger{},
		headers:      http.Header{"Accept": []string{"application/json"}},
		interceptors: NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Registry returns the client's resource registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// PagingRule returns the rule iterators use by default.
func (c *Client) PagingRule() PagingRule {
	return c.paging
}

// Resource returns a handle on the named resource with params bound.
func (c *Client) Resource(name string, params ...Params) (*Resource, error) {
	descriptor, err := c.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	resource := &Resource{descriptor: descriptor, client: c, params: Params{}}
	for _, p := range params {
		resource.params = resource.params.merge(p)
	}

	return resource, nil
}

// Open returns a handle on a concrete URL that is not templated.
func (c *Client) Open(rawURL string) *Resource {
	return &Resource{
		descriptor: ResourceDescriptor{
			URLTemplate: rawURL,
			Metadata:    []MetadataField{Field(URLTemplateKey, rawURL)},
		},
		client:  c,
		params:  Params{},
		literal: true,
	}
}

func (c *Client) execute(ctx context.Context, exec *Executor) (*Response, error) {
	target, err := exec.requestURL()
	if err != nil {
		return nil, err
	}

	body, err := c.codec.Encode(exec.Body)
	if err != nil {
		return nil, &MalformedBodyError{Err: err}
	}

	headers := c.headers.Clone()
	for key, values := range exec.Header {
		headers[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	if body != nil && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}

	req := &RawRequest{
		Method:  exec.Method,
		URL:     target,
		Headers: headers,
		Body:    body,
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	c.logger.Debug("Executing request", map[string]interface{}{
		"method": string(req.Method),
		"url":    req.URL,
	})

	raw, err := c.transport.Send(ctx, req)
	if err == nil && raw == nil {
		err = errNilResponse
	}

	if err != nil {
		return nil, &TransportError{Method: string(req.Method), URL: req.URL, Err: err}
	}

	c.logger.Debug("Request completed", map[string]interface{}{
		"method":      string(req.Method),
		"url":         req.URL,
		"status_code": raw.StatusCode,
		"duration":    time.Since(started).String(),
	})

	err = c.interceptors.ExecuteResponseInterceptors(ctx, req, raw)
	if err != nil {
		return nil, err
	}

	value, err := c.codec.Decode(raw.Body)
	if err != nil {
		return nil, &MalformedBodyError{
			StatusCode: raw.StatusCode,
			Err:        fmt.Errorf("%s %s: %w", req.Method, req.URL, err),
		}
	}

	return newResponse(exec, target, raw, value), nil
}
