package restwrap

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
)

// Resource is a handle on a named resource with its template params bound.
// Handles are immutable; With returns a new one.
type Resource struct {
	descriptor ResourceDescriptor
	client     *Client
	params     Params
	literal    bool
}

// Name returns the resource name. Handles created with Client.Open have none.
func (r *Resource) Name() string {
	return r.descriptor.Name
}

// Descriptor returns the static descriptor behind the handle.
func (r *Resource) Descriptor() ResourceDescriptor {
	return r.descriptor
}

// Params returns a copy of the bound params.
func (r *Resource) Params() Params {
	return maps.Clone(r.params)
}

// Client returns the client the handle belongs to.
func (r *Resource) Client() *Client {
	return r.client
}

// With returns a new handle with params merged over the bound ones.
func (r *Resource) With(params Params) *Resource {
	return &Resource{
		descriptor: r.descriptor,
		client:     r.client,
		params:     r.params.merge(params),
		literal:    r.literal,
	}
}

// URL resolves the handle's template with its bound params.
func (r *Resource) URL() (string, error) {
	if r.literal {
		return r.descriptor.URLTemplate, nil
	}

	return ResolveTemplate(r.descriptor.URLTemplate, r.params)
}

// Docs returns the rendered documentation block of the resource.
func (r *Resource) Docs() string {
	return r.descriptor.Docs()
}

// RequestOption customizes a single request.
type RequestOption func(*Executor)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(e *Executor) {
		e.Header.Set(key, value)
	}
}

// WithHeaders sets several request headers.
func WithHeaders(headers http.Header) RequestOption {
	return func(e *Executor) {
		for key, values := range headers {
			e.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
}

// WithBody sets the request body; it is encoded by the client's codec.
func WithBody(body any) RequestOption {
	return func(e *Executor) {
		e.Body = body
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(query url.Values) RequestOption {
	return func(e *Executor) {
		for key, values := range query {
			for _, value := range values {
				e.Query.Add(key, value)
			}
		}
	}
}

// WithQueryParam adds one query parameter to the request URL.
func WithQueryParam(key, value string) RequestOption {
	return func(e *Executor) {
		e.Query.Add(key, value)
	}
}

// Executor builds the executor for method without sending it.
func (r *Resource) Executor(method Method, opts ...RequestOption) (*Executor, error) {
	method, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}

	target, err := r.URL()
	if err != nil {
		return nil, err
	}

	exec := &Executor{
		Method: method,
		URL:    target,
		Header: make(http.Header),
		Query:  make(url.Values),
		client: r.client,
	}

	for _, opt := range opts {
		opt(exec)
	}

	return exec, nil
}

// Do executes method against the resource. HTTP error statuses are returned
// as ordinary responses.
func (r *Resource) Do(ctx context.Context, method Method, opts ...RequestOption) (*Response, error) {
	exec, err := r.Executor(method, opts...)
	if err != nil {
		return nil, err
	}

	return exec.Do(ctx)
}

// Get issues a GET request.
func (r *Resource) Get(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return r.Do(ctx, MethodGet, opts...)
}

// Post issues a POST request.
func (r *Resource) Post(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return r.Do(ctx, MethodPost, opts...)
}

// Put issues a PUT request.
func (r *Resource) Put(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return r.Do(ctx, MethodPut, opts...)
}

// Patch issues a PATCH request.
func (r *Resource) Patch(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return r.Do(ctx, MethodPatch, opts...)
}

// Delete issues a DELETE request.
func (r *Resource) Delete(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return r.Do(ctx, MethodDelete, opts...)
}

// Invoke performs a GET. It is the unresolved side of Invoker.
func (r *Resource) Invoke(ctx context.Context) (*Response, error) {
	return r.Get(ctx)
}

// Iterate fetches the first page and returns an iterator over its items.
func (r *Resource) Iterate(ctx context.Context, opts ...RequestOption) (*Iterator, error) {
	resp, err := r.Get(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetching first page of %s: %w", r.Name(), err)
	}

	return resp.Iter(ctx), nil
}

// Executor is one HTTP call about to be made. It is consumed by Do and kept
// by the resulting Response as its origin; treat it as read-only afterwards.
type Executor struct {
	Method Method
	URL    string
	Header http.Header
	Query  url.Values
	Body   any

	client *Client
}

// Do sends the request through the owning client's transport.
func (e *Executor) Do(ctx context.Context) (*Response, error) {
	return e.client.execute(ctx, e)
}

func (e *Executor) requestURL() (string, error) {
	if len(e.Query) == 0 {
		return e.URL, nil
	}

	parsed, err := url.Parse(e.URL)
	if err != nil {
		return "", fmt.Errorf("parsing request url: %w", err)
	}

	query := parsed.Query()

	for key, values := range e.Query {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
