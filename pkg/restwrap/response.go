package restwrap

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
)

// Invoker is implemented by everything that can be called to obtain a
// Response: a Resource performs the request, a Response returns itself.
type Invoker interface {
	Invoke(ctx context.Context) (*Response, error)
}

var (
	_ Invoker = (*Resource)(nil)
	_ Invoker = (*Response)(nil)
)

// Response is the decoded answer to one request. The embedded Data is the
// body, so fields can be addressed on the response directly.
type Response struct {
	Data

	StatusCode int
	Header     http.Header

	request *Executor
	url     string
	raw     []byte
}

func newResponse(exec *Executor, target string, raw *RawResponse, value any) *Response {
	resp := &Response{
		StatusCode: raw.StatusCode,
		Header:     raw.Headers,
		request:    exec,
		url:        target,
		raw:        raw.Body,
	}
	resp.Data = Data{value: value, origin: resp}

	return resp
}

// Invoke returns the response itself without any I/O.
func (r *Response) Invoke(context.Context) (*Response, error) {
	return r, nil
}

// Body returns the wrapped body.
func (r *Response) Body() Data {
	return r.Data
}

// Request returns the executor that produced the response.
func (r *Response) Request() *Executor {
	return r.request
}

// Client returns the client that produced the response.
func (r *Response) Client() *Client {
	return r.request.client
}

// URL returns the URL the request was sent to, query included.
func (r *Response) URL() string {
	return r.url
}

// Raw returns the undecoded body.
func (r *Response) Raw() []byte {
	return r.raw
}

// IsSuccess returns true if the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

func (r *Response) resolveReference(link string) (string, error) {
	base, err := url.Parse(r.url)
	if err != nil {
		return "", fmt.Errorf("parsing response url: %w", err)
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", link, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// Iter returns a new iterator over the items of this page and the pages
// after it, using the client's paging rule.
func (r *Response) Iter(ctx context.Context) *Iterator {
	return r.IterWith(ctx, r.request.client.paging)
}

// IterWith is Iter with an explicit paging rule.
func (r *Response) IterWith(ctx context.Context, rule PagingRule) *Iterator {
	return newIterator(ctx, r, rule)
}

// Items ranges over every item of every page. Each range statement starts a
// new iterator from this response; a failure is yielded once as the error.
func (r *Response) Items(ctx context.Context) iter.Seq2[Data, error] {
	return func(yield func(Data, error) bool) {
		iterator := r.Iter(ctx)

		for {
			item, ok, err := iterator.Advance()
			if err != nil {
				yield(Data{}, err)

				return
			}

			if !ok || !yield(item, nil) {
				return
			}
		}
	}
}
