package restwrap_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Static errors for err113 compliance.
var errConnectionRefused = errors.New("connection refused")

func TestNewClient(t *testing.T) {
	t.Parallel()

	registry, err := restwrap.NewRegistry()
	require.NoError(t, err)

	_, err = restwrap.NewClient(nil, newFakeTransport(nil))
	require.ErrorIs(t, err, restwrap.ErrRegistryRequired)

	_, err = restwrap.NewClient(registry, nil)
	require.ErrorIs(t, err, restwrap.ErrTransportRequired)
}

func TestClient_Resource(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newFakeTransport(nil))

	t.Run("url of plain resource", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("test")
		require.NoError(t, err)

		resolved, err := resource.URL()
		require.NoError(t, err)
		assert.Equal(t, "http://api.test/test/", resolved)
		assert.Equal(t, "test", resource.Name())
	})

	t.Run("url with params", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("user", restwrap.Params{"id": "123"})
		require.NoError(t, err)

		resolved, err := resource.URL()
		require.NoError(t, err)
		assert.Equal(t, "http://api.test/user/123/", resolved)
	})

	t.Run("with merges params into a new handle", func(t *testing.T) {
		t.Parallel()

		base, err := client.Resource("resource_with_params", restwrap.Params{"org": "acme"})
		require.NoError(t, err)

		full := base.With(restwrap.Params{"repo": "rocket"})

		resolved, err := full.URL()
		require.NoError(t, err)
		assert.Equal(t, "http://api.test/acme/rocket/issues", resolved)

		_, err = base.URL()
		require.ErrorIs(t, err, restwrap.ErrUnboundPlaceholder)
		assert.Equal(t, restwrap.Params{"org": "acme"}, base.Params())
	})

	t.Run("later params win", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("user", restwrap.Params{"id": "1"}, restwrap.Params{"id": "2"})
		require.NoError(t, err)

		resolved, err := resource.URL()
		require.NoError(t, err)
		assert.Equal(t, "http://api.test/user/2/", resolved)
	})

	t.Run("unknown resource", func(t *testing.T) {
		t.Parallel()

		_, err := client.Resource("nope")
		require.Error(t, err)
		assert.True(t, restwrap.IsUnknownResource(err))
	})

	t.Run("docs", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("user")
		require.NoError(t, err)
		assert.Equal(t, "Resource: http://api.test/user/{id}/\nDocs: http://www.example.org/user", resource.Docs())
	})
}

func TestResource_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(context.Context, *restwrap.Resource) (*restwrap.Response, error)
	}{
		{
			name:   "GET",
			method: http.MethodGet,
			fn: func(ctx context.Context, r *restwrap.Resource) (*restwrap.Response, error) {
				return r.Get(ctx)
			},
		},
		{
			name:   "POST",
			method: http.MethodPost,
			fn: func(ctx context.Context, r *restwrap.Resource) (*restwrap.Response, error) {
				return r.Post(ctx, restwrap.WithBody(map[string]string{"key": "value"}))
			},
		},
		{
			name:   "PUT",
			method: http.MethodPut,
			fn: func(ctx context.Context, r *restwrap.Resource) (*restwrap.Response, error) {
				return r.Put(ctx, restwrap.WithBody(map[string]string{"key": "value"}))
			},
		},
		{
			name:   "PATCH",
			method: http.MethodPatch,
			fn: func(ctx context.Context, r *restwrap.Resource) (*restwrap.Response, error) {
				return r.Patch(ctx, restwrap.WithBody(map[string]string{"key": "value"}))
			},
		},
		{
			name:   "DELETE",
			method: http.MethodDelete,
			fn: func(ctx context.Context, r *restwrap.Resource) (*restwrap.Response, error) {
				return r.Delete(ctx)
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			transport := newFakeTransport(map[string]cannedResponse{
				"http://api.test/test/": {status: http.StatusCreated, body: `{"data":{"key":"value"}}`},
			})
			client := newTestClient(t, transport)

			resource, err := client.Resource("test")
			require.NoError(t, err)

			resp, err := testCase.fn(context.Background(), resource)
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.True(t, resp.Equal(map[string]any{"data": map[string]any{"key": "value"}}))

			sent := transport.last()
			assert.Equal(t, testCase.method, string(sent.Method))
			assert.Equal(t, "http://api.test/test/", sent.URL)
			assert.Equal(t, "application/json", sent.Headers.Get("Accept"))

			if testCase.method == http.MethodGet || testCase.method == http.MethodDelete {
				assert.Nil(t, sent.Body)
				assert.Empty(t, sent.Headers.Get("Content-Type"))
			} else {
				assert.JSONEq(t, `{"key":"value"}`, string(sent.Body))
				assert.Equal(t, "application/json", sent.Headers.Get("Content-Type"))
			}
		})
	}
}

func TestResource_GetUser(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/user/123/": {status: http.StatusOK, body: `{"data":{"key":"value"}}`},
	})
	client := newTestClient(t, transport)

	user, err := client.Resource("user", restwrap.Params{"id": "123"})
	require.NoError(t, err)

	resp, err := user.Get(context.Background())
	require.NoError(t, err)

	value, err := resp.At("data", "key").Text()
	require.NoError(t, err)
	assert.Equal(t, "value", value)
	assert.Equal(t, "http://api.test/user/123/", resp.URL())
	assert.Equal(t, "http://api.test/user/123/", resp.Request().URL)
	assert.Equal(t, restwrap.MethodGet, resp.Request().Method)
	assert.Same(t, client, resp.Client())
}

func TestResource_RequestOptions(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users?page=2&tag=a&tag=b": {status: http.StatusOK, body: `[]`},
	})
	client := newTestClient(t, transport, restwrap.WithDefaultHeader("X-Client", "restwrap"))

	users, err := client.Resource("users")
	require.NoError(t, err)

	resp, err := users.Get(context.Background(),
		restwrap.WithQueryParam("page", "2"),
		restwrap.WithQuery(url.Values{"tag": []string{"a", "b"}}),
		restwrap.WithHeader("Accept", "application/vnd.api+json"),
		restwrap.WithHeaders(http.Header{"X-Trace": []string{"t-1"}}),
	)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	sent := transport.last()
	assert.Equal(t, "application/vnd.api+json", sent.Headers.Get("Accept"))
	assert.Equal(t, "restwrap", sent.Headers.Get("X-Client"))
	assert.Equal(t, "t-1", sent.Headers.Get("X-Trace"))
}

func TestResource_RawBody(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {status: http.StatusCreated, body: `{"id":"1"}`},
	})
	client := newTestClient(t, transport)

	users, err := client.Resource("users")
	require.NoError(t, err)

	_, err = users.Post(context.Background(), restwrap.WithBody([]byte(`{"name":"ana"}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ana"}`, string(transport.last().Body))
}

func TestResponse_Invoke(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/test/": {status: http.StatusOK, body: `{"data":{"key":"value"}}`},
	})
	client := newTestClient(t, transport)

	resource, err := client.Resource("test")
	require.NoError(t, err)

	var invoker restwrap.Invoker = resource

	resp, err := invoker.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls())

	again, err := resp.Invoke(context.Background())
	require.NoError(t, err)
	assert.Same(t, resp, again)
	assert.True(t, again.Equal(resp))
	assert.Equal(t, 1, transport.calls(), "invoking a response performs no request")
}

func TestClient_ErrorStatusesAreResponses(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/test/": {status: http.StatusInternalServerError, body: `{"error":"boom"}`},
	})
	client := newTestClient(t, transport)

	resource, err := client.Resource("test")
	require.NoError(t, err)

	resp, err := resource.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, `{"error":"boom"}`, string(resp.Raw()))
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/test/": {err: errConnectionRefused},
		})
		client := newTestClient(t, transport)

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Get(context.Background())
		require.ErrorIs(t, err, restwrap.ErrTransport)
		require.ErrorIs(t, err, errConnectionRefused)

		var transportErr *restwrap.TransportError

		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "GET", transportErr.Method)
		assert.Equal(t, "http://api.test/test/", transportErr.URL)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()

		transport := restwrap.TransportFunc(func(ctx context.Context, req *restwrap.RawRequest) (*restwrap.RawResponse, error) {
			return nil, nil //nolint:nilnil // misbehaving transport
		})
		client := newTestClient(t, transport)

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Get(context.Background())
		require.ErrorIs(t, err, restwrap.ErrTransport)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/test/": {status: http.StatusOK, body: `{"data":`},
		})
		client := newTestClient(t, transport)

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Get(context.Background())
		require.ErrorIs(t, err, restwrap.ErrMalformedBody)
	})

	t.Run("non-JSON error page keeps its status", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/test/": {status: http.StatusBadGateway, body: `<html><body>Bad Gateway</body></html>`},
		})
		client := newTestClient(t, transport)

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Get(context.Background())
		require.ErrorIs(t, err, restwrap.ErrMalformedBody)

		var malformed *restwrap.MalformedBodyError

		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, http.StatusBadGateway, malformed.StatusCode)
	})

	t.Run("unencodable body", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(nil)
		client := newTestClient(t, transport)

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Post(context.Background(), restwrap.WithBody(make(chan int)))
		require.ErrorIs(t, err, restwrap.ErrMalformedBody)
		assert.Equal(t, 0, transport.calls())
	})

	t.Run("unbound placeholder sends nothing", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(nil)
		client := newTestClient(t, transport)

		user, err := client.Resource("user")
		require.NoError(t, err)

		_, err = user.Get(context.Background())
		require.ErrorIs(t, err, restwrap.ErrUnboundPlaceholder)
		assert.Equal(t, 0, transport.calls())
	})

	t.Run("unsupported method", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, newFakeTransport(nil))

		resource, err := client.Resource("test")
		require.NoError(t, err)

		_, err = resource.Do(context.Background(), restwrap.Method("TRACE"))
		require.ErrorIs(t, err, restwrap.ErrUnsupportedMethod)
	})
}

func TestClient_EmptyBody(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/test/": {status: http.StatusNoContent, body: ``},
	})
	client := newTestClient(t, transport)

	resource, err := client.Resource("test")
	require.NoError(t, err)

	resp, err := resource.Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, restwrap.KindNull, resp.Kind())
}

func TestClient_InterceptorsAndLogging(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/test/": {status: http.StatusOK, body: `{}`},
	})
	logger := &recordingLogger{}

	var seenStatus int

	client := newTestClient(t, transport,
		restwrap.WithLogger(logger),
		restwrap.WithRequestInterceptor(restwrap.HeaderInterceptor(map[string]string{"X-Team": "core"})),
		restwrap.WithResponseInterceptor(func(ctx context.Context, req *restwrap.RawRequest, resp *restwrap.RawResponse) error {
			seenStatus = resp.StatusCode

			return nil
		}),
	)

	resource, err := client.Resource("test")
	require.NoError(t, err)

	_, err = resource.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "core", transport.last().Headers.Get("X-Team"))
	assert.Equal(t, http.StatusOK, seenStatus)

	require.Len(t, logger.entries, 2)
	assert.Equal(t, "Executing request", logger.entries[0].msg)
	assert.Equal(t, "Request completed", logger.entries[1].msg)
}

func TestClient_Open(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/raw/{not-a-placeholder}": {status: http.StatusOK, body: `true`},
	})
	client := newTestClient(t, transport)

	resource := client.Open("http://api.test/raw/{not-a-placeholder}")

	resp, err := resource.Get(context.Background())
	require.NoError(t, err)

	value, err := resp.Bool()
	require.NoError(t, err)
	assert.True(t, value)
}
