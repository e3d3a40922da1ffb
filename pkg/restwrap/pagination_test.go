package restwrap_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Static errors for err113 compliance.
var errStop = errors.New("stop")

func pagedTransport() *fakeTransport {
	return newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {
			status: http.StatusOK,
			body:   `{"data":[{"id":1},{"id":2}],"paging":{"next":"http://api.test/users?page=2"}}`,
		},
		"http://api.test/users?page=2": {
			status: http.StatusOK,
			body:   `{"data":[{"id":3}],"paging":{"next":"/users?page=3"}}`,
		},
		"http://api.test/users?page=3": {
			status: http.StatusOK,
			body:   `{"data":[{"id":4},{"id":5}],"paging":{"next":null}}`,
		},
	})
}

func iterateUsers(t *testing.T, client *restwrap.Client, opts ...restwrap.RequestOption) *restwrap.Iterator {
	t.Helper()

	users, err := client.Resource("users")
	require.NoError(t, err)

	iterator, err := users.Iterate(context.Background(), opts...)
	require.NoError(t, err)

	return iterator
}

func ids(t *testing.T, items []restwrap.Data) []int64 {
	t.Helper()

	result := make([]int64, 0, len(items))

	for _, item := range items {
		id, err := item.Field("id").Int()
		require.NoError(t, err)

		result = append(result, id)
	}

	return result
}

func TestIterator_WalksEveryPage(t *testing.T) {
	t.Parallel()

	transport := pagedTransport()
	iterator := iterateUsers(t, newTestClient(t, transport))

	items, err := iterator.All()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(t, items))
	assert.Equal(t, 3, iterator.Pages())
	assert.Equal(t, 3, transport.calls())
	assert.Equal(t, "http://api.test/users?page=3", iterator.Page().URL())

	var sum int64

	for _, id := range ids(t, items) {
		sum += id
	}

	assert.Equal(t, int64(15), sum)

	assert.False(t, iterator.Next(), "an exhausted iterator stays exhausted")
	assert.Equal(t, 3, transport.calls())
}

func TestIterator_FetchesLazily(t *testing.T) {
	t.Parallel()

	transport := pagedTransport()
	iterator := iterateUsers(t, newTestClient(t, transport))
	assert.Equal(t, 1, transport.calls())

	require.True(t, iterator.Next())
	require.True(t, iterator.Next())
	assert.Equal(t, 1, transport.calls(), "second page is not fetched while first page has items")

	require.True(t, iterator.Next())
	assert.Equal(t, 2, transport.calls())

	id, err := iterator.Item().Field("id").Int()
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestIterator_ForwardsRequestHeaders(t *testing.T) {
	t.Parallel()

	transport := pagedTransport()
	iterator := iterateUsers(t, newTestClient(t, transport), restwrap.WithHeader("X-Trace", "abc"))

	_, err := iterator.All()
	require.NoError(t, err)
	assert.Equal(t, "abc", transport.last().Headers.Get("X-Trace"))
}

func TestIterator_PageFailures(t *testing.T) {
	t.Parallel()

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/users": {
				status: http.StatusOK,
				body:   `{"data":[{"id":1}],"paging":{"next":"http://api.test/users?page=2"}}`,
			},
		})
		iterator := iterateUsers(t, newTestClient(t, transport))

		items, err := iterator.All()
		require.ErrorIs(t, err, restwrap.ErrPageFetch)
		assert.Len(t, items, 1)

		var pageErr *restwrap.PageFetchError

		require.ErrorAs(t, err, &pageErr)
		assert.Equal(t, 2, pageErr.Page)
		assert.Equal(t, http.StatusNotFound, pageErr.StatusCode)
		assert.Equal(t, "http://api.test/users?page=2", pageErr.URL)
		require.NoError(t, pageErr.Unwrap())

		_, ok, again := iterator.Advance()
		assert.False(t, ok)
		assert.Equal(t, err, again)
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/users": {
				status: http.StatusOK,
				body:   `{"data":[],"paging":{"next":"http://api.test/users?page=2"}}`,
			},
			"http://api.test/users?page=2": {err: errConnectionRefused},
		})
		iterator := iterateUsers(t, newTestClient(t, transport))

		assert.False(t, iterator.Next())
		require.ErrorIs(t, iterator.Err(), restwrap.ErrPageFetch)
		require.ErrorIs(t, iterator.Err(), restwrap.ErrTransport)
		require.ErrorIs(t, iterator.Err(), errConnectionRefused)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/users": {
				status: http.StatusOK,
				body:   `{"data":[{"id":1},{"id":2}],"paging":{"next":"http://api.test/users?page=2"}}`,
			},
			"http://api.test/users?page=2": {status: http.StatusOK, body: `{"data":[{"id":3}`},
		})
		iterator := iterateUsers(t, newTestClient(t, transport))

		items, err := iterator.All()
		require.ErrorIs(t, err, restwrap.ErrPageFetch)
		require.ErrorIs(t, err, restwrap.ErrMalformedBody)
		assert.Equal(t, []int64{1, 2}, ids(t, items))

		var pageErr *restwrap.PageFetchError

		require.ErrorAs(t, err, &pageErr)
		assert.Equal(t, 2, pageErr.Page)
		assert.Equal(t, http.StatusOK, pageErr.StatusCode)
	})

	t.Run("first page without items", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/users": {status: http.StatusOK, body: `{"results":[]}`},
		})
		iterator := iterateUsers(t, newTestClient(t, transport))

		assert.False(t, iterator.Next())
		require.ErrorIs(t, iterator.Err(), restwrap.ErrAddress)
	})

	t.Run("first page transport error", func(t *testing.T) {
		t.Parallel()

		transport := newFakeTransport(map[string]cannedResponse{
			"http://api.test/users": {err: errConnectionRefused},
		})
		client := newTestClient(t, transport)

		users, err := client.Resource("users")
		require.NoError(t, err)

		_, err = users.Iterate(context.Background())
		require.ErrorIs(t, err, restwrap.ErrTransport)
	})
}

func TestIterator_EmptyNextLinkEndsPaging(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {
			status: http.StatusOK,
			body:   `{"data":[{"key":"value"}],"paging":{"next":"http://api.teste.com/next_batch"}}`,
		},
		"http://api.teste.com/next_batch": {
			status: http.StatusOK,
			body:   `{"data":[{"key":"value"}],"paging":{"next":""}}`,
		},
	})
	iterator := iterateUsers(t, newTestClient(t, transport))

	items, err := iterator.All()
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, item := range items {
		key, err := item.Field("key").Text()
		require.NoError(t, err)
		assert.Equal(t, "value", key)
	}

	assert.Equal(t, 2, transport.calls())
	assert.Equal(t, "http://api.teste.com/next_batch", iterator.Page().URL())
}

func TestIterator_MissingPagingEndsAfterFirstPage(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {status: http.StatusOK, body: `{"data":[{"id":1},{"id":2}]}`},
	})
	iterator := iterateUsers(t, newTestClient(t, transport))

	items, err := iterator.All()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(t, items))
	assert.Equal(t, 1, transport.calls())
	assert.Equal(t, 1, iterator.Pages())
}

func TestIterator_NullItemsIsEmptyPage(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {status: http.StatusOK, body: `{"data":null}`},
	})
	iterator := iterateUsers(t, newTestClient(t, transport))

	items, err := iterator.All()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIterator_ForEach(t *testing.T) {
	t.Parallel()

	t.Run("visits every item", func(t *testing.T) {
		t.Parallel()

		iterator := iterateUsers(t, newTestClient(t, pagedTransport()))

		count := 0
		err := iterator.ForEach(func(restwrap.Data) error {
			count++

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("stops at callback error", func(t *testing.T) {
		t.Parallel()

		transport := pagedTransport()
		iterator := iterateUsers(t, newTestClient(t, transport))

		count := 0
		err := iterator.ForEach(func(restwrap.Data) error {
			count++
			if count == 2 {
				return errStop
			}

			return nil
		})
		require.ErrorIs(t, err, errStop)
		assert.Equal(t, 2, count)
		assert.Equal(t, 1, transport.calls())
	})
}

func TestResponse_Items(t *testing.T) {
	t.Parallel()

	transport := pagedTransport()
	client := newTestClient(t, transport)

	users, err := client.Resource("users")
	require.NoError(t, err)

	resp, err := users.Get(context.Background())
	require.NoError(t, err)

	var collected []restwrap.Data

	for item, err := range resp.Items(context.Background()) {
		require.NoError(t, err)

		collected = append(collected, item)
		if len(collected) == 3 {
			break
		}
	}

	assert.Equal(t, []int64{1, 2, 3}, ids(t, collected))
	assert.Equal(t, 2, transport.calls(), "third page is never requested")

	var all []restwrap.Data

	for item, err := range resp.Items(context.Background()) {
		require.NoError(t, err)

		all = append(all, item)
	}

	assert.Len(t, all, 5)
	assert.Equal(t, 4, transport.calls(), "each range starts again from the first page")
}

func TestIterator_CustomPagingRule(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport(map[string]cannedResponse{
		"http://api.test/users": {
			status: http.StatusOK,
			body:   `{"results":[{"id":1}],"links":{"next":"?cursor=b"}}`,
		},
		"http://api.test/users?cursor=b": {
			status: http.StatusOK,
			body:   `{"results":[{"id":2}],"links":{}}`,
		},
	})

	rule := restwrap.PathPagingRule("results", "links.next")

	t.Run("client option", func(t *testing.T) {
		t.Parallel()

		iterator := iterateUsers(t, newTestClient(t, transport, restwrap.WithPagingRule(rule)))

		items, err := iterator.All()
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(t, items))
	})

	t.Run("per iterator", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, transport)

		users, err := client.Resource("users")
		require.NoError(t, err)

		resp, err := users.Get(context.Background())
		require.NoError(t, err)

		items, err := resp.IterWith(context.Background(), rule).All()
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(t, items))
	})

	t.Run("function rule", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, transport, restwrap.WithPagingRule(restwrap.PagingRule{
			Items: restwrap.ItemsAt("results"),
			Next: func(body restwrap.Data) (string, error) {
				return "", nil
			},
		}))

		items, err := iterateUsers(t, client).All()
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(t, items))
	})
}
