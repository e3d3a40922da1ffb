package restwrap_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/fivetwenty-io/restwrap/pkg/restwrap"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mutex   sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

// cannedResponse is what fakeTransport answers for a URL.
type cannedResponse struct {
	status int
	body   string
	err    error
}

// fakeTransport answers from a URL-keyed table and records every request.
type fakeTransport struct {
	mutex     sync.Mutex
	responses map[string]cannedResponse
	requests  []*restwrap.RawRequest
}

func newFakeTransport(responses map[string]cannedResponse) *fakeTransport {
	return &fakeTransport{responses: responses}
}

func (f *fakeTransport) Send(ctx context.Context, req *restwrap.RawRequest) (*restwrap.RawResponse, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, req)

	canned, ok := f.responses[req.URL]
	if !ok {
		return &restwrap.RawResponse{StatusCode: http.StatusNotFound, Headers: http.Header{}}, nil
	}

	if canned.err != nil {
		return nil, canned.err
	}

	return &restwrap.RawResponse{
		StatusCode: canned.status,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(canned.body),
	}, nil
}

func (f *fakeTransport) calls() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.requests)
}

func (f *fakeTransport) last() *restwrap.RawRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.requests[len(f.requests)-1]
}

const testMapping = `
test:
  resource: "http://api.test/test/"
  docs: "http://www.example.org"
  foo: "Lorem ipsum dolor sit amet"
  spam: "eggs"
user:
  resource: "http://api.test/user/{id}/"
  docs: "http://www.example.org/user"
users:
  resource: "http://api.test/users"
resource_with_params:
  resource: "http://api.test/{org}/{repo}/issues"
`

func newTestClient(t *testing.T, transport restwrap.Transport, opts ...restwrap.Option) *restwrap.Client {
	t.Helper()

	descriptors, err := restwrap.ParseResourceMapping([]byte(testMapping))
	require.NoError(t, err)

	registry, err := restwrap.NewRegistry(descriptors...)
	require.NoError(t, err)

	client, err := restwrap.NewClient(registry, transport, opts...)
	require.NoError(t, err)

	return client
}
