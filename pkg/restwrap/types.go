package restwrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Method is an HTTP verb supported by resources.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// ParseMethod converts a verb name, in any case, to a Method.
func ParseMethod(name string) (Method, error) {
	method := Method(strings.ToUpper(name))

	switch method {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, name)
	}
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type noopLogger struct{}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}

// RawRequest is a request as handed to the transport.
type RawRequest struct {
	Method   Method
	URL      string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// RawResponse is a response as returned by the transport.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport performs a single HTTP exchange. It must not fail for HTTP error
// statuses, only when the exchange itself could not be completed.
type Transport interface {
	Send(ctx context.Context, req *RawRequest) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *RawRequest) (*RawResponse, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *RawRequest) (*RawResponse, error) {
	return f(ctx, req)
}

// TokenSource supplies access tokens for the authentication hook.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// GetToken implements TokenSource.
func (f TokenSourceFunc) GetToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Codec converts between raw bodies and JSON values.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(raw []byte) (any, error)
}

var errTrailingData = errors.New("unexpected data after top-level value")

// JSONCodec is the default Codec. Numbers decode as json.Number.
type JSONCodec struct{}

// Encode marshals value. Byte slices and json.RawMessage pass through as is.
func (JSONCodec) Encode(value any) ([]byte, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return typed, nil
	case json.RawMessage:
		return typed, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}

	return raw, nil
}

// Decode unmarshals raw. An empty body decodes to nil.
func (JSONCodec) Decode(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any

	err := decoder.Decode(&value)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	return value, nil
}
