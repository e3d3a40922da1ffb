package restwrap

import (
	"errors"
	"fmt"
)

// Static errors for err113 compliance.
var (
	ErrUnknownResource        = errors.New("unknown resource")
	ErrUnboundPlaceholder     = errors.New("unbound placeholder")
	ErrAddress                = errors.New("invalid address")
	ErrMalformedBody          = errors.New("malformed body")
	ErrPageFetch              = errors.New("page fetch failed")
	ErrTransport              = errors.New("transport failure")
	ErrDuplicateResource      = errors.New("duplicate resource")
	ErrMissingURLTemplate     = errors.New("resource has no url template")
	ErrInvalidResourceMapping = errors.New("invalid resource mapping")
	ErrTransportRequired      = errors.New("transport is required")
	ErrRegistryRequired       = errors.New("registry is required")
	ErrUnsupportedMethod      = errors.New("unsupported method")
	ErrNotALink               = errors.New("value is not a link")
	ErrNoOrigin               = errors.New("data has no originating response")
	ErrUnexpectedKind         = errors.New("unexpected value kind")
)

// UnknownResourceError is returned when a resource name is not registered.
type UnknownResourceError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownResource, e.Name)
}

// Is reports whether target is ErrUnknownResource.
func (e *UnknownResourceError) Is(target error) bool {
	return target == ErrUnknownResource
}

// UnboundPlaceholderError is returned when a URL template token has no value.
// Name is the first unbound token; Missing lists all of them in template order.
type UnboundPlaceholderError struct {
	Name     string
	Template string
	Missing  []string
}

// Error implements the error interface.
func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("%s %q in template %q", ErrUnboundPlaceholder, e.Name, e.Template)
}

// Is reports whether target is ErrUnboundPlaceholder.
func (e *UnboundPlaceholderError) Is(target error) bool {
	return target == ErrUnboundPlaceholder
}

// AddressError is returned when a field or index does not exist on wrapped data.
type AddressError struct {
	Path Path
	Key  any
}

// Error implements the error interface.
func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %v at %s", ErrAddress, e.Key, e.Path)
}

// Is reports whether target is ErrAddress.
func (e *AddressError) Is(target error) bool {
	return target == ErrAddress
}

// MalformedBodyError wraps a codec failure. StatusCode is the status of the
// response whose body could not be decoded, or 0 when a request body failed
// to encode.
type MalformedBodyError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *MalformedBodyError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", ErrMalformedBody, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s: %v", ErrMalformedBody, e.Err)
}

// Is reports whether target is ErrMalformedBody.
func (e *MalformedBodyError) Is(target error) bool {
	return target == ErrMalformedBody
}

// Unwrap returns the codec error.
func (e *MalformedBodyError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure reported by the transport.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrTransport, e.Method, e.URL, e.Err)
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Unwrap returns the transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// PageFetchError is returned by an Iterator when a subsequent page cannot be
// fetched. Err is nil when the server answered with a non-2xx status.
type PageFetchError struct {
	URL        string
	Page       int
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *PageFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: page %d (%s): %v", ErrPageFetch, e.Page, e.URL, e.Err)
	}

	return fmt.Sprintf("%s: page %d (%s): status %d", ErrPageFetch, e.Page, e.URL, e.StatusCode)
}

// Is reports whether target is ErrPageFetch.
func (e *PageFetchError) Is(target error) bool {
	return target == ErrPageFetch
}

// Unwrap returns the underlying failure, if any.
func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// IsUnknownResource checks if the error is an unknown resource error.
func IsUnknownResource(err error) bool {
	return errors.Is(err, ErrUnknownResource)
}

// IsUnboundPlaceholder checks if the error is an unbound placeholder error.
func IsUnboundPlaceholder(err error) bool {
	return errors.Is(err, ErrUnboundPlaceholder)
}

// IsAddressError checks if the error is an address error.
func IsAddressError(err error) bool {
	return errors.Is(err, ErrAddress)
}
