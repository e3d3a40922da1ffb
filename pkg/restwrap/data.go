package restwrap

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
)

// Kind is the JSON shape of a wrapped value.
type Kind int

// Kinds of wrapped values. KindInvalid marks a Data carrying an error.
const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

type pathElementKind int

const (
	fieldElement pathElementKind = iota
	indexElement
	queryElement
)

// PathElement is one step from the wrap root: a field, an index or a query.
type PathElement struct {
	Key   string
	Index int
	kind  pathElementKind
}

// IsIndex reports whether the element addresses an array position.
func (e PathElement) IsIndex() bool {
	return e.kind == indexElement
}

// Path is the ordered sequence of steps from the wrap root to a value.
type Path []PathElement

func (p Path) String() string {
	var builder strings.Builder

	builder.WriteString("$")

	for _, element := range p {
		switch element.kind {
		case indexElement:
			builder.WriteString("[" + strconv.Itoa(element.Index) + "]")
		case queryElement:
			builder.WriteString("{" + element.Key + "}")
		default:
			builder.WriteString("." + element.Key)
		}
	}

	return builder.String()
}

func (p Path) extend(element PathElement) Path {
	return append(p[:len(p):len(p)], element)
}

// Data is an immutable projection over a JSON value. Every access returns a
// new Data with the path extended; the wrapped value is never modified, so a
// Data may be read from several goroutines.
//
// Chained accessors (Field, Index, At, Lookup) carry the first AddressError
// forward; check it with Err or Value at the end of the chain.
type Data struct {
	value  any
	path   Path
	origin *Response
	err    error
}

// Wrap wraps a decoded JSON value that did not come from a response.
func Wrap(value any) Data {
	return Data{value: value}
}

func (d Data) child(value any, element PathElement) Data {
	return Data{value: value, path: d.path.extend(element), origin: d.origin}
}

func (d Data) fail(key any) (Data, error) {
	err := &AddressError{Path: d.path, Key: key}

	return Data{path: d.path, origin: d.origin, err: err}, err
}

// Get returns the member named key of an object, or the element at index key
// of an array. Anything else fails with an AddressError.
func (d Data) Get(key any) (Data, error) {
	if d.err != nil {
		return d, d.err
	}

	switch container := d.value.(type) {
	case map[string]any:
		if name, ok := key.(string); ok {
			if value, found := container[name]; found {
				return d.child(value, PathElement{Key: name, kind: fieldElement}), nil
			}
		}
	case []any:
		if index, ok := toIndex(key); ok && index >= 0 && index < len(container) {
			return d.child(container[index], PathElement{Index: index, kind: indexElement}), nil
		}
	}

	return d.fail(key)
}

func toIndex(key any) (int, bool) {
	switch typed := key.(type) {
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	default:
		return 0, false
	}
}

// Field is the chainable form of Get for object members.
func (d Data) Field(name string) Data {
	child, _ := d.Get(name)

	return child
}

// Index is the chainable form of Get for array elements.
func (d Data) Index(index int) Data {
	child, _ := d.Get(index)

	return child
}

// At applies Get for each key in turn.
func (d Data) At(keys ...any) Data {
	current := d

	for _, key := range keys {
		current, _ = current.Get(key)
	}

	return current
}

// Lookup evaluates a gjson path such as "paging.next" or "items.#.id"
// against the wrapped value.
func (d Data) Lookup(path string) Data {
	if d.err != nil {
		return d
	}

	raw, err := json.Marshal(d.value)
	if err != nil {
		child, _ := d.fail(path)

		return child
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		child, _ := d.fail(path)

		return child
	}

	value, err := JSONCodec{}.Decode([]byte(result.Raw))
	if err != nil {
		child, _ := d.fail(path)

		return child
	}

	return d.child(value, PathElement{Key: path, kind: queryElement})
}

// Value returns the raw wrapped value. Callers must not modify it.
func (d Data) Value() (any, error) {
	return d.value, d.err
}

// Err returns the address error carried by a chain, if any.
func (d Data) Err() error {
	return d.err
}

// Path returns the steps from the wrap root to this value.
func (d Data) Path() Path {
	return slices.Clone(d.path)
}

// Origin returns the response the data was read from, or nil.
func (d Data) Origin() *Response {
	return d.origin
}

// Kind returns the JSON shape of the wrapped value.
func (d Data) Kind() Kind {
	if d.err != nil {
		return KindInvalid
	}

	switch d.value.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number, float64, float32, int, int64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindInvalid
	}
}

// Len returns the number of members of an object or elements of an array.
func (d Data) Len() int {
	switch container := d.value.(type) {
	case map[string]any:
		return len(container)
	case []any:
		return len(container)
	default:
		return 0
	}
}

// Keys returns the sorted member names of an object.
func (d Data) Keys() []string {
	container, ok := d.value.(map[string]any)
	if !ok {
		return nil
	}

	return slices.Sorted(maps.Keys(container))
}

// Elements wraps each element of an array.
func (d Data) Elements() ([]Data, error) {
	if d.err != nil {
		return nil, d.err
	}

	container, ok := d.value.([]any)
	if !ok {
		return nil, d.kindError(KindArray)
	}

	elements := make([]Data, len(container))
	for index, value := range container {
		elements[index] = d.child(value, PathElement{Index: index, kind: indexElement})
	}

	return elements, nil
}

func (d Data) kindError(want Kind) error {
	return fmt.Errorf("%w: %s is %s, not %s", ErrUnexpectedKind, d.path, d.Kind(), want)
}

// Text returns a string value.
func (d Data) Text() (string, error) {
	if d.err != nil {
		return "", d.err
	}

	text, ok := d.value.(string)
	if !ok {
		return "", d.kindError(KindString)
	}

	return text, nil
}

// Int returns an integral number value.
func (d Data) Int() (int64, error) {
	if d.err != nil {
		return 0, d.err
	}

	switch number := d.value.(type) {
	case json.Number:
		value, err := number.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrUnexpectedKind, d.path, err)
		}

		return value, nil
	case float64:
		if number == float64(int64(number)) {
			return int64(number), nil
		}
	case int:
		return int64(number), nil
	case int64:
		return number, nil
	}

	return 0, d.kindError(KindNumber)
}

// Float returns a number value.
func (d Data) Float() (float64, error) {
	if d.err != nil {
		return 0, d.err
	}

	switch number := d.value.(type) {
	case json.Number:
		value, err := number.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrUnexpectedKind, d.path, err)
		}

		return value, nil
	case float64:
		return number, nil
	case int:
		return float64(number), nil
	case int64:
		return float64(number), nil
	}

	return 0, d.kindError(KindNumber)
}

// Bool returns a boolean value.
func (d Data) Bool() (bool, error) {
	if d.err != nil {
		return false, d.err
	}

	value, ok := d.value.(bool)
	if !ok {
		return false, d.kindError(KindBool)
	}

	return value, nil
}

var numberComparer = cmp.Comparer(func(a, b json.Number) bool {
	if a == b {
		return true
	}

	left, errLeft := a.Float64()
	right, errRight := b.Float64()

	return errLeft == nil && errRight == nil && left == right
})

// Equal compares the unwrapped value with other, which may be a plain Go
// value, a Data or a *Response. Both sides are compared as JSON values.
// Compare orders scalars.
func (d Data) Equal(other any) bool {
	if d.err != nil {
		return false
	}

	other, err := operand(other)
	if err != nil {
		return false
	}

	left, err := normalize(d.value)
	if err != nil {
		return false
	}

	right, err := normalize(other)
	if err != nil {
		return false
	}

	return cmp.Equal(left, right, numberComparer)
}

// Compare orders the unwrapped value against other and returns -1, 0 or +1.
// Only two numbers or two strings can be ordered; any other pairing fails
// with ErrUnexpectedKind.
func (d Data) Compare(other any) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	other, err := operand(other)
	if err != nil {
		return 0, err
	}

	left, err := normalize(d.value)
	if err != nil {
		return 0, err
	}

	right, err := normalize(other)
	if err != nil {
		return 0, err
	}

	switch typed := left.(type) {
	case json.Number:
		if number, ok := right.(json.Number); ok {
			return compareNumbers(typed, number)
		}
	case string:
		if text, ok := right.(string); ok {
			return strings.Compare(typed, text), nil
		}
	}

	return 0, fmt.Errorf("%w: cannot order %s against %T", ErrUnexpectedKind, d.path, right)
}

func operand(other any) (any, error) {
	switch typed := other.(type) {
	case Data:
		if typed.err != nil {
			return nil, typed.err
		}

		return typed.value, nil
	case *Response:
		if typed == nil {
			return nil, fmt.Errorf("%w: nil response", ErrUnexpectedKind)
		}

		return typed.value, nil
	}

	return other, nil
}

func compareNumbers(a, b json.Number) (int, error) {
	left, errLeft := a.Int64()
	right, errRight := b.Int64()

	if errLeft == nil && errRight == nil {
		switch {
		case left < right:
			return -1, nil
		case left > right:
			return 1, nil
		default:
			return 0, nil
		}
	}

	leftFloat, err := a.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnexpectedKind, err)
	}

	rightFloat, err := b.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnexpectedKind, err)
	}

	switch {
	case leftFloat < rightFloat:
		return -1, nil
	case leftFloat > rightFloat:
		return 1, nil
	default:
		return 0, nil
	}
}

func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalizing value: %w", err)
	}

	return JSONCodec{}.Decode(raw)
}

// Follow issues a GET against the link held by a string value, resolved
// relative to the URL of the originating response.
func (d Data) Follow(ctx context.Context, opts ...RequestOption) (*Response, error) {
	link, err := d.Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotALink, d.path, err)
	}

	if d.origin == nil {
		return nil, ErrNoOrigin
	}

	target, err := d.origin.resolveReference(link)
	if err != nil {
		return nil, err
	}

	return d.origin.request.client.Open(target).Get(ctx, opts...)
}

// MarshalJSON encodes the wrapped value.
func (d Data) MarshalJSON() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}

	raw, err := json.Marshal(d.value)
	if err != nil {
		return nil, fmt.Errorf("marshaling data at %s: %w", d.path, err)
	}

	return raw, nil
}

func (d Data) String() string {
	if d.err != nil {
		return "<" + d.err.Error() + ">"
	}

	raw, err := json.Marshal(d.value)
	if err != nil {
		return fmt.Sprintf("%v", d.value)
	}

	return string(raw)
}
