package restwrap

import (
	"context"
	"errors"
)

// Default paging rule paths.
const (
	DefaultItemsPath = "data"
	DefaultNextPath  = "paging.next"
)

// ItemsFunc extracts the items of one page from its body.
type ItemsFunc func(body Data) ([]Data, error)

// NextFunc extracts the link to the following page; "" means there is none.
type NextFunc func(body Data) (string, error)

// PagingRule tells an Iterator where items and next links live in a page.
type PagingRule struct {
	Items ItemsFunc
	Next  NextFunc
}

// DefaultPagingRule reads items from "data" and the next link from "paging.next".
func DefaultPagingRule() PagingRule {
	return PathPagingRule(DefaultItemsPath, DefaultNextPath)
}

// PathPagingRule builds a rule from two gjson paths.
func PathPagingRule(itemsPath, nextPath string) PagingRule {
	return PagingRule{
		Items: ItemsAt(itemsPath),
		Next:  NextAt(nextPath),
	}
}

// ItemsAt reads the item array at path. A null value is an empty page.
func ItemsAt(path string) ItemsFunc {
	return func(body Data) ([]Data, error) {
		items := body.Lookup(path)
		if items.Kind() == KindNull {
			return nil, nil
		}

		return items.Elements()
	}
}

// NextAt reads the next link at path. A missing or null value ends paging.
func NextAt(path string) NextFunc {
	return func(body Data) (string, error) {
		next := body.Lookup(path)
		if next.Err() != nil || next.Kind() == KindNull {
			return "", nil
		}

		return next.Text()
	}
}

type iteratorState int

const (
	stateReady iteratorState = iota
	stateExhausted
)

// Iterator walks the items of a paginated response, fetching a following
// page only once every item of the current one has been returned. It is a
// single cursor and must not be shared between goroutines.
type Iterator struct {
	ctx      context.Context
	rule     PagingRule
	state    iteratorState
	page     *Response
	pages    int
	items    []Data
	loaded   bool
	position int
	item     Data
	err      error
}

func newIterator(ctx context.Context, first *Response, rule PagingRule) *Iterator {
	return &Iterator{
		ctx:   ctx,
		rule:  rule,
		state: stateReady,
		page:  first,
		pages: 1,
	}
}

// Advance returns the next item. ok is false once the iterator is exhausted;
// after a failure every call returns the same error.
func (it *Iterator) Advance() (Data, bool, error) {
	for it.state == stateReady {
		if !it.loaded {
			items, err := it.rule.Items(it.page.Data)
			if err != nil {
				return it.fail(it.extractError(err))
			}

			it.items, it.position, it.loaded = items, 0, true
		}

		if it.position < len(it.items) {
			it.item = it.items[it.position]
			it.position++

			return it.item, true, nil
		}

		err := it.advancePage()
		if err != nil {
			return it.fail(err)
		}
	}

	return Data{}, false, it.err
}

func (it *Iterator) extractError(err error) error {
	if it.pages == 1 {
		return err
	}

	return &PageFetchError{URL: it.page.URL(), Page: it.pages, StatusCode: it.page.StatusCode, Err: err}
}

func (it *Iterator) advancePage() error {
	page := it.pages + 1

	next, err := it.rule.Next(it.page.Data)
	if err != nil {
		return &PageFetchError{URL: it.page.URL(), Page: page, Err: err}
	}

	if next == "" {
		it.state = stateExhausted

		return nil
	}

	target, err := it.page.resolveReference(next)
	if err != nil {
		return &PageFetchError{URL: next, Page: page, Err: err}
	}

	client := it.page.Client()
	client.logger.Debug("Fetching next page", map[string]interface{}{
		"url":  target,
		"page": page,
	})

	resp, err := client.Open(target).Get(it.ctx, WithHeaders(it.page.Request().Header))
	if err != nil {
		pageErr := &PageFetchError{URL: target, Page: page, Err: err}

		var malformed *MalformedBodyError
		if errors.As(err, &malformed) {
			pageErr.StatusCode = malformed.StatusCode
		}

		return pageErr
	}

	if !resp.IsSuccess() {
		return &PageFetchError{URL: target, Page: page, StatusCode: resp.StatusCode}
	}

	it.page, it.pages = resp, page
	it.items, it.position, it.loaded = nil, 0, false

	return nil
}

func (it *Iterator) fail(err error) (Data, bool, error) {
	it.state = stateExhausted
	it.err = err

	return Data{}, false, err
}

// Next advances the iterator and reports whether an item is available.
func (it *Iterator) Next() bool {
	_, ok, err := it.Advance()

	return ok && err == nil
}

// Item returns the item produced by the last successful Next.
func (it *Iterator) Item() Data {
	return it.item
}

// Err returns the failure that stopped the iterator, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Page returns the response of the page currently being walked.
func (it *Iterator) Page() *Response {
	return it.page
}

// Pages returns how many pages have been fetched so far, the first included.
func (it *Iterator) Pages() int {
	return it.pages
}

// All drains the iterator.
func (it *Iterator) All() ([]Data, error) {
	var items []Data

	for it.Next() {
		items = append(items, it.Item())
	}

	return items, it.Err()
}

// ForEach calls fn for each remaining item, stopping at the first error.
func (it *Iterator) ForEach(fn func(Data) error) error {
	for it.Next() {
		err := fn(it.Item())
		if err != nil {
			return err
		}
	}

	return it.Err()
}
