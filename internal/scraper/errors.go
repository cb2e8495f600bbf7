package scraper

import "fmt"

// FetchError is returned when a page cannot be downloaded: a transport error
// or a non-success HTTP status.
type FetchError struct {
	URL        string
	StatusCode int // zero for transport errors
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by Locate when the index page has no auction-date
// control.
type NotFoundError struct {
	Selector string
	Fallback string // empty when no fallback selector was tried
}

func (e *NotFoundError) Error() string {
	if e.Fallback != "" {
		return fmt.Sprintf("no auction-date control present (selectors %q, %q)", e.Selector, e.Fallback)
	}
	return fmt.Sprintf("no auction-date control present (selector %q)", e.Selector)
}

// ParseError is returned when a page cannot be parsed as markup.
type ParseError struct {
	Page string // "index" or "listings"
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s page: %v", e.Page, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
