// Package pagewalk consumes cursor-based paginated listing APIs one page at a time.
//
// Pages are requested strictly in order starting at page 1, because the
// response for page N is what tells the walker whether page N+1 exists.
// Items are produced lazily through an iter.Seq2, so a caller that stops
// ranging early never triggers another fetch.
package pagewalk

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// DefaultPageSize is the number of items requested per page
const DefaultPageSize = 10

// PageRequest is the cursor handed to a Fetcher
type PageRequest struct {
	Page    int
	PerPage int
}

// ResultInfo carries the provider's pagination metadata
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// APIError is one entry of a provider's error list
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PageResult is the provider's response envelope for one page
type PageResult[T any] struct {
	Success    bool       `json:"success"`
	Errors     []APIError `json:"errors"`
	Result     []T        `json:"result"`
	ResultInfo ResultInfo `json:"result_info"`
}

// Fetcher loads a single page
type Fetcher[T any] func(ctx context.Context, req PageRequest) (*PageResult[T], error)

// ProviderAPIError is returned when a page response signals failure.
// It is not retried: a failed page is not considered transient.
type ProviderAPIError struct {
	Page   int
	Errors []APIError
}

func (e *ProviderAPIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("provider API error on page %d", e.Page)
	}
	msgs := make([]string, len(e.Errors))
	for i, ae := range e.Errors {
		msgs[i] = fmt.Sprintf("%d: %s", ae.Code, ae.Message)
	}
	return fmt.Sprintf("provider API error on page %d: %s", e.Page, strings.Join(msgs, "; "))
}

type options struct {
	pageSize int
}

// Option configures a walk
type Option func(*options)

// WithPageSize overrides DefaultPageSize. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// Walk returns a lazy, single-use sequence over every item of every page.
// On failure the sequence yields one (zero, err) pair and ends; err is a
// *ProviderAPIError when the provider reported failure.
func Walk[T any](ctx context.Context, fetch Fetcher[T], opts ...Option) iter.Seq2[T, error] {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(T, error) bool) {
		var zero T
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			resp, err := fetch(ctx, PageRequest{Page: page, PerPage: o.pageSize})
			if err != nil {
				yield(zero, fmt.Errorf("fetch page %d: %w", page, err))
				return
			}
			if resp == nil {
				yield(zero, fmt.Errorf("fetch page %d: empty response", page))
				return
			}
			if !resp.Success {
				yield(zero, &ProviderAPIError{Page: page, Errors: resp.Errors})
				return
			}

			for _, item := range resp.Result {
				if !yield(item, nil) {
					return
				}
			}

			if page >= resp.ResultInfo.TotalPages {
				return
			}
		}
	}
}

// Collect drains a walk into a slice, stopping at the first error.
// Items yielded before the error are returned alongside it.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
