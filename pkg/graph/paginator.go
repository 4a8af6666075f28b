package graph

import (
	"context"
	"iter"

	"tap-instagram/pkg/extract"
)

// Continuation pages are plain edge listings, whatever field the first page nested them under
var (
	continuationRecords = extract.MustCompile("$.data[*]")
	continuationNext    = extract.MustCompile("$.paging.next")
)

// Paginator walks the pages of one partition: a first request by path,
// then the absolute next links the API hands back.
type Paginator struct {
	fetcher  Fetcher
	path     string
	records  *extract.Selector
	next     *extract.Selector
	maxPages int

	fetched int
	nextURL string
	seen    map[string]bool
	done    bool
}

// NewPaginator creates a paginator. A nil next selector means the endpoint
// returns a single page. maxPages of zero is unlimited.
func NewPaginator(f Fetcher, path string, records, next *extract.Selector, maxPages int) *Paginator {
	return &Paginator{
		fetcher:  f,
		path:     path,
		records:  records,
		next:     next,
		maxPages: maxPages,
		seen:     map[string]bool{},
	}
}

// HasNext reports whether another page may be fetched
func (p *Paginator) HasNext() bool {
	return !p.done
}

// Pages returns the number of pages fetched so far
func (p *Paginator) Pages() int {
	return p.fetched
}

// Next fetches the following page and returns its records lazily
func (p *Paginator) Next(ctx context.Context) (iter.Seq[map[string]interface{}], error) {
	if p.done {
		return func(func(map[string]interface{}) bool) {}, nil
	}

	var (
		page    *Page
		err     error
		records = p.records
		next    = p.next
	)
	if p.fetched == 0 {
		page, err = p.fetcher.FetchPage(ctx, p.path)
	} else {
		page, err = p.fetcher.FetchURL(ctx, p.nextURL)
		records, next = continuationRecords, continuationNext
	}
	if err != nil {
		p.done = true
		return nil, err
	}
	p.fetched++

	p.nextURL = ""
	if next != nil {
		if link, ok := next.FirstString(page.Doc); ok && !p.seen[link] {
			p.seen[link] = true
			p.nextURL = link
		}
	}
	if p.nextURL == "" || (p.maxPages > 0 && p.fetched >= p.maxPages) {
		p.done = true
	}

	return records.Records(page.Doc), nil
}
