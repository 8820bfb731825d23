// ABOUTME: Pagination wraps one page of instances with window math
// ABOUTME: Iter produces the page-link sequence with 0 as the gap marker

package datastore

import (
	"github.com/2389/modeladmin/metadata"
)

// Pagination is one page of a model listing plus the numbers the list
// template needs. Built per request and discarded after rendering.
type Pagination struct {
	// Page is the current 1-based page number.
	Page int
	// PerPage is the page size the window was computed with.
	PerPage int
	// Total is the instance count across all pages.
	Total int
	// Items holds the current page's instances.
	Items []*metadata.Instance
}

// Pages returns the number of pages.
func (p *Pagination) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// HasPrev reports whether a previous page exists.
func (p *Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists.
func (p *Pagination) HasNext() bool {
	return p.Page < p.Pages()
}

// PrevNum returns the previous page number.
func (p *Pagination) PrevNum() int {
	return p.Page - 1
}

// NextNum returns the next page number.
func (p *Pagination) NextNum() int {
	return p.Page + 1
}

// Iter returns the page numbers to render as links: the first two
// pages, a window around the current page, and the last two pages,
// with 0 marking each gap.
func (p *Pagination) Iter() []int {
	const (
		leftEdge     = 2
		leftCurrent  = 2
		rightCurrent = 5
		rightEdge    = 2
	)
	var out []int
	last := 0
	pages := p.Pages()
	for num := 1; num <= pages; num++ {
		if num <= leftEdge ||
			(num > p.Page-leftCurrent-1 && num < p.Page+rightCurrent) ||
			num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}
