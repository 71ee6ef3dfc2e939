// Package pagination computes page metadata for list endpoints. Nothing
// here touches I/O; the values are recomputed for every query.
package pagination

import "math"

// Metadata describes one page of a filtered result set. It is serialized
// into the X-Pagination response header.
type Metadata struct {
	TotalItemCount int64 `json:"totalItemCount"`
	TotalPageCount int64 `json:"totalPageCount"`
	PageSize       int   `json:"pageSize"`
	CurrentPage    int   `json:"currentPage"`
}

// New builds metadata from the unpaged count. pageSize must be positive.
func New(totalItemCount int64, pageSize, currentPage int) Metadata {
	pages := totalItemCount / int64(pageSize)
	if totalItemCount%int64(pageSize) != 0 {
		pages++
	}
	return Metadata{
		TotalItemCount: totalItemCount,
		TotalPageCount: pages,
		PageSize:       pageSize,
		CurrentPage:    currentPage,
	}
}

// Normalize keeps page and size positive so offsets never go negative.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	return capPage(page, size), size
}

// Clamp applies the HTTP-facing defaults: a missing or non-positive size
// becomes defSize, sizes above maxSize are capped, and pages start at 1.
func Clamp(page, size, defSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return capPage(page, size), size
}

// capPage lowers page so that Offset(page, size) cannot overflow. Such a
// page is far past any real result set and comes back empty.
func capPage(page, size int) int {
	if size > 0 && page-1 > math.MaxInt/size {
		return math.MaxInt/size + 1
	}
	return page
}

// Offset is the number of rows to skip for the given page.
func Offset(page, size int) int { return size * (page - 1) }
