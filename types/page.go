package types

import "math"

// Page is a single page of a paginated listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// PageCount returns ceil(total/size). It is zero when size is not positive.
func PageCount(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// PageBounds returns the half-open slice bounds [start, end) of a 1-indexed
// page of the given size over a sequence of length total, clamped to total.
func PageBounds(page, size, total int) (start, end int) {
	if page < 1 || size <= 0 {
		return 0, 0
	}
	if page-1 >= PageCount(total, size) {
		return total, total
	}
	start = (page - 1) * size
	end = start + size
	if end > total {
		end = total
	}
	return start, end
}

// PageOffset returns the number of items preceding a 1-indexed page. It
// saturates at math.MaxInt instead of wrapping, so a page far past the end
// still lands past the end.
func PageOffset(page, size int) int {
	if page < 1 || size <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}
