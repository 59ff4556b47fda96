// Package fetch turns paginated query functions into complete result lists.
package fetch

// DefaultLimit is the largest page size the remote list endpoints accept.
const DefaultLimit = 100

// Pagination selects one page of a list endpoint.
type Pagination struct {
	Limit  int
	Offset int
}

// Page is one page of results as returned by a list endpoint. Capacity is
// the page size the endpoint honored for this request; a page with fewer
// items than its capacity is the final page.
type Page[T any] struct {
	Items    []T
	Capacity int
	Offset   int
	Total    int
}

// All drains a paginated query into a single slice, requesting pages in
// strictly increasing offset order starting at zero. Result order equals
// server order concatenated across pages and no page is requested twice.
// An error on any page aborts the accumulation; the caller never sees a
// partial list.
func All[T any](limit int, query func(Pagination) (Page[T], error)) ([]T, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var items []T
	offset := 0
	for {
		page, err := query(Pagination{Limit: limit, Offset: offset})
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		capacity := page.Capacity
		if capacity <= 0 {
			capacity = limit
		}
		if len(page.Items) < capacity {
			return items, nil
		}
		offset += capacity
	}
}
