package envelope

// Paginator is the pagination block of a page envelope.
type Paginator struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"currentPage"`
	TotalPage   int   `json:"totalPage"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// ToObject returns the plain form of the paginator.
func (p Paginator) ToObject() any {
	return map[string]any{
		"total":       p.Total,
		"currentPage": p.CurrentPage,
		"totalPage":   p.TotalPage,
		"size":        p.Size,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
	}
}

// Paginated is implemented by persistence results that carry one page of
// documents. The pipeline relays the values; it never computes them.
type Paginated interface {
	// Documents returns the documents of the current page.
	Documents() any

	// Pagination returns the position of the page in the result set.
	Pagination() Paginator
}

// PageResult is a page of documents in the shape produced by
// mongoose-paginate style persistence helpers.
type PageResult[T any] struct {
	Docs        []T   `json:"docs"`
	TotalDocs   int64 `json:"totalDocs"`
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Documents implements Paginated.
func (r PageResult[T]) Documents() any {
	if r.Docs == nil {
		return []T{}
	}
	return r.Docs
}

// Pagination implements Paginated.
func (r PageResult[T]) Pagination() Paginator {
	return PaginatorOf(r.TotalDocs, r.Page, r.TotalPages, r.Limit, r.HasNextPage, r.HasPrevPage)
}

// PaginatorOf maps persistence pagination fields to a Paginator:
// totalDocs→total, page→currentPage, totalPages→totalPage, limit→size.
func PaginatorOf(totalDocs int64, page, totalPages, limit int, hasNext, hasPrev bool) Paginator {
	return Paginator{
		Total:       totalDocs,
		CurrentPage: page,
		TotalPage:   totalPages,
		Size:        limit,
		HasNextPage: hasNext,
		HasPrevPage: hasPrev,
	}
}
