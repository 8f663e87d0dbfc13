package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginatorOf(t *testing.T) {
	t.Parallel()

	p := PaginatorOf(31, 3, 4, 10, true, true)
	assert.Equal(t, Paginator{
		Total:       31,
		CurrentPage: 3,
		TotalPage:   4,
		Size:        10,
		HasNextPage: true,
		HasPrevPage: true,
	}, p)
}

func TestPageResult_Documents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   PageResult[int]
		expected any
	}{
		{name: "nil docs", result: PageResult[int]{}, expected: []int{}},
		{name: "docs kept in order", result: PageResult[int]{Docs: []int{3, 1, 2}}, expected: []int{3, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.result.Documents())
		})
	}
}

func TestPageResult_ImplementsPaginated(t *testing.T) {
	t.Parallel()

	var _ Paginated = PageResult[string]{}
	var _ Paginated = &PageResult[string]{}

	r := PageResult[string]{TotalDocs: 1, Page: 1, TotalPages: 1, Limit: 10}
	assert.Equal(t, Paginator{Total: 1, CurrentPage: 1, TotalPage: 1, Size: 10}, r.Pagination())
}
