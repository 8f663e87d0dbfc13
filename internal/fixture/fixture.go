package fixture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avaenvelope/internal/envelope"
)

// Pagination defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Load reads a fixture document. JSON files are read by the same decoder
// since JSON is a subset of YAML. An empty file yields a nil document.
func Load(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	return doc, nil
}

// Paginate returns one page of items the way a persistence paginator
// reports it. page is clamped to at least 1 and limit to [1, MaxLimit],
// with DefaultLimit used for a non-positive limit. A page past the end
// has no documents.
func Paginate(items []any, page, limit int) envelope.PageResult[any] {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	total := len(items)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	docs := []any{}
	if page <= totalPages && total > 0 {
		start := (page - 1) * limit
		end := min(start+limit, total)
		docs = append(docs, items[start:end]...)
	}

	return envelope.PageResult[any]{
		Docs:        docs,
		TotalDocs:   int64(total),
		Page:        page,
		TotalPages:  totalPages,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
