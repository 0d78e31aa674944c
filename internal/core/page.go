package core

// PagedResult generic page envelope returned by list queries.
type PagedResult[T any] struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	Record     []T   `json:"record"`
}

// NormalizePage clamps page/pageSize to sane bounds.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// EmptyPage returns an empty result for the given page parameters.
func EmptyPage[T any](page, pageSize int) *PagedResult[T] {
	page, pageSize = NormalizePage(page, pageSize)
	return &PagedResult[T]{Page: page, PageSize: pageSize, Record: []T{}}
}
