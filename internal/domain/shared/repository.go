package shared

// DefaultPageSize applies when a list query names no page size
const DefaultPageSize = 20

// Filter is the paging, ordering and search part of a list query.
// Resource filters embed it.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter is the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Offset is the number of rows before Page. Pages count from 1.
func (f Filter) Offset() int {
	return max(f.Page-1, 0) * f.PageSize
}
