package pagination

// Pagination is a limit/offset window over an ordered result set.
type Pagination struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// New normalizes a requested window. Missing or invalid limits fall back to
// defaultLimit and negative offsets become zero.
func New(limit, offset, defaultLimit int) Pagination {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}
