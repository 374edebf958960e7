package datastore

type ListOptions struct {
	Limit  int
	Offset int
}

const DefaultLimit = 1000

func ParseListOptions(limit, offset int) ListOptions {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		limit = -1
		offset = 0
	}
	if offset < 0 {
		offset = 0
	}
	return ListOptions{Limit: limit, Offset: offset}
}

// Bounds returns the slice bounds selecting the page described by o from a
// list of n items. A negative limit selects everything.
func (o ListOptions) Bounds(n int) (start, end int) {
	if o.Limit < 0 {
		return 0, n
	}
	start = o.Offset
	if start > n {
		start = n
	}
	end = start + o.Limit
	if end > n {
		end = n
	}
	return start, end
}
