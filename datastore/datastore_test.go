package datastore

import "testing"

func TestParseListOptions(t *testing.T) {
	cases := []struct {
		limit, offset int
		want          ListOptions
	}{
		{0, 0, ListOptions{Limit: DefaultLimit, Offset: 0}},
		{5, 2, ListOptions{Limit: 5, Offset: 2}},
		{-3, 7, ListOptions{Limit: -1, Offset: 0}},
		{5, -1, ListOptions{Limit: 5, Offset: 0}},
	}

	for _, c := range cases {
		if got := ParseListOptions(c.limit, c.offset); got != c.want {
			t.Errorf("ParseListOptions(%d, %d): expected %+v, got %+v", c.limit, c.offset, c.want, got)
		}
	}
}

func TestBounds(t *testing.T) {
	cases := []struct {
		opts       ListOptions
		n          int
		start, end int
	}{
		{ListOptions{Limit: 10}, 4, 0, 4},
		{ListOptions{Limit: 2, Offset: 1}, 4, 1, 3},
		{ListOptions{Limit: 2, Offset: 9}, 4, 4, 4},
		{ListOptions{Limit: -1, Offset: 0}, 4, 0, 4},
	}

	for _, c := range cases {
		start, end := c.opts.Bounds(c.n)
		if start != c.start || end != c.end {
			t.Errorf("%+v.Bounds(%d): expected [%d:%d], got [%d:%d]", c.opts, c.n, c.start, c.end, start, end)
		}
	}
}
