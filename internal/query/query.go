package query

import (
	"maps"
	"strings"

	"github.com/five82/gatehouse/internal/adminapi"
)

// Query is what a view currently wants applied to its collection.
type Query struct {
	Filters map[string]string
	Search  string
	Page    int
}

// New returns the default query: first page, no filters, no search.
func New() Query {
	return Query{Filters: map[string]string{}, Page: 1}
}

// Clone returns a copy that shares no map with q.
func (q Query) Clone() Query {
	out := q
	out.Filters = maps.Clone(q.Filters)
	if out.Filters == nil {
		out.Filters = map[string]string{}
	}
	if out.Page < 1 {
		out.Page = 1
	}
	return out
}

// Filter returns the value of a filter key.
func (q Query) Filter(key string) string {
	return q.Filters[key]
}

// Params renders the remote read parameters. The search text travels under
// searchKey; an empty searchKey drops it. Page never reaches the server.
func (q Query) Params(searchKey string) adminapi.Params {
	params := adminapi.Params{}
	for k, v := range q.Filters {
		if strings.TrimSpace(v) != "" {
			params[k] = v
		}
	}
	if searchKey != "" && strings.TrimSpace(q.Search) != "" {
		params[searchKey] = strings.TrimSpace(q.Search)
	}
	return params
}

// SameFetch reports whether a and b would issue the same remote read.
func SameFetch(a, b Query) bool {
	return strings.TrimSpace(a.Search) == strings.TrimSpace(b.Search) &&
		maps.Equal(nonEmpty(a.Filters), nonEmpty(b.Filters))
}

func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}
