package listing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RemotePagination is the upstream pagination object after field-name
// normalization. Zero Page, PageSize or TotalPages means the field was absent
// or unusable.
type RemotePagination struct {
	Page       int
	PageSize   int
	Total      int
	HasTotal   bool
	TotalPages int
}

// RemotePage is the single canonical shape of an upstream listing response.
// Pagination is nil when the upstream returned a bare array.
type RemotePage[T any] struct {
	Items      []T
	Pagination *RemotePagination
	// Malformed is set when anything had to be defaulted or skipped.
	Malformed bool
}

var (
	pageFields       = []string{"page", "currentPage", "current_page"}
	pageSizeFields   = []string{"pageSize", "page_size", "perPage", "per_page", "limit"}
	totalFields      = []string{"total", "totalItems", "total_items", "count"}
	totalPagesFields = []string{"totalPages", "pages", "total_pages"}
)

// DecodeRemotePage accepts either a bare JSON array of records or an object
// of the form {data, pagination}. It never fails: anything it cannot read is
// defaulted to an empty collection or zeroed pagination and flagged.
func DecodeRemotePage[T any](raw []byte) RemotePage[T] {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return RemotePage[T]{Items: []T{}, Malformed: true}
	}
	switch raw[0] {
	case '[':
		items, bad := decodeItems[T](raw)
		return RemotePage[T]{Items: items, Malformed: bad}
	case '{':
		return decodeEnvelope[T](raw)
	default:
		return RemotePage[T]{Items: []T{}, Malformed: true}
	}
}

func decodeEnvelope[T any](raw []byte) RemotePage[T] {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return RemotePage[T]{Items: []T{}, Malformed: true}
	}
	out := RemotePage[T]{Items: []T{}}

	data, ok := firstField(env, "data", "items", "results")
	if ok {
		items, bad := decodeItems[T](data)
		out.Items = items
		out.Malformed = bad
	} else {
		out.Malformed = true
	}

	pgRaw, ok := env["pagination"]
	if !ok {
		pgRaw, ok = env["meta"]
	}
	var fields map[string]json.RawMessage
	if ok && json.Unmarshal(pgRaw, &fields) == nil && fields != nil {
		pg, bad := decodePagination(fields)
		out.Pagination = &pg
		out.Malformed = out.Malformed || bad
	} else {
		// An object without usable pagination still carries a page of data,
		// but nothing upstream vouches for its counts.
		out.Malformed = true
	}
	return out
}

func decodeItems[T any](raw []byte) ([]T, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}, true
	}
	items := make([]T, 0, len(elems))
	bad := false
	for _, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			bad = true
			continue
		}
		items = append(items, item)
	}
	return items, bad
}

func decodePagination(fields map[string]json.RawMessage) (RemotePagination, bool) {
	var pg RemotePagination
	bad := false
	read := func(names []string) (int, bool) {
		raw, ok := firstField(fields, names...)
		if !ok {
			return 0, false
		}
		n, ok := parseCount(raw)
		if !ok {
			bad = true
		}
		return n, ok
	}
	positive := func(names []string) int {
		n, ok := read(names)
		if ok && n <= 0 {
			bad = true
			return 0
		}
		return n
	}
	pg.Page = positive(pageFields)
	pg.PageSize = positive(pageSizeFields)
	pg.TotalPages = positive(totalPagesFields)
	if n, ok := read(totalFields); ok {
		if n >= 0 {
			pg.Total = n
			pg.HasTotal = true
		} else {
			bad = true
		}
	}
	return pg, bad
}

func firstField(m map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := m[name]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// parseCount reads a non-fractional number given as a JSON number or a
// numeric string.
func parseCount(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
