package listing

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// FilterState is the raw filter input of one listing view. A dimension with
// no values and an absent dimension are the same thing.
type FilterState map[string][]string

// Set replaces the values of a dimension. Calling it with no values clears it.
func (f FilterState) Set(name string, values ...string) FilterState {
	if f == nil {
		f = FilterState{}
	}
	if len(values) == 0 {
		delete(f, name)
		return f
	}
	f[name] = append([]string(nil), values...)
	return f
}

func (f FilterState) Values(name string) []string {
	if f == nil {
		return nil
	}
	return f[name]
}

func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// canonicalFilter holds the trimmed, deduplicated, ordered values of every
// active dimension an entity knows about. Unknown dimension names are dropped.
type canonicalFilter map[string][]string

func (c canonicalFilter) active(name string) bool { return len(c[name]) > 0 }

func canonicalize[T any](e *Entity[T], state FilterState) canonicalFilter {
	out := canonicalFilter{}
	for _, d := range e.Dimensions {
		vals := cleanValues(state.Values(d.Name))
		if len(vals) == 0 {
			continue
		}
		switch d.Kind {
		case KindSearch:
			text := strings.Join(vals, " ")
			if utf8.RuneCountInString(text) < e.minSearchLength() {
				continue
			}
			out[d.Name] = []string{text}
		case KindSelect:
			out[d.Name] = vals[:1]
		case KindStatus:
			out[d.Name] = foldSet(lowerAll(vals))
		default:
			out[d.Name] = foldSet(vals)
		}
	}
	return out
}

func cleanValues(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v)
	}
	return out
}

// foldSet sorts values and drops case-insensitive duplicates. The survivor of a
// duplicate group does not depend on input order.
func foldSet(in []string) []string {
	vals := append([]string(nil), in...)
	sort.Slice(vals, func(i, j int) bool {
		li, lj := strings.ToLower(vals[i]), strings.ToLower(vals[j])
		if li != lj {
			return li < lj
		}
		return vals[i] < vals[j]
	})
	out := vals[:0]
	for i, v := range vals {
		if i > 0 && strings.EqualFold(v, out[len(out)-1]) {
			continue
		}
		out = append(out, v)
	}
	return out
}
