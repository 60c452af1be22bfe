package listing

import (
	"net/url"
	"strings"
)

// FilterFromQuery reads every dimension the entity knows from q. Repeated
// parameters and comma-separated lists both give several values; search text
// is taken verbatim.
func (e *Entity[T]) FilterFromQuery(q url.Values) FilterState {
	state := FilterState{}
	for _, d := range e.Dimensions {
		raw, ok := q[d.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		if d.Kind == KindSearch {
			state.Set(d.Name, raw...)
			continue
		}
		var vals []string
		for _, r := range raw {
			vals = append(vals, strings.Split(r, ",")...)
		}
		state.Set(d.Name, vals...)
	}
	return state
}
