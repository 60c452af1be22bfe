package listing

import (
	"slices"
	"strings"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

// RoleDimension is reported by filter when role suppression removed records
// the upstream returned.
const RoleDimension = "role"

// Apply re-applies locally what the upstream page may not have honoured: role
// suppression, exact matches on coarse dimensions, set membership and search.
// All predicates are ANDed and the input order is kept.
func (e *Entity[T]) Apply(records []T, state FilterState, role domain.Role) []T {
	out, _ := e.filter(records, canonicalize(e, state), role)
	return out
}

// filter returns the surviving records and the names of the trusted
// predicates, RoleDimension included, that still had to drop something.
func (e *Entity[T]) filter(records []T, cf canonicalFilter, role domain.Role) ([]T, []string) {
	out := make([]T, 0, len(records))
	var overruled []string
	note := func(name string) {
		if !slices.Contains(overruled, name) {
			overruled = append(overruled, name)
		}
	}
	for _, rec := range records {
		if e.IsSuppressed(rec, role) {
			note(RoleDimension)
			continue
		}
		if d, rejected := e.rejectedBy(rec, cf); rejected {
			if !d.clientOnly() {
				note(d.Name)
			}
			continue
		}
		out = append(out, rec)
	}
	return out, overruled
}

func (e *Entity[T]) rejectedBy(rec T, cf canonicalFilter) (Dimension[T], bool) {
	for _, kind := range []Kind{KindExact, KindSelect, KindStatus, KindMember, KindSearch} {
		for _, d := range e.Dimensions {
			if d.Kind != kind || !cf.active(d.Name) {
				continue
			}
			if !d.match(rec, cf[d.Name]) {
				return d, true
			}
		}
	}
	return Dimension[T]{}, false
}

func (d Dimension[T]) match(rec T, vals []string) bool {
	switch d.Kind {
	case KindExact, KindSelect:
		if !d.clientOnly() || d.Value == nil {
			return true
		}
		return containsFold(vals, strings.TrimSpace(d.Value(rec)))
	case KindStatus, KindMember:
		if d.Value == nil {
			return true
		}
		return containsFold(vals, strings.TrimSpace(d.Value(rec)))
	case KindSearch:
		needle := strings.ToLower(vals[0])
		for _, field := range d.Fields {
			if strings.Contains(strings.ToLower(field(rec)), needle) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func containsFold(vals []string, v string) bool {
	for _, candidate := range vals {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
