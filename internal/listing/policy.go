package listing

import (
	"sort"
	"strings"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

// Policy maps an actor role to the record statuses it may see. Roles missing
// from ByRole, including the empty role, get Minimal.
type Policy struct {
	ByRole  map[domain.Role][]string
	Minimal []string
}

// AllowedStatuses returns the role's allow-list, sorted.
func (p Policy) AllowedStatuses(role domain.Role) []string {
	src, ok := p.ByRole[role]
	if !ok {
		src = p.Minimal
	}
	out := lowerAll(src)
	sort.Strings(out)
	return out
}

func (p Policy) Allows(role domain.Role, status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return false
	}
	src, ok := p.ByRole[role]
	if !ok {
		src = p.Minimal
	}
	for _, s := range src {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

// IsSuppressed reports whether the record must be hidden from role. Records
// whose status cannot be read are suppressed.
func (e *Entity[T]) IsSuppressed(record T, role domain.Role) bool {
	status := ""
	if e.Status != nil {
		status = e.Status(record)
	}
	return !e.Policy.Allows(role, status)
}
