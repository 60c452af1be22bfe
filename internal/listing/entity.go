package listing

import (
	"encoding/json"
	"sort"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

const (
	DefaultPage            = 1
	DefaultPageSize        = 10
	MaxPageSize            = 100
	DefaultMinSearchLength = 3
)

type Kind int

const (
	// KindStatus is the set-typed status dimension. When absent the role's
	// allow-list is sent upstream instead.
	KindStatus Kind = iota
	// KindExact matches a record field case-insensitively against any of the values.
	KindExact
	// KindMember matches a record field against a set of values.
	KindMember
	// KindSelect is a single selection, usually an identifier.
	KindSelect
	// KindSearch is free text matched as a substring across Fields.
	KindSearch
)

// Support describes how faithfully the upstream API applies a dimension.
type Support int

const (
	SupportNone Support = iota
	SupportCoarse
	SupportExact
)

type Dimension[T any] struct {
	Name    string
	Kind    Kind
	Support Support
	// Param is the upstream query parameter. Empty means the dimension is
	// never forwarded.
	Param  string
	Value  func(T) string
	Fields []func(T) string
}

func (d Dimension[T]) forwarded() bool { return d.Support != SupportNone && d.Param != "" }

// clientOnly reports whether the result of the upstream call may still
// contain records the dimension should reject.
func (d Dimension[T]) clientOnly() bool { return d.Support != SupportExact || d.Param == "" }

type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Entity describes one listing: where it lives upstream, how its records are
// filtered and which statuses each role may see.
type Entity[T any] struct {
	Name            string
	Resource        string
	Status          func(T) string
	Policy          Policy
	Dimensions      []Dimension[T]
	Paging          Paging
	MinSearchLength int
}

func (e *Entity[T]) minSearchLength() int {
	if e.MinSearchLength > 0 {
		return e.MinSearchLength
	}
	return DefaultMinSearchLength
}

func (e *Entity[T]) Dimension(name string) (Dimension[T], bool) {
	for _, d := range e.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension[T]{}, false
}

func (e *Entity[T]) normalizePage(page, pageSize int) (int, int) {
	def := e.Paging.DefaultPageSize
	if def <= 0 {
		def = DefaultPageSize
	}
	limit := e.Paging.MaxPageSize
	if limit <= 0 {
		limit = MaxPageSize
	}
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > limit {
		pageSize = limit
	}
	return page, pageSize
}

// ParamValue is a normalized dimension value: a scalar when exactly one value
// was given, an explicit list otherwise.
type ParamValue struct {
	Scalar string
	List   []string
}

func collapse(vals []string) ParamValue {
	if len(vals) == 1 {
		return ParamValue{Scalar: vals[0]}
	}
	return ParamValue{List: append([]string(nil), vals...)}
}

func (v ParamValue) IsList() bool { return v.List != nil }

func (v ParamValue) Values() []string {
	if v.List != nil {
		return append([]string(nil), v.List...)
	}
	if v.Scalar == "" {
		return nil
	}
	return []string{v.Scalar}
}

func (v ParamValue) MarshalJSON() ([]byte, error) {
	if v.List != nil {
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

func (v *ParamValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*v = ParamValue{List: list}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = ParamValue{Scalar: s}
	return nil
}

// RequestDescriptor is what the upstream gateway receives. Params is keyed by
// upstream parameter name.
type RequestDescriptor struct {
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Params   map[string]ParamValue `json:"params,omitempty"`
}

// ParamNames returns the descriptor's parameter names in a stable order.
func (d RequestDescriptor) ParamNames() []string {
	names := make([]string, 0, len(d.Params))
	for k := range d.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Normalize turns raw filter input into the upstream request. It is pure: equal
// inputs give structurally equal descriptors.
func (e *Entity[T]) Normalize(state FilterState, role domain.Role, page, pageSize int) RequestDescriptor {
	return e.normalize(canonicalize(e, state), role, page, pageSize)
}

func (e *Entity[T]) normalize(cf canonicalFilter, role domain.Role, page, pageSize int) RequestDescriptor {
	page, pageSize = e.normalizePage(page, pageSize)
	desc := RequestDescriptor{Page: page, PageSize: pageSize}
	for _, d := range e.Dimensions {
		if !d.forwarded() {
			continue
		}
		vals := cf[d.Name]
		if d.Kind == KindStatus && len(vals) == 0 {
			vals = e.Policy.AllowedStatuses(role)
		}
		if len(vals) == 0 {
			continue
		}
		if desc.Params == nil {
			desc.Params = map[string]ParamValue{}
		}
		desc.Params[d.Param] = collapse(vals)
	}
	return desc
}

// CacheKey identifies one reconciled result: the upstream request, the role
// applying suppression and every dimension re-applied locally.
type CacheKey struct {
	Entity  string                `json:"entity"`
	Role    domain.Role           `json:"role"`
	Request RequestDescriptor     `json:"request"`
	Client  map[string]ParamValue `json:"client,omitempty"`
}

func (k CacheKey) String() string {
	b, err := json.Marshal(k)
	if err != nil {
		// ParamValue and the descriptor only hold strings and ints.
		panic(err)
	}
	return string(b)
}

func (e *Entity[T]) Key(state FilterState, role domain.Role, page, pageSize int) CacheKey {
	cf := canonicalize(e, state)
	return e.key(cf, e.normalize(cf, role, page, pageSize), role)
}

func (e *Entity[T]) key(cf canonicalFilter, desc RequestDescriptor, role domain.Role) CacheKey {
	key := CacheKey{Entity: e.Name, Role: role, Request: desc}
	for _, name := range e.activeClientOnly(cf) {
		if key.Client == nil {
			key.Client = map[string]ParamValue{}
		}
		key.Client[name] = collapse(cf[name])
	}
	return key
}

// ClientOnly lists the active dimensions the upstream does not apply exactly.
func (e *Entity[T]) ClientOnly(state FilterState) []string {
	return e.activeClientOnly(canonicalize(e, state))
}

func (e *Entity[T]) activeClientOnly(cf canonicalFilter) []string {
	var out []string
	for _, d := range e.Dimensions {
		if cf.active(d.Name) && d.clientOnly() {
			out = append(out, d.Name)
		}
	}
	return out
}
