package domain

// TaxonomyKind enumerates the classification domains a ticket can reference.
type TaxonomyKind string

const (
	KindStatuses TaxonomyKind = "statuses"
	KindTypes    TaxonomyKind = "types"
	KindReleases TaxonomyKind = "releases"
	KindUsers    TaxonomyKind = "users"
)

// TaxonomyKinds lists every accepted kind in display order.
var TaxonomyKinds = []TaxonomyKind{KindStatuses, KindTypes, KindReleases, KindUsers}

// ParseTaxonomyKind resolves a path segment against the closed set of kinds.
func ParseTaxonomyKind(raw string) (TaxonomyKind, bool) {
	for _, kind := range TaxonomyKinds {
		if string(kind) == raw {
			return kind, true
		}
	}
	return "", false
}

// Status is a board column when grouping by workflow state.
type Status struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int64  `json:"position"`
}

// Type classifies the nature of the work (bug, feature, ...).
type Type struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Release groups tickets shipped together.
type Release struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewStatus is the insert payload for a status row.
type NewStatus struct {
	Name     string
	Position int64
}

// NewUser is the insert payload for a user row.
type NewUser struct {
	Name      string
	Email     *string
	AvatarURL *string
}
