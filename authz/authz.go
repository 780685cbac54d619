// Package authz derives a user's capability set from account flags and
// endorsement records.
//
// The computation is pure: identical inputs always produce an identical
// Authorizations value, so callers recompute freely (at login, and again
// at session load when the session does not cache the result) rather than
// patching a previous snapshot.
package authz

import (
	"time"

	"github.com/eprintd/authcore/taxonomy"
)

// Type records how an endorsement came to exist.
type Type string

const (
	// TypeAuto marks endorsements granted automatically by policy.
	TypeAuto Type = "auto"
	// TypeUser marks endorsements granted by another endorsed user.
	TypeUser Type = "user"
	// TypeAdmin marks endorsements granted by administrative action.
	TypeAdmin Type = "admin"
)

// Endorsement links an endorsee to a category with a signed point value.
// Negative points revoke standing granted by earlier endorsements.
type Endorsement struct {
	Category   taxonomy.Category
	Points     int
	Type       Type
	EndorserID string // empty for TypeAuto
	Valid      bool
	IssuedAt   time.Time
}

// AccountFlags are the boolean columns of the account record that bear on
// authentication and capability. They are read-only to this package.
type AccountFlags struct {
	Approved      bool
	Deleted       bool
	Banned        bool
	EmailVerified bool

	// Administrative capabilities, independent of endorsement totals.
	EditUsers  bool
	EditSystem bool
}

// Authorizations is the derived capability snapshot for one user.
type Authorizations struct {
	points map[taxonomy.Category]int

	EditUsers  bool
	EditSystem bool
}

// Compute groups the valid endorsements by exact category, sums their
// point values, and copies the administrative flags from the account.
func Compute(flags AccountFlags, endorsements []Endorsement) Authorizations {
	a := Authorizations{
		points:     make(map[taxonomy.Category]int, len(endorsements)),
		EditUsers:  flags.EditUsers,
		EditSystem: flags.EditSystem,
	}
	for _, e := range endorsements {
		if !e.Valid {
			continue
		}
		a.points[e.Category] += e.Points
	}
	return a
}

// EndorsedFor reports whether the summed point total for exactly this
// category is strictly positive. A total of zero is not endorsed.
func (a Authorizations) EndorsedFor(c taxonomy.Category) bool {
	return a.points[c] > 0
}

// Points returns the summed point total for a category; zero when the
// user has no valid endorsements there.
func (a Authorizations) Points(c taxonomy.Category) int {
	return a.points[c]
}

// Categories lists every category with a nonzero point total. Order is
// unspecified.
func (a Authorizations) Categories() []taxonomy.Category {
	out := make([]taxonomy.Category, 0, len(a.points))
	for c, p := range a.points {
		if p != 0 {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns a copy of the per-category totals, for serialization.
func (a Authorizations) Snapshot() map[taxonomy.Category]int {
	out := make(map[taxonomy.Category]int, len(a.points))
	for c, p := range a.points {
		out[c] = p
	}
	return out
}

// FromSnapshot rebuilds an Authorizations value from serialized totals
// and administrative flags.
func FromSnapshot(points map[taxonomy.Category]int, editUsers, editSystem bool) Authorizations {
	a := Authorizations{
		points:     make(map[taxonomy.Category]int, len(points)),
		EditUsers:  editUsers,
		EditSystem: editSystem,
	}
	for c, p := range points {
		a.points[c] = p
	}
	return a
}
