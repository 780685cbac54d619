// Package identity holds the user value returned by authentication and
// carried inside sessions. A User is a point-in-time snapshot assembled
// from the credential store; it is never mutated after construction.
package identity

import "strings"

// Name is the human name attached to a user profile.
type Name struct {
	Forename string
	Surname  string
	Suffix   string
}

// String joins the name parts with single spaces, skipping empty parts.
func (n Name) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Forename, n.Surname, n.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// User is the identity record produced by a successful authentication or
// session load.
type User struct {
	ID       string
	Username string
	Email    string
	Name     Name

	// Verified mirrors the email-verified flag on the account record at
	// the time the snapshot was taken.
	Verified bool
}
