// Package taxonomy is the static reference for endorsement categories.
//
// A category is an (archive, subject-class) pair drawn from a fixed table.
// Older archives are endorsed at the archive level and carry no subject
// class; the newer umbrella archives subdivide into subject classes.
// Categories compare by exact match only: an archive-level category never
// implies any of its subject classes.
package taxonomy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownCategory is returned by Parse for strings that do not name a
// category in the reference table.
var ErrUnknownCategory = errors.New("unknown category")

// Category identifies one endorsement scope. SubjectClass is empty for
// archive-level categories.
type Category struct {
	Archive      string
	SubjectClass string
}

// archiveLevel lists archives endorsed as a whole, without subject classes.
var archiveLevel = map[string]struct{}{
	"astro-ph": {},
	"cond-mat": {},
	"gr-qc":    {},
	"hep-ex":   {},
	"hep-lat":  {},
	"hep-ph":   {},
	"hep-th":   {},
	"math-ph":  {},
	"nlin":     {},
	"nucl-ex":  {},
	"nucl-th":  {},
	"physics":  {},
	"quant-ph": {},
}

// classed maps the subdivided archives to their subject classes.
var classed = map[string][]string{
	"cs": {
		"AI", "AR", "CC", "CE", "CG", "CL", "CR", "CV", "CY", "DB", "DC",
		"DL", "DM", "DS", "ET", "FL", "GL", "GR", "GT", "HC", "IR", "IT",
		"LG", "LO", "MA", "MM", "MS", "NA", "NE", "NI", "OH", "OS", "PF",
		"PL", "RO", "SC", "SD", "SE", "SI", "SY",
	},
	"econ": {"EM", "GN", "TH"},
	"eess": {"AS", "IV", "SP", "SY"},
	"math": {
		"AC", "AG", "AP", "AT", "CA", "CO", "CT", "CV", "DG", "DS", "FA",
		"GM", "GN", "GR", "GT", "HO", "IT", "KT", "LO", "MG", "MP", "NA",
		"NT", "OA", "OC", "PR", "QA", "RA", "RT", "SG", "SP", "ST",
	},
	"q-bio": {"BM", "CB", "GN", "MN", "NC", "OT", "PE", "QM", "SC", "TO"},
	"q-fin": {"CP", "EC", "GN", "MF", "PM", "PR", "RM", "ST", "TR"},
	"stat":  {"AP", "CO", "ME", "ML", "OT", "TH"},
}

var classedSets = func() map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(classed))
	for archive, classes := range classed {
		set := make(map[string]struct{}, len(classes))
		for _, sc := range classes {
			set[sc] = struct{}{}
		}
		sets[archive] = set
	}
	return sets
}()

// Valid reports whether the category appears in the reference table.
func (c Category) Valid() bool {
	if c.SubjectClass == "" {
		if _, ok := archiveLevel[c.Archive]; ok {
			return true
		}
		_, ok := classed[c.Archive]
		return ok
	}
	set, ok := classedSets[c.Archive]
	if !ok {
		return false
	}
	_, ok = set[c.SubjectClass]
	return ok
}

// String renders the canonical form: "archive.SC", or just "archive" for
// archive-level categories.
func (c Category) String() string {
	if c.SubjectClass == "" {
		return c.Archive
	}
	return c.Archive + "." + c.SubjectClass
}

// Parse converts a canonical category string back into a Category. It
// accepts only categories present in the reference table.
func Parse(s string) (Category, error) {
	var c Category
	if i := strings.IndexByte(s, '.'); i >= 0 {
		c = Category{Archive: s[:i], SubjectClass: s[i+1:]}
	} else {
		c = Category{Archive: s}
	}
	if !c.Valid() {
		return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Archives returns every archive name in the table, sorted.
func Archives() []string {
	names := make([]string, 0, len(archiveLevel)+len(classed))
	for a := range archiveLevel {
		names = append(names, a)
	}
	for a := range classed {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

// SubjectClasses returns the subject classes of an archive, sorted, or nil
// for archive-level archives and unknown names.
func SubjectClasses(archive string) []string {
	classes, ok := classed[archive]
	if !ok {
		return nil
	}
	out := make([]string, len(classes))
	copy(out, classes)
	sort.Strings(out)
	return out
}

// All enumerates every valid category, archive-level entries included.
func All() []Category {
	out := make([]Category, 0, 256)
	for _, a := range Archives() {
		out = append(out, Category{Archive: a})
		for _, sc := range SubjectClasses(a) {
			out = append(out, Category{Archive: a, SubjectClass: sc})
		}
	}
	return out
}
