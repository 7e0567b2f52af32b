// Package ids implements the identifier policy of spec.md §4.3: present
// identifiers are preserved verbatim, missing ones are assigned a short
// stable hash of (element kind, document-order index within the
// enclosing container, salient attributes), and a per-document index
// tracks uniqueness and resolves cross-references.
package ids

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/tusk-notation/tusk/internal/errs"
)

// Assigner produces deterministic identifiers for elements that arrive
// without one, and tracks every identifier seen in a document so that
// uniqueness and reference closure can be checked once import finishes.
type Assigner struct {
	seen       map[string]bool
	refs       []reference
	duplicates []string
}

type reference struct {
	referrer, referent, path string
}

func NewAssigner() *Assigner {
	return &Assigner{seen: make(map[string]bool)}
}

// Assign returns id verbatim if non-empty (after recording it), or a
// deterministic hash-derived identifier otherwise. kind is the element
// name (e.g. "note"), index is the zero-based document-order position
// within the nearest measure-or-equivalent container, and salient is an
// ordered list starting with the enclosing container's own identifier
// followed by the attributes that distinguish the element from its
// siblings (pitch, duration, staff, ...). The container identifier is
// what keeps the Nth C4 of one measure distinct from the Nth C4 of the
// next — index and attributes alone repeat across containers.
func (a *Assigner) Assign(id, kind string, index int, salient ...string) string {
	if id == "" {
		id = Derive(kind, index, salient...)
	}
	if a.seen[id] {
		a.duplicates = append(a.duplicates, id)
	}
	a.seen[id] = true
	return id
}

// Derive computes the deterministic identifier for an element with no
// source identifier. The hash is stable across runs: same kind, index,
// and salient attributes always produce the same short string, which is
// what lets export-then-reimport produce stable diffs (spec.md §4.3).
func Derive(kind string, index int, salient ...string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%d", kind, index)
	for _, s := range salient {
		fmt.Fprintf(h, "\x00%s", s)
	}
	return fmt.Sprintf("%s-%08x", kind, h.Sum64()&0xffffffff)
}

// RecordReference notes that an attribute on referrer (identified by
// its own id, for error paths) names referent as a cross-reference
// target. Closure is checked once the whole document has been walked,
// since forward references are common (a tie referencing a note later
// in the measure).
func (a *Assigner) RecordReference(referrerID, referent, path string) {
	a.refs = append(a.refs, reference{referrerID, referent, path})
}

// CheckClosure verifies that no identifier was assigned more than once
// (spec.md §3.2/§8.1 "Identifier uniqueness": "the set of identifiers
// carried by records is a set — no duplicates") and that every recorded
// reference resolves to an identifier seen somewhere in the document
// (spec.md §3.2 invariant "Cross-references ... resolve to an existing
// identifier"). Duplicate detection is reported first since a dangling
// reference found downstream of a duplicate id is often just a symptom
// of it.
func (a *Assigner) CheckClosure() error {
	if len(a.duplicates) > 0 {
		dup := a.duplicates[0]
		return errs.InvariantViolation(fmt.Sprintf("duplicate identifier %q", dup), dup)
	}
	for _, r := range a.refs {
		if !a.seen[r.referent] {
			return errs.UnresolvedReference(r.referrer, r.referent, r.path)
		}
	}
	return nil
}

// Seen reports whether id has been claimed by a prior Assign call.
func (a *Assigner) Seen(id string) bool {
	return a.seen[id]
}

// All returns every identifier recorded so far, sorted, for diagnostics
// and tests.
func (a *Assigner) All() []string {
	out := make([]string, 0, len(a.seen))
	for id := range a.seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
