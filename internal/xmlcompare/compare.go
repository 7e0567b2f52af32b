package xmlcompare

import (
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Options configures what the comparator tolerates, per spec.md §4.8.
type Options struct {
	// NameAliases maps a version-migrated element name to the name it
	// should be treated as equivalent to (e.g. a deprecated "composer"
	// element folded into "creator" by internal/mei's migration pass).
	NameAliases map[string]string

	// Defaults maps "elementLocal/attrName" to the attribute's schema
	// default value: an attribute present with its default value on one
	// side and absent on the other compares equal.
	Defaults map[string]string

	// Unordered names elements whose children the schema allows in any
	// interleaving (internal/schema.Schema.UnorderedGroups); the
	// comparator pairs their children by fingerprint instead of by
	// position.
	Unordered map[string]bool
}

// Diff is one point of structural disagreement, path-qualified for a
// human-readable report.
type Diff struct {
	Path    string
	Message string
}

func (d Diff) String() string { return fmt.Sprintf("%s: %s", d.Path, d.Message) }

// Equivalent reports whether a and b are structurally equivalent under
// opts, and every point of disagreement found (empty when equivalent).
func Equivalent(a, b *Node, opts Options) (bool, []Diff) {
	diffs := walk("/"+canonicalName(a, opts), a, b, opts)
	return len(diffs) == 0, diffs
}

func canonicalName(n *Node, opts Options) string {
	if n == nil {
		return ""
	}
	if alias, ok := opts.NameAliases[n.Local]; ok {
		return alias
	}
	return n.Local
}

func walk(path string, a, b *Node, opts Options) []Diff {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Diff{{Path: path, Message: "element present on only one side"}}
	}
	var diffs []Diff
	nameA, nameB := canonicalName(a, opts), canonicalName(b, opts)
	if nameA != nameB {
		return []Diff{{Path: path, Message: fmt.Sprintf("element name mismatch: %q vs %q", nameA, nameB)}}
	}

	diffs = append(diffs, compareAttrs(path, nameA, a.Attrs, b.Attrs, opts)...)

	if textDiffer(a.Text, b.Text) {
		diffs = append(diffs, Diff{Path: path, Message: fmt.Sprintf("text mismatch: %q vs %q", strings.TrimSpace(a.Text), strings.TrimSpace(b.Text))})
	}

	if opts.Unordered[nameA] {
		diffs = append(diffs, compareUnorderedChildren(path, a.Children, b.Children, opts)...)
	} else {
		diffs = append(diffs, compareOrderedChildren(path, a.Children, b.Children, opts)...)
	}
	return diffs
}

func textDiffer(a, b string) bool {
	return strings.Join(strings.Fields(a), " ") != strings.Join(strings.Fields(b), " ")
}

func compareOrderedChildren(path string, as, bs []*Node, opts Options) []Diff {
	var diffs []Diff
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var ca, cb *Node
		if i < len(as) {
			ca = as[i]
		}
		if i < len(bs) {
			cb = bs[i]
		}
		childPath := fmt.Sprintf("%s[%d]", path, i)
		if ca != nil {
			childPath = fmt.Sprintf("%s/%s[%d]", path, canonicalName(ca, opts), i)
		} else if cb != nil {
			childPath = fmt.Sprintf("%s/%s[%d]", path, canonicalName(cb, opts), i)
		}
		diffs = append(diffs, walk(childPath, ca, cb, opts)...)
	}
	return diffs
}

// compareUnorderedChildren pairs children by a structural fingerprint
// (element name plus attribute multiset) rather than position, per
// spec.md §4.8's requirement to tolerate any interleaving the schema's
// UnorderedGroups records for this parent.
func compareUnorderedChildren(path string, as, bs []*Node, opts Options) []Diff {
	if len(as) != len(bs) {
		return []Diff{{Path: path, Message: fmt.Sprintf("child count mismatch: %d vs %d", len(as), len(bs))}}
	}
	remaining := append([]*Node(nil), bs...)
	var diffs []Diff
	for _, ca := range as {
		fp := fingerprint(ca, opts)
		bestIdx := -1
		for i, cb := range remaining {
			if fingerprint(cb, opts) == fp {
				bestIdx = i
				break
			}
		}
		if bestIdx == -1 {
			diffs = append(diffs, Diff{Path: path, Message: fmt.Sprintf("no matching unordered sibling for %q", canonicalName(ca, opts))})
			continue
		}
		cb := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		childPath := fmt.Sprintf("%s/%s", path, canonicalName(ca, opts))
		diffs = append(diffs, walk(childPath, ca, cb, opts)...)
	}
	return diffs
}

// fingerprint is a stable, comparable key for pairing unordered
// siblings: element name plus its sorted attribute name=value pairs.
// It deliberately ignores children, so two elements differing only in
// deeply nested content but sharing shallow identity still pair up
// (the recursive walk then reports the real diff at the right depth
// instead of misreporting a "no matching sibling").
func fingerprint(n *Node, opts Options) string {
	var b strings.Builder
	b.WriteString(canonicalName(n, opts))
	var attrs []xmlAttrPair
	for _, a := range n.Attrs {
		attrs = append(attrs, xmlAttrPair{a.Name.Local, a.Value})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].name < attrs[j].name })
	for _, a := range attrs {
		b.WriteString(";")
		b.WriteString(a.name)
		b.WriteString("=")
		b.WriteString(a.value)
	}
	return b.String()
}

type xmlAttrPair struct{ name, value string }

// compareAttrs compares two elements' attribute sets order-
// insensitively, treating an attribute present-with-its-schema-default
// on one side and absent on the other as equal, and comparing
// numeric-looking values via google/go-cmp with a float tolerance so
// "1" and "1.0" (or "0.3333" and a recomputed "0.333300") agree.
func compareAttrs(path, elementName string, as, bs []xml.Attr, opts Options) []Diff {
	am := attrMap(as)
	bm := attrMap(bs)

	names := map[string]bool{}
	for n := range am {
		names[n] = true
	}
	for n := range bm {
		names[n] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var diffs []Diff
	for _, name := range sorted {
		va, oka := am[name]
		vb, okb := bm[name]
		def, hasDefault := opts.Defaults[elementName+"/"+name]

		switch {
		case oka && okb:
			if !valuesEquivalent(va, vb) {
				diffs = append(diffs, Diff{Path: path, Message: fmt.Sprintf("attribute %q mismatch: %q vs %q", name, va, vb)})
			}
		case oka && !okb:
			if !(hasDefault && valuesEquivalent(va, def)) {
				diffs = append(diffs, Diff{Path: path, Message: fmt.Sprintf("attribute %q present only on first side (%q)", name, va)})
			}
		case !oka && okb:
			if !(hasDefault && valuesEquivalent(vb, def)) {
				diffs = append(diffs, Diff{Path: path, Message: fmt.Sprintf("attribute %q present only on second side (%q)", name, vb)})
			}
		}
	}
	return diffs
}

func attrMap(attrs []xml.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		out[a.Name.Local] = a.Value
	}
	return out
}

func valuesEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	fa, erra := strconv.ParseFloat(a, 64)
	fb, errb := strconv.ParseFloat(b, 64)
	if erra == nil && errb == nil {
		return cmp.Equal(fa, fb, cmp.Comparer(func(x, y float64) bool {
			return math.Abs(x-y) < 1e-9
		}))
	}
	return false
}
