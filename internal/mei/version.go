package mei

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/errs"
	"github.com/tusk-notation/tusk/internal/xmlcompare"
)

// detectVersion reads the root element's meiversion attribute and
// checks it against the accepted floor/ceiling (spec.md §4.4 "a
// version detector inspects the root element's version attribute").
func detectVersion(root *xmlcompare.Node, vr config.VersionRange) (string, error) {
	v, ok := root.Attr("meiversion")
	if !ok || v == "" {
		return "", errs.VersionUnsupported("MEI", "(missing meiversion)")
	}
	if !versionAtLeast(v, vr.Floor) || !versionAtMost(v, vr.Ceiling) {
		return "", errs.VersionUnsupported("MEI", v)
	}
	return v, nil
}

// versionParts splits a dotted version string into numeric components,
// returning any non-numeric suffix (e.g. "-dev" in "6.0-dev")
// separately; compareVersions sorts a suffixed version below the plain
// release sharing its numeric prefix.
func versionParts(v string) (nums []int, suffix string) {
	base := v
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		base, suffix = v[:i], v[i:]
	}
	for _, part := range strings.Split(base, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			n = 0
		}
		nums = append(nums, n)
	}
	return nums, suffix
}

// compareVersions returns -1, 0, 1 as a compares below, equal to, or
// above b. A suffixed version (a "-dev" prerelease) sorts below
// the plain release sharing its numeric prefix.
func compareVersions(a, b string) int {
	na, sa := versionParts(a)
	nb, sb := versionParts(b)
	for i := 0; i < len(na) || i < len(nb); i++ {
		var x, y int
		if i < len(na) {
			x = na[i]
		}
		if i < len(nb) {
			y = nb[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	switch {
	case sa == sb:
		return 0
	case sa == "":
		return 1
	case sb == "":
		return -1
	case sa < sb:
		return -1
	default:
		return 1
	}
}

func versionAtLeast(v, floor string) bool { return compareVersions(v, floor) >= 0 }
func versionAtMost(v, ceiling string) bool { return compareVersions(v, ceiling) <= 0 }

// legacyRoleElements maps a deprecated pre-canonical MEI element name
// to the creator role it denotes once folded into a generic <creator>
// (spec.md §4.4: "personal roles such as composer and lyricist were
// element names; in the canonical version, they are roles carried by
// a generic creator element").
var legacyRoleElements = map[string]string{
	"composer": "composer",
	"lyricist": "lyricist",
	"arranger": "arranger",
	"editor":   "editor",
}

// migrate rewrites deprecated element names in place wherever they
// occur in the tree (the importer reads them only under titleStmt),
// folding <composer>Name</composer> into <creator role="composer">Name</creator>.
// It operates on the raw tree before canonical construction so the
// rest of the importer only ever sees the canonical vocabulary.
func migrate(root *xmlcompare.Node) {
	walkMigrate(root)
}

func walkMigrate(n *xmlcompare.Node) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		if role, ok := legacyRoleElements[c.Local]; ok {
			c.Local = "creator"
			c.Attrs = append(c.Attrs, xml.Attr{Name: xml.Name{Local: "role"}, Value: role})
		}
		walkMigrate(c)
	}
}
