package musicxml

import (
	"strconv"
	"strings"

	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/errs"
)

// detectVersion reads the root element's version attribute (MusicXML
// carries no prerelease-suffix convention like MEI's "-dev", so the
// comparison here is plain dotted-numeric, simpler than internal/mei's
// detectVersion) and checks it against opts.MusicXML's accepted window
// (spec.md §6.1).
func detectVersion(v string, vr config.VersionRange) (string, error) {
	if v == "" {
		v = "1.0" // MusicXML 1.x predates the version attribute
	}
	if compareDotted(v, vr.Floor) < 0 || compareDotted(v, vr.Ceiling) > 0 {
		return "", errs.VersionUnsupported("MusicXML", v)
	}
	return v, nil
}

func compareDotted(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
