package canonical

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tusk-notation/tusk/internal/errs"
)

// durationTable maps a logical notated duration symbol to its length in
// quarter notes, the shared currency between the logical and gestural
// domains (spec.md §3.4). Longest first so tie-breaking toward coarser
// symbols is deterministic in DurationFromParts.
var durationTable = []struct {
	symbol  string
	quarter string // decimal literal, parsed once at init
}{
	{"long", "16"}, {"breve", "8"}, {"whole", "4"}, {"half", "2"},
	{"quarter", "1"}, {"eighth", "0.5"}, {"16th", "0.25"},
	{"32nd", "0.125"}, {"64th", "0.0625"},
}

var durationQuarterLength map[string]decimal.Decimal

func init() {
	durationQuarterLength = make(map[string]decimal.Decimal, len(durationTable))
	for _, e := range durationTable {
		d, err := decimal.NewFromString(e.quarter)
		if err != nil {
			panic(err)
		}
		durationQuarterLength[e.symbol] = d
	}
}

// dottedLength returns base length multiplied by the standard
// augmentation-dot series (1 + 1/2 + 1/4 + ...).
func dottedLength(base decimal.Decimal, dots int) decimal.Decimal {
	total := base
	add := base
	for i := 0; i < dots; i++ {
		add = add.Div(decimal.NewFromInt(2))
		total = total.Add(add)
	}
	return total
}

// QuarterLength returns a logical Duration's length in quarter notes,
// the common unit used to derive a GesturalDuration (spec.md §3.4:
// "logical duration is a notated symbol... gestural duration is the
// performed duration").
func QuarterLength(d Duration) (decimal.Decimal, error) {
	base, ok := durationQuarterLength[d.Symbol]
	if !ok {
		return decimal.Zero, errs.New(errs.TranslationUnmappableKind, "", fmt.Sprintf("unknown duration symbol %q", d.Symbol))
	}
	return dottedLength(base, d.Dots), nil
}

// DurationToParts converts a logical Duration into a gestural
// parts-per-quarter value at the given divisions-per-quarter resolution
// (MusicXML's <divisions>, spec.md §8.2 scenario 1).
func DurationToParts(d Duration, divisionsPerQuarter int) (decimal.Decimal, error) {
	ql, err := QuarterLength(d)
	if err != nil {
		return decimal.Zero, err
	}
	return ql.Mul(decimal.NewFromInt(int64(divisionsPerQuarter))), nil
}

// DurationFromParts is the inverse: it snaps a gestural parts value
// back to the closest representable logical Duration, for formats like
// LilyPond that carry no native concept of "divisions" and need a
// symbolic duration on import (spec.md §8.3 scenario 2). ok is false
// when no supported symbol (with 0-2 dots) reproduces parts exactly.
func DurationFromParts(parts decimal.Decimal, divisionsPerQuarter int) (d Duration, ok bool) {
	if divisionsPerQuarter <= 0 {
		return Duration{}, false
	}
	ql := parts.Div(decimal.NewFromInt(int64(divisionsPerQuarter)))
	for _, e := range durationTable {
		base := durationQuarterLength[e.symbol]
		for dots := 0; dots <= 2; dots++ {
			if dottedLength(base, dots).Equal(ql) {
				return Duration{Symbol: e.symbol, Dots: dots}, true
			}
		}
	}
	return Duration{}, false
}

// Reference is one cross-reference from a control event to an anchor
// element, the unit internal/ids.CheckClosure validates (spec.md §4.3).
type Reference struct {
	ReferrerID string
	Referent   string
	Field      string // e.g. "startid", "endid"
}

// CrossReferences walks a score collecting every startid/endid-style
// reference so a caller can feed them to internal/ids.Assigner for
// closure checking before accepting an import.
func CrossReferences(score *Score) []Reference {
	var refs []Reference
	add := func(referrer, referent, field string) {
		if referent == "" {
			return
		}
		refs = append(refs, Reference{ReferrerID: referrer, Referent: referent, Field: field})
	}
	WalkMeasures(score, func(m *Measure) {
		for _, c := range m.Children {
			switch c.Tag {
			case ChildSlur:
				add(c.Slur.ID, c.Slur.StartID, "startid")
				add(c.Slur.ID, c.Slur.EndID, "endid")
			case ChildTie:
				add(c.Tie.ID, c.Tie.StartID, "startid")
				add(c.Tie.ID, c.Tie.EndID, "endid")
			case ChildTupletSpan:
				add(c.TupletSpan.ID, c.TupletSpan.StartID, "startid")
				add(c.TupletSpan.ID, c.TupletSpan.EndID, "endid")
			case ChildDynam:
				add(c.Dynam.ID, c.Dynam.StartID, "startid")
			case ChildHarm:
				add(c.Harm.ID, c.Harm.StartID, "startid")
			}
		}
	})
	return refs
}

// WalkMeasures calls fn for every measure in a score, in document
// order (section by section, then measure by measure within each).
func WalkMeasures(score *Score, fn func(*Measure)) {
	if score == nil {
		return
	}
	for _, sec := range score.Sections {
		for _, m := range sec.Measures {
			fn(m)
		}
	}
}

// WalkEvents calls fn for every note/rest/chord event in a score, in
// document order: section, measure, staff, layer.
func WalkEvents(score *Score, fn func(id string, c Child)) {
	WalkMeasures(score, func(m *Measure) {
		for _, staff := range m.Staves() {
			for _, layer := range staff.Layers {
				for _, ev := range layer.Events() {
					var id string
					switch ev.Tag {
					case ChildNote:
						id = ev.Note.ID
					case ChildRest:
						id = ev.Rest.ID
					case ChildChord:
						id = ev.Chord.ID
					}
					fn(id, ev)
				}
			}
		}
	})
}

// AllIdentifiers returns every element Identity.ID present in a score,
// in a deterministic sorted order, for diagnostics and for seeding a
// cross-reference closure check.
func AllIdentifiers(score *Score) []string {
	seen := map[string]bool{}
	if score.ID != "" {
		seen[score.ID] = true
	}
	if score.ScoreDef != nil {
		seen[score.ScoreDef.ID] = true
		for _, sg := range score.ScoreDef.StaffGrps {
			seen[sg.ID] = true
			for _, sd := range sg.StaffDefs {
				seen[sd.ID] = true
			}
		}
	}
	WalkMeasures(score, func(m *Measure) {
		seen[m.ID] = true
		for _, c := range m.Children {
			collectChildID(c, seen)
			if c.Tag == ChildStaff {
				for _, layer := range c.Staff.Layers {
					seen[layer.ID] = true
					for _, ev := range layer.Events() {
						collectChildID(ev, seen)
					}
				}
			}
		}
	})
	out := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func collectChildID(c Child, seen map[string]bool) {
	switch c.Tag {
	case ChildStaff:
		seen[c.Staff.ID] = true
	case ChildNote:
		seen[c.Note.ID] = true
	case ChildRest:
		seen[c.Rest.ID] = true
	case ChildChord:
		seen[c.Chord.ID] = true
		for _, n := range c.Chord.Notes {
			seen[n.ID] = true
		}
	case ChildSlur:
		seen[c.Slur.ID] = true
	case ChildTie:
		seen[c.Tie.ID] = true
	case ChildTupletSpan:
		seen[c.TupletSpan.ID] = true
	case ChildDynam:
		seen[c.Dynam.ID] = true
	case ChildHarm:
		seen[c.Harm.ID] = true
	case ChildApp:
		seen[c.App.ID] = true
		for _, lem := range c.App.Lemmata {
			seen[lem.ID] = true
		}
	}
}
