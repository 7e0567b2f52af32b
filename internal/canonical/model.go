// Package canonical holds the canonical in-memory model (spec.md §3.2):
// the MEI-shaped element records, plus the
// hand-written glue that composes them — the Children tagged-variant
// list, element Identity, and the four translation domains of spec.md
// §3.4. This file (model.go) is hand-written glue; the per-element
// record types in elements.go are hand-authored to mirror the shape
// the Model Generator (internal/modelgen) derives from the
// representative grammar subset documented in SPEC_FULL.md §3.
package canonical

import "github.com/shopspring/decimal"

// Identity is the element's unique identifier (present-in-source or
// deterministically assigned, spec.md §4.3).
type Identity struct {
	ID string

	// Assigned is true when ID was deterministically derived rather
	// than read from source, letting an exporter decide to drop it if
	// nothing cross-references it (spec.md §4.3 "Policy").
	Assigned bool
}

// Domain tags which of the four MEI translation domains (spec.md §3.4)
// a value belongs to. Canonical fields live in exactly one domain
// implicitly by their type (Duration vs GesturalDuration, NoteLogAttrs
// vs NoteGesAttrs); no canonical record carries a Domain field.
type Domain int

const (
	Logical Domain = iota
	Visual
	Gestural
	Analytical
)

func (d Domain) String() string {
	switch d {
	case Logical:
		return "logical"
	case Visual:
		return "visual"
	case Gestural:
		return "gestural"
	case Analytical:
		return "analytical"
	default:
		return "unknown"
	}
}

// Pitch is the logical-domain notated pitch: diatonic step name,
// octave, and accidental. Present whenever a note or chord-member has
// a notated pitch (rests and unpitched percussion omit it).
type Pitch struct {
	Step       string // "C".."B"
	Octave     int
	Accidental string // "", "s" (sharp), "f" (flat), "ss", "ff", "n" (natural)
}

// AnalyticalPitch is the analytical-domain interpretation of a pitch:
// pitch class (0-11) and scale-degree function, populated only when an
// importer or a downstream analysis pass derives it.
type AnalyticalPitch struct {
	PitchClass int
	HasClass   bool
	Function   string // e.g. "tonic", "dominant" - empty if not analyzed
}

// Duration is the logical-domain notated duration: the symbolic value
// (whole/half/quarter/eighth/16th/32nd/...) plus augmentation dots.
type Duration struct {
	Symbol string
	Dots   int
}

// GesturalDuration is the performed duration in parts-per-quarter
// (spec.md §3.4), a rational value to avoid drift when accumulating a
// running cursor across measures with awkward divisions (spec.md §9).
type GesturalDuration struct {
	PartsPerQuarter decimal.Decimal
	Has             bool
}

// VisualHint carries rendering-domain information common to many
// elements: placement, color, and pixel-ish offset, matching MEI's
// visual-domain attribute class.
type VisualHint struct {
	Placement string // "above" | "below" | ""
	Color     string
	OffsetX   decimal.Decimal
	OffsetY   decimal.Decimal
	HasOffset bool
}

// Timestamp anchors a control event to a position within a measure:
// a rational number of quarter notes from the downbeat (spec.md §9,
// Glossary "Timestamp").
type Timestamp struct {
	QuarterNotesFromDownbeat decimal.Decimal
}

// ChildTag discriminates the tagged-variant Children list (spec.md
// §3.2, §9 "large closed sum types"). One tag per permitted child-
// element kind; the generator would emit one constant per schema
// element name that appears as someone's child.
type ChildTag int

const (
	ChildText ChildTag = iota
	ChildMeiHead
	ChildMusic
	ChildBody
	ChildMdiv
	ChildScore
	ChildScoreDef
	ChildStaffGrp
	ChildStaffDef
	ChildSection
	ChildMeasure
	ChildStaff
	ChildLayer
	ChildNote
	ChildRest
	ChildChord
	ChildSlur
	ChildTie
	ChildTupletSpan
	ChildDynam
	ChildHarm
	ChildApp
	ChildLem
	ChildTitle
	ChildCreator
	ChildFileDesc
	ChildTitleStmt
)

func (t ChildTag) String() string {
	names := map[ChildTag]string{
		ChildText: "text", ChildMeiHead: "meiHead", ChildMusic: "music",
		ChildBody: "body", ChildMdiv: "mdiv", ChildScore: "score",
		ChildScoreDef: "scoreDef", ChildStaffGrp: "staffGrp", ChildStaffDef: "staffDef",
		ChildSection: "section", ChildMeasure: "measure", ChildStaff: "staff",
		ChildLayer: "layer", ChildNote: "note", ChildRest: "rest", ChildChord: "chord",
		ChildSlur: "slur", ChildTie: "tie", ChildTupletSpan: "tupletSpan",
		ChildDynam: "dynam", ChildHarm: "harm", ChildApp: "app", ChildLem: "lem",
		ChildTitle: "title", ChildCreator: "creator", ChildFileDesc: "fileDesc",
		ChildTitleStmt: "titleStmt",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Child is one entry in a Children list: the tag discriminates which
// of the pointer fields is populated. Exactly one non-nil field (or,
// for ChildText, a non-empty Text) is expected per entry; this mirrors
// the generator's "one tag per permitted child-element kind" output
// (spec.md §4.2) without resorting to inheritance over element kinds
// (spec.md §9).
type Child struct {
	Tag ChildTag

	Text string

	MeiHead   *MeiHead
	Music     *Music
	Body      *Body
	Mdiv      *Mdiv
	Score     *Score
	ScoreDef  *ScoreDef
	StaffGrp  *StaffGrp
	StaffDef  *StaffDef
	Section   *Section
	Measure   *Measure
	Staff     *Staff
	Layer     *Layer
	Note      *Note
	Rest      *Rest
	Chord     *Chord
	Slur      *Slur
	Tie       *Tie
	TupletSpan *TupletSpan
	Dynam     *Dynam
	Harm      *Harm
	App       *App
	Lem       *Lem
	Title     *Title
	Creator   *Creator
	FileDesc  *FileDesc
	TitleStmt *TitleStmt
}

// Children is the ordered tagged-variant list. Order is preserved on
// import so source order can be reproduced on output where the schema
// is order-sensitive; an adapter decides whether order is significant
// for a given parent (spec.md §3.2).
type Children []Child

// ByTag returns every child with the given tag, in document order.
func (c Children) ByTag(tag ChildTag) []Child {
	var out []Child
	for _, ch := range c {
		if ch.Tag == tag {
			out = append(out, ch)
		}
	}
	return out
}

// Events returns every note/rest/chord child in document order, the
// common case for a staff layer.
func (c Children) Events() Children {
	var out Children
	for _, ch := range c {
		switch ch.Tag {
		case ChildNote, ChildRest, ChildChord:
			out = append(out, ch)
		}
	}
	return out
}
