package canonical

// Hand-authored element records mirroring the shape internal/modelgen
// derives from the bundled MEI grammar fragment
// (internal/schema/grammars/mei.rng), with the Children variants
// unfolded into typed per-child fields for the representative subset.
// Not machine-generated: keep in step with the grammar by hand.

// Mei is the document root: one header plus one music body (spec.md
// §3.2, grounded on internal/schema/grammars/mei.rng's "mei" element).
type Mei struct {
	Identity
	Version  string
	MeiHead  *MeiHead
	Music    *Music
}

// MeiHead is the bibliographic header.
type MeiHead struct {
	Identity
	FileDesc *FileDesc
}

// FileDesc holds the title statement.
type FileDesc struct {
	Identity
	TitleStmt *TitleStmt
}

// TitleStmt is the title plus zero or more creators.
type TitleStmt struct {
	Identity
	Title    *Title
	Creators []*Creator
}

// Title is a work's title text.
type Title struct {
	Identity
	Text string
}

// Creator is a named contributor (composer, lyricist, arranger, ...);
// Role distinguishes MusicXML's separate <creator type="..."> elements
// and MEI's deprecated dedicated <composer>/<lyricist> elements after
// the version-migration pass folds them into this one shape (spec.md
// REDESIGN FLAGS).
type Creator struct {
	Identity
	Role string
	Name string
}

// Music wraps the performable content.
type Music struct {
	Identity
	Body *Body
}

// Body holds one or more movement divisions.
type Body struct {
	Identity
	Mdivs []*Mdiv
}

// Mdiv is a movement division: exactly one score, in the representative
// subset (MEI permits alternate scores per mdiv; out of scope per
// SPEC_FULL.md's schema-completeness decision).
type Mdiv struct {
	Identity
	Score *Score
}

// Score pairs a score definition (staff layout, initial key/meter) with
// the sectioned music content.
type Score struct {
	Identity
	ScoreDef *ScoreDef
	Sections []*Section
}

// ScoreDef is the initial layout/key/meter declaration for a score,
// composing the logical (key, meter) and visual (staff grouping)
// domains (spec.md §3.4).
type ScoreDef struct {
	Identity
	KeySig    KeySigAttrs
	MeterSig  MeterSigAttrs
	StaffGrps []*StaffGrp
}

// StaffGrp groups one or more staff definitions under a shared brace or
// bracket.
type StaffGrp struct {
	Identity
	StaffGrpAttrs
	StaffDefs []*StaffDef
}

// StaffDef declares one staff's number and clef within its group.
type StaffDef struct {
	Identity
	StaffDefAttrs
}

// Section is a contiguous run of measures; MEI permits nested sections,
// flattened in the representative subset (a supplement to revisit per
// DESIGN.md if source material exercises nesting).
type Section struct {
	Identity
	Measures []*Measure
}

// Measure is a single measure's content: one or more staves plus the
// control-event spanners (slurs, ties, tuplets, dynamics, harmony) and
// any critical-apparatus alternatives anchored within it. MEI's
// measure.content is unordered (an <interleave> of these kinds); the
// canonical record keeps that as a Children list tagged accordingly
// rather than separate ordered slices, matching what the schema loader
// reports for the element (internal/schema TestMEIMeasureContentIsUnordered).
type Measure struct {
	Identity
	N        int
	Children Children
}

// Staves returns a measure's staff children in document order.
func (m *Measure) Staves() []*Staff {
	var out []*Staff
	for _, c := range m.Children.ByTag(ChildStaff) {
		out = append(out, c.Staff)
	}
	return out
}

// Staff is one staff's content within a measure: one or more layers
// (voices).
type Staff struct {
	Identity
	N      int
	Layers []*Layer
}

// Layer is a single voice within a staff: an ordered sequence of
// note/rest/chord events.
type Layer struct {
	Identity
	N        int
	Children Children
}

// Events returns a layer's note/rest/chord children in document order.
func (l *Layer) Events() Children { return l.Children.Events() }

// Note is a single pitched or unpitched sounding event.
type Note struct {
	Identity
	NoteLogAttrs
	NoteGesAttrs
	HasGes bool
	Visual VisualHint
	Analytical AnalyticalPitch
}

// Rest is a silent event occupying a notated duration.
type Rest struct {
	Identity
	Dur      Duration
	StaffRef int
	HasStaff bool
}

// Chord is a vertical aggregate of notes sharing one duration and stem.
type Chord struct {
	Identity
	Dur   Duration
	Notes []*Note
}

// Slur is a logical-domain phrasing spanner between two events,
// identified by the endpoints' Identity.ID (spec.md §4.3 cross-
// reference closure).
type Slur struct {
	Identity
	StartID string
	EndID   string
	Visual  VisualHint
}

// Tie binds two notes of the same pitch into one sounding duration.
type Tie struct {
	Identity
	StartID string
	EndID   string
}

// TupletSpan marks an irregular rhythmic grouping (e.g. triplet) over a
// run of events: Num sounding in the space of NumBase.
type TupletSpan struct {
	Identity
	StartID string
	EndID   string
	Num     int
	NumBase int
}

// Dynam is a dynamics marking (e.g. "mf", "cresc.") anchored at a
// Timestamp within its measure — a gestural+analytical control event,
// not attached to a specific note (spec.md §3.4, §8.4 scenario 3).
type Dynam struct {
	Identity
	StartID   string
	Text      string
	Timestamp Timestamp
	HasTime   bool
}

// Harm is a harmonic/chord-symbol annotation; structured chord-symbol
// detail beyond Text lives in the Extension Store (spec.md §4.7),
// keyed by Identity.ID.
type Harm struct {
	Identity
	StartID   string
	Text      string
	Timestamp Timestamp
	HasTime   bool
}

// App is a critical-apparatus alternative reading site (spec.md §4.4):
// one or more lemma/variant readings anchored to the same location.
// The representative subset carries only <lem> (the editorially
// preferred reading); <rdg> variant readings are a documented DESIGN.md
// scope reduction.
type App struct {
	Identity
	Lemmata []*Lem
}

// Lem is one critical-apparatus lemma reading.
type Lem struct {
	Identity
	Text string
}
