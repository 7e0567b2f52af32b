package canonical

// Hand-authored attribute-group composites mirroring the groups the
// bundled MEI grammar fragment (internal/schema/grammars/mei.rng)
// declares. Not machine-generated: keep in step with the grammar by
// hand.

// NoteLogAttrs is the logical-domain face of a note: notated pitch,
// duration, and the attributes that are read the same way regardless
// of how the note is performed.
type NoteLogAttrs struct {
	Pitch    Pitch
	Dur      Duration
	Accid    string // redundant cautionary accidental, distinct from Pitch.Accidental
	StaffRef int    // 0 means "inherit from enclosing staff"
	HasStaff bool
}

// NoteGesAttrs is the gestural-domain face of a note: the performed
// duration and an optional MIDI-like velocity, populated only when the
// source format carries performance detail (spec.md §3.4).
type NoteGesAttrs struct {
	Dur      GesturalDuration
	Velocity int
	HasVel   bool
}

// StaffGrpAttrs holds the visual grouping attributes of a staff-group:
// the brace/bracket symbol tying its staves together.
type StaffGrpAttrs struct {
	Symbol string // "brace" | "bracket" | "line" | ""
}

// StaffDefAttrs holds a staff-definition's identity within its group
// and its clef, composed from ClefAttrs.
type StaffDefAttrs struct {
	N    int
	Clef ClefAttrs
}

// ClefAttrs is the logical+visual clef description: shape and staff
// line it sits on.
type ClefAttrs struct {
	Shape string // "G" | "F" | "C" | "percussion"
	Line  int
	Has   bool
}

// KeySigAttrs is the key signature as a signed count of sharps/flats
// (negative = flats), the MEI convention.
type KeySigAttrs struct {
	Accidentals int
	Has         bool
}

// MeterSigAttrs is the time signature as count-over-unit, matching
// MEI's meter.count/meter.unit pair.
type MeterSigAttrs struct {
	Count int
	Unit  int
	Has   bool
}
