package lilypond

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/extension"
)

// durationTokens is the export-side inverse of durationSymbols.
var durationTokens = map[string]string{
	"whole": "1", "half": "2", "quarter": "4", "eighth": "8",
	"16th": "16", "32nd": "32", "64th": "64",
}

// Export serializes the canonical model to LilyPond source (spec.md
// §4.6): one voice per canonical layer, relative-octave compression
// against the previous pitch, and omission of a duration repeated
// unchanged from the previous note. Constructs this adapter cannot
// express canonically (scheme overrides, unrecognized music functions)
// are not re-emitted: import keeps them as LilyPondOpaque entries in the
// Extension Store, but Export does not read those entries.
func Export(doc *canonical.Mei, store *extension.Store, opts config.ConversionOptions) ([]byte, error) {
	var buf bytes.Buffer
	version := opts.LilyPondTargetVersion
	if version == "" {
		version = "2.24.0"
	}
	fmt.Fprintf(&buf, "\\version %q\n\n", version)

	title, composer := "", ""
	if doc.MeiHead != nil && doc.MeiHead.FileDesc != nil && doc.MeiHead.FileDesc.TitleStmt != nil {
		ts := doc.MeiHead.FileDesc.TitleStmt
		if ts.Title != nil {
			title = ts.Title.Text
		}
		for _, c := range ts.Creators {
			if c.Role == "composer" {
				composer = c.Name
			}
		}
	}
	// The header lives inside the \score block so a re-import finds it
	// on the score it annotates.
	writeHeader := func() {
		if title == "" && composer == "" {
			return
		}
		buf.WriteString("  \\header {\n")
		if title != "" {
			fmt.Fprintf(&buf, "    title = %q\n", title)
		}
		if composer != "" {
			fmt.Fprintf(&buf, "    composer = %q\n", composer)
		}
		buf.WriteString("  }\n")
	}

	if doc.Music == nil || doc.Music.Body == nil || len(doc.Music.Body.Mdivs) == 0 {
		buf.WriteString("\\score {\n")
		writeHeader()
		buf.WriteString("  {\n  }\n}\n")
		return buf.Bytes(), nil
	}
	score := doc.Music.Body.Mdivs[0].Score
	sp := computeSpans(score)

	buf.WriteString("\\score {\n")
	writeHeader()
	if err := exportScoreBody(&buf, score, sp, store); err != nil {
		return nil, err
	}
	buf.WriteString("  \\layout { }\n}\n")
	return buf.Bytes(), nil
}

type spanInfo struct {
	slurStart, slurEnd                     map[string]bool
	tieStart, tieEnd                       map[string]bool
	tupletStart, tupletEnd                 map[string]bool
	tupletNum, tupletDenom                 map[string]int
	dynamAt                                map[string][]*canonical.Dynam
}

func computeSpans(score *canonical.Score) *spanInfo {
	sp := &spanInfo{
		slurStart: map[string]bool{}, slurEnd: map[string]bool{},
		tieStart: map[string]bool{}, tieEnd: map[string]bool{},
		tupletStart: map[string]bool{}, tupletEnd: map[string]bool{},
		tupletNum: map[string]int{}, tupletDenom: map[string]int{},
		dynamAt: map[string][]*canonical.Dynam{},
	}
	if len(score.Sections) == 0 {
		return sp
	}
	for _, m := range score.Sections[0].Measures {
		for _, c := range m.Children {
			switch c.Tag {
			case canonical.ChildSlur:
				sp.slurStart[c.Slur.StartID] = true
				sp.slurEnd[c.Slur.EndID] = true
			case canonical.ChildTie:
				sp.tieStart[c.Tie.StartID] = true
				sp.tieEnd[c.Tie.EndID] = true
			case canonical.ChildTupletSpan:
				sp.tupletStart[c.TupletSpan.StartID] = true
				sp.tupletEnd[c.TupletSpan.EndID] = true
				sp.tupletNum[c.TupletSpan.StartID] = c.TupletSpan.Num
				sp.tupletDenom[c.TupletSpan.StartID] = c.TupletSpan.NumBase
			case canonical.ChildDynam:
				if c.Dynam.StartID != "" {
					sp.dynamAt[c.Dynam.StartID] = append(sp.dynamAt[c.Dynam.StartID], c.Dynam)
				}
			}
		}
	}
	return sp
}

func exportScoreBody(buf *bytes.Buffer, score *canonical.Score, sp *spanInfo, store *extension.Store) error {
	if score.ScoreDef == nil || len(score.ScoreDef.StaffGrps) == 0 || len(score.ScoreDef.StaffGrps[0].StaffDefs) == 0 {
		buf.WriteString("  {\n  }\n")
		return nil
	}
	staffDefs := score.ScoreDef.StaffGrps[0].StaffDefs
	multi := len(staffDefs) > 1
	if multi {
		buf.WriteString("  <<\n")
	}
	// Each voice is wrapped in \relative c' so the compressed octave
	// marks read back to the same absolute pitches: the export state
	// starts at C4, exactly where \relative c' starts a re-import.
	for _, sd := range staffDefs {
		if multi {
			buf.WriteString("    \\new Staff \\relative c' {\n")
		} else {
			buf.WriteString("  \\relative c' {\n")
		}
		es := &exportState{prevOctave: 4, lastDuration: "", lastDots: -1}
		writeVoice(buf, score, sd.N, sp, store, es, multi)
		if multi {
			buf.WriteString("    }\n")
		} else {
			buf.WriteString("  }\n")
		}
	}
	if multi {
		buf.WriteString("  >>\n")
	}
	return nil
}

type exportState struct {
	prevOctave     int
	prevLetterIdx  int
	lastDuration   string
	lastDots       int
}

func writeVoice(buf *bytes.Buffer, score *canonical.Score, staffN int, sp *spanInfo, store *extension.Store, es *exportState, indent bool) {
	prefix := "    "
	if indent {
		prefix = "      "
	}
	if len(score.Sections) == 0 {
		return
	}
	for _, m := range score.Sections[0].Measures {
		var staff *canonical.Staff
		for _, s := range m.Staves() {
			if s.N == staffN {
				staff = s
				break
			}
		}
		if staff == nil || len(staff.Layers) == 0 {
			continue
		}
		buf.WriteString(prefix)
		if extras, ok := store.Barline(m.ID); ok && extras.RepeatDir == "forward" {
			buf.WriteString("\\bar \"|:\" ")
		}
		events := staff.Layers[0].Events()
		inTuplet := false
		for _, ev := range events {
			switch ev.Tag {
			case canonical.ChildNote:
				n := ev.Note
				if !inTuplet && sp.tupletStart[n.ID] {
					num, denom := sp.tupletNum[n.ID], sp.tupletDenom[n.ID]
					if denom == 0 {
						denom = 1
					}
					fmt.Fprintf(buf, "\\tuplet %d/%d { ", num, denom)
					inTuplet = true
				}
				writeNote(buf, n, es, sp)
			case canonical.ChildRest:
				writeRest(buf, ev.Rest, es)
			case canonical.ChildChord:
				writeChord(buf, ev.Chord, es)
			}
			if inTuplet {
				if id := eventID(ev); sp.tupletEnd[id] {
					buf.WriteString("} ")
					inTuplet = false
				}
			}
		}
		if extras, ok := store.Barline(m.ID); ok && extras.RepeatDir == "backward" {
			buf.WriteString("\\bar \":|\" ")
		}
		buf.WriteString("|\n")
	}
}

func eventID(c canonical.Child) string {
	switch c.Tag {
	case canonical.ChildNote:
		return c.Note.ID
	case canonical.ChildRest:
		return c.Rest.ID
	case canonical.ChildChord:
		if len(c.Chord.Notes) > 0 {
			return c.Chord.Notes[0].ID
		}
	}
	return ""
}

// pitchToken renders step+accidental+octave-marks in LilyPond's own
// spelling, applying relative-octave compression: marks are emitted
// only for the distance beyond the octave nearest the previous pitch.
func pitchToken(p canonical.Pitch, es *exportState) string {
	letter := letterIndex(p.Step)
	prevAbs := es.prevOctave*7 + es.prevLetterIdx
	nearest := es.prevOctave
	nearestDist := 1 << 30
	for _, cand := range []int{es.prevOctave - 1, es.prevOctave, es.prevOctave + 1} {
		abs := cand*7 + letter
		dist := abs - prevAbs
		if dist < 0 {
			dist = -dist
		}
		if dist < nearestDist {
			nearestDist = dist
			nearest = cand
		}
	}
	markCount := p.Octave - nearest
	es.prevOctave = p.Octave
	es.prevLetterIdx = letter

	var b strings.Builder
	b.WriteString(strings.ToLower(p.Step))
	switch p.Accidental {
	case "s":
		b.WriteString("is")
	case "ss":
		b.WriteString("isis")
	case "f":
		b.WriteString("es")
	case "ff":
		b.WriteString("eses")
	}
	if markCount > 0 {
		b.WriteString(strings.Repeat("'", markCount))
	} else if markCount < 0 {
		b.WriteString(strings.Repeat(",", -markCount))
	}
	return b.String()
}

func durationSuffix(dur canonical.Duration, es *exportState) string {
	tok, ok := durationTokens[dur.Symbol]
	if !ok {
		tok = "4"
	}
	var b strings.Builder
	if tok != es.lastDuration || dur.Dots != es.lastDots {
		b.WriteString(tok)
	}
	b.WriteString(strings.Repeat(".", dur.Dots))
	es.lastDuration = tok
	es.lastDots = dur.Dots
	return b.String()
}

func writeNote(buf *bytes.Buffer, n *canonical.Note, es *exportState, sp *spanInfo) {
	buf.WriteString(pitchToken(n.Pitch, es))
	buf.WriteString(durationSuffix(n.NoteLogAttrs.Dur, es))
	if sp.tieStart[n.ID] {
		buf.WriteString("~")
	}
	if sp.slurStart[n.ID] {
		buf.WriteString("(")
	}
	if sp.slurEnd[n.ID] {
		buf.WriteString(")")
	}
	for _, d := range sp.dynamAt[n.ID] {
		fmt.Fprintf(buf, "\\%s", d.Text)
	}
	buf.WriteString(" ")
}

func writeRest(buf *bytes.Buffer, r *canonical.Rest, es *exportState) {
	buf.WriteString("r")
	buf.WriteString(durationSuffix(r.Dur, es))
	buf.WriteString(" ")
}

func writeChord(buf *bytes.Buffer, c *canonical.Chord, es *exportState) {
	buf.WriteString("<")
	for i, n := range c.Notes {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(pitchToken(n.Pitch, es))
	}
	buf.WriteString(">")
	buf.WriteString(durationSuffix(c.Dur, es))
	buf.WriteString(" ")
}
