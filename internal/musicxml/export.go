package musicxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/xmlcompare"
)

// exportDivisionsPerQuarter is the fixed resolution every export uses,
// chosen to represent whole through 16th notes with up to two
// augmentation dots as an exact integer duration (spec.md §4.5 point
// 1's inverse: performed duration -> MusicXML divisions).
const exportDivisionsPerQuarter = 16

type attr struct{ name, value string }

func newNode(local string, attrs []attr, children ...*xmlcompare.Node) *xmlcompare.Node {
	n := &xmlcompare.Node{Local: local}
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: a.name}, Value: a.value})
	}
	n.Children = children
	return n
}

func textNode(local, value string) *xmlcompare.Node {
	return &xmlcompare.Node{Local: local, Text: value}
}

// Export renders the canonical model as a MusicXML partwise document,
// consulting the Extension Store for each anchor identifier to recover
// source-format detail when present (spec.md §4.5 "Export").
func Export(doc *canonical.Mei, store *extension.Store, opts config.ConversionOptions) ([]byte, error) {
	root := newNode("score-partwise", []attr{{"version", config.CanonicalMusicXMLVersion}})

	if doc.MeiHead != nil {
		exportHead(root, doc.MeiHead, store)
	}

	if doc.Music != nil && doc.Music.Body != nil {
		for _, mdiv := range doc.Music.Body.Mdivs {
			if mdiv.Score == nil {
				continue
			}
			exportScore(root, mdiv.Score, store)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	writeNode(&buf, root, 0)
	return buf.Bytes(), nil
}

func exportHead(root *xmlcompare.Node, head *canonical.MeiHead, store *extension.Store) {
	if head.FileDesc == nil || head.FileDesc.TitleStmt == nil {
		return
	}
	ts := head.FileDesc.TitleStmt
	if ts.Title != nil {
		root.Children = append(root.Children, textNode("movement-title", ts.Title.Text))
	}

	var identChildren []*xmlcompare.Node
	for _, cr := range ts.Creators {
		c := newNode("creator", []attr{{"type", cr.Role}})
		c.Text = cr.Name
		identChildren = append(identChildren, c)
	}
	if idData, ok := store.Identification(head.ID); ok {
		types := make([]string, 0, len(idData.CreatorTypes))
		for typ := range idData.CreatorTypes {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			c := newNode("creator", []attr{{"type", typ}})
			c.Text = idData.CreatorTypes[typ]
			identChildren = append(identChildren, c)
		}
		if idData.Rights != "" {
			identChildren = append(identChildren, textNode("rights", idData.Rights))
		}
	}
	if len(identChildren) > 0 {
		root.Children = append(root.Children, &xmlcompare.Node{Local: "identification", Children: identChildren})
	}

	for i := 0; ; i++ {
		entries := store.Credits(fmt.Sprintf("%s-%d", head.ID, i))
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			words := newNode("credit-words", []attr{
				{"default-x", formatFloatIf(entry.X, entry.HasXY)},
				{"default-y", formatFloatIf(entry.Y, entry.HasXY)},
			})
			words.Text = entry.Words
			credit := newNode("credit", []attr{{"credit-type", entry.Type}}, words)
			root.Children = append(root.Children, credit)
		}
	}
}

func formatFloatIf(v float64, has bool) string {
	if !has {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func exportScore(root *xmlcompare.Node, score *canonical.Score, store *extension.Store) {
	// Span maps are computed up front, before any structural early-out,
	// because computeSpanMaps is also where untranslatable content
	// (critical apparatus) is counted into the loss report: a document
	// with no scoreDef still has its losses tallied.
	var measures []*canonical.Measure
	if len(score.Sections) > 0 {
		measures = score.Sections[0].Measures
	}
	spanMaps := make([]measureSpanMaps, len(measures))
	for mi, m := range measures {
		spanMaps[mi] = computeSpanMaps(m, store)
	}

	if score.ScoreDef == nil {
		return
	}
	// Part names are read on import but the canonical StaffGrp has no
	// name slot to carry them back out, so export always synthesizes
	// "Part N" (a documented scope reduction, not an importer bug).
	grps := score.ScoreDef.StaffGrps
	scoreParts := make([]*xmlcompare.Node, 0, len(grps))
	for i := range grps {
		id := fmt.Sprintf("P%d", i+1)
		scoreParts = append(scoreParts, newNode("score-part", []attr{{"id", id}}, textNode("part-name", fmt.Sprintf("Part %d", i+1))))
	}
	root.Children = append(root.Children, &xmlcompare.Node{Local: "part-list", Children: scoreParts})

	if len(measures) == 0 {
		return
	}

	for gi, grp := range grps {
		base := 0
		if len(grp.StaffDefs) > 0 {
			base = grp.StaffDefs[0].N - 1
		}
		staves := len(grp.StaffDefs)
		part := &xmlcompare.Node{Local: "part", Attrs: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: fmt.Sprintf("P%d", gi+1)}}}

		for mi, m := range measures {
			part.Children = append(part.Children, exportMeasureForPart(m, score.ScoreDef, grp, base, staves, mi == 0, gi == 0, store, spanMaps[mi]))
		}
		root.Children = append(root.Children, part)
	}
}

type measureSpanMaps struct {
	slurNumber   map[string]int
	slurIsStart  map[string]bool
	tieIsStart   map[string]bool
	tieIsStop    map[string]bool
	tupletNumber map[string]int
	tupletIsStart map[string]bool
	tupletActual map[string]int
	tupletNormal map[string]int
	dynamAt      map[string][]*canonical.Dynam
	harmAt       map[string][]*canonical.Harm
}

func computeSpanMaps(m *canonical.Measure, store *extension.Store) measureSpanMaps {
	sm := measureSpanMaps{
		slurNumber: map[string]int{}, slurIsStart: map[string]bool{},
		tieIsStart: map[string]bool{}, tieIsStop: map[string]bool{},
		tupletNumber: map[string]int{}, tupletIsStart: map[string]bool{},
		tupletActual: map[string]int{}, tupletNormal: map[string]int{},
		dynamAt: map[string][]*canonical.Dynam{}, harmAt: map[string][]*canonical.Harm{},
	}
	counter := 1
	for _, c := range m.Children {
		switch c.Tag {
		case canonical.ChildSlur:
			n := counter
			counter++
			sm.slurNumber[c.Slur.StartID] = n
			sm.slurIsStart[c.Slur.StartID] = true
			sm.slurNumber[c.Slur.EndID] = n
		case canonical.ChildTie:
			sm.tieIsStart[c.Tie.StartID] = true
			sm.tieIsStop[c.Tie.EndID] = true
		case canonical.ChildTupletSpan:
			n := counter
			counter++
			sm.tupletNumber[c.TupletSpan.StartID] = n
			sm.tupletIsStart[c.TupletSpan.StartID] = true
			sm.tupletActual[c.TupletSpan.StartID] = c.TupletSpan.Num
			sm.tupletNormal[c.TupletSpan.StartID] = c.TupletSpan.NumBase
			sm.tupletNumber[c.TupletSpan.EndID] = n
		case canonical.ChildDynam:
			sm.dynamAt[c.Dynam.StartID] = append(sm.dynamAt[c.Dynam.StartID], c.Dynam)
		case canonical.ChildHarm:
			sm.harmAt[c.Harm.StartID] = append(sm.harmAt[c.Harm.StartID], c.Harm)
		case canonical.ChildApp:
			// MusicXML has no critical-apparatus slot (spec.md §4.5 point
			// 4): every lemma reading anchored here is dropped, not just
			// the <app> wrapper itself.
			store.RecordLoss(extension.CriticalApparatus)
			for range c.App.Lemmata {
				store.RecordLoss(extension.CriticalApparatus)
			}
		}
	}
	return sm
}

func quarterLengthFor(note *canonical.Note) decimal.Decimal {
	if note.HasGes && note.NoteGesAttrs.Dur.Has {
		return note.NoteGesAttrs.Dur.PartsPerQuarter
	}
	ql, err := canonical.QuarterLength(note.NoteLogAttrs.Dur)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return ql
}

func exportMeasureForPart(m *canonical.Measure, scoreDef *canonical.ScoreDef, grp *canonical.StaffGrp, base, staves int, firstMeasure, firstPart bool, store *extension.Store, sm measureSpanMaps) *xmlcompare.Node {
	measure := newNode("measure", []attr{{"number", strconv.Itoa(m.N)}})

	if firstMeasure {
		var clefNodes []*xmlcompare.Node
		var attrChildren []*xmlcompare.Node
		attrChildren = append(attrChildren, textNode("divisions", strconv.Itoa(exportDivisionsPerQuarter)))
		if scoreDef != nil && scoreDef.KeySig.Has {
			attrChildren = append(attrChildren, &xmlcompare.Node{Local: "key", Children: []*xmlcompare.Node{textNode("fifths", strconv.Itoa(scoreDef.KeySig.Accidentals))}})
		}
		if scoreDef != nil && scoreDef.MeterSig.Has {
			attrChildren = append(attrChildren, &xmlcompare.Node{Local: "time", Children: []*xmlcompare.Node{
				textNode("beats", strconv.Itoa(scoreDef.MeterSig.Count)),
				textNode("beat-type", strconv.Itoa(scoreDef.MeterSig.Unit)),
			}})
		}
		if staves > 1 {
			attrChildren = append(attrChildren, textNode("staves", strconv.Itoa(staves)))
		}
		for i, sd := range grp.StaffDefs {
			if sd.Clef.Has {
				clefAttrs := []attr{}
				if staves > 1 {
					clefAttrs = append(clefAttrs, attr{"number", strconv.Itoa(i + 1)})
				}
				clefNodes = append(clefNodes, newNode("clef", clefAttrs, textNode("sign", sd.Clef.Shape), textNode("line", strconv.Itoa(sd.Clef.Line))))
			}
		}
		attrChildren = append(attrChildren, clefNodes...)
		measure.Children = append(measure.Children, &xmlcompare.Node{Local: "attributes", Children: attrChildren})
	}

	if firstPart {
		if sd, ok := store.Sound(m.ID); ok && sd.HasTempo {
			direction := newNode("direction", nil,
				&xmlcompare.Node{Local: "direction-type", Children: []*xmlcompare.Node{
					{Local: "metronome", Children: []*xmlcompare.Node{textNode("beat-unit", "quarter"), textNode("per-minute", strconv.Itoa(int(sd.Tempo)))}},
				}},
				newNode("sound", []attr{{"tempo", strconv.FormatFloat(sd.Tempo, 'g', -1, 64)}}),
			)
			measure.Children = append(measure.Children, direction)
		}
	}

	staffByN := map[int]*canonical.Staff{}
	for _, st := range m.Staves() {
		staffByN[st.N] = st
	}

	var runningDuration decimal.Decimal
	for local := 1; local <= staves; local++ {
		n := base + local
		staff, ok := staffByN[n]
		if !ok || len(staff.Layers) == 0 {
			continue
		}
		if local > 1 {
			measure.Children = append(measure.Children, newNode("backup", nil, textNode("duration", runningDuration.String())))
			runningDuration = decimal.Zero
		}
		for _, ev := range staff.Layers[0].Events() {
			var note *canonical.Note
			var isRest bool
			var rest *canonical.Rest
			switch ev.Tag {
			case canonical.ChildNote:
				note = ev.Note
			case canonical.ChildRest:
				isRest, rest = true, ev.Rest
			case canonical.ChildChord:
				for ci, cn := range ev.Chord.Notes {
					measure.Children = append(measure.Children, exportNoteNode(cn, staves, local, ci > 0, sm))
				}
				runningDuration = runningDuration.Add(quarterLengthFor(ev.Chord.Notes[0]).Mul(decimal.NewFromInt(exportDivisionsPerQuarter)))
				continue
			}
			if isRest {
				measure.Children = append(measure.Children, exportRestNode(rest, staves, local))
				ql, _ := canonical.QuarterLength(rest.Dur)
				runningDuration = runningDuration.Add(ql.Mul(decimal.NewFromInt(exportDivisionsPerQuarter)))
				continue
			}
			if note == nil {
				continue
			}
			measure.Children = append(measure.Children, exportNoteNode(note, staves, local, false, sm))
			for _, d := range sm.dynamAt[note.ID] {
				measure.Children = append(measure.Children, exportDynamNode(d))
			}
			for _, h := range sm.harmAt[note.ID] {
				measure.Children = append(measure.Children, exportHarmonyNode(h, store))
			}
			runningDuration = runningDuration.Add(quarterLengthFor(note).Mul(decimal.NewFromInt(exportDivisionsPerQuarter)))
		}
	}

	if extras, ok := store.Barline(m.ID); ok {
		measure.Children = append(measure.Children, exportBarlineNode(extras))
	}

	return measure
}

func exportNoteNode(note *canonical.Note, staves, local int, isChordContinuation bool, sm measureSpanMaps) *xmlcompare.Node {
	n := &xmlcompare.Node{Local: "note"}
	if isChordContinuation {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "chord"})
	}
	pitch := &xmlcompare.Node{Local: "pitch"}
	pitch.Children = append(pitch.Children, textNode("step", note.Pitch.Step))
	if alter, ok := alterFromAccid(note.Pitch.Accidental); ok {
		pitch.Children = append(pitch.Children, textNode("alter", strconv.Itoa(alter)))
	}
	pitch.Children = append(pitch.Children, textNode("octave", strconv.Itoa(note.Pitch.Octave)))
	n.Children = append(n.Children, pitch)

	parts := quarterLengthFor(note).Mul(decimal.NewFromInt(exportDivisionsPerQuarter)).Round(0)
	n.Children = append(n.Children, textNode("duration", parts.String()))
	n.Children = append(n.Children, textNode("type", note.NoteLogAttrs.Dur.Symbol))
	for i := 0; i < note.NoteLogAttrs.Dur.Dots; i++ {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "dot"})
	}
	if staves > 1 {
		n.Children = append(n.Children, textNode("staff", strconv.Itoa(local)))
	}
	if sm.tieIsStart[note.ID] {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "tie", Attrs: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "start"}}})
	}
	if sm.tieIsStop[note.ID] {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "tie", Attrs: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "stop"}}})
	}

	if _, ok := sm.tupletNumber[note.ID]; ok && sm.tupletIsStart[note.ID] {
		n.Children = append(n.Children, newNode("time-modification", nil,
			textNode("actual-notes", strconv.Itoa(sm.tupletActual[note.ID])),
			textNode("normal-notes", strconv.Itoa(sm.tupletNormal[note.ID]))))
	}

	var notations []*xmlcompare.Node
	if num, ok := sm.slurNumber[note.ID]; ok {
		typ := "stop"
		if sm.slurIsStart[note.ID] {
			typ = "start"
		}
		notations = append(notations, newNode("slur", []attr{{"type", typ}, {"number", strconv.Itoa(num)}}))
	}
	if num, ok := sm.tupletNumber[note.ID]; ok {
		typ := "stop"
		if sm.tupletIsStart[note.ID] {
			typ = "start"
		}
		notations = append(notations, newNode("tuplet", []attr{{"type", typ}, {"number", strconv.Itoa(num)}}))
	}
	if sm.tieIsStart[note.ID] {
		notations = append(notations, newNode("tied", []attr{{"type", "start"}}))
	}
	if sm.tieIsStop[note.ID] {
		notations = append(notations, newNode("tied", []attr{{"type", "stop"}}))
	}
	if len(notations) > 0 {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "notations", Children: notations})
	}
	return n
}

func exportRestNode(rest *canonical.Rest, staves, local int) *xmlcompare.Node {
	n := &xmlcompare.Node{Local: "note", Children: []*xmlcompare.Node{{Local: "rest"}}}
	ql, _ := canonical.QuarterLength(rest.Dur)
	parts := ql.Mul(decimal.NewFromInt(exportDivisionsPerQuarter)).Round(0)
	n.Children = append(n.Children, textNode("duration", parts.String()), textNode("type", rest.Dur.Symbol))
	for i := 0; i < rest.Dur.Dots; i++ {
		n.Children = append(n.Children, &xmlcompare.Node{Local: "dot"})
	}
	if staves > 1 {
		n.Children = append(n.Children, textNode("staff", strconv.Itoa(local)))
	}
	return n
}

func exportDynamNode(d *canonical.Dynam) *xmlcompare.Node {
	return newNode("direction", nil, &xmlcompare.Node{Local: "direction-type", Children: []*xmlcompare.Node{
		{Local: "dynamics", Children: []*xmlcompare.Node{{Local: d.Text}}},
	}})
}

func exportHarmonyNode(h *canonical.Harm, store *extension.Store) *xmlcompare.Node {
	data, ok := store.Harmony(h.ID)
	if !ok {
		return newNode("harmony", nil, textNode("kind", ""))
	}
	var children []*xmlcompare.Node
	rootChildren := []*xmlcompare.Node{textNode("root-step", data.RootStep)}
	if data.RootAlter != 0 {
		rootChildren = append(rootChildren, textNode("root-alter", strconv.Itoa(int(data.RootAlter))))
	}
	children = append(children, &xmlcompare.Node{Local: "root", Children: rootChildren})
	children = append(children, textNode("kind", data.Kind))
	if data.HasBass {
		bassChildren := []*xmlcompare.Node{textNode("bass-step", data.BassStep)}
		if data.BassAlter != 0 {
			bassChildren = append(bassChildren, textNode("bass-alter", strconv.Itoa(int(data.BassAlter))))
		}
		children = append(children, &xmlcompare.Node{Local: "bass", Children: bassChildren})
	}
	return &xmlcompare.Node{Local: "harmony", Children: children}
}

func exportBarlineNode(extras extension.BarlineExtras) *xmlcompare.Node {
	n := newNode("barline", []attr{{"location", extras.Location}})
	if extras.BarStyle != "" {
		n.Children = append(n.Children, textNode("bar-style", extras.BarStyle))
	}
	if extras.RepeatDir != "" {
		n.Children = append(n.Children, newNode("repeat", []attr{{"direction", extras.RepeatDir}}))
	}
	if extras.EndingNumber != "" {
		n.Children = append(n.Children, newNode("ending", []attr{{"number", extras.EndingNumber}, {"type", extras.EndingType}}))
	}
	return n
}

func alterFromAccid(accid string) (int, bool) {
	switch accid {
	case "s":
		return 1, true
	case "f":
		return -1, true
	case "ss":
		return 2, true
	case "ff":
		return -2, true
	case "n":
		return 0, true
	default:
		return 0, false
	}
}

// writeNode serializes n and its subtree with attributes in
// alphabetical order, mirroring internal/mei's export serializer; kept
// as a separate copy rather than a shared helper since the two
// adapters' element shapes and self-closing rules are independent
// (MusicXML elements like <rest/> and <chord/> are structurally empty
// markers, not omitted-attribute elements).
func writeNode(buf *bytes.Buffer, n *xmlcompare.Node, depth int) {
	sorted := append([]xml.Attr(nil), n.Attrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name.Local < sorted[j].Name.Local })

	fmt.Fprintf(buf, "<%s", n.Local)
	for _, a := range sorted {
		fmt.Fprintf(buf, ` %s="%s"`, a.Name.Local, escapeAttr(a.Value))
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	if n.Text != "" {
		buf.WriteString(escapeText(n.Text))
	}
	for _, c := range n.Children {
		writeNode(buf, c, depth+1)
	}
	fmt.Fprintf(buf, "</%s>", n.Local)
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func escapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
