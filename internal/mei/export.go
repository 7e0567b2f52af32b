package mei

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/xmlcompare"
)

// Export renders the canonical model as an MEI document in the
// canonical version; older target versions are not supported (spec.md
// §4.4 "Output is always in the canonical version").
func Export(doc *canonical.Mei, store *extension.Store, opts config.ConversionOptions) ([]byte, error) {
	root := exportMei(doc)
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	writeNode(&buf, root, 0)
	return buf.Bytes(), nil
}

// attr is an ordering-friendly attribute pair; writeNode sorts these
// alphabetically by name before writing, per the serialiser contract
// of spec.md §4.2.
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

func exportMei(doc *canonical.Mei) *xmlcompare.Node {
	n := newNode("mei", []attr{{"meiversion", config.CanonicalMEIVersion}})
	if doc.MeiHead != nil {
		n.Children = append(n.Children, exportMeiHead(doc.MeiHead))
	}
	if doc.Music != nil {
		n.Children = append(n.Children, exportMusic(doc.Music))
	}
	return n
}

func exportMeiHead(h *canonical.MeiHead) *xmlcompare.Node {
	n := newNode("meiHead", nil)
	if h.FileDesc != nil {
		n.Children = append(n.Children, exportFileDesc(h.FileDesc))
	}
	return n
}

func exportFileDesc(fd *canonical.FileDesc) *xmlcompare.Node {
	n := newNode("fileDesc", nil)
	if fd.TitleStmt != nil {
		n.Children = append(n.Children, exportTitleStmt(fd.TitleStmt))
	}
	return n
}

func exportTitleStmt(ts *canonical.TitleStmt) *xmlcompare.Node {
	n := newNode("titleStmt", nil)
	if ts.Title != nil {
		title := newNode("title", nil)
		title.Text = ts.Title.Text
		n.Children = append(n.Children, title)
	}
	for _, cr := range ts.Creators {
		c := newNode("creator", []attr{{"role", cr.Role}})
		c.Text = cr.Name
		n.Children = append(n.Children, c)
	}
	return n
}

func exportMusic(m *canonical.Music) *xmlcompare.Node {
	n := newNode("music", nil)
	if m.Body != nil {
		n.Children = append(n.Children, exportBody(m.Body))
	}
	return n
}

func exportBody(b *canonical.Body) *xmlcompare.Node {
	n := newNode("body", nil)
	for _, mdiv := range b.Mdivs {
		n.Children = append(n.Children, exportMdiv(mdiv))
	}
	return n
}

func exportMdiv(m *canonical.Mdiv) *xmlcompare.Node {
	n := newNode("mdiv", nil)
	if m.Score != nil {
		n.Children = append(n.Children, exportScore(m.Score))
	}
	return n
}

func exportScore(s *canonical.Score) *xmlcompare.Node {
	n := newNode("score", nil)
	if s.ScoreDef != nil {
		n.Children = append(n.Children, exportScoreDef(s.ScoreDef))
	}
	for _, sec := range s.Sections {
		n.Children = append(n.Children, exportSection(sec))
	}
	return n
}

func exportScoreDef(sd *canonical.ScoreDef) *xmlcompare.Node {
	attrs := []attr{}
	if sd.KeySig.Has {
		attrs = append(attrs, attr{"keysig", strconv.Itoa(sd.KeySig.Accidentals)})
	}
	if sd.MeterSig.Has {
		attrs = append(attrs, attr{"meter.count", strconv.Itoa(sd.MeterSig.Count)}, attr{"meter.unit", strconv.Itoa(sd.MeterSig.Unit)})
	}
	n := newNode("scoreDef", attrs)
	for _, sg := range sd.StaffGrps {
		n.Children = append(n.Children, exportStaffGrp(sg))
	}
	return n
}

func exportStaffGrp(sg *canonical.StaffGrp) *xmlcompare.Node {
	n := newNode("staffGrp", []attr{{"xml:id", idOf(sg.Identity)}, {"symbol", sg.Symbol}})
	for _, sd := range sg.StaffDefs {
		n.Children = append(n.Children, exportStaffDef(sd))
	}
	return n
}

func exportStaffDef(sd *canonical.StaffDef) *xmlcompare.Node {
	attrs := []attr{{"xml:id", idOf(sd.Identity)}, {"n", strconv.Itoa(sd.N)}}
	if sd.Clef.Has {
		attrs = append(attrs, attr{"clef.shape", sd.Clef.Shape}, attr{"clef.line", strconv.Itoa(sd.Clef.Line)})
	}
	return newNode("staffDef", attrs)
}

func exportSection(sec *canonical.Section) *xmlcompare.Node {
	n := newNode("section", nil)
	for _, m := range sec.Measures {
		n.Children = append(n.Children, exportMeasure(m))
	}
	return n
}

func exportMeasure(m *canonical.Measure) *xmlcompare.Node {
	n := newNode("measure", []attr{{"xml:id", idOf(m.Identity)}, {"n", strconv.Itoa(m.N)}})
	for _, c := range m.Children {
		switch c.Tag {
		case canonical.ChildStaff:
			n.Children = append(n.Children, exportStaff(c.Staff))
		case canonical.ChildSlur:
			n.Children = append(n.Children, exportSlur(c.Slur))
		case canonical.ChildTie:
			n.Children = append(n.Children, exportTie(c.Tie))
		case canonical.ChildTupletSpan:
			n.Children = append(n.Children, exportTupletSpan(c.TupletSpan))
		case canonical.ChildDynam:
			n.Children = append(n.Children, exportDynam(c.Dynam))
		case canonical.ChildHarm:
			n.Children = append(n.Children, exportHarm(c.Harm))
		case canonical.ChildApp:
			n.Children = append(n.Children, exportApp(c.App))
		}
	}
	return n
}

func exportStaff(s *canonical.Staff) *xmlcompare.Node {
	n := newNode("staff", []attr{{"xml:id", idOf(s.Identity)}, {"n", strconv.Itoa(s.N)}})
	for _, l := range s.Layers {
		n.Children = append(n.Children, exportLayer(l))
	}
	return n
}

func exportLayer(l *canonical.Layer) *xmlcompare.Node {
	n := newNode("layer", []attr{{"xml:id", idOf(l.Identity)}, {"n", strconv.Itoa(l.N)}})
	for _, c := range l.Children {
		switch c.Tag {
		case canonical.ChildNote:
			n.Children = append(n.Children, exportNote(c.Note))
		case canonical.ChildRest:
			n.Children = append(n.Children, exportRest(c.Rest))
		case canonical.ChildChord:
			n.Children = append(n.Children, exportChord(c.Chord))
		}
	}
	return n
}

func exportNote(note *canonical.Note) *xmlcompare.Node {
	attrs := []attr{
		{"xml:id", idOf(note.Identity)},
		{"pname", lowerStep(note.Pitch.Step)},
		{"oct", strconv.Itoa(note.Pitch.Octave)},
		{"dur", note.NoteLogAttrs.Dur.Symbol},
		{"accid", note.Pitch.Accidental},
	}
	if note.HasStaff {
		attrs = append(attrs, attr{"staff", strconv.Itoa(note.StaffRef)})
	}
	if note.HasGes && note.NoteGesAttrs.Dur.Has {
		attrs = append(attrs, attr{"dur.ppq", note.NoteGesAttrs.Dur.PartsPerQuarter.String()})
	}
	return newNode("note", attrs)
}

func exportRest(r *canonical.Rest) *xmlcompare.Node {
	attrs := []attr{{"xml:id", idOf(r.Identity)}, {"dur", r.Dur.Symbol}}
	if r.HasStaff {
		attrs = append(attrs, attr{"staff", strconv.Itoa(r.StaffRef)})
	}
	return newNode("rest", attrs)
}

func exportChord(c *canonical.Chord) *xmlcompare.Node {
	n := newNode("chord", []attr{{"xml:id", idOf(c.Identity)}, {"dur", c.Dur.Symbol}})
	for _, note := range c.Notes {
		n.Children = append(n.Children, exportNote(note))
	}
	return n
}

func exportSlur(s *canonical.Slur) *xmlcompare.Node {
	return newNode("slur", []attr{{"xml:id", idOf(s.Identity)}, {"startid", s.StartID}, {"endid", s.EndID}})
}

func exportTie(t *canonical.Tie) *xmlcompare.Node {
	return newNode("tie", []attr{{"xml:id", idOf(t.Identity)}, {"startid", t.StartID}, {"endid", t.EndID}})
}

func exportTupletSpan(ts *canonical.TupletSpan) *xmlcompare.Node {
	return newNode("tupletSpan", []attr{
		{"xml:id", idOf(ts.Identity)}, {"startid", ts.StartID}, {"endid", ts.EndID},
		{"num", strconv.Itoa(ts.Num)}, {"numbase", strconv.Itoa(ts.NumBase)},
	})
}

func exportDynam(d *canonical.Dynam) *xmlcompare.Node {
	attrs := []attr{{"xml:id", idOf(d.Identity)}, {"startid", d.StartID}}
	if d.HasTime {
		attrs = append(attrs, attr{"tstamp", d.Timestamp.QuarterNotesFromDownbeat.String()})
	}
	n := newNode("dynam", attrs)
	n.Text = d.Text
	return n
}

func exportHarm(h *canonical.Harm) *xmlcompare.Node {
	n := newNode("harm", []attr{{"xml:id", idOf(h.Identity)}, {"startid", h.StartID}})
	n.Text = h.Text
	return n
}

func exportApp(a *canonical.App) *xmlcompare.Node {
	n := newNode("app", []attr{{"xml:id", idOf(a.Identity)}})
	for _, lem := range a.Lemmata {
		l := newNode("lem", []attr{{"xml:id", idOf(lem.Identity)}})
		l.Text = lem.Text
		n.Children = append(n.Children, l)
	}
	return n
}

// idOf returns the element's identifier unchanged, including ones
// assigned purely for internal bookkeeping (spec.md §4.3 "an adapter
// may elect to keep identifiers only for elements that are
// cross-referenced"); MEI export keeps every id since the MEI adapter
// is near-identity and round-trip fidelity is the priority over output
// terseness.
func idOf(id canonical.Identity) string { return id.ID }

func lowerStep(step string) string {
	if step == "" {
		return ""
	}
	return fmt.Sprintf("%c", step[0]+('a'-'A'))
}

// writeNode serializes n and its subtree with attributes in
// alphabetical order (spec.md §4.2's serialiser contract), emitting a
// self-closing tag for elements with neither text nor children (so
// empty mixed content does not round-trip as a separate empty text
// node, per spec.md §8.3).
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
