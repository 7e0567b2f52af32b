// Package musicxml is the MusicXML format adapter (spec.md §4.5):
// unlike internal/mei's near-identity layer, it performs real
// translation between MusicXML's partwise, divisions-based shape and
// the canonical MEI-derived model. Decoding reuses internal/xmlcompare's
// generic Node tree (the same pattern internal/mei's importer uses)
// rather than typed encoding/xml structs, because a MusicXML measure
// freely interleaves <note>, <backup>, <direction>, and <harmony> in a
// document order that a struct-tag unmarshal into separate typed
// slices cannot preserve — and that order is exactly what the
// direction-timestamp cursor (spec.md §4.5 point 4) needs.
package musicxml

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/errs"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/ids"
	"github.com/tusk-notation/tusk/internal/schema"
	"github.com/tusk-notation/tusk/internal/xmlcompare"
)

var log = logger.New("musicxml")

// supportedDurationSymbols is the subset of MusicXML's <type> vocabulary
// internal/canonical's duration table covers.
var supportedDurationSymbols = map[string]bool{
	"long": true, "breve": true, "whole": true, "half": true,
	"quarter": true, "eighth": true, "16th": true, "32nd": true, "64th": true,
}

// Import parses a MusicXML partwise document into the canonical model
// and an extension store holding source-format detail the model has
// no slot for (spec.md §4.5).
func Import(data []byte, opts config.ConversionOptions) (*canonical.Mei, *extension.Store, error) {
	flog := log.Function("Import")

	root, err := xmlcompare.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errs.ParseError("MusicXML", "", err.Error())
	}
	if root == nil || root.Local != "score-partwise" {
		return nil, nil, errs.ParseError("MusicXML", "/", "only score-partwise documents are supported")
	}
	versionAttr, _ := root.Attr("version")
	if _, err := detectVersion(versionAttr, opts.MusicXML); err != nil {
		flog.Err("unsupported MusicXML version", err)
		return nil, nil, err
	}

	sch, err := schema.MusicXML()
	if err != nil {
		flog.Err("loading MusicXML grammar", err)
		return nil, nil, err
	}

	store := extension.New()
	assigner := ids.NewAssigner()
	imp := &importer{opts: opts, store: store, ids: assigner, sch: sch}

	doc := &canonical.Mei{Version: config.CanonicalMEIVersion}
	doc.Identity = imp.newIdentity("mei", 0)

	doc.MeiHead = imp.meiHead(root)
	music, err := imp.music(root)
	if err != nil {
		return nil, nil, err
	}
	doc.Music = music

	if err := assigner.CheckClosure(); err != nil {
		return nil, nil, err
	}
	store.Seal()
	return doc, store, nil
}

type importer struct {
	opts  config.ConversionOptions
	store *extension.Store
	ids   *ids.Assigner
	sch   *schema.Schema
}

func (imp *importer) newIdentity(kind string, index int, salient ...string) canonical.Identity {
	id := imp.ids.Assign("", kind, index, salient...)
	return canonical.Identity{ID: id, Assigned: true}
}

// checkChild mirrors internal/mei's helper of the same name: reports
// whether child is permitted under parent per the bundled MusicXML
// grammar (spec.md §4.2), failing with errs.UnknownChild in strict
// mode and logging-and-skipping in lenient mode (spec.md §7).
func (imp *importer) checkChild(parent, child, path string) (skip bool, err error) {
	el, ok := imp.sch.Elements[parent]
	if !ok || el.PermittedChild(child) {
		return false, nil
	}
	if !imp.opts.Lenient {
		return false, errs.UnknownChild(parent, child, path)
	}
	log.Function("checkChild").Info("skipping unknown child in lenient mode", "parent", parent, "child", child, "path", path)
	return true, nil
}

// checkEnum enforces closed vocabularies (spec.md §4.2 "Enumerations
// are closed"): a value outside the named enumeration fails with
// errs.UnknownEnumValue in strict mode, and is retained as raw text in
// lenient mode (spec.md §7) — the caller keeps the value it already
// holds either way, so nil means "carry on with the raw value".
func (imp *importer) checkEnum(typeName, value, path string) error {
	if imp.sch.IsKnownEnumValue(typeName, value) {
		return nil
	}
	if !imp.opts.Lenient {
		return errs.UnknownEnumValue(typeName, value, path)
	}
	log.Function("checkEnum").Info("retaining out-of-vocabulary value in lenient mode", "type", typeName, "value", value, "path", path)
	return nil
}

func firstChild(n *xmlcompare.Node, name string) *xmlcompare.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Local == name {
			return c
		}
	}
	return nil
}

func children(n *xmlcompare.Node, name string) []*xmlcompare.Node {
	var out []*xmlcompare.Node
	for _, c := range n.Children {
		if c.Local == name {
			out = append(out, c)
		}
	}
	return out
}

func text(n *xmlcompare.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

func attrInt(n *xmlcompare.Node, name string) (int, bool) {
	v, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	return i, err == nil
}

func intOr(n *xmlcompare.Node, fallback int) int {
	v := strings.TrimSpace(n.Text)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func (imp *importer) meiHead(root *xmlcompare.Node) *canonical.MeiHead {
	h := &canonical.MeiHead{}
	h.Identity = imp.newIdentity("meiHead", 0)

	fd := &canonical.FileDesc{}
	fd.Identity = imp.newIdentity("fileDesc", 0)
	h.FileDesc = fd

	ts := &canonical.TitleStmt{}
	ts.Identity = imp.newIdentity("titleStmt", 0)
	fd.TitleStmt = ts

	title := ""
	if mt := firstChild(root, "movement-title"); mt != nil {
		title = text(mt)
	} else if w := firstChild(root, "work"); w != nil {
		if wt := firstChild(w, "work-title"); wt != nil {
			title = text(wt)
		}
	}
	if title != "" {
		ts.Title = &canonical.Title{Text: title}
		ts.Title.Identity = imp.newIdentity("title", 0)
	}

	if ident := firstChild(root, "identification"); ident != nil {
		identData := extension.IdentificationData{CreatorTypes: map[string]string{}}
		for i, c := range children(ident, "creator") {
			role, _ := c.Attr("type")
			cr := &canonical.Creator{Role: role, Name: text(c)}
			cr.Identity = imp.newIdentity("creator", i, role)
			ts.Creators = append(ts.Creators, cr)
			if role != "composer" && role != "lyricist" && role != "arranger" && role != "editor" {
				identData.CreatorTypes[role] = text(c)
			}
		}
		if rights := firstChild(ident, "rights"); rights != nil {
			identData.Rights = text(rights)
		}
		if len(identData.CreatorTypes) > 0 || identData.Rights != "" {
			imp.store.PutIdentification(h.ID, identData)
		}
	}

	for i, c := range children(root, "credit") {
		entry := extension.CreditEntry{}
		if t, ok := c.Attr("credit-type"); ok {
			entry.Type = t
		}
		if cw := firstChild(c, "credit-words"); cw != nil {
			entry.Words = text(cw)
			if x, ok := cw.Attr("default-x"); ok {
				if f, err := strconv.ParseFloat(x, 64); err == nil {
					entry.X, entry.HasXY = f, true
				}
			}
			if y, ok := cw.Attr("default-y"); ok {
				if f, err := strconv.ParseFloat(y, 64); err == nil {
					entry.Y = f
				}
			}
		}
		imp.store.AddCredit(fmt.Sprintf("%s-%d", h.ID, i), entry)
	}

	return h
}

func (imp *importer) music(root *xmlcompare.Node) (*canonical.Music, error) {
	m := &canonical.Music{}
	m.Identity = imp.newIdentity("music", 0)
	body := &canonical.Body{}
	body.Identity = imp.newIdentity("body", 0)
	m.Body = body

	mdiv := &canonical.Mdiv{}
	mdiv.Identity = imp.newIdentity("mdiv", 0)
	body.Mdivs = append(body.Mdivs, mdiv)

	score := &canonical.Score{}
	score.Identity = imp.newIdentity("score", 0)
	mdiv.Score = score

	partList := firstChild(root, "part-list")
	partNames := map[string]string{}
	if partList != nil {
		for _, sp := range children(partList, "score-part") {
			id, _ := sp.Attr("id")
			partNames[id] = text(firstChild(sp, "part-name"))
		}
	}

	parts := children(root, "part")
	scoreDef := &canonical.ScoreDef{}
	scoreDef.Identity = imp.newIdentity("scoreDef", 0)
	score.ScoreDef = scoreDef

	states := make([]*partState, len(parts))
	globalStaff := 0
	for pi, p := range parts {
		partID, _ := p.Attr("id")
		firstMeasure := firstChild(p, "measure")
		var firstAttrs *xmlcompare.Node
		if firstMeasure != nil {
			firstAttrs = firstChild(firstMeasure, "attributes")
		}

		staves := 1
		divisions := 0
		clefs := map[int]canonical.ClefAttrs{}
		if firstAttrs != nil {
			if sv := firstChild(firstAttrs, "staves"); sv != nil {
				staves = intOr(sv, 1)
			}
			if dv := firstChild(firstAttrs, "divisions"); dv != nil {
				divisions = intOr(dv, 0)
			}
			for _, cl := range children(firstAttrs, "clef") {
				num := 1
				if n, ok := attrInt(cl, "number"); ok {
					num = n
				}
				shape := text(firstChild(cl, "sign"))
				line := intOr(firstChild(cl, "line"), 2)
				clefs[num] = canonical.ClefAttrs{Shape: shape, Line: line, Has: true}
			}
			if scoreDef.KeySig.Accidentals == 0 && !scoreDef.KeySig.Has {
				if k := firstChild(firstAttrs, "key"); k != nil {
					scoreDef.KeySig = canonical.KeySigAttrs{Accidentals: intOr(firstChild(k, "fifths"), 0), Has: true}
				}
			}
			if !scoreDef.MeterSig.Has {
				if tm := firstChild(firstAttrs, "time"); tm != nil {
					beats := intOr(firstChild(tm, "beats"), 4)
					beatType := intOr(firstChild(tm, "beat-type"), 4)
					scoreDef.MeterSig = canonical.MeterSigAttrs{Count: beats, Unit: beatType, Has: true}
				}
			}
		}

		grp := &canonical.StaffGrp{}
		grp.Identity = imp.newIdentity("staffGrp", pi, partID)
		if staves > 1 {
			grp.Symbol = "brace"
		}
		base := globalStaff
		for s := 1; s <= staves; s++ {
			sd := &canonical.StaffDef{}
			n := base + s
			sd.Identity = imp.newIdentity("staffDef", pi, partID, strconv.Itoa(s))
			sd.N = n
			if clef, ok := clefs[s]; ok {
				sd.Clef = clef
			}
			grp.StaffDefs = append(grp.StaffDefs, sd)
		}
		scoreDef.StaffGrps = append(scoreDef.StaffGrps, grp)

		states[pi] = &partState{
			id: partID, divisions: divisions, staves: staves, globalBase: base,
			pendingSlurs: map[int]*pendingSpan{}, pendingTies: map[int]*pendingSpan{},
			pendingTuplets: map[int]*pendingTuplet{},
		}
		globalStaff += staves
	}

	nMeasures := 0
	for _, p := range parts {
		if n := len(children(p, "measure")); n > nMeasures {
			nMeasures = n
		}
	}

	section := &canonical.Section{}
	section.Identity = imp.newIdentity("section", 0)
	score.Sections = append(score.Sections, section)

	for mi := 0; mi < nMeasures; mi++ {
		measure := &canonical.Measure{N: mi + 1}
		measure.Identity = imp.newIdentity("measure", mi, strconv.Itoa(mi+1))
		section.Measures = append(section.Measures, measure)

		for pi, p := range parts {
			st := states[pi]
			partMeasures := children(p, "measure")
			if mi >= len(partMeasures) {
				continue
			}
			if err := imp.importMeasureForPart(partMeasures[mi], measure, st); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

type partState struct {
	id             string
	divisions      int
	staves         int
	globalBase     int
	cursor         decimal.Decimal
	pendingSlurs   map[int]*pendingSpan
	pendingTies    map[int]*pendingSpan
	pendingTuplets map[int]*pendingTuplet
	lastEventID    string
	noteCounter    int
}

type pendingSpan struct {
	startID string
	anchor  *canonical.Measure
}

type pendingTuplet struct {
	startID       string
	anchor        *canonical.Measure
	actual, normal int
}

// importMeasureForPart walks one part's <measure> node in document
// order, advancing st.cursor by each note/rest/backup/forward duration
// so directions and harmonies can be timestamped relative to the
// measure's downbeat (spec.md §4.5 point 4), and appends the resulting
// staff/layer/control-event content onto the shared canonical measure.
func (imp *importer) importMeasureForPart(n *xmlcompare.Node, measure *canonical.Measure, st *partState) error {
	st.cursor = decimal.Zero
	layerEvents := map[int][]canonical.Child{}

	flushStaff := func() {
		locals := make([]int, 0, len(layerEvents))
		for local := range layerEvents {
			locals = append(locals, local)
		}
		sort.Ints(locals)
		for _, local := range locals {
			events := layerEvents[local]
			if len(events) == 0 {
				continue
			}
			staff := &canonical.Staff{N: st.globalBase + local}
			staff.Identity = imp.newIdentity("staff", 0, st.id, strconv.Itoa(local), strconv.Itoa(measure.N))
			layer := &canonical.Layer{N: 1, Children: events}
			layer.Identity = imp.newIdentity("layer", 0, st.id, strconv.Itoa(local), strconv.Itoa(measure.N))
			staff.Layers = append(staff.Layers, layer)
			measure.Children = append(measure.Children, canonical.Child{Tag: canonical.ChildStaff, Staff: staff})
		}
	}

	for _, c := range n.Children {
		switch c.Local {
		case "attributes":
			if dv := firstChild(c, "divisions"); dv != nil {
				st.divisions = intOr(dv, st.divisions)
			}
		case "note":
			local := 1
			if sv := firstChild(c, "staff"); sv != nil {
				local = intOr(sv, 1)
			}
			ev, isChord, duration, err := imp.importNote(c, st, measure)
			if err != nil {
				return err
			}
			if !isChord {
				layerEvents[local] = append(layerEvents[local], ev)
			} else if evs := layerEvents[local]; len(evs) > 0 {
				last := &evs[len(evs)-1]
				if last.Tag == canonical.ChildNote {
					wrapped := &canonical.Chord{Dur: last.Note.NoteLogAttrs.Dur, Notes: []*canonical.Note{last.Note, ev.Note}}
					wrapped.Identity = imp.newIdentity("chord", 0, st.id, last.Note.ID, ev.Note.ID)
					*last = canonical.Child{Tag: canonical.ChildChord, Chord: wrapped}
				} else if last.Tag == canonical.ChildChord {
					last.Chord.Notes = append(last.Chord.Notes, ev.Note)
				}
			}
			if !isChord {
				st.cursor = st.cursor.Add(duration)
			}
		case "backup":
			d := imp.partsToQuarters(firstChild(c, "duration"), st.divisions)
			st.cursor = st.cursor.Sub(d)
		case "forward":
			d := imp.partsToQuarters(firstChild(c, "duration"), st.divisions)
			st.cursor = st.cursor.Add(d)
		case "direction":
			imp.importDirection(c, st, measure)
		case "harmony":
			if err := imp.importHarmony(c, st, measure); err != nil {
				return err
			}
		case "barline":
			imp.importBarline(c, measure)
		default:
			path := fmt.Sprintf("/measure[%d]/%s", measure.N, c.Local)
			if _, err := imp.checkChild("measure", c.Local, path); err != nil {
				return err
			}
		}
	}
	flushStaff()
	return nil
}

func (imp *importer) partsToQuarters(durNode *xmlcompare.Node, divisions int) decimal.Decimal {
	if durNode == nil || divisions <= 0 {
		return decimal.Zero
	}
	raw := intOr(durNode, 0)
	return decimal.NewFromInt(int64(raw)).Div(decimal.NewFromInt(int64(divisions)))
}

func accidFromAlter(alter int, present bool) string {
	if !present {
		return ""
	}
	switch alter {
	case 1:
		return "s"
	case -1:
		return "f"
	case 2:
		return "ss"
	case -2:
		return "ff"
	case 0:
		return "n"
	default:
		return ""
	}
}

// importNote builds a canonical Note or Rest for one <note> element,
// returning (event, isChordContinuation, performedQuarterLength). The
// third value is duration/divisions when MusicXML gives an actual
// performed duration (so a tuplet note advances the cursor by its real
// fraction of a beat, matching the <backup>/<forward> elements that
// also read duration/divisions), falling back to the nominal
// type+dots quarter length when no <duration> or no divisions value is
// present. A
// chord continuation (<chord/> present) is folded into the preceding
// event by the caller rather than here, since that requires mutating
// the staff's already-appended event list.
func (imp *importer) importNote(n *xmlcompare.Node, st *partState, measure *canonical.Measure) (canonical.Child, bool, decimal.Decimal, error) {
	st.noteCounter++
	index := st.noteCounter
	path := fmt.Sprintf("/measure[%d]/note[%d]", measure.N, index)
	isChord := firstChild(n, "chord") != nil

	symbol := text(firstChild(n, "type"))
	if symbol == "" {
		symbol = "quarter"
	} else if !supportedDurationSymbols[symbol] {
		if err := imp.checkEnum("note-type-value", symbol, path+"/type"); err != nil {
			return canonical.Child{}, false, decimal.Zero, err
		}
	}
	dots := len(children(n, "dot"))
	dur := canonical.Duration{Symbol: symbol, Dots: dots}

	ql, err := canonical.QuarterLength(dur)
	if err != nil {
		ql = decimal.NewFromInt(1)
	}

	rawDuration := intOr(firstChild(n, "duration"), 0)
	var ges canonical.GesturalDuration
	hasGes := false
	actual := ql
	if st.divisions > 0 && rawDuration > 0 {
		ges = canonical.GesturalDuration{PartsPerQuarter: decimal.NewFromInt(int64(rawDuration)).Div(decimal.NewFromInt(int64(st.divisions))), Has: true}
		hasGes = true
		actual = ges.PartsPerQuarter
	}

	if rest := firstChild(n, "rest"); rest != nil {
		r := &canonical.Rest{Dur: dur}
		r.Identity = imp.newIdentity("rest", index, st.id, symbol, strconv.Itoa(rawDuration))
		if sv := firstChild(n, "staff"); sv != nil {
			r.StaffRef, r.HasStaff = intOr(sv, 0), true
		}
		st.lastEventID = r.ID
		return canonical.Child{Tag: canonical.ChildRest, Rest: r}, isChord, actual, nil
	}

	note := &canonical.Note{}
	pitchNode := firstChild(n, "pitch")
	var step string
	octave := 4
	accid := ""
	if pitchNode != nil {
		step = text(firstChild(pitchNode, "step"))
		if err := imp.checkEnum("step-value", step, path+"/pitch/step"); err != nil {
			return canonical.Child{}, false, decimal.Zero, err
		}
		octave = intOr(firstChild(pitchNode, "octave"), 4)
		if alterNode := firstChild(pitchNode, "alter"); alterNode != nil {
			accid = accidFromAlter(intOr(alterNode, 0), true)
		}
	}
	// st.id is the part id: two parts whose Nth note is identical (a
	// unison doubling) must still derive distinct identifiers, the same
	// way the staff/layer/chord identities already scope by part.
	note.Identity = imp.newIdentity("note", index, st.id, step, strconv.Itoa(octave), symbol)
	note.Pitch = canonical.Pitch{Step: step, Octave: octave, Accidental: accid}
	note.NoteLogAttrs.Dur = dur
	if sv := firstChild(n, "staff"); sv != nil {
		note.StaffRef, note.HasStaff = intOr(sv, 0), true
	}
	if hasGes {
		note.NoteGesAttrs.Dur = ges
		note.HasGes = true
	}
	st.lastEventID = note.ID

	if tm := firstChild(n, "time-modification"); tm != nil {
		actual := intOr(firstChild(tm, "actual-notes"), 1)
		normal := intOr(firstChild(tm, "normal-notes"), 1)
		imp.handleTuplet(n, st, measure, note.ID, actual, normal)
	}
	if notations := firstChild(n, "notations"); notations != nil {
		for _, s := range children(notations, "slur") {
			imp.handleSlur(s, st, measure, note.ID)
		}
	}
	for _, tieNode := range children(n, "tie") {
		imp.handleTie(tieNode, st, measure, note.ID)
	}

	return canonical.Child{Tag: canonical.ChildNote, Note: note}, isChord, actual, nil
}

func (imp *importer) handleSlur(s *xmlcompare.Node, st *partState, measure *canonical.Measure, noteID string) {
	num := 1
	if n, ok := attrInt(s, "number"); ok {
		num = n
	}
	typ, _ := s.Attr("type")
	switch typ {
	case "start":
		st.pendingSlurs[num] = &pendingSpan{startID: noteID, anchor: measure}
	case "stop":
		p, ok := st.pendingSlurs[num]
		if !ok {
			return
		}
		delete(st.pendingSlurs, num)
		slur := &canonical.Slur{StartID: p.startID, EndID: noteID}
		slur.Identity = imp.newIdentity("slur", 0, p.startID, noteID)
		imp.ids.RecordReference(slur.ID, slur.StartID, "/measure/slur/@startid")
		imp.ids.RecordReference(slur.ID, slur.EndID, "/measure/slur/@endid")
		p.anchor.Children = append(p.anchor.Children, canonical.Child{Tag: canonical.ChildSlur, Slur: slur})
	}
}

func (imp *importer) handleTie(tieNode *xmlcompare.Node, st *partState, measure *canonical.Measure, noteID string) {
	typ, _ := tieNode.Attr("type")
	const num = 1 // MusicXML ties carry no number attribute; one pending tie per part is assumed
	switch typ {
	case "start":
		st.pendingTies[num] = &pendingSpan{startID: noteID, anchor: measure}
	case "stop":
		p, ok := st.pendingTies[num]
		if !ok {
			return
		}
		delete(st.pendingTies, num)
		tie := &canonical.Tie{StartID: p.startID, EndID: noteID}
		tie.Identity = imp.newIdentity("tie", 0, p.startID, noteID)
		imp.ids.RecordReference(tie.ID, tie.StartID, "/measure/tie/@startid")
		imp.ids.RecordReference(tie.ID, tie.EndID, "/measure/tie/@endid")
		p.anchor.Children = append(p.anchor.Children, canonical.Child{Tag: canonical.ChildTie, Tie: tie})
	}
}

func (imp *importer) handleTuplet(n *xmlcompare.Node, st *partState, measure *canonical.Measure, noteID string, actual, normal int) {
	notations := firstChild(n, "notations")
	if notations == nil {
		return
	}
	for _, tNode := range children(notations, "tuplet") {
		num := 1
		if v, ok := attrInt(tNode, "number"); ok {
			num = v
		}
		typ, _ := tNode.Attr("type")
		switch typ {
		case "start":
			st.pendingTuplets[num] = &pendingTuplet{startID: noteID, anchor: measure, actual: actual, normal: normal}
		case "stop":
			p, ok := st.pendingTuplets[num]
			if !ok {
				continue
			}
			delete(st.pendingTuplets, num)
			ts := &canonical.TupletSpan{StartID: p.startID, EndID: noteID, Num: p.actual, NumBase: p.normal}
			ts.Identity = imp.newIdentity("tupletSpan", 0, p.startID, noteID)
			imp.ids.RecordReference(ts.ID, ts.StartID, "/measure/tupletSpan/@startid")
			imp.ids.RecordReference(ts.ID, ts.EndID, "/measure/tupletSpan/@endid")
			p.anchor.Children = append(p.anchor.Children, canonical.Child{Tag: canonical.ChildTupletSpan, TupletSpan: ts})
		}
	}
}

// dynamicMarks is the set of MusicXML empty elements <direction-type>
// <dynamics> carries one of, per the MusicXML dynamics content model;
// the mark name is the element's own local name rather than an
// attribute value.
var dynamicMarks = []string{"p", "pp", "ppp", "f", "ff", "fff", "mf", "mp", "sf", "sfz", "fp"}

func (imp *importer) importDirection(n *xmlcompare.Node, st *partState, measure *canonical.Measure) {
	dt := firstChild(n, "direction-type")
	if dt == nil {
		return
	}
	if dynNode := firstChild(dt, "dynamics"); dynNode != nil {
		mark := ""
		for _, candidate := range dynamicMarks {
			if firstChild(dynNode, candidate) != nil {
				mark = candidate
				break
			}
		}
		if mark != "" {
			d := &canonical.Dynam{StartID: st.lastEventID, Text: mark}
			d.Identity = imp.newIdentity("dynam", 0, measure.ID, st.id, mark, st.cursor.String())
			d.Timestamp = canonical.Timestamp{QuarterNotesFromDownbeat: st.cursor}
			d.HasTime = true
			if d.StartID != "" {
				imp.ids.RecordReference(d.ID, d.StartID, "/measure/dynam/@startid")
			}
			measure.Children = append(measure.Children, canonical.Child{Tag: canonical.ChildDynam, Dynam: d})
		}
	}
	if firstChild(dt, "metronome") != nil {
		if sound := firstChild(n, "sound"); sound != nil {
			if tempo, ok := sound.Attr("tempo"); ok {
				if f, err := strconv.ParseFloat(tempo, 64); err == nil {
					imp.store.PutSound(measure.ID, extension.SoundData{Tempo: f, HasTempo: true})
				}
			}
		}
	}
	// Wedges (crescendo/diminuendo hairpins) have no canonical-model
	// control event in this adapter's scope; they are neither
	// translated nor preserved via the Extension Store.
}

func renderHarmonyText(root, kind, bass string) string {
	kindAbbrev := map[string]string{
		"major": "", "minor": "m", "major-seventh": "maj7", "minor-seventh": "m7",
		"dominant": "7", "diminished": "dim", "augmented": "aug", "half-diminished": "m7b5",
	}
	text := root + kindAbbrev[kind]
	if text == root {
		text = root
	}
	if kind != "" && kindAbbrev[kind] == "" && kind != "major" {
		text = root + "(" + kind + ")"
	}
	if bass != "" && bass != root {
		text += "/" + bass
	}
	return text
}

func (imp *importer) importHarmony(n *xmlcompare.Node, st *partState, measure *canonical.Measure) error {
	path := fmt.Sprintf("/measure[%d]/harmony", measure.N)
	data := extension.HarmonyData{}
	if r := firstChild(n, "root"); r != nil {
		data.RootStep = text(firstChild(r, "root-step"))
		if a := firstChild(r, "root-alter"); a != nil {
			data.RootAlter = float64(intOr(a, 0))
		}
	}
	data.Kind = text(firstChild(n, "kind"))
	if err := imp.checkEnum("kind-value", data.Kind, path+"/kind"); err != nil {
		return err
	}
	if b := firstChild(n, "bass"); b != nil {
		data.BassStep = text(firstChild(b, "bass-step"))
		data.HasBass = true
		if a := firstChild(b, "bass-alter"); a != nil {
			data.BassAlter = float64(intOr(a, 0))
		}
	}

	h := &canonical.Harm{StartID: st.lastEventID, Text: renderHarmonyText(data.RootStep, data.Kind, data.BassStep)}
	h.Identity = imp.newIdentity("harm", 0, measure.ID, st.id, data.RootStep, data.Kind, st.cursor.String())
	h.Timestamp = canonical.Timestamp{QuarterNotesFromDownbeat: st.cursor}
	h.HasTime = true
	if h.StartID != "" {
		imp.ids.RecordReference(h.ID, h.StartID, "/measure/harm/@startid")
	}
	measure.Children = append(measure.Children, canonical.Child{Tag: canonical.ChildHarm, Harm: h})
	imp.store.PutHarmony(h.ID, data)
	return nil
}

func (imp *importer) importBarline(n *xmlcompare.Node, measure *canonical.Measure) {
	extras := extension.BarlineExtras{}
	if loc, ok := n.Attr("location"); ok {
		extras.Location = loc
	}
	if bs := firstChild(n, "bar-style"); bs != nil {
		extras.BarStyle = text(bs)
	}
	if rep := firstChild(n, "repeat"); rep != nil {
		extras.RepeatDir, _ = rep.Attr("direction")
	}
	if end := firstChild(n, "ending"); end != nil {
		extras.EndingNumber, _ = end.Attr("number")
		extras.EndingType, _ = end.Attr("type")
	}
	imp.store.PutBarline(measure.ID, extras)
}
