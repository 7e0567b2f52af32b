package lilypond

import (
	"fmt"
	"strconv"
	"strings"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/errs"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/ids"
)

var log = logger.New("lilypond")

// durationSymbols maps LilyPond's numeric duration tokens to the
// canonical Duration vocabulary (internal/canonical's duration table).
var durationSymbols = map[string]string{
	"1": "whole", "2": "half", "4": "quarter", "8": "eighth",
	"16": "16th", "32": "32nd", "64": "64th",
}

// Import parses a LilyPond source document into the canonical model
// and an extension store holding source-format detail with no
// canonical slot (spec.md §4.6).
func Import(data []byte, opts config.ConversionOptions) (*canonical.Mei, *extension.Store, error) {
	flog := log.Function("Import")

	book, err := Parse(string(data))
	if err != nil {
		flog.Err("parse failed", err)
		return nil, nil, errs.ParseError("LilyPond", "", err.Error())
	}
	if len(book.Scores) == 0 {
		return nil, nil, errs.ParseError("LilyPond", "", "document contains no \\score block")
	}

	store := extension.New()
	assigner := ids.NewAssigner()
	imp := &importer{opts: opts, store: store, ids: assigner}

	doc := &canonical.Mei{Version: config.CanonicalMEIVersion}
	doc.Identity = imp.newIdentity("mei", 0)
	doc.MeiHead = imp.meiHead(book)
	doc.Music = imp.music(book.Scores[0])

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
}

func (imp *importer) newIdentity(kind string, index int, salient ...string) canonical.Identity {
	id := imp.ids.Assign("", kind, index, salient...)
	return canonical.Identity{ID: id, Assigned: true}
}

func (imp *importer) meiHead(book *Book) *canonical.MeiHead {
	h := &canonical.MeiHead{}
	h.Identity = imp.newIdentity("meiHead", 0)

	fd := &canonical.FileDesc{}
	fd.Identity = imp.newIdentity("fileDesc", 0)
	h.FileDesc = fd

	ts := &canonical.TitleStmt{}
	ts.Identity = imp.newIdentity("titleStmt", 0)
	fd.TitleStmt = ts

	hdr := map[string]string{}
	if len(book.Scores) > 0 {
		hdr = book.Scores[0].Header
	}
	if title := hdr["title"]; title != "" {
		ts.Title = &canonical.Title{Text: title}
		ts.Title.Identity = imp.newIdentity("title", 0)
	}
	if composer := hdr["composer"]; composer != "" {
		cr := &canonical.Creator{Role: "composer", Name: composer}
		cr.Identity = imp.newIdentity("creator", 0, "composer")
		ts.Creators = append(ts.Creators, cr)
	}
	return h
}

// voiceState is the walking context for one musical voice: current
// default octave/duration (the cascade LilyPond applies when a note
// omits them), relative-octave tracking, the open measure under
// construction, and pending spanners.
type voiceState struct {
	// voice scopes derived event identifiers: together with the running
	// measure count it keeps the Nth event of one voice from colliding
	// with the identical Nth event of another (spec.md §8.1 uniqueness
	// by construction).
	voice int

	lastDuration string
	lastDots     int

	relative     bool
	prevAbsPitch int // diatonic-step*7 + letter index, for \relative resolution
	prevOctave   int

	transposeDiatonic int
	transposeChroma   int

	cursor decimal.Decimal

	slurStack  []string
	tieStartID string
	lastID     string

	measures    []*canonical.Measure
	curEvents   []canonical.Child // note/rest/chord events destined for the voice's Layer
	curControls []canonical.Child // slur/tie/tupletSpan/dynam destined for the shared Measure
	controlSets [][]canonical.Child

	clefSet bool
	keySet  bool
	timeSet bool

	scoreDef        *canonical.ScoreDef
	hasPendingKey   bool
	pendingKeyStep  string
	pendingKeyAlter int
}

func newVoiceState() *voiceState {
	return &voiceState{lastDuration: "4"}
}

// scope is the container salient for derived event identifiers: the
// voice index plus the measure currently under construction.
func (st *voiceState) scope() string {
	return fmt.Sprintf("v%d-m%d", st.voice, len(st.measures))
}

func (imp *importer) music(score *Score) *canonical.Music {
	m := &canonical.Music{}
	m.Identity = imp.newIdentity("music", 0)
	body := &canonical.Body{}
	body.Identity = imp.newIdentity("body", 0)
	m.Body = body

	mdiv := &canonical.Mdiv{}
	mdiv.Identity = imp.newIdentity("mdiv", 0)
	body.Mdivs = append(body.Mdivs, mdiv)

	canonScore := &canonical.Score{}
	canonScore.Identity = imp.newIdentity("score", 0)
	mdiv.Score = canonScore

	scoreDef := &canonical.ScoreDef{}
	scoreDef.Identity = imp.newIdentity("scoreDef", 0)
	canonScore.ScoreDef = scoreDef

	section := &canonical.Section{}
	section.Identity = imp.newIdentity("section", 0)
	canonScore.Sections = append(canonScore.Sections, section)

	// A top-level Simultaneous (`<< voiceA \\ voiceB >>`) becomes one
	// staff per branch; anything else is a single-staff piece. This
	// covers the corpus's common piano/vocal two-staff shape without
	// needing full \new Staff/\new Voice context tracking.
	var voices []Music
	if sim, ok := score.Music.(*Simultaneous); ok {
		voices = sim.Items
	} else {
		voices = []Music{score.Music}
	}

	grp := &canonical.StaffGrp{}
	grp.Identity = imp.newIdentity("staffGrp", 0)
	if len(voices) > 1 {
		grp.Symbol = "brace"
	}

	voiceStates := make([]*voiceState, len(voices))
	nMeasures := 0
	for vi, v := range voices {
		st := newVoiceState()
		st.voice = vi
		st.scoreDef = scoreDef
		imp.walkMusic(v, st)
		st.flushMeasure()
		voiceStates[vi] = st
		if len(st.measures) > nMeasures {
			nMeasures = len(st.measures)
		}

		sd := &canonical.StaffDef{N: vi + 1}
		sd.Identity = imp.newIdentity("staffDef", vi)
		grp.StaffDefs = append(grp.StaffDefs, sd)
	}
	scoreDef.StaffGrps = append(scoreDef.StaffGrps, grp)

	for mi := 0; mi < nMeasures; mi++ {
		measure := &canonical.Measure{N: mi + 1}
		measure.Identity = imp.newIdentity("measure", mi, strconv.Itoa(mi+1))
		for vi, st := range voiceStates {
			if mi >= len(st.measures) {
				continue
			}
			src := st.measures[mi]
			staff := &canonical.Staff{N: vi + 1}
			staff.Identity = imp.newIdentity("staff", 0, strconv.Itoa(vi+1), strconv.Itoa(mi+1))
			layer := &canonical.Layer{N: 1, Children: src.Children}
			layer.Identity = imp.newIdentity("layer", 0, strconv.Itoa(vi+1), strconv.Itoa(mi+1))
			staff.Layers = append(staff.Layers, layer)
			measure.Children = append(measure.Children, canonical.Child{Tag: canonical.ChildStaff, Staff: staff})
			if mi < len(st.controlSets) {
				measure.Children = append(measure.Children, st.controlSets[mi]...)
			}
		}
		section.Measures = append(section.Measures, measure)
	}

	return m
}

func (st *voiceState) flushMeasure() {
	if len(st.curEvents) == 0 && len(st.curControls) == 0 && len(st.measures) > 0 {
		return
	}
	m := &canonical.Measure{N: len(st.measures) + 1, Children: st.curEvents}
	st.measures = append(st.measures, m)
	st.controlSets = append(st.controlSets, st.curControls)
	st.curEvents = nil
	st.curControls = nil
	st.cursor = decimal.Zero
}

// walkMusic recursively imports one AST node into st, returning the
// identifiers of the first and last note/rest/chord event it produced
// so a caller (tuplet, repeat ending) can anchor a span across it.
func (imp *importer) walkMusic(m Music, st *voiceState) (firstID, lastID string) {
	switch n := m.(type) {
	case *Sequential:
		for _, item := range n.Items {
			f, l := imp.walkMusic(item, st)
			if firstID == "" {
				firstID = f
			}
			if l != "" {
				lastID = l
			}
		}
	case *Simultaneous:
		// A nested simultaneous inside a single voice (e.g. a chord
		// spelled with \\ voices) collapses to sequential import;
		// true multi-voice splitting only happens at the top level.
		for _, item := range n.Items {
			f, l := imp.walkMusic(item, st)
			if firstID == "" {
				firstID = f
			}
			if l != "" {
				lastID = l
			}
		}
	case *BarCheck:
		st.flushMeasure()
	case *Note:
		id := imp.importNote(n, st)
		firstID, lastID = id, id
	case *Rest:
		id := imp.importRest(n, st)
		firstID, lastID = id, id
	case *ChordLiteral:
		id := imp.importChord(n, st)
		firstID, lastID = id, id
	case *RelativeBlock:
		firstID, lastID = imp.walkRelative(n, st)
	case *TupletBlock:
		firstID, lastID = imp.walkTuplet(n, st)
	case *TransposeBlock:
		firstID, lastID = imp.walkTranspose(n, st)
	case *GraceBlock:
		imp.store.RecordLoss(extension.PerformanceGesturalDetail)
		firstID, lastID = imp.walkMusic(n.Body, st)
	case *RepeatBlock:
		firstID, lastID = imp.walkRepeat(n, st)
	case *LyricMode:
		imp.store.RecordLoss(extension.RichMetadata)
	case *SchemeLiteral:
		imp.store.AddLilyPondOpaque(fmt.Sprintf("scheme-%d", len(st.measures)*1000+len(st.curEvents)), extension.LilyPondOpaque{Source: n.Source})
	case *MusicFunction:
		imp.importMusicFunction(n, st)
	case *Variable:
		// Unresolved references (a variable defined after use, or one
		// the parser could not substitute) carry no music.
	}
	return firstID, lastID
}

func (imp *importer) walkRelative(n *RelativeBlock, st *voiceState) (string, string) {
	prevOctave := 4
	prevLetter := letterIndex("C")
	if n.StartPitch != nil {
		prevLetter = letterIndex(n.StartPitch.Step)
		prevOctave = n.StartPitch.Octave
	}
	wasRelative := st.relative
	st.relative = true
	st.prevOctave = prevOctave
	st.prevAbsPitch = prevOctave*7 + prevLetter
	f, l := imp.walkMusic(n.Body, st)
	st.relative = wasRelative
	return f, l
}

func (imp *importer) walkTuplet(n *TupletBlock, st *voiceState) (string, string) {
	f, l := imp.walkMusic(n.Body, st)
	if f == "" {
		return f, l
	}
	ts := &canonical.TupletSpan{StartID: f, EndID: l, Num: n.Num, NumBase: n.NumBase}
	ts.Identity = imp.newIdentity("tupletSpan", 0, f, l)
	imp.ids.RecordReference(ts.ID, ts.StartID, "/measure/tupletSpan/@startid")
	imp.ids.RecordReference(ts.ID, ts.EndID, "/measure/tupletSpan/@endid")
	st.curControls = append(st.curControls, canonical.Child{Tag: canonical.ChildTupletSpan, TupletSpan: ts})
	return f, l
}

func (imp *importer) walkTranspose(n *TransposeBlock, st *voiceState) (string, string) {
	if n.From != nil && n.To != nil {
		fromPc := pitchClass(n.From.Step, n.From.Alter)
		toPc := pitchClass(n.To.Step, n.To.Alter)
		st.transposeDiatonic += letterIndex(n.To.Step) - letterIndex(n.From.Step)
		st.transposeChroma += toPc - fromPc
	}
	return imp.walkMusic(n.Body, st)
}

// walkRepeat expresses a volta repeat using the same measure-attribute
// barline vocabulary the MusicXML/MEI adapters use (spec.md's canonical
// model has no dedicated repeat/ending element; real MEI and MusicXML
// both express repeats as barline style plus ending number on the
// boundary measures, so that is the grounded representation here too).
func (imp *importer) walkRepeat(n *RepeatBlock, st *voiceState) (string, string) {
	if n.Kind == "tremolo" {
		imp.store.RecordLoss(extension.PerformanceGesturalDetail)
	}
	count := n.Count
	if n.Kind != "volta" {
		if count < 1 {
			count = 1
		}
		var firstID, lastID string
		for i := 0; i < count; i++ {
			f, l := imp.walkMusic(n.Body, st)
			if firstID == "" {
				firstID = f
			}
			lastID = l
		}
		return firstID, lastID
	}

	// The voice's scratch measures carry no identifier; barline detail is
	// keyed by the identifier music() derives for the canonical measure
	// at the same index.
	measureID := func(idx int) string { return ids.Derive("measure", idx, strconv.Itoa(idx+1)) }

	startMeasureIdx := len(st.measures)
	firstID, lastID := imp.walkMusic(n.Body, st)
	st.flushMeasure()
	if startMeasureIdx < len(st.measures) {
		imp.store.PutBarline(measureID(startMeasureIdx), extension.BarlineExtras{RepeatDir: "forward"})
		imp.store.PutBarline(measureID(len(st.measures)-1), extension.BarlineExtras{RepeatDir: "backward"})
	}

	for ai, alt := range n.Alternatives {
		altStart := len(st.measures)
		f, l := imp.walkMusic(alt, st)
		if firstID == "" {
			firstID = f
		}
		lastID = l
		st.flushMeasure()
		if altStart < len(st.measures) {
			num := strconv.Itoa(ai + 1)
			imp.store.PutBarline(measureID(altStart), extension.BarlineExtras{EndingNumber: num, EndingType: "start"})
			imp.store.PutBarline(measureID(len(st.measures)-1), extension.BarlineExtras{EndingNumber: num, EndingType: "stop"})
		}
	}
	return firstID, lastID
}

func (imp *importer) importMusicFunction(n *MusicFunction, st *voiceState) {
	switch n.Name {
	case "clef":
		if len(n.Args) == 0 || st.clefSet {
			return
		}
		st.clefSet = true
		imp.store.RecordLoss(extension.RichMetadata)
	case "time":
		if len(n.Args) == 0 || st.scoreDef == nil {
			return
		}
		num, denom, err := parseFraction(n.Args[0])
		if err != nil {
			return
		}
		st.timeSet = true
		st.scoreDef.MeterSig = canonical.MeterSigAttrs{Count: num, Unit: denom, Has: true}
	case "key":
		if len(n.Args) == 0 {
			return
		}
		tonic, err := parsePitchLiteral(n.Args[0])
		if err != nil {
			return
		}
		st.hasPendingKey = true
		st.pendingKeyStep = tonic.Step
		st.pendingKeyAlter = tonic.Alter
	case "major", "minor":
		if !st.hasPendingKey || st.scoreDef == nil || st.keySet {
			return
		}
		st.keySet = true
		st.scoreDef.KeySig = canonical.KeySigAttrs{Accidentals: fifthsForKey(st.pendingKeyStep, st.pendingKeyAlter, n.Name), Has: true}
	default:
		dynam := dynamicFunctionMarks[n.Name]
		if dynam != "" {
			d := &canonical.Dynam{StartID: st.lastID, Text: dynam}
			d.Identity = imp.newIdentity("dynam", 0, st.scope(), dynam, st.cursor.String())
			d.Timestamp = canonical.Timestamp{QuarterNotesFromDownbeat: st.cursor}
			d.HasTime = true
			if d.StartID != "" {
				imp.ids.RecordReference(d.ID, d.StartID, "/measure/dynam/@startid")
			}
			st.curControls = append(st.curControls, canonical.Child{Tag: canonical.ChildDynam, Dynam: d})
			return
		}
		imp.store.AddLilyPondOpaque(fmt.Sprintf("fn-%s-%d", n.Name, len(st.measures)*1000+len(st.curEvents)), extension.LilyPondOpaque{Source: functionSource(n)})
	}
}

func functionSource(n *MusicFunction) string {
	var b strings.Builder
	b.WriteString("\\")
	b.WriteString(n.Name)
	for _, a := range n.Args {
		b.WriteString(" ")
		b.WriteString(a)
	}
	return b.String()
}

var dynamicFunctionMarks = map[string]string{
	"p": "p", "pp": "pp", "ppp": "ppp", "f": "f", "ff": "ff", "fff": "fff",
	"mf": "mf", "mp": "mp", "sf": "sf", "sfz": "sfz", "fp": "fp",
}

func letterIndex(step string) int {
	switch strings.ToUpper(step) {
	case "C":
		return 0
	case "D":
		return 1
	case "E":
		return 2
	case "F":
		return 3
	case "G":
		return 4
	case "A":
		return 5
	case "B":
		return 6
	default:
		return 0
	}
}

func pitchClass(step string, alter int) int {
	semitones := map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}
	pc := (semitones[strings.ToUpper(step)] + alter) % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// majorFifthsByPitchClass gives the conventional circle-of-fifths count
// for the major key whose tonic has this pitch class (0 = C), choosing
// the spelling with fewer accidentals.
var majorFifthsByPitchClass = [12]int{0, -5, 2, -3, 4, -1, 6, 1, -4, 3, -2, 5}

// fifthsForKey computes a key signature's accidental count from a
// \key tonic and mode ("major" or "minor"); minor keys share their
// relative major's signature, found a minor third above the tonic.
func fifthsForKey(step string, alter int, mode string) int {
	pc := pitchClass(step, alter)
	if mode == "minor" {
		pc = (pc + 3) % 12
	}
	return majorFifthsByPitchClass[pc]
}

func accidFromAlter(alter int) string {
	switch alter {
	case 1:
		return "s"
	case 2:
		return "ss"
	case -1:
		return "f"
	case -2:
		return "ff"
	default:
		return ""
	}
}

// resolveOctave applies LilyPond's relative-octave rule: the note lands
// in whichever of the three neighbouring octaves puts it closest (by
// diatonic step count) to the previous pitch, then the note's own
// octave marks (' or ,) shift it further from there.
func resolveOctave(st *voiceState, step string, markOffset int) int {
	letter := letterIndex(step)
	best := st.prevOctave
	bestDist := 1 << 30
	for _, cand := range []int{st.prevOctave - 1, st.prevOctave, st.prevOctave + 1} {
		abs := cand*7 + letter
		dist := abs - st.prevAbsPitch
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = cand
		}
	}
	octave := best + markOffset
	st.prevOctave = octave
	st.prevAbsPitch = octave*7 + letter
	return octave
}

func (imp *importer) resolveNotePitch(n *Note, st *voiceState) (string, int, string) {
	step := strings.ToUpper(n.Step)
	alter := n.Alter + st.transposeChroma
	var octave int
	if st.relative {
		markOffset := n.Octave - 3
		octave = resolveOctave(st, step, markOffset)
	} else {
		octave = n.Octave
		if !n.HasOctave {
			octave = 3
		}
	}
	if st.transposeDiatonic != 0 {
		letterPos := letterIndex(step) + st.transposeDiatonic
		octaveShift := letterPos / 7
		letterPos = ((letterPos % 7) + 7) % 7
		letters := []string{"C", "D", "E", "F", "G", "A", "B"}
		step = letters[letterPos]
		octave += octaveShift
	}
	return step, octave, accidFromAlter(alter)
}

func (imp *importer) durationFor(n *Note, st *voiceState) (canonical.Duration, decimal.Decimal) {
	sym := n.Duration
	if sym == "" {
		sym = st.lastDuration
	} else {
		st.lastDuration = sym
	}
	dots := n.Dots
	if n.Duration == "" {
		dots = st.lastDots
	} else {
		st.lastDots = dots
	}
	symbol, ok := durationSymbols[sym]
	if !ok {
		symbol = "quarter"
	}
	dur := canonical.Duration{Symbol: symbol, Dots: dots}
	ql, err := canonical.QuarterLength(dur)
	if err != nil {
		ql = decimal.NewFromInt(1)
	}
	return dur, ql
}

func (imp *importer) importNote(n *Note, st *voiceState) string {
	step, octave, accid := imp.resolveNotePitch(n, st)
	dur, ql := imp.durationFor(n, st)

	note := &canonical.Note{}
	note.Identity = imp.newIdentity("note", len(st.curEvents), st.scope(), step, strconv.Itoa(octave), dur.Symbol)
	note.Pitch = canonical.Pitch{Step: step, Octave: octave, Accidental: accid}
	note.NoteLogAttrs.Dur = dur

	if n.SlurStart {
		st.slurStack = append(st.slurStack, note.ID)
	}
	if n.SlurEnd && len(st.slurStack) > 0 {
		startID := st.slurStack[len(st.slurStack)-1]
		st.slurStack = st.slurStack[:len(st.slurStack)-1]
		slur := &canonical.Slur{StartID: startID, EndID: note.ID}
		slur.Identity = imp.newIdentity("slur", 0, startID, note.ID)
		imp.ids.RecordReference(slur.ID, slur.StartID, "/measure/slur/@startid")
		imp.ids.RecordReference(slur.ID, slur.EndID, "/measure/slur/@endid")
		st.curControls = append(st.curControls, canonical.Child{Tag: canonical.ChildSlur, Slur: slur})
	}
	if st.tieStartID != "" {
		tie := &canonical.Tie{StartID: st.tieStartID, EndID: note.ID}
		tie.Identity = imp.newIdentity("tie", 0, st.tieStartID, note.ID)
		imp.ids.RecordReference(tie.ID, tie.StartID, "/measure/tie/@startid")
		imp.ids.RecordReference(tie.ID, tie.EndID, "/measure/tie/@endid")
		st.curControls = append(st.curControls, canonical.Child{Tag: canonical.ChildTie, Tie: tie})
		st.tieStartID = ""
	}
	if n.Tied {
		st.tieStartID = note.ID
	}

	st.curEvents = append(st.curEvents, canonical.Child{Tag: canonical.ChildNote, Note: note})
	st.cursor = st.cursor.Add(ql)
	st.lastID = note.ID
	return note.ID
}

func (imp *importer) importRest(n *Rest, st *voiceState) string {
	sym := n.Duration
	if sym == "" {
		sym = st.lastDuration
	} else {
		st.lastDuration = sym
	}
	dots := n.Dots
	if n.Duration == "" {
		dots = st.lastDots
	} else {
		st.lastDots = dots
	}
	symbol, ok := durationSymbols[sym]
	if !ok {
		symbol = "quarter"
	}
	dur := canonical.Duration{Symbol: symbol, Dots: dots}
	ql, err := canonical.QuarterLength(dur)
	if err != nil {
		ql = decimal.NewFromInt(1)
	}
	r := &canonical.Rest{Dur: dur}
	r.Identity = imp.newIdentity("rest", len(st.curEvents), st.scope(), symbol)
	st.curEvents = append(st.curEvents, canonical.Child{Tag: canonical.ChildRest, Rest: r})
	st.cursor = st.cursor.Add(ql)
	st.lastID = r.ID
	return r.ID
}

func (imp *importer) importChord(n *ChordLiteral, st *voiceState) string {
	dots := n.Dots
	sym := n.Duration
	if sym == "" {
		sym = st.lastDuration
		dots = st.lastDots
	} else {
		st.lastDuration = sym
		st.lastDots = dots
	}
	symbol, ok := durationSymbols[sym]
	if !ok {
		symbol = "quarter"
	}
	dur := canonical.Duration{Symbol: symbol, Dots: dots}
	ql, err := canonical.QuarterLength(dur)
	if err != nil {
		ql = decimal.NewFromInt(1)
	}

	chord := &canonical.Chord{Dur: dur}
	for i, cn := range n.Notes {
		step, octave, accid := imp.resolveNotePitch(cn, st)
		note := &canonical.Note{}
		note.Identity = imp.newIdentity("note", len(st.curEvents)*10+i, st.scope(), step, strconv.Itoa(octave))
		note.Pitch = canonical.Pitch{Step: step, Octave: octave, Accidental: accid}
		note.NoteLogAttrs.Dur = dur
		chord.Notes = append(chord.Notes, note)
	}
	chord.Identity = imp.newIdentity("chord", len(st.curEvents), st.scope(), symbol)
	st.curEvents = append(st.curEvents, canonical.Child{Tag: canonical.ChildChord, Chord: chord})
	st.cursor = st.cursor.Add(ql)
	if len(chord.Notes) > 0 {
		st.lastID = chord.Notes[0].ID
	}
	return st.lastID
}
