package extension

import (
	"fmt"

	"github.com/tusk-notation/tusk/internal/errs"
)

// LossCategory is one of the fixed categories spec.md §4.5 uses to
// report what an MEI -> MusicXML (or any lossy) export discarded.
type LossCategory string

const (
	EditorialMarkup          LossCategory = "editorial-markup"
	CriticalApparatus        LossCategory = "critical-apparatus"
	FacsimileLinks           LossCategory = "facsimile-links"
	MensuralNotation         LossCategory = "mensural-notation"
	NeumeNotation            LossCategory = "neume-notation"
	Tablature                LossCategory = "tablature"
	HarmonicAnalysis         LossCategory = "harmonic-analysis"
	PerformanceGesturalDetail LossCategory = "performance-gestural-detail"
	RichMetadata             LossCategory = "rich-metadata"
	PhysicalSourceDescription LossCategory = "physical-source-description"
)

// AllLossCategories is the fixed set, for validating/iterating a loss
// report.
var AllLossCategories = []LossCategory{
	EditorialMarkup, CriticalApparatus, FacsimileLinks, MensuralNotation,
	NeumeNotation, Tablature, HarmonicAnalysis, PerformanceGesturalDetail,
	RichMetadata, PhysicalSourceDescription,
}

// Store is the per-conversion sidecar of spec.md §3.3/§4.7: write-once
// during import, read-only during export, one exclusive owner per
// conversion (spec.md §5 "Shared resource policy").
type Store struct {
	harmonies       map[string]HarmonyData
	barlines        map[string]BarlineExtras
	printDirectives map[string]PrintExtras
	credits         map[string][]CreditEntry
	standaloneSound map[string]SoundData
	identification  map[string]IdentificationData
	lilypondOpaque  map[string][]LilyPondOpaque

	writable bool
	losses   map[LossCategory]int
}

// New returns a Store open for writing, as produced by an importer.
func New() *Store {
	return &Store{
		harmonies:       map[string]HarmonyData{},
		barlines:        map[string]BarlineExtras{},
		printDirectives: map[string]PrintExtras{},
		credits:         map[string][]CreditEntry{},
		standaloneSound: map[string]SoundData{},
		identification:  map[string]IdentificationData{},
		lilypondOpaque:  map[string][]LilyPondOpaque{},
		writable:        true,
		losses:          map[LossCategory]int{},
	}
}

// Seal transitions the store from write-once (import) to read-only
// (export), per spec.md §4.7.
func (s *Store) Seal() { s.writable = false }

func (s *Store) mustBeWritable(concept string) error {
	if !s.writable {
		return errs.InvariantViolation(fmt.Sprintf("write to sealed extension store (%s)", concept), "")
	}
	return nil
}

func (s *Store) PutHarmony(id string, v HarmonyData) error {
	if err := s.mustBeWritable("harmony"); err != nil {
		return err
	}
	s.harmonies[id] = v
	return nil
}

// Harmony returns (data, true) if id has a stored structured chord
// symbol, (zero, false) otherwise — absence means "no extension data",
// never "data lost" (spec.md §4.7).
func (s *Store) Harmony(id string) (HarmonyData, bool) {
	v, ok := s.harmonies[id]
	return v, ok
}

func (s *Store) PutBarline(id string, v BarlineExtras) error {
	if err := s.mustBeWritable("barline"); err != nil {
		return err
	}
	s.barlines[id] = v
	return nil
}

func (s *Store) Barline(id string) (BarlineExtras, bool) {
	v, ok := s.barlines[id]
	return v, ok
}

func (s *Store) PutPrintExtras(id string, v PrintExtras) error {
	if err := s.mustBeWritable("print-directive"); err != nil {
		return err
	}
	s.printDirectives[id] = v
	return nil
}

func (s *Store) PrintExtrasFor(id string) (PrintExtras, bool) {
	v, ok := s.printDirectives[id]
	return v, ok
}

func (s *Store) AddCredit(anchorID string, v CreditEntry) error {
	if err := s.mustBeWritable("credit"); err != nil {
		return err
	}
	s.credits[anchorID] = append(s.credits[anchorID], v)
	return nil
}

func (s *Store) Credits(anchorID string) []CreditEntry {
	return s.credits[anchorID]
}

func (s *Store) PutSound(id string, v SoundData) error {
	if err := s.mustBeWritable("standalone-sound"); err != nil {
		return err
	}
	s.standaloneSound[id] = v
	return nil
}

func (s *Store) Sound(id string) (SoundData, bool) {
	v, ok := s.standaloneSound[id]
	return v, ok
}

func (s *Store) PutIdentification(id string, v IdentificationData) error {
	if err := s.mustBeWritable("identification-metadata"); err != nil {
		return err
	}
	s.identification[id] = v
	return nil
}

func (s *Store) Identification(id string) (IdentificationData, bool) {
	v, ok := s.identification[id]
	return v, ok
}

func (s *Store) AddLilyPondOpaque(anchorID string, v LilyPondOpaque) error {
	if err := s.mustBeWritable("lilypond-opaque"); err != nil {
		return err
	}
	s.lilypondOpaque[anchorID] = append(s.lilypondOpaque[anchorID], v)
	return nil
}

func (s *Store) LilyPondOpaque(anchorID string) []LilyPondOpaque {
	return s.lilypondOpaque[anchorID]
}

// RecordLoss increments the count for category, for the loss-category
// table an exporter may produce on request (spec.md §4.5).
func (s *Store) RecordLoss(category LossCategory) {
	s.losses[category]++
}

// LossReport returns a copy of the accumulated loss counts, one entry
// per category that was actually hit (categories never discarded from
// are omitted, not reported as zero).
func (s *Store) LossReport() map[LossCategory]int {
	out := make(map[LossCategory]int, len(s.losses))
	for k, v := range s.losses {
		out[k] = v
	}
	return out
}
