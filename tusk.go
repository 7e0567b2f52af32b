// Package tusk is the library surface of the converter: one
// import/export pair per format, each a pure function from bytes to
// (canonical model, extension store) and back (spec.md §6.2). There is
// no CLI here; the command-line front-end is an explicit Non-goal
// (spec.md §1, §6.3).
package tusk

import (
	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/lilypond"
	"github.com/tusk-notation/tusk/internal/mei"
	"github.com/tusk-notation/tusk/internal/musicxml"
)

// ConversionOptions re-exports internal/config's options so callers
// never need to import an internal package directly.
type ConversionOptions = config.ConversionOptions

// DefaultOptions returns the library's zero-configuration defaults:
// lenient recovery, canonical-version-down-to-floor acceptance windows
// (spec.md §7).
func DefaultOptions() ConversionOptions { return config.Default() }

// StrictOptions returns the options tests are expected to run under:
// identical to DefaultOptions except strict error recovery.
func StrictOptions() ConversionOptions { return config.Strict() }

// Document is the canonical model plus the sidecar extension data a
// conversion produced or needs, per spec.md §3.3. It is the value that
// flows between an importer and an exporter regardless of which two
// formats are involved.
type Document struct {
	Model *canonical.Mei
	Store *extension.Store
}

// LossReport summarizes what an export discarded, keyed by the fixed
// loss-category enumeration of spec.md §4.5. A category absent from
// the map means nothing in that category was discarded.
type LossReport = map[extension.LossCategory]int

// LossReport returns the categories of source-format content an export
// has discarded so far, "at export time if requested" per spec.md
// §4.5. Losses accumulate on doc.Store: ExportMusicXML records them as
// it runs, and ImportLilyPond records some while importing, so a
// LilyPond-imported document can report losses before any export.
func (d *Document) LossReport() LossReport {
	return d.Store.LossReport()
}

// ImportMEI parses an MEI document into a Document (spec.md §4.4).
func ImportMEI(data []byte, opts ConversionOptions) (*Document, error) {
	model, store, err := mei.Import(data, opts)
	if err != nil {
		return nil, err
	}
	return &Document{Model: model, Store: store}, nil
}

// ExportMEI serializes a Document as MEI, always in the canonical
// version (spec.md §4.4, §6.2: "Version selection on export is fixed
// to the canonical version").
func ExportMEI(doc *Document, opts ConversionOptions) ([]byte, error) {
	return mei.Export(doc.Model, doc.Store, opts)
}

// ImportMusicXML parses a MusicXML document into a Document,
// translating MusicXML's part/staff/division model into the
// canonical staff-group/staff-definition/control-event shape (spec.md
// §4.5).
func ImportMusicXML(data []byte, opts ConversionOptions) (*Document, error) {
	model, store, err := musicxml.Import(data, opts)
	if err != nil {
		return nil, err
	}
	return &Document{Model: model, Store: store}, nil
}

// ExportMusicXML serializes a Document as MusicXML, consulting the
// extension store to recover source-format detail for each canonical
// anchor identifier where present (spec.md §4.5).
func ExportMusicXML(doc *Document, opts ConversionOptions) ([]byte, error) {
	return musicxml.Export(doc.Model, doc.Store, opts)
}

// ImportLilyPond lexes and parses a LilyPond source document, then
// walks the resulting AST into a Document (spec.md §4.6).
func ImportLilyPond(data []byte, opts ConversionOptions) (*Document, error) {
	model, store, err := lilypond.Import(data, opts)
	if err != nil {
		return nil, err
	}
	return &Document{Model: model, Store: store}, nil
}

// ExportLilyPond renders a Document as LilyPond source, one voice per
// canonical layer, with relative-octave compression (spec.md §4.6).
func ExportLilyPond(doc *Document, opts ConversionOptions) ([]byte, error) {
	return lilypond.Export(doc.Model, doc.Store, opts)
}
