package lilypond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/canonical"
	"github.com/tusk-notation/tusk/internal/config"
	"github.com/tusk-notation/tusk/internal/extension"
	"github.com/tusk-notation/tusk/internal/lilypond"
)

const sampleLy = `\version "2.24.0"

\header {
  title = "Sample"
  composer = "A. Composer"
}

\score {
  { c'4 d'4 e'4 f'4 | g'2 }
}
`

func TestImportBuildsCanonicalModel(t *testing.T) {
	doc, store, err := lilypond.Import([]byte(sampleLy), config.Default())
	require.NoError(t, err)
	require.NotNil(t, store)

	require.NotNil(t, doc.MeiHead)
	require.NotNil(t, doc.MeiHead.FileDesc)
	require.NotNil(t, doc.MeiHead.FileDesc.TitleStmt)
	assert.Equal(t, "Sample", doc.MeiHead.FileDesc.TitleStmt.Title.Text)
	require.Len(t, doc.MeiHead.FileDesc.TitleStmt.Creators, 1)
	assert.Equal(t, "A. Composer", doc.MeiHead.FileDesc.TitleStmt.Creators[0].Name)

	require.NotNil(t, doc.Music)
	require.NotNil(t, doc.Music.Body)
	require.Len(t, doc.Music.Body.Mdivs, 1)
	score := doc.Music.Body.Mdivs[0].Score
	require.NotEmpty(t, score.Sections)
	require.NotEmpty(t, score.Sections[0].Measures)
}

func TestImportRejectsEmptyDocument(t *testing.T) {
	_, _, err := lilypond.Import([]byte(`\version "2.24.0"`), config.Default())
	require.Error(t, err)
}

const twoStaffLy = `\version "2.24.0"

\score {
  <<
    \new Staff \relative c'' { c4 b a g | }
    \new Staff \relative c { c4 c c c | }
  >>
}
`

func TestImportSplitsSimultaneousVoicesIntoStaves(t *testing.T) {
	doc, _, err := lilypond.Import([]byte(twoStaffLy), config.Default())
	require.NoError(t, err)

	score := doc.Music.Body.Mdivs[0].Score
	require.Len(t, score.ScoreDef.StaffGrps, 1)
	assert.Len(t, score.ScoreDef.StaffGrps[0].StaffDefs, 2)

	require.NotEmpty(t, score.Sections[0].Measures)
	staves := score.Sections[0].Measures[0].Staves()
	require.Len(t, staves, 2)
	assert.Equal(t, 5, staves[0].Layers[0].Events()[0].Note.Pitch.Octave)
	assert.Equal(t, 3, staves[1].Layers[0].Events()[0].Note.Pitch.Octave)
}

// countNotes counts ChildNote events across every section of a
// canonical score via internal/canonical's WalkEvents glue.
func countNotes(score *canonical.Score) int {
	n := 0
	canonical.WalkEvents(score, func(id string, c canonical.Child) {
		if c.Tag == canonical.ChildNote {
			n++
		}
	})
	return n
}

func TestImportExportImportPreservesNoteCount(t *testing.T) {
	doc, _, err := lilypond.Import([]byte(sampleLy), config.Default())
	require.NoError(t, err)

	out, err := lilypond.Export(doc, extension.New(), config.Default())
	require.NoError(t, err)
	require.NotEmpty(t, out)

	reimported, _, err := lilypond.Import(out, config.Default())
	require.NoError(t, err)

	origScore := doc.Music.Body.Mdivs[0].Score
	roundTripScore := reimported.Music.Body.Mdivs[0].Score
	assert.Equal(t, countNotes(origScore), countNotes(roundTripScore))
}
