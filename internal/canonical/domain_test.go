package canonical_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/canonical"
)

func TestQuarterLengthWithDots(t *testing.T) {
	ql, err := canonical.QuarterLength(canonical.Duration{Symbol: "quarter", Dots: 1})
	require.NoError(t, err)
	assert.True(t, ql.Equal(decimal.RequireFromString("1.5")))
}

func TestQuarterLengthUnknownSymbol(t *testing.T) {
	_, err := canonical.QuarterLength(canonical.Duration{Symbol: "bogus"})
	require.Error(t, err)
}

func TestDurationToPartsAndBack(t *testing.T) {
	parts, err := canonical.DurationToParts(canonical.Duration{Symbol: "eighth"}, 24)
	require.NoError(t, err)
	assert.True(t, parts.Equal(decimal.NewFromInt(12)))

	d, ok := canonical.DurationFromParts(parts, 24)
	require.True(t, ok)
	assert.Equal(t, "eighth", d.Symbol)
	assert.Equal(t, 0, d.Dots)
}

func TestDurationFromPartsNoExactMatch(t *testing.T) {
	_, ok := canonical.DurationFromParts(decimal.NewFromInt(7), 24)
	assert.False(t, ok)
}

func sampleScore() *canonical.Score {
	note1 := &canonical.Note{Identity: canonical.Identity{ID: "n1"}, NoteLogAttrs: canonical.NoteLogAttrs{Pitch: canonical.Pitch{Step: "C", Octave: 4}, Dur: canonical.Duration{Symbol: "quarter"}}}
	note2 := &canonical.Note{Identity: canonical.Identity{ID: "n2"}, NoteLogAttrs: canonical.NoteLogAttrs{Pitch: canonical.Pitch{Step: "D", Octave: 4}, Dur: canonical.Duration{Symbol: "quarter"}}}
	slur := &canonical.Slur{Identity: canonical.Identity{ID: "s1"}, StartID: "n1", EndID: "n2"}
	layer := &canonical.Layer{Identity: canonical.Identity{ID: "l1"}, N: 1, Children: canonical.Children{
		{Tag: canonical.ChildNote, Note: note1},
		{Tag: canonical.ChildNote, Note: note2},
	}}
	staff := &canonical.Staff{Identity: canonical.Identity{ID: "st1"}, N: 1, Layers: []*canonical.Layer{layer}}
	measure := &canonical.Measure{Identity: canonical.Identity{ID: "m1"}, N: 1, Children: canonical.Children{
		{Tag: canonical.ChildStaff, Staff: staff},
		{Tag: canonical.ChildSlur, Slur: slur},
	}}
	section := &canonical.Section{Identity: canonical.Identity{ID: "sec1"}, Measures: []*canonical.Measure{measure}}
	return &canonical.Score{Identity: canonical.Identity{ID: "score1"}, Sections: []*canonical.Section{section}}
}

func TestCrossReferences(t *testing.T) {
	score := sampleScore()
	refs := canonical.CrossReferences(score)
	require.Len(t, refs, 2)
	assert.Equal(t, "s1", refs[0].ReferrerID)
	assert.Equal(t, "n1", refs[0].Referent)
	assert.Equal(t, "n2", refs[1].Referent)
}

func TestAllIdentifiersIncludesNestedNotes(t *testing.T) {
	ids := canonical.AllIdentifiers(sampleScore())
	assert.Contains(t, ids, "n1")
	assert.Contains(t, ids, "n2")
	assert.Contains(t, ids, "s1")
	assert.Contains(t, ids, "m1")
}

func TestWalkEventsOrder(t *testing.T) {
	var seen []string
	canonical.WalkEvents(sampleScore(), func(id string, c canonical.Child) {
		seen = append(seen, id)
	})
	assert.Equal(t, []string{"n1", "n2"}, seen)
}

func TestMeasureStaves(t *testing.T) {
	score := sampleScore()
	m := score.Sections[0].Measures[0]
	assert.Len(t, m.Staves(), 1)
	assert.Equal(t, "st1", m.Staves()[0].ID)
}
