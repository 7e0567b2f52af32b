package extension_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/extension"
)

func TestAbsenceIsNotLoss(t *testing.T) {
	s := extension.New()
	_, ok := s.Harmony("note-1")
	assert.False(t, ok, "absent id must mean no extension data, not data lost")
}

func TestWriteOnceThenSealed(t *testing.T) {
	s := extension.New()
	require.NoError(t, s.PutHarmony("h1", extension.HarmonyData{RootStep: "C", Kind: "major-seventh"}))
	s.Seal()
	err := s.PutHarmony("h2", extension.HarmonyData{RootStep: "D"})
	require.Error(t, err)

	got, ok := s.Harmony("h1")
	require.True(t, ok)
	assert.Equal(t, "C", got.RootStep)
}

func TestCreditsAccumulate(t *testing.T) {
	s := extension.New()
	require.NoError(t, s.AddCredit("score-1", extension.CreditEntry{Type: "title", Words: "Sonata"}))
	require.NoError(t, s.AddCredit("score-1", extension.CreditEntry{Type: "composer", Words: "J. Doe"}))
	assert.Len(t, s.Credits("score-1"), 2)
}

func TestLossReportOnlyIncludesHitCategories(t *testing.T) {
	s := extension.New()
	s.RecordLoss(extension.CriticalApparatus)
	s.RecordLoss(extension.CriticalApparatus)
	report := s.LossReport()
	assert.Equal(t, 2, report[extension.CriticalApparatus])
	_, ok := report[extension.Tablature]
	assert.False(t, ok)
}
