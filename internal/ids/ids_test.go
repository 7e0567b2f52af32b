package ids_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/ids"
)

func TestAssignPreservesPresentID(t *testing.T) {
	a := ids.NewAssigner()
	got := a.Assign("n1", "note", 0)
	assert.Equal(t, "n1", got)
	assert.True(t, a.Seen("n1"))
}

func TestAssignIsDeterministic(t *testing.T) {
	a1, a2 := ids.NewAssigner(), ids.NewAssigner()
	id1 := a1.Assign("", "note", 2, "C4", "quarter")
	id2 := a2.Assign("", "note", 2, "C4", "quarter")
	assert.Equal(t, id1, id2)
}

func TestAssignDiffersOnSalientAttributes(t *testing.T) {
	a := ids.NewAssigner()
	id1 := a.Assign("", "note", 2, "C4")
	id2 := a.Assign("", "note", 2, "D4")
	assert.NotEqual(t, id1, id2)
}

func TestCheckClosureDetectsDangling(t *testing.T) {
	a := ids.NewAssigner()
	a.Assign("n1", "note", 0)
	a.RecordReference("slur1", "n99", "/measure/control/slur[1]")
	err := a.CheckClosure()
	require.Error(t, err)
}

func TestCheckClosureAllowsForwardReference(t *testing.T) {
	a := ids.NewAssigner()
	a.RecordReference("slur1", "n5", "/measure/control/slur[1]")
	a.Assign("n5", "note", 4)
	require.NoError(t, a.CheckClosure())
}

func TestCheckClosureDetectsDuplicateID(t *testing.T) {
	a := ids.NewAssigner()
	a.Assign("n1", "note", 0)
	a.Assign("n1", "note", 1)
	err := a.CheckClosure()
	require.Error(t, err)
}
