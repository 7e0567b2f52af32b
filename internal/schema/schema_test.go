package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/schema"
)

func TestMEIBuiltinLoads(t *testing.T) {
	sch, err := schema.MEI()
	require.NoError(t, err)
	require.NotEmpty(t, sch.Elements)

	note, ok := sch.Elements["note"]
	require.True(t, ok, "note element should be defined")
	assert.Contains(t, note.Groups, "note.log.attrs")
	assert.Contains(t, note.Groups, "note.ges.attrs")

	ag := sch.AttributeGroups["note.log.attrs"]
	require.NotNil(t, ag)
	names := attrNames(ag)
	assert.Contains(t, names, "pname")
	assert.Contains(t, names, "dur")

	measure, ok := sch.Elements["measure"]
	require.True(t, ok)
	assert.True(t, measure.PermittedChild("staff"))
	assert.True(t, measure.PermittedChild("slur"))
	assert.False(t, measure.PermittedChild("nonexistent"))

	staffGrp := sch.AttributeGroups["staffGrp.attrs"]
	require.NotNil(t, staffGrp)
	assert.Contains(t, attrNames(staffGrp), "xml:id")
}

func TestMEIMeasureContentIsUnordered(t *testing.T) {
	sch, err := schema.MEI()
	require.NoError(t, err)
	measure := sch.Elements["measure"]
	require.NotNil(t, measure)
	assert.True(t, hasUnorderedChoice(measure.Content))
	assert.True(t, sch.UnorderedGroups["measure"], "the comparator's unordered table should be schema-derived")
	assert.False(t, sch.UnorderedGroups["layer"], "layer content is an ordered sequence of events")
}

func TestMusicXMLBuiltinLoads(t *testing.T) {
	sch, err := schema.MusicXML()
	require.NoError(t, err)
	require.NotEmpty(t, sch.Elements)

	note, ok := sch.Elements["note"]
	require.True(t, ok)
	assert.True(t, note.PermittedChild("pitch"))
	assert.True(t, note.PermittedChild("notations"))

	harmonyKind := sch.SimpleTypes["kind-value"]
	require.NotNil(t, harmonyKind)
	assert.True(t, sch.IsKnownEnumValue("kind-value", "major-seventh"))
	assert.False(t, sch.IsKnownEnumValue("kind-value", "bogus-kind"))
}

func attrNames(ag *schema.AttributeGroup) []string {
	var out []string
	for _, a := range ag.Attributes {
		out = append(out, a.Name)
	}
	return out
}

func hasUnorderedChoice(cm schema.ContentModel) bool {
	if cm.Kind == schema.Choice && cm.Unordered {
		return true
	}
	for _, item := range cm.Items {
		if hasUnorderedChoice(item) {
			return true
		}
	}
	return false
}
