package modelgen_test

import (
	"go/format"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/modelgen"
	"github.com/tusk-notation/tusk/internal/schema"
)

func TestGenerateProducesOneDeclPerElement(t *testing.T) {
	sch, err := schema.MEI()
	require.NoError(t, err)

	file, err := modelgen.Config{PackageName: "generated"}.Generate(sch)
	require.NoError(t, err)
	require.Len(t, file.Decls, len(sch.Elements))

	var buf strings.Builder
	require.NoError(t, format.Node(&buf, token.NewFileSet(), file))
	assert := buf.String()
	require.Contains(t, assert, "package generated")
	require.Contains(t, assert, "type Note struct")
}

func TestGenerateRejectsEmptyPackageName(t *testing.T) {
	sch, err := schema.MEI()
	require.NoError(t, err)
	_, err = modelgen.Config{}.Generate(sch)
	require.Error(t, err)
}

func TestExportedNameMapping(t *testing.T) {
	sch, err := schema.MEI()
	require.NoError(t, err)
	file, err := modelgen.Config{PackageName: "generated"}.Generate(sch)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, format.Node(&buf, token.NewFileSet(), file))
	require.Contains(t, buf.String(), "type StaffGrp struct")
}
