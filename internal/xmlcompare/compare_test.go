package xmlcompare_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/xmlcompare"
)

func parse(t *testing.T, doc string) *xmlcompare.Node {
	t.Helper()
	n, err := xmlcompare.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return n
}

func TestAttributeOrderIgnored(t *testing.T) {
	a := parse(t, `<note pname="C" oct="4"/>`)
	b := parse(t, `<note oct="4" pname="C"/>`)
	ok, diffs := xmlcompare.Equivalent(a, b, xmlcompare.Options{})
	assert.True(t, ok, "%v", diffs)
}

func TestFloatFormattingTolerated(t *testing.T) {
	a := parse(t, `<note default-x="1"/>`)
	b := parse(t, `<note default-x="1.0"/>`)
	ok, _ := xmlcompare.Equivalent(a, b, xmlcompare.Options{})
	assert.True(t, ok)
}

func TestDefaultEquivalentAttributeTolerated(t *testing.T) {
	a := parse(t, `<note stem.dir="up"/>`)
	b := parse(t, `<note/>`)
	opts := xmlcompare.Options{Defaults: map[string]string{"note/stem.dir": "up"}}
	ok, diffs := xmlcompare.Equivalent(a, b, opts)
	assert.True(t, ok, "%v", diffs)
}

func TestMissingElementIsNotTolerated(t *testing.T) {
	a := parse(t, `<measure><note pname="C"/><note pname="D"/></measure>`)
	b := parse(t, `<measure><note pname="C"/></measure>`)
	ok, diffs := xmlcompare.Equivalent(a, b, xmlcompare.Options{})
	assert.False(t, ok)
	assert.NotEmpty(t, diffs)
}

func TestWhitespaceInsignificantInText(t *testing.T) {
	a := parse(t, "<title>Sonata\n  No. 1</title>")
	b := parse(t, "<title>Sonata No. 1</title>")
	ok, diffs := xmlcompare.Equivalent(a, b, xmlcompare.Options{})
	assert.True(t, ok, "%v", diffs)
}

func TestUnorderedChildrenMatchByFingerprint(t *testing.T) {
	a := parse(t, `<measure><staff n="1"/><slur startid="n1" endid="n2"/></measure>`)
	b := parse(t, `<measure><slur startid="n1" endid="n2"/><staff n="1"/></measure>`)
	opts := xmlcompare.Options{Unordered: map[string]bool{"measure": true}}
	ok, diffs := xmlcompare.Equivalent(a, b, opts)
	assert.True(t, ok, "%v", diffs)
}

func TestVersionMigratedNameAlias(t *testing.T) {
	a := parse(t, `<composer>J. Doe</composer>`)
	b := parse(t, `<creator>J. Doe</creator>`)
	opts := xmlcompare.Options{NameAliases: map[string]string{"composer": "creator"}}
	ok, diffs := xmlcompare.Equivalent(a, b, opts)
	assert.True(t, ok, "%v", diffs)
}
